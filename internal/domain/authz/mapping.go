package authz

import "sort"

// Mapping translates application-level role and scope names into the
// permission sets they grant. Built once from configuration and read-only
// afterwards; hot reloads swap in a whole new Mapping between requests.
type Mapping struct {
	grants map[string]map[string]struct{}
}

// NewMapping builds a Mapping from role/scope name -> permission list.
func NewMapping(roles map[string][]string) *Mapping {
	grants := make(map[string]map[string]struct{}, len(roles))
	for name, permissions := range roles {
		set := make(map[string]struct{}, len(permissions))
		for _, p := range permissions {
			set[p] = struct{}{}
		}
		grants[name] = set
	}
	return &Mapping{grants: grants}
}

// Grants reports whether any of names maps to the given permission.
func (m *Mapping) Grants(names []string, permission string) bool {
	for _, name := range names {
		if _, ok := m.grants[name][permission]; ok {
			return true
		}
	}
	return false
}

// PermissionsFor returns the sorted union of permissions granted by names.
func (m *Mapping) PermissionsFor(names []string) []string {
	union := make(map[string]struct{})
	for _, name := range names {
		for p := range m.grants[name] {
			union[p] = struct{}{}
		}
	}

	permissions := make([]string, 0, len(union))
	for p := range union {
		permissions = append(permissions, p)
	}
	sort.Strings(permissions)
	return permissions
}
