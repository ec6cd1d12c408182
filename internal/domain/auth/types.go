package auth

import "errors"

// Identity is the validated result of Authenticate. It carries the
// caller's subject and tenant identifiers plus the raw authorization
// payload from the token, not yet checked against any business rule.
type Identity struct {
	Subject  string
	TenantID string
	Roles    []string
	Scopes   []string
}

// Authentication failure taxonomy. Every rejected token maps to exactly
// one of these so that access decisions stay attributable in audit logs.
var (
	// ErrMissingToken is returned when no bearer token was presented at all.
	// Distinct from ErrMalformedToken: absence is not the same as garbage.
	ErrMissingToken = errors.New("authorization token is missing")

	// ErrMalformedToken is returned when the token structure cannot be decoded.
	ErrMalformedToken = errors.New("token is malformed")

	// ErrUnknownSigningKey is returned when the token's key id is absent from
	// the key set even after one refresh from the discovery endpoint.
	ErrUnknownSigningKey = errors.New("token signing key is unknown")

	// ErrInvalidSignature is terminal: a bad signature is never transiently bad.
	ErrInvalidSignature = errors.New("token signature is invalid")

	ErrIssuerMismatch   = errors.New("token issuer does not match expected issuer")
	ErrAudienceMismatch = errors.New("token audience does not match this API")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")

	// ErrKeyDiscoveryTimeout is the only transient entry in the taxonomy.
	// The caller may retry with a fresh request; the gate itself does not.
	ErrKeyDiscoveryTimeout = errors.New("signing key discovery timed out")
)
