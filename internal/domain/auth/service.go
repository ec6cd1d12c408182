package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/reshmi-chandran/tenant-auth-gateway/internal/infra/keyset"
)

// Service validates bearer tokens against the deployment's trusted key
// set and expected issuer/audience. Validation is a pure function of the
// token, the current time, and the current key set; the only side effect
// is the bounded key-set refresh performed by the resolver.
type Service interface {
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
}

type service struct {
	keys      keyset.Resolver
	issuer    string
	audience  string
	clockSkew time.Duration
	parser    *jwt.Parser
}

func NewService(keys keyset.Resolver, issuer, audience string, clockSkew time.Duration) Service {
	return &service{
		keys:      keys,
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		// Claims are validated manually so that each failure maps to
		// exactly one taxonomy entry, in pipeline order.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "PS256", "ES256", "ES384"}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

type accessClaims struct {
	jwt.RegisteredClaims

	TenantID string   `json:"tid"`
	Roles    []string `json:"roles"`
	// Scope is the space-separated scope list some issuers emit instead
	// of (or alongside) a roles array.
	Scope string `json:"scp"`
}

func (s *service) Authenticate(ctx context.Context, rawToken string) (*Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrMissingToken
	}

	claims := &accessClaims{}
	_, err := s.parser.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, keyset.ErrKeyNotFound
		}
		return s.keys.ResolveKey(ctx, kid)
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	if err := s.verifyClaims(claims); err != nil {
		return nil, err
	}

	return &Identity{
		Subject:  claims.Subject,
		TenantID: claims.TenantID,
		Roles:    claims.Roles,
		Scopes:   strings.Fields(claims.Scope),
	}, nil
}

// verifyClaims checks issuer, audience, and time window in that order.
// A failing check rejects the token before any later check runs.
func (s *service) verifyClaims(claims *accessClaims) error {
	if claims.Issuer != s.issuer {
		return fmt.Errorf("%w: got %q", ErrIssuerMismatch, claims.Issuer)
	}

	if !audienceContains(claims.Audience, s.audience) {
		return ErrAudienceMismatch
	}

	now := time.Now()

	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}
	if now.After(claims.ExpiresAt.Time.Add(s.clockSkew)) {
		return ErrTokenExpired
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Time.Add(-s.clockSkew)) {
		return ErrTokenNotYetValid
	}

	return nil
}

func audienceContains(audience jwt.ClaimStrings, expected string) bool {
	for _, aud := range audience {
		if aud == expected {
			return true
		}
	}
	return false
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, keyset.ErrDiscoveryTimeout), errors.Is(err, keyset.ErrDiscoveryFailed):
		return fmt.Errorf("%w: %v", ErrKeyDiscoveryTimeout, err)
	case errors.Is(err, keyset.ErrKeyNotFound):
		return fmt.Errorf("%w: %v", ErrUnknownSigningKey, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
