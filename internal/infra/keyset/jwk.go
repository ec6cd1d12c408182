package keyset

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/http"

	httpclient "github.com/reshmi-chandran/tenant-auth-gateway/pkg/http"
)

// jwksDocument is the standard key-set exchange format served by the
// discovery endpoint. Only fields needed to rebuild RSA and EC public
// keys are decoded.
type jwksDocument struct {
	Keys []jwkEntry `json:"keys"`
}

type jwkEntry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	// RSA fields
	N string `json:"n"`
	E string `json:"e"`
	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// FetchKeySet retrieves the key set from the discovery endpoint and
// returns a kid -> public key mapping. Keys that cannot be parsed are
// skipped rather than failing the whole set.
func FetchKeySet(ctx context.Context, jwksURL string) (map[string]crypto.PublicKey, error) {
	var doc jwksDocument
	resp, err := httpclient.Get(ctx, jwksURL, httpclient.WithResult(&doc))
	if err != nil {
		return nil, fmt.Errorf("key discovery request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("key discovery endpoint returned status %d", resp.StatusCode())
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for _, entry := range doc.Keys {
		if entry.Kid == "" {
			continue
		}
		if entry.Use != "" && entry.Use != "sig" {
			continue
		}
		switch entry.Kty {
		case "RSA":
			key, err := parseRSAPublicKey(entry.N, entry.E)
			if err != nil {
				continue
			}
			keys[entry.Kid] = key
		case "EC":
			key, err := parseECPublicKey(entry.Crv, entry.X, entry.Y)
			if err != nil {
				continue
			}
			keys[entry.Kid] = key
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("key discovery endpoint returned no usable keys")
	}
	return keys, nil
}

func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode RSA exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("unsupported EC curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EC y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
