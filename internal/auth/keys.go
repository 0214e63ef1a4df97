package auth

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Keys holds the asymmetric key material for access token signing.
//
// The private key is loaded once at process start; a missing or unparsable
// key file is a fatal startup error, never a per-request one. Keys is
// immutable after construction and passed explicitly into the Codec,
// never held as ambient global state, so tests can substitute their own
// key pairs without touching the process environment.
type Keys struct {
	private *rsa.PrivateKey
	keyID   string
}

// LoadKeys reads a PEM-encoded RSA private key from the given path.
func LoadKeys(path string) (*Keys, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	return NewKeys(key), nil
}

// NewKeys wraps an already-parsed private key. Used by tests and by
// deployments that source key material from somewhere other than a file.
func NewKeys(key *rsa.PrivateKey) *Keys {
	return &Keys{
		private: key,
		keyID:   deriveKeyID(&key.PublicKey),
	}
}

// Private returns the signing key.
func (k *Keys) Private() *rsa.PrivateKey {
	return k.private
}

// Public returns the verification key.
func (k *Keys) Public() *rsa.PublicKey {
	return &k.private.PublicKey
}

// KeyID returns the stable identifier stamped into the kid header of every
// access token, letting verifiers select the right key from the JWKS
// document across key rotations.
func (k *Keys) KeyID() string {
	return k.keyID
}

// JWK is a single JSON Web Key in the published key set.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the JSON Web Key Set served to access token verifiers.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS renders the public half of the key pair as a key set document.
// Downstream services fetch this once and verify access tokens locally.
func (k *Keys) JWKS() JWKS {
	pub := k.Public()

	// Exponent as big-endian bytes with leading zeros stripped
	eBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(eBytes, uint64(pub.E)) //nolint:gosec // RSA exponents are small positive integers
	i := 0
	for i < len(eBytes)-1 && eBytes[i] == 0 {
		i++
	}

	return JWKS{
		Keys: []JWK{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: k.keyID,
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(eBytes[i:]),
		}},
	}
}

// deriveKeyID computes a stable key identifier from the public modulus.
// The same key pair always yields the same kid, so verifiers can cache
// the key set.
func deriveKeyID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
