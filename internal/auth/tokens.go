package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims extends JWT registered claims with Identity Core-specific fields.
//
// Access tokens carry sub (user id) and role. Refresh tokens additionally
// carry the id of their backing refresh session row in SessionID.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	SessionID string `json:"id,omitempty"`
}

// ParsedSessionID returns the SessionID claim as its integer row id.
// Fails with ErrInvalidToken when the claim is absent or malformed.
func (c *Claims) ParsedSessionID() (int64, error) {
	return parseClaimID(c.SessionID)
}

// CodecConfig is the immutable configuration for a Codec.
type CodecConfig struct {
	// Keys signs and verifies access tokens (RS256).
	Keys *Keys

	// RefreshSecret signs and verifies refresh tokens (HS256). Refresh
	// tokens are only ever verified by this service, so the cheaper
	// symmetric scheme is sufficient on that low-frequency path.
	RefreshSecret []byte

	// Issuer is stamped as the iss claim on every token.
	Issuer string

	// AccessTokenTTL is the access token validity window (1 hour in the
	// standard deployment).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh token validity window (1 year),
	// matching the lifetime of the backing session row.
	RefreshTokenTTL time.Duration
}

// Codec produces and verifies signed bearer tokens. It has no knowledge of
// storage; binding tokens to persisted sessions is the Manager's job.
type Codec struct {
	cfg CodecConfig
}

// NewCodec creates a token codec from explicit, immutable configuration.
func NewCodec(cfg CodecConfig) *Codec {
	return &Codec{cfg: cfg}
}

// RefreshTokenLifetime exposes the refresh TTL so the session manager can
// stamp matching expiry on session rows.
func (c *Codec) RefreshTokenLifetime() time.Duration {
	return c.cfg.RefreshTokenTTL
}

// AccessTokenLifetime exposes the access TTL for cookie Max-Age plumbing.
func (c *Codec) AccessTokenLifetime() time.Duration {
	return c.cfg.AccessTokenTTL
}

// JWKS exposes the signing key set for publication at the transport layer.
func (c *Codec) JWKS() JWKS {
	return c.cfg.Keys.JWKS()
}

// IssueAccessToken signs a short-lived RS256 access token for the user.
// The kid header identifies the signing key in the published JWKS so
// verifiers survive key rotation without redeploying.
func (c *Codec) IssueAccessToken(user *User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTokenTTL)),
			ID:        uuid.NewString(),
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.cfg.Keys.KeyID()

	signed, err := token.SignedString(c.cfg.Keys.Private())
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a long-lived HS256 refresh token bound to the
// given session row.
func (c *Codec) IssueRefreshToken(user *User, sessionID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.RefreshTokenTTL)),
			ID:        uuid.NewString(),
		},
		Role:      user.Role,
		SessionID: strconv.FormatInt(sessionID, 10),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks an access token's signature and expiry against
// the public key and returns its claims. Signature mismatch, malformed
// structure, and past expiry all surface ErrInvalidToken.
func (c *Codec) VerifyAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return c.cfg.Keys.Public(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithIssuer(c.cfg.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return c.validatedClaims(token)
}

// VerifyRefreshToken checks a refresh token's signature and expiry against
// the shared secret and returns its claims. Whether the embedded session
// row still exists is checked separately by the Manager on the refresh path.
func (c *Codec) VerifyRefreshToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return c.cfg.RefreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(c.cfg.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, err := c.validatedClaims(token)
	if err != nil {
		return nil, err
	}

	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}

	return claims, nil
}

// validatedClaims extracts typed claims and enforces the fields every
// Identity Core token must carry.
func (c *Codec) validatedClaims(token *jwt.Token) (*Claims, error) {
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	if !IsValidRole(claims.Role) {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidToken, ErrUnknownRole, claims.Role)
	}

	return claims, nil
}
