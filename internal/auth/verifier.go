// Package auth verifies bearer credentials issued by the external identity
// authority. Tokens are never minted here.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"moviesvc/internal/config"
	"moviesvc/internal/types"
)

// ErrInvalidToken is returned for every verification failure. The concrete
// reason is wrapped for logging and must not be shown to clients.
var ErrInvalidToken = errors.New("invalid token")

var allowedMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// tokenClaims is the payload issued by the authority: the standard registered
// claims plus userId and role.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID identity `json:"userId"`
	Role   string   `json:"role"`
}

// identity accepts either a JSON string or a JSON number and keeps the
// number's literal decimal text.
type identity string

func (i *identity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = identity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("userId must be a string or number: %w", err)
	}
	*i = identity(n.String())
	return nil
}

// Verifier checks HMAC-signed JWTs against a shared secret and issuer.
// It performs no I/O and is safe for concurrent use.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source used for exp/nbf/iat checks.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier builds a Verifier from the auth configuration.
func NewVerifier(cfg config.AuthConfig, opts ...Option) *Verifier {
	v := &Verifier{
		secret: []byte(cfg.Secret.Unmask()),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates the token's signature, issuer and expiry and returns the
// identity and tier it carries. A missing role means TierBasic; so does a
// role the service does not recognize.
func (v *Verifier) Verify(token string) (types.Claims, error) {
	claims := &tokenClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods(allowedMethods),
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return types.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return types.Claims{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		return types.Claims{}, fmt.Errorf("%w: userId claim missing", ErrInvalidToken)
	}

	tier, ok := types.ParseTier(claims.Role)
	if !ok {
		tier = types.TierBasic
	}

	return types.Claims{Identity: string(claims.UserID), Tier: tier}, nil
}
