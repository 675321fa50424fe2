package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"realtime-hub/domain"
	"realtime-hub/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload issued by the account backend: {"sub": <user id>, "exp": ..., "iat": ...}.
// The subject is a number, so RegisteredClaims cannot be embedded.
type Claims struct {
	UserID    int64            `json:"sub"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return "", nil }
func (c Claims) GetSubject() (string, error)                  { return strconv.FormatInt(c.UserID, 10), nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// TokenValidator turns a bearer token into the identity bound to a connection.
type TokenValidator struct {
	secret []byte
	parser *jwt.Parser
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

// Validate checks signature and expiration. Every failure wraps errors.ErrInvalidToken.
func (v *TokenValidator) Validate(tokenString string) (domain.UserID, error) {
	if tokenString == "" {
		return domain.Nobody, fmt.Errorf("%w: missing token", errors.ErrInvalidToken)
	}
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Nobody, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID <= 0 {
		return domain.Nobody, fmt.Errorf("%w: invalid subject", errors.ErrInvalidToken)
	}
	return domain.UserID(claims.UserID), nil
}

// GenerateToken signs a token the same way the account backend does.
func (v *TokenValidator) GenerateToken(user domain.UserID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    int64(user),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to the
// token query parameter since browsers cannot set headers on a websocket upgrade.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
