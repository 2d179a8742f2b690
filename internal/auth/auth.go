// Package auth gates schedule administration behind an HS256 bearer token
// whose role claim is "admin".
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// ErrForbidden means the token is valid but does not carry the admin role.
var ErrForbidden = errors.New("admin role required")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Gate struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewGate(cfg config.AuthConfig) *Gate {
	return &Gate{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// IssueToken signs a token for subject with the given role.
func (g *Gate) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	now := g.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// Authorize validates a bearer header value or a raw token and requires the
// admin role. Bad or expired tokens yield domain.ErrUnauthorized; a valid
// token without the role yields ErrForbidden.
func (g *Gate) Authorize(header string) (*Claims, error) {
	raw := strings.TrimSpace(header)
	if scheme, token, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "Bearer") {
		raw = strings.TrimSpace(token)
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
		jwt.WithExpirationRequired(),
	}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return g.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	if claims.Role != RoleAdmin {
		return claims, ErrForbidden
	}
	return claims, nil
}
