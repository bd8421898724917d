// Package share issues and verifies read-only links to a project's dashboards.
package share

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErr "github.com/metricboard/engine/pkg/errors"
)

// ScopeRead is the only scope a share token carries.
const ScopeRead = "read"

const issuer = "metricboard"

// Claims are the JWT claims of a share token. Subject is the project id.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Issuer signs share tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an issuer whose tokens expire after ttl.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// Token is a signed share link credential.
type Token struct {
	Token     string    `json:"token"`
	ProjectID string    `json:"project_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issue signs a read-only token for projectID.
func (i *Issuer) Issue(projectID string) (Token, error) {
	if len(i.secret) == 0 {
		return Token{}, appErr.New(appErr.CodeInternal, "share secret is not configured")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		Scope: ScopeRead,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   projectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, appErr.Wrap(err, appErr.CodeInternal, "sign share token")
	}
	return Token{Token: signed, ProjectID: projectID, ExpiresAt: jwt.NewNumericDate(exp).Time}, nil
}

// Parse verifies a token and returns the project id it grants read access to.
func (i *Issuer) Parse(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		msg := "invalid share token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "share token expired"
		}
		return "", appErr.Wrap(err, appErr.CodeUnauthorized, msg)
	}
	if claims.Scope != ScopeRead || claims.Subject == "" {
		return "", appErr.New(appErr.CodeUnauthorized, "share token has no read scope")
	}
	return claims.Subject, nil
}
