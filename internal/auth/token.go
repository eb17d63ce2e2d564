package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TokenManager verifies JWTs issued by the external auth system. This
// service never mints session tokens; it only needs the verified subject and
// role out of the bearer token.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a new manager around the shared signing secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Claims describes the JWT payload this service understands.
type Claims struct {
	SubjectID string           `json:"sub"`
	Role      domain.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// ParseToken validates the signature and returns the claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != domain.RoleUser && claims.Role != domain.RoleAdmin {
		return nil, errors.New("unsupported role claim")
	}
	return claims, nil
}
