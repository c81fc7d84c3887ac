package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/almoxarifado/almox-backend/pkg/config"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

// Roles carried in institutional tokens.
const (
	RoleAdmin     = 1
	RoleManager   = 2
	RoleRequester = 3
)

// Claims represents the JWT claims issued by the institutional auth system.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Role   int    `json:"role"`
}

// Manager verifies tokens issued elsewhere. This service never signs tokens.
type Manager struct {
	config *config.JWTConfig
}

// NewManager creates a new JWT manager
func NewManager(cfg *config.JWTConfig) *Manager {
	return &Manager{config: cfg}
}

// ValidateToken validates an access token and returns the claims
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.TokenInvalid()
		}
		return []byte(m.config.Secret), nil
	})

	if err != nil {
		if err.Error() == "token has invalid claims: token is expired" {
			return nil, errors.TokenExpired()
		}
		return nil, errors.TokenInvalid()
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.TokenInvalid()
	}

	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, errors.TokenInvalid()
	}

	return claims, nil
}
