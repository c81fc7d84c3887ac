package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/almoxarifado/almox-backend/pkg/config"
	"github.com/almoxarifado/almox-backend/pkg/errors"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func testClaims(expiry time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "almoxarifado",
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: 42,
		Name:   "Maria Silva",
		Role:   RoleManager,
	}
}

func TestManager_ValidateToken(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "test-secret", Issuer: "almoxarifado"}
	manager := NewManager(cfg)

	token := signToken(t, cfg.Secret, testClaims(time.Now().Add(time.Hour)))

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("UserID = %v, want 42", claims.UserID)
	}
	if claims.Role != RoleManager {
		t.Errorf("Role = %v, want %v", claims.Role, RoleManager)
	}
	if claims.Name != "Maria Silva" {
		t.Errorf("Name = %q, want %q", claims.Name, "Maria Silva")
	}
}

func TestManager_ValidateToken_Expired(t *testing.T) {
	cfg := &config.JWTConfig{Secret: "test-secret", Issuer: "almoxarifado"}
	manager := NewManager(cfg)

	token := signToken(t, cfg.Secret, testClaims(time.Now().Add(-time.Hour)))

	_, err := manager.ValidateToken(token)
	if !errors.Is(err, errors.ErrTokenExpired) {
		t.Errorf("expected token expired error, got %v", err)
	}
}

func TestManager_ValidateToken_WrongSecret(t *testing.T) {
	manager := NewManager(&config.JWTConfig{Secret: "right-secret", Issuer: "almoxarifado"})

	token := signToken(t, "wrong-secret", testClaims(time.Now().Add(time.Hour)))

	_, err := manager.ValidateToken(token)
	if !errors.Is(err, errors.ErrTokenInvalid) {
		t.Errorf("expected invalid token error, got %v", err)
	}
}

func TestManager_ValidateToken_WrongIssuer(t *testing.T) {
	manager := NewManager(&config.JWTConfig{Secret: "test-secret", Issuer: "almoxarifado"})

	claims := testClaims(time.Now().Add(time.Hour))
	claims.Issuer = "someone-else"
	token := signToken(t, "test-secret", claims)

	_, err := manager.ValidateToken(token)
	if !errors.Is(err, errors.ErrTokenInvalid) {
		t.Errorf("expected invalid token error, got %v", err)
	}
}
