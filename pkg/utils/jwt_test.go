package utils

import (
	"testing"
	"time"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func configureJWTForTest(t *testing.T, secret string, expirationHours int) {
	t.Helper()

	originalSecret := append([]byte(nil), jwtSecret...)
	originalExpiration := jwtExpirationHours
	t.Cleanup(func() {
		jwtSecret = originalSecret
		jwtExpirationHours = originalExpiration
	})

	ConfigureJWT(secret, expirationHours)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Run("round trips user claims", func(t *testing.T) {
		configureJWTForTest(t, "roundtrip-secret", 1)

		user := &models.User{
			BaseModel: models.BaseModel{ID: uuid.New()},
			Email:     "analyst@example.com",
			Role:      models.UserRoleAdmin,
		}

		token, err := GenerateToken(user)
		if err != nil {
			t.Fatalf("expected token generation to succeed, got error: %v", err)
		}

		claims, err := ValidateToken(token)
		if err != nil {
			t.Fatalf("expected token validation to succeed, got error: %v", err)
		}
		if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != user.Role {
			t.Fatalf("claims do not match user: %+v", claims)
		}
		if claims.Subject != user.ID.String() {
			t.Fatalf("expected subject %q, got %q", user.ID.String(), claims.Subject)
		}
	})

	t.Run("rejects expired token", func(t *testing.T) {
		configureJWTForTest(t, "expired-secret", 1)

		expired := Claims{
			UserID: uuid.New(),
			Role:   models.UserRoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString(jwtSecret)
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected expired token to be rejected")
		}
	})

	t.Run("rejects token signed with another secret", func(t *testing.T) {
		configureJWTForTest(t, "first-secret", 1)
		token, err := GenerateToken(&models.User{BaseModel: models.BaseModel{ID: uuid.New()}})
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		ConfigureJWT("second-secret", 1)
		if _, err := ValidateToken(token); err == nil {
			t.Fatal("expected token signed with a different secret to be rejected")
		}
	})

	t.Run("rejects malformed token string", func(t *testing.T) {
		if _, err := ValidateToken("not-a-jwt"); err == nil {
			t.Fatal("expected malformed token to be rejected")
		}
	})
}
