package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/config"
	"github.com/tailorbook/tailorbook-api/models"
	"github.com/tailorbook/tailorbook-api/services"
)

// NewTestAuthService builds an auth service with a fixed test signing key and
// an in-process token blacklist
func NewTestAuthService(db *gorm.DB) *services.AuthService {
	cfg := &config.Config{
		GoEnv:         "test",
		JWTSecret:     "test-secret",
		JWTIssuer:     "tailorbook-test",
		JWTExpiration: time.Hour,
	}

	return services.NewAuthService(db, cfg, services.NewInMemoryTokenBlacklist())
}

// SignUpUser registers a shop user through the auth service and returns the
// created user along with a valid session token
func SignUpUser(t *testing.T, auth *services.AuthService, name, email, password string) (*models.User, string) {
	t.Helper()

	user, token, err := auth.SignUp(context.Background(), name, email, password)
	if err != nil {
		t.Fatalf("Failed to sign up test user %s: %v", email, err)
	}

	return user, token
}
