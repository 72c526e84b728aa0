package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-nest/backend/internal/config"
	"time-nest/backend/internal/models"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/services"
)

func newTestApp(t *testing.T, store *repositories.Store) *app {
	t.Helper()
	return &app{
		loadConfig: func() (*config.Config, error) {
			cfg := config.Default()
			cfg.Database.Driver = "memory"
			cfg.Auth.JWTSecret = "cli-test-secret"
			return cfg, nil
		},
		openStore: func(context.Context, config.DatabaseConfig) (*repositories.Store, error) {
			return store, nil
		},
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	store := repositories.NewMemoryStore()
	now := time.Now().UTC()
	user := &models.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		AuthProvider: models.AuthProviderGoogle,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Users.Create(context.Background(), user))

	out, err := execute(t, newTestApp(t, store), "token", "--email", "alice@example.com")
	require.NoError(t, err)

	claims, err := services.NewJWTService("cli-test-secret", time.Hour).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
}

func TestTokenCommand_Errors(t *testing.T) {
	store := repositories.NewMemoryStore()

	_, err := execute(t, newTestApp(t, store), "token")
	assert.ErrorContains(t, err, "email")

	_, err = execute(t, newTestApp(t, store), "token", "--email", "nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestMigrateCommand(t *testing.T) {
	out, err := execute(t, newTestApp(t, repositories.NewMemoryStore()), "migrate")

	require.NoError(t, err)
	assert.Equal(t, "migrated memory store\n", out)
}

func TestConfigErrorStopsCommand(t *testing.T) {
	a := newTestApp(t, repositories.NewMemoryStore())
	a.loadConfig = func() (*config.Config, error) {
		return nil, errors.New("configuration validation failed")
	}

	_, err := execute(t, a, "migrate")
	assert.ErrorContains(t, err, "configuration validation failed")
}
