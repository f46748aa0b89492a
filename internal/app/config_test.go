package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
)

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/storefront")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("PORT", "9000")

	cfg := Config{
		Addr:    "0.0.0.0:8080",
		Storage: StorageConfig{Driver: " Memory "},
	}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://db/storefront", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
}

func TestApplyPlatformDefaultsKeepsExplicit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("PORT", "9000")

	cfg := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit"}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://explicit", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "postgres",
			cfg:  Config{DatabaseURL: "postgres://x", Storage: StorageConfig{Driver: DriverPostgres}, Session: SessionConfig{TTL: time.Hour}},
		},
		{
			name:    "postgres without url",
			cfg:     Config{Storage: StorageConfig{Driver: DriverPostgres}, Session: SessionConfig{TTL: time.Hour}},
			wantErr: "database URL is required",
		},
		{
			name: "memory without url",
			cfg:  Config{Storage: StorageConfig{Driver: DriverMemory}, Session: SessionConfig{TTL: time.Hour}},
		},
		{
			name:    "unknown driver",
			cfg:     Config{Storage: StorageConfig{Driver: "sqlite"}, Session: SessionConfig{TTL: time.Hour}},
			wantErr: "unknown storage driver",
		},
		{
			name:    "zero session ttl",
			cfg:     Config{Storage: StorageConfig{Driver: DriverMemory}},
			wantErr: "session TTL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewMemoryStore(t *testing.T) {
	cfg := &Config{
		APIKeyPepper: "pepper",
		Storage: StorageConfig{
			Driver:      DriverMemory,
			CustomerKey: "cust-key",
			StaffKey:    "staff-key",
		},
	}
	store, err := newMemoryStore(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	products, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, products)

	authn := auth.NewAuthenticator(store, []byte(cfg.APIKeyPepper))

	id, err := authn.Authenticate(ctx, "staff-key")
	require.NoError(t, err)
	assert.True(t, id.IsStaff())

	id, err = authn.Authenticate(ctx, "cust-key")
	require.NoError(t, err)
	assert.False(t, id.IsStaff())
	assert.Equal(t, "customer", id.UserID)

	_, err = authn.Authenticate(ctx, "nope")
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}
