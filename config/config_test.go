package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "templates", cfg.TemplatesDir)
	assert.Equal(t, "Коммерческое предложение", cfg.Offer.Title)
	assert.False(t, cfg.ArchiveEnabled())
	assert.Equal(t, "UTC", cfg.DocumentLocation.String())
}

func TestLoad_RequiresRedis(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")

	t.Run("duration", func(t *testing.T) {
		t.Setenv("SESSION_TTL", "forever")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_TTL")
	})

	t.Run("bool", func(t *testing.T) {
		t.Setenv("PDF_RESOLVE_LOCAL_FILES", "maybe")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "secret", DBName: "offers", DBSSLMode: "disable"}
	dsn, err := cfg.DatabaseDSN()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=offers sslmode=disable", dsn)

	cfg.DatabaseURL = "postgres://app@db/offers"
	dsn, err = cfg.DatabaseDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://app@db/offers", dsn)

	_, err = (&Config{}).DatabaseDSN()
	require.Error(t, err)
}

func TestMigrationURL(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "app", DBPassword: "s3cret", DBName: "offers", DBSSLMode: "disable"}
	u, err := cfg.MigrationURL()
	require.NoError(t, err)
	assert.Equal(t, "pgx5://app:s3cret@db:5432/offers?sslmode=disable", u)

	cfg.DatabaseURL = "postgresql://app@db/offers?sslmode=require"
	u, err = cfg.MigrationURL()
	require.NoError(t, err)
	assert.Equal(t, "pgx5://app@db/offers?sslmode=require", u)

	cfg.DatabaseURL = "host=db user=app"
	_, err = cfg.MigrationURL()
	require.Error(t, err)
}
