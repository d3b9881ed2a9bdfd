package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/xxxsen/mfeed/internal/config"
	"github.com/xxxsen/mfeed/internal/db"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// OpenTestDB connects to the postgres named by TEST_DB_HOST and applies
// migrations. The test is skipped when the variable is unset.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     envOr("TEST_DB_USER", "mfeed"),
		Password: envOr("TEST_DB_PASSWORD", "mfeed_pass"),
		DBName:   envOr("TEST_DB_NAME", "mfeed_test"),
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}

// RedisAddr returns TEST_REDIS_ADDR or skips the test.
func RedisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis test")
	}
	return addr
}
