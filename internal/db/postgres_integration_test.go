//go:build integration

package db

import (
	"context"
	"os"
	"testing"
)

func getTestStore(t *testing.T) Store {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	s, err := NewPostgresStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Each subtest starts from an empty table.
	if _, err := s.pool.Exec(context.Background(), "DELETE FROM contracts"); err != nil {
		t.Fatalf("Failed to clean contracts table: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIntegration_PostgresStore(t *testing.T) {
	runStoreTests(t, getTestStore)
}
