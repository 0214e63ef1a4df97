package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the identity schema
// applied. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE tenants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'customer'
				CHECK (role IN ('admin', 'manager', 'customer')),
			tenant_id INTEGER,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE SET NULL
		) STRICT;

		CREATE UNIQUE INDEX idx_users_email ON users(email);

		CREATE TABLE refresh_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// testKeys returns key material backed by a process-wide test RSA key.
// Generating a 2048-bit key per test would dominate the suite's runtime.
func testKeys(t *testing.T) *Keys {
	t.Helper()

	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("generating test RSA key: " + err.Error())
		}
		testKey = key
	})

	return NewKeys(testKey)
}

// testCodec builds a codec with test keys and production-shaped lifetimes.
func testCodec(t *testing.T) *Codec {
	t.Helper()

	return NewCodec(CodecConfig{
		Keys:            testKeys(t),
		RefreshSecret:   []byte("test-refresh-secret-at-least-32-chars"),
		Issuer:          "identity-core-test",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 365 * 24 * time.Hour,
	})
}

// createTestUser inserts a user directly and returns it.
func createTestUser(t *testing.T, repo UserRepository, email string, role Role) *User {
	t.Helper()

	hash, err := HashPassword("password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}
