package api

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stonegate-io/identity-core/internal/auth"
	"github.com/stonegate-io/identity-core/internal/infrastructure/config"
	"github.com/stonegate-io/identity-core/internal/infrastructure/logging"
	"github.com/stonegate-io/identity-core/internal/tenant"
)

// setupTestDB creates a temporary SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
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

func testKeys(t *testing.T) *auth.Keys {
	t.Helper()

	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic("generating test RSA key: " + err.Error())
		}
		testKey = key
	})

	return auth.NewKeys(testKey)
}

// testServer builds a fully wired server over a fresh database.
func testServer(t *testing.T) (*Server, *sql.DB) {
	t.Helper()

	db := setupTestDB(t)
	users := auth.NewUserRepository(db)
	sessions := auth.NewSessionRepository(db)
	tenants := tenant.NewSQLiteRepository(db)

	codec := auth.NewCodec(auth.CodecConfig{
		Keys:            testKeys(t),
		RefreshSecret:   []byte("test-refresh-secret-at-least-32-chars"),
		Issuer:          "identity-core-test",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 365 * 24 * time.Hour,
	})

	srv, err := New(Deps{
		Config: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			CookieDomain: "localhost",
		},
		Logger:   logging.Default(),
		Sessions: auth.NewManager(codec, sessions, users),
		Users:    users,
		Tenants:  tenants,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return srv, db
}

// createUser inserts a user with the given role and returns it.
// The password is always "cityslicka".
func createUser(t *testing.T, srv *Server, email string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword("cityslicka")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &auth.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := srv.users.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// issueTokens issues a session for the user and returns the token pair.
func issueTokens(t *testing.T, srv *Server, user *auth.User) *auth.TokenPair {
	t.Helper()

	pair, err := srv.sessions.IssueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issuing session: %v", err)
	}
	return pair
}

// cookieValue extracts a named Set-Cookie value from a recorded response.
// Returns the cookie and whether it was present.
func cookieValue(t *testing.T, w *httptest.ResponseRecorder, name string) (*http.Cookie, bool) {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
