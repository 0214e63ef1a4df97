package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestSeedAdmin(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	password, err := SeedAdmin(ctx, repo, logger)
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password == "" {
		t.Fatal("SeedAdmin() should return the generated password on first boot")
	}

	admin, err := repo.GetByEmail(ctx, "admin@localhost")
	if err != nil {
		t.Fatalf("GetByEmail(admin) error = %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Errorf("seeded role = %q, want %q", admin.Role, RoleAdmin)
	}

	ok, err := VerifyPassword(password, admin.PasswordHash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("generated password should verify against the stored hash")
	}
}

func TestSeedAdmin_SkipsWhenUsersExist(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	createTestUser(t, repo, "raj@gmail.com", RoleCustomer)

	password, err := SeedAdmin(ctx, repo, logger)
	if err != nil {
		t.Fatalf("SeedAdmin() error = %v", err)
	}
	if password != "" {
		t.Error("SeedAdmin() should not seed when users already exist")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 (no admin added)", count)
	}
}
