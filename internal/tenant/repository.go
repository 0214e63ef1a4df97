package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested tenant does not exist.
var ErrNotFound = errors.New("tenant not found")

// Tenant represents an organization that groups user accounts.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines the interface for tenant persistence.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed tenant repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const tenantColumns = "id, name, address, created_at, updated_at"

// Create inserts a new tenant and fills in the generated id.
func (r *SQLiteRepository) Create(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO tenants (name, address, created_at, updated_at) VALUES (?, ?, ?, ?)",
		t.Name, t.Address, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading new tenant id: %w", err)
	}
	t.ID = id
	t.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	t.UpdatedAt = t.CreatedAt

	return nil
}

// GetByID retrieves a tenant by its unique id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id = ?", id)

	t, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting tenant: %w", err)
	}
	return t, nil
}

// List returns all tenants ordered by creation date.
func (r *SQLiteRepository) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}

	if tenants == nil {
		tenants = []Tenant{}
	}
	return tenants, nil
}

// Update modifies a tenant's name and address.
func (r *SQLiteRepository) Update(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?",
		t.Name, t.Address, now, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating tenant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	t.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	return nil
}

// Delete removes a tenant. Users referencing it are detached by the
// schema's ON DELETE SET NULL, never deleted.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(s rowScanner) (*Tenant, error) {
	var t Tenant
	var createdAt, updatedAt string

	if err := s.Scan(&t.ID, &t.Name, &t.Address, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}
