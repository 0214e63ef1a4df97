// Package database provides SQLite connectivity for the identity store.
//
// The store holds three tables: tenants, users, and refresh_sessions.
// The package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Foreign key enforcement (session cascade, tenant detachment)
//   - Embedded schema migrations applied in per-step transactions
//
// The database file is chmodded to 0600; it contains password hashes
// and the session rows that back refresh tokens.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database
