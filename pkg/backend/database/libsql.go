//go:build cgo

package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

func init() {
	openers[DriverLibSQL] = openLibSQL
}

// openLibSQL connects to a local libsql file or a remote Turso database.
// Remote connections carry the auth token as a query parameter.
func openLibSQL(opts Options) (*sql.DB, dialect, error) {
	if opts.URL == "" {
		return nil, nil, fmt.Errorf("libsql requires 'url'")
	}
	connStr := opts.URL
	if opts.AuthToken != "" {
		connStr += "?authToken=" + opts.AuthToken
	}
	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("open libsql: %w", err)
	}

	// Remote streams are closed aggressively when idle.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping libsql: %w", err)
	}
	return db, sqliteDialect{driver: DriverLibSQL}, nil
}
