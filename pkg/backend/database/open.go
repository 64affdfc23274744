package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite     = "sqlite"
	DriverLibSQL     = "libsql"
	DriverClickHouse = "clickhouse"
)

// opener connects to one SQL engine and returns the dialect for it.
type opener func(opts Options) (*sql.DB, dialect, error)

// openers is filled at init time; the libsql opener only exists in cgo
// builds.
var openers = map[string]opener{
	DriverSQLite:     openSQLite,
	DriverClickHouse: openClickHouse,
}

// Drivers returns the SQL drivers compiled into this binary, sorted.
func Drivers() []string {
	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func open(opts Options) (*sql.DB, dialect, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	fn, ok := openers[driver]
	if !ok {
		return nil, nil, fmt.Errorf("driver %q is not available (compiled drivers: %s)",
			driver, strings.Join(Drivers(), ", "))
	}
	return fn(opts)
}

func openSQLite(opts Options) (*sql.DB, dialect, error) {
	url := opts.URL
	if url == "" {
		url = ":memory:"
	}
	db, err := sql.Open("sqlite", url)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite %s: %w", url, err)
	}
	// A single connection keeps ":memory:" databases shared and avoids
	// SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)

	if url != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("pragma: %w", err)
		}
	}
	return db, sqliteDialect{driver: DriverSQLite}, nil
}

func openClickHouse(opts Options) (*sql.DB, dialect, error) {
	var options *clickhouse.Options
	if opts.URL != "" {
		parsed, err := clickhouse.ParseDSN(opts.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse clickhouse dsn: %w", err)
		}
		options = parsed
	} else {
		creds := opts.Credentials
		host := creds.Host
		if host == "" {
			host = "localhost"
		}
		port := creds.Port
		if port == 0 {
			port = 9000
		}
		database := creds.Database
		if database == "" {
			database = "default"
		}
		options = &clickhouse.Options{
			Addr: []string{fmt.Sprintf("%s:%d", host, port)},
			Auth: clickhouse.Auth{
				Database: database,
				Username: creds.Username,
				Password: creds.Password,
			},
			Settings: clickhouse.Settings{
				"max_execution_time": 60,
			},
			DialTimeout:     30 * time.Second,
			ConnMaxLifetime: 10 * time.Minute,
			Compression: &clickhouse.Compression{
				Method: clickhouse.CompressionLZ4,
			},
		}
	}

	db := clickhouse.OpenDB(options)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return db, clickhouseDialect{}, nil
}
