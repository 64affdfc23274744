// Package database implements a backend.Backend on top of a SQL table with
// one column per key element and a value column.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/kylerisse/metricstore/pkg/backend"
	"github.com/sirupsen/logrus"
)

// Kind is the registered name for this backend.
const Kind backend.Kind = "DatabaseStoreBackend"

const (
	valueColumn   = "value"
	versionColumn = "updated_at"
)

// ErrKeyLength is returned when a key does not have one element per key
// column.
var ErrKeyLength = errors.New("key length does not match key columns")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Credentials locate a networked database server.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// Options configure a database Backend.
type Options struct {
	TableName   string
	KeyColumns  []string
	Driver      string // sqlite (default), libsql or clickhouse
	URL         string
	AuthToken   string
	Credentials Credentials
	CreateTable bool
}

// Backend stores values in a single table. Concurrency is left to the
// database/sql connection pool.
type Backend struct {
	db      *sql.DB
	dialect dialect
	table   string
	columns []string
	logger  *logrus.Logger
}

// New validates opts, connects and, when opts.CreateTable is set, creates
// the table if it does not exist.
func New(ctx context.Context, opts Options, logger *logrus.Logger) (*Backend, error) {
	if logger == nil {
		logger = backend.DiscardLogger()
	}
	if err := validate(opts); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	db, d, err := open(opts)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	b := &Backend{
		db:      db,
		dialect: d,
		table:   opts.TableName,
		columns: append([]string(nil), opts.KeyColumns...),
		logger:  logger,
	}

	if opts.CreateTable {
		stmt := d.createTable(b.table, b.columns)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("database: failed to create table %s: %w", b.table, err)
		}
	}
	logger.Debugf("database: %s backend ready on table %s (%d key columns).", d.name(), b.table, len(b.columns))
	return b, nil
}

func validate(opts Options) error {
	if !identRe.MatchString(opts.TableName) {
		return fmt.Errorf("invalid table_name %q", opts.TableName)
	}
	if len(opts.KeyColumns) == 0 {
		return fmt.Errorf("key_columns must not be empty")
	}
	seen := make(map[string]bool, len(opts.KeyColumns))
	for _, c := range opts.KeyColumns {
		if !identRe.MatchString(c) {
			return fmt.Errorf("invalid key column %q", c)
		}
		if c == valueColumn || c == versionColumn {
			return fmt.Errorf("key column %q is reserved", c)
		}
		if seen[c] {
			return fmt.Errorf("duplicate key column %q", c)
		}
		seen[c] = true
	}
	return nil
}

// Factory creates a database Backend from a config map.
//
// Required keys: "table_name" (string), "key_columns" (list of strings).
// Optional keys: "driver", "url" (alias "dsn"), "auth_token",
// "credentials" (mapping with host, port, username, password, database),
// "create_table" (bool, default true).
func Factory(cfg backend.Config, logger *logrus.Logger) (backend.Backend, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return New(context.Background(), opts, logger)
}

func optionsFromConfig(cfg backend.Config) (Options, error) {
	opts := Options{CreateTable: true}
	var ok bool
	var err error

	if opts.TableName, ok, err = cfg.String("table_name"); err != nil {
		return opts, err
	} else if !ok {
		return opts, fmt.Errorf("config missing required key 'table_name'")
	}
	if opts.KeyColumns, ok, err = cfg.Strings("key_columns"); err != nil {
		return opts, err
	} else if !ok {
		return opts, fmt.Errorf("config missing required key 'key_columns'")
	}
	if opts.Driver, _, err = cfg.String("driver"); err != nil {
		return opts, err
	}
	if opts.URL, ok, err = cfg.String("url"); err != nil {
		return opts, err
	} else if !ok {
		if opts.URL, _, err = cfg.String("dsn"); err != nil {
			return opts, err
		}
	}
	if opts.AuthToken, _, err = cfg.String("auth_token"); err != nil {
		return opts, err
	}
	if create, ok, err := cfg.Bool("create_table"); err != nil {
		return opts, err
	} else if ok {
		opts.CreateTable = create
	}

	raw, ok, err := cfg.Map("credentials")
	if err != nil {
		return opts, err
	}
	if ok {
		creds := backend.Config(raw)
		fields := []struct {
			key string
			dst *string
		}{
			{"host", &opts.Credentials.Host},
			{"username", &opts.Credentials.Username},
			{"password", &opts.Credentials.Password},
			{"database", &opts.Credentials.Database},
		}
		for _, f := range fields {
			if *f.dst, _, err = creds.String(f.key); err != nil {
				return opts, fmt.Errorf("credentials: %w", err)
			}
		}
		if opts.Credentials.Port, _, err = creds.Int("port"); err != nil {
			return opts, fmt.Errorf("credentials: %w", err)
		}
	}
	return opts, nil
}

// Kind returns the backend kind name.
func (b *Backend) Kind() backend.Kind {
	return Kind
}

// Table returns the table name.
func (b *Backend) Table() string {
	return b.table
}

// KeyColumns returns a copy of the key column names.
func (b *Backend) KeyColumns() []string {
	return append([]string(nil), b.columns...)
}

func (b *Backend) args(key backend.Key) ([]any, error) {
	if len(key) != len(b.columns) {
		return nil, fmt.Errorf("database: %w: got %d elements for %d columns", ErrKeyLength, len(key), len(b.columns))
	}
	args := make([]any, len(key))
	for i, k := range key {
		args[i] = k
	}
	return args, nil
}

func (b *Backend) Get(ctx context.Context, key backend.Key) (string, bool, error) {
	args, err := b.args(key)
	if err != nil {
		return "", false, err
	}
	var value sql.NullString
	err = b.db.QueryRowContext(ctx, selectValue(b.dialect, b.table, b.columns), args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("database: failed to read %s: %w", key, err)
	}
	return value.String, true, nil
}

func (b *Backend) Set(ctx context.Context, key backend.Key, value string) error {
	args, err := b.args(key)
	if err != nil {
		return err
	}
	args = append(args, value)
	if _, err := b.db.ExecContext(ctx, b.dialect.upsert(b.table, b.columns), args...); err != nil {
		return fmt.Errorf("database: failed to write %s: %w", key, err)
	}
	b.logger.Debugf("database: wrote %s to %s (%d bytes).", key, b.table, len(value))
	return nil
}

func (b *Backend) Has(ctx context.Context, key backend.Key) (bool, error) {
	args, err := b.args(key)
	if err != nil {
		return false, err
	}
	var one int
	err = b.db.QueryRowContext(ctx, selectExists(b.dialect, b.table, b.columns), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("database: failed to check %s: %w", key, err)
	}
	return true, nil
}

func (b *Backend) Remove(ctx context.Context, key backend.Key) error {
	args, err := b.args(key)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, b.dialect.remove(b.table, b.columns), args...); err != nil {
		return fmt.Errorf("database: failed to remove %s: %w", key, err)
	}
	b.logger.Debugf("database: removed %s from %s.", key, b.table)
	return nil
}

// ListKeys returns keys whose leading elements equal prefix, ordered by
// the key columns. A prefix longer than the key columns matches nothing.
func (b *Backend) ListKeys(ctx context.Context, prefix backend.Key) ([]backend.Key, error) {
	if len(prefix) > len(b.columns) {
		return nil, nil
	}
	args := make([]any, len(prefix))
	for i, p := range prefix {
		args[i] = p
	}

	rows, err := b.db.QueryContext(ctx, selectKeys(b.dialect, b.table, b.columns, len(prefix)), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list keys in %s: %w", b.table, err)
	}
	defer rows.Close()

	var keys []backend.Key
	for rows.Next() {
		key := make(backend.Key, len(b.columns))
		dest := make([]any, len(key))
		for i := range key {
			dest[i] = &key[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("database: failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to list keys in %s: %w", b.table, err)
	}
	return keys, nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	return b.db.Close()
}
