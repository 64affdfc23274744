package database

import (
	"fmt"
	"strings"
)

// dialect renders the statements a Backend needs for one SQL engine.
// Every dialect binds arguments with "?".
type dialect interface {
	name() string
	quote(ident string) string
	createTable(table string, columns []string) string
	upsert(table string, columns []string) string
	// from returns the FROM clause target for reads.
	from(table string) string
	remove(table string, columns []string) string
}

// sqliteDialect covers sqlite and libsql, which share SQL syntax.
type sqliteDialect struct {
	driver string
}

func (d sqliteDialect) name() string { return d.driver }

func (sqliteDialect) quote(ident string) string {
	return `"` + ident + `"`
}

func (d sqliteDialect) createTable(table string, columns []string) string {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		defs = append(defs, d.quote(c)+" TEXT NOT NULL")
	}
	defs = append(defs, d.quote(valueColumn)+" TEXT")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (%s))",
		d.quote(table), strings.Join(defs, ", "), quoteAll(d, columns))
}

func (d sqliteDialect) upsert(table string, columns []string) string {
	all := append(append([]string(nil), columns...), valueColumn)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s",
		d.quote(table), quoteAll(d, all), placeholders(len(all)),
		quoteAll(d, columns), d.quote(valueColumn), d.quote(valueColumn))
}

func (d sqliteDialect) from(table string) string {
	return d.quote(table)
}

func (d sqliteDialect) remove(table string, columns []string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", d.quote(table), conditions(d, columns))
}

// clickhouseDialect stores rows in a ReplacingMergeTree ordered by the key
// columns. Overwrites are plain inserts; reads use FINAL so only the row
// with the newest version survives.
type clickhouseDialect struct{}

func (clickhouseDialect) name() string { return "clickhouse" }

func (clickhouseDialect) quote(ident string) string {
	return "`" + ident + "`"
}

func (d clickhouseDialect) createTable(table string, columns []string) string {
	defs := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		defs = append(defs, d.quote(c)+" String")
	}
	defs = append(defs,
		d.quote(valueColumn)+" String",
		d.quote(versionColumn)+" DateTime64(6) DEFAULT now64(6)",
	)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = ReplacingMergeTree(%s) ORDER BY (%s)",
		d.quote(table), strings.Join(defs, ", "), d.quote(versionColumn), quoteAll(d, columns))
}

func (d clickhouseDialect) upsert(table string, columns []string) string {
	all := append(append([]string(nil), columns...), valueColumn)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(table), quoteAll(d, all), placeholders(len(all)))
}

func (d clickhouseDialect) from(table string) string {
	return d.quote(table) + " FINAL"
}

func (d clickhouseDialect) remove(table string, columns []string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", d.quote(table), conditions(d, columns))
}

func quoteAll(d dialect, idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = d.quote(id)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func conditions(d dialect, columns []string) string {
	conds := make([]string, len(columns))
	for i, c := range columns {
		conds[i] = d.quote(c) + " = ?"
	}
	return strings.Join(conds, " AND ")
}

func selectValue(d dialect, table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		d.quote(valueColumn), d.from(table), conditions(d, columns))
}

func selectExists(d dialect, table string, columns []string) string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1",
		d.from(table), conditions(d, columns))
}

// selectKeys lists key columns, filtered on the first len(prefix) columns.
func selectKeys(d dialect, table string, columns []string, prefixLen int) string {
	q := fmt.Sprintf("SELECT %s FROM %s", quoteAll(d, columns), d.from(table))
	if prefixLen > 0 {
		q += " WHERE " + conditions(d, columns[:prefixLen])
	}
	return q + " ORDER BY " + quoteAll(d, columns)
}
