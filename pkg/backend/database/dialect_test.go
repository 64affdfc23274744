package database

import "testing"

func TestSQLiteStatements(t *testing.T) {
	d := sqliteDialect{driver: DriverSQLite}
	cols := []string{"a", "b"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"create", d.createTable("t", cols),
			`CREATE TABLE IF NOT EXISTS "t" ("a" TEXT NOT NULL, "b" TEXT NOT NULL, "value" TEXT, PRIMARY KEY ("a", "b"))`},
		{"upsert", d.upsert("t", cols),
			`INSERT INTO "t" ("a", "b", "value") VALUES (?, ?, ?) ON CONFLICT ("a", "b") DO UPDATE SET "value" = excluded."value"`},
		{"select", selectValue(d, "t", cols),
			`SELECT "value" FROM "t" WHERE "a" = ? AND "b" = ?`},
		{"exists", selectExists(d, "t", cols),
			`SELECT 1 FROM "t" WHERE "a" = ? AND "b" = ? LIMIT 1`},
		{"remove", d.remove("t", cols),
			`DELETE FROM "t" WHERE "a" = ? AND "b" = ?`},
		{"keys", selectKeys(d, "t", cols, 0),
			`SELECT "a", "b" FROM "t" ORDER BY "a", "b"`},
		{"keys with prefix", selectKeys(d, "t", cols, 1),
			`SELECT "a", "b" FROM "t" WHERE "a" = ? ORDER BY "a", "b"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("\n got: %s\nwant: %s", tt.got, tt.want)
			}
		})
	}
}

func TestClickHouseStatements(t *testing.T) {
	d := clickhouseDialect{}
	cols := []string{"a", "b"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"create", d.createTable("t", cols),
			"CREATE TABLE IF NOT EXISTS `t` (`a` String, `b` String, `value` String, `updated_at` DateTime64(6) DEFAULT now64(6)) ENGINE = ReplacingMergeTree(`updated_at`) ORDER BY (`a`, `b`)"},
		{"insert", d.upsert("t", cols),
			"INSERT INTO `t` (`a`, `b`, `value`) VALUES (?, ?, ?)"},
		{"select final", selectValue(d, "t", cols),
			"SELECT `value` FROM `t` FINAL WHERE `a` = ? AND `b` = ?"},
		{"keys final", selectKeys(d, "t", cols, 2),
			"SELECT `a`, `b` FROM `t` FINAL WHERE `a` = ? AND `b` = ? ORDER BY `a`, `b`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("\n got: %s\nwant: %s", tt.got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(1); got != "?" {
		t.Errorf("expected ?, got %q", got)
	}
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("expected ?, ?, ?, got %q", got)
	}
}
