package backend

import (
	"testing"
	"time"
)

func TestConfig_String(t *testing.T) {
	c := Config{"name": "ge_metrics", "bad": 3}

	s, ok, err := c.String("name")
	if err != nil || !ok || s != "ge_metrics" {
		t.Errorf("unexpected result %q %v %v", s, ok, err)
	}
	if _, ok, err := c.String("missing"); ok || err != nil {
		t.Errorf("expected missing key to be absent without error")
	}
	if _, _, err := c.String("bad"); err == nil {
		t.Error("expected type error")
	}
}

func TestConfig_Int(t *testing.T) {
	c := Config{"i": 3, "f": float64(9000), "frac": 1.5, "s": "x"}

	if v, _, err := c.Int("i"); err != nil || v != 3 {
		t.Errorf("expected 3, got %d (%v)", v, err)
	}
	if v, _, err := c.Int("f"); err != nil || v != 9000 {
		t.Errorf("expected 9000, got %d (%v)", v, err)
	}
	if _, _, err := c.Int("frac"); err == nil {
		t.Error("expected error for fractional value")
	}
	if _, _, err := c.Int("s"); err == nil {
		t.Error("expected error for string value")
	}
}

func TestConfig_Strings(t *testing.T) {
	c := Config{
		"typed":   []string{"a", "b"},
		"untyped": []any{"c", "d"},
		"mixed":   []any{"e", 1},
		"scalar":  "f",
	}

	if v, _, err := c.Strings("typed"); err != nil || len(v) != 2 {
		t.Errorf("unexpected %v %v", v, err)
	}
	if v, _, err := c.Strings("untyped"); err != nil || v[1] != "d" {
		t.Errorf("unexpected %v %v", v, err)
	}
	if _, _, err := c.Strings("mixed"); err == nil {
		t.Error("expected error for mixed list")
	}
	if _, _, err := c.Strings("scalar"); err == nil {
		t.Error("expected error for scalar")
	}
}

func TestConfig_BoolDurationMap(t *testing.T) {
	c := Config{
		"flag":    true,
		"timeout": "5s",
		"creds":   map[string]any{"host": "localhost"},
	}

	if v, ok, err := c.Bool("flag"); err != nil || !ok || !v {
		t.Errorf("unexpected %v %v %v", v, ok, err)
	}
	if d, _, err := c.Duration("timeout"); err != nil || d != 5*time.Second {
		t.Errorf("unexpected %v %v", d, err)
	}
	if m, _, err := c.Map("creds"); err != nil || m["host"] != "localhost" {
		t.Errorf("unexpected %v %v", m, err)
	}
	if _, _, err := (Config{"timeout": "soon"}).Duration("timeout"); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	orig := Config{
		"key_columns": []any{"a", "b"},
		"credentials": map[string]any{"host": "h"},
	}
	c := orig.Clone()
	c["key_columns"].([]any)[0] = "changed"
	c["credentials"].(map[string]any)["host"] = "changed"
	c["table_name"] = "t"

	if orig["key_columns"].([]any)[0] != "a" {
		t.Error("clone shares slice with original")
	}
	if orig["credentials"].(map[string]any)["host"] != "h" {
		t.Error("clone shares map with original")
	}
	if orig.Has("table_name") {
		t.Error("clone shares top-level map with original")
	}
}

func TestKey_HasPrefix(t *testing.T) {
	k := Key{"run", "20240101T000000.000000Z", "asset"}
	if !k.HasPrefix(Key{"run"}) || !k.HasPrefix(nil) || !k.HasPrefix(k) {
		t.Error("expected prefix match")
	}
	if k.HasPrefix(Key{"other"}) || k.HasPrefix(append(k.Clone(), "extra")) {
		t.Error("unexpected prefix match")
	}
	if k.String() != "run/20240101T000000.000000Z/asset" {
		t.Errorf("unexpected string %q", k.String())
	}
}
