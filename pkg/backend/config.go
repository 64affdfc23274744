package backend

import (
	"fmt"
	"math"
	"time"
)

const (
	// ModuleNameKey qualifies the backend kind in a Config.
	ModuleNameKey = "module_name"
	// ClassNameKey names the backend kind in a Config.
	ClassNameKey = "class_name"
)

// Config is the raw configuration mapping of a store backend: the kind
// ("class_name", optionally "module_name") plus backend-specific options.
// Values usually come from YAML or JSON, so accessors accept the types
// those decoders produce.
type Config map[string]any

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return cloneValue(map[string]any(c)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case Config:
		return Config(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

// Has reports whether key is present, regardless of its value.
func (c Config) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Config) classRef() (module, class string, err error) {
	if module, _, err = c.String(ModuleNameKey); err != nil {
		return "", "", err
	}
	if class, _, err = c.String(ClassNameKey); err != nil {
		return "", "", err
	}
	return module, class, nil
}

// String returns the string stored under key. The boolean reports whether
// the key was present.
func (c Config) String(key string) (string, bool, error) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, fmt.Errorf("'%s' must be a string, got %T", key, raw)
	}
	return s, true, nil
}

// Bool returns the bool stored under key.
func (c Config) Bool(key string) (bool, bool, error) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return false, false, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, true, fmt.Errorf("'%s' must be a bool, got %T", key, raw)
	}
	return b, true, nil
}

// Int returns the integer stored under key. Integral floats are accepted
// because JSON decodes every number as float64.
func (c Config) Int(key string) (int, bool, error) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, true, fmt.Errorf("'%s' must be an integer, got %v", key, v)
		}
		return int(v), true, nil
	default:
		return 0, true, fmt.Errorf("'%s' must be an integer, got %T", key, raw)
	}
}

// Strings returns the list of strings stored under key.
func (c Config) Strings(key string) ([]string, bool, error) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), true, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("'%s' items must be strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, true, nil
	default:
		return nil, true, fmt.Errorf("'%s' must be a list, got %T", key, raw)
	}
}

// Duration returns the duration stored under key as a string such as "10s".
func (c Config) Duration(key string) (time.Duration, bool, error) {
	s, ok, err := c.String(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid '%s' %q: %w", key, s, err)
	}
	return d, true, nil
}

// Map returns the nested mapping stored under key.
func (c Config) Map(key string) (map[string]any, bool, error) {
	raw, ok := c[key]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, true, nil
	case Config:
		return map[string]any(v), true, nil
	default:
		return nil, true, fmt.Errorf("'%s' must be a mapping, got %T", key, raw)
	}
}
