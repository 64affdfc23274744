package domain

import (
	"github.com/kylerisse/metricstore/pkg/jsonutil"
)

// Kwargs identifies the concrete slice of data a domain covers, such as
// {"column": "age"}. Nested mappings are Kwargs too.
type Kwargs map[string]any

// NewKwargs deep-cleans m and converts every nested mapping to Kwargs.
func NewKwargs(m map[string]any) Kwargs {
	cleaned, _ := jsonutil.Clean(m).(map[string]any)
	if cleaned == nil {
		return Kwargs{}
	}
	return wrap(cleaned)
}

func wrap(m map[string]any) Kwargs {
	out := make(Kwargs, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = wrap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// ToJSONDict returns k as a plain JSON tree. It returns nil when k holds
// values that cannot be represented as JSON; Kwargs built by New never do.
func (k Kwargs) ToJSONDict() map[string]any {
	v, err := jsonutil.ToSerializable(map[string]any(k))
	if err != nil {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// copy returns a deep copy of k.
func (k Kwargs) copy() Kwargs {
	if k == nil {
		return nil
	}
	return Kwargs(deepCopy(map[string]any(k)).(map[string]any))
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case Kwargs:
		return Kwargs(deepCopy(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
