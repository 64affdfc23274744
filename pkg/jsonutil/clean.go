package jsonutil

import "reflect"

// Clean returns a copy of the tree v with nil values and empty sequences or
// mappings removed at every depth. Branches that only become empty after
// their children are cleaned are removed as well. Scalar leaves, including
// "", 0 and false, are kept.
//
// Named map and slice types are returned as map[string]any and []any.
func Clean(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return cleanMap(t)
	case []any:
		return cleanSlice(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return cleanMap(m)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		s := make([]any, rv.Len())
		for i := range rv.Len() {
			s[i] = rv.Index(i).Interface()
		}
		return cleanSlice(s)
	}
	return v
}

func cleanMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		c := Clean(v)
		if isEmpty(c) {
			continue
		}
		out[k] = c
	}
	return out
}

func cleanSlice(s []any) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		c := Clean(v)
		if isEmpty(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// isEmpty reports whether v is nil or a zero-length container.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// FilterFalsy returns a copy of m without its top-level nil, empty-string
// and empty-container entries. Nested values are not inspected. Numbers
// and booleans are kept even when zero or false.
func FilterFalsy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if isEmpty(v) {
			continue
		}
		out[k] = v
	}
	return out
}
