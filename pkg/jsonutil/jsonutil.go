// Package jsonutil provides the JSON tree helpers shared by the stores and
// the domain types.
//
// A JSON tree is built from nil, bool, string, float64, json.Number,
// []any and map[string]any. ToSerializable converts arbitrary Go values
// into such a tree (or reports why it cannot), Clean and FilterFalsy strip
// empty branches, and ID derives a stable content digest from a mapping.
package jsonutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// maxExactInt is the largest integer magnitude a float64 represents exactly.
const maxExactInt = 1 << 53

// JSONDicter is implemented by value types that know their canonical JSON form.
type JSONDicter interface {
	ToJSONDict() map[string]any
}

// SerializationError reports a value that has no JSON representation.
type SerializationError struct {
	// Path locates the value inside the tree, e.g. "$.details[0]".
	Path string
	// Type is the Go type of the offending value.
	Type string
	// Reason is an optional explanation (e.g. "NaN").
	Reason string
}

func (e *SerializationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("value at %s of type %s is not JSON serializable: %s", e.Path, e.Type, e.Reason)
	}
	return fmt.Sprintf("value at %s of type %s is not JSON serializable", e.Path, e.Type)
}

// EnsureSerializable returns an error if v, or anything nested inside it,
// cannot be represented as JSON.
func EnsureSerializable(v any) error {
	_, err := convert(v, "$")
	return err
}

// ToSerializable converts v into a plain JSON tree.
func ToSerializable(v any) (any, error) {
	return convert(v, "$")
}

func convert(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case json.Number:
		return t, nil
	case float64:
		return convertFloat(t, path, v)
	case float32:
		return convertFloat(float64(t), path, v)
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case []byte:
		return nil, &SerializationError{Path: path, Type: typeName(v), Reason: "raw bytes"}
	case map[string]any:
		return convertMap(reflect.ValueOf(t), path)
	case []any:
		return convertSlice(reflect.ValueOf(t), path)
	case JSONDicter:
		return convert(t.ToJSONDict(), path)
	case json.Marshaler:
		return convertMarshaler(t, path)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i > -maxExactInt && i < maxExactInt {
			return float64(i), nil
		}
		return json.Number(strconv.FormatInt(i, 10)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u < maxExactInt {
			return float64(u), nil
		}
		return json.Number(strconv.FormatUint(u, 10)), nil
	case reflect.Float32, reflect.Float64:
		return convertFloat(rv.Float(), path, v)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, &SerializationError{Path: path, Type: typeName(v), Reason: "raw bytes"}
		}
		if rv.IsNil() {
			return nil, nil
		}
		return convertSlice(rv, path)
	case reflect.Array:
		return convertSlice(rv, path)
	case reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
		return convertMap(rv, path)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		elem := rv.Elem()
		if elem.Kind() == reflect.Struct {
			return nil, &SerializationError{Path: path, Type: typeName(v)}
		}
		return convert(elem.Interface(), path)
	}

	return nil, &SerializationError{Path: path, Type: typeName(v)}
}

func convertFloat(f float64, path string, orig any) (any, error) {
	if math.IsNaN(f) {
		return nil, &SerializationError{Path: path, Type: typeName(orig), Reason: "NaN"}
	}
	if math.IsInf(f, 0) {
		return nil, &SerializationError{Path: path, Type: typeName(orig), Reason: "infinity"}
	}
	return f, nil
}

func convertSlice(rv reflect.Value, path string) (any, error) {
	out := make([]any, rv.Len())
	for i := range rv.Len() {
		c, err := convert(rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func convertMap(rv reflect.Value, path string) (any, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, &SerializationError{
			Path:   path,
			Type:   rv.Type().String(),
			Reason: "map keys must be strings",
		}
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().String()
		c, err := convert(iter.Value().Interface(), path+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = c
	}
	return out, nil
}

func convertMarshaler(m json.Marshaler, path string) (any, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, &SerializationError{Path: path, Type: typeName(m), Reason: err.Error()}
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &SerializationError{Path: path, Type: typeName(m), Reason: err.Error()}
	}
	return out, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

// Canonical returns the JSON encoding of v with mapping keys sorted.
func Canonical(v any) ([]byte, error) {
	tree, err := ToSerializable(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// ID returns the hex MD5 digest of the canonical JSON form of m. Two
// mappings with the same content produce the same ID regardless of the
// order their keys were inserted in.
func ID(m map[string]any) string {
	raw, err := Canonical(m)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", m))
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}
