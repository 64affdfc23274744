// Package domain describes the slice of data a profiling rule applies to:
// a table, a column, a pair of columns or several columns.
//
// A Domain is an immutable value. Its canonical JSON form drives equality
// and its content id, so two domains built from the same kwargs in a
// different order are interchangeable.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kylerisse/metricstore/pkg/jsonutil"
)

// InferredSemanticTypeKey is the details entry holding the semantic type
// inferred per column.
const InferredSemanticTypeKey = "inferred_semantic_domain_type"

// Domain is the scope over which a rule's parameters apply.
type Domain struct {
	ruleName   string
	domainType MetricDomainType
	kwargs     Kwargs
	details    map[string]any

	// canonical is computed once at construction.
	canonical map[string]any
}

// New validates and builds a Domain. domainType may be a MetricDomainType
// or the value or name of one. kwargs is deep-cleaned. details values must
// be JSON-serializable; an InferredSemanticTypeKey entry must map column
// names to semantic types.
func New(ruleName string, domainType any, kwargs, details map[string]any) (Domain, error) {
	dt, err := ParseMetricDomainType(domainType)
	if err != nil {
		return Domain{}, err
	}

	d := Domain{
		ruleName:   ruleName,
		domainType: dt,
		kwargs:     NewKwargs(kwargs),
		details:    make(map[string]any, len(details)),
	}
	for k, v := range details {
		d.details[k] = deepCopy(v)
	}

	jsonKwargs, err := jsonutil.ToSerializable(map[string]any(d.kwargs))
	if err != nil {
		return Domain{}, fmt.Errorf("domain_kwargs: %w", err)
	}
	jsonDetails, err := canonicalDetails(d.details)
	if err != nil {
		return Domain{}, err
	}

	d.canonical = jsonutil.FilterFalsy(map[string]any{
		"rule_name":     ruleName,
		"domain_type":   string(dt),
		"domain_kwargs": jsonKwargs,
		"details":       jsonDetails,
	})
	return d, nil
}

func canonicalDetails(details map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(details))
	for key, value := range details {
		if key == InferredSemanticTypeKey && !isFalsy(value) {
			normalized, err := normalizeSemanticTypes(value)
			if err != nil {
				return nil, fmt.Errorf("details.%s: %w", key, err)
			}
			out[key] = normalized
			continue
		}
		v, err := jsonutil.ToSerializable(value)
		if err != nil {
			return nil, fmt.Errorf("details.%s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// normalizeSemanticTypes maps each column to its semantic type's value.
func normalizeSemanticTypes(value any) (map[string]any, error) {
	out := make(map[string]any)
	add := func(column string, t any) error {
		st, err := ParseSemanticDomainType(t)
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		out[column] = string(st)
		return nil
	}

	switch m := value.(type) {
	case map[string]any:
		for c, t := range m {
			if err := add(c, t); err != nil {
				return nil, err
			}
		}
	case map[string]string:
		for c, t := range m {
			if err := add(c, t); err != nil {
				return nil, err
			}
		}
	case map[string]SemanticDomainType:
		for c, t := range m {
			if err := add(c, t); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("must map column names to semantic types, got %T", value)
	}
	return out, nil
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case map[string]any:
		return len(t) == 0
	case map[string]string:
		return len(t) == 0
	case map[string]SemanticDomainType:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// FromMap builds a Domain from its JSON form. "domain_type" is required.
func FromMap(m map[string]any) (Domain, error) {
	ruleName, ok := m["rule_name"].(string)
	if !ok && m["rule_name"] != nil {
		return Domain{}, fmt.Errorf("rule_name must be a string, got %T", m["rule_name"])
	}
	kwargs, err := optionalMap(m, "domain_kwargs")
	if err != nil {
		return Domain{}, err
	}
	details, err := optionalMap(m, "details")
	if err != nil {
		return Domain{}, err
	}
	return New(ruleName, m["domain_type"], kwargs, details)
}

func optionalMap(m map[string]any, key string) (map[string]any, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case Kwargs:
		return map[string]any(v), nil
	default:
		return nil, fmt.Errorf("%s must be a mapping, got %T", key, v)
	}
}

// RuleName returns the name of the rule that produced the domain.
func (d Domain) RuleName() string {
	return d.ruleName
}

// DomainType returns the kind of data slice the domain covers.
func (d Domain) DomainType() MetricDomainType {
	return d.domainType
}

// DomainKwargs returns a copy of the cleaned kwargs.
func (d Domain) DomainKwargs() Kwargs {
	return d.kwargs.copy()
}

// Details returns a copy of the details as given to New.
func (d Domain) Details() map[string]any {
	if d.details == nil {
		return nil
	}
	return deepCopy(d.details).(map[string]any)
}

// ToJSONDict returns the canonical JSON form: rule_name, domain_type,
// domain_kwargs and details, with empty entries omitted. Semantic types
// under details.inferred_semantic_domain_type are lower-case values.
func (d Domain) ToJSONDict() map[string]any {
	if d.canonical == nil {
		return nil
	}
	return deepCopy(d.canonical).(map[string]any)
}

// ID returns the content digest of the canonical form.
func (d Domain) ID() string {
	return jsonutil.ID(d.canonical)
}

// Equal reports whether d and other have the same canonical form.
func (d Domain) Equal(other Domain) bool {
	return sameJSON(d.canonical, other.canonical)
}

// EqualMap compares d with a plain mapping. Empty entries are ignored on
// both sides.
func (d Domain) EqualMap(m map[string]any) bool {
	if m == nil {
		return false
	}
	return sameJSON(jsonutil.FilterFalsy(d.canonical), jsonutil.FilterFalsy(m))
}

func sameJSON(a, b map[string]any) bool {
	ca, err := jsonutil.Canonical(a)
	if err != nil {
		return false
	}
	cb, err := jsonutil.Canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// String returns the canonical form as indented JSON.
func (d Domain) String() string {
	data, err := json.MarshalIndent(d.canonical, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", d.canonical)
	}
	return string(data)
}

// MarshalJSON encodes the canonical form.
func (d Domain) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.canonical)
}

// UnmarshalJSON decodes and validates a canonical form.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := FromMap(m)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
