package domain

import (
	"fmt"
	"strings"
)

// MetricDomainType is the kind of data slice a domain covers.
type MetricDomainType string

const (
	Table       MetricDomainType = "table"
	Column      MetricDomainType = "column"
	ColumnPair  MetricDomainType = "column_pair"
	MultiColumn MetricDomainType = "multicolumn"
)

// metricDomainTypes maps member names to members.
var metricDomainTypes = map[string]MetricDomainType{
	"TABLE":       Table,
	"COLUMN":      Column,
	"COLUMN_PAIR": ColumnPair,
	"MULTICOLUMN": MultiColumn,
}

// MetricDomainTypes returns every member in declaration order.
func MetricDomainTypes() []MetricDomainType {
	return []MetricDomainType{Table, Column, ColumnPair, MultiColumn}
}

func (t MetricDomainType) valid() bool {
	_, ok := metricDomainTypes[strings.ToUpper(string(t))]
	return ok && strings.ToLower(string(t)) == string(t)
}

// InvalidDomainTypeError is returned for a domain type that is not a
// MetricDomainType member or the value or name of one.
type InvalidDomainTypeError struct {
	Value any
}

func (e *InvalidDomainTypeError) Error() string {
	return fmt.Sprintf("cannot instantiate Domain (domain_type %q of type %T is not supported)",
		fmt.Sprint(e.Value), e.Value)
}

// ParseMetricDomainType accepts a MetricDomainType or a string equal to a
// member's value ("column_pair") or name ("COLUMN_PAIR"). Matching is
// case-sensitive.
func ParseMetricDomainType(v any) (MetricDomainType, error) {
	switch t := v.(type) {
	case MetricDomainType:
		if t.valid() {
			return t, nil
		}
	case string:
		if m := MetricDomainType(t); m.valid() {
			return m, nil
		}
		if m, ok := metricDomainTypes[t]; ok {
			return m, nil
		}
	}
	return "", &InvalidDomainTypeError{Value: v}
}

// SemanticDomainType classifies the contents of a column.
type SemanticDomainType string

const (
	Numeric       SemanticDomainType = "numeric"
	Text          SemanticDomainType = "text"
	Logic         SemanticDomainType = "logic"
	Datetime      SemanticDomainType = "datetime"
	Binary        SemanticDomainType = "binary"
	Currency      SemanticDomainType = "currency"
	Identifier    SemanticDomainType = "identifier"
	Miscellaneous SemanticDomainType = "miscellaneous"
	Unknown       SemanticDomainType = "unknown"
)

var semanticDomainTypes = map[SemanticDomainType]bool{
	Numeric: true, Text: true, Logic: true, Datetime: true, Binary: true,
	Currency: true, Identifier: true, Miscellaneous: true, Unknown: true,
}

// ParseSemanticDomainType accepts a SemanticDomainType or a string naming
// one in any case ("NUMERIC", "Numeric", "numeric").
func ParseSemanticDomainType(v any) (SemanticDomainType, error) {
	switch t := v.(type) {
	case SemanticDomainType:
		if semanticDomainTypes[t] {
			return t, nil
		}
	case string:
		if s := SemanticDomainType(strings.ToLower(t)); semanticDomainTypes[s] {
			return s, nil
		}
	}
	return "", fmt.Errorf("%q of type %T is not a valid semantic domain type", fmt.Sprint(v), v)
}

// InferredSemanticDomainType records the semantic type inferred for a
// column and how it was inferred.
type InferredSemanticDomainType struct {
	SemanticDomainType SemanticDomainType
	Details            map[string]any
}

// ToJSONDict returns the JSON form. An empty semantic type is null.
func (i InferredSemanticDomainType) ToJSONDict() map[string]any {
	var semantic any
	if i.SemanticDomainType != "" {
		semantic = string(i.SemanticDomainType)
	}
	var details any
	if i.Details != nil {
		details = Kwargs(i.Details).ToJSONDict()
	}
	return map[string]any{
		"semantic_domain_type": semantic,
		"details":              details,
	}
}
