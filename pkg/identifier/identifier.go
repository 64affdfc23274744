// Package identifier defines the composite keys metrics are stored under and
// their conversion to and from backend key tuples.
package identifier

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kylerisse/metricstore/pkg/jsonutil"
)

const (
	// RunTimeFormat is the layout run times take inside key tuples.
	RunTimeFormat = "20060102T150405.000000Z"

	// NoRunName stands in for an empty run name inside key tuples.
	NoRunName = "__none__"

	// Placeholder stands in for an empty data asset name or metric kwargs id.
	Placeholder = "__"

	urnPrefix = "urn:great_expectations:validations:"
)

// ErrMalformedKey is returned when a key tuple cannot be decoded.
var ErrMalformedKey = errors.New("malformed key tuple")

// RunIdentifier names one validation run.
type RunIdentifier struct {
	RunName string
	RunTime time.Time
}

// NewRunIdentifier returns a RunIdentifier with its time truncated to the
// microsecond precision that survives a round trip through a key tuple.
func NewRunIdentifier(name string, runTime time.Time) RunIdentifier {
	return RunIdentifier{RunName: name, RunTime: runTime.UTC().Truncate(time.Microsecond)}
}

// ToTuple returns the two-element tuple form of the run identifier.
func (r RunIdentifier) ToTuple() []string {
	name := r.RunName
	if name == "" {
		name = NoRunName
	}
	return []string{name, r.RunTime.UTC().Format(RunTimeFormat)}
}

func (r RunIdentifier) String() string {
	t := r.ToTuple()
	return t[0] + "-" + t[1]
}

// RunIdentifierFromTuple decodes the tuple produced by RunIdentifier.ToTuple.
func RunIdentifierFromTuple(t []string) (RunIdentifier, error) {
	if len(t) != 2 {
		return RunIdentifier{}, fmt.Errorf("%w: run identifier needs 2 elements, got %d", ErrMalformedKey, len(t))
	}
	runTime, err := ParseRunTime(t[1])
	if err != nil {
		return RunIdentifier{}, err
	}
	name := t[0]
	if name == NoRunName {
		name = ""
	}
	return RunIdentifier{RunName: name, RunTime: runTime}, nil
}

// ParseRunTime parses a run time in RunTimeFormat, falling back to RFC 3339.
func ParseRunTime(s string) (time.Time, error) {
	if ts, err := time.Parse(RunTimeFormat, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid run time %q", ErrMalformedKey, s)
	}
	return ts.UTC().Truncate(time.Microsecond), nil
}

// ExpectationSuiteIdentifier names an expectation suite. Dotted names
// expand to several tuple elements.
type ExpectationSuiteIdentifier struct {
	Name string
}

// ToTuple splits the suite name on ".".
func (e ExpectationSuiteIdentifier) ToTuple() []string {
	return strings.Split(e.Name, ".")
}

// ExpectationSuiteIdentifierFromTuple joins tuple elements with ".".
func ExpectationSuiteIdentifierFromTuple(t []string) ExpectationSuiteIdentifier {
	return ExpectationSuiteIdentifier{Name: strings.Join(t, ".")}
}

// ValidationMetricIdentifier is the key a metric value is stored under.
type ValidationMetricIdentifier struct {
	RunID                      RunIdentifier
	DataAssetName              string
	ExpectationSuiteIdentifier ExpectationSuiteIdentifier
	MetricName                 string
	MetricKwargsID             string
}

// ToTuple returns the backend key tuple:
// run name, run time, data asset, suite name parts, metric name, kwargs id.
func (v ValidationMetricIdentifier) ToTuple() []string {
	t := make([]string, 0, 6)
	t = append(t, v.RunID.ToTuple()...)
	t = append(t, orPlaceholder(v.DataAssetName))
	t = append(t, v.ExpectationSuiteIdentifier.ToTuple()...)
	t = append(t, v.MetricName, orPlaceholder(v.MetricKwargsID))
	return t
}

// ValidationMetricIdentifierFromTuple decodes the tuple produced by
// ValidationMetricIdentifier.ToTuple.
func ValidationMetricIdentifierFromTuple(t []string) (ValidationMetricIdentifier, error) {
	if len(t) < 6 {
		return ValidationMetricIdentifier{}, fmt.Errorf("%w: validation metric identifier needs at least 6 elements, got %d", ErrMalformedKey, len(t))
	}
	runID, err := RunIdentifierFromTuple(t[0:2])
	if err != nil {
		return ValidationMetricIdentifier{}, err
	}
	return ValidationMetricIdentifier{
		RunID:                      runID,
		DataAssetName:              fromPlaceholder(t[2]),
		ExpectationSuiteIdentifier: ExpectationSuiteIdentifierFromTuple(t[3 : len(t)-2]),
		MetricName:                 t[len(t)-2],
		MetricKwargsID:             fromPlaceholder(t[len(t)-1]),
	}, nil
}

// ToEvaluationParameterURN returns the URN an evaluation parameter stored
// under this key is addressed by.
func (v ValidationMetricIdentifier) ToEvaluationParameterURN() string {
	parts := []string{v.ExpectationSuiteIdentifier.Name, v.MetricName}
	if v.MetricKwargsID != "" {
		parts = append(parts, v.MetricKwargsID)
	}
	return urnPrefix + strings.Join(parts, ":")
}

// URN is a parsed evaluation parameter URN.
type URN struct {
	ExpectationSuiteName string
	MetricName           string
	MetricKwargsID       string
}

// ParseEvaluationParameterURN splits an evaluation parameter URN into its
// parts. Only the validations namespace is accepted.
func ParseEvaluationParameterURN(s string) (URN, error) {
	rest, ok := strings.CutPrefix(s, urnPrefix)
	if !ok {
		return URN{}, fmt.Errorf("unsupported urn %q", s)
	}
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return URN{}, fmt.Errorf("urn %q must name a suite and a metric", s)
	}
	urn := URN{ExpectationSuiteName: parts[0], MetricName: parts[1]}
	if len(parts) == 3 {
		urn.MetricKwargsID = parts[2]
	}
	return urn, nil
}

// MetricKwargsID derives the id of a set of metric kwargs. Scalar kwargs
// produce a readable "k1=v1,k2=v2" id; anything nested falls back to a
// content hash.
func MetricKwargsID(kwargs map[string]any) string {
	if len(kwargs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := kwargs[k].(type) {
		case string, bool, int, int64, float64:
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		case nil:
			pairs = append(pairs, k+"=None")
		default:
			return "kwargs_hash=" + jsonutil.ID(kwargs)
		}
	}
	return strings.Join(pairs, ",")
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func fromPlaceholder(s string) string {
	if s == Placeholder {
		return ""
	}
	return s
}
