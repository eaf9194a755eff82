// Package report composes the final analysis prompt, requests the report
// and validates what comes back.
package report

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	KeyFeatureAnalysis = "feature_analysis"
	KeyExecutionPlan   = "execution_plan_suggestion"
)

// Report is the validated model output, returned to callers as-is.
type Report map[string]any

// Error is the single hard failure of an analysis run. Reason is safe to
// show to callers; Err is kept for logs.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

var errTrailingData = errors.New("trailing data after JSON value")

// Validate parses raw as a JSON object and checks that both required
// top-level keys are present. Nothing below the top level is inspected.
func Validate(raw string) (Report, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &Error{Reason: "Model returned invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &Error{Reason: "Model returned invalid JSON", Err: errTrailingData}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Reason: "Model returned invalid JSON", Err: errors.New("top-level value is not an object")}
	}
	_, hasFeatures := obj[KeyFeatureAnalysis]
	_, hasPlan := obj[KeyExecutionPlan]
	if !hasFeatures || !hasPlan {
		return nil, &Error{Reason: "Model response missing required keys 'feature_analysis' or 'execution_plan_suggestion'."}
	}
	return Report(obj), nil
}
