package lookup

import (
	"context"
	"fmt"
)

// Params holds the primitive-valued arguments of a lookup request
type Params map[string]any

// String returns the named parameter as a string, or def when absent
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Int returns the named parameter as an int, or def when absent. JSON-decoded
// numbers arrive as float64.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Result is the tagged outcome of a lookup: a structured success payload or
// an error marker. Executions never surface Go errors to the pipeline.
type Result map[string]any

// Errorf builds an error-marker result
func Errorf(format string, args ...any) Result {
	return Result{"error": fmt.Sprintf(format, args...)}
}

// IsError reports whether the result carries an error marker
func (r Result) IsError() bool {
	_, ok := r["error"]
	return ok
}

// ErrorMessage returns the error marker text, or "" for success results
func (r Result) ErrorMessage() string {
	if msg, ok := r["error"].(string); ok {
		return msg
	}
	return ""
}

// ParamSpec describes one lookup parameter for the proposal prompt
type ParamSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Spec describes a lookup so the LLM can propose calls to it
type Spec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamSpec `json:"parameters"`
}

// Lookup is a named external medical-reference query. Execute performs a
// single attempt with a bounded timeout; every failure comes back as an
// error-marker Result, never a panic or Go error.
type Lookup interface {
	Spec() *Spec
	Execute(ctx context.Context, params Params) Result
}
