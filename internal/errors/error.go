package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// Severity represents the severity level of an error
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Fatal
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for Severity
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// RuleError is the error type shared by every phase of the rule builder.
// Callers branch on Code, never on Message.
type RuleError struct {
	Phase       string   // "catalog", "form", "registry", "document", "dataset", "engine"
	Code        string   // "DQ001", ...
	Message     string   // Human-readable message
	Subject     string   // Template id, parameter name, path ... the error is about
	Severity    Severity // Error unless the caller can carry on
	Suggestions []string // "did you mean" candidates
	Err         error    // Underlying cause
}

// Error implements the error interface
func (e *RuleError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *RuleError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a RuleError with the same code.
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// MarshalJSON implements json.Marshaler
func (e *RuleError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		Phase       string   `json:"phase"`
		Code        string   `json:"code"`
		Message     string   `json:"message"`
		Subject     string   `json:"subject,omitempty"`
		Severity    Severity `json:"severity"`
		Suggestions []string `json:"suggestions,omitempty"`
		Cause       string   `json:"cause,omitempty"`
	}{e.Phase, e.Code, e.Message, e.Subject, e.Severity, e.Suggestions, cause})
}

// New creates a RuleError with Error severity
func New(phase, code, subject, message string) *RuleError {
	return &RuleError{
		Phase:    phase,
		Code:     code,
		Subject:  subject,
		Message:  message,
		Severity: Error,
	}
}

// WithCause attaches an underlying error
func (e *RuleError) WithCause(err error) *RuleError {
	e.Err = err
	return e
}

// WithSuggestions attaches "did you mean" candidates
func (e *RuleError) WithSuggestions(suggestions []string) *RuleError {
	e.Suggestions = suggestions
	return e
}

// WithSeverity overrides the severity
func (e *RuleError) WithSeverity(s Severity) *RuleError {
	e.Severity = s
	return e
}

// Code returns the RuleError code carried anywhere in err's chain, or ""
func Code(err error) string {
	var re *RuleError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

// HasCode reports whether err's chain carries a RuleError with the given code
func HasCode(err error, code string) bool {
	return stderrors.Is(err, &RuleError{Code: code})
}

// As extracts the RuleError from err's chain
func As(err error) (*RuleError, bool) {
	var re *RuleError
	ok := stderrors.As(err, &re)
	return re, ok
}

// UnknownTemplate reports a template identifier missing from the catalog.
// It is a warning: display and serialization carry on.
func UnknownTemplate(id string, suggestions []string) *RuleError {
	return New(PhaseCatalog, ErrUnknownTemplate, id, fmt.Sprintf("template %q is not in the catalog", id)).
		WithSuggestions(suggestions).
		WithSeverity(Warning)
}

// UnimplementedParameter reports a parameter name with no classification rule
func UnimplementedParameter(name string) *RuleError {
	return New(PhaseForm, ErrUnimplementedParameter, name, fmt.Sprintf("parameter %q has no input type", name)).
		WithSeverity(Fatal)
}

// InvalidParameter reports a user value that failed normalisation
func InvalidParameter(name, reason string) *RuleError {
	return New(PhaseForm, ErrInvalidParameter, name, fmt.Sprintf("parameter %q: %s", name, reason))
}

// MissingParameter reports a required parameter with no value
func MissingParameter(name string) *RuleError {
	return New(PhaseForm, ErrMissingParameter, name, fmt.Sprintf("parameter %q is required", name))
}

// MalformedDocument reports a document that could not be loaded.
// It is a warning: the registry is left untouched.
func MalformedDocument(reason string, cause error) *RuleError {
	return New(PhaseDocument, ErrMalformedDocument, "", reason).
		WithCause(cause).
		WithSeverity(Warning)
}

// IndexOutOfRange reports a removal index outside the registry
func IndexOutOfRange(index, length int) *RuleError {
	return New(PhaseRegistry, ErrIndexOutOfRange, fmt.Sprint(index),
		fmt.Sprintf("index %d out of range for %d rule(s)", index, length))
}

// MissingTest reports an assertion instance without a template identifier
func MissingTest() *RuleError {
	return New(PhaseRegistry, ErrMissingTest, "", "assertion has no test identifier")
}

// DatasetReadFailure reports an unreadable dataset
func DatasetReadFailure(path string, cause error) *RuleError {
	return New(PhaseDataset, ErrDatasetReadFailure, path, fmt.Sprintf("cannot read dataset %q", path)).
		WithCause(cause)
}

// EngineFailure reports a failed engine invocation
func EngineFailure(step string, cause error) *RuleError {
	return New(PhaseEngine, ErrEngineFailure, step, fmt.Sprintf("engine step %q failed", step)).
		WithCause(cause)
}
