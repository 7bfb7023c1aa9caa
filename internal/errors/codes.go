package errors

// Error code constants organized by phase
// DQ001-DQ009: Catalog and form errors
// DQ010-DQ019: Registry and document errors
// DQ020-DQ029: Dataset and engine errors

const (
	// Catalog and form errors (DQ001-DQ009)
	ErrUnknownTemplate        = "DQ001"
	ErrUnimplementedParameter = "DQ002"
	ErrInvalidParameter       = "DQ003"
	ErrMissingParameter       = "DQ004"

	// Registry and document errors (DQ010-DQ019)
	ErrMalformedDocument = "DQ010"
	ErrIndexOutOfRange   = "DQ011"
	ErrMissingTest       = "DQ012"

	// Dataset and engine errors (DQ020-DQ029)
	ErrDatasetReadFailure = "DQ020"
	ErrEngineFailure      = "DQ021"
)

// Phase names used in RuleError.Phase
const (
	PhaseCatalog  = "catalog"
	PhaseForm     = "form"
	PhaseRegistry = "registry"
	PhaseDocument = "document"
	PhaseDataset  = "dataset"
	PhaseEngine   = "engine"
)

// codeTitles maps error codes to the short headline shown in terminal output
var codeTitles = map[string]string{
	ErrUnknownTemplate:        "unknown template",
	ErrUnimplementedParameter: "unimplemented parameter",
	ErrInvalidParameter:       "invalid parameter",
	ErrMissingParameter:       "missing parameter",
	ErrMalformedDocument:      "malformed document",
	ErrIndexOutOfRange:        "index out of range",
	ErrMissingTest:            "missing test",
	ErrDatasetReadFailure:     "dataset read failure",
	ErrEngineFailure:          "engine failure",
}

// Title returns the headline for an error code
func Title(code string) string {
	if t, ok := codeTitles[code]; ok {
		return t
	}
	return "error"
}
