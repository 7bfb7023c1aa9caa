package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Detail       string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders a message block:
//
//	❌ UNKNOWN TEMPLATE: expect_colum_to_exist
//	   DQ001: unknown template "expect_colum_to_exist"
//
//	   Did you mean: dbt_expectations.expect_column_to_exist?
//
//	   → See all templates: dqrules catalog list
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}

	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Detail != "" {
		bodyColor.Fprintf(&b, "   %s\n", opts.Detail)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// helpFor lists the commands worth suggesting after each error code
var helpFor = map[string][]string{
	dqerrors.ErrUnknownTemplate:        {"See all templates: dqrules catalog list"},
	dqerrors.ErrUnimplementedParameter: {"Check the catalog: dqrules catalog check"},
	dqerrors.ErrInvalidParameter:       {"Show the template's parameters: dqrules catalog show <template>"},
	dqerrors.ErrMissingParameter:       {"Show the template's parameters: dqrules catalog show <template>"},
	dqerrors.ErrMalformedDocument:      {"Rules were left unchanged", "Export a valid document: dqrules save <file>"},
	dqerrors.ErrIndexOutOfRange:        {"See rule numbers: dqrules list"},
	dqerrors.ErrDatasetReadFailure:     {"Point at a CSV file with a header row: dqrules columns <file.csv>"},
	dqerrors.ErrEngineFailure:          {"Check the engine settings under bridge: in dqrules.yml"},
}

// FormatRuleError renders any error. Coded errors get their title,
// suggestions and follow-up commands; severity picks the level.
func FormatRuleError(err error, noColor bool) string {
	re, ok := dqerrors.As(err)
	if !ok {
		return FormatError(ErrorOptions{Level: ErrorLevelError, Problem: err.Error(), NoColor: noColor})
	}

	level := ErrorLevelError
	switch re.Severity {
	case dqerrors.Warning:
		level = ErrorLevelWarning
	case dqerrors.Info:
		level = ErrorLevelInfo
	}

	problem := re.Subject
	if problem == "" {
		problem = re.Message
	}

	return FormatError(ErrorOptions{
		Level:        level,
		Context:      dqerrors.Title(re.Code),
		Problem:      problem,
		Detail:       err.Error(),
		Suggestions:  re.Suggestions,
		HelpCommands: helpFor[re.Code],
		NoColor:      noColor,
	})
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat dqrules.yml",
			"Get help: dqrules --help",
		},
		NoColor: noColor,
	})
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: message, NoColor: noColor})
}

// Info creates a standardized info message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: message, NoColor: noColor})
}
