package form

import (
	"fmt"
	"strings"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
)

// ParamType selects the prompt a parameter gets and how its value is normalised
type ParamType int

const (
	ColumnChoice ParamType = iota
	MultiColumnChoice
	Numeric
	FreeText
	DelimitedList
	FixedEnum
	Date
	Boolean
)

// String returns the string representation of the parameter type
func (t ParamType) String() string {
	switch t {
	case ColumnChoice:
		return "column"
	case MultiColumnChoice:
		return "columns"
	case Numeric:
		return "number"
	case FreeText:
		return "text"
	case DelimitedList:
		return "list"
	case FixedEnum:
		return "enum"
	case Date:
		return "date"
	case Boolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output uses names
func (t ParamType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *ParamType) UnmarshalText(text []byte) error {
	for candidate := ColumnChoice; candidate <= Boolean; candidate++ {
		if candidate.String() == string(text) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown parameter type %q", text)
}

// paramTypes is the classification table. Every parameter name used by the
// catalog must resolve here or through numericSuffixes.
var paramTypes = map[string]ParamType{
	"column":             ColumnChoice,
	"column_A":           ColumnChoice,
	"column_B":           ColumnChoice,
	"group_by_column":    ColumnChoice,
	"date_column":        ColumnChoice,
	"date_column_name":   ColumnChoice,
	"aggregation_column": ColumnChoice,

	"column_list": MultiColumnChoice,
	"column_set":  MultiColumnChoice,
	"group_by":    MultiColumnChoice,

	"value":     Numeric,
	"n":         Numeric,
	"interval":  Numeric,
	"p":         Numeric,
	"threshold": Numeric,
	"factor":    Numeric,
	"quantile":  Numeric,

	"value_set":           DelimitedList,
	"like_pattern_list":   DelimitedList,
	"unlike_pattern_list": DelimitedList,
	"column_type_list":    DelimitedList,
	"type_list":           DelimitedList,

	"regex":               FreeText,
	"like_pattern":        FreeText,
	"unlike_pattern":      FreeText,
	"other_table":         FreeText,
	"exclusion_condition": FreeText,
	"period":              FreeText,
	"regex_list":          FreeText,
	"row_condition":       FreeText,
	"date_format":         FreeText,
	"type":                FreeText,
	"other_column":        FreeText,
	"partition_object":    FreeText,

	"datepart": FixedEnum,

	"test_start_date": Date,
	"test_end_date":   Date,

	"or_equal":   Boolean,
	"strict_min": Boolean,
	"strict_max": Boolean,
	"strictly":   Boolean,
}

// numericSuffixes marks names like min_value or lookback_periods as numbers
var numericSuffixes = []string{"_value", "_periods"}

// integerParams take whole numbers only (counts and intervals)
var integerParams = map[string]bool{
	"n":                true,
	"interval":         true,
	"lookback_periods": true,
	"trend_periods":    true,
}

// enumDomains holds the literal choices of FixedEnum parameters
var enumDomains = map[string][]string{
	"datepart": {"day", "month", "year"},
}

// Classify returns the type of a parameter name.
// Unknown names fail with UnimplementedParameter instead of being skipped.
func Classify(name string) (ParamType, error) {
	if t, ok := paramTypes[name]; ok {
		return t, nil
	}
	for _, suffix := range numericSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return Numeric, nil
		}
	}
	return 0, dqerrors.UnimplementedParameter(name)
}
