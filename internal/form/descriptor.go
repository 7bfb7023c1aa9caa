package form

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	utilstrings "github.com/DataVisuals/expectations/internal/util/strings"
)

// DateLayout is the accepted format of Date parameters
const DateLayout = "2006-01-02"

// ListSeparator splits DelimitedList input
const ListSeparator = ","

// maxExactInt bounds the floats that are rewritten as ints
const maxExactInt = 1 << 53

// PromptDescriptor tells a presentation layer how to ask for one parameter
// and tells Collect how to normalise the answer.
type PromptDescriptor struct {
	Name      string    `json:"name"`
	Type      ParamType `json:"type"`
	Label     string    `json:"label"`
	Help      string    `json:"help,omitempty"`
	Choices   []string  `json:"choices,omitempty"`
	Step      float64   `json:"step,omitempty"`
	Integer   bool      `json:"integer,omitempty"`
	Separator string    `json:"separator,omitempty"`
	Default   any       `json:"default,omitempty"`
	Required  bool      `json:"required"`
	Modifier  bool      `json:"modifier,omitempty"`
}

// Normalize converts a raw user value into the stored parameter value.
// keep is false when the value should be left out of the record.
func (d PromptDescriptor) Normalize(raw any) (value any, keep bool, err error) {
	switch d.Type {
	case ColumnChoice:
		return d.normalizeColumn(raw)
	case MultiColumnChoice:
		return d.normalizeColumns(raw)
	case Numeric:
		return d.normalizeNumber(raw)
	case FreeText:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, false, dqerrors.InvalidParameter(d.Name, "expected text")
		}
		if strings.TrimSpace(s) == "" {
			return nil, false, nil
		}
		return s, true, nil
	case DelimitedList:
		list, err := toStringList(raw, d.Separator)
		if err != nil {
			return nil, false, dqerrors.InvalidParameter(d.Name, err.Error())
		}
		return list, true, nil
	case FixedEnum:
		s := strings.TrimSpace(cast.ToString(raw))
		if !contains(d.Choices, s) {
			return nil, false, dqerrors.InvalidParameter(d.Name,
				fmt.Sprintf("%q is not one of %s", s, strings.Join(d.Choices, ", ")))
		}
		return s, true, nil
	case Date:
		return d.normalizeDate(raw)
	case Boolean:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, false, dqerrors.InvalidParameter(d.Name, "expected true or false")
		}
		return b, true, nil
	default:
		return nil, false, dqerrors.UnimplementedParameter(d.Name)
	}
}

func (d PromptDescriptor) normalizeColumn(raw any) (any, bool, error) {
	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		if d.Required {
			return nil, false, dqerrors.MissingParameter(d.Name)
		}
		return nil, false, nil
	}
	if len(d.Choices) > 0 && !contains(d.Choices, s) {
		return nil, false, dqerrors.InvalidParameter(d.Name, fmt.Sprintf("%q is not a dataset column", s))
	}
	return s, true, nil
}

func (d PromptDescriptor) normalizeColumns(raw any) (any, bool, error) {
	cols, err := toStringList(raw, ListSeparator)
	if err != nil {
		return nil, false, dqerrors.InvalidParameter(d.Name, err.Error())
	}
	if len(d.Choices) > 0 {
		for _, c := range cols {
			if !contains(d.Choices, c) {
				return nil, false, dqerrors.InvalidParameter(d.Name, fmt.Sprintf("%q is not a dataset column", c))
			}
		}
	}
	return cols, true, nil
}

func (d PromptDescriptor) normalizeNumber(raw any) (any, bool, error) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return nil, false, nil
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil, false, dqerrors.InvalidParameter(d.Name, "expected a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false, dqerrors.InvalidParameter(d.Name, "expected a finite number")
	}

	whole := f == math.Trunc(f) && math.Abs(f) < maxExactInt
	if d.Integer && !whole {
		return nil, false, dqerrors.InvalidParameter(d.Name, "expected a whole number")
	}
	if whole {
		return int(f), true, nil
	}
	return f, true, nil
}

func (d PromptDescriptor) normalizeDate(raw any) (any, bool, error) {
	if t, ok := raw.(time.Time); ok {
		return t.Format(DateLayout), true, nil
	}

	s := strings.TrimSpace(cast.ToString(raw))
	if s == "" {
		return nil, false, nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return nil, false, dqerrors.InvalidParameter(d.Name, "expected a date as YYYY-MM-DD")
	}
	return s, true, nil
}

// toStringList accepts a delimited string or a list and returns trimmed, non-empty items
func toStringList(raw any, sep string) ([]string, error) {
	if sep == "" {
		sep = ListSeparator
	}

	switch v := raw.(type) {
	case string:
		return utilstrings.SplitList(v, sep), nil
	case []string:
		return trimAll(v), nil
	case []any:
		items, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, err
		}
		return trimAll(items), nil
	default:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a list")
		}
		return utilstrings.SplitList(s, sep), nil
	}
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
