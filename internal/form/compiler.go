package form

import (
	"errors"
	"fmt"
	"sort"

	"github.com/DataVisuals/expectations/internal/catalog"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/rules"
)

// StrictHelp points users at the upstream documentation of the strictly flag
const StrictHelp = "See https://github.com/calogica/dbt-expectations/tree/0.10.4/?tab=readme-ov-file"

// Compile builds one prompt descriptor per parameter name, in order.
// Column-choice descriptors offer availableColumns as their domain.
func Compile(paramNames []string, availableColumns []string) ([]PromptDescriptor, error) {
	descriptors := make([]PromptDescriptor, 0, len(paramNames))

	for _, name := range paramNames {
		t, err := Classify(name)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, newDescriptor(name, t, availableColumns))
	}

	return descriptors, nil
}

// CompileTemplate compiles a template's parameters followed by the universal
// modifiers the template does not already list.
func CompileTemplate(tmpl *catalog.Template, availableColumns []string) ([]PromptDescriptor, error) {
	descriptors, err := Compile(tmpl.Params, availableColumns)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}

	for _, m := range Modifiers() {
		if !tmpl.HasParam(m.Name) {
			descriptors = append(descriptors, m)
		}
	}
	return descriptors, nil
}

// Modifiers returns the optional modifiers every assertion accepts:
// row_condition restricts the rows checked; strictly defaults to true.
func Modifiers() []PromptDescriptor {
	return []PromptDescriptor{
		{
			Name:     rules.KeyRowCondition,
			Type:     FreeText,
			Label:    "Enter row condition",
			Help:     "Enter a condition that will limit the rows this rule is applied to",
			Modifier: true,
		},
		{
			Name:     rules.KeyStrictly,
			Type:     Boolean,
			Label:    "Strict?",
			Help:     StrictHelp,
			Default:  true,
			Modifier: true,
		},
	}
}

func newDescriptor(name string, t ParamType, columns []string) PromptDescriptor {
	d := PromptDescriptor{Name: name, Type: t}

	switch t {
	case ColumnChoice:
		d.Label = "Select " + name
		d.Choices = copyStrings(columns)
		d.Required = true
	case MultiColumnChoice:
		d.Label = "Select " + name
		d.Choices = copyStrings(columns)
	case Numeric:
		d.Label = "Enter " + name
		d.Step = 0.01
		if integerParams[name] {
			d.Integer = true
			d.Step = 1
		}
		switch name {
		case "n":
			d.Label = "Enter n (e.g., days, months)"
		case "interval":
			d.Label = "Enter interval (e.g., every N intervals)"
		}
	case DelimitedList:
		d.Label = fmt.Sprintf("Enter %s (comma-separated values)", name)
		d.Separator = ListSeparator
	case FixedEnum:
		d.Label = "Select " + name
		d.Choices = copyStrings(enumDomains[name])
	case Date:
		d.Label = fmt.Sprintf("Enter %s (YYYY-MM-DD)", name)
	case Boolean:
		d.Label = name + "?"
		d.Default = false
	default:
		d.Label = "Enter " + name
	}

	return d
}

// Collect pairs each descriptor with its raw input and normalises it into a
// parameter record, in descriptor order. Missing optional inputs are left
// out; modifiers equal to their default are left out.
func Collect(descriptors []PromptDescriptor, inputs map[string]any) (rules.Params, error) {
	params := rules.Params{}

	for _, d := range descriptors {
		raw, ok := inputs[d.Name]
		if !ok || raw == nil {
			if d.Required {
				return nil, dqerrors.MissingParameter(d.Name)
			}
			continue
		}

		value, keep, err := d.Normalize(raw)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		if d.Modifier && d.Default != nil && value == d.Default {
			continue
		}
		params.Set(d.Name, value)
	}

	return params, nil
}

// Build compiles and collects in one step, producing an assertion instance.
// Inputs naming a parameter the template does not take are rejected.
func Build(tmpl *catalog.Template, availableColumns []string, inputs map[string]any) (rules.Instance, error) {
	descriptors, err := CompileTemplate(tmpl, availableColumns)
	if err != nil {
		return rules.Instance{}, err
	}

	known := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		known[d.Name] = true
	}
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			return rules.Instance{}, fmt.Errorf("template %s: %w", tmpl.ID,
				dqerrors.InvalidParameter(name, "not a parameter of this template"))
		}
	}

	params, err := Collect(descriptors, inputs)
	if err != nil {
		return rules.Instance{}, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}
	return rules.Instance{Test: tmpl.ID, Params: params}, nil
}

// CheckCatalog verifies every template's parameters classify. It reports all
// failures, not just the first.
func CheckCatalog(c *catalog.Catalog) error {
	probe := []string{"a", "b"}
	var errs []error

	for _, tmpl := range c.List() {
		descriptors, err := CompileTemplate(tmpl, probe)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if n := len(descriptors); n < len(tmpl.Params) {
			errs = append(errs, fmt.Errorf("template %s: %d descriptors for %d parameters", tmpl.ID, n, len(tmpl.Params)))
		}
	}

	return errors.Join(errs...)
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
