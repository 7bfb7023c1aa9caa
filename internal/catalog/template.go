package catalog

import (
	"fmt"
	"strings"

	utilstrings "github.com/DataVisuals/expectations/internal/util/strings"
)

// Template is a named assertion type with a fixed, ordered parameter list.
// Parameter order matters for display only.
type Template struct {
	ID     string
	Params []string
}

// Namespace returns the part of the identifier before the last dot
func (t *Template) Namespace() string {
	if i := strings.LastIndex(t.ID, "."); i >= 0 {
		return t.ID[:i]
	}
	return ""
}

// Name returns the identifier without its namespace
func (t *Template) Name() string {
	return strings.TrimPrefix(t.ID, t.Namespace()+".")
}

// DisplayName returns the sentence-cased label used in menus
func (t *Template) DisplayName() string {
	return DisplayName(t.ID)
}

// HasParam reports whether the template lists the given parameter
func (t *Template) HasParam(name string) bool {
	for _, p := range t.Params {
		if p == name {
			return true
		}
	}
	return false
}

func (t *Template) clone() *Template {
	params := make([]string, len(t.Params))
	copy(params, t.Params)
	return &Template{ID: t.ID, Params: params}
}

// Validate checks the template structure
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template id is required")
	}

	seen := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		if p == "" {
			return fmt.Errorf("template %s: parameter name is required", t.ID)
		}
		if seen[p] {
			return fmt.Errorf("template %s: duplicate parameter %s", t.ID, p)
		}
		seen[p] = true
	}
	return nil
}

// DisplayName formats any template identifier for menus:
// namespace stripped, underscores as spaces, first letter capitalized.
func DisplayName(id string) string {
	return utilstrings.Humanize(id)
}
