package catalog

import (
	"fmt"
	"sync"

	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	utilstrings "github.com/DataVisuals/expectations/internal/util/strings"
)

// Catalog is a read-only lookup from template identifier to its parameter list.
// It is populated once and never mutated, so it is safe for concurrent reads.
type Catalog struct {
	templates []*Template
	byID      map[string]*Template
}

// New builds a catalog from templates in display order
func New(templates []*Template) (*Catalog, error) {
	c := &Catalog{
		templates: make([]*Template, 0, len(templates)),
		byID:      make(map[string]*Template, len(templates)),
	}

	for _, tmpl := range templates {
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		if _, exists := c.byID[tmpl.ID]; exists {
			return nil, fmt.Errorf("template %s already registered", tmpl.ID)
		}

		params := make([]string, len(tmpl.Params))
		copy(params, tmpl.Params)
		t := &Template{ID: tmpl.ID, Params: params}

		c.templates = append(c.templates, t)
		c.byID[t.ID] = t
	}

	return c, nil
}

// Lookup returns the ordered parameter names of a template
func (c *Catalog) Lookup(id string) ([]string, error) {
	tmpl, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	return tmpl.Params, nil
}

// Get retrieves a copy of a template by identifier
func (c *Catalog) Get(id string) (*Template, error) {
	tmpl, ok := c.byID[id]
	if !ok {
		return nil, dqerrors.UnknownTemplate(id, c.Suggest(id))
	}
	return tmpl.clone(), nil
}

// Exists checks if a template exists
func (c *Catalog) Exists(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Identifiers returns every known identifier in declaration order
func (c *Catalog) Identifiers() []string {
	ids := make([]string, len(c.templates))
	for i, t := range c.templates {
		ids[i] = t.ID
	}
	return ids
}

// List returns copies of all templates in declaration order
func (c *Catalog) List() []*Template {
	out := make([]*Template, len(c.templates))
	for i, t := range c.templates {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of templates
func (c *Catalog) Len() int {
	return len(c.templates)
}

// Resolve accepts a full identifier or a bare verb phrase
// ("expect_column_to_exist") and returns the matching template.
func (c *Catalog) Resolve(name string) (*Template, error) {
	if tmpl, ok := c.byID[name]; ok {
		return tmpl.clone(), nil
	}

	var match *Template
	for _, t := range c.templates {
		if t.Name() == name {
			if match != nil {
				return nil, fmt.Errorf("template name %q is ambiguous: %s, %s", name, match.ID, t.ID)
			}
			match = t
		}
	}
	if match == nil {
		return nil, dqerrors.UnknownTemplate(name, c.Suggest(name))
	}
	return match.clone(), nil
}

// Suggest returns up to three catalog identifiers close to id
func (c *Catalog) Suggest(id string) []string {
	short := make([]string, len(c.templates))
	for i, t := range c.templates {
		short[i] = t.Name()
	}

	probe := (&Template{ID: id}).Name()
	matches := utilstrings.FindSimilar(probe, short, nil)

	out := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		for _, t := range c.templates {
			if t.Name() == m && !seen[t.ID] {
				out = append(out, t.ID)
				seen[t.ID] = true
			}
		}
	}
	return out
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide built-in catalog
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := New(builtinTemplates())
		if err != nil {
			// The built-in table is static; a failure here is a programming error
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
