package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/DataVisuals/expectations/internal/form"
	utilstrings "github.com/DataVisuals/expectations/internal/util/strings"
)

// TemplateResponse describes one catalog template
type TemplateResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Params      []string `json:"params"`
}

// FormResponse is the prompt list for one template
type FormResponse struct {
	Template    string                  `json:"template"`
	DisplayName string                  `json:"display_name"`
	Fields      []form.PromptDescriptor `json:"fields"`
}

func (a *API) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates := a.catalog.List()
	out := make([]TemplateResponse, 0, len(templates))
	for _, t := range templates {
		out = append(out, TemplateResponse{
			ID:          t.ID,
			Name:        t.Name(),
			DisplayName: t.DisplayName(),
			Params:      append([]string{}, t.Params...),
		})
	}
	render.JSON(w, r, out)
}

// templateForm compiles the prompts for a template against the columns
// given as ?columns=a,b
func (a *API) templateForm(w http.ResponseWriter, r *http.Request) {
	tmpl, err := a.catalog.Resolve(chi.URLParam(r, "id"))
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	columns := utilstrings.SplitList(r.URL.Query().Get("columns"), form.ListSeparator)
	fields, err := form.CompileTemplate(tmpl, columns)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.JSON(w, r, FormResponse{
		Template:    tmpl.ID,
		DisplayName: tmpl.DisplayName(),
		Fields:      fields,
	})
}
