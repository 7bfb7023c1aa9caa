package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/DataVisuals/expectations/internal/dataset"
	"github.com/DataVisuals/expectations/internal/document"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/form"
	"github.com/DataVisuals/expectations/internal/rules"
	"github.com/DataVisuals/expectations/internal/web/session"
)

// SessionRequest creates a session
type SessionRequest struct {
	Model   string   `json:"model"`
	Columns []string `json:"columns"`
}

// SessionResponse is a session with its rules decoded
type SessionResponse struct {
	ID        string           `json:"id"`
	Model     string           `json:"model"`
	Columns   []string         `json:"columns"`
	Rules     []rules.Instance `json:"rules"`
	Warnings  []Warning        `json:"warnings,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Warning is a non-fatal problem with the session's rules
type Warning struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// RuleResponse reports an appended rule
type RuleResponse struct {
	Index   int              `json:"index"`
	Rule    rules.Instance   `json:"rule"`
	Session *SessionResponse `json:"session"`
}

func (a *API) sessionResponse(sess *session.Session, reg *rules.Registry) *SessionResponse {
	instances := reg.All()
	resp := &SessionResponse{
		ID:        sess.ID,
		Model:     sess.Model,
		Columns:   sess.Columns,
		Rules:     instances,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	for _, err := range document.Validate(instances, a.catalog) {
		w := Warning{Message: err.Error()}
		if re, ok := dqerrors.As(err); ok {
			w.Code = re.Code
			w.Suggestions = re.Suggestions
		}
		resp.Warnings = append(resp.Warnings, w)
	}
	return resp
}

// respondSession renders a session fetched or saved by the manager
func (a *API) respondSession(w http.ResponseWriter, r *http.Request, status int, sess *session.Session) {
	reg, err := sess.Registry()
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, a.sessionResponse(sess, reg))
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil && !errors.Is(err, io.EOF) {
		a.renderError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	sess, err := a.sessions.Create(r.Context(), req.Model, req.Columns)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.respondSession(w, r, http.StatusCreated, sess)
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.sessions.Get(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.respondSession(w, r, http.StatusOK, sess)
}

func (a *API) deleteSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if _, err := a.sessions.Get(r.Context(), sid); err != nil {
		a.renderError(w, r, err)
		return
	}
	if err := a.sessions.Delete(r.Context(), sid); err != nil {
		a.renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// addRule appends the instance in the body. Known templates have their
// parameters normalised against the session's columns; unknown identifiers
// are stored as given and reported as warnings.
func (a *API) addRule(w http.ResponseWriter, r *http.Request) {
	var inst rules.Instance
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), &inst); err != nil {
		a.renderError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var added rules.Instance
	index := -1
	sess, err := a.sessions.Update(r.Context(), chi.URLParam(r, "sid"), func(sess *session.Session, reg *rules.Registry) error {
		added = inst
		if inst.Test != "" {
			if tmpl, err := a.catalog.Resolve(inst.Test); err == nil {
				built, err := form.Build(tmpl, sess.Columns, inst.Params.Map())
				if err != nil {
					return err
				}
				added = built
			}
		}
		if err := reg.Append(added); err != nil {
			return err
		}
		index = reg.Len() - 1
		return nil
	})
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.metrics.ruleChanges.WithLabelValues("add").Inc()

	reg, err := sess.Registry()
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RuleResponse{Index: index, Rule: added, Session: a.sessionResponse(sess, reg)})
}

func (a *API) removeRule(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.renderError(w, r, fmt.Errorf("%w: index must be an integer", errBadRequest))
		return
	}

	sess, err := a.sessions.Update(r.Context(), chi.URLParam(r, "sid"), func(_ *session.Session, reg *rules.Registry) error {
		_, err := reg.Remove(index)
		return err
	})
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.metrics.ruleChanges.WithLabelValues("remove").Inc()
	a.respondSession(w, r, http.StatusOK, sess)
}

// getDocument renders the schema document. ?model= overrides the
// session's model name.
func (a *API) getDocument(w http.ResponseWriter, r *http.Request) {
	sess, reg, err := a.sessions.View(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	model := r.URL.Query().Get("model")
	if model == "" {
		model = sess.Model
	}
	if model == "" {
		a.renderError(w, r, fmt.Errorf("%w: session has no model name; pass ?model=", errBadRequest))
		return
	}

	out, err := document.Compile(reg.All(), model)
	if err != nil {
		a.metrics.documents.WithLabelValues("render", "error").Inc()
		a.renderError(w, r, err)
		return
	}
	a.metrics.documents.WithLabelValues("render", "ok").Inc()

	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", model+".yml"))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// putDocument replaces the session's rules with a loaded document. A
// malformed document leaves the rules untouched.
func (a *API) putDocument(w http.ResponseWriter, r *http.Request) {
	text, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.renderError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	loaded, err := document.Decode(text)
	if err != nil {
		a.metrics.documents.WithLabelValues("load", "malformed").Inc()
		a.logger.Warn("document not loaded", zap.String("session_id", chi.URLParam(r, "sid")), zap.Error(err))
		a.renderError(w, r, err)
		return
	}

	sess, err := a.sessions.Update(r.Context(), chi.URLParam(r, "sid"), func(sess *session.Session, reg *rules.Registry) error {
		if loaded.Model != "" && sess.Model == "" {
			sess.Model = loaded.Model
		}
		return reg.Replace(loaded.Instances)
	})
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.metrics.documents.WithLabelValues("load", "ok").Inc()
	a.respondSession(w, r, http.StatusOK, sess)
}

// uploadColumns reads the header row of a CSV, sent either as the "file"
// field of a multipart form or as the raw body with ?name=<file.csv>.
// The model name defaults to the file name.
func (a *API) uploadColumns(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var (
		body  io.Reader
		name  = r.URL.Query().Get("name")
		model = r.URL.Query().Get("model")
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, header, err := r.FormFile("file")
		if err != nil {
			a.renderError(w, r, fmt.Errorf("%w: multipart upload needs a \"file\" field: %v", errBadRequest, err))
			return
		}
		defer file.Close()
		body = file
		name = header.Filename
		if m := r.FormValue("model"); m != "" {
			model = m
		}
	} else {
		body = r.Body
	}

	if name == "" {
		name = "dataset.csv"
	}
	columns, err := dataset.ReadColumns(body, name)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if model == "" {
		model = dataset.ModelName(name)
	}

	sess, err := a.sessions.Update(r.Context(), chi.URLParam(r, "sid"), func(sess *session.Session, _ *rules.Registry) error {
		sess.Columns = columns
		sess.Model = model
		return nil
	})
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.respondSession(w, r, http.StatusOK, sess)
}
