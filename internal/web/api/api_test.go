package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/DataVisuals/expectations/internal/catalog"
	dqerrors "github.com/DataVisuals/expectations/internal/errors"
	"github.com/DataVisuals/expectations/internal/web/session"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	manager *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := session.NewMemoryStore()
	manager := session.NewManager(store, session.DefaultTTL, nil)
	t.Cleanup(func() { manager.Close() })

	a := New(catalog.Default(), manager, nil)
	return &testServer{
		t:       t,
		handler: a.Routes(Options{Registry: prometheus.NewRegistry()}),
		manager: manager,
	}
}

func (s *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.do(method, path, strings.NewReader(body), "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createSession(model string, columns ...string) SessionResponse {
	s.t.Helper()
	cols, _ := json.Marshal(columns)
	rec := s.doJSON(http.MethodPost, "/api/sessions", fmt.Sprintf(`{"model":%q,"columns":%s}`, model, cols))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[SessionResponse](s.t, rec)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, catalog.Default().Len(), body["templates"])
}

func TestListTemplates(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/templates", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	templates := decode[[]TemplateResponse](t, rec)
	require.Len(t, templates, catalog.Default().Len())
	assert.Equal(t, "dbt_expectations.expect_column_to_exist", templates[0].ID)
	assert.Equal(t, "Expect column to exist", templates[0].DisplayName)
	assert.Equal(t, []string{"column"}, templates[0].Params)
}

func TestTemplateForm(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/templates/expect_column_values_to_be_between/form?columns=id,%20amount", nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[FormResponse](t, rec)
	assert.Equal(t, "dbt_expectations.expect_column_values_to_be_between", resp.Template)

	require.NotEmpty(t, resp.Fields)
	assert.Equal(t, "column", resp.Fields[0].Name)
	assert.Equal(t, []string{"id", "amount"}, resp.Fields[0].Choices)
	assert.True(t, resp.Fields[0].Required)

	last := resp.Fields[len(resp.Fields)-1]
	assert.Equal(t, "strictly", last.Name)
	assert.Equal(t, true, last.Default)
}

func TestTemplateForm_Unknown(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/templates/expect_colum_to_exist/form", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, dqerrors.ErrUnknownTemplate, body.Error)
	assert.Contains(t, body.Suggestions, "dbt_expectations.expect_column_to_exist")
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	created := s.createSession("orders", "id", "amount")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "orders", created.Model)
	assert.Empty(t, created.Rules)

	rec := s.do(http.MethodGet, "/api/sessions/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"id", "amount"}, decode[SessionResponse](t, rec).Columns)

	rec = s.do(http.MethodDelete, "/api/sessions/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/sessions/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodDelete, "/api/sessions/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSession_EmptyBody(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{}, decode[SessionResponse](t, rec).Columns)

	rec = s.doJSON(http.MethodPost, "/api/sessions", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddRule_NormalisesKnownTemplates(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id", "amount")

	rec := s.doJSON(http.MethodPost, "/api/sessions/"+sess.ID+"/rules",
		`{"test":"expect_column_values_to_be_between","column":"amount","min_value":"0","max_value":100.5,"strictly":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Index int            `json:"index"`
		Rule  map[string]any `json:"rule"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Index)
	assert.Equal(t, map[string]any{
		"test":      "dbt_expectations.expect_column_values_to_be_between",
		"column":    "amount",
		"min_value": 0.0,
		"max_value": 100.5,
	}, resp.Rule)

	// key order survives the round trip through the store
	rec = s.do(http.MethodGet, "/api/sessions/"+sess.ID, nil, "")
	assert.Contains(t, rec.Body.String(), `{"test":"dbt_expectations.expect_column_values_to_be_between","column":"amount","min_value":0,"max_value":100.5}`)
}

func TestAddRule_Errors(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id")

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing test", `{"column":"id"}`, http.StatusBadRequest, dqerrors.ErrMissingTest},
		{"column not in dataset", `{"test":"expect_column_to_exist","column":"nope"}`, http.StatusUnprocessableEntity, dqerrors.ErrInvalidParameter},
		{"missing column", `{"test":"expect_column_to_exist"}`, http.StatusUnprocessableEntity, dqerrors.ErrMissingParameter},
		{"foreign parameter", `{"test":"expect_column_to_exist","column":"id","colour":"red"}`, http.StatusUnprocessableEntity, dqerrors.ErrInvalidParameter},
		{"not an object", `[1,2]`, http.StatusBadRequest, "bad_request"},
		{"empty column on unknown template", `{"test":"custom.my_check","column":""}`, http.StatusUnprocessableEntity, dqerrors.ErrInvalidParameter},
		{"null column on unknown template", `{"test":"custom.my_check","column":null}`, http.StatusUnprocessableEntity, dqerrors.ErrInvalidParameter},
		{"test given twice", `{"test":"custom.a","test":"custom.b"}`, http.StatusBadRequest, "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(http.MethodPost, "/api/sessions/"+sess.ID+"/rules", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Error)
		})
	}

	rec := s.do(http.MethodGet, "/api/sessions/"+sess.ID, nil, "")
	assert.Empty(t, decode[SessionResponse](t, rec).Rules)
}

func TestAddRule_UnknownTemplateIsAWarning(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id")

	rec := s.doJSON(http.MethodPost, "/api/sessions/"+sess.ID+"/rules", `{"test":"custom.my_check","column":"id"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[RuleResponse](t, rec)
	require.Len(t, resp.Session.Warnings, 1)
	assert.Equal(t, dqerrors.ErrUnknownTemplate, resp.Session.Warnings[0].Code)
	assert.Contains(t, resp.Session.Warnings[0].Message, "rule 1")
}

func TestRemoveRule(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id", "amount")
	path := "/api/sessions/" + sess.ID + "/rules"

	for _, col := range []string{"id", "amount"} {
		rec := s.doJSON(http.MethodPost, path, fmt.Sprintf(`{"test":"expect_column_to_exist","column":%q}`, col))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodDelete, path+"/0", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rules := decode[SessionResponse](t, rec).Rules
	require.Len(t, rules, 1)
	col, _ := rules[0].Column()
	assert.Equal(t, "amount", col)

	rec = s.do(http.MethodDelete, path+"/1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, dqerrors.ErrIndexOutOfRange, decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodDelete, path+"/x", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocument_RenderAndLoad(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id", "amount")
	path := "/api/sessions/" + sess.ID

	for _, body := range []string{
		`{"test":"expect_table_row_count_to_be_between","min_value":1}`,
		`{"test":"expect_column_to_exist","column":"id"}`,
		`{"test":"expect_column_values_to_be_between","column":"amount","min_value":0}`,
	} {
		rec := s.doJSON(http.MethodPost, path+"/rules", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodGet, path+"/document", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/yaml; charset=utf-8", rec.Header().Get("Content-Type"))
	rendered := rec.Body.String()
	assert.True(t, strings.HasPrefix(rendered, "version: 2\nmodels:\n"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &doc))
	models := doc["models"].([]any)
	model := models[0].(map[string]any)
	assert.Equal(t, "orders", model["name"])

	rec = s.do(http.MethodGet, path+"/document?model=payments", nil, "")
	assert.Contains(t, rec.Body.String(), "name: payments")

	// loading the rendered document into a fresh session reproduces the rules
	other := s.createSession("", "id", "amount")
	rec = s.do(http.MethodPut, "/api/sessions/"+other.ID+"/document", strings.NewReader(rendered), "application/yaml")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[SessionResponse](t, rec)
	assert.Equal(t, "orders", loaded.Model)
	assert.Len(t, loaded.Rules, 3)

	rec = s.do(http.MethodGet, "/api/sessions/"+other.ID+"/document", nil, "")
	assert.Equal(t, rendered, rec.Body.String())
}

func TestDocument_MalformedLeavesRulesUnchanged(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id")
	path := "/api/sessions/" + sess.ID

	rec := s.doJSON(http.MethodPost, path+"/rules", `{"test":"expect_column_to_exist","column":"id"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPut, path+"/document", strings.NewReader("expectations:\n  - column: id\n"), "application/yaml")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, dqerrors.ErrMalformedDocument, decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, path, nil, "")
	assert.Len(t, decode[SessionResponse](t, rec).Rules, 1)
}

func TestDocument_NeedsModel(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("")

	rec := s.do(http.MethodGet, "/api/sessions/"+sess.ID+"/document", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadColumns_Raw(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("")

	rec := s.do(http.MethodPost, "/api/sessions/"+sess.ID+"/columns?name=orders.csv",
		strings.NewReader("id,amount,created_at\n1,2,2024-01-01\n"), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SessionResponse](t, rec)
	assert.Equal(t, []string{"id", "amount", "created_at"}, resp.Columns)
	assert.Equal(t, "orders", resp.Model)
}

func TestUploadColumns_Multipart(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "payments.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("payment_id,total\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("model", "stg_payments"))
	require.NoError(t, mw.Close())

	rec := s.do(http.MethodPost, "/api/sessions/"+sess.ID+"/columns", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SessionResponse](t, rec)
	assert.Equal(t, []string{"payment_id", "total"}, resp.Columns)
	assert.Equal(t, "stg_payments", resp.Model)
}

func TestUploadColumns_Failures(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("")

	rec := s.do(http.MethodPost, "/api/sessions/"+sess.ID+"/columns", strings.NewReader(""), "text/csv")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dqerrors.ErrDatasetReadFailure, decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodPost, "/api/sessions/missing/columns", strings.NewReader("a,b\n"), "text/csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	sess := s.createSession("orders", "id")
	s.doJSON(http.MethodPost, "/api/sessions/"+sess.ID+"/rules", `{"test":"expect_column_to_exist","column":"id"}`)

	rec := s.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `dqrules_rule_changes_total{op="add"} 1`)
	assert.Contains(t, body, `dqrules_http_requests_total{code="201",method="POST",route="/api/sessions/{sid}/rules"} 1`)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil, "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProfilingRoutes(t *testing.T) {
	manager := session.NewManager(session.NewMemoryStore(), session.DefaultTTL, nil)
	t.Cleanup(func() { manager.Close() })
	a := New(catalog.Default(), manager, nil)

	off := a.Routes(Options{Registry: prometheus.NewRegistry()})
	rec := httptest.NewRecorder()
	off.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	on := a.Routes(Options{Registry: prometheus.NewRegistry(), Profiling: true})
	rec = httptest.NewRecorder()
	on.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
