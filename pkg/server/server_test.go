package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/audit/storage"
	"formarter/compliance/pkg/auditor"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/config"
	"formarter/compliance/pkg/library"
	"formarter/compliance/pkg/security/auth"
	"formarter/compliance/pkg/telemetry/health"
	"formarter/compliance/pkg/telemetry/metrics"
)

const testCatalog = `
name: test
version: "1"
rules:
  - id: 1
    category: caption
    description: Caption names the plaintiff
    severity: critical
    auto_checkable: true
    primary: 'PLAINTIFF'
  - id: 2
    category: motion_content
    description: Title says temporary restraining order
    auto_checkable: true
    primary: 'TEMPORARY RESTRAINING ORDER'
  - id: 3
    category: signature
    description: Signed by counsel of record
    auto_checkable: false
`

const passingMotion = "JANE DOE, Plaintiff\nMOTION FOR TEMPORARY RESTRAINING ORDER\n"

func newTestServer(t *testing.T, modify ...func(*Options)) *Server {
	t.Helper()
	catalog, err := checklist.Load([]byte(testCatalog))
	if err != nil {
		t.Fatalf("checklist.Load() error = %v", err)
	}
	lib := library.NewMemoryLibrary(
		&library.Document{ID: "case-1/motion", Collection: "case-1", Text: passingMotion},
		&library.Document{ID: "case-1/draft", Collection: "case-1", Text: "MOTION\n"},
	)
	a, err := auditor.New(auditor.Options{
		Catalog: catalog,
		Library: lib,
		Store:   storage.NewMemoryStorage(),
	})
	if err != nil {
		t.Fatalf("auditor.New() error = %v", err)
	}

	cfg := config.Default()
	opts := Options{
		Auditor: a,
		Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		Build:   health.BuildInfo{Version: "test"},
	}
	for _, m := range modify {
		m(&opts)
	}
	srv, err := New(&cfg.Server, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
	if _, err := New(&config.ServerConfig{}, Options{}); err == nil {
		t.Error("New() without auditor error = nil, want error")
	}
}

func TestCreateAudit_Document(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"case-1/motion"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	got := decode[audit.Record](t, rec)
	if got.Status != audit.StateCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Summary.Passed != 2 || got.Summary.Failed != 0 || got.Summary.ManualReview != 1 {
		t.Errorf("summary = %+v, want 2 passed, 0 failed, 1 manual", got.Summary)
	}
	if got.Summary.Score != 100 {
		t.Errorf("score = %v, want 100", got.Summary.Score)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestCreateAudit_Text(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"inline","text":"MOTION\n","context":{"is_ex_parte":true}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	got := decode[audit.Record](t, rec)
	if got.DocumentID != "inline" {
		t.Errorf("document_id = %q, want inline", got.DocumentID)
	}
	if !got.Context.IsExParte {
		t.Error("context.is_ex_parte = false, want true")
	}
	if diff := cmp.Diff([]audit.CriticalIssue{{RuleID: 1, Description: "Caption names the plaintiff"}}, got.CriticalIssues); diff != "" {
		t.Errorf("critical issues mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateAudit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"empty body", "", http.StatusBadRequest, CodeInvalidRequest},
		{"invalid json", "{", http.StatusBadRequest, CodeInvalidRequest},
		{"unknown field", `{"doc":"x"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"missing id", `{"text":"abc"}`, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown document", `{"document_id":"nope"}`, http.StatusNotFound, CodeNotFound},
	}

	h := newTestServer(t).Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/audits", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := decode[ErrorBody](t, rec).Error.Code; got != tt.wantErr {
				t.Errorf("error code = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestCreateAudit_BodyTooLarge(t *testing.T) {
	srv := newTestServer(t)
	srv.config.MaxBodyBytes = 16
	h := srv.setupRoutes()

	rec := do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"inline","text":"`+strings.Repeat("x", 64)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	created := decode[audit.Record](t, do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"case-1/draft"}`))

	rec := do(t, h, http.MethodGet, "/v1/audits/"+created.SessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET audit status = %d, want 200", rec.Code)
	}
	if got := decode[audit.Record](t, rec); got.SessionID != created.SessionID {
		t.Errorf("session_id = %q, want %q", got.SessionID, created.SessionID)
	}

	progress := decode[auditor.ProgressReport](t, do(t, h, http.MethodGet, "/v1/audits/"+created.SessionID+"/progress", ""))
	if progress.Progress.PercentComplete != 100 || progress.Progress.TotalItems != 3 {
		t.Errorf("progress = %+v, want 3 items at 100%%", progress.Progress)
	}

	guidance := decode[auditor.FailingGuidance](t, do(t, h, http.MethodGet, "/v1/audits/"+created.SessionID+"/guidance", ""))
	var ids []int
	for _, g := range guidance.Failing {
		ids = append(ids, g.RuleID)
	}
	if diff := cmp.Diff([]int{1, 2}, ids); diff != "" {
		t.Errorf("failing ids mismatch (-want +got):\n%s", diff)
	}
}

func TestFailingGuidance_NoFailuresIsNotNotFound(t *testing.T) {
	h := newTestServer(t).Handler()

	created := decode[audit.Record](t, do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"case-1/motion"}`))
	rec := do(t, h, http.MethodGet, "/v1/audits/"+created.SessionID+"/guidance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"failing":[]`) {
		t.Errorf("body = %s, want empty failing list", rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/v1/audits/missing/guidance", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", rec.Code)
	}
}

func TestAuditCollection(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/v1/collections/case-1/audits", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Sessions       []*audit.Record `json:"sessions"`
		AggregateScore float64         `json:"aggregate_score"`
		CommonIssues   []int           `json:"common_issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got.Sessions) != 2 {
		t.Errorf("len(sessions) = %d, want 2", len(got.Sessions))
	}
	if got.AggregateScore != 50 {
		t.Errorf("aggregate_score = %v, want 50", got.AggregateScore)
	}

	rec = do(t, h, http.MethodPost, "/v1/collections/nope/audits", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown collection status = %d, want 404", rec.Code)
	}
}

func TestListAudits(t *testing.T) {
	h := newTestServer(t).Handler()
	do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"case-1/motion"}`)
	do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"case-1/motion"}`)
	do(t, h, http.MethodPost, "/v1/audits", `{"document_id":"case-1/draft"}`)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantCount int
	}{
		{"all", "", http.StatusOK, 3},
		{"by document", "?document_id=case-1/motion", http.StatusOK, 2},
		{"limit", "?limit=1", http.StatusOK, 1},
		{"none", "?document_id=other", http.StatusOK, 0},
		{"bad limit", "?limit=0", http.StatusBadRequest, 0},
		{"bad offset", "?offset=-1", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/v1/audits"+tt.query, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if got := decode[HistoryResponse](t, rec); got.Count != tt.wantCount || len(got.Records) != tt.wantCount {
				t.Errorf("count = %d (%d records), want %d", got.Count, len(got.Records), tt.wantCount)
			}
		})
	}
}

func TestRules(t *testing.T) {
	h := newTestServer(t).Handler()

	got := decode[RulesResponse](t, do(t, h, http.MethodGet, "/v1/rules", ""))
	if got.Catalog != "test" || len(got.Rules) != 3 {
		t.Errorf("rules = %s with %d rules, want test with 3", got.Catalog, len(got.Rules))
	}

	got = decode[RulesResponse](t, do(t, h, http.MethodGet, "/v1/rules?category=signature", ""))
	if len(got.Rules) != 1 || got.Rules[0].ID != 3 {
		t.Errorf("signature rules = %+v, want rule 3", got.Rules)
	}

	if rec := do(t, h, http.MethodGet, "/v1/rules?category=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus category status = %d, want 400", rec.Code)
	}
}

func TestRuleGuidance(t *testing.T) {
	tests := []struct {
		path     string
		wantCode int
	}{
		{"/v1/rules/1/guidance", http.StatusOK},
		{"/v1/rules/99/guidance", http.StatusNotFound},
		{"/v1/rules/abc/guidance", http.StatusBadRequest},
	}

	h := newTestServer(t).Handler()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestTelemetryEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()
	do(t, h, http.MethodGet, "/v1/rules", "")

	for _, path := range []string{"/health", "/ready", "/version"} {
		if rec := do(t, h, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{code="200",route="GET /v1/rules"}`) {
		t.Errorf("metrics missing route counter:\n%s", rec.Body.String())
	}
}

func TestStartShutdown(t *testing.T) {
	srv := newTestServer(t)
	srv.config.ListenAddress = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	keys := auth.NewKeySet([]config.APIKey{{Name: "ci", Key: "ci-0123456789abcdef"}})
	h := newTestServer(t, func(o *Options) { o.Keys = keys }).Handler()

	tests := []struct {
		name       string
		path       string
		key        string
		wantStatus int
	}{
		{"api without key", "/v1/rules", "", http.StatusUnauthorized},
		{"api with wrong key", "/v1/rules", "wrong-0123456789abcdef", http.StatusUnauthorized},
		{"api with key", "/v1/rules", "ci-0123456789abcdef", http.StatusOK},
		{"liveness stays open", config.DefaultLivenessPath, "", http.StatusOK},
		{"version stays open", "/version", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("Authorization", "Bearer "+tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}
