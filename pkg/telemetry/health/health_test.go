package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"formarter/compliance/pkg/audit"
	"formarter/compliance/pkg/audit/storage"
	"formarter/compliance/pkg/checklist"
	"formarter/compliance/pkg/config"
	"formarter/compliance/pkg/library"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"default timeout", 0, config.DefaultHealthCheckTimeout},
		{"custom timeout", 10 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).checkTimeout; got != tt.want {
				t.Errorf("checkTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListChecks(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("store", func(context.Context) error { return nil })
	checker.RegisterCheck("catalog", func(context.Context) error { return nil })
	checker.RegisterCheck("catalog", func(context.Context) error { return nil })

	if diff := cmp.Diff([]string{"catalog", "store"}, checker.ListChecks()); diff != "" {
		t.Errorf("ListChecks() mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"catalog": func(context.Context) error { return nil },
				"store":   func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"catalog": func(context.Context) error { return nil },
				"store":   func(context.Context) error { return errors.New("database is locked") },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"store"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(status.Checks), len(tt.checks))
			}
			for _, name := range tt.wantFailed {
				if status.Checks[name].Status != StatusUnhealthy {
					t.Errorf("Checks[%q].Status = %q, want unhealthy", name, status.Checks[name].Status)
				}
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(50 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())

	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %q, want unhealthy", result.Status)
	}
	if result.Message != ErrCheckTimeout.Error() {
		t.Errorf("Message = %q, want %q", result.Message, ErrCheckTimeout.Error())
	}
}

func TestCatalogCheck(t *testing.T) {
	catalog, err := checklist.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}

	if err := CatalogCheck(func() *checklist.Catalog { return catalog })(context.Background()); err != nil {
		t.Errorf("CatalogCheck(loaded) error = %v", err)
	}
	if err := CatalogCheck(func() *checklist.Catalog { return nil })(context.Background()); err == nil {
		t.Error("CatalogCheck(nil) error = nil, want error")
	}
}

type brokenStore struct {
	audit.Store
}

func (brokenStore) Count(context.Context, *audit.Query) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestStoreCheck(t *testing.T) {
	if err := StoreCheck(storage.NewMemoryStorage())(context.Background()); err != nil {
		t.Errorf("StoreCheck() error = %v", err)
	}
	if err := StoreCheck(brokenStore{})(context.Background()); err == nil {
		t.Error("StoreCheck(broken) error = nil, want error")
	}
}

func TestLibraryCheck(t *testing.T) {
	lib := library.NewMemoryLibrary(&library.Document{ID: "doc-1", Text: "MOTION"})
	if err := LibraryCheck(lib)(context.Background()); err != nil {
		t.Errorf("LibraryCheck() error = %v", err)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		check    CheckFunc
		wantCode int
		wantBody bool
	}{
		{"ready", http.MethodGet, func(context.Context) error { return nil }, http.StatusOK, true},
		{"degraded", http.MethodGet, func(context.Context) error { return errors.New("down") }, http.StatusServiceUnavailable, true},
		{"head", http.MethodHead, func(context.Context) error { return nil }, http.StatusOK, false},
		{"post", http.MethodPost, func(context.Context) error { return nil }, http.StatusMethodNotAllowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			checker.RegisterCheck("store", tt.check)

			rec := httptest.NewRecorder()
			checker.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(tt.method, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !tt.wantBody {
				return
			}
			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if _, ok := body.Checks["store"]; !ok {
				t.Error("body has no store check")
			}
		})
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	Register(mux, New(time.Second), "/livez", "", BuildInfo{Version: "1.2.0"})

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/livez", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/version", http.StatusOK},
		{"/health", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	var info BuildInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if info.Version != "1.2.0" || info.GoVersion == "" {
		t.Errorf("version = %+v", info)
	}
}
