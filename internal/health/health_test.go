package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandler_Healthy(t *testing.T) {
	t.Parallel()

	h := NewHandler("1.0.0")
	h.RegisterPing("postgres", func(ctx context.Context) error { return nil })
	h.RegisterPing("kafka", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Fatalf("overall = %s, want healthy", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Fatalf("version = %s, want 1.0.0", resp.Version)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("checks = %d, want 2", len(resp.Checks))
	}
	// Проверки отсортированы по имени.
	if resp.Checks[0].Name != "kafka" || resp.Checks[1].Name != "postgres" {
		t.Fatalf("unexpected check order: %s, %s", resp.Checks[0].Name, resp.Checks[1].Name)
	}
}

func TestHandler_Unhealthy(t *testing.T) {
	t.Parallel()

	h := NewHandler("1.0.0")
	h.RegisterPing("postgres", func(ctx context.Context) error { return nil })
	h.RegisterPing("kafka", func(ctx context.Context) error {
		return errors.New("broker unreachable")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Fatalf("overall = %s, want unhealthy", resp.Status)
	}

	var failed *Check
	for i := range resp.Checks {
		if resp.Checks[i].Name == "kafka" {
			failed = &resp.Checks[i]
		}
	}
	if failed == nil {
		t.Fatal("kafka check missing from response")
	}
	if failed.Status != StatusUnhealthy || failed.Message != "broker unreachable" {
		t.Fatalf("unexpected failed check: %+v", failed)
	}
}

func TestHandler_DegradedDoesNotFailProbe(t *testing.T) {
	t.Parallel()

	h := NewHandler("")
	h.RegisterChecker("cache", CheckerFunc(func(ctx context.Context) Check {
		return Check{Name: "cache", Status: StatusDegraded, Message: "slow responses"}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded status = %d, want 200", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != StatusDegraded {
		t.Fatalf("overall = %s, want degraded", resp.Status)
	}
}

func TestHandler_NoCheckers(t *testing.T) {
	t.Parallel()

	h := NewHandler("")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	h := NewHandler("")
	h.RegisterPing("postgres", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", rec.Code)
	}

	h.RegisterPing("postgres", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("not-ready status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", rec.Body.String())
	}
}

func TestChecker_ReceivesContext(t *testing.T) {
	t.Parallel()

	h := NewHandler("")
	h.RegisterChecker("ctx", CheckerFunc(func(ctx context.Context) Check {
		if _, ok := ctx.Deadline(); !ok {
			return Check{Name: "ctx", Status: StatusUnhealthy, Message: "no deadline"}
		}
		return Check{Name: "ctx", Status: StatusHealthy}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("checks must run with a deadline-bound context, status = %d", rec.Code)
	}
}
