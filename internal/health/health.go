// Package health реализует health/readiness пробы сервиса заказов.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status представляет статус компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const checkTimeout = 3 * time.Second

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — агрегированный ответ health check.
type Response struct {
	Status        Status  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	Checks        []Check `json:"checks,omitempty"`
	Version       string  `json:"version,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Checker проверяет здоровье одного компонента.
type Checker interface {
	Check(ctx context.Context) Check
}

// CheckerFunc адаптирует функцию проверки к интерфейсу Checker.
type CheckerFunc func(ctx context.Context) Check

func (f CheckerFunc) Check(ctx context.Context) Check { return f(ctx) }

// Handler обрабатывает health check запросы.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
}

// NewHandler создаёт health handler.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker регистрирует проверку компонента.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// RegisterPing регистрирует проверку на основе ping-функции.
func (h *Handler) RegisterPing(name string, ping func(ctx context.Context) error) {
	h.RegisterChecker(name, CheckerFunc(func(ctx context.Context) Check {
		start := time.Now()
		err := ping(ctx)
		check := Check{
			Name:       name,
			Status:     StatusHealthy,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	}))
}

func (h *Handler) runChecks(ctx context.Context) ([]Check, Status) {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	checks := make([]Check, 0, len(checkers))
	overall := StatusHealthy
	for _, checker := range checkers {
		check := checker.Check(ctx)
		checks = append(checks, check)

		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	return checks, overall
}

// ServeHTTP возвращает развёрнутый статус всех компонентов.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks, overall := h.runChecks(r.Context())

	response := Response{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler — liveness probe, всегда 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, если хотя бы один компонент нездоров.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	_, overall := h.runChecks(r.Context())
	if overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
