// Package httpapi содержит REST-интерфейс сервиса заказов.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderflow/internal/domain"
	"github.com/vladislavdragonenkov/orderflow/internal/service/order"
)

const (
	// HeaderIdempotencyKey — заголовок клиентского ключа идемпотентности.
	HeaderIdempotencyKey = "Idempotency-Key"

	defaultPageSize = 20
	maxPageSize     = 100

	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// OrderService — операции, которые транспорт делегирует оркестратору.
type OrderService interface {
	Create(ctx context.Context, idempotencyKey string, req order.CreateRequest) (domain.Order, bool, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, offset, limit int) ([]domain.Order, int, error)
	Cancel(ctx context.Context, orderID string, target domain.OrderStatus) (domain.Order, error)
	Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error)
}

// Server обслуживает REST API заказов.
type Server struct {
	service OrderService
	logger  *log.Entry
	router  chi.Router
}

// NewServer создаёт HTTP-сервер с настроенными маршрутами.
func NewServer(service OrderService, logger *log.Entry) *Server {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}

	s := &Server{
		service: service,
		logger:  logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", s.createOrder)
		r.Get("/", s.listOrders)
		r.Get("/{id}", s.getOrder)
		r.Put("/{id}", s.updateOrderStatus)
		r.Get("/{id}/timeline", s.getTimeline)
	})

	return r
}

// Handler возвращает корневой http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe запускает сервер и завершает его при отмене ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("addr", addr).Info("http api listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, domain.NewValidationError(domain.FieldError{
			Field:   "body",
			Message: "invalid json: " + err.Error(),
		}))
		return
	}

	idempotencyKey := r.Header.Get(HeaderIdempotencyKey)

	created, replayed, err := s.service.Create(r.Context(), idempotencyKey, req.toServiceRequest())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		// Повтор по ключу идемпотентности отдаёт сохранённый результат.
		status = http.StatusOK
		w.Header().Set("Idempotent-Replayed", "true")
	}
	s.writeJSON(w, status, toOrderResponse(created))
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toOrderResponse(found))
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", defaultPageSize)
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	orders, total, err := s.service.List(r.Context(), page*size, size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := orderListResponse{
		Orders: make([]orderResponse, 0, len(orders)),
		Total:  total,
		Page:   page,
		Size:   size,
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, domain.NewValidationError(domain.FieldError{
			Field:   "body",
			Message: "invalid json: " + err.Error(),
		}))
		return
	}
	if req.Status == "" {
		s.writeError(w, r, domain.NewValidationError(domain.FieldError{
			Field:   "status",
			Message: "must not be empty",
		}))
		return
	}

	target := domain.OrderStatus(strings.ToLower(req.Status))
	cancelled, err := s.service.Cancel(r.Context(), id, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toOrderResponse(cancelled))
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, err := s.service.Timeline(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toTimelineResponse(events))
}

// logRequests пишет access log в стиле остального сервиса.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("http request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := toErrorResponse(err)

	entry := s.logger.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"status": status,
		"code":   resp.Code,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}

	s.writeJSON(w, status, resp)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
