package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/raktkadi/internal/auth"
	"github.com/iurnickita/raktkadi/internal/handler/config"
	"github.com/iurnickita/raktkadi/internal/logger"
	"github.com/iurnickita/raktkadi/internal/metrics"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/service"
)

// Serve runs the HTTP API until ctx is done, then shuts the server down gracefully.
func Serve(ctx context.Context, cfg config.Config, auth auth.Auth, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(auth, service, metrics.New(), zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		zaplog.Info("starting server", zap.String("addr", cfg.ServerAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	zaplog.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type handler struct {
	auth    auth.Auth
	service service.Service
	metrics *metrics.Metrics
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, service service.Service, metrics *metrics.Metrics, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		service: service,
		metrics: metrics,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logger.RequestLogMdlw(h.zaplog))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))

	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Middleware)

		r.Post("/units", h.PostUnit)
		r.Get("/units/{code}", h.GetUnit)
		r.Get("/units/{code}/transactions", h.GetUnitTransactions)
		r.Post("/units/{code}/use", h.PostUseUnit)
		r.Get("/transactions", h.GetTransactions)

		r.Post("/requests", h.PostRequest)
		r.Get("/requests", h.GetRequests)
		r.Get("/requests/{id}", h.GetRequest)
		r.Post("/requests/{id}/respond", h.PostRespond)

		r.Get("/blood-banks/{group}", h.GetBloodBanks)
		r.Get("/blood-group/{group}", h.GetBloodGroup)

		r.Get("/alerts", h.GetAlerts)
		r.Post("/alerts/{id}/resolve", h.PostResolveAlert)
	})

	return r
}

// requestID keeps the caller's X-Request-Id or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError maps domain errors to HTTP status codes.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrBankDirectory):
		h.zaplog.Warn("bank directory", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.zaplog.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *handler) groupParam(r *http.Request) (model.BloodGroup, error) {
	raw := chi.URLParam(r, "group")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return model.ParseBloodGroup(raw)
}

func (h *handler) idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.ErrValidation
	}
	return id, nil
}
