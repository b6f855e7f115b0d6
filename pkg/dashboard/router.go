// Package dashboard serves a read-only view of the latest scored file:
// KPIs, filtered customer rows and a CSV export.
package dashboard

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Row limits for /api/customers.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Handler struct {
	store  *Store
	logger log.FieldLogger
}

func NewHandler(store *Store, logger log.FieldLogger) *Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handler{store: store, logger: logger}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(handler.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok") })
	r.Get("/", handler.index)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", handler.getSummary)
		r.Get("/customers", handler.listCustomers)
		r.Get("/export.csv", handler.exportCSV)
	})
	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
		}).Debug("HTTP request")
	})
}
