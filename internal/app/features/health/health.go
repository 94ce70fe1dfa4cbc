// internal/app/features/health/health.go
package health

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/jsonutil"
	"github.com/mthunzitrust/mthunzisite/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Handler provides health check endpoints.
type Handler struct {
	required Check
	checks   map[string]Check
	logger   *zap.Logger
}

// NewHandler creates a health Handler. The MongoDB ping gates readiness;
// extra checks only show up in the /health report.
func NewHandler(mongoClient *mongo.Client, logger *zap.Logger, extra map[string]Check) *Handler {
	checks := map[string]Check{"mongodb": Mongo(mongoClient)}
	for name, c := range extra {
		checks[name] = c
	}
	return &Handler{
		required: checks["mongodb"],
		checks:   checks,
		logger:   logger,
	}
}

// Mongo pings the primary.
func Mongo(client *mongo.Client) Check {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("no mongo client")
		}
		return client.Ping(ctx, readpref.Primary())
	}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds /ready, /readyz and /livez directly on the root
// router for Kubernetes probes.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// Check runs every registered check. The status is "degraded" (503) only
// when MongoDB is down; other failures are reported per service.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := Response{Status: "ok", Services: make(map[string]string, len(h.checks))}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Services[name] = "unavailable"
			h.logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
			if name == "mongodb" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Services[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready checks if the service is ready to accept requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.required(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live checks if the process is alive.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
