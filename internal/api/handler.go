package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/qsched/internal/config"
	"github.com/gyaneshwarpardhi/qsched/internal/engine"
	"github.com/gyaneshwarpardhi/qsched/internal/errs"
	"github.com/gyaneshwarpardhi/qsched/internal/job"
	"github.com/gyaneshwarpardhi/qsched/internal/metrics"
)

const (
	maxBatchSize = 100
	maxBodyBytes = 4 << 20
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/compile", h.compile)
	h.mux.HandleFunc("POST /v1/compile/batch", h.compileBatch)
	h.mux.HandleFunc("GET /v1/jobs/{id}", h.getJob)
	h.mux.HandleFunc("GET /v1/platform", h.getPlatform)
	h.mux.HandleFunc("POST /v1/platform/reload", h.reloadPlatform)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// decodeBody reads a YAML or JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := yaml.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return err
	}
	return nil
}

// POST /v1/compile: synchronous compilation of one program.
func (h *Handler) compile(w http.ResponseWriter, r *http.Request) {
	var req job.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err))
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.ReceivedAt = time.Now()

	res, err := h.eng.ProcessSync(r.Context(), &req)
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, engine.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, resultStatus(res), res)
}

func resultStatus(res *job.Result) int {
	switch {
	case !res.Failed():
		return http.StatusOK
	case res.ErrorKind == job.ErrorKindUser:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// POST /v1/compile/batch: async batch compilation (up to 100 programs).
func (h *Handler) compileBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []*job.Request
	if err := decodeBody(w, r, &reqs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one program")
		return
	}
	if len(reqs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(reqs), maxBatchSize))
		return
	}

	now := time.Now()
	batchID := uuid.New().String()
	jobIDs := make([]string, 0, len(reqs))
	rejections := make([]map[string]string, 0)
	for _, req := range reqs {
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		req.ReceivedAt = now
		if err := h.eng.ProcessAsync(req); err != nil {
			rejections = append(rejections, map[string]string{"id": req.ID, "error": err.Error()})
			continue
		}
		jobIDs = append(jobIDs, req.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id":   batchID,
		"job_ids":    jobIDs,
		"total":      len(reqs),
		"queued":     len(jobIDs),
		"rejected":   len(rejections),
		"rejections": rejections,
	})
}

// GET /v1/jobs/{id}: result of an asynchronous job.
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, done, ok := h.eng.Result(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown job %q", id))
		return
	}
	if !done {
		writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "status": "pending"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /v1/platform: the loaded platform and pass pipeline.
func (h *Handler) getPlatform(w http.ResponseWriter, r *http.Request) {
	plat := h.eng.Platform()
	cfg := plat.Config
	instructions := make([]map[string]any, 0, len(cfg.Instructions))
	for _, in := range cfg.Instructions {
		it, _ := plat.IR.InstructionType(in.Name)
		instructions = append(instructions, map[string]any{
			"name":     in.Name,
			"cycles":   it.Duration,
			"operands": len(it.Operands),
			"kind":     in.Kind,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":      cfg.Version,
		"name":         cfg.Name,
		"qubits":       cfg.Qubits,
		"cycle_time":   cfg.CycleTime,
		"instructions": instructions,
		"resources":    plat.Resources.Len(),
		"passes":       h.eng.Passes(),
	})
}

// POST /v1/platform/reload: hot-reload the platform from disk.
func (h *Handler) reloadPlatform(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// OnChange subscribers may already have swapped the new platform in.
	if h.eng.Platform().Config != cfg {
		if err := h.eng.LoadPlatform(cfg); err != nil {
			status := http.StatusInternalServerError
			if errs.IsUser(err) {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, status, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded": true,
		"platform": cfg.Name,
		"version":  cfg.Version,
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the compile queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"queue_utilization": util,
		"active_workers":    h.eng.ActiveWorkers(),
	})
}
