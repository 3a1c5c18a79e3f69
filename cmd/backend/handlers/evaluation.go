package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/draphael123/Evaluation-Tracker/evaluation"
	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/runner"
	"github.com/draphael123/Evaluation-Tracker/storage"
)

// EvaluationHandler handles evaluation-related requests.
type EvaluationHandler struct {
	store      evaluation.Store
	blobs      storage.BlobStorage
	workerPool *runner.WorkerPool
	logger     logger.Logger
}

// NewEvaluationHandler creates a new evaluation handler. The worker pool may
// be nil, in which case queued runs wait for an external runner.
func NewEvaluationHandler(store evaluation.Store, blobs storage.BlobStorage, pool *runner.WorkerPool, log logger.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		store:      store,
		blobs:      blobs,
		workerPool: pool,
		logger:     log,
	}
}

// Create handles queueing a new evaluation.
func (h *EvaluationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cfg evaluation.Config
	if err := parseJSON(r, &cfg, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := evaluation.New(cfg)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), e); err != nil {
		h.logger.Error(r.Context(), "failed to create evaluation", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to create evaluation")
		return
	}

	// Notify the worker pool that a new run is queued.
	if h.workerPool != nil {
		h.workerPool.Notify()
	}

	respondJSON(w, http.StatusCreated, e)
}

// List handles listing evaluations.
func (h *EvaluationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	total, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "failed to count evaluations", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to count evaluations")
		return
	}

	evaluations, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error(r.Context(), "failed to list evaluations", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list evaluations")
		return
	}

	respondJSON(w, http.StatusOK, NewPaginatedResponse(evaluations, total, limit, offset))
}

// GetByID handles getting a single evaluation, including its audit trail.
func (h *EvaluationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "evaluation")
	if !ok {
		return
	}

	e, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, evaluation.ErrEvaluationNotFound) {
			respondError(w, http.StatusNotFound, "evaluation not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get evaluation", map[string]interface{}{
			"error":         err.Error(),
			"evaluation_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get evaluation")
		return
	}

	respondJSON(w, http.StatusOK, e)
}

// Screenshot streams the stored screenshot for one step of an evaluation.
func (h *EvaluationHandler) Screenshot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDOrRespond(w, r, "id", "evaluation")
	if !ok {
		return
	}

	stepNumber, err := strconv.Atoi(mux.Vars(r)["step"])
	if err != nil || stepNumber < 1 {
		respondError(w, http.StatusBadRequest, "invalid step number")
		return
	}

	e, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, evaluation.ErrEvaluationNotFound) {
			respondError(w, http.StatusNotFound, "evaluation not found")
			return
		}
		h.logger.Error(r.Context(), "failed to get evaluation", map[string]interface{}{
			"error":         err.Error(),
			"evaluation_id": id,
		})
		respondError(w, http.StatusInternalServerError, "failed to get evaluation")
		return
	}

	if stepNumber > len(e.Steps) {
		respondError(w, http.StatusNotFound, "step not found")
		return
	}
	path := e.Steps[stepNumber-1].ScreenshotPath
	if path == "" {
		respondError(w, http.StatusNotFound, "no screenshot recorded for this step")
		return
	}

	reader, err := h.blobs.Download(r.Context(), path)
	if err != nil {
		h.logger.Error(r.Context(), "failed to download screenshot", map[string]interface{}{
			"error": err.Error(),
			"path":  path,
		})
		respondError(w, http.StatusInternalServerError, "failed to download screenshot")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn(r.Context(), "screenshot stream interrupted", map[string]interface{}{
			"error": err.Error(),
			"path":  path,
		})
	}
}
