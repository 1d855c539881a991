// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "resume-analyzer/internal/common/errors"
	"resume-analyzer/internal/common/logger"
	"resume-analyzer/internal/common/validation"
	"resume-analyzer/internal/models"
	"resume-analyzer/internal/search"
	"resume-analyzer/internal/storage"
	"resume-analyzer/internal/store"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	readyTimeout    = 2 * time.Second
)

// Submitter is the blocking submission path, implemented by the dispatcher.
type Submitter interface {
	Submit(ctx context.Context, payload models.RequestPayload) (*models.Result, error)
	SubmitWithFile(ctx context.Context, payload models.RequestPayload, fileKey string) (*models.Result, error)
}

// Searcher runs full-text queries over completed analyses.
type Searcher interface {
	Search(ctx context.Context, text string, from, size int) ([]search.Document, int64, error)
}

// ReadinessCheck is one dependency checked by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Dependencies are the collaborators of Handler. Objects and Searcher are
// optional; their routes answer 503 when unset.
type Dependencies struct {
	Submitter      Submitter
	Records        store.RecordStore
	Objects        storage.ObjectStore
	Searcher       Searcher
	Checks         []ReadinessCheck
	MaxUploadBytes int64
}

type Handler struct {
	deps   Dependencies
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(deps Dependencies, errHandler *apperrors.ErrorHandler, log logger.Logger) *Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		deps:   deps,
		errors: errHandler,
		logger: log.With(map[string]interface{}{"component": "api"}),
	}
}

// SubmitAnalysis handles POST /api/analyses with a JSON payload.
func (h *Handler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	var payload models.RequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("body must be a JSON object with text and context"))
		return
	}
	if err := validation.Struct(payload); err != nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	result, err := h.deps.Submitter.Submit(r.Context(), payload)
	h.writeSubmission(w, r, result, err)
}

// AnalyzeUpload handles POST /api/analyze: the resume is stored first and the
// request references it by key.
func (h *Handler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if h.deps.Objects == nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewObjectStoreUnavailableError("upload", errors.New("object storage is not configured")))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.deps.MaxUploadBytes); err != nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError(fmt.Sprintf("invalid multipart form: %v", err)))
		return
	}

	jobDescription := r.FormValue("jobDescription")
	if jobDescription == "" {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("jobDescription is required"))
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("resume file is required"))
		return
	}
	defer file.Close()

	key, err := h.deps.Objects.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	payload := models.RequestPayload{
		Text:    "Resume file: " + key,
		Context: jobDescription,
	}
	result, err := h.deps.Submitter.SubmitWithFile(r.Context(), payload, key)
	h.writeSubmission(w, r, result, err)
}

func (h *Handler) writeSubmission(w http.ResponseWriter, r *http.Request, result *models.Result, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Warn("Client went away before the submission finished", map[string]interface{}{
				"path": r.URL.Path,
			})
			return
		}
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Status == models.ResultPendingTimeout {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// GetAnalysis handles GET /api/analyses/{id}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("id must be a positive integer"))
		return
	}

	record, err := h.deps.Records.Get(r.Context(), id)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	h.attachFileURL(r.Context(), record)
	writeJSON(w, http.StatusOK, record)
}

// ListAnalyses handles GET /api/analyses?page=&size=, newest first.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	items, total, err := h.deps.Records.List(r.Context(), page, size)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}
	for _, item := range items {
		h.attachFileURL(r.Context(), item)
	}

	writeJSON(w, http.StatusOK, models.NewPage(items, page, size, total))
}

type searchPage struct {
	Items       []search.Document `json:"analyses"`
	CurrentPage int               `json:"currentPage"`
	TotalItems  int64             `json:"totalItems"`
	TotalPages  int               `json:"totalPages"`
}

// SearchAnalyses handles GET /api/analyses/search?q=.
func (h *Handler) SearchAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.deps.Searcher == nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewSearchUnavailableError("search", errors.New("search index is not configured")))
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("q is required"))
		return
	}
	page, size, err := pageParams(r)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	docs, total, err := h.deps.Searcher.Search(r.Context(), query, page*size, size)
	if err != nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewSearchUnavailableError("search", err))
		return
	}
	if docs == nil {
		docs = []search.Document{}
	}

	writeJSON(w, http.StatusOK, searchPage{
		Items:       docs,
		CurrentPage: page,
		TotalItems:  total,
		TotalPages:  int((total + int64(size) - 1) / int64(size)),
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready checks every configured dependency.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failures := make(map[string]string)
	for _, c := range h.deps.Checks {
		if err := c.Check(ctx); err != nil {
			failures[c.Name] = err.Error()
		}
	}

	if len(failures) > 0 {
		h.logger.Warn("Readiness check failed", map[string]interface{}{"failures": failures})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"checks": failures,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) attachFileURL(ctx context.Context, a *models.Analysis) {
	if h.deps.Objects == nil || a.FileKey == "" {
		return
	}
	url, err := h.deps.Objects.PresignGet(ctx, a.FileKey)
	if err != nil {
		h.logger.Warn("Failed to presign file URL", map[string]interface{}{
			"id":    a.ID,
			"key":   a.FileKey,
			"error": err,
		})
		return
	}
	a.FileURL = url
}

func pageParams(r *http.Request) (int, int, error) {
	page, size := 0, defaultPageSize
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, apperrors.NewInvalidRequestError("page must be a non-negative integer")
		}
		page = v
	}
	if raw := q.Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxPageSize {
			return 0, 0, apperrors.NewInvalidRequestError(fmt.Sprintf("size must be between 1 and %d", maxPageSize))
		}
		size = v
	}
	return page, size, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
