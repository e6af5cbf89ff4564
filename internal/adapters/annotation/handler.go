// Package annotation serves the annotator-facing HTTP API on top of the core
// selection and progress service.
package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"aligncore/internal/core"
	"aligncore/pkg/domain"
)

const maxBodyBytes = 4 << 20

// Service is the subset of core.Service the handler needs.
type Service interface {
	EvaluateProgress(ctx context.Context) (core.ProgressReport, error)
	SelectNext(ctx context.Context, lang domain.Language) (core.NextSentence, error)
	SentenceByID(ctx context.Context, lang domain.Language, id string) (core.Sentence, error)
	Discard(ctx context.Context, id string) error
	Update(ctx context.Context, id string, lang domain.Language, block string) error
}

// Options configures a Handler.
type Options struct {
	// CORSOrigin is sent as Access-Control-Allow-Origin; "*" when empty.
	CORSOrigin string
	Logger     core.Logger
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// OpenAPI is served at GET /openapi.yaml when non-empty.
	OpenAPI []byte
}

// Handler routes annotation requests.
type Handler struct {
	svc     Service
	origin  string
	logger  core.Logger
	metrics http.Handler
	openapi []byte
	now     func() time.Time
}

// NewHandler constructs the HTTP handler.
func NewHandler(svc Service, opts Options) *Handler {
	h := &Handler{
		svc:     svc,
		origin:  opts.CORSOrigin,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		openapi: opts.OpenAPI,
		now:     time.Now,
	}
	if h.origin == "" {
		h.origin = "*"
	}
	if h.logger == nil {
		h.logger = discardLogger{}
	}
	return h
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", reqID)
	w.Header().Set("Access-Control-Allow-Origin", h.origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.route(rec, r)
	h.logger.Info("http request",
		"request_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", h.now().Sub(start))
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	path := strings.Trim(r.URL.Path, "/")
	switch path {
	case "stats":
		if !allow(w, r, http.MethodGet) {
			return
		}
		h.handleStats(w, r)
		return
	case "healthz":
		writeText(w, http.StatusOK, "ok")
		return
	case "metrics":
		if h.metrics == nil {
			http.NotFound(w, r)
			return
		}
		h.metrics.ServeHTTP(w, r)
		return
	case "openapi.yaml":
		if len(h.openapi) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(h.openapi)
		return
	}

	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		http.NotFound(w, r)
		return
	}
	lang, action := segments[0], segments[1]
	switch {
	case action == "byid" && len(segments) == 3:
		if allow(w, r, http.MethodGet) {
			h.handleByID(w, r, lang, segments[2])
		}
	case action == "nextsentence" && len(segments) == 2:
		if allow(w, r, http.MethodGet) {
			h.handleNext(w, r, lang)
		}
	case action == "discardsentence" && len(segments) == 2:
		if allow(w, r, http.MethodPost) {
			h.handleDiscard(w, r, lang)
		}
	case action == "updatesentence" && len(segments) == 2:
		if allow(w, r, http.MethodPost) {
			h.handleUpdate(w, r, lang)
		}
	default:
		http.NotFound(w, r)
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeText(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.EvaluateProgress(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "", "")
		return
	}
	writeText(w, http.StatusOK, report.Text())
}

type sentenceResponse struct {
	ID              string `json:"id"`
	DoneInOtherLang bool   `json:"done_in_other_lang"`
	Source          string `json:"source"`
	Target          string `json:"target"`
}

func toResponse(s core.Sentence) sentenceResponse {
	return sentenceResponse{ID: s.ID, DoneInOtherLang: s.DoneInOtherLang, Source: s.Source, Target: s.Target}
}

func (h *Handler) handleByID(w http.ResponseWriter, r *http.Request, lang, id string) {
	s, err := h.svc.SentenceByID(r.Context(), domain.Language(lang), id)
	if err != nil {
		h.writeServiceError(w, err, lang, id)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(s))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request, lang string) {
	next, err := h.svc.SelectNext(r.Context(), domain.Language(lang))
	if err != nil {
		h.writeServiceError(w, err, lang, "")
		return
	}
	if next.Done {
		writeJSON(w, http.StatusOK, map[string]bool{"done": true})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(next.Sentence))
}

type mutationRequest struct {
	ID     json.RawMessage `json:"id"`
	CoNLLU *string         `json:"conllu"`
}

func decodeMutation(w http.ResponseWriter, r *http.Request) (string, mutationRequest, error) {
	var req mutationRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", req, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return "", req, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if len(req.ID) == 0 {
		return "", req, fmt.Errorf("%w: missing id", domain.ErrInvalidPayload)
	}
	id, err := domain.DecodeID(req.ID)
	if err != nil {
		return "", req, err
	}
	return id, req, nil
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request, lang string) {
	if _, err := domain.ParseLanguage(lang); err != nil {
		h.writeServiceError(w, err, lang, "")
		return
	}
	id, _, err := decodeMutation(w, r)
	if err != nil {
		h.writeServiceError(w, err, lang, "")
		return
	}
	if err := h.svc.Discard(r.Context(), id); err != nil {
		h.writeServiceError(w, err, lang, id)
		return
	}
	writeText(w, http.StatusOK, "Update successful")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, lang string) {
	if _, err := domain.ParseLanguage(lang); err != nil {
		h.writeServiceError(w, err, lang, "")
		return
	}
	id, req, err := decodeMutation(w, r)
	if err != nil {
		h.writeServiceError(w, err, lang, "")
		return
	}
	if req.CoNLLU == nil {
		h.writeServiceError(w, fmt.Errorf("%w: missing conllu", domain.ErrInvalidPayload), lang, id)
		return
	}
	if err := h.svc.Update(r.Context(), id, domain.Language(lang), *req.CoNLLU); err != nil {
		h.writeServiceError(w, err, lang, id)
		return
	}
	writeText(w, http.StatusOK, "Update successful")
}

// writeServiceError maps error classes onto status codes. Caller mistakes get
// the plain-text messages annotator clients already understand.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, lang, id string) {
	switch {
	case errors.Is(err, domain.ErrInvalidLanguage):
		writeText(w, http.StatusBadRequest, "Wrong language: "+lang)
	case errors.Is(err, domain.ErrUnknownRecord):
		writeText(w, http.StatusBadRequest, "Wrong id: "+id)
	case errors.Is(err, domain.ErrInvalidPayload):
		writeText(w, http.StatusBadRequest, err.Error())
	default:
		code := core.Classify(err)
		h.logger.Error("request failed", "code", string(code), "error", err)
		status := http.StatusInternalServerError
		if code == core.CodeCancel {
			status = http.StatusServiceUnavailable
		}
		writeText(w, status, "internal error: "+string(code))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
