// Package httpapi exposes the analysis and proxy use cases over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/usecase"
)

// maxConfigBody bounds POST /proxy/config and proxied request bodies.
const maxConfigBody = 10 << 20

// analyzeEnvelope leaves room for JSON escaping and the non-payload fields
// of an analysis request on top of the payload cap.
const analyzeEnvelope = 1 << 20

// Handlers holds the dependencies of the HTTP handlers.
type Handlers struct {
	analyze   *usecase.AnalyzeUseCase
	configure *usecase.ConfigureProxyUseCase
	forward   *usecase.ForwardUseCase
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(
	analyzeUC *usecase.AnalyzeUseCase,
	configureUC *usecase.ConfigureProxyUseCase,
	forwardUC *usecase.ForwardUseCase,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		analyze:   analyzeUC,
		configure: configureUC,
		forward:   forwardUC,
		logger:    logger.With("component", "http_handler"),
	}
}

// RegisterRoutes sets up every route except /metrics, which the caller
// mounts from its registry.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /analyze", h.handleAnalyze)

	mux.HandleFunc("GET /proxy/config", h.handleGetConfig)
	mux.HandleFunc("POST /proxy/config", h.handleSetConfig)
	mux.HandleFunc("DELETE /proxy/config", h.handleClearConfig)
	mux.HandleFunc("GET /proxy/status", h.handleStatus)

	mux.HandleFunc("GET /proxy/{resource}", h.proxy(domain.OpList))
	mux.HandleFunc("POST /proxy/{resource}", h.proxy(domain.OpCreate))
	mux.HandleFunc("GET /proxy/{resource}/{id}", h.proxy(domain.OpDetail))
	mux.HandleFunc("PUT /proxy/{resource}/{id}", h.proxy(domain.OpUpdate))
	mux.HandleFunc("PATCH /proxy/{resource}/{id}", h.proxy(domain.OpUpdate))
	mux.HandleFunc("DELETE /proxy/{resource}/{id}", h.proxy(domain.OpDelete))
	mux.HandleFunc("OPTIONS /proxy/{path...}", h.handlePreflight)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze implements POST /analyze.
func (h *Handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, int64(h.analyze.MaxPayload())+analyzeEnvelope)

	var req usecase.AnalyzeRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.logger.Warn("Failed to decode analyze request body", slog.Any("error", err))
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.analyze.Execute(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, usecase.ErrPayloadTooLarge):
		writeDetail(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, usecase.ErrInvalidInput):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Analysis failed", slog.String("mode", string(req.Mode)), slog.Any("error", err))
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
	}
}

// configView is the GET /proxy/config body for an active configuration.
type configView struct {
	*domain.ProxyConfig
	Configured bool `json:"configured"`
}

func (h *Handlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configure.Current(r.Context())
	switch {
	case errors.Is(err, usecase.ErrConfigNotSet):
		writeJSON(w, http.StatusOK, map[string]bool{"configured": false})
	case err != nil:
		h.logger.Error("Failed to read proxy configuration", slog.Any("error", err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, configView{ProxyConfig: cfg, Configured: true})
	}
}

func (h *Handlers) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxConfigBody))
		return
	}

	cfg, err := h.configure.Configure(r.Context(), raw)
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "Configuration saved successfully",
			"config":  cfg,
		})
	}
}

func (h *Handlers) handleClearConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.configure.Clear(r.Context()); err != nil {
		h.logger.Error("Failed to clear proxy configuration", slog.Any("error", err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Configuration cleared successfully",
	})
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.configure.Status(r.Context())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
