package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/errnorm"
	"github.com/i2y/legacybridge/internal/usecase"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization",
}

func setCORS(w http.ResponseWriter) {
	for k, v := range corsHeaders {
		w.Header().Set(k, v)
	}
}

func (h *Handlers) handlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

// proxy returns the handler forwarding one CRUD operation on
// /proxy/{resource}[/{id}].
func (h *Handlers) proxy(op domain.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		req := usecase.ForwardRequest{
			Resource:  r.PathValue("resource"),
			Operation: string(op),
			ID:        r.PathValue("id"),
		}
		if q := r.URL.Query(); len(q) > 0 {
			req.Query = q
		}

		if op == domain.OpCreate || op == domain.OpUpdate {
			body, apiErr := decodeRecord(w, r)
			if apiErr != nil {
				writeResult(w, usecase.ForwardResult{Status: apiErr.Status, Payload: apiErr})
				return
			}
			req.Body = body
		}

		result := h.forward.Forward(r.Context(), req)
		h.logger.Debug("Proxied request",
			slog.String("method", r.Method),
			slog.String("resource", req.Resource),
			slog.String("operation", req.Operation),
			slog.Int("status", result.Status))
		writeResult(w, result)
	}
}

// decodeRecord reads an optional JSON object body.
func decodeRecord(w http.ResponseWriter, r *http.Request) (map[string]any, *domain.APIError) {
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errnorm.New(domain.CodeValidation, http.StatusRequestEntityTooLarge, "Request body is too large")
		}
		return nil, errnorm.Validation([]string{"request body could not be read"}, "")
	}
	if len(raw) == 0 {
		return nil, nil
	}
	v, err := usecase.DecodeJSON(raw)
	if err != nil {
		return nil, errnorm.Validation([]string{"request body must be a JSON object"}, "")
	}
	if v == nil {
		return nil, nil
	}
	body, ok := v.(map[string]any)
	if !ok {
		return nil, errnorm.Validation([]string{"request body must be a JSON object"}, "")
	}
	return body, nil
}

func writeResult(w http.ResponseWriter, result usecase.ForwardResult) {
	if result.Payload == nil {
		w.WriteHeader(result.Status)
		return
	}
	writeJSON(w, result.Status, result.Payload)
}
