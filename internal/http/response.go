package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/catalog"
	"github.com/ErnestIssa/peak-mode/internal/checkout"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts service errors to HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Code: "invalid_argument", Details: verr.Field})
	case errors.Is(err, cart.ErrMissingProfile):
		respondError(w, http.StatusBadRequest, "missing_profile", err.Error())
	case errors.Is(err, catalog.ErrUnknownSource):
		respondError(w, http.StatusBadRequest, "unknown_source", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, checkout.ErrDialogNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, checkout.ErrInFlight),
		errors.Is(err, checkout.ErrDialogClosed),
		errors.Is(err, checkout.ErrIllegalTransition),
		errors.Is(err, checkout.ErrSessionStale),
		errors.Is(err, cart.ErrCurrencyMismatch):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, catalog.ErrVariantNotFound):
		respondError(w, http.StatusUnprocessableEntity, "unprocessable", err.Error())
	case errors.Is(err, catalog.ErrUpstream),
		errors.Is(err, gateway.ErrRejected):
		respondError(w, http.StatusBadGateway, "upstream_error", err.Error())
	case errors.Is(err, gateway.ErrUnreachable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		slog.Error("unhandled request error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
