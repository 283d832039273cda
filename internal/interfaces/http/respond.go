package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"certlink/internal/domain/account"
	"certlink/internal/domain/certificate"
	"certlink/internal/domain/client"
	"certlink/internal/domain/operator"
	"certlink/internal/domain/workspace"
	"certlink/internal/shared/middleware"
)

// maxJSONBody caps JSON request bodies
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// writeError maps domain errors onto status codes. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *certificate.ValidationError
	var registration *certificate.RegistrationError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Err.Error(), Field: validation.Field})
	case errors.As(err, &registration):
		if registration.Message != "" {
			writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: registration.Message})
		} else {
			writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: registration.Error()})
		}
	case errors.Is(err, client.ErrClientNotFound),
		errors.Is(err, certificate.ErrCertificateNotFound),
		errors.Is(err, account.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, workspace.ErrUploadInProgress),
		errors.Is(err, workspace.ErrNotLinking),
		errors.Is(err, workspace.ErrDuplicateID),
		errors.Is(err, account.ErrAlreadyLinked):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, workspace.ErrEmptySelection),
		errors.Is(err, workspace.ErrNotCandidate),
		errors.Is(err, workspace.ErrNoClientSelected),
		errors.Is(err, workspace.ErrClientMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, workspace.ErrUnknownList),
		errors.Is(err, account.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, operator.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	case errors.Is(err, operator.ErrDomainNotAllowed):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

// operatorKey identifies the caller's workspace
func operatorKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	op, ok := middleware.Operator(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return op.Email, true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
