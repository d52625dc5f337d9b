package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"duotoeic/internal/apperr"
)

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeValidation:      http.StatusBadRequest,
	apperr.CodePermission:      http.StatusForbidden,
	apperr.CodeStateInvariant:  http.StatusConflict,
	apperr.CodeBusy:            http.StatusConflict,
	apperr.CodeNotFound:        http.StatusNotFound,
	apperr.CodeInvalidPayload:  http.StatusBadGateway,
	apperr.CodeTransient:       http.StatusServiceUnavailable,
	apperr.CodeUnauthenticated: http.StatusUnauthorized,
}

// writeServiceError maps a coded error to its status. Uncoded errors are
// logged and reported as INTERNAL_ERROR without detail.
func writeServiceError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}
	msg := err.Error()
	var coded *apperr.Error
	if errors.As(err, &coded) && coded.Message != "" {
		msg = coded.Message
	}
	writeError(w, status, string(code), msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid payload")
		return false
	}
	return true
}
