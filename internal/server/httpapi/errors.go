package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avolkov-dev/filevault/internal/common"
)

// writeError maps the service error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; details stay in the server log.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, common.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrConflict),
		errors.Is(err, common.ErrAlreadyShared):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrNotShared):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrCrypto):
		status, msg = http.StatusBadRequest, "cryptographic verification failed"
	default:
		status, msg = http.StatusInternalServerError, "internal error"
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
