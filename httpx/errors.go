package httpx

import (
	"net/http"

	"github.com/diewo77/minimarket/internal/apperr"
)

// Status maps an error kind to its HTTP status code.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindInvalidTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error body. Internal details are never exposed.
func WriteError(w http.ResponseWriter, err error) {
	e := apperr.As(err)
	if e.Kind == apperr.KindInternal {
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	resp := ErrorResponse{Error: e.Code, Message: e.Message}
	if !e.Fields.Empty() {
		resp.Details = e.Fields
	}
	JSON(w, Status(e.Kind), resp)
}
