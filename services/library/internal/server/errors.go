package server

import (
	"errors"
	"net/http"

	"settle/internal/util"
	"settle/pkg/domain"
	"settle/services/library/internal/app"
)

// errorResponse is the body of every non-2xx response. Message is a string,
// or a list of strings for request validation failures.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{StatusCode: status, Message: msg, Error: http.StatusText(status)})
}

func writeValidationError(w http.ResponseWriter, msgs []string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    msgs,
		Error:      http.StatusText(http.StatusBadRequest),
	})
}

// writeAppError maps service errors to status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var filterErr *domain.FilterError
	var validationErr *app.ValidationError
	switch {
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, app.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "Book not found")
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, app.ErrInvalidPassword):
		writeError(w, http.StatusNotAcceptable, "Invalid password")
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden resource")
	case errors.As(err, &validationErr):
		writeValidationError(w, []string{validationErr.Error()})
	case errors.As(err, &filterErr):
		writeValidationError(w, []string{filterErr.Error()})
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
