package httpx

import (
	"errors"
	"net/http"

	"github.com/gridgate/gridgate/internal/shared"
)

// RespondError maps domain errors to HTTP responses. Execution failures
// answer with a generic title plus the opaque correlation detail only;
// the wrapped persistence error never reaches the body.
func RespondError(w http.ResponseWriter, err error) {
	var execErr *shared.ExecError
	switch {
	case errors.Is(err, shared.ErrUnauthenticated),
		errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &execErr):
		Problem(w, http.StatusInternalServerError, "Internal Error", execErr.Detail)
	case errors.Is(err, shared.ErrExecution):
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
