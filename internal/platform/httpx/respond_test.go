package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgate/gridgate/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		title  string
	}{
		{"unauthenticated", shared.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"},
		{"bad login", shared.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, "Not Found"},
		{"validation", shared.Validationf("page must be positive"), http.StatusBadRequest, "Validation Failed"},
		{"execution", shared.ErrExecution, http.StatusInternalServerError, "Internal Error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, problemMediaType, rec.Header().Get("Content-Type"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, "about:blank", problem.Type)
			assert.Equal(t, tc.title, problem.Title)
			assert.Equal(t, tc.status, problem.Status)
		})
	}
}

func TestRespondErrorExecDetailOnly(t *testing.T) {
	wrapped := shared.NewExecError(errors.New("pq: relation does not exist"))

	rec := httptest.NewRecorder()
	RespondError(rec, wrapped)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, wrapped.Detail, problem.Detail)
	assert.NotContains(t, rec.Body.String(), "relation does not exist")
}
