package views

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgate/gridgate/internal/shared"
)

func newHandlerFixture(t *testing.T) (*mockViewRepo, http.Handler) {
	t.Helper()
	repo := newMockViewRepo()
	handler := NewHandler(nil, newTestService(repo))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			access := &shared.Access{
				UserID:  7,
				Email:   "analyst@example.com",
				Role:    "analyst",
				Table:   "sites",
				Columns: []string{"id", "site_name", "price"},
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithAccess(req.Context(), access)))
		})
	})
	r.Route("/", handler.MountRoutes)
	return repo, r
}

func doViewRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestViewRecordWireShape(t *testing.T) {
	_, h := newHandlerFixture(t)

	rec := doViewRequest(t, h, http.MethodPost, "/",
		`{"viewName": "mine", "columns": ["id", "price"], "filters": {"price": {"gte": 100}}, "sort": [{"price": "desc"}], "groupBy": ["site_name"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Success bool                       `json:"success"`
		View    map[string]json.RawMessage `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)

	for _, key := range []string{"id", "userId", "tableId", "viewName", "columns", "filters", "sort", "groupBy"} {
		assert.Contains(t, body.View, key)
	}
	for _, key := range []string{"ID", "UserID", "TableID", "ViewName", "CreatedAt", "UpdatedAt", "createdAt", "updatedAt"} {
		assert.NotContains(t, body.View, key)
	}

	assert.JSONEq(t, `7`, string(body.View["userId"]))
	assert.JSONEq(t, `"sites"`, string(body.View["tableId"]))
	assert.JSONEq(t, `"mine"`, string(body.View["viewName"]))
	assert.JSONEq(t, `["id", "price"]`, string(body.View["columns"]))
	assert.JSONEq(t, `{"price": {"gte": 100}}`, string(body.View["filters"]))
	assert.JSONEq(t, `[{"price": "desc"}]`, string(body.View["sort"]))
	assert.JSONEq(t, `["site_name"]`, string(body.View["groupBy"]))
}

func TestViewGetReturnsSameShape(t *testing.T) {
	repo, h := newHandlerFixture(t)
	created, err := repo.Create(context.Background(), &View{
		UserID: 7, TableID: "sites", ViewName: "saved", Columns: []string{"id"},
	})
	require.NoError(t, err)

	rec := doViewRequest(t, h, http.MethodGet, "/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		View map[string]json.RawMessage `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.View, "viewName")
	assert.NotContains(t, body.View, "ViewName")
	assert.JSONEq(t, `"saved"`, string(body.View["viewName"]))
}

func TestViewCreateRequiresName(t *testing.T) {
	_, h := newHandlerFixture(t)

	rec := doViewRequest(t, h, http.MethodPost, "/", `{"columns": ["id"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
