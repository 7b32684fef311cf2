package query

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgate/gridgate/internal/shared"
	"github.com/gridgate/gridgate/internal/views"
)

type memoryViewRepo struct {
	items  map[int64]*views.View
	nextID int64
}

func newMemoryViewRepo() *memoryViewRepo {
	return &memoryViewRepo{items: make(map[int64]*views.View), nextID: 1}
}

func (m *memoryViewRepo) Get(ctx context.Context, id int64) (*views.View, error) {
	v, ok := m.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (m *memoryViewRepo) GetByName(ctx context.Context, userID int64, tableID, viewName string) (*views.View, error) {
	for _, v := range m.items {
		if v.UserID == userID && v.TableID == tableID && v.ViewName == viewName {
			copied := *v
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryViewRepo) Create(ctx context.Context, v *views.View) (*views.View, error) {
	created := *v
	created.ID = m.nextID
	m.nextID++
	m.items[created.ID] = &created
	copied := created
	return &copied, nil
}

func (m *memoryViewRepo) Update(ctx context.Context, v *views.View) (*views.View, error) {
	updated := *v
	m.items[v.ID] = &updated
	copied := updated
	return &copied, nil
}

func (m *memoryViewRepo) Delete(ctx context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memoryViewRepo) ListForUser(ctx context.Context, userID int64, tableID string) ([]views.Ref, error) {
	refs := []views.Ref{}
	for id := int64(1); id < m.nextID; id++ {
		v, ok := m.items[id]
		if !ok || v.UserID != userID || v.TableID != tableID {
			continue
		}
		refs = append(refs, views.Ref{ID: v.ID, ViewName: v.ViewName})
	}
	return refs, nil
}

type readFixture struct {
	router http.Handler
	runner *mockRunner
	repo   *memoryViewRepo
}

func newReadFixture(t *testing.T, grant *shared.Access) *readFixture {
	t.Helper()
	runner := &mockRunner{rows: []map[string]any{}}
	repo := newMemoryViewRepo()
	viewsService := views.NewService(repo, nil, nil, nil)
	executor := NewExecutor(runner, sitesCatalog(), nil)
	handler := NewHandler(nil, viewsService, executor, 500)

	r := chi.NewRouter()
	r.Route("/data/{resource}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.ContextWithAccess(req.Context(), grant)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		handler.MountRoutes(r)
	})
	return &readFixture{router: r, runner: runner, repo: repo}
}

func analystGrant() *shared.Access {
	return &shared.Access{
		UserID:      7,
		Email:       "analyst@example.com",
		Role:        "analyst",
		Table:       "sites",
		ResourceKey: "Site_Basic",
		Columns:     []string{"id", "site_name", "region", "price"},
	}
}

func doRead(t *testing.T, fx *readFixture, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	var envelope map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

func TestReadProvisionsDefaultView(t *testing.T) {
	fx := newReadFixture(t, analystGrant())
	fx.runner.count = 5

	rec, envelope := doRead(t, fx, http.MethodGet, "/data/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, float64(5), envelope["totalRecords"])
	assert.Equal(t, float64(1), envelope["page"])
	assert.Equal(t, float64(10), envelope["pageSize"])

	stored, err := fx.repo.GetByName(context.Background(), 7, "sites", views.DefaultViewName)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "site_name", "region", "price"}, stored.Columns)

	viewRefs, ok := envelope["views"].([]any)
	require.True(t, ok)
	require.Len(t, viewRefs, 1)
}

func TestReadSecondCallReusesDefault(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	rec, _ := doRead(t, fx, http.MethodGet, "/data/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doRead(t, fx, http.MethodGet, "/data/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fx.repo.items, 1)
}

func TestReadPageSizeClamped(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	rec, envelope := doRead(t, fx, http.MethodGet, "/data/sites?page=2&pageSize=100000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(500), envelope["pageSize"])
	assert.Equal(t, float64(2), envelope["page"])
}

func TestReadAdHocDropsUnauthorizedFilter(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	body := `{
		"columns": ["id", "site_name"],
		"filters": {"AND": [{"price": {"gte": 100}}, {"bank_details": {"contains": "NL"}}]},
		"sort": [{"price": "desc"}]
	}`
	rec, envelope := doRead(t, fx, http.MethodPost, "/data/sites/query", body)
	require.Equal(t, http.StatusOK, rec.Code)

	// The unauthorized predicate is silently dropped; the request succeeds.
	applied, err := json.Marshal(envelope["appliedFilters"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"AND": [{"price": {"gte": 100}}]}`, string(applied))

	// The executed statement never saw bank_details.
	require.NotEmpty(t, fx.runner.queries)
	for _, q := range fx.runner.queries {
		assert.NotContains(t, q.sql, "bank_details")
	}
}

func TestReadAdHocViewIDIgnored(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	rec, envelope := doRead(t, fx, http.MethodPost, "/data/sites/query",
		`{"columns": ["region"], "page": 2, "pageSize": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), envelope["page"])
	assert.Equal(t, float64(3), envelope["pageSize"])
}

func TestReadUnknownViewID(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	rec, _ := doRead(t, fx, http.MethodGet, "/data/sites?viewId=999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadForeignViewForbidden(t *testing.T) {
	fx := newReadFixture(t, analystGrant())
	_, err := fx.repo.Create(context.Background(), &views.View{
		UserID: 8, TableID: "sites", ViewName: "theirs", Columns: []string{"id"},
	})
	require.NoError(t, err)

	rec, _ := doRead(t, fx, http.MethodGet, "/data/sites?viewId=1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReadColumnsDefaultToPermitted(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	rec, _ := doRead(t, fx, http.MethodPost, "/data/sites/query",
		`{"columns": ["bank_details"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotEmpty(t, fx.runner.queries)
	sql := fx.runner.queries[0].sql
	assert.Contains(t, sql, `"site_name"`)
	assert.NotContains(t, sql, "bank_details")
}

func TestReadAvailableColumnsInEnvelope(t *testing.T) {
	fx := newReadFixture(t, analystGrant())

	rec, envelope := doRead(t, fx, http.MethodGet, "/data/sites", "")
	require.Equal(t, http.StatusOK, rec.Code)
	available, ok := envelope["availableColumns"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bigint", available["id"])
	assert.Equal(t, "numeric", available["price"])
	assert.NotContains(t, available, "visitors")
}
