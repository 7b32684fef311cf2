package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgate/gridgate/internal/shared"
	"github.com/gridgate/gridgate/internal/views"
)

func sitesDescriptor() Descriptor {
	return NewDescriptor("sites", "sites", [][2]string{
		{"id", "bigint"},
		{"site_name", "text"},
		{"region", "text"},
		{"status", "text"},
		{"price", "numeric"},
		{"visitors", "bigint"},
	})
}

func TestBuildWhereComparison(t *testing.T) {
	where, args, err := BuildWhere(views.Leaf("price", "gte", json.Number("100")), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `"price" >= $1`, where)
	assert.Equal(t, []any{int64(100)}, args)
}

func TestBuildWhereConnectorOrdering(t *testing.T) {
	tree := views.Join(views.ConnectorAnd,
		views.Leaf("price", "gte", json.Number("100")),
		views.Join(views.ConnectorOr,
			views.Leaf("region", "eq", "north"),
			views.Leaf("region", "eq", "south"),
		),
	)
	where, args, err := BuildWhere(tree, sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `("price" >= $1 AND ("region" = $2 OR "region" = $3))`, where)
	assert.Equal(t, []any{int64(100), "north", "south"}, args)
}

func TestBuildWhereNot(t *testing.T) {
	tree := views.Join(views.ConnectorNot, views.Leaf("status", "eq", "inactive"))
	where, args, err := BuildWhere(tree, sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `NOT ("status" = $1)`, where)
	assert.Equal(t, []any{"inactive"}, args)
}

func TestBuildWhereNullHandling(t *testing.T) {
	where, args, err := BuildWhere(views.Leaf("region", "eq", nil), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `"region" IS NULL`, where)
	assert.Empty(t, args)

	where, _, err = BuildWhere(views.Leaf("region", "neq", nil), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `"region" IS NOT NULL`, where)

	_, _, err = BuildWhere(views.Leaf("price", "gt", nil), sitesDescriptor())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildWhereTextOperators(t *testing.T) {
	where, args, err := BuildWhere(views.Leaf("site_name", "contains", "har%bor"), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `"site_name"::text ILIKE $1`, where)
	assert.Equal(t, []any{`%har\%bor%`}, args)

	_, args, err = BuildWhere(views.Leaf("site_name", "startswith", "Ha"), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, []any{"Ha%"}, args)

	_, args, err = BuildWhere(views.Leaf("site_name", "endswith", "ge"), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, []any{"%ge"}, args)

	_, _, err = BuildWhere(views.Leaf("site_name", "contains", 42), sitesDescriptor())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildWhereInOperators(t *testing.T) {
	where, args, err := BuildWhere(
		views.Leaf("region", "in", []any{"north", "south"}), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `"region" = ANY($1)`, where)
	assert.Equal(t, []any{[]string{"north", "south"}}, args)

	where, args, err = BuildWhere(
		views.Leaf("price", "notin", []any{json.Number("1"), json.Number("2.5")}), sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `"price" <> ALL($1)`, where)
	assert.Equal(t, []any{[]float64{1, 2.5}}, args)

	_, _, err = BuildWhere(views.Leaf("region", "in", []any{}), sitesDescriptor())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildWhereSkipsUnknownColumn(t *testing.T) {
	tree := views.Join(views.ConnectorAnd,
		views.Leaf("price", "gte", json.Number("100")),
		views.Leaf("no_such_column", "eq", "x"),
	)
	where, args, err := BuildWhere(tree, sitesDescriptor())
	require.NoError(t, err)
	assert.Equal(t, `("price" >= $1)`, where)
	assert.Len(t, args, 1)
}

func TestBuildWhereUnknownOperator(t *testing.T) {
	_, _, err := BuildWhere(views.Leaf("price", "between", json.Number("1")), sitesDescriptor())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestBuildWhereEmpty(t *testing.T) {
	where, args, err := BuildWhere(nil, sitesDescriptor())
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, _, err = BuildWhere(views.Join(views.ConnectorAnd), sitesDescriptor())
	require.NoError(t, err)
	assert.Empty(t, where, "empty connector means no constraint")
}

func TestBuildOrderBy(t *testing.T) {
	sort := []views.SortSpec{
		{Column: "price", Direction: "desc"},
		{Column: "site_name", Direction: "asc"},
		{Column: "no_such_column", Direction: "asc"},
	}
	assert.Equal(t, `ORDER BY "price" DESC, "site_name" ASC`,
		BuildOrderBy(sort, sitesDescriptor(), nil))

	restrict := map[string]struct{}{"price": {}}
	assert.Equal(t, `ORDER BY "price" DESC`,
		BuildOrderBy(sort, sitesDescriptor(), restrict))

	assert.Empty(t, BuildOrderBy(nil, sitesDescriptor(), nil))
}

func TestBuildSelect(t *testing.T) {
	sql := BuildSelect(sitesDescriptor(), []string{"id", "site_name"}, `"price" >= $1`, `ORDER BY "price" DESC`, 1)
	assert.Equal(t,
		`SELECT "id", "site_name" FROM "sites" WHERE "price" >= $1 ORDER BY "price" DESC LIMIT $2 OFFSET $3`,
		sql)
}

func TestBuildCount(t *testing.T) {
	assert.Equal(t, `SELECT COUNT(*) FROM "sites"`, BuildCount(sitesDescriptor(), ""))
	assert.Equal(t, `SELECT COUNT(*) FROM "sites" WHERE "price" >= $1`,
		BuildCount(sitesDescriptor(), `"price" >= $1`))
}

func TestBuildGroup(t *testing.T) {
	sql := BuildGroup(sitesDescriptor(), []string{"region"}, "", "", 0)
	assert.Equal(t,
		`SELECT "region", COUNT(*) AS count FROM "sites" GROUP BY "region" LIMIT $1 OFFSET $2`,
		sql)
}

func TestBuildGroupCount(t *testing.T) {
	sql := BuildGroupCount(sitesDescriptor(), []string{"region", "status"}, `"price" >= $1`)
	assert.Equal(t,
		`SELECT COUNT(*) FROM (SELECT 1 FROM "sites" WHERE "price" >= $1 GROUP BY "region", "status") AS groups`,
		sql)
}

func TestQuoteIdentStripsQuotes(t *testing.T) {
	assert.Equal(t, `"name"`, quoteIdent(`na"me`))
}
