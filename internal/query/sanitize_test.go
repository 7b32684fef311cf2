package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgate/gridgate/internal/views"
)

func permittedSet(columns ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		out[c] = struct{}{}
	}
	return out
}

func TestSanitizeFiltersDropsUnauthorizedLeaf(t *testing.T) {
	tree := views.Join(views.ConnectorAnd,
		views.Leaf("price", "gte", json.Number("100")),
		views.Leaf("bank_details", "contains", "NL"),
	)

	kept := SanitizeFilters(tree, permittedSet("id", "price"))
	require.NotNil(t, kept)
	assert.Equal(t, views.ConnectorAnd, kept.Connector)
	require.Len(t, kept.Children, 1)
	assert.Equal(t, "price", kept.Children[0].Column)
}

func TestSanitizeFiltersBareUnauthorizedLeaf(t *testing.T) {
	kept := SanitizeFilters(views.Leaf("bank_details", "contains", "NL"), permittedSet("id"))
	assert.Nil(t, kept)
}

func TestSanitizeFiltersKeepsEmptiedConnector(t *testing.T) {
	tree := views.Join(views.ConnectorOr,
		views.Leaf("bank_details", "contains", "NL"),
		views.Leaf("salary", "gt", json.Number("5")),
	)

	kept := SanitizeFilters(tree, permittedSet("id"))
	require.NotNil(t, kept)
	assert.Equal(t, views.ConnectorOr, kept.Connector)
	assert.Empty(t, kept.Children, "an emptied connector means no constraint, not an error")
}

func TestSanitizeFiltersPreservesNestedStructure(t *testing.T) {
	tree := views.Join(views.ConnectorOr,
		views.Join(views.ConnectorAnd,
			views.Leaf("price", "gte", json.Number("100")),
			views.Leaf("bank_details", "contains", "NL"),
		),
		views.Leaf("region", "eq", "north"),
	)

	kept := SanitizeFilters(tree, permittedSet("price", "region"))
	require.Len(t, kept.Children, 2)
	inner := kept.Children[0]
	assert.Equal(t, views.ConnectorAnd, inner.Connector)
	require.Len(t, inner.Children, 1)
	assert.Equal(t, "price", inner.Children[0].Column)
}

func TestSanitizeFiltersNil(t *testing.T) {
	assert.Nil(t, SanitizeFilters(nil, permittedSet("id")))
}

func TestSanitizeFiltersDoesNotMutateInput(t *testing.T) {
	tree := views.Join(views.ConnectorAnd,
		views.Leaf("price", "gte", json.Number("100")),
		views.Leaf("bank_details", "contains", "NL"),
	)
	_ = SanitizeFilters(tree, permittedSet("price"))
	assert.Len(t, tree.Children, 2)
}

func TestSanitizeSort(t *testing.T) {
	sort := []views.SortSpec{
		{Column: "price", Direction: "desc"},
		{Column: "bank_details", Direction: "asc"},
		{Column: "region", Direction: "sideways"},
	}
	kept := SanitizeSort(sort, permittedSet("price", "region"))
	require.Len(t, kept, 1)
	assert.Equal(t, "price", kept[0].Column)
}

func TestSanitizeColumns(t *testing.T) {
	kept := SanitizeColumns(
		[]string{"id", "bank_details", "price", "id"},
		permittedSet("id", "price"),
	)
	assert.Equal(t, []string{"id", "price"}, kept)
}

func TestSanitizeGroupBy(t *testing.T) {
	kept := SanitizeGroupBy([]string{"region", "bank_details"}, permittedSet("region"))
	assert.Equal(t, []string{"region"}, kept)
}
