package query

import "github.com/gridgate/gridgate/internal/views"

// The sanitizer enforces the one security-critical invariant of the system:
// nothing that leaves it may reference a column outside the caller's
// permitted set. Unauthorized references are dropped, not rejected, so a
// partially-privileged caller keeps a usable endpoint.

// SanitizeFilters returns a copy of the tree containing only leaves whose
// column is permitted. Connector structure is preserved; a connector left
// without children is kept and means "no constraint".
func SanitizeFilters(node *views.FilterNode, permitted map[string]struct{}) *views.FilterNode {
	if node == nil {
		return nil
	}
	if node.IsLeaf() {
		if _, ok := permitted[node.Column]; !ok {
			return nil
		}
		leaf := *node
		return &leaf
	}
	children := make([]*views.FilterNode, 0, len(node.Children))
	for _, child := range node.Children {
		if kept := SanitizeFilters(child, permitted); kept != nil {
			children = append(children, kept)
		}
	}
	return &views.FilterNode{Connector: node.Connector, Children: children}
}

// SanitizeSort keeps entries whose column is permitted and whose direction
// is asc or desc.
func SanitizeSort(sort []views.SortSpec, permitted map[string]struct{}) []views.SortSpec {
	out := make([]views.SortSpec, 0, len(sort))
	for _, s := range sort {
		if _, ok := permitted[s.Column]; !ok {
			continue
		}
		if s.Direction != "asc" && s.Direction != "desc" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SanitizeColumns filters a column list to the permitted set, preserving
// order and dropping duplicates.
func SanitizeColumns(columns []string, permitted map[string]struct{}) []string {
	out := make([]string, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, ok := permitted[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SanitizeGroupBy is SanitizeColumns applied to a grouping list.
func SanitizeGroupBy(groupBy []string, permitted map[string]struct{}) []string {
	return SanitizeColumns(groupBy, permitted)
}
