package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gridgate/gridgate/internal/shared"
	"github.com/gridgate/gridgate/internal/views"
)

// comparisonOps maps filter operators to SQL comparison operators.
var comparisonOps = map[string]string{
	"eq":  "=",
	"neq": "<>",
	"gt":  ">",
	"gte": ">=",
	"lt":  "<",
	"lte": "<=",
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

// BuildWhere renders a sanitized filter tree into a WHERE clause with $n
// placeholders. Leaves whose column does not exist on the table are
// skipped. An empty clause means no constraint.
func BuildWhere(node *views.FilterNode, desc Descriptor) (string, []any, error) {
	var args []any
	clause, err := buildNode(node, desc, &args)
	if err != nil {
		return "", nil, err
	}
	return clause, args, nil
}

func buildNode(node *views.FilterNode, desc Descriptor, args *[]any) (string, error) {
	if node == nil {
		return "", nil
	}
	if node.IsLeaf() {
		return buildLeaf(node, desc, args)
	}
	parts := make([]string, 0, len(node.Children))
	for _, child := range node.Children {
		part, err := buildNode(child, desc, args)
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	switch node.Connector {
	case views.ConnectorAnd:
		return "(" + strings.Join(parts, " AND ") + ")", nil
	case views.ConnectorOr:
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case views.ConnectorNot:
		return "NOT (" + strings.Join(parts, " AND ") + ")", nil
	default:
		return "", shared.Validationf("unknown connector %q", node.Connector)
	}
}

func buildLeaf(node *views.FilterNode, desc Descriptor, args *[]any) (string, error) {
	if !desc.HasColumn(node.Column) {
		return "", nil
	}
	column := quoteIdent(node.Column)
	switch node.Operator {
	case "eq", "neq", "gt", "gte", "lt", "lte":
		value, err := scalarArg(node.Value)
		if err != nil {
			return "", shared.Validationf("operator %s on %s: %v", node.Operator, node.Column, err)
		}
		if value == nil {
			switch node.Operator {
			case "eq":
				return column + " IS NULL", nil
			case "neq":
				return column + " IS NOT NULL", nil
			default:
				return "", shared.Validationf("operator %s on %s does not accept null", node.Operator, node.Column)
			}
		}
		*args = append(*args, value)
		return fmt.Sprintf("%s %s $%d", column, comparisonOps[node.Operator], len(*args)), nil
	case "contains", "startswith", "endswith":
		text, ok := node.Value.(string)
		if !ok {
			return "", shared.Validationf("operator %s on %s requires a string", node.Operator, node.Column)
		}
		pattern := escapeLike(text)
		switch node.Operator {
		case "contains":
			pattern = "%" + pattern + "%"
		case "startswith":
			pattern = pattern + "%"
		case "endswith":
			pattern = "%" + pattern
		}
		*args = append(*args, pattern)
		return fmt.Sprintf("%s::text ILIKE $%d", column, len(*args)), nil
	case "in", "notin":
		list, err := listArg(node.Value)
		if err != nil {
			return "", shared.Validationf("operator %s on %s: %v", node.Operator, node.Column, err)
		}
		*args = append(*args, list)
		if node.Operator == "in" {
			return fmt.Sprintf("%s = ANY($%d)", column, len(*args)), nil
		}
		return fmt.Sprintf("%s <> ALL($%d)", column, len(*args)), nil
	default:
		return "", shared.Validationf("unknown operator %q on %s", node.Operator, node.Column)
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// scalarArg converts a decoded JSON value into a driver argument.
func scalarArg(v any) (any, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i, nil
		}
		f, err := value.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", value.String())
		}
		return f, nil
	case string, bool, int64, float64:
		return value, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// listArg converts a JSON array into a typed slice pgx can encode.
func listArg(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("requires an array")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("requires a non-empty array")
	}
	switch items[0].(type) {
	case string:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("mixed array element types")
			}
			out = append(out, s)
		}
		return out, nil
	case json.Number, float64, int64:
		out := make([]float64, 0, len(items))
		for _, item := range items {
			scalar, err := scalarArg(item)
			if err != nil {
				return nil, err
			}
			switch n := scalar.(type) {
			case int64:
				out = append(out, float64(n))
			case float64:
				out = append(out, n)
			default:
				return nil, fmt.Errorf("mixed array element types")
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported array element type %T", items[0])
	}
}

// BuildOrderBy renders a sanitized sort list, keeping only columns present
// on the table (and, when restrict is non-nil, in that set).
func BuildOrderBy(sort []views.SortSpec, desc Descriptor, restrict map[string]struct{}) string {
	parts := make([]string, 0, len(sort))
	for _, s := range sort {
		if !desc.HasColumn(s.Column) {
			continue
		}
		if restrict != nil {
			if _, ok := restrict[s.Column]; !ok {
				continue
			}
		}
		dir := "ASC"
		if s.Direction == "desc" {
			dir = "DESC"
		}
		parts = append(parts, quoteIdent(s.Column)+" "+dir)
	}
	if len(parts) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// BuildCount renders the flat-mode row count statement.
func BuildCount(desc Descriptor, where string) string {
	sql := "SELECT COUNT(*) FROM " + quoteIdent(desc.Table)
	if where != "" {
		sql += " WHERE " + where
	}
	return sql
}

// BuildSelect renders the flat-mode page fetch, selecting only the given
// columns. limit and offset become the two trailing placeholders.
func BuildSelect(desc Descriptor, columns []string, where, orderBy string, argCount int) string {
	quoted := make([]string, 0, len(columns))
	for _, c := range columns {
		quoted = append(quoted, quoteIdent(c))
	}
	sql := "SELECT " + strings.Join(quoted, ", ") + " FROM " + quoteIdent(desc.Table)
	if where != "" {
		sql += " WHERE " + where
	}
	if orderBy != "" {
		sql += " " + orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	return sql
}

// BuildGroup renders the grouped aggregation: one row per distinct group
// key with its member count.
func BuildGroup(desc Descriptor, groupBy []string, where, orderBy string, argCount int) string {
	quoted := make([]string, 0, len(groupBy))
	for _, c := range groupBy {
		quoted = append(quoted, quoteIdent(c))
	}
	grouped := strings.Join(quoted, ", ")
	sql := "SELECT " + grouped + ", COUNT(*) AS count FROM " + quoteIdent(desc.Table)
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " GROUP BY " + grouped
	if orderBy != "" {
		sql += " " + orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	return sql
}

// BuildGroupCount renders the distinct-group-key count, which is the
// totalRecords value in grouped mode.
func BuildGroupCount(desc Descriptor, groupBy []string, where string) string {
	quoted := make([]string, 0, len(groupBy))
	for _, c := range groupBy {
		quoted = append(quoted, quoteIdent(c))
	}
	inner := "SELECT 1 FROM " + quoteIdent(desc.Table)
	if where != "" {
		inner += " WHERE " + where
	}
	inner += " GROUP BY " + strings.Join(quoted, ", ")
	return "SELECT COUNT(*) FROM (" + inner + ") AS groups"
}
