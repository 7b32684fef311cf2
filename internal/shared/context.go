package shared

import "context"

// Access carries the per-request authorization outcome attached by the gate.
type Access struct {
	UserID int64
	Email  string
	Role   string
	// Table is the route's resource path segment.
	Table string
	// ResourceKey is the matched grant key (for example "Site_Admin").
	ResourceKey string
	// Columns lists the columns the caller may touch on Table.
	Columns []string
}

type accessContextKey struct{}

// ContextWithAccess stores the gate outcome on the context.
func ContextWithAccess(ctx context.Context, access *Access) context.Context {
	return context.WithValue(ctx, accessContextKey{}, access)
}

// AccessFromContext retrieves the gate outcome, or nil outside gated routes.
func AccessFromContext(ctx context.Context) *Access {
	access, _ := ctx.Value(accessContextKey{}).(*Access)
	return access
}

// ColumnSet converts the permitted column list into a membership set.
func (a *Access) ColumnSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Columns))
	for _, c := range a.Columns {
		set[c] = struct{}{}
	}
	return set
}
