package views

import "time"

// DefaultViewName is the well-known default view per (user, table).
const DefaultViewName = "grid"

// View is a persisted, user-owned filter/sort/group/column configuration
// over one resource table.
type View struct {
	ID       int64       `json:"id"`
	UserID   int64       `json:"userId"`
	TableID  string      `json:"tableId"`
	ViewName string      `json:"viewName"`
	Columns  []string    `json:"columns"`
	Filters  *FilterNode `json:"filters"`
	Sort     []SortSpec  `json:"sort"`
	GroupBy  []string    `json:"groupBy"`
	// Timestamps stay server-side; the wire record carries grant-relevant
	// fields only.
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Ref identifies a view in switcher listings.
type Ref struct {
	ID       int64  `json:"id"`
	ViewName string `json:"viewName"`
}

// Spec carries the mutable parts of a view definition.
type Spec struct {
	ViewName string      `json:"viewName"`
	Columns  []string    `json:"columns"`
	Filters  *FilterNode `json:"filters"`
	Sort     []SortSpec  `json:"sort"`
	GroupBy  []string    `json:"groupBy"`
}
