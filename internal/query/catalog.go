package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridgate/gridgate/internal/shared"
)

// Descriptor describes one queryable table: its physical name and the
// backend type of every column. Descriptors are the identifier whitelist;
// no column name reaches SQL text without passing through one.
type Descriptor struct {
	Key     string
	Table   string
	columns map[string]string
	order   []string
}

// NewDescriptor builds a descriptor from ordered (column, type) pairs.
func NewDescriptor(key, table string, columns [][2]string) Descriptor {
	d := Descriptor{Key: key, Table: table, columns: make(map[string]string, len(columns))}
	for _, col := range columns {
		if _, ok := d.columns[col[0]]; ok {
			continue
		}
		d.columns[col[0]] = col[1]
		d.order = append(d.order, col[0])
	}
	return d
}

// HasColumn reports whether the table carries the column.
func (d Descriptor) HasColumn(name string) bool {
	_, ok := d.columns[name]
	return ok
}

// ColumnType returns the backend type of a column.
func (d Descriptor) ColumnType(name string) string {
	return d.columns[name]
}

// AvailableColumns maps each permitted column that exists on the table to
// its backend type.
func (d Descriptor) AvailableColumns(permitted []string) map[string]string {
	out := make(map[string]string, len(permitted))
	for _, c := range permitted {
		if t, ok := d.columns[c]; ok {
			out[c] = t
		}
	}
	return out
}

// Catalog is the startup-resolved registry mapping a route resource key to
// its table descriptor. Unknown keys are a NotFound, never a runtime probe.
type Catalog struct {
	byKey map[string]Descriptor
}

// NewCatalog builds a catalog from descriptors.
func NewCatalog(descriptors ...Descriptor) *Catalog {
	c := &Catalog{byKey: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		c.byKey[strings.ToLower(d.Key)] = d
	}
	return c
}

// Lookup resolves a route resource key.
func (c *Catalog) Lookup(key string) (Descriptor, error) {
	d, ok := c.byKey[strings.ToLower(key)]
	if !ok {
		return Descriptor{}, fmt.Errorf("resource %q is not registered: %w", key, shared.ErrNotFound)
	}
	return d, nil
}

// Keys lists the registered resource keys.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	return keys
}

// Load introspects information_schema for the configured tables and builds
// the catalog, keyed by table name. Missing tables fail startup rather than
// surfacing later as execution errors.
func Load(ctx context.Context, pool *pgxpool.Pool, tables []string) (*Catalog, error) {
	descriptors := make([]Descriptor, 0, len(tables))
	for _, table := range tables {
		table = strings.TrimSpace(strings.ToLower(table))
		if table == "" {
			continue
		}
		rows, err := pool.Query(ctx, `
			SELECT column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = 'public' AND table_name = $1
			ORDER BY ordinal_position`, table)
		if err != nil {
			return nil, fmt.Errorf("query: introspect %s: %w", table, err)
		}
		var columns [][2]string
		for rows.Next() {
			var name, dataType string
			if err := rows.Scan(&name, &dataType); err != nil {
				rows.Close()
				return nil, fmt.Errorf("query: introspect %s: %w", table, err)
			}
			columns = append(columns, [2]string{name, dataType})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query: introspect %s: %w", table, err)
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("query: table %q not found or has no columns", table)
		}
		descriptors = append(descriptors, NewDescriptor(table, table, columns))
	}
	return NewCatalog(descriptors...), nil
}
