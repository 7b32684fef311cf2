package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridgate/gridgate/internal/shared"
)

// ErrDuplicateName reports a (user, table, name) uniqueness violation.
var ErrDuplicateName = errors.New("views: duplicate view name")

// Repository provides PostgreSQL backed persistence for view definitions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const viewColumns = `id, user_id, table_id, view_name, columns, filters, sort, group_by, created_at, updated_at`

func scanView(row pgx.Row) (*View, error) {
	var v View
	var filtersRaw, sortRaw []byte
	err := row.Scan(&v.ID, &v.UserID, &v.TableID, &v.ViewName, &v.Columns,
		&filtersRaw, &sortRaw, &v.GroupBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(filtersRaw) > 0 {
		v.Filters = &FilterNode{}
		if err := json.Unmarshal(filtersRaw, v.Filters); err != nil {
			return nil, fmt.Errorf("views: decode filters for view %d: %w", v.ID, err)
		}
	}
	if len(sortRaw) > 0 {
		if err := json.Unmarshal(sortRaw, &v.Sort); err != nil {
			return nil, fmt.Errorf("views: decode sort for view %d: %w", v.ID, err)
		}
	}
	return &v, nil
}

func encodeView(v *View) (filtersRaw, sortRaw []byte, err error) {
	if v.Filters != nil {
		filtersRaw, err = json.Marshal(v.Filters)
		if err != nil {
			return nil, nil, err
		}
	}
	sort := v.Sort
	if sort == nil {
		sort = []SortSpec{}
	}
	sortRaw, err = json.Marshal(sort)
	if err != nil {
		return nil, nil, err
	}
	return filtersRaw, sortRaw, nil
}

// Get fetches a view by id.
func (r *Repository) Get(ctx context.Context, id int64) (*View, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+viewColumns+` FROM views WHERE id = $1`, id)
	return scanView(row)
}

// GetByName fetches a view by its (user, table, name) identity.
func (r *Repository) GetByName(ctx context.Context, userID int64, tableID, viewName string) (*View, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+viewColumns+` FROM views WHERE user_id = $1 AND table_id = $2 AND view_name = $3`,
		userID, tableID, viewName)
	return scanView(row)
}

// Create inserts a view and returns it with generated fields populated.
func (r *Repository) Create(ctx context.Context, v *View) (*View, error) {
	filtersRaw, sortRaw, err := encodeView(v)
	if err != nil {
		return nil, err
	}
	columns := v.Columns
	if columns == nil {
		columns = []string{}
	}
	groupBy := v.GroupBy
	if groupBy == nil {
		groupBy = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO views (user_id, table_id, view_name, columns, filters, sort, group_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+viewColumns,
		v.UserID, v.TableID, v.ViewName, columns, filtersRaw, sortRaw, groupBy)
	created, err := scanView(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return created, nil
}

// Update persists the mutable fields of a view.
func (r *Repository) Update(ctx context.Context, v *View) (*View, error) {
	filtersRaw, sortRaw, err := encodeView(v)
	if err != nil {
		return nil, err
	}
	columns := v.Columns
	if columns == nil {
		columns = []string{}
	}
	groupBy := v.GroupBy
	if groupBy == nil {
		groupBy = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE views
		SET view_name = $2, columns = $3, filters = $4, sort = $5, group_by = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+viewColumns,
		v.ID, v.ViewName, columns, filtersRaw, sortRaw, groupBy)
	return scanView(row)
}

// Delete removes a view by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM views WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListForUser returns the switcher entries for one (user, table).
func (r *Repository) ListForUser(ctx context.Context, userID int64, tableID string) ([]Ref, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, view_name FROM views WHERE user_id = $1 AND table_id = $2 ORDER BY id`,
		userID, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := []Ref{}
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.ViewName); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// DeleteOrphaned removes views whose owner no longer exists. Used by the
// maintenance sweep, never by the request path.
func (r *Repository) DeleteOrphaned(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM views WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.id = views.user_id)`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
