package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/gridgate/gridgate/internal/shared"
	"github.com/gridgate/gridgate/internal/views"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// NormalizePage applies the 1/10 defaults for absent or non-positive
// pagination inputs. No upper bound is enforced here.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// Runner executes built statements. The concrete runner is pgx; tests
// substitute their own.
type Runner interface {
	Rows(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
	Value(ctx context.Context, sql string, args ...any) (int64, error)
}

// PGRunner runs statements against a pgx pool, materializing rows as
// column-name keyed maps.
type PGRunner struct {
	pool *pgxpool.Pool
}

// NewPGRunner constructs a runner.
func NewPGRunner(pool *pgxpool.Pool) *PGRunner {
	return &PGRunner{pool: pool}
}

// Rows executes sql and returns every row as a map.
func (r *PGRunner) Rows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Value executes sql expecting a single integer result.
func (r *PGRunner) Value(ctx context.Context, sql string, args ...any) (int64, error) {
	var value int64
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

// Request is a sanitized read: every column reference has already passed
// the sanitizer.
type Request struct {
	Table    string
	Columns  []string
	Filters  *views.FilterNode
	Sort     []views.SortSpec
	GroupBy  []string
	Page     int
	PageSize int
	// Permitted is the caller's full column grant, used for the envelope's
	// availableColumns; Columns may be a narrower selection.
	Permitted []string
}

// Result is the executed read before envelope assembly.
type Result struct {
	Data             any
	TotalRecords     int64
	Page             int
	PageSize         int
	AvailableColumns map[string]string
}

// Executor turns sanitized requests into paginated reads. Grouped and flat
// modes differ in what totalRecords counts: distinct group keys versus
// filtered rows.
type Executor struct {
	runner  Runner
	catalog *Catalog
	logger  *slog.Logger
}

// NewExecutor builds an Executor.
func NewExecutor(runner Runner, catalog *Catalog, logger *slog.Logger) *Executor {
	return &Executor{runner: runner, catalog: catalog, logger: logger}
}

// Run executes the request and computes the total-record count.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	desc, err := e.catalog.Lookup(req.Table)
	if err != nil {
		return nil, err
	}

	page, pageSize := NormalizePage(req.Page, req.PageSize)
	skip := (page - 1) * pageSize

	where, args, err := BuildWhere(req.Filters, desc)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Page:             page,
		PageSize:         pageSize,
		AvailableColumns: desc.AvailableColumns(req.Permitted),
	}

	groupBy := make([]string, 0, len(req.GroupBy))
	for _, c := range req.GroupBy {
		if desc.HasColumn(c) {
			groupBy = append(groupBy, c)
		}
	}

	if len(groupBy) > 0 {
		if err := e.runGrouped(ctx, desc, req, groupBy, where, args, pageSize, skip, result); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := e.runFlat(ctx, desc, req, where, args, pageSize, skip, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) runFlat(ctx context.Context, desc Descriptor, req Request, where string, args []any, take, skip int, result *Result) error {
	columns := make([]string, 0, len(req.Columns))
	for _, c := range req.Columns {
		if desc.HasColumn(c) {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		return shared.Validationf("no selectable columns for %s", req.Table)
	}

	orderBy := BuildOrderBy(req.Sort, desc, nil)
	countSQL := BuildCount(desc, where)
	selectSQL := BuildSelect(desc, columns, where, orderBy, len(args))
	selectArgs := append(append([]any{}, args...), take, skip)

	var total int64
	var rows []map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = e.runner.Value(gctx, countSQL, args...)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = e.runner.Rows(gctx, selectSQL, selectArgs...)
		return err
	})
	if err := g.Wait(); err != nil {
		return e.execError(err)
	}

	result.TotalRecords = total
	result.Data = NormalizeWideInts(rows)
	return nil
}

func (e *Executor) runGrouped(ctx context.Context, desc Descriptor, req Request, groupBy []string, where string, args []any, take, skip int, result *Result) error {
	restrict := make(map[string]struct{}, len(groupBy))
	for _, c := range groupBy {
		restrict[c] = struct{}{}
	}
	orderBy := BuildOrderBy(req.Sort, desc, restrict)

	countSQL := BuildGroupCount(desc, groupBy, where)
	groupSQL := BuildGroup(desc, groupBy, where, orderBy, len(args))
	groupArgs := append(append([]any{}, args...), take, skip)

	var total int64
	var rows []map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = e.runner.Value(gctx, countSQL, args...)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = e.runner.Rows(gctx, groupSQL, groupArgs...)
		return err
	})
	if err := g.Wait(); err != nil {
		return e.execError(err)
	}

	// Aggregate rows sharing a first-column key are collected per key.
	grouped := make(map[string][]map[string]any, len(rows))
	first := groupBy[0]
	for _, row := range rows {
		key := fmt.Sprint(row[first])
		grouped[key] = append(grouped[key], row)
	}

	result.TotalRecords = total
	normalized := make(map[string]any, len(grouped))
	for key, members := range grouped {
		normalized[key] = NormalizeWideInts(members)
	}
	result.Data = normalized
	return nil
}

func (e *Executor) execError(err error) error {
	execErr := shared.NewExecError(err)
	if e.logger != nil {
		e.logger.Error("query execution", slog.String("detail", execErr.Detail), slog.Any("error", err))
	}
	return execErr
}
