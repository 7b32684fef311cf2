package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gridgate/gridgate/internal/shared"
)

// RepositoryPort defines data access methods for view definitions.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*View, error)
	GetByName(ctx context.Context, userID int64, tableID, viewName string) (*View, error)
	Create(ctx context.Context, v *View) (*View, error)
	Update(ctx context.Context, v *View) (*View, error)
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64, tableID string) ([]Ref, error)
}

// AuditRecorder persists mutation audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements the view registry: CRUD scoped to (user, table) plus
// lazy default provisioning.
type Service struct {
	repo   RepositoryPort
	cache  *ListCache
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance. cache and audit may be nil.
func NewService(repo RepositoryPort, cache *ListCache, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, audit: audit, logger: logger}
}

// GetOrCreateDefault returns the "grid" view for (user, table), creating it
// with the caller's permitted columns when absent. Provisioning is
// idempotent: a concurrent create loses the race and re-reads.
func (s *Service) GetOrCreateDefault(ctx context.Context, userID int64, tableID string, permittedColumns []string) (*View, error) {
	view, err := s.repo.GetByName(ctx, userID, tableID, DefaultViewName)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	created, err := s.repo.Create(ctx, &View{
		UserID:   userID,
		TableID:  tableID,
		ViewName: DefaultViewName,
		Columns:  permittedColumns,
	})
	if errors.Is(err, ErrDuplicateName) {
		return s.repo.GetByName(ctx, userID, tableID, DefaultViewName)
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID, tableID)
	return created, nil
}

// Get fetches a view by id.
func (s *Service) Get(ctx context.Context, viewID int64) (*View, error) {
	return s.repo.Get(ctx, viewID)
}

// GetOwned fetches a view and enforces ownership plus table scope.
func (s *Service) GetOwned(ctx context.Context, viewID, ownerID int64, tableID string) (*View, error) {
	view, err := s.repo.Get(ctx, viewID)
	if err != nil {
		return nil, err
	}
	if view.UserID != ownerID {
		return nil, fmt.Errorf("views: view %d not owned by user %d: %w", viewID, ownerID, shared.ErrForbidden)
	}
	if tableID != "" && !strings.EqualFold(view.TableID, tableID) {
		return nil, fmt.Errorf("views: view %d not scoped to %s: %w", viewID, tableID, shared.ErrForbidden)
	}
	return view, nil
}

// Create persists a new view owned by ownerID over tableID.
func (s *Service) Create(ctx context.Context, ownerID int64, tableID string, spec Spec) (*View, error) {
	name := strings.TrimSpace(spec.ViewName)
	if name == "" {
		return nil, shared.Validationf("view name required")
	}
	created, err := s.repo.Create(ctx, &View{
		UserID:   ownerID,
		TableID:  tableID,
		ViewName: name,
		Columns:  spec.Columns,
		Filters:  spec.Filters,
		Sort:     spec.Sort,
		GroupBy:  spec.GroupBy,
	})
	if errors.Is(err, ErrDuplicateName) {
		return nil, shared.Validationf("view %q already exists for this table", name)
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID, tableID)
	s.record(ctx, ownerID, "view.create", created.ID)
	return created, nil
}

// Update mutates a view after ownership and scope checks.
func (s *Service) Update(ctx context.Context, viewID, ownerID int64, tableID string, spec Spec) (*View, error) {
	view, err := s.GetOwned(ctx, viewID, ownerID, tableID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(spec.ViewName); name != "" {
		view.ViewName = name
	}
	view.Columns = spec.Columns
	view.Filters = spec.Filters
	view.Sort = spec.Sort
	view.GroupBy = spec.GroupBy
	updated, err := s.repo.Update(ctx, view)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID, view.TableID)
	s.record(ctx, ownerID, "view.update", viewID)
	return updated, nil
}

// Delete removes a view after ownership and scope checks.
func (s *Service) Delete(ctx context.Context, viewID, ownerID int64, tableID string) error {
	view, err := s.GetOwned(ctx, viewID, ownerID, tableID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, viewID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID, view.TableID)
	s.record(ctx, ownerID, "view.delete", viewID)
	return nil
}

// ListForUser returns the switcher listing, served from cache when warm.
func (s *Service) ListForUser(ctx context.Context, userID int64, tableID string) ([]Ref, error) {
	if refs, ok := s.cache.Get(ctx, userID, tableID); ok {
		return refs, nil
	}
	refs, err := s.repo.ListForUser(ctx, userID, tableID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, userID, tableID, refs)
	return refs, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64, tableID string) {
	s.cache.Invalidate(ctx, userID, tableID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, viewID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "view",
		EntityID: strconv.FormatInt(viewID, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record view audit", slog.Any("error", err))
	}
}
