package access

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gridgate/gridgate/internal/shared"
)

// AdminStore defines the grant-store writes behind administrative actions.
type AdminStore interface {
	GrantStore
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	CreateRole(ctx context.Context, name, description string) (*Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	ListResources(ctx context.Context) ([]Resource, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	SetRoleResources(ctx context.Context, roleID int64, resourceIDs []int64) error
	ApplyOverrides(ctx context.Context, userID int64, perms, resources []OverrideChange) error
}

// AuditRecorder persists grant-mutation audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates grant administration: role CRUD, role grant
// assignment and per-user override management.
type Service struct {
	store    AdminStore
	resolver *Resolver
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewService builds a Service. audit may be nil.
func NewService(store AdminStore, resolver *Resolver, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{store: store, resolver: resolver, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.store.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Validationf("role name required")
	}
	role, err := s.store.CreateRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "role.create", role.ID)
	return role, nil
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Validationf("role name required")
	}
	role, err := s.store.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}
	s.record(ctx, actorID, "role.update", id)
	return role, nil
}

// DeleteRole removes a role; the store refuses while users reference it.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.delete", id)
	return nil
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// ListResources returns the resource catalog.
func (s *Service) ListResources(ctx context.Context) ([]Resource, error) {
	return s.store.ListResources(ctx)
}

// SetRolePermissions replaces a role's permission grants.
func (s *Service) SetRolePermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := validateIDs(permissionIDs); err != nil {
		return err
	}
	if err := s.store.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.permissions", roleID)
	return nil
}

// SetRoleResources replaces a role's resource grants.
func (s *Service) SetRoleResources(ctx context.Context, actorID, roleID int64, resourceIDs []int64) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := validateIDs(resourceIDs); err != nil {
		return err
	}
	if err := s.store.SetRoleResources(ctx, roleID, resourceIDs); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.resources", roleID)
	return nil
}

// OverrideItem is one entry of a manageAccess batch. A nil Granted removes
// the override so the role grant applies again.
type OverrideItem struct {
	ID      int64
	Granted *bool
}

// ManageAccess applies a bulk override batch for one user atomically. Any
// invalid item fails the whole batch before a single row is written.
func (s *Service) ManageAccess(ctx context.Context, actorID, userID int64, perms, resources []OverrideItem) error {
	if _, err := s.store.GetUserAccount(ctx, userID); err != nil {
		return err
	}
	permChanges, err := toChanges(perms)
	if err != nil {
		return err
	}
	resourceChanges, err := toChanges(resources)
	if err != nil {
		return err
	}
	if err := s.store.ApplyOverrides(ctx, userID, permChanges, resourceChanges); err != nil {
		return err
	}
	s.record(ctx, actorID, "access.manage", userID)
	return nil
}

// EffectiveAccess resolves a user's current grant set for admin inspection.
func (s *Service) EffectiveAccess(ctx context.Context, userID int64) (GrantSet, error) {
	set, _, err := s.resolver.Resolve(ctx, userID)
	return set, err
}

func toChanges(items []OverrideItem) ([]OverrideChange, error) {
	changes := make([]OverrideChange, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			return nil, shared.Validationf("override id must be a positive integer")
		}
		change := OverrideChange{ID: item.ID}
		if item.Granted != nil {
			state := Revoked
			if *item.Granted {
				state = Granted
			}
			change.State = &state
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func validateIDs(ids []int64) error {
	for _, id := range ids {
		if id <= 0 {
			return shared.Validationf("id must be a positive integer")
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "access",
		EntityID: strconv.FormatInt(entityID, 10),
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record access audit", slog.Any("error", err))
	}
}
