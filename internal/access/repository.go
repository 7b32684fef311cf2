package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridgate/gridgate/internal/platform/db"
	"github.com/gridgate/gridgate/internal/shared"
)

// Repository is the PostgreSQL grant store: role associations plus per-user
// override rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetUserAccount loads the user row with its role name.
func (r *Repository) GetUserAccount(ctx context.Context, userID int64) (*UserAccount, error) {
	var u UserAccount
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.role_id, r.name, u.suspended
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.RoleID, &u.RoleName, &u.Suspended)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// IsSuspended reads the live suspension flag. Unlike permissions this is
// checked on every protected read, not at login.
func (r *Repository) IsSuspended(ctx context.Context, userID int64) (bool, error) {
	var suspended bool
	err := r.pool.QueryRow(ctx, `SELECT suspended FROM users WHERE id = $1`, userID).Scan(&suspended)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, shared.ErrNotFound
		}
		return false, err
	}
	return suspended, nil
}

// RolePermissions returns the permissions granted by a role, oldest first.
func (r *Repository) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.key, p.description
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY rp.created_at, p.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// RoleResources returns the column-grant bundles granted by a role.
func (r *Repository) RoleResources(ctx context.Context, roleID int64) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.key, s.columns, s.description
		FROM role_resources rr
		JOIN resources s ON s.id = rr.resource_id
		WHERE rr.role_id = $1
		ORDER BY rr.created_at, s.id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var resources []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Key, &res.Columns, &res.Description); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

// PermissionOverrides returns the user's permission exceptions, oldest first.
func (r *Repository) PermissionOverrides(ctx context.Context, userID int64) ([]PermissionOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.key, p.description, o.granted
		FROM permission_overrides o
		JOIN permissions p ON p.id = o.permission_id
		WHERE o.user_id = $1
		ORDER BY o.created_at, p.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []PermissionOverride
	for rows.Next() {
		var o PermissionOverride
		var granted bool
		if err := rows.Scan(&o.Permission.ID, &o.Permission.Key, &o.Permission.Description, &granted); err != nil {
			return nil, err
		}
		o.State = Revoked
		if granted {
			o.State = Granted
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// ResourceOverrides returns the user's resource exceptions, oldest first.
func (r *Repository) ResourceOverrides(ctx context.Context, userID int64) ([]ResourceOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.key, s.columns, s.description, o.granted
		FROM resource_overrides o
		JOIN resources s ON s.id = o.resource_id
		WHERE o.user_id = $1
		ORDER BY o.created_at, s.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []ResourceOverride
	for rows.Next() {
		var o ResourceOverride
		var granted bool
		if err := rows.Scan(&o.Resource.ID, &o.Resource.Key, &o.Resource.Columns, &o.Resource.Description, &granted); err != nil {
			return nil, err
		}
		o.State = Revoked
		if granted {
			o.State = Granted
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at`,
		name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole updates an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, created_at, updated_at`,
		id, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// DeleteRole removes a role by id. Fails while any user references it.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	var refs int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return shared.Validationf("role %d is assigned to %d user(s)", id, refs)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListPermissions returns all permissions ordered by key.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, description FROM permissions ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListResources returns all resources ordered by key.
func (r *Repository) ListResources(ctx context.Context) ([]Resource, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, columns, description FROM resources ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var resources []Resource
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.Key, &res.Columns, &res.Description); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

// SetRolePermissions replaces a role's permission grants.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, id := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`, roleID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetRoleResources replaces a role's resource grants.
func (r *Repository) SetRoleResources(ctx context.Context, roleID int64, resourceIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_resources WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, id := range resourceIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_resources (role_id, resource_id) VALUES ($1, $2)`, roleID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// OverrideChange describes one override mutation inside a manageAccess
// batch. A nil State deletes the override row.
type OverrideChange struct {
	ID    int64
	State *GrantState
}

// ApplyOverrides commits a manageAccess batch atomically: every change in
// the call commits or none does.
func (r *Repository) ApplyOverrides(ctx context.Context, userID int64, perms, resources []OverrideChange) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, change := range perms {
			if err := applyOverride(ctx, tx, "permission_overrides", "permission_id", userID, change); err != nil {
				return err
			}
		}
		for _, change := range resources {
			if err := applyOverride(ctx, tx, "resource_overrides", "resource_id", userID, change); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOverride(ctx context.Context, tx pgx.Tx, table, column string, userID int64, change OverrideChange) error {
	if change.State == nil {
		_, err := tx.Exec(ctx,
			`DELETE FROM `+table+` WHERE user_id = $1 AND `+column+` = $2`, userID, change.ID)
		return err
	}
	granted := *change.State == Granted
	_, err := tx.Exec(ctx, `
		INSERT INTO `+table+` (user_id, `+column+`, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, `+column+`) DO UPDATE SET granted = EXCLUDED.granted`,
		userID, change.ID, granted)
	return err
}
