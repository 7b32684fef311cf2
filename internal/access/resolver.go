package access

import "context"

// GrantStore defines the reads the resolver needs.
type GrantStore interface {
	GetUserAccount(ctx context.Context, userID int64) (*UserAccount, error)
	RolePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	RoleResources(ctx context.Context, roleID int64) ([]Resource, error)
	PermissionOverrides(ctx context.Context, userID int64) ([]PermissionOverride, error)
	ResourceOverrides(ctx context.Context, userID int64) ([]ResourceOverride, error)
}

// Resolver computes effective grant sets by layering per-user overrides on
// top of role grants. Pure read; it mutates nothing.
type Resolver struct {
	store GrantStore
}

// NewResolver constructs a Resolver.
func NewResolver(store GrantStore) *Resolver {
	return &Resolver{store: store}
}

// grantIndex keeps key insertion order so resolved sets are deterministic:
// role grants first, then overrides in application order.
type grantIndex[T any] struct {
	order []string
	items map[string]T
}

func newGrantIndex[T any]() *grantIndex[T] {
	return &grantIndex[T]{items: make(map[string]T)}
}

func (g *grantIndex[T]) put(key string, item T) {
	if _, ok := g.items[key]; !ok {
		g.order = append(g.order, key)
	}
	g.items[key] = item
}

func (g *grantIndex[T]) delete(key string) {
	if _, ok := g.items[key]; !ok {
		return
	}
	delete(g.items, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

func (g *grantIndex[T]) values() []T {
	out := make([]T, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.items[key])
	}
	return out
}

// Resolve returns the user's effective permission list and resource map.
// An override always wins over the role grant for the same key: Granted
// inserts the entry, Revoked removes it even if the role grants it.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (GrantSet, *UserAccount, error) {
	account, err := r.store.GetUserAccount(ctx, userID)
	if err != nil {
		return GrantSet{}, nil, err
	}

	rolePerms, err := r.store.RolePermissions(ctx, account.RoleID)
	if err != nil {
		return GrantSet{}, nil, err
	}
	roleResources, err := r.store.RoleResources(ctx, account.RoleID)
	if err != nil {
		return GrantSet{}, nil, err
	}
	permOverrides, err := r.store.PermissionOverrides(ctx, userID)
	if err != nil {
		return GrantSet{}, nil, err
	}
	resourceOverrides, err := r.store.ResourceOverrides(ctx, userID)
	if err != nil {
		return GrantSet{}, nil, err
	}

	perms := newGrantIndex[PermissionGrant]()
	for _, p := range rolePerms {
		perms.put(p.Key, PermissionGrant{Key: p.Key, Description: p.Description})
	}
	for _, o := range permOverrides {
		if o.State == Granted {
			perms.put(o.Permission.Key, PermissionGrant{Key: o.Permission.Key, Description: o.Permission.Description})
		} else {
			perms.delete(o.Permission.Key)
		}
	}

	resources := newGrantIndex[ResourceGrant]()
	for _, res := range roleResources {
		resources.put(res.Key, ResourceGrant{Key: res.Key, Columns: res.Columns})
	}
	for _, o := range resourceOverrides {
		if o.State == Granted {
			resources.put(o.Resource.Key, ResourceGrant{Key: o.Resource.Key, Columns: o.Resource.Columns})
		} else {
			resources.delete(o.Resource.Key)
		}
	}

	return GrantSet{
		Permissions: perms.values(),
		Resources:   resources.values(),
	}, account, nil
}
