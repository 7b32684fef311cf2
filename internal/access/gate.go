package access

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gridgate/gridgate/internal/platform/httpx"
	"github.com/gridgate/gridgate/internal/shared"
)

// PermissionKeyFor computes the permission key guarding a resource route,
// following the VIEW_<RESOURCE_UPPERCASE>_ROUTE convention.
func PermissionKeyFor(routeResource string) string {
	return "VIEW_" + strings.ToUpper(routeResource) + "_ROUTE"
}

// MatchesRoute reports whether a resource grant key applies to a route's
// resource segment. One canonical rule: the lowercased first
// underscore-delimited segment of the key must equal the segment either
// exactly or after pluralizing with "s" ("Site_Admin" matches "sites").
func MatchesRoute(grantKey, routeResource string) bool {
	seg := grantKey
	if i := strings.IndexByte(seg, '_'); i >= 0 {
		seg = seg[:i]
	}
	seg = strings.ToLower(seg)
	route := strings.ToLower(routeResource)
	return seg == route || seg+"s" == route
}

// SuspensionStore is the single live persistence read performed per request.
type SuspensionStore interface {
	IsSuspended(ctx context.Context, userID int64) (bool, error)
}

// Gate is the per-request boundary: it verifies the bearer credential,
// checks route permission and resource grant, and attaches the permitted
// columns to the request context. It fails closed.
type Gate struct {
	Codec  *TokenCodec
	Store  SuspensionStore
	Logger *slog.Logger
}

func (g Gate) authenticate(r *http.Request) (*Claims, error) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return nil, shared.ErrUnauthenticated
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer"))
	claims, err := g.Codec.Parse(raw)
	if err != nil {
		return nil, err
	}
	suspended, err := g.Store.IsSuspended(r.Context(), claims.UserID)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("suspension check", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		}
		// Ambiguity about authorization rejects the request.
		return nil, shared.ErrForbidden
	}
	if suspended {
		return nil, fmt.Errorf("account suspended: %w", shared.ErrForbidden)
	}
	return claims, nil
}

// RequireResource gates data-reading routes mounted with a {resource} URL
// parameter.
func (g Gate) RequireResource() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.authenticate(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			routeResource := chi.URLParam(r, "resource")
			required := PermissionKeyFor(routeResource)
			set := GrantSet{Permissions: claims.Permissions, Resources: claims.Resources}
			if !set.HasPermission(required) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			var grant *ResourceGrant
			for i := range claims.Resources {
				if MatchesRoute(claims.Resources[i].Key, routeResource) {
					grant = &claims.Resources[i]
					break
				}
			}
			if grant == nil {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			ctx := shared.ContextWithAccess(r.Context(), &shared.Access{
				UserID:      claims.UserID,
				Email:       claims.Email,
				Role:        claims.Role,
				Table:       strings.ToLower(routeResource),
				ResourceKey: grant.Key,
				Columns:     grant.Columns,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates administrative routes on a fixed permission key.
func (g Gate) RequirePermission(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.authenticate(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			set := GrantSet{Permissions: claims.Permissions}
			if !set.HasPermission(key) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			ctx := shared.ContextWithAccess(r.Context(), &shared.Access{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
