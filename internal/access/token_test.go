package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgate/gridgate/internal/shared"
)

func testAccount() *UserAccount {
	return &UserAccount{ID: 7, Email: "analyst@example.com", RoleID: 2, RoleName: "analyst"}
}

func testGrantSet() GrantSet {
	return GrantSet{
		Permissions: []PermissionGrant{{Key: "VIEW_SITES_ROUTE"}},
		Resources:   []ResourceGrant{{Key: "Site_Basic", Columns: []string{"id", "site_name"}}},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	signed, err := codec.Issue(testAccount(), testGrantSet())
	require.NoError(t, err)

	claims, err := codec.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "analyst@example.com", claims.Email)
	assert.Equal(t, "analyst", claims.Role)
	require.Len(t, claims.Permissions, 1)
	assert.Equal(t, "VIEW_SITES_ROUTE", claims.Permissions[0].Key)
	require.Len(t, claims.Resources, 1)
	assert.Equal(t, []string{"id", "site_name"}, claims.Resources[0].Columns)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenExpired(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Minute)
	issued := time.Now()
	codec.now = func() time.Time { return issued }

	signed, err := codec.Issue(testAccount(), testGrantSet())
	require.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTokenWrongSecret(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	signed, err := codec.Issue(testAccount(), testGrantSet())
	require.NoError(t, err)

	other := NewTokenCodec("different-secret", time.Hour)
	_, err = other.Parse(signed)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestTokenGarbage(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	_, err := codec.Parse("not-a-token")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}
