package access

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gridgate/gridgate/internal/shared"
)

// Claims is the bearer credential payload. It is the sole source of truth
// for permissions and resource grants for the rest of the session; only the
// suspension flag is re-checked live.
type Claims struct {
	Email       string            `json:"email"`
	UserID      int64             `json:"userId"`
	Role        string            `json:"role"`
	Permissions []PermissionGrant `json:"permissions"`
	Resources   []ResourceGrant   `json:"resources"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies bearer credentials (HS256).
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec constructs a codec with the given signing secret and TTL.
func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue packages the resolved grant set plus identity claims into a signed,
// expiring credential.
func (c *TokenCodec) Issue(account *UserAccount, set GrantSet) (string, error) {
	now := c.now()
	claims := Claims{
		Email:       account.Email,
		UserID:      account.ID,
		Role:        account.RoleName,
		Permissions: set.Permissions,
		Resources:   set.Resources,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("access: sign credential: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims. Any defect
// maps to ErrUnauthenticated; callers never see parser internals.
func (c *TokenCodec) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil || !token.Valid {
		return nil, shared.ErrUnauthenticated
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, shared.ErrUnauthenticated
	}
	return claims, nil
}
