package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/gridgate/gridgate/internal/access"
	"github.com/gridgate/gridgate/internal/shared"
)

// Service wraps authentication business rules: credential verification,
// access resolution and bearer-credential issuance. Resolution happens once
// here; overrides granted afterwards take effect at the next login.
type Service struct {
	repo     Repository
	resolver *access.Resolver
	tokens   *access.TokenCodec
}

// NewService constructs a new Service.
func NewService(repo Repository, resolver *access.Resolver, tokens *access.TokenCodec) *Service {
	return &Service{repo: repo, resolver: resolver, tokens: tokens}
}

// LoginResult carries the issued credential plus display identity.
type LoginResult struct {
	Token string
	User  *access.UserAccount
	Set   access.GrantSet
}

// Login validates email/password credentials and issues a signed bearer
// credential carrying the resolved grant set. Wrong email, wrong password
// and suspended accounts are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if user.Suspended {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	set, account, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(account, set)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: account, Set: set}, nil
}
