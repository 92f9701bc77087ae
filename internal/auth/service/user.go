package service

import (
	"context"
	"fmt"

	"github.com/tokelabs/sessiond/internal/auth/domain"
	"github.com/tokelabs/sessiond/internal/auth/store"
)

// UserService exposes read access to user records for authenticated
// endpoints.
type UserService struct {
	Store store.Store
}

func (s *UserService) GetUserByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}
