package handler

import (
	"context"
	"errors"

	"github.com/emrecanisildak/diet/internal/domain"
	"github.com/emrecanisildak/diet/internal/repository"
	"github.com/emrecanisildak/diet/pkg/middleware"
)

type userRoles struct {
	users repository.UserRepository
}

// NewUserLookup resolves caller roles from the user table.
func NewUserLookup(users repository.UserRepository) middleware.UserLookup {
	return &userRoles{users: users}
}

func (u *userRoles) LookupRole(ctx context.Context, userID string) (string, error) {
	user, err := u.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", middleware.ErrUnknownUser
	}
	if err != nil {
		return "", err
	}
	return user.Role, nil
}
