package service

import (
	"context"

	apperrors "sparked/internal/errors"
	"sparked/internal/model"
	"sparked/internal/repository"
	"sparked/internal/session"
)

// UserService exposes administrative user operations.
type UserService interface {
	ListUsers(ctx context.Context, sess *session.Session) ([]model.User, error)
}

type userService struct {
	repo repository.UserRepository
	auth AuthService
}

// NewUserService builds a UserService gated on the session's user.
func NewUserService(repo repository.UserRepository, auth AuthService) UserService {
	return &userService{repo: repo, auth: auth}
}

func (s *userService) requireAdmin(ctx context.Context, sess *session.Session) (*model.User, error) {
	user, err := s.auth.RequireSession(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, apperrors.ErrForbidden
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, sess *session.Session) ([]model.User, error) {
	if _, err := s.requireAdmin(ctx, sess); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	return users, nil
}
