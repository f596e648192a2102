package service

import (
	"context"
	"errors"

	userserrors "classbook/internal/users/errors"
	"classbook/internal/users/repository"
	"classbook/pkg/config"
	mongotx "classbook/pkg/db/mongo"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/model"
	"classbook/pkg/password"
	"classbook/pkg/sanitizer"
)

type UserService interface {
	// Resolve finds the user with email or creates one. It reports whether
	// the user was created.
	Resolve(ctx context.Context, email, name string) (*model.User, bool, error)
	// Lookup returns nil, nil when no user has email.
	Lookup(ctx context.Context, email string) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
	cfg  *config.Config
}

func NewUserService(repo repository.UserRepository, cfg *config.Config) UserService {
	return &userService{
		repo: repo,
		cfg:  cfg,
	}
}

func (s *userService) Resolve(ctx context.Context, email, name string) (*model.User, bool, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, false, apperrors.InvalidInput("User email cannot be empty")
	}

	user, err := s.Lookup(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	hash, err := password.RandomHash(s.cfg.BcryptCost)
	if err != nil {
		return nil, false, apperrors.Internal("Failed to create user", err)
	}

	user = &model.User{
		Email:        email,
		Name:         sanitizer.NormalizeName(name),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Outside a transaction a concurrent create is resolved by reading the
		// winner. Inside one the write error has already aborted it.
		if errors.Is(err, userserrors.ErrDuplicateEmail) && !mongotx.InTransaction(ctx) {
			existing, findErr := s.Lookup(ctx, email)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		s.cfg.Log.Error("Failed to create user", "email", email, "error", err)
		return nil, false, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User created", "id", user.ID)
	return user, true, nil
}

func (s *userService) Lookup(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.FindByEmail(ctx, sanitizer.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to look up user", err)
	}
	return user, nil
}
