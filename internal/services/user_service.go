package services

import (
	"context"

	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/pkg/apperrors"
)

type UserService interface {
	// RegisterUser создает пользователя, если его еще нет.
	// Повторная регистрация возвращает существующего пользователя.
	RegisterUser(ctx context.Context, id int64, username, email string) (*models.User, bool, error)

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetBalance(ctx context.Context, id int64) (int, error)
}

type UserServiceImpl struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) UserService {
	return &UserServiceImpl{users: users}
}

func (s *UserServiceImpl) RegisterUser(ctx context.Context, id int64, username, email string) (*models.User, bool, error) {
	if existing, err := s.users.FindByID(id); err == nil {
		return existing, false, nil
	} else if !apperrors.Is(err, repositories.ErrUserNotFound) {
		return nil, false, apperrors.ErrDatabase(err)
	}

	user := &models.User{
		ID:       id,
		Username: username,
		Email:    email,
		IsActive: true,
	}
	if err := s.users.Create(user); err != nil {
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			// Гонка двух регистраций, отдаем уже созданного
			existing, ferr := s.users.FindByID(id)
			if ferr != nil {
				return nil, false, apperrors.ErrDatabase(ferr)
			}
			return existing, false, nil
		}
		return nil, false, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", id, "username", username)
	return user, true, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}
	return user, nil
}

func (s *UserServiceImpl) GetBalance(ctx context.Context, id int64) (int, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Balance, nil
}
