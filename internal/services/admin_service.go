package services

import (
	"context"
	"time"

	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/pkg/apperrors"
)

// AdminStats - сводка для панели администратора
type AdminStats struct {
	TotalUsers          int64   `json:"total_users"`
	ActiveSubscriptions int64   `json:"active_subscriptions"`
	TotalPayments       int64   `json:"total_payments"`
	TotalRevenue        float64 `json:"total_revenue"`
}

// AdminUserUpdate - частичное обновление пользователя администратором
type AdminUserUpdate struct {
	SubscriptionEndDate *time.Time `json:"subscription_end_date"`
	Balance             *int       `json:"balance"`
	IsActive            *bool      `json:"is_active"`
	TrialUsed           *bool      `json:"trial_used"`
}

type AdminService interface {
	Stats(ctx context.Context) (*AdminStats, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	ListPayments(ctx context.Context, limit, offset int) ([]models.Payment, error)
	UpdateUser(ctx context.Context, id int64, update AdminUserUpdate) (*models.User, error)
}

type AdminServiceImpl struct {
	users    repositories.UserRepository
	payments repositories.PaymentRepository
	now      func() time.Time
}

func NewAdminService(users repositories.UserRepository, payments repositories.PaymentRepository) AdminService {
	return &AdminServiceImpl{
		users:    users,
		payments: payments,
		now:      time.Now,
	}
}

func (s *AdminServiceImpl) Stats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}

	var err error
	if stats.TotalUsers, err = s.users.CountAll(); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	if stats.ActiveSubscriptions, err = s.users.CountActiveSubscriptions(s.now()); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	if stats.TotalPayments, err = s.payments.CountAll(); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	if stats.TotalRevenue, err = s.payments.TotalSucceededAmount(); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return stats, nil
}

func (s *AdminServiceImpl) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	users, err := s.users.FindAll(limit, offset)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return users, nil
}

func (s *AdminServiceImpl) ListPayments(ctx context.Context, limit, offset int) ([]models.Payment, error) {
	payments, err := s.payments.FindAll(limit, offset)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return payments, nil
}

func (s *AdminServiceImpl) UpdateUser(ctx context.Context, id int64, update AdminUserUpdate) (*models.User, error) {
	user, err := s.users.FindByID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	if update.SubscriptionEndDate != nil {
		user.SubscriptionEndDate = update.SubscriptionEndDate
	}
	if update.Balance != nil {
		user.Balance = *update.Balance
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.TrialUsed != nil {
		user.TrialUsed = *update.TrialUsed
	}

	if err := s.users.Update(user); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "user updated by admin", "user_id", id)
	return user, nil
}
