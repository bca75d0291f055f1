package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/pkg/apperrors"
)

// SubscriptionStatusResult - ответ на запрос статуса подписки
type SubscriptionStatusResult struct {
	Status    models.SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time                `json:"expires_at"`
	DaysLeft  int                       `json:"days_left"`
	TrialUsed bool                      `json:"trial_used"`
}

const trialDays = 7

type SubscriptionService interface {
	// ApplyGatewayEvent обрабатывает событие платежного шлюза.
	// Неизвестный платеж и неизвестный тип события не являются ошибками.
	ApplyGatewayEvent(ctx context.Context, event, paymentID string) error

	// ActivatePayment зачисляет успешный платеж пользователю ровно один раз.
	// Повторные вызовы для того же платежа ничего не делают.
	ActivatePayment(ctx context.Context, paymentID string) error

	GetSubscriptionStatus(ctx context.Context, userID int64) (*SubscriptionStatusResult, error)
	GrantTrial(ctx context.Context, userID int64) (*models.User, error)
	IsSubscriptionActive(ctx context.Context, userID int64) (bool, error)

	// RequireActiveForProvisioning возвращает пользователя, если его подписка
	// активна. Вызывается перед любой выдачей VPN-материалов.
	RequireActiveForProvisioning(ctx context.Context, userID int64) (*models.User, error)

	// NotifyExpiringSoon рассылает напоминания пользователям,
	// у которых подписка заканчивается в ближайшие дни.
	NotifyExpiringSoon(ctx context.Context) error
}

type SubscriptionServiceImpl struct {
	db       *gorm.DB
	users    repositories.UserRepository
	payments repositories.PaymentRepository
	plans    PlanService
	notifier NotificationService
	now      func() time.Time
}

func NewSubscriptionService(
	db *gorm.DB,
	users repositories.UserRepository,
	payments repositories.PaymentRepository,
	plans PlanService,
	notifier NotificationService,
) SubscriptionService {
	return &SubscriptionServiceImpl{
		db:       db,
		users:    users,
		payments: payments,
		plans:    plans,
		notifier: notifier,
		now:      time.Now,
	}
}

// mapGatewayEvent переводит тип события YooKassa в статус платежа.
func mapGatewayEvent(event string) (models.PaymentStatus, bool) {
	switch event {
	case "payment.succeeded":
		return models.PaymentStatusSucceeded, true
	case "payment.waiting_for_capture":
		return models.PaymentStatusWaitingForCapture, true
	case "payment.canceled":
		return models.PaymentStatusCanceled, true
	case "refund.succeeded":
		return models.PaymentStatusRefunded, true
	}
	return "", false
}

func (s *SubscriptionServiceImpl) ApplyGatewayEvent(ctx context.Context, event, paymentID string) error {
	status, ok := mapGatewayEvent(event)
	if !ok {
		logger.CtxWarn(ctx, "unknown gateway event type, ignoring", "event", event, "payment_id", paymentID)
		return nil
	}

	if _, err := s.payments.FindByID(paymentID); err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			// Событие по платежу, которого у нас нет. Логируем и отвечаем
			// шлюзу успехом, иначе он будет ретраить вечно.
			logger.CtxWarn(ctx, "gateway event for unknown payment", "event", event, "payment_id", paymentID)
			return nil
		}
		return apperrors.ErrDatabase(err)
	}

	applied, err := s.payments.UpdateStatus(paymentID, status)
	if err != nil {
		return apperrors.ErrDatabase(err)
	}
	if !applied {
		logger.CtxInfo(ctx, "payment already in terminal status, event skipped",
			"event", event, "payment_id", paymentID)
	}

	// Активация вызывается и при повторном succeeded: она идемпотентна
	// и доводит зачисление, если предыдущая попытка оборвалась.
	if status == models.PaymentStatusSucceeded {
		return s.ActivatePayment(ctx, paymentID)
	}
	return nil
}

func (s *SubscriptionServiceImpl) ActivatePayment(ctx context.Context, paymentID string) error {
	now := s.now()

	var (
		creditedUser  int64
		creditedDays  int
		creditedStars int
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		payments := repositories.NewPaymentRepository(tx)
		users := repositories.NewUserRepository(tx)

		// Зачисление происходит только у того, кто выиграл CAS по activated_at.
		// Проигравшие (повторные webhook-и, параллельный check) выходят сразу.
		won, err := payments.MarkActivated(paymentID, now)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		payment, err := payments.FindByID(paymentID)
		if err != nil {
			return err
		}

		user, err := users.FindByID(payment.UserID)
		if err != nil {
			return err
		}

		if payment.IsStarsTopUp() {
			user.Balance += payment.StarsAmount
			creditedStars = payment.StarsAmount
		} else {
			days := s.plans.DurationForAmount(payment.Amount)
			if user.SubscriptionEndDate == nil || !user.SubscriptionEndDate.After(now) {
				end := now.AddDate(0, 0, days)
				user.SubscriptionEndDate = &end
			} else {
				end := user.SubscriptionEndDate.AddDate(0, 0, days)
				user.SubscriptionEndDate = &end
			}
			creditedDays = days
		}
		creditedUser = user.ID

		return users.Update(user)
	})
	if err != nil {
		return apperrors.ErrDatabase(err)
	}

	if creditedUser != 0 {
		logger.CtxInfo(ctx, "payment activated",
			"payment_id", paymentID, "user_id", creditedUser,
			"days", creditedDays, "stars", creditedStars)
		if creditedStars > 0 {
			s.notifier.BalanceToppedUp(creditedUser, creditedStars)
		} else {
			s.notifier.SubscriptionActivated(creditedUser, creditedDays)
		}
	}
	return nil
}

func (s *SubscriptionServiceImpl) GetSubscriptionStatus(ctx context.Context, userID int64) (*SubscriptionStatusResult, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	now := s.now()
	result := &SubscriptionStatusResult{
		ExpiresAt: user.SubscriptionEndDate,
		TrialUsed: user.TrialUsed,
	}

	switch {
	case user.SubscriptionEndDate == nil:
		result.Status = models.SubscriptionStatusNone
	case !user.IsSubscriptionActive(now):
		result.Status = models.SubscriptionStatusExpired
	default:
		result.Status = models.SubscriptionStatusActive
		result.DaysLeft = user.DaysLeft(now)
	}
	return result, nil
}

func (s *SubscriptionServiceImpl) GrantTrial(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	if user.TrialUsed {
		return nil, apperrors.ErrTrialAlreadyUsed
	}

	now := s.now()
	if user.IsSubscriptionActive(now) {
		end := user.SubscriptionEndDate.AddDate(0, 0, trialDays)
		user.SubscriptionEndDate = &end
	} else {
		end := now.AddDate(0, 0, trialDays)
		user.SubscriptionEndDate = &end
	}
	user.TrialUsed = true

	if err := s.users.Update(user); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "trial granted", "user_id", userID)
	return user, nil
}

func (s *SubscriptionServiceImpl) IsSubscriptionActive(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return false, apperrors.ErrUserNotFound
		}
		return false, apperrors.ErrDatabase(err)
	}
	return user.IsSubscriptionActive(s.now()), nil
}

func (s *SubscriptionServiceImpl) RequireActiveForProvisioning(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}
	if !user.IsSubscriptionActive(s.now()) {
		return nil, apperrors.ErrSubscriptionInactive
	}
	return user, nil
}

const expiringSoonDays = 3

func (s *SubscriptionServiceImpl) NotifyExpiringSoon(ctx context.Context) error {
	users, err := s.users.FindExpiringSoon(s.now(), expiringSoonDays)
	if err != nil {
		return apperrors.ErrDatabase(err)
	}
	for _, u := range users {
		s.notifier.SubscriptionExpiring(u.ID, u.DaysLeft(s.now()))
	}
	return nil
}
