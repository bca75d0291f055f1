package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"gorm.io/datatypes"

	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/internal/services/yookassa"
	"vpnbot_backend/pkg/apperrors"
)

// PaymentGateway - операции платежного шлюза, которые использует сервис.
// Реализуется yookassa.Client, в тестах подменяется фейком.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req yookassa.CreatePaymentRequest) (*yookassa.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*yookassa.Payment, error)
}

// PaymentResult - то, что уходит клиенту после создания платежа
type PaymentResult struct {
	PaymentID       string               `json:"id"`
	Status          models.PaymentStatus `json:"status"`
	Amount          float64              `json:"amount"`
	Currency        string               `json:"currency"`
	Description     string               `json:"description"`
	ConfirmationURL string               `json:"confirmation_url,omitempty"`
}

type PaymentService interface {
	CreateSubscriptionPayment(ctx context.Context, userID int64, planType string) (*PaymentResult, error)
	CreateTopUpPayment(ctx context.Context, userID int64, stars int, price float64) (*PaymentResult, error)

	// CheckPayment сверяет локальный платеж со шлюзом. Локальный финальный
	// статус никогда не понижается по данным шлюза.
	CheckPayment(ctx context.Context, paymentID string) (*models.Payment, error)

	ConfirmPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	CancelPayment(ctx context.Context, paymentID string) (*models.Payment, error)

	// CreateManualPayment - ручное зачисление администратором
	CreateManualPayment(ctx context.Context, userID int64, amount float64, description string, stars int) (*models.Payment, error)

	ListUserPayments(ctx context.Context, userID int64) ([]models.Payment, error)
}

type PaymentServiceImpl struct {
	gateway       PaymentGateway
	users         repositories.UserRepository
	payments      repositories.PaymentRepository
	plans         PlanService
	subscriptions SubscriptionService
	testMode      bool
	returnURL     string
}

func NewPaymentService(
	gateway PaymentGateway,
	users repositories.UserRepository,
	payments repositories.PaymentRepository,
	plans PlanService,
	subscriptions SubscriptionService,
	testMode bool,
	returnURL string,
) PaymentService {
	return &PaymentServiceImpl{
		gateway:       gateway,
		users:         users,
		payments:      payments,
		plans:         plans,
		subscriptions: subscriptions,
		testMode:      testMode,
		returnURL:     returnURL,
	}
}

func (s *PaymentServiceImpl) CreateSubscriptionPayment(ctx context.Context, userID int64, planType string) (*PaymentResult, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	plan, err := s.plans.PlanByID(planType)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("%s - %.0f₽", plan.Name, plan.Price)

	if s.testMode {
		return s.createMockPayment(ctx, userID, plan.Price, description, 0)
	}

	gwPayment, err := s.gateway.CreatePayment(ctx, yookassa.CreatePaymentRequest{
		AmountValue: plan.Price,
		Currency:    plan.Currency,
		Description: description,
		ReturnURL:   s.returnURL,
		Metadata:    map[string]string{"user_id": fmt.Sprintf("%d", userID)},
	})
	if err != nil {
		logger.CtxWithError(ctx, "yookassa create payment failed", err, "user_id", userID)
		return nil, apperrors.ErrPaymentGateway
	}

	status, known := mapGatewayStatus(gwPayment.Status)
	if !known {
		status = models.PaymentStatusPending
	}
	payment := &models.Payment{
		ID:               gwPayment.ID,
		Amount:           plan.Price,
		Currency:         plan.Currency,
		Description:      description,
		UserID:           userID,
		Status:           status,
		YookassaResponse: datatypes.JSON(gwPayment.Raw),
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "payment created",
		"payment_id", payment.ID, "user_id", userID, "amount", plan.Price)

	return &PaymentResult{
		PaymentID:       payment.ID,
		Status:          payment.Status,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		Description:     payment.Description,
		ConfirmationURL: gwPayment.Confirmation.ConfirmationURL,
	}, nil
}

func (s *PaymentServiceImpl) CreateTopUpPayment(ctx context.Context, userID int64, stars int, price float64) (*PaymentResult, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	description := fmt.Sprintf("Пополнение баланса: %d звезд", stars)

	if s.testMode {
		return s.createMockPayment(ctx, userID, price, description, stars)
	}

	gwPayment, err := s.gateway.CreatePayment(ctx, yookassa.CreatePaymentRequest{
		AmountValue: price,
		Description: description,
		ReturnURL:   s.returnURL,
		Metadata:    map[string]string{"user_id": fmt.Sprintf("%d", userID)},
	})
	if err != nil {
		logger.CtxWithError(ctx, "yookassa create top-up failed", err, "user_id", userID)
		return nil, apperrors.ErrPaymentGateway
	}

	status, known := mapGatewayStatus(gwPayment.Status)
	if !known {
		status = models.PaymentStatusPending
	}
	payment := &models.Payment{
		ID:               gwPayment.ID,
		Amount:           price,
		Currency:         "RUB",
		Description:      description,
		UserID:           userID,
		Status:           status,
		StarsAmount:      stars,
		YookassaResponse: datatypes.JSON(gwPayment.Raw),
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	return &PaymentResult{
		PaymentID:       payment.ID,
		Status:          payment.Status,
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		Description:     payment.Description,
		ConfirmationURL: gwPayment.Confirmation.ConfirmationURL,
	}, nil
}

// createMockPayment - тестовый режим: платеж сразу успешен и зачислен,
// шлюз не вызывается.
func (s *PaymentServiceImpl) createMockPayment(ctx context.Context, userID int64, amount float64, description string, stars int) (*PaymentResult, error) {
	mockID := "mock_" + randomHex(8)

	payment := &models.Payment{
		ID:          mockID,
		Amount:      amount,
		Currency:    "RUB",
		Description: description,
		UserID:      userID,
		Status:      models.PaymentStatusSucceeded,
		Paid:        true,
		Test:        true,
		StarsAmount: stars,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "mock payment created, activating immediately",
		"payment_id", mockID, "user_id", userID)

	if err := s.subscriptions.ActivatePayment(ctx, mockID); err != nil {
		return nil, err
	}

	return &PaymentResult{
		PaymentID:       mockID,
		Status:          models.PaymentStatusSucceeded,
		Amount:          amount,
		Currency:        "RUB",
		Description:     description,
		ConfirmationURL: "https://yoomoney.ru/checkout/payments/checkout-test?orderId=" + mockID,
	}, nil
}

func (s *PaymentServiceImpl) CheckPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	// Финальный локальный статус - истина, шлюз не опрашиваем.
	if payment.Status.IsTerminal() || payment.Test {
		return payment, nil
	}

	gwPayment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		// Шлюз недоступен, отдаем локальное состояние.
		logger.CtxWarn(ctx, "yookassa get payment failed, returning local state",
			"payment_id", paymentID, "error", err.Error())
		return payment, nil
	}

	status, known := mapGatewayStatus(gwPayment.Status)
	if !known {
		// Незнакомый статус шлюза локальное состояние не трогает.
		logger.CtxWarn(ctx, "unknown gateway payment status, keeping local state",
			"payment_id", paymentID, "gateway_status", gwPayment.Status)
		return payment, nil
	}
	if _, err := s.payments.UpdateStatus(paymentID, status); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	if status == models.PaymentStatusSucceeded {
		if err := s.subscriptions.ActivatePayment(ctx, paymentID); err != nil {
			return nil, err
		}
	}

	payment, err = s.payments.FindByID(paymentID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return payment, nil
}

func (s *PaymentServiceImpl) ConfirmPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	applied, err := s.payments.UpdateStatus(paymentID, models.PaymentStatusSucceeded)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	// Отмененный или возвращенный платеж подтвердить нельзя.
	// Повторное подтверждение уже успешного - no-op.
	if !applied && payment.Status != models.PaymentStatusSucceeded {
		return nil, apperrors.ErrPaymentAlreadyFinal
	}
	if err := s.subscriptions.ActivatePayment(ctx, paymentID); err != nil {
		return nil, err
	}

	payment, err = s.payments.FindByID(paymentID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return payment, nil
}

func (s *PaymentServiceImpl) CancelPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	applied, err := s.payments.UpdateStatus(paymentID, models.PaymentStatusCanceled)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	if !applied && payment.Status != models.PaymentStatusCanceled {
		return nil, apperrors.ErrPaymentAlreadyFinal
	}

	payment, err = s.payments.FindByID(paymentID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return payment, nil
}

func (s *PaymentServiceImpl) CreateManualPayment(ctx context.Context, userID int64, amount float64, description string, stars int) (*models.Payment, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	if description == "" {
		description = fmt.Sprintf("Ручное зачисление %.0f₽", amount)
	}

	payment := &models.Payment{
		ID:          "manual_" + randomHex(8),
		Amount:      amount,
		Currency:    "RUB",
		Description: description,
		UserID:      userID,
		Status:      models.PaymentStatusSucceeded,
		Paid:        true,
		StarsAmount: stars,
	}
	if err := s.payments.Create(payment); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "manual payment created",
		"payment_id", payment.ID, "user_id", userID, "amount", amount)

	if err := s.subscriptions.ActivatePayment(ctx, payment.ID); err != nil {
		return nil, err
	}

	return s.payments.FindByID(payment.ID)
}

func (s *PaymentServiceImpl) ListUserPayments(ctx context.Context, userID int64) ([]models.Payment, error) {
	payments, err := s.payments.FindByUser(userID)
	if err != nil {
		return nil, apperrors.ErrDatabase(err)
	}
	return payments, nil
}

func mapGatewayStatus(status string) (models.PaymentStatus, bool) {
	switch status {
	case "pending":
		return models.PaymentStatusPending, true
	case "succeeded":
		return models.PaymentStatusSucceeded, true
	case "waiting_for_capture":
		return models.PaymentStatusWaitingForCapture, true
	case "canceled":
		return models.PaymentStatusCanceled, true
	case "refunded":
		return models.PaymentStatusRefunded, true
	}
	return "", false
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
