package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/pkg/apperrors"
)

func newSubscriptionService(t *testing.T, db *gorm.DB) *SubscriptionServiceImpl {
	t.Helper()
	svc := NewSubscriptionService(
		db,
		repositories.NewUserRepository(db),
		repositories.NewPaymentRepository(db),
		NewPlanService(),
		newTestNotifier(t),
	)
	return svc.(*SubscriptionServiceImpl)
}

func reloadUser(t *testing.T, db *gorm.DB, id int64) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return &user
}

func reloadPayment(t *testing.T, db *gorm.DB, id string) *models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, db.First(&payment, "id = ?", id).Error)
	return &payment
}

func TestApplyGatewayEvent_SucceededActivatesSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 42)
	createTestPayment(t, db, "p1", 42, 110, models.PaymentStatusPending)

	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.succeeded", "p1"))

	payment := reloadPayment(t, db, "p1")
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
	assert.True(t, payment.Paid)
	require.NotNil(t, payment.ActivatedAt)

	user := reloadUser(t, db, 42)
	require.NotNil(t, user.SubscriptionEndDate)
	expected := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, expected, *user.SubscriptionEndDate, time.Minute)

	status, err := svc.GetSubscriptionStatus(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, status.Status)
	assert.True(t, status.DaysLeft == 29 || status.DaysLeft == 30,
		"days_left must be 29 or 30, got %d", status.DaysLeft)
}

func TestApplyGatewayEvent_DuplicateEventsCreditOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusPending)

	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.succeeded", "p1"))
	endAfterFirst := *reloadUser(t, db, 1).SubscriptionEndDate

	// Шлюз прислал то же событие еще дважды
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.succeeded", "p1"))
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.succeeded", "p1"))

	assert.Equal(t, endAfterFirst, *reloadUser(t, db, 1).SubscriptionEndDate,
		"duplicate succeeded events must not extend the subscription")
}

func TestActivatePayment_ConcurrentDuplicatesCreditOnce(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 7)
	createTestPayment(t, db, "p1", 7, 110, models.PaymentStatusSucceeded)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.ActivatePayment(ctx, "p1")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	user := reloadUser(t, db, 7)
	require.NotNil(t, user.SubscriptionEndDate)
	expected := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, expected, *user.SubscriptionEndDate, time.Minute,
		"exactly one of the concurrent activations must credit the 30 days")
}

func TestApplyGatewayEvent_TerminalStatusWins(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	createTestPayment(t, db, "p2", 1, 110, models.PaymentStatusPending)

	// canceled - финальный, запоздавший waiting_for_capture его не трогает
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.canceled", "p2"))
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.waiting_for_capture", "p2"))
	assert.Equal(t, models.PaymentStatusCanceled, reloadPayment(t, db, "p2").Status)

	// succeeded тоже финальный
	createTestPayment(t, db, "p3", 1, 110, models.PaymentStatusPending)
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.succeeded", "p3"))
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.canceled", "p3"))
	assert.Equal(t, models.PaymentStatusSucceeded, reloadPayment(t, db, "p3").Status)
}

func TestApplyGatewayEvent_LateSucceededAfterCancelDoesNotCredit(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusPending)

	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.canceled", "p1"))

	// Запоздавший succeeded по отмененному платежу не зачисляется
	require.NoError(t, svc.ApplyGatewayEvent(ctx, "payment.succeeded", "p1"))

	payment := reloadPayment(t, db, "p1")
	assert.Equal(t, models.PaymentStatusCanceled, payment.Status)
	assert.Nil(t, payment.ActivatedAt)

	user := reloadUser(t, db, 1)
	assert.Nil(t, user.SubscriptionEndDate, "canceled payment must never credit the subscription")
	assert.Equal(t, 0, user.Balance)
}

func TestActivatePayment_RefundedPaymentIsNotCredited(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusRefunded)

	require.NoError(t, svc.ActivatePayment(ctx, "p1"))

	assert.Nil(t, reloadPayment(t, db, "p1").ActivatedAt)
	assert.Nil(t, reloadUser(t, db, 1).SubscriptionEndDate)
}

func TestApplyGatewayEvent_RefundMapsToRefunded(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusWaitingForCapture)

	require.NoError(t, svc.ApplyGatewayEvent(ctx, "refund.succeeded", "p1"))
	assert.Equal(t, models.PaymentStatusRefunded, reloadPayment(t, db, "p1").Status)
}

func TestApplyGatewayEvent_UnknownPaymentIsNonFatal(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)

	createTestUser(t, db, 1)

	require.NoError(t, svc.ApplyGatewayEvent(context.Background(), "payment.succeeded", "no_such_payment"))
	assert.Nil(t, reloadUser(t, db, 1).SubscriptionEndDate)
}

func TestApplyGatewayEvent_UnknownEventTypeIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)

	createTestUser(t, db, 1)
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusPending)

	require.NoError(t, svc.ApplyGatewayEvent(context.Background(), "deal.created", "p1"))
	assert.Equal(t, models.PaymentStatusPending, reloadPayment(t, db, "p1").Status)
}

func TestActivation_StacksOnActiveSubscription(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, 5))
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusSucceeded)

	require.NoError(t, svc.ActivatePayment(ctx, "p1"))

	user := reloadUser(t, db, 1)
	expected := time.Now().AddDate(0, 0, 35)
	assert.WithinDuration(t, expected, *user.SubscriptionEndDate, time.Minute,
		"active subscription extends from its current end, not from now")
}

func TestActivation_ExpiredSubscriptionRestartsFromNow(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, -10))
	createTestPayment(t, db, "p1", 1, 110, models.PaymentStatusSucceeded)

	require.NoError(t, svc.ActivatePayment(ctx, "p1"))

	user := reloadUser(t, db, 1)
	expected := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, expected, *user.SubscriptionEndDate, time.Minute)
}

func TestActivation_DurationByAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		days   int
	}{
		{"month", 110, 30},
		{"4 months", 290, 120},
		{"12 months", 500, 365},
		{"unknown amount falls back to 30", 999, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			svc := newSubscriptionService(t, db)

			createTestUser(t, db, 1)
			createTestPayment(t, db, "p1", 1, tt.amount, models.PaymentStatusSucceeded)

			require.NoError(t, svc.ActivatePayment(context.Background(), "p1"))

			user := reloadUser(t, db, 1)
			expected := time.Now().AddDate(0, 0, tt.days)
			assert.WithinDuration(t, expected, *user.SubscriptionEndDate, time.Minute)
		})
	}
}

func TestActivation_StarsTopUpCreditsBalanceOnly(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)

	user := createTestUser(t, db, 1)
	user.Balance = 10
	require.NoError(t, db.Save(user).Error)

	payment := &models.Payment{
		ID:          "p1",
		Amount:      100,
		Currency:    "RUB",
		UserID:      1,
		Status:      models.PaymentStatusSucceeded,
		StarsAmount: 50,
	}
	require.NoError(t, db.Create(payment).Error)

	require.NoError(t, svc.ActivatePayment(context.Background(), "p1"))

	got := reloadUser(t, db, 1)
	assert.Equal(t, 60, got.Balance)
	assert.Nil(t, got.SubscriptionEndDate, "stars top-up must not touch the subscription")
}

func TestGetSubscriptionStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	createTestUser(t, db, 1)

	status, err := svc.GetSubscriptionStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusNone, status.Status)
	assert.Equal(t, 0, status.DaysLeft)

	setSubscriptionEnd(t, db, 1, now.AddDate(0, 0, -1))
	status, err = svc.GetSubscriptionStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, status.Status)
	assert.Equal(t, 0, status.DaysLeft)

	// Ровно на границе - подписка уже не активна
	setSubscriptionEnd(t, db, 1, now)
	status, err = svc.GetSubscriptionStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, status.Status)

	setSubscriptionEnd(t, db, 1, now.Add(36*time.Hour))
	status, err = svc.GetSubscriptionStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, status.Status)
	assert.Equal(t, 1, status.DaysLeft, "days_left is floored")

	_, err = svc.GetSubscriptionStatus(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestGrantTrial(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)

	user, err := svc.GrantTrial(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.TrialUsed)
	require.NotNil(t, user.SubscriptionEndDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), *user.SubscriptionEndDate, time.Minute)

	// Повторная выдача триала запрещена
	_, err = svc.GrantTrial(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrTrialAlreadyUsed)

	_, err = svc.GrantTrial(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestRequireActiveForProvisioning(t *testing.T) {
	db := newTestDB(t)
	svc := newSubscriptionService(t, db)
	ctx := context.Background()

	_, err := svc.RequireActiveForProvisioning(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	createTestUser(t, db, 1)
	_, err = svc.RequireActiveForProvisioning(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionInactive)

	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, 3))
	user, err := svc.RequireActiveForProvisioning(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.ID)
}
