package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
)

func newUserRepo(db *gorm.DB) repositories.UserRepository {
	return repositories.NewUserRepository(db)
}

func newVPNConfigRepo(db *gorm.DB) repositories.VPNConfigRepository {
	return repositories.NewVPNConfigRepository(db)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Одно соединение, чтобы все горутины теста видели одну in-memory базу
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Payment{}, &models.VPNConfig{}))
	return db
}

func newTestNotifier(t *testing.T) NotificationService {
	t.Helper()
	n := NewNotificationService(nil)
	t.Cleanup(n.Stop)
	return n
}

func createTestUser(t *testing.T, db *gorm.DB, id int64) *models.User {
	t.Helper()
	user := &models.User{ID: id, Username: "tester", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestPayment(t *testing.T, db *gorm.DB, id string, userID int64, amount float64, status models.PaymentStatus) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:       id,
		Amount:   amount,
		Currency: "RUB",
		UserID:   userID,
		Status:   status,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func setSubscriptionEnd(t *testing.T, db *gorm.DB, userID int64, end time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).
		Update("subscription_end_date", end).Error)
}
