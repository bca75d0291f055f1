package repositories

import (
	"errors"
	"time"

	"vpnbot_backend/internal/models"

	"gorm.io/gorm"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	Create(payment *models.Payment) error
	FindByID(id string) (*models.Payment, error)
	Save(payment *models.Payment) error

	// UpdateStatus переводит платеж в новый статус, только если текущий
	// статус не финальный. Возвращает true, если запись была обновлена.
	UpdateStatus(id string, status models.PaymentStatus) (bool, error)

	// MarkActivated выставляет activated_at атомарно, только если платеж
	// успешен и еще не был зачислен. Возвращает true, если выиграли
	// гонку за активацию.
	MarkActivated(id string, at time.Time) (bool, error)

	FindByUser(userID int64) ([]models.Payment, error)
	FindAll(limit, offset int) ([]models.Payment, error)
	CountAll() (int64, error)
	TotalSucceededAmount() (float64, error)
}

type PaymentRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

func (r *PaymentRepositoryImpl) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *PaymentRepositoryImpl) FindByID(id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepositoryImpl) Save(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *PaymentRepositoryImpl) UpdateStatus(id string, status models.PaymentStatus) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == models.PaymentStatusSucceeded {
		updates["paid"] = true
	}

	// Финальный статус выигрывает: запоздавшие или повторные события
	// не могут перезаписать succeeded/canceled/refunded.
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status NOT IN ?", id, models.TerminalStatuses()).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepositoryImpl) MarkActivated(id string, at time.Time) (bool, error) {
	// Зачислить можно только платеж, сохраненный как succeeded: событие
	// succeeded по уже отмененному или возвращенному платежу сюда доходит,
	// но выиграть активацию не должно.
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ? AND activated_at IS NULL", id, models.PaymentStatusSucceeded).
		Update("activated_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepositoryImpl) FindByUser(userID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepositoryImpl) FindAll(limit, offset int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&payments).Error
	return payments, err
}

func (r *PaymentRepositoryImpl) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Count(&count).Error
	return count, err
}

func (r *PaymentRepositoryImpl) TotalSucceededAmount() (float64, error) {
	var total float64
	err := r.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusSucceeded).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}
