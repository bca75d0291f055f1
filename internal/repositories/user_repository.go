package repositories

import (
	"errors"
	"time"

	"vpnbot_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	FindByID(id int64) (*models.User, error)
	Create(user *models.User) error
	Update(user *models.User) error

	// Admin operations
	FindAll(limit, offset int) ([]models.User, error)
	CountAll() (int64, error)
	CountActiveSubscriptions(now time.Time) (int64, error)

	// Maintenance
	FindExpiringSoon(now time.Time, withinDays int) ([]models.User, error)
}

type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) FindByID(id int64) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) Create(user *models.User) error {
	var existing models.User
	if err := r.db.First(&existing, "id = ?", user.ID).Error; err == nil {
		return ErrUserAlreadyExists
	}
	return r.db.Create(user).Error
}

func (r *UserRepositoryImpl) Update(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepositoryImpl) FindAll(limit, offset int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

func (r *UserRepositoryImpl) CountActiveSubscriptions(now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("subscription_end_date > ?", now).
		Count(&count).Error
	return count, err
}

// FindExpiringSoon возвращает пользователей, у которых подписка активна,
// но закончится в ближайшие withinDays дней.
func (r *UserRepositoryImpl) FindExpiringSoon(now time.Time, withinDays int) ([]models.User, error) {
	var users []models.User
	deadline := now.AddDate(0, 0, withinDays)
	err := r.db.
		Where("subscription_end_date > ? AND subscription_end_date <= ?", now, deadline).
		Find(&users).Error
	return users, err
}
