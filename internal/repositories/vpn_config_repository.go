package repositories

import (
	"errors"
	"time"

	"vpnbot_backend/internal/models"

	"gorm.io/gorm"
)

var ErrVPNConfigNotFound = errors.New("vpn config not found")

type VPNConfigRepository interface {
	Create(cfg *models.VPNConfig) error
	FindByUserID(userID int64) (*models.VPNConfig, error)
	Save(cfg *models.VPNConfig) error

	// DeactivateForExpiredUsers отключает конфигурации пользователей,
	// у которых подписка закончилась. Возвращает число отключенных.
	DeactivateForExpiredUsers(now time.Time) (int64, error)
}

type VPNConfigRepositoryImpl struct {
	db *gorm.DB
}

func NewVPNConfigRepository(db *gorm.DB) VPNConfigRepository {
	return &VPNConfigRepositoryImpl{db: db}
}

func (r *VPNConfigRepositoryImpl) Create(cfg *models.VPNConfig) error {
	return r.db.Create(cfg).Error
}

func (r *VPNConfigRepositoryImpl) FindByUserID(userID int64) (*models.VPNConfig, error) {
	var cfg models.VPNConfig
	err := r.db.First(&cfg, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVPNConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *VPNConfigRepositoryImpl) Save(cfg *models.VPNConfig) error {
	return r.db.Save(cfg).Error
}

func (r *VPNConfigRepositoryImpl) DeactivateForExpiredUsers(now time.Time) (int64, error) {
	res := r.db.Model(&models.VPNConfig{}).
		Where("is_active = ? AND user_id IN (?)", true,
			r.db.Model(&models.User{}).Select("id").
				Where("subscription_end_date IS NULL OR subscription_end_date <= ?", now),
		).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
