package models

import (
	"time"

	"gorm.io/datatypes"
)

// Payment - платеж. ID приходит от YooKassa (или mock_/manual_ в тестовом
// и ручном режимах), поэтому первичный ключ строковый.
type Payment struct {
	ID               string         `gorm:"primaryKey;size:100" json:"id"`
	Amount           float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency         string         `gorm:"size:3;default:RUB" json:"currency"`
	Description      string         `gorm:"type:text" json:"description"`
	UserID           int64          `gorm:"not null;index" json:"user_id"`
	Status           PaymentStatus  `gorm:"size:20;default:pending" json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Paid             bool           `gorm:"default:false" json:"paid"`
	YookassaResponse datatypes.JSON `json:"-"`
	Test             bool           `gorm:"default:false" json:"test"`
	StarsAmount      int            `gorm:"default:0" json:"stars_amount"`

	// ActivatedAt выставляется атомарно ровно один раз, когда успешный платеж
	// зачислен пользователю. Повторные webhook-и зачисление не дублируют.
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsStarsTopUp - платеж пополнения баланса звездами, подписку не продлевает.
func (p *Payment) IsStarsTopUp() bool {
	return p.StarsAmount > 0
}
