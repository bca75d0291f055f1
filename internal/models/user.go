package models

import (
	"encoding/json"
	"time"
)

// User - пользователь сервиса. ID совпадает с Telegram user ID.
type User struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	Username            string     `gorm:"size:100" json:"username"`
	Email               string     `gorm:"size:100" json:"email,omitempty"`
	SubscriptionEndDate *time.Time `json:"subscription_end_date"`
	CreatedAt           time.Time  `json:"created_at"`
	IsActive            bool       `gorm:"default:true" json:"is_active"`
	TrialUsed           bool       `gorm:"default:false" json:"trial_used"`
	LastChargeDate      *time.Time `json:"last_charge_date,omitempty"`
	ConnectionHistory   string     `gorm:"type:text" json:"-"`
	Balance             int        `gorm:"default:0" json:"balance"`
}

func (User) TableName() string {
	return "users"
}

// IsSubscriptionActive - подписка активна, если дата окончания задана
// и строго больше текущего момента. Момент ровно на границе считается истекшим.
func (u *User) IsSubscriptionActive(now time.Time) bool {
	return u.SubscriptionEndDate != nil && u.SubscriptionEndDate.After(now)
}

// DaysLeft - целое число оставшихся дней, округление вниз, не меньше нуля.
func (u *User) DaysLeft(now time.Time) int {
	if u.SubscriptionEndDate == nil {
		return 0
	}
	left := int(u.SubscriptionEndDate.Sub(now).Hours() / 24)
	if left < 0 {
		return 0
	}
	return left
}

// ConnectionLogEntry - запись истории подключений
type ConnectionLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Connected bool      `json:"connected"`
}

const connectionHistoryLimit = 50

// AddConnectionLog дописывает запись в историю подключений,
// храним только последние 50 записей.
func (u *User) AddConnectionLog(connected bool, now time.Time) {
	var history []ConnectionLogEntry
	if u.ConnectionHistory != "" {
		// Битая история не должна ломать подключение
		_ = json.Unmarshal([]byte(u.ConnectionHistory), &history)
	}

	history = append(history, ConnectionLogEntry{Timestamp: now, Connected: connected})
	if len(history) > connectionHistoryLimit {
		history = history[len(history)-connectionHistoryLimit:]
	}

	raw, err := json.Marshal(history)
	if err != nil {
		return
	}
	u.ConnectionHistory = string(raw)
}
