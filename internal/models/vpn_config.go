package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VPNConfig - WireGuard конфигурация пользователя, одна на пользователя.
type VPNConfig struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	UserID          int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	PrivateKey      string     `gorm:"size:100;not null" json:"-"`
	PublicKey       string     `gorm:"size:100;not null" json:"public_key"`
	ServerIP        string     `gorm:"size:50;not null" json:"server_ip"`
	ServerPort      int        `gorm:"not null" json:"server_port"`
	DNSServer       string     `gorm:"size:50;not null" json:"dns_server"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	LastConnected   *time.Time `json:"last_connected"`
	ConnectionCount int        `gorm:"default:0" json:"connection_count"`
}

func (VPNConfig) TableName() string {
	return "vpn_configs"
}

func (c *VPNConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
