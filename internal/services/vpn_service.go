package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/crypto/curve25519"

	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/pkg/apperrors"
)

// WireGuardSettings - серверная часть параметров конфигурации
type WireGuardSettings struct {
	ServerPublicKey string
	ServerIP        string
	ServerPort      int
	DNS             string
}

// ConnectionStatus - состояние VPN-подключения пользователя
type ConnectionStatus struct {
	Connected       bool       `json:"connected"`
	ConfigActive    bool       `json:"config_active"`
	ClientIP        string     `json:"client_ip,omitempty"`
	LastConnected   *time.Time `json:"last_connected,omitempty"`
	ConnectionCount int        `json:"connection_count"`
}

type VPNService interface {
	// GetOrCreateConfig выдает конфигурацию пользователя, создавая ее при
	// первом обращении. Требует активную подписку.
	GetOrCreateConfig(ctx context.Context, userID int64) (*models.VPNConfig, error)

	// ConfigText возвращает готовый wg-quick конфиг. Требует активную подписку.
	ConfigText(ctx context.Context, userID int64) (string, error)

	// QRCode возвращает конфиг, закодированный в PNG QR-код.
	QRCode(ctx context.Context, userID int64) ([]byte, error)

	Connect(ctx context.Context, userID int64) (*ConnectionStatus, error)
	Disconnect(ctx context.Context, userID int64) (*ConnectionStatus, error)
	Status(ctx context.Context, userID int64) (*ConnectionStatus, error)

	// DeactivateExpired отключает конфигурации пользователей с истекшей
	// подпиской, вызывается по расписанию.
	DeactivateExpired(ctx context.Context) (int64, error)
}

type VPNServiceImpl struct {
	configs       repositories.VPNConfigRepository
	users         repositories.UserRepository
	subscriptions SubscriptionService
	settings      WireGuardSettings
	now           func() time.Time
}

func NewVPNService(
	configs repositories.VPNConfigRepository,
	users repositories.UserRepository,
	subscriptions SubscriptionService,
	settings WireGuardSettings,
) VPNService {
	return &VPNServiceImpl{
		configs:       configs,
		users:         users,
		subscriptions: subscriptions,
		settings:      settings,
		now:           time.Now,
	}
}

// ClientIPForUser - детерминированный клиентский адрес в подсети 10.0.0.0/24.
// Адреса .0 и .1 зарезервированы под сеть и сервер.
func ClientIPForUser(userID int64) string {
	return fmt.Sprintf("10.0.0.%d/32", (userID%250)+2)
}

func (s *VPNServiceImpl) GetOrCreateConfig(ctx context.Context, userID int64) (*models.VPNConfig, error) {
	if _, err := s.subscriptions.RequireActiveForProvisioning(ctx, userID); err != nil {
		return nil, err
	}

	cfg, err := s.configs.FindByUserID(userID)
	if err == nil {
		return cfg, nil
	}
	if !apperrors.Is(err, repositories.ErrVPNConfigNotFound) {
		return nil, apperrors.ErrDatabase(err)
	}

	privateKey, publicKey, err := generateKeyPair()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	cfg = &models.VPNConfig{
		UserID:     userID,
		PrivateKey: privateKey,
		PublicKey:  publicKey,
		ServerIP:   s.settings.ServerIP,
		ServerPort: s.settings.ServerPort,
		DNSServer:  s.settings.DNS,
		IsActive:   true,
	}
	if err := s.configs.Create(cfg); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "vpn config created", "user_id", userID, "client_ip", ClientIPForUser(userID))
	return cfg, nil
}

func (s *VPNServiceImpl) ConfigText(ctx context.Context, userID int64) (string, error) {
	cfg, err := s.GetOrCreateConfig(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.renderConfig(userID, cfg), nil
}

func (s *VPNServiceImpl) QRCode(ctx context.Context, userID int64) ([]byte, error) {
	text, err := s.ConfigText(ctx, userID)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(text, qrcode.Medium, 512)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return png, nil
}

func (s *VPNServiceImpl) Connect(ctx context.Context, userID int64) (*ConnectionStatus, error) {
	user, err := s.subscriptions.RequireActiveForProvisioning(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.GetOrCreateConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cfg.ConnectionCount++
	cfg.LastConnected = &now
	if err := s.configs.Save(cfg); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	user.AddConnectionLog(true, now)
	if err := s.users.Update(user); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	logger.CtxInfo(ctx, "vpn connected", "user_id", userID)
	return &ConnectionStatus{
		Connected:       true,
		ConfigActive:    cfg.IsActive,
		ClientIP:        ClientIPForUser(userID),
		LastConnected:   cfg.LastConnected,
		ConnectionCount: cfg.ConnectionCount,
	}, nil
}

func (s *VPNServiceImpl) Disconnect(ctx context.Context, userID int64) (*ConnectionStatus, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	user.AddConnectionLog(false, s.now())
	if err := s.users.Update(user); err != nil {
		return nil, apperrors.ErrDatabase(err)
	}

	status := &ConnectionStatus{Connected: false}
	if cfg, err := s.configs.FindByUserID(userID); err == nil {
		status.ConfigActive = cfg.IsActive
		status.ClientIP = ClientIPForUser(userID)
		status.LastConnected = cfg.LastConnected
		status.ConnectionCount = cfg.ConnectionCount
	}

	logger.CtxInfo(ctx, "vpn disconnected", "user_id", userID)
	return status, nil
}

func (s *VPNServiceImpl) Status(ctx context.Context, userID int64) (*ConnectionStatus, error) {
	if _, err := s.users.FindByID(userID); err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.ErrDatabase(err)
	}

	cfg, err := s.configs.FindByUserID(userID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrVPNConfigNotFound) {
			return &ConnectionStatus{Connected: false}, nil
		}
		return nil, apperrors.ErrDatabase(err)
	}

	return &ConnectionStatus{
		Connected:       false,
		ConfigActive:    cfg.IsActive,
		ClientIP:        ClientIPForUser(userID),
		LastConnected:   cfg.LastConnected,
		ConnectionCount: cfg.ConnectionCount,
	}, nil
}

func (s *VPNServiceImpl) DeactivateExpired(ctx context.Context) (int64, error) {
	n, err := s.configs.DeactivateForExpiredUsers(s.now())
	if err != nil {
		return 0, apperrors.ErrDatabase(err)
	}
	if n > 0 {
		logger.CtxInfo(ctx, "deactivated vpn configs of expired users", "count", n)
	}
	return n, nil
}

func (s *VPNServiceImpl) renderConfig(userID int64, cfg *models.VPNConfig) string {
	return fmt.Sprintf(`[Interface]
PrivateKey = %s
Address = %s
DNS = %s

[Peer]
PublicKey = %s
Endpoint = %s:%d
AllowedIPs = 0.0.0.0/0
PersistentKeepalive = 25
`,
		cfg.PrivateKey,
		ClientIPForUser(userID),
		cfg.DNSServer,
		s.settings.ServerPublicKey,
		cfg.ServerIP,
		cfg.ServerPort,
	)
}

// generateKeyPair создает пару ключей WireGuard (Curve25519, base64).
func generateKeyPair() (privateKey, publicKey string, err error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return "", "", err
	}

	// Клампинг приватного ключа по требованиям Curve25519
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return "", "", err
	}

	return base64.StdEncoding.EncodeToString(priv[:]),
		base64.StdEncoding.EncodeToString(pub), nil
}
