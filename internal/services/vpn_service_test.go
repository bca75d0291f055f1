package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vpnbot_backend/pkg/apperrors"
)

func newVPNService(t *testing.T, db *gorm.DB) VPNService {
	t.Helper()
	return NewVPNService(
		newVPNConfigRepo(db),
		newUserRepo(db),
		newSubscriptionService(t, db),
		WireGuardSettings{
			ServerPublicKey: "SRV_PUB_KEY",
			ServerIP:        "203.0.113.10",
			ServerPort:      51820,
			DNS:             "8.8.8.8",
		},
	)
}

func TestClientIPForUser(t *testing.T) {
	assert.Equal(t, "10.0.0.44/32", ClientIPForUser(42))
	assert.Equal(t, "10.0.0.3/32", ClientIPForUser(1))
	// Адреса зациклены по модулю 250, .0 и .1 не выдаются
	assert.Equal(t, "10.0.0.2/32", ClientIPForUser(250))
	assert.Equal(t, "10.0.0.2/32", ClientIPForUser(500))
}

func TestGetOrCreateConfig(t *testing.T) {
	db := newTestDB(t)
	svc := newVPNService(t, db)
	ctx := context.Background()

	// Без пользователя и без подписки конфиг не выдается
	_, err := svc.GetOrCreateConfig(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	createTestUser(t, db, 1)
	_, err = svc.GetOrCreateConfig(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionInactive)

	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, 10))

	cfg, err := svc.GetOrCreateConfig(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cfg.IsActive)
	assert.Equal(t, "203.0.113.10", cfg.ServerIP)
	assert.Equal(t, 51820, cfg.ServerPort)

	// Ключи - валидный base64 на 32 байта
	priv, err := base64.StdEncoding.DecodeString(cfg.PrivateKey)
	require.NoError(t, err)
	assert.Len(t, priv, 32)
	pub, err := base64.StdEncoding.DecodeString(cfg.PublicKey)
	require.NoError(t, err)
	assert.Len(t, pub, 32)
	assert.NotEqual(t, cfg.PrivateKey, cfg.PublicKey)

	// Повторный вызов возвращает тот же конфиг, не создавая новый
	again, err := svc.GetOrCreateConfig(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, again.ID)
	assert.Equal(t, cfg.PrivateKey, again.PrivateKey)
}

func TestConfigText_Format(t *testing.T) {
	db := newTestDB(t)
	svc := newVPNService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 42)
	setSubscriptionEnd(t, db, 42, time.Now().AddDate(0, 0, 10))

	cfg, err := svc.GetOrCreateConfig(ctx, 42)
	require.NoError(t, err)

	text, err := svc.ConfigText(ctx, 42)
	require.NoError(t, err)

	expected := fmt.Sprintf(`[Interface]
PrivateKey = %s
Address = 10.0.0.44/32
DNS = 8.8.8.8

[Peer]
PublicKey = SRV_PUB_KEY
Endpoint = 203.0.113.10:51820
AllowedIPs = 0.0.0.0/0
PersistentKeepalive = 25
`, cfg.PrivateKey)
	assert.Equal(t, expected, text)
}

func TestQRCode_ReturnsPNG(t *testing.T) {
	db := newTestDB(t)
	svc := newVPNService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)
	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, 10))

	png, err := svc.QRCode(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestConnectDisconnect(t *testing.T) {
	db := newTestDB(t)
	svc := newVPNService(t, db)
	ctx := context.Background()

	createTestUser(t, db, 1)

	// Подключение без подписки запрещено
	_, err := svc.Connect(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrSubscriptionInactive)

	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, 10))

	status, err := svc.Connect(ctx, 1)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.ConnectionCount)
	require.NotNil(t, status.LastConnected)

	status, err = svc.Connect(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, status.ConnectionCount)

	status, err = svc.Disconnect(ctx, 1)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, 2, status.ConnectionCount)

	user := reloadUser(t, db, 1)
	assert.Contains(t, user.ConnectionHistory, `"connected":false`)
}

func TestStatus_WithoutConfig(t *testing.T) {
	db := newTestDB(t)
	svc := newVPNService(t, db)
	ctx := context.Background()

	_, err := svc.Status(ctx, 1)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	createTestUser(t, db, 1)
	status, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.False(t, status.ConfigActive)
}

func TestDeactivateExpired(t *testing.T) {
	db := newTestDB(t)
	svc := newVPNService(t, db)
	ctx := context.Background()

	// Пользователь с активной подпиской
	createTestUser(t, db, 1)
	setSubscriptionEnd(t, db, 1, time.Now().AddDate(0, 0, 10))
	_, err := svc.GetOrCreateConfig(ctx, 1)
	require.NoError(t, err)

	// Пользователь с истекшей подпиской
	createTestUser(t, db, 2)
	setSubscriptionEnd(t, db, 2, time.Now().AddDate(0, 0, 10))
	_, err = svc.GetOrCreateConfig(ctx, 2)
	require.NoError(t, err)
	setSubscriptionEnd(t, db, 2, time.Now().AddDate(0, 0, -1))

	n, err := svc.DeactivateExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	active, err := svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.True(t, active.ConfigActive)

	expired, err := svc.Status(ctx, 2)
	require.NoError(t, err)
	assert.False(t, expired.ConfigActive)
}
