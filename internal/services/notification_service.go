package services

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpnbot_backend/internal/logger"
)

// NotificationKind - тип уведомления пользователю
type NotificationKind string

const (
	NotificationSubscriptionActivated NotificationKind = "subscription_activated"
	NotificationSubscriptionExpiring  NotificationKind = "subscription_expiring"
	NotificationBalanceToppedUp       NotificationKind = "balance_topped_up"
)

type notification struct {
	UserID int64
	Kind   NotificationKind
	Days   int
	Stars  int
}

// NotificationSender доставляет одно уведомление. Ошибка доставки
// логируется вызывающей стороной и никогда не прерывает бизнес-операцию.
type NotificationSender interface {
	Send(userID int64, text string) error
}

// TelegramSender шлет уведомления через Telegram Bot API.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramSender(botToken string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: bot}, nil
}

func (s *TelegramSender) Send(userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	_, err := s.bot.Send(msg)
	return err
}

// NotificationService принимает уведомления в буферизованную очередь
// и доставляет их в фоне. Переполнение очереди и ошибки отправки
// только логируются.
type NotificationService interface {
	SubscriptionActivated(userID int64, days int)
	SubscriptionExpiring(userID int64, daysLeft int)
	BalanceToppedUp(userID int64, stars int)
	Stop()
}

type NotificationServiceImpl struct {
	sender   NotificationSender
	queue    chan notification
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

const notificationQueueSize = 256

// NewNotificationService запускает воркер доставки.
// sender == nil означает no-op режим (тесты, бот не настроен).
func NewNotificationService(sender NotificationSender) NotificationService {
	s := &NotificationServiceImpl{
		sender: sender,
		queue:  make(chan notification, notificationQueueSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *NotificationServiceImpl) SubscriptionActivated(userID int64, days int) {
	s.enqueue(notification{UserID: userID, Kind: NotificationSubscriptionActivated, Days: days})
}

func (s *NotificationServiceImpl) SubscriptionExpiring(userID int64, daysLeft int) {
	s.enqueue(notification{UserID: userID, Kind: NotificationSubscriptionExpiring, Days: daysLeft})
}

func (s *NotificationServiceImpl) BalanceToppedUp(userID int64, stars int) {
	s.enqueue(notification{UserID: userID, Kind: NotificationBalanceToppedUp, Stars: stars})
}

// Stop дожидается доставки накопленных уведомлений. Повторные вызовы
// безопасны, enqueue после остановки молча игнорируется.
func (s *NotificationServiceImpl) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *NotificationServiceImpl) enqueue(n notification) {
	select {
	case <-s.stop:
		return
	case s.queue <- n:
	default:
		logger.Warn("notification queue full, dropping",
			"user_id", n.UserID, "kind", string(n.Kind))
	}
}

func (s *NotificationServiceImpl) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			// Добираем то, что уже в очереди, и выходим
			for {
				select {
				case n := <-s.queue:
					s.deliver(n)
				default:
					return
				}
			}
		case n := <-s.queue:
			s.deliver(n)
		}
	}
}

func (s *NotificationServiceImpl) deliver(n notification) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(n.UserID, renderNotification(n)); err != nil {
		logger.Error("failed to send notification",
			"user_id", n.UserID, "kind", string(n.Kind), "error", err.Error())
	}
}

func renderNotification(n notification) string {
	switch n.Kind {
	case NotificationSubscriptionActivated:
		return fmt.Sprintf("✅ Подписка активирована на %d дней. Приятного пользования!", n.Days)
	case NotificationSubscriptionExpiring:
		return fmt.Sprintf("⏳ Подписка заканчивается через %d дн. Не забудьте продлить!", n.Days)
	case NotificationBalanceToppedUp:
		return fmt.Sprintf("⭐ Баланс пополнен на %d звезд.", n.Stars)
	default:
		return ""
	}
}
