package models

// PaymentStatus - статус платежа, повторяет статусы YooKassa
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusWaitingForCapture PaymentStatus = "waiting_for_capture"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusCanceled          PaymentStatus = "canceled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

// IsTerminal сообщает, является ли статус финальным.
// Финальный статус перезаписывать нельзя.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusRefunded:
		return true
	}
	return false
}

// TerminalStatuses - список финальных статусов для SQL-условий
func TerminalStatuses() []PaymentStatus {
	return []PaymentStatus{PaymentStatusSucceeded, PaymentStatusCanceled, PaymentStatusRefunded}
}

// SubscriptionStatus - статус подписки пользователя
type SubscriptionStatus string

const (
	SubscriptionStatusNone    SubscriptionStatus = "no_subscription"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
	SubscriptionStatusActive  SubscriptionStatus = "active"
)
