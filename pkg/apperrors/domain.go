package apperrors

import (
	"net/http"
)

/*
Фабрики и предопределенные переменные для доменных ошибок
(пользователи, платежи, подписки, VPN).
*/

// =========================================================================
// Фабричные ФУНКЦИИ (оборачивание ошибок, напр. из репозитория)
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404)
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrDatabase - ошибка слоя БД (500)
func ErrDatabase(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "database", "Database operation failed", http.StatusInternalServerError)
}

// =========================================================================
// Фабричные ФУНКЦИИ (создание новых ошибок)
// =========================================================================

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - фабрика для невалидных статусов (400)
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusBadRequest)
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ (частые, статичные ошибки)
// =========================================================================

// --- Users ---

// ErrUserNotFound - пользователь не найден.
var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound, // 404
)

// ErrUserAlreadyExists - пользователь с таким telegram id уже зарегистрирован.
var ErrUserAlreadyExists = New(
	CodeAlreadyExists,
	"user",
	"User already exists",
	http.StatusConflict, // 409
)

// --- Subscriptions ---

// ErrSubscriptionInactive - подписка отсутствует или истекла.
var ErrSubscriptionInactive = New(
	CodeForbidden,
	"subscription",
	"Subscription expired. Please renew your subscription.",
	http.StatusForbidden, // 403
)

// ErrTrialAlreadyUsed - пробный период уже был использован.
var ErrTrialAlreadyUsed = New(
	CodeInvalidOperation,
	"subscription",
	"Trial period already used",
	http.StatusConflict, // 409
)

// --- Payments ---

// ErrPaymentNotFound - платеж не найден.
var ErrPaymentNotFound = New(
	CodeNotFound,
	"payment",
	"Payment not found",
	http.StatusNotFound, // 404
)

// ErrUnknownPlan - неизвестный тип тарифа.
var ErrUnknownPlan = New(
	CodeValidationFailed,
	"payment",
	"Invalid plan type",
	http.StatusBadRequest, // 400
)

// ErrPaymentAlreadyFinal - платеж уже в терминальном статусе, менять нельзя.
var ErrPaymentAlreadyFinal = New(
	CodeInvalidStatus,
	"payment",
	"Payment is already in a final status",
	http.StatusConflict, // 409
)

// ErrPaymentGateway - общая ошибка интеграции с YooKassa.
var ErrPaymentGateway = New(
	CodeExternalServiceError,
	"payment",
	"Payment provider error",
	http.StatusServiceUnavailable, // 503
)

// --- VPN ---

// ErrVPNConfigNotFound - конфигурация VPN не найдена.
var ErrVPNConfigNotFound = New(
	CodeNotFound,
	"vpn",
	"VPN configuration not found",
	http.StatusNotFound, // 404
)
