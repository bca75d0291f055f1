package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.SugaredLogger

// Init инициализирует глобальный логгер
// env: "development" или "production"
func Init(env string) {
	var cfg zap.Config

	if env == "development" {
		// Development: читаемый консольный формат
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// Production: JSON формат для парсинга
		cfg = zap.NewProductionConfig()
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	log = l.Sugar()
}

// GetLogger возвращает глобальный логгер
func GetLogger() *zap.SugaredLogger {
	if log == nil {
		// Fallback если Init не вызван
		Init("development")
	}
	return log
}

// Sync сбрасывает буферы логгера, вызывается перед завершением программы
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// ============================================
// Convenience функции для быстрого логирования
// ============================================

// Debug логирует debug сообщение
func Debug(msg string, args ...any) {
	GetLogger().Debugw(msg, args...)
}

// Info логирует info сообщение
func Info(msg string, args ...any) {
	GetLogger().Infow(msg, args...)
}

// Warn логирует warning сообщение
func Warn(msg string, args ...any) {
	GetLogger().Warnw(msg, args...)
}

// Error логирует error сообщение
func Error(msg string, args ...any) {
	GetLogger().Errorw(msg, args...)
}

// Fatal логирует fatal ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Fatalw(msg, args...)
}

// ============================================
// Логирование с дополнительными полями
// ============================================

// With создает новый логгер с дополнительными полями
// Пример: logger.With("user_id", 123, "action", "payment").Info("payment created")
func With(args ...any) *zap.SugaredLogger {
	return GetLogger().With(args...)
}

// WithError создает логгер с полем error
func WithError(err error) *zap.SugaredLogger {
	return GetLogger().With("error", err.Error())
}

// ============================================
// Специализированные логгеры
// ============================================

// HTTPLog логирует HTTP запрос
func HTTPLog(method, path string, status int, duration time.Duration, size int) {
	GetLogger().Infow("http request",
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size_bytes", size,
	)
}

// WorkerLog логирует операцию фонового воркера
func WorkerLog(worker, operation string, err error) {
	fields := []any{
		"worker", worker,
		"operation", operation,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Errorw("worker operation failed", fields...)
	} else {
		GetLogger().Infow("worker operation completed", fields...)
	}
}
