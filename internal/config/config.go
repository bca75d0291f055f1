package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Host string
		Port int
		Env  string // "development" или "production"
	}

	Database struct {
		DSN string
	}

	YooKassa struct {
		ShopID    string
		SecretKey string
		ReturnURL string
		TestMode  bool // true - платежи не уходят в YooKassa, создаются mock_*
	}

	Telegram struct {
		BotToken string
	}

	WireGuard struct {
		ServerPublicKey string
		ServerIP        string
		ServerPort      int
		DNS             string
	}

	Admin struct {
		Token string // X-Admin-Token для админских маршрутов
	}
}

var AppConfig *Config

// LoadConfig загружает конфигурацию из переменных окружения.
// .env подхватывается если присутствует (локальная разработка).
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используем переменные окружения")
	}

	var cfg Config

	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = getEnvInt("SERVER_PORT", 5000)
	cfg.Server.Env = getEnv("SERVER_ENV", "development")

	cfg.Database.DSN = getEnv("DATABASE_URL", "")

	cfg.YooKassa.ShopID = getEnv("YOOKASSA_SHOP_ID", "")
	cfg.YooKassa.SecretKey = getEnv("YOOKASSA_SECRET_KEY", "")
	cfg.YooKassa.ReturnURL = getEnv("YOOKASSA_RETURN_URL", "http://localhost:5000/payment-success")
	cfg.YooKassa.TestMode = getEnvBool("YOOKASSA_TEST_MODE", cfg.YooKassa.ShopID == "")

	cfg.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", "")

	cfg.WireGuard.ServerPublicKey = getEnv("WG_SERVER_PUBLIC_KEY", "SERVER_PUBLIC_KEY_PLACEHOLDER")
	cfg.WireGuard.ServerIP = getEnv("WG_SERVER_IP", "10.0.0.1")
	cfg.WireGuard.ServerPort = getEnvInt("WG_PORT", 51820)
	cfg.WireGuard.DNS = getEnv("WG_DNS", "8.8.8.8")

	cfg.Admin.Token = getEnv("ADMIN_TOKEN", "")

	if cfg.Server.Env == "production" {
		// В проде без этих значений работать нельзя
		if cfg.Database.DSN == "" {
			log.Fatal("DATABASE_URL is required in production")
		}
		if !cfg.YooKassa.TestMode && (cfg.YooKassa.ShopID == "" || cfg.YooKassa.SecretKey == "") {
			log.Fatal("YOOKASSA_SHOP_ID and YOOKASSA_SECRET_KEY are required in production")
		}
	}

	AppConfig = &cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
