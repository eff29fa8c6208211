package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Виды хранилища сессии
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Виды уведомлений об изменении сессии
const (
	NotifierLocal    = "local"
	NotifierNATS     = "nats"
	NotifierPostgres = "postgres"
)

// Config структура конфигурации
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	BackendURL     string
	RequestTimeout time.Duration

	SessionStore      string
	SessionNotifier   string
	SQLitePath        string
	DatabaseURL       string
	DatabaseConfig    DatabaseConfig
	NATSURL           string
	NATSSubject       string
	ReconcileInterval time.Duration

	// Ниже этого порога учетная запись считается заблокированной
	CreditBanThreshold int

	TracingEnabled  bool
	TracingEndpoint string

	CloudinaryConfig CloudinaryConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
	UploadPreset string
}

// Enabled сообщает, заданы ли ключи Cloudinary
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env файл не найден, используем переменные окружения")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "campus_user"),
		Password: getEnv("PGPASSWORD", "campus_pass"),
		Name:     getEnv("PGDATABASE", "campus"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// Формируем строку подключения к базе данных
	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	return &Config{
		AppEnv:   getEnv("APP_ENV", "production"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:8081/api"),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),

		SessionStore:      getEnv("SESSION_STORE", StoreSQLite),
		SessionNotifier:   getEnv("SESSION_NOTIFIER", NotifierLocal),
		SQLitePath:        getEnv("SESSION_SQLITE_PATH", defaultSQLitePath()),
		DatabaseURL:       getEnv("DATABASE_URL", dbURL),
		DatabaseConfig:    dbConfig,
		NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:       getEnv("NATS_SESSION_SUBJECT", "campus.session.changed"),
		ReconcileInterval: getDurationEnv("RECONCILE_INTERVAL", 5*time.Second),

		CreditBanThreshold: getIntEnv("CREDIT_BAN_THRESHOLD", 60),

		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),

		CloudinaryConfig: CloudinaryConfig{
			CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "campus-goods"),
			UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "campus_market"),
		},
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("не задан BACKEND_URL")
	}

	switch c.SessionStore {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("неизвестное хранилище сессии: %q", c.SessionStore)
	}

	switch c.SessionNotifier {
	case NotifierLocal, NotifierNATS:
	case NotifierPostgres:
		if c.SessionStore != StorePostgres {
			return fmt.Errorf("уведомления postgres требуют SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("неизвестный канал уведомлений: %q", c.SessionNotifier)
	}

	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL должен быть положительным")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT должен быть положительным")
	}

	return nil
}

// IsDevelopment сообщает, запущено ли приложение в режиме разработки
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "data", "session.db")
	}
	return filepath.Join(home, ".campus-market", "session.db")
}

// getEnv получает переменную окружения или использует дефолтное значение
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
