package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию терминала
type Config struct {
	Server   ServerConfig
	Terminal TerminalConfig
	Backend  BackendConfig
	Camera   CameraConfig
	Gate     GateConfig
	Receipt  ReceiptConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
}

// ServerConfig содержит настройки локального HTTP сервера управления
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// AllowedOrigin - origin интерфейса оператора для CORS
	AllowedOrigin string
}

// TerminalConfig содержит настройки рабочего места
type TerminalConfig struct {
	// Direction - направление полосы: "entry" или "exit"
	Direction string

	// Operator - идентификатор кассира, уходит в платежи cash/card
	Operator string

	// BookingMode - стартовое состояние режима мобильных бронирований
	BookingMode bool
}

// BackendConfig содержит настройки подключения к парковочному бэкенду
type BackendConfig struct {
	BaseURL string

	// Token - bearer credential, выдаётся внешним сервисом аутентификации
	Token string

	EntryCaptureTimeout time.Duration
	ExitCaptureTimeout  time.Duration
	RequestTimeout      time.Duration
}

// CameraConfig содержит настройки источника видео
type CameraConfig struct {
	// URL потока MJPEG; пустое значение означает "взять из настроек бэкенда"
	StreamURL string

	Name           string
	SampleInterval time.Duration
	ReadyFallback  time.Duration
	MaxWidth       int
	MaxHeight      int
	JPEGQuality    int

	// LeaseTTL - срок аренды камеры в Redis; аренда продлевается,
	// пока сессия захвата жива
	LeaseTTL time.Duration
}

// GateConfig содержит настройки управления шлагбаумом
type GateConfig struct {
	// AutoCloseDelay - задержка автоматического закрытия после успешной транзакции
	AutoCloseDelay time.Duration

	// ResetDelay - пауза перед очисткой формы и возобновлением сканирования
	ResetDelay time.Duration
}

// ReceiptConfig содержит настройки печати квитанций
type ReceiptConfig struct {
	// SpoolDir - каталог, куда пишутся файлы квитанций; пустое значение
	// отключает печать (данные остаются в логе)
	SpoolDir string

	QRSize int
}

// DatabaseConfig содержит настройки локального журнала в PostgreSQL
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// LoggerConfig содержит настройки логирования
type LoggerConfig struct {
	Level  string
	Format string // json или console
	Output string // stdout или путь к файлу
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "127.0.0.1"),
			Port:         getEnv("SERVER_PORT", "8090"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigin: getEnv("SERVER_ALLOWED_ORIGIN", "*"),
		},
		Terminal: TerminalConfig{
			Direction:   getEnv("TERMINAL_DIRECTION", "entry"),
			Operator:    getEnv("TERMINAL_OPERATOR", "controller"),
			BookingMode: getBoolEnv("TERMINAL_BOOKING_MODE", false),
		},
		Backend: BackendConfig{
			BaseURL:             getEnv("BACKEND_URL", "http://127.0.0.1:8002"),
			Token:               getEnv("BACKEND_TOKEN", ""),
			EntryCaptureTimeout: getDurationEnv("BACKEND_ENTRY_CAPTURE_TIMEOUT", 30*time.Second),
			ExitCaptureTimeout:  getDurationEnv("BACKEND_EXIT_CAPTURE_TIMEOUT", 15*time.Second),
			RequestTimeout:      getDurationEnv("BACKEND_REQUEST_TIMEOUT", 10*time.Second),
		},
		Camera: CameraConfig{
			StreamURL:      getEnv("CAMERA_STREAM_URL", ""),
			Name:           getEnv("CAMERA_NAME", "camera1"),
			SampleInterval: getDurationEnv("CAMERA_SAMPLE_INTERVAL", 2*time.Second),
			ReadyFallback:  getDurationEnv("CAMERA_READY_FALLBACK", 2*time.Second),
			MaxWidth:       getIntEnv("CAMERA_MAX_WIDTH", 640),
			MaxHeight:      getIntEnv("CAMERA_MAX_HEIGHT", 480),
			JPEGQuality:    getIntEnv("CAMERA_JPEG_QUALITY", 85),
			LeaseTTL:       getDurationEnv("CAMERA_LEASE_TTL", 15*time.Second),
		},
		Gate: GateConfig{
			AutoCloseDelay: getDurationEnv("GATE_AUTO_CLOSE_DELAY", 10*time.Second),
			ResetDelay:     getDurationEnv("GATE_RESET_DELAY", 1*time.Second),
		},
		Receipt: ReceiptConfig{
			SpoolDir: getEnv("RECEIPT_SPOOL_DIR", "receipts"),
			QRSize:   getIntEnv("RECEIPT_QR_SIZE", 200),
		},
		Database: DatabaseConfig{
			Enabled:         getBoolEnv("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "parklane_user"),
			Password:        getEnv("DB_PASSWORD", "parklane_password"),
			Database:        getEnv("DB_NAME", "parklane_db"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if cfg.Terminal.Direction != "entry" && cfg.Terminal.Direction != "exit" {
		return nil, fmt.Errorf("invalid TERMINAL_DIRECTION %q: must be entry or exit", cfg.Terminal.Direction)
	}

	return cfg, nil
}

// Address возвращает адрес сервера
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Address возвращает адрес Redis
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// CaptureTimeout возвращает таймаут отправки кадра для направления полосы
func (c *BackendConfig) CaptureTimeout(direction string) time.Duration {
	if direction == "exit" {
		return c.ExitCaptureTimeout
	}
	return c.EntryCaptureTimeout
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
