package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"homework_status_bot/internal/domain/homework"

	"github.com/joho/godotenv"
)

const (
	defaultEndpoint       = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	defaultRequestTimeout = 30 * time.Second
	defaultRetryPeriod    = 600 * time.Second
	defaultLogFile        = "main.log"
	defaultLogMaxSizeMB   = 50
	defaultLogMaxBackups  = 5
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	PracticumToken string
	TelegramToken  string
	TelegramChatID int64

	Endpoint       string
	RequestTimeout time.Duration
	RetryPeriod    time.Duration
	PollSchedule   string // cron expression, overrides RetryPeriod when set
	NameKeys       []string

	LogLevel      string
	Environment   string
	LogFile       string // empty disables the file sink
	LogMaxSizeMB  int
	LogMaxBackups int

	DatabaseURL        string // optional, enables the Postgres state store
	BotCommandsEnabled bool
}

// Load reads configuration from environment variables and .env file (if present).
// A missing credential is reported as *homework.MissingCredentialError.
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.PracticumToken = os.Getenv("PRACTICUM_TOKEN")
	if cfg.PracticumToken == "" {
		return nil, &homework.MissingCredentialError{Name: "PRACTICUM_TOKEN"}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, &homework.MissingCredentialError{Name: "TELEGRAM_TOKEN"}
	}

	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if chatIDStr == "" {
		return nil, &homework.MissingCredentialError{Name: "TELEGRAM_CHAT_ID"}
	}
	cfg.TelegramChatID, err = strconv.ParseInt(strings.TrimSpace(chatIDStr), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
	}

	cfg.Endpoint = os.Getenv("PRACTICUM_ENDPOINT")
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}

	if cfg.RequestTimeout, err = durationEnv("PRACTICUM_REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.RetryPeriod, err = durationEnv("RETRY_PERIOD", defaultRetryPeriod); err != nil {
		return nil, err
	}
	cfg.PollSchedule = strings.TrimSpace(os.Getenv("POLL_SCHEDULE"))

	cfg.NameKeys = splitList(os.Getenv("HOMEWORK_NAME_KEYS"))
	if len(cfg.NameKeys) == 0 {
		cfg.NameKeys = append([]string(nil), homework.DefaultNameKeys...)
	}

	if err = loadLogging(cfg); err != nil {
		return nil, err
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := os.Getenv("BOT_COMMANDS_ENABLED"); v != "" {
		cfg.BotCommandsEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BOT_COMMANDS_ENABLED: %w", err)
		}
	}

	return cfg, nil
}

// LoadLogging reads only the logging settings, so a logger can be built
// before credentials are validated.
func LoadLogging() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := loadLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadLogging(cfg *AppConfig) error {
	var err error
	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	logFile, ok := os.LookupEnv("LOG_FILE")
	if !ok {
		logFile = defaultLogFile
	}
	cfg.LogFile = strings.TrimSpace(logFile)

	if cfg.LogMaxSizeMB, err = intEnv("LOG_MAX_SIZE_MB", defaultLogMaxSizeMB); err != nil {
		return err
	}
	if cfg.LogMaxBackups, err = intEnv("LOG_MAX_BACKUPS", defaultLogMaxBackups); err != nil {
		return err
	}

	return nil
}

// durationEnv accepts Go durations ("10m") and bare seconds ("600").
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("invalid %s: must be positive", name)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

func intEnv(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
