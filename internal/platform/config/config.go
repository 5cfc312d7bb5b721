package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPAddr    string
	PostgresDSN string
	UseInMemory bool

	JWTSecret     string
	ServiceSecret string

	DirectoryBaseURL  string
	PaymentsBaseURL   string
	StorageBaseURL    string
	NotifierBaseURL   string
	ModerationBaseURL string
	StorageBucket     string

	ModerationProvider       string
	ModerationBlockThreshold float64
	ModerationWarnThreshold  float64

	TicketPriceFCFA             int64
	VotePriceFCFA               int64
	MaxTicketsPerUserPerMonth   int
	MaxEntrepreneursPerChall    int
	EntrepreneurVideoMaxSeconds int
	LotteryPoolAccountID        string
	CommissionAccountID         string

	StatusExpiryHours      int
	StatusVideoMaxSeconds  int
	StatusMaxContentLength int
	MessageMaxContentLen   int
	StatusReaperInterval   time.Duration

	SlackToken      string
	SlackOpsChannel string
}

func Load() (Config, error) {
	return Config{
		ServiceName: env("SERVICE_NAME", "mboa"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		PostgresDSN: os.Getenv("DATABASE_URL"),
		UseInMemory: envBool("USE_IN_MEMORY", false),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServiceSecret: os.Getenv("SERVICE_SECRET"),

		DirectoryBaseURL:  os.Getenv("DIRECTORY_BASE_URL"),
		PaymentsBaseURL:   os.Getenv("PAYMENTS_BASE_URL"),
		StorageBaseURL:    os.Getenv("STORAGE_BASE_URL"),
		NotifierBaseURL:   os.Getenv("NOTIFIER_BASE_URL"),
		ModerationBaseURL: os.Getenv("MODERATION_BASE_URL"),
		StorageBucket:     env("STORAGE_BUCKET", "mboa-private"),

		ModerationProvider:       env("MODERATION_PROVIDER", "disabled"),
		ModerationBlockThreshold: envFloat("MODERATION_BLOCK_THRESHOLD", 0.85),
		ModerationWarnThreshold:  envFloat("MODERATION_WARN_THRESHOLD", 0.60),

		TicketPriceFCFA:             int64(envInt("TICKET_PRICE_FCFA", 200)),
		VotePriceFCFA:               int64(envInt("VOTE_PRICE_FCFA", 200)),
		MaxTicketsPerUserPerMonth:   envInt("MAX_TICKETS_PER_USER_PER_MONTH", 25),
		MaxEntrepreneursPerChall:    envInt("MAX_ENTREPRENEURS_PER_CHALLENGE", 3),
		EntrepreneurVideoMaxSeconds: envInt("ENTREPRENEUR_VIDEO_MAX_SECONDS", 90),
		LotteryPoolAccountID:        os.Getenv("LOTTERY_POOL_ACCOUNT_ID"),
		CommissionAccountID:         os.Getenv("COMMISSION_ACCOUNT_ID"),

		StatusExpiryHours:      envInt("STATUS_EXPIRY_HOURS", 24),
		StatusVideoMaxSeconds:  envInt("STATUS_VIDEO_MAX_SECONDS", 30),
		StatusMaxContentLength: envInt("STATUS_MAX_CONTENT_LENGTH", 2000),
		MessageMaxContentLen:   envInt("MESSAGE_MAX_CONTENT_LENGTH", 5000),
		StatusReaperInterval:   envDuration("STATUS_REAPER_INTERVAL", time.Minute),

		SlackToken:      os.Getenv("SLACK_TOKEN"),
		SlackOpsChannel: os.Getenv("SLACK_OPS_CHANNEL"),
	}, nil
}

func env(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
