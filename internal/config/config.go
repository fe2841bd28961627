package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	Env      string // "dev" enables console logging

	DatabaseDSN string

	SpreadsheetID            string
	SheetName                string
	GoogleServiceAccountJSON string

	StorageBucket string

	PaymentProvider      string
	PaymentWebhookSecret string

	AdminSecret string

	TelegramToken string
	AdminChatIDs  []int64

	SyncInterval  time.Duration
	SyncChunkSize int
	StatsCacheTTL time.Duration
}

func FromEnv() (Config, error) {
	var c Config

	c.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	if c.Env == "" {
		c.Env = "dev"
	}

	c.DatabaseDSN = strings.TrimSpace(os.Getenv("DATABASE_DSN"))

	c.SpreadsheetID = strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	c.SheetName = strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SHEET_NAME"))
	if c.SheetName == "" {
		c.SheetName = "Registrations"
	}
	c.GoogleServiceAccountJSON = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))

	c.StorageBucket = strings.TrimSpace(os.Getenv("STORAGE_BUCKET"))

	c.PaymentProvider = strings.TrimSpace(os.Getenv("PAYMENT_PROVIDER"))
	if c.PaymentProvider == "" {
		c.PaymentProvider = "none"
	}
	c.PaymentWebhookSecret = strings.TrimSpace(os.Getenv("PAYMENT_WEBHOOK_SECRET"))

	c.AdminSecret = strings.TrimSpace(os.Getenv("ADMIN_SECRET"))

	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.AdminChatIDs = parseChatIDs(os.Getenv("ADMIN_CHAT_IDS"))

	var err error
	if c.SyncInterval, err = durationEnv("SYNC_INTERVAL", time.Minute); err != nil {
		return c, err
	}
	if c.StatsCacheTTL, err = durationEnv("STATS_CACHE_TTL", 5*time.Minute); err != nil {
		return c, err
	}
	if c.SyncChunkSize, err = intEnv("SYNC_CHUNK_SIZE", 500); err != nil {
		return c, err
	}
	if c.SyncChunkSize <= 0 {
		return c, fmt.Errorf("SYNC_CHUNK_SIZE must be positive")
	}

	if c.DatabaseDSN == "" {
		return c, fmt.Errorf("DATABASE_DSN is empty")
	}
	if c.SpreadsheetID == "" {
		return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID is empty")
	}
	if c.GoogleServiceAccountJSON == "" {
		return c, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
	}
	if c.StorageBucket == "" {
		return c, fmt.Errorf("STORAGE_BUCKET is empty")
	}
	if c.AdminSecret == "" {
		return c, fmt.Errorf("ADMIN_SECRET is empty")
	}
	if c.PaymentProvider == "hmac" && c.PaymentWebhookSecret == "" {
		return c, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is empty")
	}

	return c, nil
}

func parseChatIDs(raw string) []int64 {
	out := []int64{}
	for _, p := range strings.Split(strings.TrimSpace(raw), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
