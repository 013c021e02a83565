package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Default values applied when the corresponding environment variable is unset.
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultDigestCron  = "0 7 * * *"
)

// Config holds all bot configuration, loaded once at startup and passed into
// every component constructor.
type Config struct {
	// NocoDB connection.
	NocoDBBaseURL     string
	NocoDBAPIToken    string
	ExpensesTableID   string
	MagTableID        string
	ExpensesMagLinkID string

	// Telegram transport.
	TelegramToken  string
	AllowedUserIDs []int64
	AuditChatID    int64 // 0 disables audit escalation
	DigestChatID   int64

	// Oracle.
	GeminiModel string

	// Digest schedule, standard 5-field cron expression.
	DigestCron string
}

// Load reads configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		NocoDBBaseURL:     strings.TrimRight(os.Getenv("NOCODB_BASE_URL"), "/"),
		NocoDBAPIToken:    os.Getenv("NOCODB_API_TOKEN"),
		ExpensesTableID:   os.Getenv("NOCODB_EXPENSES_TABLE_ID"),
		MagTableID:        os.Getenv("NOCODB_MAG_TABLE_ID"),
		ExpensesMagLinkID: os.Getenv("NOCODB_EXPENSES_MAG_LINK_ID"),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		DigestCron:        os.Getenv("DIGEST_CRON"),
	}

	if cfg.GeminiModel == "" {
		cfg.GeminiModel = DefaultGeminiModel
	}
	if cfg.DigestCron == "" {
		cfg.DigestCron = DefaultDigestCron
	}

	ids, err := parseIDList(os.Getenv("TELEGRAM_USER_ID"))
	if err != nil {
		return nil, fmt.Errorf("config: parsing TELEGRAM_USER_ID: %w", err)
	}
	cfg.AllowedUserIDs = ids

	if cfg.AuditChatID, err = parseOptionalID(os.Getenv("AUDIT_CHAT_ID")); err != nil {
		return nil, fmt.Errorf("config: parsing AUDIT_CHAT_ID: %w", err)
	}
	if cfg.DigestChatID, err = parseOptionalID(os.Getenv("DIGEST_CHAT_ID")); err != nil {
		return nil, fmt.Errorf("config: parsing DIGEST_CHAT_ID: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required settings are present.
func (c *Config) Validate() error {
	missing := []string{}
	if c.NocoDBBaseURL == "" {
		missing = append(missing, "NOCODB_BASE_URL")
	}
	if c.NocoDBAPIToken == "" {
		missing = append(missing, "NOCODB_API_TOKEN")
	}
	if c.ExpensesTableID == "" {
		missing = append(missing, "NOCODB_EXPENSES_TABLE_ID")
	}
	if c.MagTableID == "" {
		missing = append(missing, "NOCODB_MAG_TABLE_ID")
	}
	if c.ExpensesMagLinkID == "" {
		missing = append(missing, "NOCODB_EXPENSES_MAG_LINK_ID")
	}
	if c.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if len(c.AllowedUserIDs) == 0 {
		missing = append(missing, "TELEGRAM_USER_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// parseIDList parses a comma-separated list of numeric identities.
func parseIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalID(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
