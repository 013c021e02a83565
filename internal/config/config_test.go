package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("NOCODB_BASE_URL", "https://noco.example.com/")
	t.Setenv("NOCODB_API_TOKEN", "tok")
	t.Setenv("NOCODB_EXPENSES_TABLE_ID", "texp")
	t.Setenv("NOCODB_MAG_TABLE_ID", "tmag")
	t.Setenv("NOCODB_EXPENSES_MAG_LINK_ID", "lnk")
	t.Setenv("TELEGRAM_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_USER_ID", "12345")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("DIGEST_CRON", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultGeminiModel, cfg.GeminiModel)
	assert.Equal(t, DefaultDigestCron, cfg.DigestCron)
	assert.Equal(t, "https://noco.example.com", cfg.NocoDBBaseURL, "trailing slash should be stripped")
	assert.Equal(t, []int64{12345}, cfg.AllowedUserIDs)
	assert.Zero(t, cfg.AuditChatID)
}

func TestLoad_MultipleAllowedUsers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_USER_ID", "1, 2,3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cfg.AllowedUserIDs)
}

func TestLoad_BadUserID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_USER_ID", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_OptionalChatIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUDIT_CHAT_ID", "987")
	t.Setenv("DIGEST_CHAT_ID", "654")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(987), cfg.AuditChatID)
	assert.Equal(t, int64(654), cfg.DigestChatID)
}

func TestValidate_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"missing base url", "NOCODB_BASE_URL"},
		{"missing token", "NOCODB_API_TOKEN"},
		{"missing expenses table", "NOCODB_EXPENSES_TABLE_ID"},
		{"missing mag table", "NOCODB_MAG_TABLE_ID"},
		{"missing link id", "NOCODB_EXPENSES_MAG_LINK_ID"},
		{"missing telegram token", "TELEGRAM_TOKEN"},
		{"missing allow-list", "TELEGRAM_USER_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}
