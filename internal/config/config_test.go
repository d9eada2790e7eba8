package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_CLIENT_ID", "client-id")
	t.Setenv("GROQ_API_KEY", "groq-key")
}

func TestLoadDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "consumers", cfg.AzureTenantID)
	assert.Equal(t, "console", cfg.DeviceCodePromptMode)
	assert.Equal(t, "file", cfg.TokenCacheBackend)
	assert.Equal(t, "openai/gpt-oss-120b", cfg.GroqModel)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, "em.delhaize.be", cfg.PartnerDomain)
	assert.Equal(t, "Delhaize", cfg.PartnerSubcategory)
	assert.Equal(t, []string{"accountprotection.microsoft.com"}, cfg.SecurityAlertDomains)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadBatchSize(t *testing.T) {
	validEnv(t)

	t.Run("clamped to 50", func(t *testing.T) {
		t.Setenv("EMAIL_BATCH_SIZE", "500")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.BatchSize)
	})

	t.Run("invalid falls back to default", func(t *testing.T) {
		t.Setenv("EMAIL_BATCH_SIZE", "lots")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.BatchSize)
	})

	t.Run("zero falls back to default", func(t *testing.T) {
		t.Setenv("EMAIL_BATCH_SIZE", "0")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.BatchSize)
	})
}

func TestLoadLists(t *testing.T) {
	validEnv(t)
	t.Setenv("COLLABORATOR_EMAILS", " Ann@Example.com , bob@example.com ,,")
	t.Setenv("BOSS_EMAIL", "Boss@Example.COM")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, cfg.CollaboratorEmails)
	assert.Equal(t, "boss@example.com", cfg.BossEmail)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			AzureClientID:        "client",
			GroqAPIKey:           "key",
			DeviceCodePromptMode: "console",
			TokenCacheBackend:    "file",
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing client id", func(t *testing.T) {
		cfg := base()
		cfg.AzureClientID = ""
		assert.ErrorContains(t, cfg.Validate(), "AZURE_CLIENT_ID")
	})

	t.Run("missing groq key", func(t *testing.T) {
		cfg := base()
		cfg.GroqAPIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "GROQ_API_KEY")
	})

	t.Run("bad prompt mode", func(t *testing.T) {
		cfg := base()
		cfg.DeviceCodePromptMode = "popup"
		assert.ErrorContains(t, cfg.Validate(), "DEVICE_CODE_PROMPT_MODE")
	})

	t.Run("gcs backend needs a bucket", func(t *testing.T) {
		cfg := base()
		cfg.TokenCacheBackend = "gcs"
		assert.ErrorContains(t, cfg.Validate(), "TOKEN_CACHE_BUCKET")
	})
}
