package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the immutable application configuration, constructed once at
// startup. Comma-separated env vars are parsed into slices eagerly so no
// component re-parses them per call.
type Config struct {
	// Azure AD / Microsoft Graph
	AzureClientID        string
	AzureTenantID        string
	AccountUsername      string
	DeviceCodePromptMode string // "console" or "web"

	// Token cache persistence
	TokenCacheBackend string // "file" or "gcs"
	TokenCacheBucket  string
	TokenCacheObject  string

	// Groq
	GroqAPIKey string
	GroqModel  string

	// Categorization identities and rules
	BossEmail            string
	CompanyDomain        string
	ManagementEmails     []string
	DirectReportsEmails  []string
	CollaboratorEmails   []string
	SecurityAlertDomains []string
	PartnerDomain        string
	PartnerSubcategory   string

	// Processing
	InboxFolderID string
	BatchSize     int

	LogLevel string
	Port     string
}

// Load builds a Config from the environment, reading .env if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	batchSize, err := strconv.Atoi(GetEnv("EMAIL_BATCH_SIZE", "10"))
	if err != nil || batchSize < 1 {
		batchSize = 10
	}
	if batchSize > 50 {
		batchSize = 50
	}

	return &Config{
		AzureClientID:        GetEnv("AZURE_CLIENT_ID", ""),
		AzureTenantID:        GetEnv("AZURE_TENANT_ID", "consumers"),
		AccountUsername:      GetEnv("OUTLOOK_ACCOUNT_USERNAME", ""),
		DeviceCodePromptMode: GetEnv("DEVICE_CODE_PROMPT_MODE", "console"),

		TokenCacheBackend: GetEnv("TOKEN_CACHE_BACKEND", "file"),
		TokenCacheBucket:  GetEnv("TOKEN_CACHE_BUCKET", ""),
		TokenCacheObject:  GetEnv("TOKEN_CACHE_OBJECT", "msal_token_cache.json"),

		GroqAPIKey: GetEnv("GROQ_API_KEY", ""),
		GroqModel:  GetEnv("GROQ_MODEL", "openai/gpt-oss-120b"),

		BossEmail:            strings.ToLower(GetEnv("BOSS_EMAIL", "")),
		CompanyDomain:        strings.ToLower(GetEnv("COMPANY_DOMAIN", "")),
		ManagementEmails:     splitList(GetEnv("MANAGEMENT_EMAILS", "")),
		DirectReportsEmails:  splitList(GetEnv("DIRECT_REPORTS_EMAILS", "")),
		CollaboratorEmails:   splitList(GetEnv("COLLABORATOR_EMAILS", "")),
		SecurityAlertDomains: splitList(GetEnv("SECURITY_ALERT_DOMAINS", "accountprotection.microsoft.com")),
		PartnerDomain:        strings.ToLower(GetEnv("PARTNER_DOMAIN", "em.delhaize.be")),
		PartnerSubcategory:   GetEnv("PARTNER_SUBCATEGORY", "Delhaize"),

		InboxFolderID: GetEnv("INBOX_FOLDER_ID", ""),
		BatchSize:     batchSize,

		LogLevel: GetEnv("LOG_LEVEL", "INFO"),
		Port:     GetEnv("PORT", "8080"),
	}, nil
}

// GetEnv retrieves an environment variable or returns the default value.
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// splitList parses a comma-separated value into trimmed, lowercased entries.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.AzureClientID == "" {
		return fmt.Errorf("AZURE_CLIENT_ID is required")
	}
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	switch c.DeviceCodePromptMode {
	case "console", "web":
	default:
		return fmt.Errorf("DEVICE_CODE_PROMPT_MODE must be 'console' or 'web', got %q", c.DeviceCodePromptMode)
	}
	if c.TokenCacheBackend == "gcs" && c.TokenCacheBucket == "" {
		return fmt.Errorf("TOKEN_CACHE_BUCKET is required when TOKEN_CACHE_BACKEND is 'gcs'")
	}
	return nil
}
