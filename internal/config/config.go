package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"azdo-mcp/internal/azdo"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	AzDO     azdo.Config
	LLM      LLMConfig
	HTTPAddr string
	LogDir   string
}

// LLMConfig configures the OpenAI-compatible endpoint used by the chat
// turn. All fields empty means the chat endpoint is disabled.
type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Enabled reports whether a model backend is configured.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// Load loads the configuration from .env files and environment variables.
// A missing or malformed organization URL is fatal: the process must not
// start without a valid connection context.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	orgURL := getEnv("AZDO_ORG_URL", "")
	if orgURL == "" {
		return nil, fmt.Errorf("AZDO_ORG_URL is not set")
	}
	org, err := ParseOrganization(orgURL)
	if err != nil {
		return nil, err
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if exeDir != "" {
			logDir = filepath.Join(exeDir, "logs")
		} else {
			logDir = "logs"
		}
	}

	cfg := &AppConfig{
		AzDO: azdo.Config{
			OrgURL:         strings.TrimRight(orgURL, "/"),
			Organization:   org,
			PAT:            getEnv("AZDO_PAT", ""),
			DefaultProject: getEnv("AZDO_DEFAULT_PROJECT", ""),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("AZDO_MCP_LLM_BASE_URL", ""),
			APIKey:  getEnv("AZDO_MCP_LLM_API_KEY", ""),
			Model:   getEnv("AZDO_MCP_LLM_MODEL", ""),
		},
		HTTPAddr: getEnv("AZDO_MCP_HTTP_ADDR", ":8080"),
		LogDir:   logDir,
	}

	return cfg, nil
}

// ParseOrganization extracts the organization name from an Azure DevOps
// organization URL. Both URL styles are accepted:
//
//	https://dev.azure.com/fabrikam
//	https://fabrikam.visualstudio.com
func ParseOrganization(orgURL string) (string, error) {
	u, err := url.Parse(orgURL)
	if err != nil {
		return "", fmt.Errorf("invalid AZDO_ORG_URL %q: %w", orgURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid AZDO_ORG_URL %q: missing scheme", orgURL)
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "dev.azure.com":
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			return "", fmt.Errorf("invalid AZDO_ORG_URL %q: missing organization segment", orgURL)
		}
		return parts[0], nil
	case strings.HasSuffix(host, ".visualstudio.com"):
		org := strings.TrimSuffix(host, ".visualstudio.com")
		if org == "" {
			return "", fmt.Errorf("invalid AZDO_ORG_URL %q: missing organization segment", orgURL)
		}
		return org, nil
	default:
		return "", fmt.Errorf("invalid AZDO_ORG_URL %q: expected dev.azure.com/{org} or {org}.visualstudio.com", orgURL)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
