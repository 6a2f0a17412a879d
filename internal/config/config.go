package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port      int    `koanf:"port"`
		JWTSecret string `koanf:"jwt_secret"`
	} `koanf:"server"`

	Mail struct {
		RelayEndpoint string  `koanf:"relay_endpoint"`
		APIKey        string  `koanf:"api_key"`
		RatePerSec    float64 `koanf:"rate_per_sec"`
	} `koanf:"mail"`

	Commerce struct {
		BaseURL string `koanf:"base_url"`
		APIKey  string `koanf:"api_key"`
	} `koanf:"commerce"`

	Workflow struct {
		ReplyDeadlineHours int    `koanf:"reply_deadline_hours"`
		MaxParseAttempts   int    `koanf:"max_parse_attempts"`
		RemindersEnabled   bool   `koanf:"reminders_enabled"`
		ScanIntervalMins   int    `koanf:"scan_interval_mins"`
		FulfillmentContact string `koanf:"fulfillment_contact"`
	} `koanf:"workflow"`

	AutoApprove struct {
		Enabled       bool `koanf:"enabled"`
		MinConfidence int  `koanf:"min_confidence"`
	} `koanf:"auto_approve"`
}

// ReplyDeadline returns the workflow deadline as a duration.
func (c *Config) ReplyDeadline() time.Duration {
	return time.Duration(c.Workflow.ReplyDeadlineHours) * time.Hour
}

// ScanInterval returns the scanner period as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Workflow.ScanIntervalMins) * time.Minute
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"server.port":                   8890,
		"mail.rate_per_sec":             5.0,
		"workflow.reply_deadline_hours": 72,
		"workflow.max_parse_attempts":   2,
		"workflow.reminders_enabled":    true,
		"workflow.scan_interval_mins":   15,
		"auto_approve.enabled":          false,
		"auto_approve.min_confidence":   95,
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try default locations - prioritize scdata for containerized setups
		defaultPaths := []string{"./scdata/storeclerk.toml", "./storeclerk.toml", "$HOME/.storeclerk.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix STORECLERK_
	k.Load(env.Provider("STORECLERK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STORECLERK_")), "_", ".", -1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# storeclerk configuration

[server]
port = 8890
jwt_secret = "change-me"

[mail]
relay_endpoint = "https://mail.example.com/api/send"
api_key = "your-relay-api-key"
rate_per_sec = 5.0

[commerce]
base_url = "https://platform.example.com/api/v2"
api_key = "your-platform-api-key"

[workflow]
reply_deadline_hours = 72
max_parse_attempts = 2
reminders_enabled = true
scan_interval_mins = 15
fulfillment_contact = "warehouse@example.com"

[auto_approve]
enabled = false
min_confidence = 95
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.JWTSecret == "" {
		return fmt.Errorf("server jwt_secret is required")
	}
	if config.Mail.RelayEndpoint == "" {
		return fmt.Errorf("mail relay_endpoint is required")
	}
	if config.Commerce.BaseURL == "" {
		return fmt.Errorf("commerce base_url is required")
	}
	if config.Workflow.ReplyDeadlineHours <= 0 {
		return fmt.Errorf("workflow reply_deadline_hours must be positive")
	}
	if config.Workflow.FulfillmentContact == "" {
		return fmt.Errorf("workflow fulfillment_contact is required")
	}
	if config.AutoApprove.Enabled && (config.AutoApprove.MinConfidence < 1 || config.AutoApprove.MinConfidence > 100) {
		return fmt.Errorf("auto_approve min_confidence must be between 1 and 100")
	}
	return nil
}
