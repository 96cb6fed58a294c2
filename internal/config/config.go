// Package config handles Caio configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/caio/config.yaml, /etc/caio/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "caio", "config.yaml"))
	}

	paths = append(paths, "/etc/caio/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Caio configuration.
type Config struct {
	AgentName string          `yaml:"agent_name"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	LLM       LLMConfig       `yaml:"llm"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Email     EmailConfig     `yaml:"email"`
	Search    SearchConfig    `yaml:"search"`
	Weather   WeatherConfig   `yaml:"weather"`
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// TelegramConfig defines the chat transport settings. The bot token is
// the only mandatory piece of configuration in the whole file.
type TelegramConfig struct {
	// Token is the Telegram Bot API token. Supports environment
	// variable expansion (e.g., ${TELEGRAM_BOT_TOKEN}).
	Token string `yaml:"token"`

	// OwnerChatID optionally pre-seeds the proactive monitor's
	// recipient so alerts flow before the owner's first message.
	// Zero means the recipient is learned from the first inbound
	// message or /start command.
	OwnerChatID int64 `yaml:"owner_chat_id"`

	// PollTimeoutSec is the long-poll timeout for getUpdates.
	// Default: 30.
	PollTimeoutSec int `yaml:"poll_timeout_sec"`
}

// LLMConfig defines the chat-completions provider. The defaults target
// Groq's OpenAI-compatible endpoint, but any compatible server works.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

// CalendarConfig defines the CalDAV connection for the calendar skill
// and the proactive event monitor.
type CalendarConfig struct {
	// URL is the CalDAV server endpoint (e.g., "https://dav.example.com").
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Calendar selects a calendar by display name. Empty picks the
	// first calendar found in the account's home set.
	Calendar string `yaml:"calendar"`
}

// Configured reports whether a CalDAV endpoint is set.
func (c CalendarConfig) Configured() bool {
	return c.URL != ""
}

// EmailConfig holds IMAP connection parameters for the email skill.
type EmailConfig struct {
	// Host is the IMAP server hostname (e.g., "imap.gmail.com").
	Host string `yaml:"host"`

	// Port is the IMAP server port. Default: 993 (IMAPS).
	Port int `yaml:"port"`

	// Username is the IMAP login username (typically the email address).
	Username string `yaml:"username"`

	// Password is the IMAP login password. Supports environment
	// variable expansion via the config loader.
	Password string `yaml:"password"`

	// TLS controls whether to use TLS for the connection. Default:
	// true. Set to false only for port 143 plaintext connections.
	TLS bool `yaml:"tls"`
}

// Configured reports whether the minimum IMAP settings are present.
func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Username != ""
}

// SearchConfig defines the web search provider settings.
type SearchConfig struct {
	// BraveAPIKey enables the Brave Search provider.
	BraveAPIKey string `yaml:"brave_api_key"`
}

// Configured reports whether a search provider is available.
func (c SearchConfig) Configured() bool {
	return c.BraveAPIKey != ""
}

// WeatherConfig defines the weather data source.
type WeatherConfig struct {
	// BaseURL is the wttr.in-compatible endpoint. Default:
	// "https://wttr.in".
	BaseURL string `yaml:"base_url"`
}

// WorkspaceConfig defines the agent's workspace for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for filesystem intents. All paths
	// supplied by the classifier are resolved relative to this
	// directory. If empty, file operations are disabled.
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.AgentName == "" {
		c.AgentName = "Caio"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Telegram.PollTimeoutSec == 0 {
		c.Telegram.PollTimeoutSec = 30
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama-3.3-70b-versatile"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.6
	}
	if c.Email.Port == 0 {
		c.Email.Port = 993
	}
	// TLS defaults to true unless the port is 143 (plaintext convention).
	if !c.Email.TLS && c.Email.Port != 143 {
		c.Email.TLS = true
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://wttr.in"
	}
}

// Validate checks that mandatory settings are present. A missing
// Telegram token is the only fatal startup condition.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	return nil
}
