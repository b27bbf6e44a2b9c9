package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Model      ModelConfig      `mapstructure:"model"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	History    HistoryConfig    `mapstructure:"history"`
	Document   DocumentConfig   `mapstructure:"document"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token         string        `mapstructure:"token"`
	Webhook       WebhookConfig `mapstructure:"webhook"`
	UpdateTimeout int           `mapstructure:"update_timeout"`
	// SendRate throttles outgoing Telegram API calls, messages per second.
	SendRate  float64 `mapstructure:"send_rate"`
	SendBurst int     `mapstructure:"send_burst"`
	// NewsURL and CommandsURL are linked from the main menu keyboard.
	NewsURL     string `mapstructure:"news_url"`
	CommandsURL string `mapstructure:"commands_url"`
	BuyURL      string `mapstructure:"buy_url"`
	Version     string `mapstructure:"version"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Port    int    `mapstructure:"port"`
}

type ModelConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Name        string        `mapstructure:"name"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// SystemPrompt is the rule block prepended to every prompt.
	SystemPrompt string `mapstructure:"system_prompt"`
}

type LimitsConfig struct {
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MinuteWindow      time.Duration `mapstructure:"minute_window"`
	RequestsPerWeek   int           `mapstructure:"requests_per_week"`
	WeekWindow        time.Duration `mapstructure:"week_window"`
	// GoldUsers is the static allow-list of unlimited-tier user IDs.
	GoldUsers []int64 `mapstructure:"gold_users"`
}

type HistoryConfig struct {
	// Type selects the durable backend: "file" or "redis".
	Type  string      `mapstructure:"type"`
	File  FileStore   `mapstructure:"file"`
	Redis RedisConfig `mapstructure:"redis"`
	// MaxTurns caps the durable log per user.
	MaxTurns int `mapstructure:"max_turns"`
	// MaxBufferMessages caps the volatile rolling buffer per user.
	MaxBufferMessages int `mapstructure:"max_buffer_messages"`
	// DisplayedTurns is how many turns /history shows.
	DisplayedTurns int `mapstructure:"displayed_turns"`
}

type FileStore struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DocumentConfig struct {
	// MaxChars caps the stored extracted text.
	MaxChars int `mapstructure:"max_chars"`
	// FragmentChars caps the slice injected into prompts.
	FragmentChars int `mapstructure:"fragment_chars"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	MaxSize int           `mapstructure:"max_size"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("model.api_key", "OPENAI_API_KEY")
	viper.BindEnv("model.base_url", "OPENAI_BASE_URL")
	viper.BindEnv("history.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("history.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_HOST/REDIS_PORT override the composed address.
	if redisHost := viper.GetString("REDIS_HOST"); redisHost != "" {
		redisPort := viper.GetString("REDIS_PORT")
		if redisPort == "" {
			redisPort = "6379"
		}
		config.History.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults covers every knob so a minimal config file only needs the
// bot token and model endpoint.
func setDefaults() {
	viper.SetDefault("bot.update_timeout", 60)
	viper.SetDefault("bot.send_rate", 25.0)
	viper.SetDefault("bot.send_burst", 5)
	viper.SetDefault("bot.version", "v1.0")

	viper.SetDefault("limits.requests_per_minute", 5)
	viper.SetDefault("limits.minute_window", time.Minute)
	viper.SetDefault("limits.requests_per_week", 75)
	viper.SetDefault("limits.week_window", 7*24*time.Hour)

	viper.SetDefault("history.type", "file")
	viper.SetDefault("history.file.path", "chat_history.json")
	viper.SetDefault("history.max_turns", 20)
	viper.SetDefault("history.max_buffer_messages", 50)
	viper.SetDefault("history.displayed_turns", 10)

	viper.SetDefault("document.max_chars", 15000)
	viper.SetDefault("document.fragment_chars", 2000)

	viper.SetDefault("model.timeout", 60*time.Second)
	viper.SetDefault("model.max_tokens", 512)
	viper.SetDefault("model.temperature", 0.7)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("cache.max_size", 1000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("monitoring.metrics.enabled", false)
	viper.SetDefault("monitoring.metrics.port", 9090)
	viper.SetDefault("monitoring.metrics.path", "/metrics")

	viper.SetDefault("i18n.default_language", "en")
	viper.SetDefault("i18n.languages", []string{"en", "ru"})
	viper.SetDefault("i18n.directory", "configs/i18n")
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Model.BaseURL == "" {
		return fmt.Errorf("model base_url is required")
	}
	if cfg.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}
	switch strings.ToLower(cfg.History.Type) {
	case "file", "redis":
	default:
		return fmt.Errorf("unsupported history storage type: %s", cfg.History.Type)
	}
	if cfg.Limits.RequestsPerMinute <= 0 || cfg.Limits.RequestsPerWeek <= 0 {
		return fmt.Errorf("limits must be positive")
	}
	return nil
}

// IsGold reports whether a user is on the unlimited tier allow-list.
func (c *LimitsConfig) IsGold(userID int64) bool {
	for _, id := range c.GoldUsers {
		if id == userID {
			return true
		}
	}
	return false
}
