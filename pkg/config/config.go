package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Analytics AnalyticsConfig
	Dashboard DashboardConfig
	Chat      ChatConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	IsDevelopment  bool
}

// AnalyticsConfig points at the remote sentiment/prediction backend.
type AnalyticsConfig struct {
	BaseURL     string
	TimeoutSec  int
	MaxAttempts int
}

// CycleTimeout bounds one analyze cycle: two sequential backend calls, each
// retried up to MaxAttempts times with at most 2s of backoff between tries.
func (c AnalyticsConfig) CycleTimeout() time.Duration {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	perCall := time.Duration(c.TimeoutSec*attempts)*time.Second + time.Duration(attempts-1)*2*time.Second
	return 2 * perCall
}

// DashboardConfig holds the fixed selection the dashboard screen fetches.
type DashboardConfig struct {
	ProductName string
	BrandName   string
	Platform    string
	PollSeconds int
}

type ChatConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

// SessionConfig sets the visitor cookie. SecureCookie needs the site to be
// served over HTTPS; browsers drop Secure cookies on plain HTTP.
type SessionConfig struct {
	CookieName   string
	IdleMinute   int
	SecureCookie bool
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/sales-dashboard")

	v.SetEnvPrefix("SALES_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Analytics.BaseURL == "" {
		return fmt.Errorf("analytics.baseURL is required")
	}
	if c.Chat.Provider != "backend" && c.Chat.Provider != "openai" {
		return fmt.Errorf("chat.provider must be \"backend\" or \"openai\", got %q", c.Chat.Provider)
	}
	if c.Chat.Provider == "openai" && c.Chat.APIKey == "" {
		return fmt.Errorf("chat.apiKey is required for the openai provider")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{})
	v.SetDefault("server.isDevelopment", false)

	v.SetDefault("analytics.baseURL", "http://localhost:8000")
	v.SetDefault("analytics.timeoutSec", 30)
	v.SetDefault("analytics.maxAttempts", 1)

	v.SetDefault("dashboard.productName", "iPhone 15")
	v.SetDefault("dashboard.brandName", "Apple")
	v.SetDefault("dashboard.platform", "youtube")
	v.SetDefault("dashboard.pollSeconds", 2)

	v.SetDefault("chat.provider", "backend")
	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("chat.apiKey", "")
	v.SetDefault("chat.baseURL", "")
	v.SetDefault("chat.temperature", 0.3)
	v.SetDefault("chat.maxTokens", 512)
	v.SetDefault("chat.timeoutSec", 30)

	v.SetDefault("sqlite.path", "./data/dashboard.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlSec", 300)

	v.SetDefault("session.cookieName", "sd_session")
	v.SetDefault("session.idleMinute", 60)
	v.SetDefault("session.secureCookie", false)

	v.SetDefault("rateLimit.maxRequestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
