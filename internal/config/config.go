package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Security     SecurityConfig     `json:"security"`
	Logging      LoggingConfig      `json:"logging"`
	Verification VerificationConfig `json:"verification"`
	Redis        RedisConfig        `json:"redis"`
	RateLimit    RateLimitConfig    `json:"rate_limit"`
	Email        EmailConfig        `json:"email"`
	SMS          SMSConfig          `json:"sms"`
	Storage      StorageConfig      `json:"storage"`
	Payments     PaymentsConfig     `json:"payments"`
	Workers      WorkersConfig      `json:"workers"`
	Cache        CacheConfig        `json:"cache"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	AllowedOrigin   string        `json:"allowed_origin"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
	AutoMigrate    bool          `json:"auto_migrate"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret      string `json:"jwt_secret"`
	AuthCookieName string `json:"auth_cookie_name"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// VerificationConfig controls the property verification store and its rules.
type VerificationConfig struct {
	Store            string `json:"store"` // memory | postgres
	EnforceChecklist bool   `json:"enforce_checklist"`
}

// RedisConfig
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RateLimitConfig
type RateLimitConfig struct {
	Enabled             bool          `json:"enabled"`
	RequestsPerWindow   int           `json:"requests_per_window"`
	Window              time.Duration `json:"window"`
	PasswordResetLimit  int           `json:"password_reset_limit"`
	PasswordResetWindow time.Duration `json:"password_reset_window"`
}

// EmailConfig configures the SES notification channel
type EmailConfig struct {
	Enabled     bool   `json:"enabled"`
	Region      string `json:"region"`
	FromAddress string `json:"from_address"`
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
}

// SMSConfig configures the Twilio notification channel
type SMSConfig struct {
	Enabled    bool   `json:"enabled"`
	AccountSID string `json:"account_sid"`
	AuthToken  string `json:"auth_token"`
	FromNumber string `json:"from_number"`
}

// StorageConfig configures the S3 document archive
type StorageConfig struct {
	Enabled   bool   `json:"enabled"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// PaymentsConfig
type PaymentsConfig struct {
	Mpesa MpesaConfig `json:"mpesa"`
}

// MpesaConfig configures Daraja STK push. Without consumer credentials the
// simulated gateway is used.
type MpesaConfig struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	ShortCode      string `json:"short_code"`
	PassKey        string `json:"pass_key"`
	CallbackURL    string `json:"callback_url"`
	Sandbox        bool   `json:"sandbox"`
}

// WorkersConfig holds cron expressions for background jobs
type WorkersConfig struct {
	CompleteBookings string `json:"complete_bookings"`
	RefreshStats     string `json:"refresh_stats"`
}

// CacheConfig
type CacheConfig struct {
	StatsTTL time.Duration `json:"stats_ttl"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigin:   "*",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "rental_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    5 * time.Minute,
		},
		Security: SecurityConfig{
			AuthCookieName: "auth",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Verification: VerificationConfig{
			Store: "memory",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		RateLimit: RateLimitConfig{
			Enabled:             true,
			RequestsPerWindow:   300,
			Window:              time.Minute,
			PasswordResetLimit:  3,
			PasswordResetWindow: time.Hour,
		},
		Email: EmailConfig{
			Region: "us-east-1",
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Payments: PaymentsConfig{
			Mpesa: MpesaConfig{ShortCode: "174379", Sandbox: true},
		},
		Workers: WorkersConfig{
			CompleteBookings: "0 */15 * * * *",
			RefreshStats:     "0 0 * * * *",
		},
		Cache: CacheConfig{
			StatsTTL: 5 * time.Minute,
		},
	}
}

// LoadConfig loads configuration from .env, the JSON file and environment variables,
// in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Verification.Store {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid verification store %q", c.Verification.Store)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage requires a bucket")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requires a positive limit and window")
	}
	return nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if origin := os.Getenv("ALLOWED_ORIGIN"); origin != "" {
		config.Server.AllowedOrigin = origin
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if migrate := os.Getenv("DATABASE_AUTO_MIGRATE"); migrate != "" {
		config.Database.AutoMigrate = parseBool(migrate)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if cookie := os.Getenv("AUTH_COOKIE_NAME"); cookie != "" {
		config.Security.AuthCookieName = cookie
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if store := os.Getenv("VERIFICATION_STORE"); store != "" {
		config.Verification.Store = strings.ToLower(store)
	}
	if enforce := os.Getenv("VERIFICATION_ENFORCE_CHECKLIST"); enforce != "" {
		config.Verification.EnforceChecklist = parseBool(enforce)
	}
	if addr := os.Getenv("REDIS_ADDRESS"); addr != "" {
		config.Redis.Address = addr
		config.Redis.Enabled = true
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		config.Redis.Password = pass
	}
	if from := os.Getenv("EMAIL_FROM_ADDRESS"); from != "" {
		config.Email.FromAddress = from
		config.Email.Enabled = true
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Email.Region = region
		config.Storage.Region = region
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		config.Email.AccessKey = key
		config.Storage.AccessKey = key
	}
	if secret := os.Getenv("AWS_SECRET_ACCESS_KEY"); secret != "" {
		config.Email.SecretKey = secret
		config.Storage.SecretKey = secret
	}
	if bucket := os.Getenv("ARCHIVE_S3_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
		config.Storage.Enabled = true
	}
	if endpoint := os.Getenv("ARCHIVE_S3_ENDPOINT"); endpoint != "" {
		config.Storage.Endpoint = endpoint
	}
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		config.SMS.AccountSID = sid
		config.SMS.Enabled = true
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		config.SMS.AuthToken = token
	}
	if from := os.Getenv("TWILIO_FROM_NUMBER"); from != "" {
		config.SMS.FromNumber = from
	}
	if key := os.Getenv("MPESA_CONSUMER_KEY"); key != "" {
		config.Payments.Mpesa.ConsumerKey = key
	}
	if secret := os.Getenv("MPESA_CONSUMER_SECRET"); secret != "" {
		config.Payments.Mpesa.ConsumerSecret = secret
	}
	if env := os.Getenv("MPESA_ENVIRONMENT"); env != "" {
		config.Payments.Mpesa.Sandbox = env != "production"
	}
	if code := os.Getenv("MPESA_SHORT_CODE"); code != "" {
		config.Payments.Mpesa.ShortCode = code
	}
	if passKey := os.Getenv("MPESA_PASS_KEY"); passKey != "" {
		config.Payments.Mpesa.PassKey = passKey
	}
	if callback := os.Getenv("MPESA_CALLBACK_URL"); callback != "" {
		config.Payments.Mpesa.CallbackURL = callback
	}
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
