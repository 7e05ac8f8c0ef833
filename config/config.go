package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP server configuration
	HTTPAddr string

	// Payment gateway configuration
	GatewayTimeout  time.Duration
	RedispatchAfter time.Duration // Initiated transactions never sent for this long are dispatched again
	Daraja          DarajaConfig

	// Redis backs the gateway access token cache
	RedisURL string

	// NATS configuration (empty disables event streaming)
	NATSServers string

	// Discord operations channel (empty disables Discord notifications)
	DiscordToken        string
	DiscordOpsChannelID string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Business rules
	GuarantorResponseWindow   time.Duration   // Pending guarantors older than this are expired
	LoanSavingsMultiplier     decimal.Decimal // Max loan = multiplier x savings balance
	DefaultLoanInterestRate   decimal.Decimal // Percent for the whole term, simple interest
	SavingsAnnualInterestRate decimal.Decimal // Percent per year, applied daily

	// Environment
	Environment string // "development", "production" or "test"
	LogLevel    string
}

// DarajaConfig holds M-Pesa Daraja credentials and endpoints
type DarajaConfig struct {
	BaseURL            string
	ConsumerKey        string
	ConsumerSecret     string
	ShortCode          string
	PassKey            string
	InitiatorName      string
	SecurityCredential string
	CallbackBaseURL    string // Public base URL the gateway posts results to
}

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// Get returns the global configuration instance
func Get() *Config {
	mu.RLock()
	if instance != nil {
		defer mu.RUnlock()
		return instance
	}
	mu.RUnlock()

	once.Do(func() {
		cfg, err := load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		mu.Lock()
		instance = cfg
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// load loads configuration from the environment and an optional .env file
func load() (*Config, error) {
	// A missing .env file is fine, the environment wins either way
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		GatewayTimeout:  v.GetDuration("GATEWAY_TIMEOUT"),
		RedispatchAfter: v.GetDuration("REDISPATCH_AFTER"),
		Daraja: DarajaConfig{
			BaseURL:            v.GetString("DARAJA_BASE_URL"),
			ConsumerKey:        v.GetString("DARAJA_CONSUMER_KEY"),
			ConsumerSecret:     v.GetString("DARAJA_CONSUMER_SECRET"),
			ShortCode:          v.GetString("DARAJA_SHORTCODE"),
			PassKey:            v.GetString("DARAJA_PASSKEY"),
			InitiatorName:      v.GetString("DARAJA_INITIATOR_NAME"),
			SecurityCredential: v.GetString("DARAJA_SECURITY_CREDENTIAL"),
			CallbackBaseURL:    v.GetString("DARAJA_CALLBACK_BASE_URL"),
		},
		RedisURL:                 v.GetString("REDIS_URL"),
		NATSServers:              v.GetString("NATS_SERVERS"),
		DiscordToken:             v.GetString("DISCORD_TOKEN"),
		DiscordOpsChannelID:      v.GetString("DISCORD_OPS_CHANNEL_ID"),
		OTelEnabled:              v.GetBool("OTEL_ENABLED"),
		OTelServiceName:          v.GetString("OTEL_SERVICE_NAME"),
		OTelExporterType:         v.GetString("OTEL_EXPORTER_TYPE"),
		OTelOTLPEndpoint:         v.GetString("OTEL_OTLP_ENDPOINT"),
		OTelExportIntervalMillis: v.GetInt("OTEL_EXPORT_INTERVAL_MILLIS"),
		GuarantorResponseWindow:  v.GetDuration("GUARANTOR_RESPONSE_WINDOW"),
		Environment:              v.GetString("ENVIRONMENT"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
	}

	var err error
	if config.LoanSavingsMultiplier, err = getDecimal(v, "LOAN_SAVINGS_MULTIPLIER"); err != nil {
		return nil, err
	}
	if config.DefaultLoanInterestRate, err = getDecimal(v, "DEFAULT_LOAN_INTEREST_RATE"); err != nil {
		return nil, err
	}
	if config.SavingsAnnualInterestRate, err = getDecimal(v, "SAVINGS_ANNUAL_INTEREST_RATE"); err != nil {
		return nil, err
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GATEWAY_TIMEOUT", 30*time.Second)
	v.SetDefault("REDISPATCH_AFTER", 5*time.Minute)
	v.SetDefault("DARAJA_BASE_URL", "https://sandbox.safaricom.co.ke")
	v.SetDefault("OTEL_SERVICE_NAME", "sacco")
	v.SetDefault("OTEL_EXPORTER_TYPE", "console")
	v.SetDefault("OTEL_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_EXPORT_INTERVAL_MILLIS", 30000)
	v.SetDefault("GUARANTOR_RESPONSE_WINDOW", 24*time.Hour)
	v.SetDefault("LOAN_SAVINGS_MULTIPLIER", "3")
	v.SetDefault("DEFAULT_LOAN_INTEREST_RATE", "5.00")
	v.SetDefault("SAVINGS_ANNUAL_INTEREST_RATE", "2.5")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
}

func getDecimal(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// NewTestConfig returns a configuration with defaults suitable for tests
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:                  ":0",
		GatewayTimeout:            5 * time.Second,
		RedispatchAfter:           5 * time.Minute,
		GuarantorResponseWindow:   24 * time.Hour,
		LoanSavingsMultiplier:     decimal.NewFromInt(3),
		DefaultLoanInterestRate:   decimal.RequireFromString("5.00"),
		SavingsAnnualInterestRate: decimal.RequireFromString("2.5"),
		OTelServiceName:           "sacco-test",
		OTelExporterType:          "none",
		Environment:               "test",
		LogLevel:                  "debug",
	}
}

// SetTestConfig replaces the global configuration (tests only)
func SetTestConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// ResetConfig clears the global configuration so the next Get reloads it
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}
