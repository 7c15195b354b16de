// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq worker and scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetMatchingSweepCron() string
	GetMatchingRunLockTTL() time.Duration
	GetTimezone() string
}

// MatchingConfig provides settings for the matching engine and its service.
// An empty stage list means the service default applies.
type MatchingConfig interface {
	GetMatchingWeightsFile() string
	GetMatchingEligibleStages() []string
}

// WhatsAppConfig provides settings for the GOWA WhatsApp gateway.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	IsWhatsAppEnabled() bool
}

// SMTPConfig provides settings for outgoing e-mail.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromName() string
	GetSMTPFromAddress() string
	IsSMTPEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketMatchReports() string
	IsMinIOEnabled() bool
}

// AMQPConfig provides settings for the property import event consumer.
type AMQPConfig interface {
	GetAMQPURL() string
	GetAMQPExchange() string
	GetAMQPQueue() string
	GetAMQPRoutingKey() string
	GetAMQPPrefetch() int
	IsAMQPEnabled() bool
}

// FluentConfig provides settings for optional log shipping.
type FluentConfig interface {
	GetFluentHost() string
	GetFluentPort() int
	GetFluentTag() string
	IsFluentEnabled() bool
}

// GeocodingConfig provides settings for the Nominatim geocoder.
type GeocodingConfig interface {
	GetNominatimURL() string
	GetGeocodeCountryCodes() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	MatchingSweepCron  string
	MatchingRunLockTTL time.Duration
	Timezone           string

	MatchingWeightsFile    string
	MatchingEligibleStages []string

	WhatsAppURL      string
	WhatsAppKey      string
	WhatsAppDeviceID string

	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string
	SMTPFromName    string
	SMTPFromAddress string

	MinIOEndpoint           string
	MinIOAccessKey          string
	MinIOSecretKey          string
	MinIOUseSSL             bool
	MinioBucketMatchReports string

	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	AMQPRoutingKey string
	AMQPPrefetch   int

	FluentHost string
	FluentPort int
	FluentTag  string

	NominatimURL        string
	GeocodeCountryCodes string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string            { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int             { return c.AsynqConcurrency }
func (c *Config) GetMatchingSweepCron() string         { return c.MatchingSweepCron }
func (c *Config) GetMatchingRunLockTTL() time.Duration { return c.MatchingRunLockTTL }
func (c *Config) GetTimezone() string                  { return c.Timezone }

// MatchingConfig implementation
func (c *Config) GetMatchingWeightsFile() string      { return c.MatchingWeightsFile }
func (c *Config) GetMatchingEligibleStages() []string { return c.MatchingEligibleStages }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }
func (c *Config) IsWhatsAppEnabled() bool     { return c.WhatsAppURL != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromName() string    { return c.SMTPFromName }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) IsSMTPEnabled() bool        { return c.SMTPHost != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string           { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string          { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string          { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool               { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketMatchReports() string { return c.MinioBucketMatchReports }
func (c *Config) IsMinIOEnabled() bool               { return c.MinIOEndpoint != "" }

// AMQPConfig implementation
func (c *Config) GetAMQPURL() string        { return c.AMQPURL }
func (c *Config) GetAMQPExchange() string   { return c.AMQPExchange }
func (c *Config) GetAMQPQueue() string      { return c.AMQPQueue }
func (c *Config) GetAMQPRoutingKey() string { return c.AMQPRoutingKey }
func (c *Config) GetAMQPPrefetch() int      { return c.AMQPPrefetch }
func (c *Config) IsAMQPEnabled() bool       { return c.AMQPURL != "" }

// FluentConfig implementation
func (c *Config) GetFluentHost() string { return c.FluentHost }
func (c *Config) GetFluentPort() int    { return c.FluentPort }
func (c *Config) GetFluentTag() string  { return c.FluentTag }
func (c *Config) IsFluentEnabled() bool { return c.FluentHost != "" }

// GeocodingConfig implementation
func (c *Config) GetNominatimURL() string        { return c.NominatimURL }
func (c *Config) GetGeocodeCountryCodes() string { return c.GeocodeCountryCodes }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		MatchingSweepCron:  getEnv("MATCHING_SWEEP_CRON", "0 8 * * *"),
		MatchingRunLockTTL: mustDuration(getEnv("MATCHING_RUN_LOCK_TTL", "30m")),
		Timezone:           getEnv("APP_TIMEZONE", "America/Sao_Paulo"),

		MatchingWeightsFile:    getEnv("MATCHING_WEIGHTS_FILE", ""),
		MatchingEligibleStages: splitCSV(getEnv("MATCHING_ELIGIBLE_STAGES", "")),

		WhatsAppURL:      getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:      getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID: getEnv("WHATSAPP_DEVICE_ID", ""),

		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SMTPFromName:    getEnv("SMTP_FROM_NAME", "CRM Matching"),
		SMTPFromAddress: getEnv("SMTP_FROM_ADDRESS", ""),

		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:          getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:          getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:             strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketMatchReports: getEnv("MINIO_BUCKET_MATCH_REPORTS", "match-reports"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "properties"),
		AMQPQueue:      getEnv("AMQP_QUEUE", "matching.property_imported"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "property.imported"),
		AMQPPrefetch:   mustInt(getEnv("AMQP_PREFETCH", "10")),

		FluentHost: getEnv("FLUENT_HOST", ""),
		FluentPort: mustInt(getEnv("FLUENT_PORT", "24224")),
		FluentTag:  getEnv("FLUENT_TAG", "crm.matching"),

		NominatimURL:        getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocodeCountryCodes: getEnv("GEOCODE_COUNTRY_CODES", "br"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.IsSMTPEnabled() && cfg.SMTPFromAddress == "" {
		return nil, fmt.Errorf("SMTP_FROM_ADDRESS is required when SMTP_HOST is set")
	}
	if cfg.AsynqConcurrency <= 0 {
		return nil, fmt.Errorf("ASYNQ_CONCURRENCY must be positive")
	}
	if cfg.MatchingRunLockTTL <= 0 {
		return nil, fmt.Errorf("MATCHING_RUN_LOCK_TTL must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
