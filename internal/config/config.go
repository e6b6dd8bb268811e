package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-verify-api/internal/domain"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AppBaseURL     string // used to build verification links
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	Redis          Redis
	Verification   Verification
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion  string
	SMSEnabled bool
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users string
}

// Redis configures the volatile cache tier used for codes and cooldowns.
type Redis struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Verification holds code lifetime and per-purpose cooldown windows.
type Verification struct {
	CodeTTL                    time.Duration
	CooldownEmailVerification  time.Duration
	CooldownPasswordReset      time.Duration
	CooldownResendVerification time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AppBaseURL:     strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users: getEnv("DYNAMO_TABLE_USERS", "users"),
		},
		Redis: Redis{
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		},
		Verification: Verification{
			CodeTTL:                    getEnvDuration("VERIFICATION_CODE_TTL", 10*time.Minute),
			CooldownEmailVerification:  getEnvDuration("COOLDOWN_EMAIL_VERIFICATION", 60*time.Second),
			CooldownPasswordReset:      getEnvDuration("COOLDOWN_PASSWORD_RESET", 60*time.Second),
			CooldownResendVerification: getEnvDuration("COOLDOWN_RESEND_VERIFICATION", 30*time.Second),
		},
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),
		SMSEnabled: getEnvBool("SMS_ENABLED", false),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// CooldownWindows maps each purpose name to its cooldown window.
func (v Verification) CooldownWindows() map[domain.Purpose]time.Duration {
	return map[domain.Purpose]time.Duration{
		domain.PurposeEmailVerification:  v.CooldownEmailVerification,
		domain.PurposePasswordReset:      v.CooldownPasswordReset,
		domain.PurposeResendVerification: v.CooldownResendVerification,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "10m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
