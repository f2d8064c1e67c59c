package app

import (
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/bartab-mfa/pkg/httpx"
	"github.com/joho/godotenv"
)

type Config struct {
	EncryptionKey  string   // MFA_ENCRYPTION_KEY: 64 hex chars (one of this or MasterKeyPath is required)
	MasterKeyPath  string   // MFA_MASTER_KEY_PATH: key file, hex key or passphrase run through HKDF
	Issuer         string   // MFA_ISSUER: label shown in authenticator apps (default: BarTab)
	DatabaseFile   string   // MFA_DATABASE_FILE: path to SQLite database file (default: ./mfa.db)
	CodeStore      string   // MFA_CODE_STORE: where email OTP codes live (sqlite, redis) (default: sqlite)
	RedisURL       string   // REDIS_URL: used when CodeStore is redis
	RequiredScopes []string // MFA_REQUIRED_SCOPES: space separated, any one must be granted (default: none)
	QRSize         int      // MFA_QR_SIZE: QR code width in pixels (default: 256)

	AuthIssuer          string        // AUTH_ISSUER: expected token issuer (default: bartab-auth)
	AuthJWKSURL         string        // AUTH_JWKS_URL: identity provider JWKS endpoint
	AuthPublicKeyPath   string        // AUTH_PUBLIC_KEY_PATH: PEM public key, alternative to AuthJWKSURL
	AuthPublicKeyID     string        // AUTH_PUBLIC_KEY_ID: kid of the PEM key, matched against token headers
	JWKSRefreshInterval time.Duration // JWKS_REFRESH_INTERVAL (default: 15m)

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	MailTimeout  time.Duration // MAIL_TIMEOUT: bound on a single delivery (default: 5s)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8081)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory when one exists.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		EncryptionKey:  os.Getenv("MFA_ENCRYPTION_KEY"),
		MasterKeyPath:  os.Getenv("MFA_MASTER_KEY_PATH"),
		Issuer:         getEnvOrDefault("MFA_ISSUER", "BarTab"),
		DatabaseFile:   getEnvOrDefault("MFA_DATABASE_FILE", "mfa.db"),
		CodeStore:      getEnvOrDefault("MFA_CODE_STORE", "sqlite"),
		RedisURL:       getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		RequiredScopes: httpx.ParseSpaceDelimitedFields(os.Getenv("MFA_REQUIRED_SCOPES")),
		QRSize:         getEnvIntOrDefault("MFA_QR_SIZE", 256),

		AuthIssuer:          getEnvOrDefault("AUTH_ISSUER", "bartab-auth"),
		AuthJWKSURL:         os.Getenv("AUTH_JWKS_URL"),
		AuthPublicKeyPath:   os.Getenv("AUTH_PUBLIC_KEY_PATH"),
		AuthPublicKeyID:     os.Getenv("AUTH_PUBLIC_KEY_ID"),
		JWKSRefreshInterval: getEnvDurationOrDefault("JWKS_REFRESH_INTERVAL", 15*time.Minute),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		MailTimeout:  getEnvDurationOrDefault("MAIL_TIMEOUT", 5*time.Second),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8081),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
