package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	strs "vouch/pkg/platform/strings"
)

// Config is the full service configuration, assembled once in main.
type Config struct {
	Server    Server
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Blob      BlobConfig
	Oracle    OracleConfig
	Security  SecurityConfig
	Audit     AuditConfig
	NIN       NINConfig
	Trust     TrustConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the persistence backend. An empty URL runs the
// service on in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RunMigrations   bool
}

// RedisConfig configures the trust score cache and the shared rate limit
// window. An empty URL disables both.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the gamification event feed. No brokers means events
// are dropped with a debug log.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// BlobConfig selects the document blob backend: "memory", "azure" or "s3".
type BlobConfig struct {
	Backend        string
	PublicBaseURL  string
	AzureAccount   string
	AzureKey       string
	AzureContainer string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3Prefix       string
}

// OracleConfig configures the NIN verification provider: "sandbox" or "dojah".
type OracleConfig struct {
	Provider        string
	BaseURL         string
	AppID           string
	SecretKey       string
	Timeout         time.Duration
	SandboxNotFound []string
}

// SecurityConfig holds signing and encryption material.
type SecurityConfig struct {
	JWTSigningKey    string
	NINEncryptionKey string
	NINHashKey       string
}

type AuditConfig struct {
	ExportCap int
}

type NINConfig struct {
	PendingLeaseTTL time.Duration
}

type TrustConfig struct {
	CacheTTL time.Duration
}

// RateLimitConfig budgets authenticated requests per user per minute. Zero
// disables the class. Limits live in Redis when it is configured.
type RateLimitConfig struct {
	WritesPerMinute int
	ReadsPerMinute  int
}

type LoggingConfig struct {
	Level  string
	Format string
}

const (
	defaultNINEncryptionKey = "0123456789abcdef0123456789abcdef"
	defaultJWTSigningKey    = "dev-secret-key-change-in-production"
)

// FromEnv builds a Config from environment variables, loading a .env file
// first when one exists so main stays lean.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: Server{
			Addr:            valueOrDefault(os.Getenv("VOUCH_ADDR"), ":8080"),
			ShutdownTimeout: parseDuration("VOUCH_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    parseInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			RunMigrations:   parseBool("DATABASE_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     parseInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: parseInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  parseDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  parseDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: parseDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  parseList("KAFKA_BROKERS"),
			Topic:    valueOrDefault(os.Getenv("KAFKA_TOPIC"), "vouch.verification-events"),
			ClientID: valueOrDefault(os.Getenv("KAFKA_CLIENT_ID"), "vouch"),
		},
		Blob: BlobConfig{
			Backend:        valueOrDefault(os.Getenv("BLOB_BACKEND"), "memory"),
			PublicBaseURL:  valueOrDefault(os.Getenv("BLOB_PUBLIC_BASE_URL"), "http://localhost:8080/blobs"),
			AzureAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AzureKey:       os.Getenv("AZURE_STORAGE_KEY"),
			AzureContainer: valueOrDefault(os.Getenv("AZURE_STORAGE_CONTAINER"), "identity-documents"),
			S3Bucket:       os.Getenv("BLOB_S3_BUCKET"),
			S3Region:       valueOrDefault(os.Getenv("BLOB_S3_REGION"), valueOrDefault(os.Getenv("AWS_REGION"), "us-east-1")),
			S3Endpoint:     os.Getenv("BLOB_S3_ENDPOINT"),
			S3Prefix:       os.Getenv("BLOB_S3_PREFIX"),
		},
		Oracle: OracleConfig{
			Provider:        valueOrDefault(os.Getenv("NIN_ORACLE_PROVIDER"), "sandbox"),
			BaseURL:         valueOrDefault(os.Getenv("DOJAH_BASE_URL"), "https://sandbox.dojah.io"),
			AppID:           os.Getenv("DOJAH_APP_ID"),
			SecretKey:       os.Getenv("DOJAH_SECRET_KEY"),
			Timeout:         parseDuration("NIN_ORACLE_TIMEOUT", 15*time.Second),
			SandboxNotFound: parseList("NIN_SANDBOX_NOT_FOUND"),
		},
		Security: SecurityConfig{
			JWTSigningKey:    valueOrDefault(os.Getenv("JWT_SIGNING_KEY"), defaultJWTSigningKey),
			NINEncryptionKey: valueOrDefault(os.Getenv("NIN_ENCRYPTION_KEY"), defaultNINEncryptionKey),
			NINHashKey:       valueOrDefault(os.Getenv("NIN_HASH_KEY"), defaultNINEncryptionKey),
		},
		Audit: AuditConfig{
			ExportCap: parseInt("AUDIT_EXPORT_CAP", 10000),
		},
		NIN: NINConfig{
			PendingLeaseTTL: parseDuration("NIN_PENDING_LEASE_TTL", 2*time.Minute),
		},
		Trust: TrustConfig{
			CacheTTL: parseDuration("TRUST_CACHE_TTL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			WritesPerMinute: parseInt("RATE_LIMIT_WRITES_PER_MINUTE", 30),
			ReadsPerMinute:  parseInt("RATE_LIMIT_READS_PER_MINUTE", 300),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault(os.Getenv("LOG_LEVEL"), "info"),
			Format: valueOrDefault(os.Getenv("LOG_FORMAT"), "json"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	if len(c.Security.NINEncryptionKey) != 32 {
		return fmt.Errorf("NIN_ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if c.Audit.ExportCap <= 0 {
		return fmt.Errorf("AUDIT_EXPORT_CAP must be positive")
	}
	switch c.Blob.Backend {
	case "memory":
	case "azure":
		if c.Blob.AzureAccount == "" || c.Blob.AzureKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for azure blob storage")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("unsupported blob backend: %s", c.Blob.Backend)
	}
	switch c.Oracle.Provider {
	case "sandbox":
	case "dojah":
		if c.Oracle.AppID == "" || c.Oracle.SecretKey == "" {
			return fmt.Errorf("DOJAH_APP_ID and DOJAH_SECRET_KEY are required for the dojah provider")
		}
	default:
		return fmt.Errorf("unsupported NIN oracle provider: %s", c.Oracle.Provider)
	}
	return nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func parseInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	return strs.DedupeAndTrim(strings.Split(raw, ","))
}
