package config

import (
	"os"
	"strconv"
	"time"

	"rdmrecords/pkg/platform/strings"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Outbox   OutboxConfig
	PIDs     PIDsConfig
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory
// stores (single-process mode).
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures the reservation lock store. An empty URL selects
// in-process locks.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the registration task topic. With no brokers,
// tasks are dispatched in-process after commit.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	ConsumerGroup     string
	Partitions        int32
	ReplicationFactor int16
}

// OutboxConfig tunes the relay that moves tasks from PostgreSQL to Kafka.
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Retention    time.Duration
}

// PIDsConfig locates the PID policy and fills provider defaults when no
// policy file is given.
type PIDsConfig struct {
	PolicyFile       string
	DOIPrefix        string
	DOIIDPrefix      string
	OAIHost          string
	LandingBase      string
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Enabled reports whether a PostgreSQL URL was configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// Enabled reports whether Kafka brokers were configured.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Config{
		Server: Server{
			Addr:          getEnv("RDM_ADDR", ":8080"),
			JWTSigningKey: jwtSigningKey,
			JWTIssuer:     os.Getenv("JWT_ISSUER"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       getDuration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           strings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:             getEnv("KAFKA_PID_TASKS_TOPIC", "rdm.pid-tasks"),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "rdm-pid-worker"),
			Partitions:        int32(getInt("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("KAFKA_TOPIC_REPLICATION", 1)),
		},
		Outbox: OutboxConfig{
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
			Retention:    getDuration("OUTBOX_RETENTION", 24*time.Hour),
		},
		PIDs: PIDsConfig{
			PolicyFile:       os.Getenv("PID_POLICY_FILE"),
			DOIPrefix:        getEnv("DOI_PREFIX", "10.1234"),
			DOIIDPrefix:      getEnv("DOI_ID_PREFIX", "rdm"),
			OAIHost:          getEnv("OAI_HOST", "localhost"),
			LandingBase:      getEnv("LANDING_BASE_URL", "http://localhost:8080"),
			BreakerThreshold: getInt("REGISTRAR_FAILURE_THRESHOLD", 5),
			BreakerCooldown:  getDuration("REGISTRAR_COOLDOWN", 30*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
