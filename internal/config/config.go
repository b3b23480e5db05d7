package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	FlightSourceURL string
	ComputeURL      string

	IngestBatchSize    int
	IngestWorkers      int
	IngestPollInterval int
	IngestMaxRecords   int64

	LogLevel  string
	LogFormat string
}

var (
	ErrMissingDBHost = errors.New("missing_database_host")
	ErrMissingDBName = errors.New("missing_database_name")
	ErrMissingDBUser = errors.New("missing_database_user")
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "overflight"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "overflight"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		FlightSourceURL: getenv("FLIGHT_SOURCE_URL", "http://localhost:8091"),
		ComputeURL:      getenv("COMPUTE_ENGINE_URL", "http://localhost:8092"),

		IngestBatchSize:    getenvInt("INGEST_BATCH_SIZE", 10),
		IngestWorkers:      getenvInt("INGEST_WORKERS", 5),
		IngestPollInterval: getenvInt("INGEST_POLL_INTERVAL_SECONDS", 15),
		IngestMaxRecords:   getenvInt64("INGEST_MAX_RECORDS", 0),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),
	}
}

// Validate reports startup-time configuration failures. These are the only
// errors that halt the process.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DBHost) == "" {
		return ErrMissingDBHost
	}
	if strings.TrimSpace(c.DBName) == "" {
		return ErrMissingDBName
	}
	if strings.TrimSpace(c.DBUser) == "" {
		return ErrMissingDBUser
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
