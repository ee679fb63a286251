package config

import (
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
	HTTPAddr    string

	OTLPEndpoint string

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

	// RedisAddr enables the access-check rate limiter and cross-replica
	// sweep coordination; both stay off when empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AccessCheckRate  float64
	AccessCheckBurst int

	// IPNSecret is the shared secret used to verify payment webhook signatures.
	IPNSecret string

	// OperatorKey authenticates the trusted front-end process; OperatorID is
	// the identity that key resolves to for authorization checks.
	OperatorKey string
	OperatorID  int64

	TokenTTLSeconds    int
	TokenSweepInterval int

	// ExpiryPolicy selects how a settled renewal interacts with an existing
	// entitlement: "replace" resets expiry to now+days, "extend" adds the
	// purchased days on top of any remaining time.
	ExpiryPolicy string

	// AllowLegacyOrderRefs accepts the old 3-field subscription order
	// reference (no category) during migration windows.
	AllowLegacyOrderRefs bool

	TelegramBotToken string
	NotifyTimeoutMS  int
}

const (
	ExpiryPolicyReplace = "replace"
	ExpiryPolicyExtend  = "extend"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "tollgate"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "tollgate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		AccessCheckRate:  getenvFloat("ACCESS_CHECK_RATE", 20),
		AccessCheckBurst: getenvInt("ACCESS_CHECK_BURST", 40),

		IPNSecret: strings.TrimSpace(getenv("IPN_SECRET", "")),

		OperatorKey: strings.TrimSpace(getenv("OPERATOR_KEY", "")),
		OperatorID:  getenvInt64("OPERATOR_ID", 0),

		TokenTTLSeconds:    getenvInt("TOKEN_TTL_SECONDS", 600),
		TokenSweepInterval: getenvInt("TOKEN_SWEEP_INTERVAL_SECONDS", 300),

		ExpiryPolicy:         normalizeExpiryPolicy(getenv("EXPIRY_POLICY", ExpiryPolicyReplace)),
		AllowLegacyOrderRefs: getenvBool("ALLOW_LEGACY_ORDER_REFS", false),

		TelegramBotToken: strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
		NotifyTimeoutMS:  getenvInt("NOTIFY_TIMEOUT_MS", 5000),
	}

	return cfg
}

func normalizeExpiryPolicy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ExpiryPolicyExtend:
		return ExpiryPolicyExtend
	default:
		return ExpiryPolicyReplace
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
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
