package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort int

	VornifyPayURL      string
	ProcessorAPIURL    string
	ProcessorScriptURL string

	CheckoutCallTimeout   time.Duration
	CheckoutRedirectDelay time.Duration
	CheckoutDialogTTL     time.Duration

	// CartBackend is memory or mongo. A non-empty RedisAddr puts a cache in front.
	CartBackend   string
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string

	CatalogDBPath  string
	PrintfulAPIURL string
	PrintfulToken  string
	CJAPIURL       string
	CJAccessToken  string

	KafkaBrokers []string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		VornifyPayURL:      getEnv("VORNIFYPAY_URL", "http://localhost:8090"),
		ProcessorAPIURL:    getEnv("PROCESSOR_API_URL", "http://localhost:8090"),
		ProcessorScriptURL: getEnv("PROCESSOR_SCRIPT_URL", "http://localhost:8090/v3"),

		CheckoutCallTimeout:   getEnvDuration("CHECKOUT_CALL_TIMEOUT", 30*time.Second),
		CheckoutRedirectDelay: getEnvDuration("CHECKOUT_REDIRECT_DELAY", 2*time.Second),
		CheckoutDialogTTL:     getEnvDuration("CHECKOUT_DIALOG_TTL", 30*time.Minute),

		CartBackend:   strings.ToLower(getEnv("CART_BACKEND", "memory")),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "peakmode"),

		CatalogDBPath:  getEnv("CATALOG_DB_PATH", "./catalog.db"),
		PrintfulAPIURL: getEnv("PRINTFUL_API_URL", "https://api.printful.com"),
		PrintfulToken:  getEnv("PRINTFUL_TOKEN", ""),
		CJAPIURL:       getEnv("CJ_API_URL", "https://developers.cjdropshipping.com/api2.0/v1"),
		CJAccessToken:  getEnv("CJ_ACCESS_TOKEN", ""),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", "Peak Mode <orders@peakmode.se>"),
	}
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)

	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}

// getEnvDuration accepts Go durations ("45s") or whole seconds ("45").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
