package config

import (
	"os"
	"strings"
	"time"

	commoncfg "github.com/gol43/test-moon/common/config"

	"github.com/joho/godotenv"
)

// Config holds the moon-directory HTTP API settings.
type Config struct {
	HTTP struct {
		Addr        string
		BasePath    string
		CORSOrigins []string
	}
	DBEnabled     bool
	DBAutoMigrate bool
	Database      commoncfg.DatabaseConfig
	Cache         struct {
		Enabled bool
		TTL     time.Duration
		Prefix  string
	}
	Redis commoncfg.RedisConfig
	MQTT  struct {
		Enabled     bool
		TopicPrefix string
		commoncfg.MQTTConfig
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads the optional .env file and then the process environment.
func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.BasePath = getEnv("HTTP_BASE_PATH", "/api/v1")
	cfg.HTTP.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	// Without a database the service falls back to the in-memory store.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.DBAutoMigrate = getEnv("DB_AUTO_MIGRATE", "false") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "moon",
		SSLMode:         "disable",
		MaxConns:        15,
		MaxIdle:         5,
		ConnMaxLifetime: 30 * time.Minute,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Cache.Enabled = getEnv("CACHE_ENABLED", "false") == "true"
	cfg.Cache.TTL = parseDuration(getEnv("CACHE_TTL", "5m"), 5*time.Minute)
	cfg.Cache.Prefix = getEnv("CACHE_PREFIX", "moon:")
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "moon/directory")
	cfg.MQTT.MQTTConfig = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "moon-directory",
		QoS:      1,
	}
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
