package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnvAndDSN(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "6543")
	t.Setenv("TEST_DB_NAME", "moon_test")
	t.Setenv("TEST_DB_MAX_CONNS", "not-a-number")
	t.Setenv("TEST_DB_CONN_MAX_LIFETIME", "90s")

	cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "secret", Database: "moon", SSLMode: "disable", MaxConns: 15}
	cfg.LoadFromEnv("TEST_DB")

	assert.Equal(t, 15, cfg.MaxConns)
	assert.Equal(t, 90*time.Second, cfg.ConnMaxLifetime)
	assert.Equal(t, "host=db.internal port=6543 user=postgres password=secret dbname=moon_test sslmode=disable", cfg.GetDSN())
}

func TestMQTTConfig_QoSOutOfRangeIsIgnored(t *testing.T) {
	t.Setenv("MQ_QOS", "5")
	t.Setenv("MQ_BROKER", "tcp://broker:1883")

	cfg := MQTTConfig{QoS: 1}
	cfg.LoadFromEnv("MQ")

	assert.Equal(t, byte(1), cfg.QoS)
	assert.Equal(t, "tcp://broker:1883", cfg.Broker)
}

func TestRedisConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("R_ADDR", "cache:6379")
	t.Setenv("R_DB", "2")

	cfg := RedisConfig{Addr: "localhost:6379"}
	cfg.LoadFromEnv("R")

	assert.Equal(t, "cache:6379", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
}
