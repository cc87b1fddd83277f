package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		// t.Setenv restores the previous value after the test.
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5432")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("CART_TTL", "1h")
		t.Setenv("CART_DELIVERY_FEE_POLICY", "per_line")
		t.Setenv("CHECKOUT_CALL_TIMEOUT", "3s")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
		t.Setenv("KAFKA_ORDER_TOPIC", "orders")
		t.Setenv("CORS_ALLOWED_ORIGIN", "https://petcare.gt")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "secret", cfg.JWTSecret)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 2, cfg.RedisDB)
		assert.Equal(t, time.Hour, cfg.CartTTL)
		assert.Equal(t, "per_line", cfg.CartDeliveryFeePolicy)
		assert.Equal(t, 3*time.Second, cfg.CheckoutCallTimeout)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, "orders", cfg.KafkaOrderTopic)
		assert.Equal(t, "https://petcare.gt", cfg.CORSAllowedOrigin)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("APP_PORT", "")
		t.Setenv("REDIS_ADDR", "")
		t.Setenv("REDIS_DB", "not-a-number")
		t.Setenv("CART_TTL", "")
		t.Setenv("CART_DELIVERY_FEE_POLICY", "")
		t.Setenv("CHECKOUT_CALL_TIMEOUT", "-5s")
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("KAFKA_ORDER_TOPIC", "")
		t.Setenv("CORS_ALLOWED_ORIGIN", "")

		cfg := LoadConfig()

		assert.Equal(t, "8080", cfg.AppPort)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, 0, cfg.RedisDB)
		assert.Equal(t, 30*24*time.Hour, cfg.CartTTL)
		assert.Equal(t, "per_provider", cfg.CartDeliveryFeePolicy)
		assert.Equal(t, 10*time.Second, cfg.CheckoutCallTimeout)
		assert.Nil(t, cfg.KafkaBrokers)
		assert.Equal(t, "order.created", cfg.KafkaOrderTopic)
		assert.Equal(t, "http://localhost:3000", cfg.CORSAllowedOrigin)
	})
}
