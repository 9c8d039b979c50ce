package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:   App{Env: "test", Port: 6969},
		Mongo: Mongo{URI: "mongodb://localhost:27017", DB: "chat"},
		Redis: Redis{Addr: "localhost:6379"},
		Kafka: Kafka{Brokers: []string{"localhost:9092"}, Topic: "chat-delivery"},
		NATS:  NATS{URL: "nats://localhost:4222"},
		JWT:   JWT{Alg: "HS256", HSSecret: "secret"},
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validate(validConfig()))
}

func TestValidate_RejectsMissingPieces(t *testing.T) {
	cases := []struct {
		name  string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.App.Port = 0 }},
		{"mongo uri", func(c *Config) { c.Mongo.URI = "" }},
		{"mongo db", func(c *Config) { c.Mongo.DB = "" }},
		{"redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"kafka brokers", func(c *Config) { c.Kafka.Brokers = nil }},
		{"kafka topic", func(c *Config) { c.Kafka.Topic = "" }},
		{"nats url", func(c *Config) { c.NATS.URL = "" }},
		{"jwt alg", func(c *Config) { c.JWT.Alg = "ES512" }},
		{"hs secret", func(c *Config) { c.JWT.HSSecret = "" }},
		{"rs key path", func(c *Config) { c.JWT.Alg = "RS256"; c.JWT.PublicKeyPath = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	req := require.New(t)

	cfg := validConfig()
	applyDefaults(cfg)

	req.Equal(256, cfg.WS.SendBuffer)
	req.Equal(10, cfg.WS.RatePerSec)
	req.Equal(64*1024, cfg.WS.MaxMessageBytes)
	req.Equal(9091, cfg.App.MetricsPort)
	req.Equal("chat-delivery", cfg.Kafka.GroupPrefix)
}

func TestShutdownTimeoutFallsBack(t *testing.T) {
	req := require.New(t)

	a := App{Timeout: "bogus"}
	req.Equal("10s", a.ShutdownTimeout().String())

	a.Timeout = "30s"
	req.Equal("30s", a.ShutdownTimeout().String())
}
