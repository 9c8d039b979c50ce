package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type App struct {
	Env         string `yaml:"env"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	Timeout     string `yaml:"shutdown_timeout"`
}

func (a *App) PortString() string        { return fmt.Sprintf("%d", a.Port) }
func (a *App) MetricsPortString() string { return fmt.Sprintf("%d", a.MetricsPort) }
func (a *App) Development() bool         { return a.Env != "production" }

func (a *App) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

type Mongo struct {
	URI string `yaml:"uri"`
	DB  string `yaml:"db"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	// Topic is the shared relay topic every instance publishes to and
	// consumes from; the consumer group is derived per instance at startup.
	Topic       string `yaml:"topic"`
	GroupPrefix string `yaml:"group_prefix"`
}

type NATS struct {
	URL string `yaml:"url"`
}

type JWT struct {
	Alg           string `yaml:"alg"`
	PublicKeyPath string `yaml:"public_key_path"`
	HSSecret      string `yaml:"hs_secret"`
}

type WS struct {
	SendBuffer      int `yaml:"send_buffer"`
	RatePerSec      int `yaml:"rate_per_sec"`
	MaxMessageBytes int `yaml:"max_message_bytes"`
	PresenceTTLSec  int `yaml:"presence_ttl_seconds"`
}

func (w *WS) PresenceTTL() time.Duration {
	return time.Duration(w.PresenceTTLSec) * time.Second
}

type Config struct {
	App   App   `yaml:"app"`
	Mongo Mongo `yaml:"mongo"`
	Redis Redis `yaml:"redis"`
	Kafka Kafka `yaml:"kafka"`
	NATS  NATS  `yaml:"nats"`
	JWT   JWT   `yaml:"jwt"`
	WS    WS    `yaml:"ws"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		b, _ := os.ReadFile("config.yaml")
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	overrideFromEnv(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		n, _ := strconv.Atoi(v)
		cfg.App.Port = n
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		n, _ := strconv.Atoi(v)
		cfg.App.MetricsPort = n
	}

	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("MONGO_NAME"); v != "" {
		cfg.Mongo.DB = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}

	if v := os.Getenv("JWT_PUBLIC_KEY_PATH"); v != "" {
		cfg.JWT.PublicKeyPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.HSSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.WS.SendBuffer == 0 {
		cfg.WS.SendBuffer = 256
	}
	if cfg.WS.RatePerSec == 0 {
		cfg.WS.RatePerSec = 10
	}
	if cfg.WS.MaxMessageBytes == 0 {
		cfg.WS.MaxMessageBytes = 64 * 1024
	}
	if cfg.WS.PresenceTTLSec == 0 {
		cfg.WS.PresenceTTLSec = 60
	}
	if cfg.App.MetricsPort == 0 {
		cfg.App.MetricsPort = 9091
	}
	if cfg.Kafka.GroupPrefix == "" {
		cfg.Kafka.GroupPrefix = "chat-delivery"
	}
}

func validate(cfg *Config) error {
	if cfg.App.Port == 0 {
		return errors.New("app.port missing or invalid")
	}

	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri missing")
	}
	if cfg.Mongo.DB == "" {
		return errors.New("mongo.db missing")
	}

	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr missing")
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers missing")
	}
	if cfg.Kafka.Topic == "" {
		return errors.New("kafka.topic missing")
	}

	if cfg.NATS.URL == "" {
		return errors.New("nats.url missing")
	}

	switch strings.ToUpper(cfg.JWT.Alg) {
	case "RS256":
		if cfg.JWT.PublicKeyPath == "" {
			return errors.New("jwt.public_key_path required for RS256")
		}
	case "HS256":
		if cfg.JWT.HSSecret == "" {
			return errors.New("jwt.hs_secret required for HS256")
		}
	default:
		return errors.New("invalid jwt.alg (use RS256 or HS256)")
	}

	return nil
}
