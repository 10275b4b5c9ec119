package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string `koanf:"env"`
	HTTP HTTP   `koanf:"http"`
	Log  Log    `koanf:"log"`

	Store Store `koanf:"store"`
	Mongo Mongo `koanf:"mongo"`
	Redis Redis `koanf:"redis"`

	JWTSecret string  `koanf:"jwtSecret"`
	Orders    Orders  `koanf:"orders"`
	Payment   Payment `koanf:"payment"`
}

type HTTP struct {
	Port           string        `koanf:"port"`
	CORSOrigin     string        `koanf:"corsOrigin"`
	RequestTimeout time.Duration `koanf:"requestTimeout"`
	ReadTimeout    time.Duration `koanf:"readTimeout"`
	WriteTimeout   time.Duration `koanf:"writeTimeout"`
	IdleTimeout    time.Duration `koanf:"idleTimeout"`
}

type Log struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type Store struct {
	Driver string `koanf:"driver"`
}

type Mongo struct {
	URI    string `koanf:"uri"`
	DBName string `koanf:"dbName"`
}

type Redis struct {
	URL string        `koanf:"url"`
	TTL time.Duration `koanf:"ttl"`
}

type Orders struct {
	ShippingPrice float64 `koanf:"shippingPrice"`
	AdminPageSize int64   `koanf:"adminPageSize"`
}

type Payment struct {
	WebhookSecret   string `koanf:"webhookSecret"`
	StripeSecretKey string `koanf:"stripeSecretKey"`
	Currency        string `koanf:"currency"`
}

// IsDevelopment reports whether error details may be exposed to callers.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

func defaults() *Config {
	return &Config{
		Env: EnvProduction,
		HTTP: HTTP{
			Port:           "8080",
			CORSOrigin:     "http://localhost:5173",
			RequestTimeout: 5 * time.Second,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
		},
		Log:   Log{Level: "info"},
		Store: Store{Driver: DriverMongo},
		Mongo: Mongo{
			URI:    "mongodb://127.0.0.1:27017",
			DBName: "grocery",
		},
		Redis: Redis{TTL: time.Minute},
		Orders: Orders{
			ShippingPrice: 50,
			AdminPageSize: 50,
		},
		Payment: Payment{Currency: "inr"},
	}
}

// Load reads .env, an optional YAML file named by CONFIG_FILE (default
// config.yaml) and finally the process environment, later sources winning.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	k := koanf.New(".")

	path := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: transformEnv}), nil); err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	cfg := defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if strings.TrimSpace(c.Mongo.URI) == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Orders.ShippingPrice < 0 {
		return fmt.Errorf("SHIPPING_PRICE must be zero or greater")
	}
	if c.Orders.AdminPageSize < 1 {
		c.Orders.AdminPageSize = 50
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
