package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Billing  BillingConfig  `yaml:"billing"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	JWT      JWTConfig      `yaml:"jwt"`
}

func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/billing.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.Billing.applyDefaults()

	return &cfg, nil
}

// applyEnvOverrides lets secrets come from the environment instead of the
// config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		c.Service.StripeSecretKey = v
	}
	if v := os.Getenv("MIDTRANS_SERVER_KEY"); v != "" {
		c.Service.MidtransServerKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Service.WebhookSecret = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("TOKEN_ENCRYPTION_KEY"); v != "" {
		c.Service.TokenEncryptionKey = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
}
