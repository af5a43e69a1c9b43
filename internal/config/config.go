// Package config loads service settings from the environment with an
// optional YAML overlay for pricing and commission parameters.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/o4o-platform/order-service/internal/domain"
	"github.com/o4o-platform/order-service/shared/messaging"
)

const ServiceName = "order-service"

type Config struct {
	Port            string
	StoreDriver     string // postgres or memory
	Database        DatabaseConfig
	RabbitMQ        *messaging.RabbitMQConfig
	RabbitMQEnabled bool
	Redis           RedisConfig
	Log             LogConfig
	Pricing         domain.PricingPolicy
	Commission      CommissionConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	CacheTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type CommissionConfig struct {
	Platform           domain.CommissionPolicy
	PartnerDefaultRate decimal.Decimal
}

// overlay mirrors the YAML file. Amounts are strings so they parse exactly.
type overlay struct {
	Pricing struct {
		FreeShippingThreshold string `yaml:"free_shipping_threshold"`
		ShippingFee           string `yaml:"shipping_fee"`
		TaxRate               string `yaml:"tax_rate"`
	} `yaml:"pricing"`
	Commission struct {
		PlatformType       string `yaml:"platform_type"`
		PlatformRate       string `yaml:"platform_rate"`
		PartnerDefaultRate string `yaml:"partner_default_rate"`
	} `yaml:"commission"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func Load() (*Config, error) {
	cacheTTL, err := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8001"),
		StoreDriver: getEnvOrDefault("STORE_DRIVER", "postgres"),
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			Name:     getEnvOrDefault("DB_NAME", "order_db"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		RabbitMQ:        messaging.NewRabbitMQConfig(ServiceName),
		RabbitMQEnabled: getBoolOrDefault("RABBITMQ_ENABLED", true),
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			CacheTTL: cacheTTL,
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Pricing: domain.DefaultPricingPolicy(),
		Commission: CommissionConfig{
			Platform: domain.CommissionPolicy{
				Source: domain.CommissionSourcePlatform,
				Type:   domain.CommissionTypeRate,
				Value:  decimal.NewFromInt(10),
			},
			PartnerDefaultRate: decimal.NewFromInt(5),
		},
	}

	switch cfg.StoreDriver {
	case "postgres", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file read error: %w", err)
	}

	var o overlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return fmt.Errorf("config file parse error: %w", err)
	}

	return c.apply(o)
}

func (c *Config) apply(o overlay) error {
	fields := []struct {
		name  string
		value string
		dest  *decimal.Decimal
	}{
		{"pricing.free_shipping_threshold", o.Pricing.FreeShippingThreshold, &c.Pricing.FreeShippingThreshold},
		{"pricing.shipping_fee", o.Pricing.ShippingFee, &c.Pricing.ShippingFee},
		{"pricing.tax_rate", o.Pricing.TaxRate, &c.Pricing.TaxRate},
		{"commission.platform_rate", o.Commission.PlatformRate, &c.Commission.Platform.Value},
		{"commission.partner_default_rate", o.Commission.PartnerDefaultRate, &c.Commission.PartnerDefaultRate},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		d, err := decimal.NewFromString(f.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", f.name, f.value, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("invalid %s %q: must not be negative", f.name, f.value)
		}
		*f.dest = d
	}

	if o.Commission.PlatformType != "" {
		t := domain.CommissionType(o.Commission.PlatformType)
		if !t.Valid() {
			return fmt.Errorf("invalid commission.platform_type %q", o.Commission.PlatformType)
		}
		c.Commission.Platform.Type = t
	}
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
	if o.Log.Format != "" {
		c.Log.Format = o.Log.Format
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}
