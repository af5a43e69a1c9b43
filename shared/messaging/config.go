package messaging

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultExchange = "o4o.events"

// RabbitMQConfig locates the broker and shapes how a service uses it. URL,
// when set, wins over the individual connection fields.
type RabbitMQConfig struct {
	URL               string
	Host              string
	Port              int
	Username          string
	Password          string
	VHost             string
	Exchange          string
	Queue             string
	Prefetch          int
	MaxRedeliveries   int64
	RetryCount        int
	RetryDelay        time.Duration
	ConnectionTimeout time.Duration
}

// NewRabbitMQConfig reads RABBITMQ_* variables. The queue defaults to
// "<service>-queue" so each service consumes from its own queue.
func NewRabbitMQConfig(service string) *RabbitMQConfig {
	return &RabbitMQConfig{
		URL:               os.Getenv("RABBITMQ_URL"),
		Host:              getEnvOrDefault("RABBITMQ_HOST", "localhost"),
		Port:              getIntOrDefault("RABBITMQ_PORT", 5672),
		Username:          getEnvOrDefault("RABBITMQ_USERNAME", "guest"),
		Password:          getEnvOrDefault("RABBITMQ_PASSWORD", "guest"),
		VHost:             getEnvOrDefault("RABBITMQ_VHOST", "/"),
		Exchange:          getEnvOrDefault("RABBITMQ_EXCHANGE", defaultExchange),
		Queue:             getEnvOrDefault("RABBITMQ_QUEUE", service+"-queue"),
		Prefetch:          getIntOrDefault("RABBITMQ_PREFETCH", 10),
		MaxRedeliveries:   int64(getIntOrDefault("RABBITMQ_MAX_REDELIVERIES", 3)),
		RetryCount:        getIntOrDefault("RABBITMQ_RETRY_COUNT", 3),
		RetryDelay:        getDurationOrDefault("RABBITMQ_RETRY_DELAY", 5*time.Second),
		ConnectionTimeout: getDurationOrDefault("RABBITMQ_CONNECTION_TIMEOUT", 30*time.Second),
	}
}

// ConnectionURL escapes credentials and the vhost, so "/" becomes %2F only
// when it is part of a named vhost.
func (c *RabbitMQConfig) ConnectionURL() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	vhost := strings.TrimPrefix(c.VHost, "/")
	u.Path = "/" + vhost
	if vhost != "" {
		u.RawPath = "/" + url.PathEscape(vhost)
	}
	return u.String()
}

// RoutingKey builds "saga.<service>.<event>".
func RoutingKey(service, eventType string) string {
	return fmt.Sprintf("saga.%s.%s", service, eventType)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
