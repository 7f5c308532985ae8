package config

import (
	"os"
	"time"
)

// QueueConfig controls RabbitMQ event publishing and the audit-log
// consumer.
type QueueConfig struct {
	URL             string        // RABBITMQ_URL, falling back to AMQP_URL
	Enabled         bool          // QUEUE_ENABLED
	ConsumerEnabled bool          // QUEUE_CONSUMER_ENABLED
	LogDir          string        // QUEUE_LOG_DIR
	DialTimeout     time.Duration // QUEUE_DIAL_TIMEOUT
}

// LoadQueueConfig reads the broker settings.
func LoadQueueConfig() QueueConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return QueueConfig{
		URL:             url,
		Enabled:         envBool("QUEUE_ENABLED", true),
		ConsumerEnabled: envBool("QUEUE_CONSUMER_ENABLED", false),
		LogDir:          envStr("QUEUE_LOG_DIR", "logs"),
		DialTimeout:     envDur("QUEUE_DIAL_TIMEOUT", 2*time.Second),
	}
}
