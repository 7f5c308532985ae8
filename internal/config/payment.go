package config

import (
	"strings"
	"time"
)

// PaymentConfig holds the gateway endpoints used by the payment
// strategies.
type PaymentConfig struct {
	GatewayURL    string        // PAYMENT_GATEWAY_URL, card charges
	PayPalURL     string        // PAYMENT_PAYPAL_URL, defaults to GatewayURL
	Currency      string        // PAYMENT_CURRENCY
	Timeout       time.Duration // PAYMENT_TIMEOUT
	StrictMethods bool          // PAYMENT_STRICT_METHODS
}

// LoadPaymentConfig reads PAYMENT_* variables.
func LoadPaymentConfig() PaymentConfig {
	cfg := PaymentConfig{
		GatewayURL:    envStr("PAYMENT_GATEWAY_URL", "http://localhost:4000/payments"),
		PayPalURL:     envStr("PAYMENT_PAYPAL_URL", ""),
		Currency:      strings.ToUpper(envStr("PAYMENT_CURRENCY", "USD")),
		Timeout:       envDur("PAYMENT_TIMEOUT", 10*time.Second),
		StrictMethods: envBool("PAYMENT_STRICT_METHODS", true),
	}
	if cfg.PayPalURL == "" {
		cfg.PayPalURL = cfg.GatewayURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
