// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apppayment "github.com/Zhima-Mochi/medishop/internal/application/payment"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
)

const ServiceVersion = "0.1.0"

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string
	LogLevel    string
	// LogFile mirrors stdout logs into a file when set.
	LogFile string

	GatewayID          string
	PaymentMethods     []payment.Method
	PaymentSuccessRate float64
	PaymentTimeout     time.Duration

	// PrescriptionValidity overrides the calendar six-month expiry when positive.
	PrescriptionValidity time.Duration
	OrderLeadTime        time.Duration

	// OTLPEndpoint enables span export over OTLP/gRPC when set.
	OTLPEndpoint string

	// KafkaBrokers enables the Kafka notification sender when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	SeedCatalog bool
}

// Load reads every variable, falling back to defaults for unset ones. All parse errors are
// reported together.
func Load() (*Config, error) {
	var errs []error
	cfg := &Config{
		ServiceName:          getEnvOrDefault("SERVICE_NAME", "medishop"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		HTTPAddr:             getEnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:              os.Getenv("LOG_FILE"),
		GatewayID:            getEnvOrDefault("GATEWAY_ID", "GW-001"),
		PaymentMethods:       parseMethods(getEnvOrDefault("PAYMENT_METHODS", "CreditCard,DebitCard,NetBanking")),
		PaymentSuccessRate:   parseFloat("PAYMENT_SUCCESS_RATE", apppayment.DefaultSuccessRate, &errs),
		PaymentTimeout:       parseDuration("PAYMENT_TIMEOUT", 2*time.Second, &errs),
		PrescriptionValidity: parseDuration("PRESCRIPTION_VALIDITY", 0, &errs),
		OrderLeadTime:        parseDuration("ORDER_LEAD_TIME", 72*time.Hour, &errs),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		KafkaBrokers:         splitList(os.Getenv("NOTIFY_KAFKA_BROKERS")),
		KafkaTopic:           getEnvOrDefault("NOTIFY_KAFKA_TOPIC", "notifications"),
		SeedCatalog:          parseBool("SEED_CATALOG", true, &errs),
	}

	if cfg.PaymentSuccessRate < 0 || cfg.PaymentSuccessRate > 1 {
		errs = append(errs, fmt.Errorf("PAYMENT_SUCCESS_RATE must be within [0,1], got %v", cfg.PaymentSuccessRate))
	}
	if len(cfg.PaymentMethods) == 0 {
		errs = append(errs, errors.New("PAYMENT_METHODS cannot be empty"))
	}
	for _, key := range []struct {
		name string
		d    time.Duration
	}{
		{"PAYMENT_TIMEOUT", cfg.PaymentTimeout},
		{"ORDER_LEAD_TIME", cfg.OrderLeadTime},
	} {
		if key.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key.name, key.d))
		}
	}
	if cfg.PrescriptionValidity < 0 {
		errs = append(errs, fmt.Errorf("PRESCRIPTION_VALIDITY cannot be negative, got %s", cfg.PrescriptionValidity))
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		errs = append(errs, errors.New("NOTIFY_KAFKA_TOPIC cannot be empty when brokers are set"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func parseFloat(key string, def float64, errs *[]error) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func parseBool(key string, def bool, errs *[]error) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseMethods(raw string) []payment.Method {
	parts := splitList(raw)
	out := make([]payment.Method, 0, len(parts))
	for _, p := range parts {
		out = append(out, payment.Method(p))
	}
	return out
}
