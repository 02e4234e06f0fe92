package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the full service configuration, loaded once at startup
type Config struct {
	Port       string
	DataDir    string
	CORSOrigin string

	// Node registration
	RegisterSecret string // Optional shared secret gating registration
	JWTSecret      string // Signs node bearer tokens

	// Payment gate (toy x402)
	PaymentsEnabled      bool
	PaymentCurrency      string
	PaymentChain         string
	PaymentDescription   string
	PaymentURL           string
	PaymentDemoToken     string
	PaymentSigningSecret string
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", ":8787"),
		DataDir:    getEnv("DATA_DIR", "./data"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		RegisterSecret: os.Getenv("REGISTER_SECRET"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),

		PaymentsEnabled:      getEnvBool("PAYMENTS_ENABLED", false),
		PaymentCurrency:      getEnv("PAYMENT_CURRENCY", "USDC"),
		PaymentChain:         getEnv("PAYMENT_CHAIN", "base-sepolia"),
		PaymentDescription:   getEnv("PAYMENT_DESCRIPTION", "Access to world coverage data"),
		PaymentURL:           getEnv("PAYMENT_URL", "https://example.com/pay"),
		PaymentDemoToken:     getEnv("PAYMENT_DEMO_TOKEN", "demo-payment-token"),
		PaymentSigningSecret: os.Getenv("PAYMENT_SIGNING_SECRET"),
	}
}

// NodesPath is the node registry document inside the data directory
func (c *Config) NodesPath() string {
	return filepath.Join(c.DataDir, "nodes.json")
}

// EventLogPath is the append-only event log inside the data directory
func (c *Config) EventLogPath() string {
	return filepath.Join(c.DataDir, "events.jsonl")
}

// BlobsDir is the JPEG blobs directory inside the data directory
func (c *Config) BlobsDir() string {
	return filepath.Join(c.DataDir, "blobs")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
