/*
config.go - Environment-driven runtime configuration

PURPOSE:
  Collects every runtime knob in one place. Values come from environment
  variables with working defaults; a .env file is loaded best-effort for
  local development. Flags in cmd/server override whatever is loaded here.

VARIABLES:
  PORT            HTTP listen port              (default 8080)
  DB_PATH         SQLite database file          (default ./ledgerd.db)
  LOG_LEVEL       trace..panic                  (default info)
  LOG_FORMAT      json or console               (default console)
  CORS_ORIGINS    comma-separated origins       (default localhost dev ports)

POSTING ACCOUNTS:
  The account ids derived invoice entries post to. These reference rows
  in the accounts table and are validated at startup.
*/
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	DBPath string

	LogLevel  string
	LogFormat string

	CORSOrigins []string

	// Invoice-to-GL posting account mapping.
	AccountReceivable string
	AccountPayable    string
	AccountRevenue    string
	AccountExpense    string
	AccountVATInput   string
	AccountVATOutput  string
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "./ledgerd.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),

		AccountReceivable: getEnv("ACCOUNT_RECEIVABLE", "1200"),
		AccountPayable:    getEnv("ACCOUNT_PAYABLE", "2100"),
		AccountRevenue:    getEnv("ACCOUNT_REVENUE", "4000"),
		AccountExpense:    getEnv("ACCOUNT_EXPENSE", "5000"),
		AccountVATInput:   getEnv("ACCOUNT_VAT_INPUT", "1400"),
		AccountVATOutput:  getEnv("ACCOUNT_VAT_OUTPUT", "2200"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
