package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port              int
	LogLevel          string
	OpenAIBaseURL     string
	OpenAIAPIKey      string
	LLMModel          string
	RetellAPIKey      string
	RetellBaseURL     string
	SkipVerification  bool
	CallDataDir       string
	TavusWebhookDir   string
	ExcalidrawBaseURL string
	NatsURL           string
	NatsToken         string
	DatabaseURL       string
}

func Load() Config {
	return Config{
		Port:              envInt("CRUCIBLE_PORT", 8080),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		OpenAIBaseURL:     envStr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:      envStr("OPENAI_API_KEY", ""),
		LLMModel:          envStr("LLM_MODEL", "gpt-4o"),
		RetellAPIKey:      envStr("RETELL_API_KEY", ""),
		RetellBaseURL:     envStr("RETELL_BASE_URL", "https://api.retellai.com"),
		SkipVerification:  envBool("SKIP_SIGNATURE_VERIFICATION", false),
		CallDataDir:       envStr("CALL_DATA_DIR", "call_data"),
		TavusWebhookDir:   envStr("TAVUS_WEBHOOK_DIR", "tavus_webhooks"),
		ExcalidrawBaseURL: envStr("EXCALIDRAW_BASE_URL", "http://localhost:3010"),
		NatsURL:           envStr("NATS_URL", ""),
		NatsToken:         envStr("NATS_TOKEN", ""),
		DatabaseURL:       envStr("DATABASE_URL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
