// Package config centralises configuration parsing for the orgIO API.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration values for the API process.
type Config struct {
	HTTPAddress        string
	PostgresURL        string // Empty selects the in-memory store.
	PostgresMigrate    bool
	JWTSecret          string
	JWTIssuer          string
	LLMBaseURL         string
	LLMAPIKey          string // Empty disables the language model; fallbacks answer instead.
	LLMSummaryModel    string
	LLMMatchingModel   string
	LLMAnalysisModel   string
	LLMTimeout         time.Duration
	KafkaBrokers       []string // Empty keeps fan-out in-process.
	RelayTopic         string
	RelayGroupID       string
	RelayMaxAge        time.Duration
	NotifyTimeout      time.Duration
	CORSAllowedOrigins []string
	WSSendBuffer       int
	WSWriteTimeout     time.Duration
}

// fileConfig mirrors the optional YAML overlay referenced by ORGIO_CONFIG_FILE.
type fileConfig struct {
	HTTPAddress string `yaml:"http_address"`
	PostgresURL string `yaml:"postgres_url"`
	JWT         struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`
	LLM struct {
		BaseURL       string `yaml:"base_url"`
		APIKey        string `yaml:"api_key"`
		SummaryModel  string `yaml:"summary_model"`
		MatchingModel string `yaml:"matching_model"`
		AnalysisModel string `yaml:"analysis_model"`
		Timeout       string `yaml:"timeout"`
	} `yaml:"llm"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"relay_topic"`
		GroupID string   `yaml:"relay_group_id"`
		MaxAge  string   `yaml:"relay_max_age"`
	} `yaml:"kafka"`
	NotifyTimeout      string   `yaml:"notify_timeout"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	WebSocket          struct {
		SendBuffer   int    `yaml:"send_buffer"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"websocket"`
}

// Load reads environment variables into Config, applying defaults for local dev.
// When ORGIO_CONFIG_FILE names a YAML file its values replace the built-in
// defaults; environment variables still win over both.
func Load() (Config, error) {
	cfg := defaults()
	if path := getEnv("ORGIO_CONFIG_FILE", ""); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.PostgresURL = getEnv("POSTGRES_URL", cfg.PostgresURL)
	cfg.PostgresMigrate = getBoolEnv("POSTGRES_MIGRATE", cfg.PostgresMigrate)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.LLMBaseURL)
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.LLMAPIKey)
	cfg.LLMSummaryModel = getEnv("LLM_SUMMARY_MODEL", cfg.LLMSummaryModel)
	cfg.LLMMatchingModel = getEnv("LLM_MATCHING_MODEL", cfg.LLMMatchingModel)
	cfg.LLMAnalysisModel = getEnv("LLM_ANALYSIS_MODEL", cfg.LLMAnalysisModel)
	cfg.LLMTimeout = getDurationEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	cfg.RelayTopic = getEnv("RELAY_TOPIC", cfg.RelayTopic)
	cfg.RelayGroupID = getEnv("RELAY_GROUP_ID", cfg.RelayGroupID)
	cfg.RelayMaxAge = getDurationEnv("RELAY_MAX_AGE", cfg.RelayMaxAge)
	cfg.NotifyTimeout = getDurationEnv("NOTIFY_TIMEOUT", cfg.NotifyTimeout)
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.CORSAllowedOrigins = splitAndTrim(origins)
	}
	cfg.WSSendBuffer = getIntEnv("WS_SEND_BUFFER", cfg.WSSendBuffer)
	cfg.WSWriteTimeout = getDurationEnv("WS_WRITE_TIMEOUT", cfg.WSWriteTimeout)
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTPAddress:        ":8000",
		PostgresMigrate:    true,
		JWTSecret:          "dev-secret-change-me",
		JWTIssuer:          "orgio.identity",
		LLMBaseURL:         "https://api.openai.com/v1",
		LLMSummaryModel:    "gpt-4o-mini",
		LLMMatchingModel:   "gpt-4o-mini",
		LLMAnalysisModel:   "gpt-4o",
		LLMTimeout:         30 * time.Second,
		RelayTopic:         "orgio.realtime",
		RelayMaxAge:        30 * time.Second,
		NotifyTimeout:      2 * time.Second,
		CORSAllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		WSSendBuffer:       32,
		WSWriteTimeout:     10 * time.Second,
	}
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.HTTPAddress, fc.HTTPAddress)
	setString(&cfg.PostgresURL, fc.PostgresURL)
	setString(&cfg.JWTSecret, fc.JWT.Secret)
	setString(&cfg.JWTIssuer, fc.JWT.Issuer)
	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	setString(&cfg.LLMSummaryModel, fc.LLM.SummaryModel)
	setString(&cfg.LLMMatchingModel, fc.LLM.MatchingModel)
	setString(&cfg.LLMAnalysisModel, fc.LLM.AnalysisModel)
	setString(&cfg.RelayTopic, fc.Kafka.Topic)
	setString(&cfg.RelayGroupID, fc.Kafka.GroupID)
	if len(fc.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = fc.Kafka.Brokers
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		cfg.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	if fc.WebSocket.SendBuffer > 0 {
		cfg.WSSendBuffer = fc.WebSocket.SendBuffer
	}

	durations := []struct {
		raw    string
		target *time.Duration
		key    string
	}{
		{fc.LLM.Timeout, &cfg.LLMTimeout, "llm.timeout"},
		{fc.Kafka.MaxAge, &cfg.RelayMaxAge, "kafka.relay_max_age"},
		{fc.NotifyTimeout, &cfg.NotifyTimeout, "notify_timeout"},
		{fc.WebSocket.WriteTimeout, &cfg.WSWriteTimeout, "websocket.write_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: invalid %s: %w", path, d.key, err)
		}
		*d.target = parsed
	}
	return nil
}

func setString(target *string, value string) {
	if strings.TrimSpace(value) != "" {
		*target = value
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
