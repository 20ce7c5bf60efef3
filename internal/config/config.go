package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	BitgetAPIKey     string
	BitgetSecret     string
	BitgetPassphrase string
	BitgetBaseURL    string

	ExchangeTimeoutSecs int
	ExchangeMaxRetries  int

	DatabaseURL string
	RedisURL    string

	TelegramBotToken string
	TelegramChatID   int64

	HTTPPort         int
	CORSAllowOrigins []string

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
	MCPMaxBodyBytes       int64
}

// Load reads configuration from the environment. Exchange credentials are
// kept in the struct only; they are never logged.
func Load() *Config {
	cfg := &Config{
		BitgetAPIKey:     os.Getenv("BITGET_API_KEY"),
		BitgetSecret:     os.Getenv("BITGET_SECRET_KEY"),
		BitgetPassphrase: os.Getenv("BITGET_PASSPHRASE"),
		BitgetBaseURL:    strings.TrimSpace(os.Getenv("BITGET_BASE_URL")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	if cfg.BitgetAPIKey == "" || cfg.BitgetSecret == "" || cfg.BitgetPassphrase == "" {
		log.Println("Warning: BITGET_API_KEY/BITGET_SECRET_KEY/BITGET_PASSPHRASE not fully set; signed requests will be rejected")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, order journal disabled")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, market cache disabled")
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, trade notifications disabled")
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		}
	}

	cfg.ExchangeTimeoutSecs = 10
	if v := strings.TrimSpace(os.Getenv("EXCHANGE_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExchangeTimeoutSecs = n
		}
	}

	cfg.ExchangeMaxRetries = 3
	if v := strings.TrimSpace(os.Getenv("EXCHANGE_MAX_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ExchangeMaxRetries = n
		}
	}

	cfg.HTTPPort = 8080
	if v := strings.TrimSpace(os.Getenv("HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	cfg.CORSAllowOrigins = parseOrigins(os.Getenv("CORS_ALLOW_ORIGINS"))

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = 8090
	if v := strings.TrimSpace(os.Getenv("MCP_HTTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPHTTPPort = n
		}
	}

	cfg.MCPRequestTimeoutSecs = 15
	if v := strings.TrimSpace(os.Getenv("MCP_REQUEST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRequestTimeoutSecs = n
		}
	}

	cfg.MCPRateLimitPerMin = 60
	if v := strings.TrimSpace(os.Getenv("MCP_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MCPRateLimitPerMin = n
		}
	}

	cfg.MCPMaxBodyBytes = 1 << 20
	if v := strings.TrimSpace(os.Getenv("MCP_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MCPMaxBodyBytes = n
		}
	}

	return cfg
}

func parseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"http://localhost:3000"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		out = append(out, origin)
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
