package main

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr              string
	TLSCert           string
	TLSKey            string
	MaxMessageSize    int64
	SendBufferSize    int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	RateLimitPerIP    float64
	MessageRate       float64
	StrictDecode      bool
	LogLevel          string
}

func LoadConfig() *Config {
	return &Config{
		Addr:              envStr("SIGNAL_ADDR", ":5000"),
		TLSCert:           envStr("SIGNAL_TLS_CERT", ""),
		TLSKey:            envStr("SIGNAL_TLS_KEY", ""),
		MaxMessageSize:    int64(envInt("SIGNAL_MAX_MESSAGE_SIZE", 1<<20)),
		SendBufferSize:    envInt("SIGNAL_SEND_BUFFER", 256),
		HeartbeatInterval: envDuration("SIGNAL_HEARTBEAT_INTERVAL", 30*time.Second),
		HeartbeatTimeout:  envDuration("SIGNAL_HEARTBEAT_TIMEOUT", 60*time.Second),
		RateLimitPerIP:    float64(envInt("SIGNAL_RATE_LIMIT_PER_IP", 20)),
		MessageRate:       float64(envInt("SIGNAL_MESSAGE_RATE", 50)),
		StrictDecode:      envBool("SIGNAL_STRICT_DECODE", false),
		LogLevel:          envStr("LOG_LEVEL", "info"),
	}
}

// Validate reports the first setting that would make the hub misbehave.
func (c *Config) Validate() error {
	switch {
	case c.MaxMessageSize <= 0:
		return errors.New("max message size must be positive")
	case c.SendBufferSize <= 0:
		return errors.New("send buffer size must be positive")
	case c.HeartbeatInterval <= 0:
		return errors.New("heartbeat interval must be positive")
	case c.HeartbeatTimeout <= c.HeartbeatInterval:
		return errors.New("heartbeat timeout must exceed the heartbeat interval")
	case c.RateLimitPerIP <= 0 || c.MessageRate <= 0:
		return errors.New("rate limits must be positive")
	}
	return nil
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

// envDuration accepts Go duration strings ("45s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
