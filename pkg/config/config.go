package config

import (
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration. Command-line flags override the defaults.
type Config struct {
	// LogLevel defaults to panic so log lines never interleave with the prompt.
	LogLevel               logrus.Level  `json:"log_level"`
	BLELib                 string        `json:"ble_lib" default:"go-ble"`
	ScanTimeout            time.Duration `json:"scan_timeout" default:"5s"`
	AutoconnectScanTimeout time.Duration `json:"autoconnect_scan_timeout" default:"3s"`
	ConnectTimeout         time.Duration `json:"connect_timeout" default:"30s"`
	HistoryFile            string        `json:"history_file" default:".history.txt"`
	Prompt                 string        `json:"prompt" default:">> "`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
