// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config defines the global configuration structure
type Config struct {
	UnitID      int               `mapstructure:"unit_id"` // The slave address this device answers to
	Listeners   []ListenerConfig  `mapstructure:"listeners"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Log         LogConfig         `mapstructure:"log"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// ListenerConfig defines one transport the device accepts requests on
type ListenerConfig struct {
	Type   string       `mapstructure:"type"`   // "tcp", "serial"
	Tcp    TcpConfig    `mapstructure:"tcp"`    // Used if Type is "tcp"
	Serial SerialConfig `mapstructure:"serial"` // Used if Type is "serial"
}

// PersistenceConfig defines data storage settings
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "json", "mmap", "sql"
	Path string `mapstructure:"path"` // File path (or DSN for "sql" type)
}

// DashboardConfig defines the read-only monitoring HTTP server
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"` // e.g. "0.0.0.0:8502"
}

// TcpConfig defines TCP settings
type TcpConfig struct {
	Address string `mapstructure:"address"` // e.g. "0.0.0.0:502"
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from file
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-slave/")
		v.AddConfigPath("$HOME/.modbus-slave")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("unit_id", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("persistence.type", "memory")
	v.SetDefault("dashboard.address", "0.0.0.0:8502")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file on the search path: proceed with defaults
		// only. The defaults carry no listeners, so startup will
		// refuse to run until a file configures at least one.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate / Fixups
	if config.UnitID < 0 || config.UnitID > 255 {
		return nil, fmt.Errorf("unit_id %d out of range [0, 255]", config.UnitID)
	}

	for i := range config.Listeners {
		fixupSerial(&config.Listeners[i].Serial)
	}

	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.BaudRate == 0 {
		s.BaudRate = 19200
	}
	if s.DataBits == 0 {
		s.DataBits = 8
	}
	if s.Parity == "" {
		s.Parity = "N"
	}
	if s.StopBits == 0 {
		s.StopBits = 1
	}
	if s.Timeout == 0 {
		s.Timeout = 500 * time.Millisecond
	}
}
