package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type clientConfig struct {
	ServerURL          string
	Domain             string
	Nick               string
	ConnectTimeout     time.Duration
	EstablishTimeout   time.Duration
	MaxConnectAttempts int
	QueueDepth         int
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		ServerURL:          "ws://127.0.0.1:8765/ws",
		Domain:             "rooms",
		Nick:               "anonymous",
		ConnectTimeout:     5 * time.Second,
		EstablishTimeout:   10 * time.Second,
		MaxConnectAttempts: 5,
		QueueDepth:         256,
	}
}

type fileConfig struct {
	ServerURL          string `toml:"server_url"`
	Domain             string `toml:"domain"`
	Nick               string `toml:"nick"`
	ConnectTimeout     string `toml:"connect_timeout"`
	EstablishTimeout   string `toml:"establish_timeout"`
	MaxConnectAttempts int    `toml:"max_connect_attempts"`
	QueueDepth         int    `toml:"queue_depth"`
}

func loadClientConfig(path string) (clientConfig, error) {
	cfg := defaultClientConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load client config: %w", err)
	}

	if meta.IsDefined("server_url") {
		if v := strings.TrimSpace(raw.ServerURL); v != "" {
			cfg.ServerURL = v
		}
	}

	if meta.IsDefined("domain") {
		if v := strings.TrimSpace(raw.Domain); v != "" {
			cfg.Domain = v
		}
	}

	if meta.IsDefined("nick") {
		if v := strings.TrimSpace(raw.Nick); v != "" {
			cfg.Nick = v
		}
	}

	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}

	if meta.IsDefined("establish_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.EstablishTimeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("parse establish_timeout: %w", err)
		}
		cfg.EstablishTimeout = d
	}

	if meta.IsDefined("max_connect_attempts") {
		if raw.MaxConnectAttempts > 0 {
			cfg.MaxConnectAttempts = raw.MaxConnectAttempts
		}
	}

	if meta.IsDefined("queue_depth") {
		if raw.QueueDepth > 0 {
			cfg.QueueDepth = raw.QueueDepth
		}
	}

	return cfg, nil
}
