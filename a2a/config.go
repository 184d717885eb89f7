//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package a2a implements the client side of the A2A protocol: wire types,
// agent discovery, message exchange, translation between the harness message
// model and the wire format, and per-request protocol metrics.
package a2a

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout is the total per-request deadline applied when no explicit
// timeout is configured.
const DefaultTimeout = 300 * time.Second

// Config is the immutable connection configuration for one remote agent.
// It is shared read-only by every task that talks to the same endpoint.
type Config struct {
	// Endpoint is the remote agent base URL, normalized without a trailing slash.
	Endpoint string
	// AuthToken, when set, is sent as a bearer Authorization header.
	// It must never appear in logs, errors or metrics.
	AuthToken string
	// Timeout is the total read deadline for each protocol call.
	Timeout time.Duration
	// VerifySSL controls TLS certificate verification.
	VerifySSL bool
}

// ConfigOption configures optional Config fields.
type ConfigOption func(*Config)

// WithAuthToken sets the bearer token used for authentication.
func WithAuthToken(token string) ConfigOption {
	return func(c *Config) {
		c.AuthToken = token
	}
}

// WithTimeout sets the total per-request deadline.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithVerifySSL controls TLS certificate verification.
func WithVerifySSL(verify bool) ConfigOption {
	return func(c *Config) {
		c.VerifySSL = verify
	}
}

// NewConfig validates and normalizes a client configuration.
// The endpoint must be an absolute http or https URL; a trailing slash is
// stripped. The timeout defaults to DefaultTimeout and must be positive.
func NewConfig(endpoint string, opts ...ConfigOption) (Config, error) {
	config := Config{
		Endpoint:  strings.TrimRight(endpoint, "/"),
		Timeout:   DefaultTimeout,
		VerifySSL: true,
	}
	for _, opt := range opts {
		opt(&config)
	}

	if !strings.HasPrefix(config.Endpoint, "http://") && !strings.HasPrefix(config.Endpoint, "https://") {
		return Config{}, fmt.Errorf("endpoint must start with http:// or https://, got %s", config.Endpoint)
	}
	if config.Timeout <= 0 {
		return Config{}, fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}
	return config, nil
}
