//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package a2a provides internal utilities for A2A (Agent-to-Agent) protocol.
package a2a

import (
	"net/url"
	"strings"
)

// NormalizeURL ensures the URL has a scheme and no trailing slash.
// If the input already has a scheme (e.g., http://, https://), it is kept;
// otherwise "http://" is prepended.
//
// Examples:
//   - "localhost:8080" → "http://localhost:8080"
//   - "http://example.com/" → "http://example.com"
func NormalizeURL(urlOrHost string) string {
	if urlOrHost == "" {
		return ""
	}
	urlOrHost = strings.TrimRight(urlOrHost, "/")
	u, err := url.Parse(urlOrHost)
	if err == nil && u.Scheme != "" && u.Host != "" {
		return urlOrHost
	}
	return "http://" + urlOrHost
}

// IsAbsoluteHTTP reports whether s parses as an absolute http or https URL.
func IsAbsoluteHTTP(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
