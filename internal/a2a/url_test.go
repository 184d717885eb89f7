//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package a2a

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"localhost:8080", "http://localhost:8080"},
		{"http://example.com", "http://example.com"},
		{"http://example.com/", "http://example.com"},
		{"https://example.com/agent/", "https://example.com/agent"},
		{"example.com", "http://example.com"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAbsoluteHTTP(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com", true},
		{"https://example.com:8080/path", true},
		{"ftp://example.com", false},
		{"example.com", false},
		{"", false},
		{"http://", false},
	}
	for _, tt := range tests {
		if got := IsAbsoluteHTTP(tt.in); got != tt.want {
			t.Errorf("IsAbsoluteHTTP(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
