//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package a2a

import (
	"fmt"

	ia2a "trpc.group/trpc-go/trpc-eval-go/internal/a2a"
)

// AgentCapabilities describes optional protocol features of a remote agent.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentSkill is informational skill metadata from an agent card.
type AgentSkill struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCard is the agent capability document served at
// /.well-known/agent-card.json. It is fetched once per adapter and cached.
type AgentCard struct {
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Description     string            `json:"description,omitempty"`
	Version         string            `json:"version,omitempty"`
	Capabilities    AgentCapabilities `json:"capabilities"`
	SecuritySchemes map[string]any    `json:"securitySchemes,omitempty"`
	Security        []string          `json:"security,omitempty"`
	Skills          []AgentSkill      `json:"skills,omitempty"`
}

// Validate checks the card invariants: a non-empty name and an absolute URL.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("agent card name is empty")
	}
	if !ia2a.IsAbsoluteHTTP(c.URL) {
		return fmt.Errorf("agent card url %q is not an absolute http(s) URL", c.URL)
	}
	return nil
}
