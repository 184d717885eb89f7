//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package a2aagent

import (
	"trpc.group/trpc-go/trpc-eval-go/a2a"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

// Option configures the A2AAgent.
type Option func(*A2AAgent)

// WithName sets the name of the agent. Defaults to the agent card name.
func WithName(name string) Option {
	return func(a *A2AAgent) {
		a.name = name
	}
}

// WithDescription sets the agent description. Defaults to the card description.
func WithDescription(description string) Option {
	return func(a *A2AAgent) {
		a.description = description
	}
}

// WithConfig sets the protocol client configuration.
func WithConfig(config a2a.Config) Option {
	return func(a *A2AAgent) {
		a.config = config
	}
}

// WithClient sets a pre-built protocol client. The client's configuration
// and recorder replace the agent's own.
func WithClient(client *a2a.Client) Option {
	return func(a *A2AAgent) {
		a.client = client
	}
}

// WithTools sets the domain tool declarations rendered into each outgoing
// message.
func WithTools(tools []tool.Declaration) Option {
	return func(a *A2AAgent) {
		a.tools = tools
	}
}

// WithDomainPolicy sets the domain policy text appended to the system
// prelude.
func WithDomainPolicy(policy string) Option {
	return func(a *A2AAgent) {
		a.domainPolicy = policy
	}
}
