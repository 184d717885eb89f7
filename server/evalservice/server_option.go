//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evalservice

import (
	a2asrv "trpc.group/trpc-go/trpc-a2a-go/server"

	"trpc.group/trpc-go/trpc-eval-go/evaluation"
	"trpc.group/trpc-go/trpc-eval-go/session"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

const (
	defaultServiceName        = "eval_service"
	defaultServiceDescription = "Agent evaluation service across airline, retail, telecom and mock domains"
	defaultHost               = "localhost:8080"
)

type options struct {
	name              string
	description       string
	host              string
	agentCard         *a2asrv.AgentCard
	sessionService    session.Service
	store             *evaluation.ResultStore
	tools             []tool.CallableTool
	llmModel          string
	llmAPIKey         string
	llmBaseURL        string
	maxToolIterations int
	extraOptions      []a2asrv.Option
}

// Option is a function that configures the evaluation service.
type Option func(*options)

// WithName sets the service name advertised in the agent card.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDescription sets the service description advertised in the agent card.
func WithDescription(description string) Option {
	return func(o *options) {
		o.description = description
	}
}

// WithHost sets the listen host advertised in the agent card URL.
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithAgentCard replaces the generated agent card entirely.
func WithAgentCard(card a2asrv.AgentCard) Option {
	return func(o *options) {
		o.agentCard = &card
	}
}

// WithSessionService sets the controller session store. Defaults to the
// in-memory implementation.
func WithSessionService(service session.Service) Option {
	return func(o *options) {
		o.sessionService = service
	}
}

// WithResultStore sets the store that retains completed evaluation results
// for get_evaluation_results.
func WithResultStore(store *evaluation.ResultStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTools replaces the default tool surface.
func WithTools(tools []tool.CallableTool) Option {
	return func(o *options) {
		o.tools = tools
	}
}

// WithLLM configures the controller model: model identifier, API key and an
// optional OpenAI-compatible base URL.
func WithLLM(model, apiKey, baseURL string) Option {
	return func(o *options) {
		o.llmModel = model
		o.llmAPIKey = apiKey
		o.llmBaseURL = baseURL
	}
}

// WithMaxToolIterations bounds the controller's tool-call loop per request.
func WithMaxToolIterations(n int) Option {
	return func(o *options) {
		o.maxToolIterations = n
	}
}

// WithExtraA2AOptions forwards options to the underlying A2A server.
func WithExtraA2AOptions(opts ...a2asrv.Option) Option {
	return func(o *options) {
		o.extraOptions = append(o.extraOptions, opts...)
	}
}
