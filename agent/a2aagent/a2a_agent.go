//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package a2aagent implements the conversational-agent contract on top of a
// remote A2A agent, making it look like a local agent to the orchestrator.
package a2aagent

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/a2a"
	"trpc.group/trpc-go/trpc-eval-go/agent"
	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/message"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

// systemPrelude opens every task's system message; the domain policy text is
// appended below it.
const systemPrelude = "You are a customer service agent. Assist the user according to the policy below. " +
	"Use the available tools when an action or lookup is required."

// A2AAgent drives one remote A2A agent through the harness agent contract.
//
// The orchestrator's call is synchronous; the protocol exchange underneath
// is a blocking HTTP round-trip governed by the call context, so the call
// returns only after the network exchange completes regardless of what
// scheduler the caller runs under.
type A2AAgent struct {
	name         string
	description  string
	config       a2a.Config
	client       *a2a.Client
	tools        []tool.Declaration
	domainPolicy string
	recorder     *a2a.Recorder
}

// New creates an A2AAgent and performs agent discovery, caching the card for
// the lifetime of the adapter.
func New(opts ...Option) (*A2AAgent, error) {
	a := &A2AAgent{recorder: a2a.NewRecorder()}
	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		if a.config.Endpoint == "" {
			return nil, fmt.Errorf("a2aagent: endpoint not configured")
		}
		a.client = a2a.NewClient(a.config, a2a.WithRecorder(a.recorder))
	} else {
		a.config = a.client.Config()
		a.recorder = a.client.Recorder()
	}

	card, err := a.client.DiscoverAgent(context.Background())
	if err != nil {
		return nil, fmt.Errorf("a2aagent: discovery failed: %w", err)
	}
	if a.name == "" {
		a.name = card.Name
	}
	if a.description == "" {
		a.description = card.Description
	}

	log.Infow("initialized a2a agent",
		"endpoint", a.config.Endpoint,
		"agent_name", a.name,
		"num_tools", len(a.tools),
	)
	return a, nil
}

// GetInitialState implements the agent contract. The history starts with a
// single system message composed from the fixed prelude and the domain
// policy, followed by any prior history verbatim.
func (a *A2AAgent) GetInitialState(priorHistory []message.Message) *agent.State {
	system := systemPrelude
	if a.domainPolicy != "" {
		system += "\n\n" + a.domainPolicy
	}
	history := make([]message.Message, 0, 1+len(priorHistory))
	history = append(history, message.NewSystemMessage(system))
	history = append(history, priorHistory...)
	return &agent.State{
		History: history,
		Card:    a.client.AgentCard(),
	}
}

// GenerateNextMessage implements the agent contract: append the input,
// perform one protocol exchange, append the reply, and return the assistant
// message with the updated session.
func (a *A2AAgent) GenerateNextMessage(ctx context.Context, input message.Message, state *agent.State) (message.Message, *agent.State, error) {
	next := state.Clone()
	next.History = append(next.History, input.Expand()...)

	wireMsg := a2a.BuildOutgoingMessage(next.History, a.tools, next.ContextID)
	reply, newContextID, err := a.client.SendMessage(ctx, wireMsg)
	if err != nil {
		return message.Message{}, state, err
	}

	assistant, err := a2a.ParseAssistantMessage(reply)
	if err != nil {
		return message.Message{}, state, err
	}

	switch {
	case next.ContextID == "" && newContextID != "":
		log.Debugw("context established by agent", "context_id", newContextID)
		next.ContextID = newContextID
	case newContextID != "" && newContextID != next.ContextID:
		log.Warnw("context changed unexpectedly",
			"old_context_id", next.ContextID,
			"new_context_id", newContextID,
		)
		next.ContextID = newContextID
	}

	next.History = append(next.History, assistant)
	next.RequestCount++
	return assistant, next, nil
}

// IsStop implements the agent contract. Termination rules belong to the
// orchestrator; the adapter adds none.
func (a *A2AAgent) IsStop(msg message.Message) bool {
	return false
}

// Stop implements the agent contract. The per-call HTTP clients are already
// closed, so there is nothing to release.
func (a *A2AAgent) Stop(ctx context.Context) error {
	return nil
}

// Info implements the agent contract.
func (a *A2AAgent) Info() agent.Info {
	return agent.Info{
		Name:        a.name,
		Description: a.description,
	}
}

// AgentCard returns the card cached at construction.
func (a *A2AAgent) AgentCard() *a2a.AgentCard {
	return a.client.AgentCard()
}

// ProtocolMetrics returns the metric series recorded by the client.
func (a *A2AAgent) ProtocolMetrics() []a2a.RequestMetric {
	return a.recorder.Metrics()
}

// AggregatedMetrics summarizes the recorded metric series.
func (a *A2AAgent) AggregatedMetrics() a2a.AggregatedMetrics {
	return a.recorder.Aggregate()
}

// ExportMetrics renders the metric series for embedding in results.
func (a *A2AAgent) ExportMetrics(taskID string) map[string]any {
	return a.recorder.ExportJSON(taskID)
}
