//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the conversational-agent contract called by the
// evaluation orchestrator, and the per-task session state it owns.
package agent

import (
	"context"

	"trpc.group/trpc-go/trpc-eval-go/a2a"
	"trpc.group/trpc-go/trpc-eval-go/message"
)

// State is the session carried across turns within a single task. It is
// created fresh per task and never shared across tasks; this is the
// isolation boundary between concurrent evaluations.
type State struct {
	// ContextID is the server-issued session identifier, empty until the
	// first agent reply supplies one. It is re-sent on every subsequent
	// outgoing message of the same task.
	ContextID string
	// History is the full ordered message log, including the system prelude.
	History []message.Message
	// Card is the discovered agent card, cached for the task.
	Card *a2a.AgentCard
	// RequestCount is the number of protocol exchanges performed so far.
	RequestCount int
}

// Clone returns a state copy with an independent history slice, so turn
// updates never mutate a state the orchestrator still holds.
func (s *State) Clone() *State {
	if s == nil {
		return &State{}
	}
	history := make([]message.Message, len(s.History))
	copy(history, s.History)
	return &State{
		ContextID:    s.ContextID,
		History:      history,
		Card:         s.Card,
		RequestCount: s.RequestCount,
	}
}

// Info contains basic information about an agent.
type Info struct {
	Name        string
	Description string
}

// Agent is the contract the orchestrator drives, one blocking call per turn.
type Agent interface {
	// GetInitialState builds a fresh task session, seeding the history with
	// the system prelude and any prior history supplied by the caller.
	GetInitialState(priorHistory []message.Message) *State

	// GenerateNextMessage appends the input to the session, performs one
	// exchange with the underlying agent, and returns the assistant reply
	// with the updated session. It returns only after the exchange
	// completes.
	GenerateNextMessage(ctx context.Context, input message.Message, state *State) (message.Message, *State, error)

	// IsStop reports whether the assistant message terminates the task.
	// Termination rules belong to the orchestrator; implementations that
	// add none return false.
	IsStop(msg message.Message) bool

	// Stop releases any client-side resources.
	Stop(ctx context.Context) error

	// Info returns basic information about the agent.
	Info() Info
}
