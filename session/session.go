//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package session provides the conversation session abstraction used by the
// evaluation service front-end to map protocol context IDs onto controller
// state.
package session

import (
	"context"
	"errors"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/message"
)

// ErrSessionIDRequired is returned when an operation is missing the session ID.
var ErrSessionIDRequired = errors.New("sessionID is required")

// Session is one controller conversation, keyed by the protocol context ID.
type Session struct {
	// ID is the protocol context ID.
	ID string `json:"id"`
	// Messages is the controller conversation history.
	Messages []message.Message `json:"messages"`
	// State carries arbitrary controller key-values.
	State map[string]string `json:"state,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service stores controller sessions. The in-memory implementation lives in
// the inmemory subpackage; persistent implementations satisfy the same
// interface and are chosen at deploy time.
type Service interface {
	// Get returns the session with the given ID, or nil when absent.
	Get(ctx context.Context, id string) (*Session, error)
	// Save stores the session under its ID.
	Save(ctx context.Context, session *Session) error
	// Delete removes the session with the given ID.
	Delete(ctx context.Context, id string) error
}
