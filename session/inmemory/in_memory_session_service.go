//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides the in-memory session service.
package inmemory

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/message"
	"trpc.group/trpc-go/trpc-eval-go/session"
)

// SessionService stores sessions in process memory.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewSessionService creates an empty in-memory session service.
func NewSessionService() *SessionService {
	return &SessionService{sessions: make(map[string]*session.Session)}
}

// Get implements session.Service. It returns a copy so callers can mutate
// the session before saving it back.
func (s *SessionService) Get(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, session.ErrSessionIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *stored
	copied.Messages = make([]message.Message, len(stored.Messages))
	copy(copied.Messages, stored.Messages)
	return &copied, nil
}

// Save implements session.Service.
func (s *SessionService) Save(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.ID == "" {
		return session.ErrSessionIDRequired
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[sess.ID]; ok {
		sess.CreatedAt = existing.CreatedAt
	} else if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

// Delete implements session.Service.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return session.ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
