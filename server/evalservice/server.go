//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evalservice exposes the evaluation harness over the A2A protocol:
// an agent card describing the service tools as skills, and a message/send
// endpoint routed through an LLM-backed controller.
package evalservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	a2asrv "trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/session/inmemory"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

// New creates the evaluation service A2A server. The returned server is
// started with Start(host) and stopped with Stop(ctx).
func New(opts ...Option) (*a2asrv.A2AServer, error) {
	options := &options{
		name:        defaultServiceName,
		description: defaultServiceDescription,
		host:        defaultHost,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.llmModel == "" {
		return nil, errors.New("llm model is required")
	}
	if options.sessionService == nil {
		options.sessionService = inmemory.NewSessionService()
	}

	tools := options.tools
	if tools == nil {
		tools = serviceTools(options.store)
	}

	ctrl := newController(
		options.llmModel,
		options.llmAPIKey,
		options.llmBaseURL,
		tools,
		options.sessionService,
		options.maxToolIterations,
	)

	card := buildAgentCard(options, tools)
	processor := &messageProcessor{controller: ctrl}

	taskManager, err := taskmanager.NewMemoryTaskManager(processor)
	if err != nil {
		return nil, fmt.Errorf("failed to create task manager: %w", err)
	}

	server, err := a2asrv.NewA2AServer(card, taskManager, options.extraOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create a2a server: %w", err)
	}
	return server, nil
}

// buildAgentCard describes the service and its tool surface as skills.
func buildAgentCard(options *options, tools []tool.CallableTool) a2asrv.AgentCard {
	if options.agentCard != nil {
		return *options.agentCard
	}

	streaming := false
	skills := make([]a2asrv.AgentSkill, 0, len(tools))
	for _, t := range tools {
		decl := t.Declaration()
		description := decl.Description
		skills = append(skills, a2asrv.AgentSkill{
			Name:        decl.Name,
			Description: &description,
			InputModes:  []string{"text"},
			OutputModes: []string{"text"},
			Tags:        []string{"tool"},
		})
	}

	return a2asrv.AgentCard{
		Name:        options.name,
		Description: options.description,
		URL:         fmt.Sprintf("http://%s", options.host),
		Capabilities: a2asrv.AgentCapabilities{
			Streaming: &streaming,
		},
		Skills:             skills,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	}
}

// messageProcessor routes incoming protocol messages to the controller.
type messageProcessor struct {
	controller *controller
}

// ProcessMessage implements taskmanager.MessageProcessor. A repeated
// contextId resumes the controller session it named; a missing one creates
// a new server-issued context.
func (m *messageProcessor) ProcessMessage(
	ctx context.Context,
	msg protocol.Message,
	options taskmanager.ProcessOptions,
	handler taskmanager.TaskHandler,
) (*taskmanager.MessageProcessingResult, error) {
	if options.Streaming {
		return nil, errors.New("streaming is not supported by the evaluation service")
	}

	var text string
	for _, part := range msg.Parts {
		if part.GetKind() != protocol.KindText {
			continue
		}
		if p, ok := part.(*protocol.TextPart); ok {
			text += p.Text
		}
	}

	ctxID := ""
	if msg.ContextID != nil {
		ctxID = *msg.ContextID
	}
	if ctxID == "" {
		ctxID = uuid.New().String()
		log.Debugw("issued new context", "context_id", ctxID)
	}

	answer, err := m.controller.HandleMessage(ctx, ctxID, text)
	if err != nil {
		log.Errorf("controller failed for context %s: %v", ctxID, err)
		return nil, err
	}

	reply := protocol.NewMessage(protocol.MessageRoleAgent, []protocol.Part{
		protocol.NewTextPart(answer),
	})
	reply.ContextID = &ctxID
	return &taskmanager.MessageProcessingResult{Result: &reply}, nil
}
