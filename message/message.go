//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package message defines the conversation message model shared by the
// evaluation harness, the translation layer and the evaluator agents.
package message

import (
	"errors"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Role constants.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	// RoleMultiTool bundles several tool results produced by one assistant
	// turn into a single message.
	RoleMultiTool Role = "multi_tool"
)

// RequestorAssistant marks tool calls issued by the assistant.
const RequestorAssistant = "assistant"

// ToolCall is a request by the assistant to invoke a named tool.
// The harness executes tool calls in-process; they are never forwarded for
// remote execution.
type ToolCall struct {
	// ID identifies the call; it is stable within a task.
	ID string `json:"id"`
	// Name is the tool to invoke.
	Name string `json:"name"`
	// Arguments are the tool arguments keyed by parameter name.
	Arguments map[string]any `json:"arguments"`
	// Requestor records who asked for the call.
	Requestor string `json:"requestor,omitempty"`
}

// NewToolCall creates a ToolCall, generating an ID when none is supplied.
func NewToolCall(id, name string, arguments map[string]any) ToolCall {
	if id == "" {
		id = uuid.New().String()
	}
	return ToolCall{
		ID:        id,
		Name:      name,
		Arguments: arguments,
		Requestor: RequestorAssistant,
	}
}

// Message is a single conversation message.
//
// Which fields are meaningful depends on Role:
//   - RoleSystem/RoleUser: Content only.
//   - RoleAssistant: Content or ToolCalls, never both (see Validate).
//   - RoleTool: Content plus ToolCallID/ToolName identifying the call that
//     produced the result.
//   - RoleMultiTool: ToolMessages holding one RoleTool message per result.
type Message struct {
	Role         Role       `json:"role"`
	Content      string     `json:"content,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID   string     `json:"tool_call_id,omitempty"`
	ToolName     string     `json:"tool_name,omitempty"`
	ToolMessages []Message  `json:"tool_messages,omitempty"`
}

// ErrAssistantContentAndToolCalls is returned by Validate when an assistant
// message carries both text content and tool calls.
var ErrAssistantContentAndToolCalls = errors.New("assistant message carries both content and tool calls")

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant text message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolCallMessage creates an assistant message requesting tool calls.
func NewToolCallMessage(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// NewToolMessage creates a tool result message.
func NewToolMessage(toolCallID, toolName, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		ToolName:   toolName,
	}
}

// NewMultiToolMessage bundles tool result messages produced by one turn.
func NewMultiToolMessage(toolMessages []Message) Message {
	return Message{Role: RoleMultiTool, ToolMessages: toolMessages}
}

// IsToolCall reports whether the message is an assistant tool-call request.
func (m Message) IsToolCall() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// HasTextContent reports whether the message carries non-empty text.
func (m Message) HasTextContent() bool {
	return m.Content != ""
}

// Validate checks the role-dependent field invariants.
func (m Message) Validate() error {
	if m.Role == RoleAssistant && m.HasTextContent() && len(m.ToolCalls) > 0 {
		return ErrAssistantContentAndToolCalls
	}
	return nil
}

// Expand flattens a RoleMultiTool message into its contained tool messages.
// Any other message expands to itself.
func (m Message) Expand() []Message {
	if m.Role != RoleMultiTool {
		return []Message{m}
	}
	out := make([]Message, 0, len(m.ToolMessages))
	out = append(out, m.ToolMessages...)
	return out
}
