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
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageRole identifies the author of a wire message.
type MessageRole string

// Wire message roles.
const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleAgent MessageRole = "agent"
)

// Part is one content element of a wire message. Exactly one payload variant
// exists per part: text, structured data, or a file reference.
type Part interface {
	partKind() string
}

// TextPart carries plain text.
type TextPart struct {
	Text string
}

func (TextPart) partKind() string { return "text" }

// NewTextPart creates a text part.
func NewTextPart(text string) TextPart {
	return TextPart{Text: text}
}

// DataPart carries a structured JSON object.
type DataPart struct {
	Data map[string]any
}

func (DataPart) partKind() string { return "data" }

// NewDataPart creates a data part.
func NewDataPart(data map[string]any) DataPart {
	return DataPart{Data: data}
}

// FilePart carries a file reference. File content is not used by the
// evaluation harness; the variant exists so foreign parts unmarshal cleanly.
type FilePart struct {
	Name     string
	MimeType string
	URI      string
	Bytes    string
}

func (FilePart) partKind() string { return "file" }

// Message is the wire-level message envelope exchanged with remote agents.
type Message struct {
	// MessageID uniquely identifies the message.
	MessageID string
	// Role is the message author, user or agent.
	Role MessageRole
	// Parts is the ordered content list; a normalized reply may carry none.
	Parts []Part
	// ContextID is the server-issued session identifier, empty until the
	// first agent reply supplies one.
	ContextID string
	// TaskID optionally ties the message to a server-side task object.
	TaskID string
	// Metadata carries opaque key-value extensions.
	Metadata map[string]any
}

// NewMessage creates a wire message with a fresh message ID.
func NewMessage(role MessageRole, parts []Part) Message {
	return Message{
		MessageID: uuid.New().String(),
		Role:      role,
		Parts:     parts,
	}
}

// TextContent concatenates all text parts, joining with newlines.
func (m *Message) TextContent() string {
	var out string
	for _, part := range m.Parts {
		if tp, ok := part.(TextPart); ok {
			if out != "" {
				out += "\n"
			}
			out += tp.Text
		}
	}
	return out
}

// DataParts returns all structured data parts in order.
func (m *Message) DataParts() []DataPart {
	var out []DataPart
	for _, part := range m.Parts {
		if dp, ok := part.(DataPart); ok {
			out = append(out, dp)
		}
	}
	return out
}

// MarshalJSON emits the wire form: each part as an object with its single
// payload field, contextId/taskId only when set.
func (m Message) MarshalJSON() ([]byte, error) {
	raw := map[string]any{
		"messageId": m.MessageID,
		"role":      string(m.Role),
		"parts":     marshalParts(m.Parts),
	}
	if m.ContextID != "" {
		raw["contextId"] = m.ContextID
	}
	if m.TaskID != "" {
		raw["taskId"] = m.TaskID
	}
	if len(m.Metadata) > 0 {
		raw["metadata"] = m.Metadata
	}
	return json.Marshal(raw)
}

func marshalParts(parts []Part) []map[string]any {
	out := make([]map[string]any, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case TextPart:
			out = append(out, map[string]any{"text": p.Text})
		case DataPart:
			out = append(out, map[string]any{"data": p.Data})
		case FilePart:
			file := map[string]any{}
			if p.Name != "" {
				file["name"] = p.Name
			}
			if p.MimeType != "" {
				file["mimeType"] = p.MimeType
			}
			if p.URI != "" {
				file["uri"] = p.URI
			}
			if p.Bytes != "" {
				file["bytes"] = p.Bytes
			}
			out = append(out, map[string]any{"file": file})
		}
	}
	return out
}

// UnmarshalJSON accepts the wire form, tolerating unknown part shapes by
// skipping them.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		MessageID string            `json:"messageId"`
		Role      string            `json:"role"`
		Parts     []json.RawMessage `json:"parts"`
		ContextID string            `json:"contextId"`
		TaskID    string            `json:"taskId"`
		Metadata  map[string]any    `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.MessageID = raw.MessageID
	m.Role = MessageRole(raw.Role)
	m.ContextID = raw.ContextID
	m.TaskID = raw.TaskID
	m.Metadata = raw.Metadata
	m.Parts = nil
	for _, rawPart := range raw.Parts {
		var obj map[string]any
		if err := json.Unmarshal(rawPart, &obj); err != nil {
			return fmt.Errorf("invalid message part: %w", err)
		}
		if part := parsePart(obj); part != nil {
			m.Parts = append(m.Parts, part)
		}
	}
	return nil
}

// parsePart maps a raw part object onto the Part sum. Unknown shapes map to
// nil and are dropped by the caller.
func parsePart(obj map[string]any) Part {
	if text, ok := obj["text"].(string); ok {
		return TextPart{Text: text}
	}
	if data, ok := obj["data"].(map[string]any); ok {
		return DataPart{Data: data}
	}
	if file, ok := obj["file"].(map[string]any); ok {
		part := FilePart{}
		if v, ok := file["name"].(string); ok {
			part.Name = v
		}
		if v, ok := file["mimeType"].(string); ok {
			part.MimeType = v
		}
		if v, ok := file["uri"].(string); ok {
			part.URI = v
		}
		if v, ok := file["bytes"].(string); ok {
			part.Bytes = v
		}
		return part
	}
	return nil
}

// jsonrpcRequest is a JSON-RPC 2.0 request envelope.
type jsonrpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  requestParams `json:"params"`
}

type requestParams struct {
	Message Message `json:"message"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response envelope. Result is kept raw so
// the reply normalizer can accept the shapes observed in the wild.
type jsonrpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonrpcError   `json:"error"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
