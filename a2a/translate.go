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
	"sort"
	"strings"

	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/message"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

// toolCallInstruction is the fixed sentence appended after the tool listing.
const toolCallInstruction = `To use a tool, respond with JSON: {"tool_call": {"name": "tool_name", "arguments": {"param1": "value"}}}`

// emptyReplyFallback substitutes for a completely empty agent reply so the
// assistant message keeps its content-or-tool-calls invariant.
const emptyReplyFallback = "I apologize, but I was unable to generate a response. Could you please rephrase your request?"

// FormatToolsAsText renders tool declarations as a human-readable block for
// the remote agent. The protocol does not standardize tool calling, so
// schemas travel as text and the agent replies with a JSON tool_call object.
func FormatToolsAsText(tools []tool.Declaration) string {
	if len(tools) == 0 {
		return ""
	}

	lines := []string{"<available_tools>"}
	for _, t := range tools {
		names, properties, required := schemaParams(t.InputSchema)

		signature := make([]string, 0, len(names))
		for _, name := range names {
			signature = append(signature, fmt.Sprintf("%s: %s", name, properties[name].Type))
		}
		lines = append(lines, fmt.Sprintf("- %s(%s)", t.Name, strings.Join(signature, ", ")))

		description := t.Description
		if description == "" {
			description = "No description available"
		}
		lines = append(lines, fmt.Sprintf("  Description: %s", description))

		if len(names) > 0 {
			lines = append(lines, "  Parameters:")
			for _, name := range names {
				requiredStr := "optional"
				if required[name] {
					requiredStr = "required"
				}
				desc := properties[name].Description
				if desc == "" {
					desc = "No description"
				}
				lines = append(lines, fmt.Sprintf("    - %s (%s, %s): %s", name, properties[name].Type, requiredStr, desc))
			}
		}
		lines = append(lines, "")
	}
	lines = append(lines, "</available_tools>", "", toolCallInstruction)
	return strings.Join(lines, "\n")
}

// schemaParams flattens an input schema into sorted parameter names, their
// schemas, and the required set.
func schemaParams(schema *tool.Schema) ([]string, map[string]*tool.Schema, map[string]bool) {
	properties := map[string]*tool.Schema{}
	required := map[string]bool{}
	if schema == nil {
		return nil, properties, required
	}
	names := make([]string, 0, len(schema.Properties))
	for name, propSchema := range schema.Properties {
		if propSchema == nil {
			propSchema = &tool.Schema{Type: "any"}
		}
		names = append(names, name)
		properties[name] = propSchema
	}
	sort.Strings(names)
	for _, name := range schema.Required {
		required[name] = true
	}
	return names, properties, required
}

// BuildOutgoingMessage renders a harness transcript into one outgoing wire
// message: the system prelude and tool listing first, then the serialized
// turns in order, the latest unsent message last, all as a single text part.
func BuildOutgoingMessage(history []message.Message, tools []tool.Declaration, contextID string) Message {
	var blocks []string

	var systemParts []string
	for _, m := range history {
		if m.Role == message.RoleSystem && m.Content != "" {
			systemParts = append(systemParts, m.Content)
		}
	}
	if len(systemParts) > 0 {
		blocks = append(blocks, "<system>\n"+strings.Join(systemParts, "\n\n")+"\n</system>")
	}

	if toolText := FormatToolsAsText(tools); toolText != "" {
		blocks = append(blocks, toolText)
	}

	var transcript []string
	for _, m := range history {
		for _, turn := range m.Expand() {
			switch turn.Role {
			case message.RoleSystem:
				// Already folded into the prelude.
			case message.RoleUser:
				transcript = append(transcript, "User: "+turn.Content)
			case message.RoleAssistant:
				transcript = append(transcript, "Assistant: "+turn.Content)
			case message.RoleTool:
				transcript = append(transcript, fmt.Sprintf("Tool Result (%s): %s", turn.ToolName, turn.Content))
			}
		}
	}
	if len(transcript) > 0 {
		blocks = append(blocks, strings.Join(transcript, "\n"))
	}

	msg := NewMessage(MessageRoleUser, []Part{NewTextPart(strings.Join(blocks, "\n\n"))})
	msg.ContextID = contextID
	return msg
}

// ParseAssistantMessage converts a normalized wire reply into a harness
// assistant message, extracting tool calls with structured-then-text
// precedence and enforcing the content-xor-tool-calls invariant.
func ParseAssistantMessage(reply *Message) (message.Message, error) {
	if reply == nil {
		return message.Message{}, fmt.Errorf("reply message is nil")
	}

	content := reply.TextContent()

	// Tier one: structured tool calls in data parts. When present, the text
	// buffer is left untouched.
	var toolCalls []message.ToolCall
	for _, dataPart := range reply.DataParts() {
		raw, err := json.Marshal(dataPart.Data)
		if err != nil {
			continue
		}
		toolCalls = append(toolCalls, decodeToolCalls(raw)...)
	}

	// Tier two: the first balanced tool_call JSON object embedded in text,
	// lifted out of the content.
	if len(toolCalls) == 0 {
		extracted, cleaned, found := extractToolCallsFromText(content)
		if found {
			toolCalls = extracted
			content = cleaned
		}
	}

	if len(toolCalls) > 0 {
		if strings.TrimSpace(content) != "" {
			log.Warnf("assistant reply carried both text and tool calls, dropping text (%d chars)", len(content))
		}
		return message.NewToolCallMessage(toolCalls), nil
	}

	if strings.TrimSpace(content) == "" {
		log.Warnf("agent returned empty reply, substituting fallback message")
		content = emptyReplyFallback
	}
	return message.NewAssistantMessage(content), nil
}

// toolCallPayload matches the tool-call JSON the agent is instructed to emit:
// a single {"tool_call": {...}} or a batched {"tool_calls": [{"tool_call": {...}}, ...]}.
type toolCallPayload struct {
	ToolCall  *toolCallBody     `json:"tool_call"`
	ToolCalls []toolCallWrapper `json:"tool_calls"`
}

type toolCallWrapper struct {
	ToolCall *toolCallBody `json:"tool_call"`
}

type toolCallBody struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (b *toolCallBody) valid() bool {
	return b != nil && b.Name != "" && b.Arguments != nil
}

// decodeToolCalls decodes either tool-call payload form. It returns nil when
// the payload does not match the shape.
func decodeToolCalls(raw []byte) []message.ToolCall {
	var payload toolCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	if payload.ToolCall.valid() {
		return []message.ToolCall{message.NewToolCall(payload.ToolCall.ID, payload.ToolCall.Name, payload.ToolCall.Arguments)}
	}
	var calls []message.ToolCall
	for _, wrapper := range payload.ToolCalls {
		if wrapper.ToolCall.valid() {
			calls = append(calls, message.NewToolCall(wrapper.ToolCall.ID, wrapper.ToolCall.Name, wrapper.ToolCall.Arguments))
		}
	}
	return calls
}

// extractToolCallsFromText scans text for tool-call JSON. A reply that is
// entirely JSON parses directly; otherwise the first balanced JSON object
// matching the tool_call shape is lifted out and removed from the content.
func extractToolCallsFromText(text string) ([]message.ToolCall, string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, text, false
	}

	if calls := decodeToolCalls([]byte(trimmed)); len(calls) > 0 {
		return calls, "", true
	}

	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end, ok := balancedObjectEnd(text, i)
		if !ok {
			continue
		}
		candidate := text[i : end+1]
		if calls := decodeToolCalls([]byte(candidate)); len(calls) > 0 {
			cleaned := strings.TrimSpace(text[:i] + text[end+1:])
			return calls, cleaned, true
		}
	}
	return nil, text, false
}

// balancedObjectEnd returns the index of the brace closing the JSON object
// opened at start, honoring string literals and escapes.
func balancedObjectEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
