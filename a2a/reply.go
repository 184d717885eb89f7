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
)

// normalizeReply maps a JSON-RPC result onto a single agent Message.
//
// Remote implementations return one of five shapes:
//  1. a task object with an artifacts array,
//  2. a message with parts at the result level (the standard form),
//  3. a bare string,
//  4. a wrapper with the message under a "message" field,
//  5. a task object whose terminal message sits in status.message or at the
//     end of a history array.
//
// Anything else is malformed.
func normalizeReply(result json.RawMessage) (*Message, error) {
	// Shape 3: a bare string result.
	var text string
	if err := json.Unmarshal(result, &text); err == nil {
		msg := Message{Role: MessageRoleAgent, Parts: []Part{TextPart{Text: text}}}
		return &msg, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(result, &obj); err != nil {
		return nil, fmt.Errorf("result is neither an object nor a string: %w", err)
	}

	parts := replyParts(obj)
	if parts == nil {
		return nil, fmt.Errorf("result matches no known reply shape (keys: %v)", keysOf(obj))
	}

	msg := Message{Role: MessageRoleAgent, Parts: parts}
	if ctxID, ok := obj["contextId"].(string); ok {
		msg.ContextID = ctxID
	} else if inner, ok := obj["message"].(map[string]any); ok {
		if ctxID, ok := inner["contextId"].(string); ok {
			msg.ContextID = ctxID
		}
	}
	if taskID, ok := obj["taskId"].(string); ok {
		msg.TaskID = taskID
	} else if id, ok := obj["id"].(string); ok && looksLikeTask(obj) {
		msg.TaskID = id
	}
	return &msg, nil
}

// replyParts extracts content parts in the observed precedence order.
// A nil return means no shape matched; an empty non-nil slice is a valid
// empty reply.
func replyParts(obj map[string]any) []Part {
	// Shape 1: task object with artifacts.
	if artifacts, ok := obj["artifacts"].([]any); ok {
		var parts []Part
		for _, rawArtifact := range artifacts {
			artifact, ok := rawArtifact.(map[string]any)
			if !ok {
				continue
			}
			parts = append(parts, partsOf(artifact)...)
		}
		if len(parts) > 0 {
			return parts
		}
	}

	// Shape 2: message parts at the result level.
	if _, ok := obj["parts"]; ok {
		return nonNilParts(partsOf(obj))
	}

	// Shape 5a: task status update carrying the terminal message.
	if status, ok := obj["status"].(map[string]any); ok {
		if statusMsg, ok := status["message"].(map[string]any); ok {
			if parts := partsOf(statusMsg); len(parts) > 0 {
				return parts
			}
		}
	}

	// Shape 4: wrapper with the message under "message".
	if inner, ok := obj["message"].(map[string]any); ok {
		return nonNilParts(partsOf(inner))
	}

	// Shape 5b: history array, last agent message wins.
	if history, ok := obj["history"].([]any); ok {
		for i := len(history) - 1; i >= 0; i-- {
			entry, ok := history[i].(map[string]any)
			if !ok {
				continue
			}
			if role, _ := entry["role"].(string); role != string(MessageRoleAgent) {
				continue
			}
			return nonNilParts(partsOf(entry))
		}
		return []Part{}
	}

	return nil
}

// partsOf parses the "parts" array of a raw message or artifact object.
func partsOf(obj map[string]any) []Part {
	rawParts, ok := obj["parts"].([]any)
	if !ok {
		return nil
	}
	var parts []Part
	for _, rawPart := range rawParts {
		partObj, ok := rawPart.(map[string]any)
		if !ok {
			continue
		}
		if part := parsePart(partObj); part != nil {
			parts = append(parts, part)
		}
	}
	return parts
}

func nonNilParts(parts []Part) []Part {
	if parts == nil {
		return []Part{}
	}
	return parts
}

func looksLikeTask(obj map[string]any) bool {
	_, hasStatus := obj["status"]
	_, hasArtifacts := obj["artifacts"]
	return hasStatus || hasArtifacts
}

func keysOf(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	return keys
}
