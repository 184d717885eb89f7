//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToolCallGeneratesID(t *testing.T) {
	tc := NewToolCall("", "search_flights", map[string]any{"origin": "SFO"})
	require.NotEmpty(t, tc.ID)
	assert.Equal(t, RequestorAssistant, tc.Requestor)

	tc2 := NewToolCall("call-1", "search_flights", nil)
	assert.Equal(t, "call-1", tc2.ID)
}

func TestValidate(t *testing.T) {
	ok := NewAssistantMessage("hello")
	require.NoError(t, ok.Validate())

	calls := NewToolCallMessage([]ToolCall{NewToolCall("", "t", nil)})
	require.NoError(t, calls.Validate())

	bad := Message{
		Role:      RoleAssistant,
		Content:   "hello",
		ToolCalls: []ToolCall{NewToolCall("", "t", nil)},
	}
	assert.ErrorIs(t, bad.Validate(), ErrAssistantContentAndToolCalls)
}

func TestExpand(t *testing.T) {
	t1 := NewToolMessage("id-1", "get_balance", "42")
	t2 := NewToolMessage("id-2", "get_user", "alice")
	multi := NewMultiToolMessage([]Message{t1, t2})

	expanded := multi.Expand()
	require.Len(t, expanded, 2)
	assert.Equal(t, "get_balance", expanded[0].ToolName)
	assert.Equal(t, "get_user", expanded[1].ToolName)

	user := NewUserMessage("hi")
	require.Len(t, user.Expand(), 1)
	assert.Equal(t, user, user.Expand()[0])
}

func TestIsToolCall(t *testing.T) {
	assert.False(t, NewAssistantMessage("text").IsToolCall())
	assert.True(t, NewToolCallMessage([]ToolCall{NewToolCall("", "t", nil)}).IsToolCall())
	assert.False(t, NewUserMessage("hi").IsToolCall())
}
