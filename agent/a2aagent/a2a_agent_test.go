//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package a2aagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/a2a"
	"trpc.group/trpc-go/trpc-eval-go/message"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

// fakeAgentServer is a scriptable A2A server. Each message/send pops the
// next scripted result, falling back to a plain "done" text reply once the
// script is exhausted; any contextId comes from the scripted results themselves.
type fakeAgentServer struct {
	t       *testing.T
	server  *httptest.Server
	mu      sync.Mutex
	results []string
	// requests records the text content and contextId of each incoming message.
	requests []incomingMessage
}

type incomingMessage struct {
	Text      string
	ContextID string
}

func newFakeAgentServer(t *testing.T, results ...string) *fakeAgentServer {
	t.Helper()
	f := &fakeAgentServer{t: t, results: results}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAgentServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/.well-known/agent-card.json" {
		fmt.Fprintf(w, `{"name":"simple_nebius_agent","url":"%s","version":"1.0.0","capabilities":{"streaming":false}}`, f.server.URL)
		return
	}

	var envelope struct {
		Params struct {
			Message struct {
				ContextID string `json:"contextId"`
				Parts     []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"message"`
		} `json:"params"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&envelope))

	f.mu.Lock()
	var text string
	for _, part := range envelope.Params.Message.Parts {
		text += part.Text
	}
	f.requests = append(f.requests, incomingMessage{
		Text:      text,
		ContextID: envelope.Params.Message.ContextID,
	})
	var result string
	if len(f.results) > 0 {
		result = f.results[0]
		f.results = f.results[1:]
	} else {
		result = `{"parts":[{"text":"done"}]}`
	}
	f.mu.Unlock()

	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"1","result":%s}`, result)
}

func (f *fakeAgentServer) seen() []incomingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]incomingMessage, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestAgent(t *testing.T, f *fakeAgentServer, opts ...Option) *A2AAgent {
	t.Helper()
	cfg, err := a2a.NewConfig(f.server.URL)
	require.NoError(t, err)
	a, err := New(append([]Option{WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	return a
}

func TestNewDiscoversAndCachesCard(t *testing.T) {
	f := newFakeAgentServer(t)
	a := newTestAgent(t, f)

	card := a.AgentCard()
	require.NotNil(t, card)
	assert.Equal(t, "simple_nebius_agent", card.Name)
	assert.Equal(t, "simple_nebius_agent", a.Info().Name)
}

func TestNewDiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg, err := a2a.NewConfig(server.URL)
	require.NoError(t, err)
	_, err = New(WithConfig(cfg))
	require.Error(t, err)

	var discErr *a2a.DiscoveryError
	assert.ErrorAs(t, err, &discErr)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New()
	require.Error(t, err)
}

func TestGetInitialState(t *testing.T) {
	f := newFakeAgentServer(t)
	a := newTestAgent(t, f, WithDomainPolicy("Always confirm before booking."))

	state := a.GetInitialState(nil)
	require.Len(t, state.History, 1)
	assert.Equal(t, message.RoleSystem, state.History[0].Role)
	assert.Contains(t, state.History[0].Content, "Always confirm before booking.")
	assert.Empty(t, state.ContextID)
	assert.Zero(t, state.RequestCount)
	assert.NotNil(t, state.Card)

	prior := []message.Message{message.NewUserMessage("earlier")}
	state2 := a.GetInitialState(prior)
	require.Len(t, state2.History, 2)
	assert.Equal(t, "earlier", state2.History[1].Content)
}

func TestGenerateNextMessageTextReply(t *testing.T) {
	f := newFakeAgentServer(t,
		`{"messageId":"m1","role":"agent","contextId":"ctx-1","parts":[{"text":"Hi, how can I help?"}]}`,
	)
	a := newTestAgent(t, f)

	state := a.GetInitialState(nil)
	assistant, state, err := a.GenerateNextMessage(context.Background(), message.NewUserMessage("Hello"), state)
	require.NoError(t, err)

	assert.Equal(t, "Hi, how can I help?", assistant.Content)
	assert.Empty(t, assistant.ToolCalls)
	assert.Equal(t, "ctx-1", state.ContextID)
	assert.Equal(t, 1, state.RequestCount)
	// History: system, user, assistant.
	require.Len(t, state.History, 3)
	assert.Equal(t, message.RoleAssistant, state.History[2].Role)
}

func TestGenerateNextMessageStructuredToolCall(t *testing.T) {
	f := newFakeAgentServer(t,
		`{"parts":[{"data":{"tool_call":{"name":"search_flights","arguments":{"origin":"SFO","destination":"JFK"}}}}]}`,
	)
	a := newTestAgent(t, f)

	state := a.GetInitialState(nil)
	assistant, _, err := a.GenerateNextMessage(context.Background(), message.NewUserMessage("SFO to JFK please"), state)
	require.NoError(t, err)

	assert.Empty(t, assistant.Content)
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "search_flights", assistant.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"origin": "SFO", "destination": "JFK"}, assistant.ToolCalls[0].Arguments)
}

func TestGenerateNextMessageEmbeddedToolCall(t *testing.T) {
	f := newFakeAgentServer(t,
		`{"parts":[{"text":"I'll check. {\"tool_call\":{\"name\":\"get_balance\",\"arguments\":{\"account\":\"A1\"}}} Thanks."}]}`,
	)
	a := newTestAgent(t, f)

	state := a.GetInitialState(nil)
	assistant, _, err := a.GenerateNextMessage(context.Background(), message.NewUserMessage("balance?"), state)
	require.NoError(t, err)

	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, "get_balance", assistant.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"account": "A1"}, assistant.ToolCalls[0].Arguments)
}

func TestContextPersistsAcrossTurns(t *testing.T) {
	f := newFakeAgentServer(t,
		`{"contextId":"ctx-1","parts":[{"text":"first"}]}`,
		`{"contextId":"ctx-1","parts":[{"text":"second"}]}`,
		`{"contextId":"ctx-1","parts":[{"text":"third"}]}`,
	)
	a := newTestAgent(t, f)

	state := a.GetInitialState(nil)
	var err error
	for _, input := range []string{"one", "two", "three"} {
		_, state, err = a.GenerateNextMessage(context.Background(), message.NewUserMessage(input), state)
		require.NoError(t, err)
	}

	seen := f.seen()
	require.Len(t, seen, 3)
	assert.Empty(t, seen[0].ContextID)
	assert.Equal(t, "ctx-1", seen[1].ContextID)
	assert.Equal(t, "ctx-1", seen[2].ContextID)
	assert.Equal(t, 3, state.RequestCount)
}

func TestPerTaskIsolation(t *testing.T) {
	// Two servers issuing distinct context IDs; two sessions driven
	// concurrently never observe each other's context.
	newServer := func(ctxPrefix string) *fakeAgentServer {
		f := &fakeAgentServer{t: t}
		f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/.well-known/agent-card.json" {
				fmt.Fprintf(w, `{"name":"agent","url":"%s","capabilities":{"streaming":false}}`, f.server.URL)
				return
			}
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"1","result":{"contextId":"%s-%s","parts":[{"text":"ok"}]}}`,
				ctxPrefix, uuid.New().String())
		}))
		t.Cleanup(f.server.Close)
		return f
	}

	f1, f2 := newServer("e1"), newServer("e2")
	a1, a2 := newTestAgent(t, f1), newTestAgent(t, f2)

	run := func(a *A2AAgent) []string {
		state := a.GetInitialState(nil)
		var contexts []string
		var err error
		for i := 0; i < 3; i++ {
			_, state, err = a.GenerateNextMessage(context.Background(), message.NewUserMessage("hi"), state)
			require.NoError(t, err)
			contexts = append(contexts, state.ContextID)
		}
		return contexts
	}

	var wg sync.WaitGroup
	var ctx1, ctx2 []string
	wg.Add(2)
	go func() { defer wg.Done(); ctx1 = run(a1) }()
	go func() { defer wg.Done(); ctx2 = run(a2) }()
	wg.Wait()

	for _, c1 := range ctx1 {
		for _, c2 := range ctx2 {
			assert.NotEqual(t, c1, c2)
		}
	}
}

func TestGenerateNextMessageUnpacksMultiTool(t *testing.T) {
	f := newFakeAgentServer(t, `{"parts":[{"text":"noted"}]}`)
	a := newTestAgent(t, f)

	state := a.GetInitialState(nil)
	multi := message.NewMultiToolMessage([]message.Message{
		message.NewToolMessage("id-1", "search_flights", "2 results"),
		message.NewToolMessage("id-2", "get_balance", "42"),
	})
	_, state, err := a.GenerateNextMessage(context.Background(), multi, state)
	require.NoError(t, err)

	// System + two unpacked tool messages + assistant.
	require.Len(t, state.History, 4)
	assert.Equal(t, message.RoleTool, state.History[1].Role)
	assert.Equal(t, message.RoleTool, state.History[2].Role)

	text := f.seen()[0].Text
	assert.Contains(t, text, "Tool Result (search_flights): 2 results")
	assert.Contains(t, text, "Tool Result (get_balance): 42")
}

func TestGenerateNextMessageErrorLeavesStateUntouched(t *testing.T) {
	f := newFakeAgentServer(t)
	a := newTestAgent(t, f)
	state := a.GetInitialState(nil)

	// Point the underlying client at a dead endpoint after discovery.
	cfg, err := a2a.NewConfig("http://127.0.0.1:1")
	require.NoError(t, err)
	a.client = a2a.NewClient(cfg, a2a.WithRecorder(a.recorder))

	_, returned, err := a.GenerateNextMessage(context.Background(), message.NewUserMessage("hi"), state)
	require.Error(t, err)
	assert.Equal(t, state, returned)
	assert.Zero(t, returned.RequestCount)
}

func TestToolsRenderedInOutgoingMessage(t *testing.T) {
	f := newFakeAgentServer(t, `{"parts":[{"text":"ok"}]}`)
	tools := []tool.Declaration{{
		Name:        "get_balance",
		Description: "Get an account balance",
		InputSchema: &tool.Schema{
			Type:       "object",
			Properties: map[string]*tool.Schema{"account": {Type: "string"}},
			Required:   []string{"account"},
		},
	}}
	a := newTestAgent(t, f, WithTools(tools), WithDomainPolicy("Policy text."))

	state := a.GetInitialState(nil)
	_, _, err := a.GenerateNextMessage(context.Background(), message.NewUserMessage("hi"), state)
	require.NoError(t, err)

	text := f.seen()[0].Text
	assert.Contains(t, text, "<system>")
	assert.Contains(t, text, "Policy text.")
	assert.Contains(t, text, "<available_tools>")
	assert.Contains(t, text, "- get_balance(account: string)")
	assert.Contains(t, text, "User: hi")
}

func TestStopAndIsStop(t *testing.T) {
	f := newFakeAgentServer(t)
	a := newTestAgent(t, f)

	assert.False(t, a.IsStop(message.NewAssistantMessage("bye")))
	assert.NoError(t, a.Stop(context.Background()))
}

func TestMetricsExport(t *testing.T) {
	f := newFakeAgentServer(t, `{"parts":[{"text":"ok"}]}`)
	a := newTestAgent(t, f)

	state := a.GetInitialState(nil)
	_, _, err := a.GenerateNextMessage(context.Background(), message.NewUserMessage("hi"), state)
	require.NoError(t, err)

	metrics := a.ProtocolMetrics()
	require.Len(t, metrics, 1)
	agg := a.AggregatedMetrics()
	assert.Equal(t, 1, agg.TotalRequests)
	assert.Zero(t, agg.ErrorCount)

	export := a.ExportMetrics("task-7")
	assert.Equal(t, "task-7", export["task_id"])
}
