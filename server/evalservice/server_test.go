//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evalservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"trpc.group/trpc-go/trpc-eval-go/evaluation"
	"trpc.group/trpc-go/trpc-eval-go/session/inmemory"
)

// fakeLLM is an OpenAI-compatible chat completion endpoint that pops one
// scripted response per request.
type fakeLLM struct {
	t      *testing.T
	server *httptest.Server
	mu     sync.Mutex
	// responses are raw "message" objects of the completion choice.
	responses []string
	requests  int
}

func newFakeLLM(t *testing.T, responses ...string) *fakeLLM {
	t.Helper()
	f := &fakeLLM{t: t, responses: responses}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "chat/completions"), "unexpected path %s", r.URL.Path)
		f.mu.Lock()
		f.requests++
		var msg string
		if len(f.responses) > 0 {
			msg = f.responses[0]
			f.responses = f.responses[1:]
		} else {
			msg = `{"role":"assistant","content":"done"}`
		}
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cmpl-1","object":"chat.completion","model":"test",`+
			`"choices":[{"index":0,"message":%s,"finish_reason":"stop"}]}`, msg)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func textResponse(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"role":"assistant","content":%s}`, encoded)
}

func toolCallResponse(id, name, args string) string {
	encodedArgs, _ := json.Marshal(args)
	return fmt.Sprintf(`{"role":"assistant","content":null,"tool_calls":[{"id":"%s","type":"function",`+
		`"function":{"name":"%s","arguments":%s}}]}`, id, name, encodedArgs)
}

// newRemoteAgent fakes the agent under test: discovery plus text-only replies.
func newRemoteAgent(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/agent-card.json" {
			fmt.Fprintf(w, `{"name":"agent_under_test","url":"%s","capabilities":{"streaming":false}}`, server.URL)
			return
		}
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":{"contextId":"ctx-remote","parts":[{"text":"Happy to help!"}]}}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestController(t *testing.T, llm *fakeLLM, store *evaluation.ResultStore) *controller {
	t.Helper()
	return newController("test-model", "test-key", llm.server.URL, serviceTools(store), inmemory.NewSessionService(), 0)
}

func TestListDomainsTool(t *testing.T) {
	result, err := newListDomainsTool().Call(context.Background(), nil)
	require.NoError(t, err)

	out, ok := result.(listDomainsOutput)
	require.True(t, ok)
	require.Len(t, out.Domains, 4)
	counts := map[string]int{}
	for _, d := range out.Domains {
		counts[d.Name] = d.TaskCount
		assert.NotEmpty(t, d.Description)
	}
	assert.Equal(t, 5, counts["mock"])
	assert.Equal(t, 3, counts["airline"])
	assert.Equal(t, 3, counts["retail"])
	assert.Equal(t, 3, counts["telecom"])
}

func TestRunEvaluationTool(t *testing.T) {
	remote := newRemoteAgent(t)
	store := evaluation.NewResultStore()

	args := fmt.Sprintf(`{"domain":"mock","agent_endpoint":"%s","task_ids":["mock_005"]}`, remote.URL)
	result, err := newRunEvaluationTool(store).Call(context.Background(), []byte(args))
	require.NoError(t, err)

	out, ok := result.(runEvaluationOutput)
	require.True(t, ok)
	assert.Equal(t, "completed", out.Status)
	assert.NotEmpty(t, out.EvaluationID)
	assert.Equal(t, 1, out.Summary.TotalSimulations)
	assert.Equal(t, 1, out.Summary.TotalTasks)
	// mock_005 expects no tool calls, so the text-only agent succeeds.
	assert.Equal(t, 1, out.Summary.SuccessfulSimulations)
	assert.Equal(t, float64(1), out.Summary.SuccessRate)
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "mock_005", out.Tasks[0].TaskID)

	// The result is retained for get_evaluation_results.
	_, ok = store.Get(out.EvaluationID)
	assert.True(t, ok)
}

func TestRunEvaluationToolInvalidDomain(t *testing.T) {
	_, err := newRunEvaluationTool(nil).Call(context.Background(),
		[]byte(`{"domain":"banking","agent_endpoint":"http://x.example.com"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown domain")
}

func TestRunEvaluationToolInvalidEndpoint(t *testing.T) {
	_, err := newRunEvaluationTool(nil).Call(context.Background(),
		[]byte(`{"domain":"mock","agent_endpoint":"not a url"}`))
	require.Error(t, err)
}

func TestGetResultsTool(t *testing.T) {
	store := evaluation.NewResultStore()
	store.Save(&evaluation.Results{ID: "run-1"})

	result, err := newGetResultsTool(store).Call(context.Background(), []byte(`{"evaluation_id":"run-1"}`))
	require.NoError(t, err)
	out := result.(map[string]any)
	assert.Equal(t, "run-1", out["evaluation_id"])

	result, err = newGetResultsTool(store).Call(context.Background(), []byte(`{"evaluation_id":"run-404"}`))
	require.NoError(t, err)
	out = result.(map[string]any)
	assert.Contains(t, out["error"], "run-404")
}

func TestControllerTextAnswer(t *testing.T) {
	llm := newFakeLLM(t, textResponse("Hello! I can run evaluations for you."))
	ctrl := newTestController(t, llm, nil)

	answer, err := ctrl.HandleMessage(context.Background(), "ctx-1", "What can you do?")
	require.NoError(t, err)
	assert.Equal(t, "Hello! I can run evaluations for you.", answer)
}

func TestControllerToolLoop(t *testing.T) {
	llm := newFakeLLM(t,
		toolCallResponse("call-1", "list_domains", "{}"),
		textResponse("There are four domains: airline, retail, telecom and mock."),
	)
	ctrl := newTestController(t, llm, nil)

	answer, err := ctrl.HandleMessage(context.Background(), "ctx-1", "Which domains exist?")
	require.NoError(t, err)
	assert.Contains(t, answer, "four domains")
	assert.Equal(t, 2, llm.requests)
}

func TestControllerSessionResume(t *testing.T) {
	llm := newFakeLLM(t, textResponse("first answer"), textResponse("second answer"))
	sessions := inmemory.NewSessionService()
	ctrl := newController("test-model", "k", llm.server.URL, serviceTools(nil), sessions, 0)

	_, err := ctrl.HandleMessage(context.Background(), "ctx-1", "one")
	require.NoError(t, err)
	_, err = ctrl.HandleMessage(context.Background(), "ctx-1", "two")
	require.NoError(t, err)

	sess, err := sessions.Get(context.Background(), "ctx-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	// user, assistant, user, assistant.
	assert.Len(t, sess.Messages, 4)

	// A different context starts fresh.
	other, err := sessions.Get(context.Background(), "ctx-2")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestControllerUnknownTool(t *testing.T) {
	llm := newFakeLLM(t,
		toolCallResponse("call-1", "no_such_tool", "{}"),
		textResponse("sorry, that failed"),
	)
	ctrl := newTestController(t, llm, nil)

	answer, err := ctrl.HandleMessage(context.Background(), "ctx-1", "do something odd")
	require.NoError(t, err)
	assert.Equal(t, "sorry, that failed", answer)
}

func TestProcessMessageIssuesContext(t *testing.T) {
	llm := newFakeLLM(t, textResponse("hello"))
	processor := &messageProcessor{controller: newTestController(t, llm, nil)}

	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("hi")})
	result, err := processor.ProcessMessage(context.Background(), msg, taskmanager.ProcessOptions{}, nil)
	require.NoError(t, err)

	reply, ok := result.Result.(*protocol.Message)
	require.True(t, ok)
	require.NotNil(t, reply.ContextID)
	assert.NotEmpty(t, *reply.ContextID)
	assert.Equal(t, protocol.MessageRoleAgent, reply.Role)
}

func TestProcessMessageResumesContext(t *testing.T) {
	llm := newFakeLLM(t, textResponse("one"), textResponse("two"))
	sessions := inmemory.NewSessionService()
	ctrl := newController("test-model", "k", llm.server.URL, serviceTools(nil), sessions, 0)
	processor := &messageProcessor{controller: ctrl}

	ctxID := "ctx-fixed"
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("first")})
	msg.ContextID = &ctxID
	_, err := processor.ProcessMessage(context.Background(), msg, taskmanager.ProcessOptions{}, nil)
	require.NoError(t, err)

	msg2 := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("second")})
	msg2.ContextID = &ctxID
	reply, err := processor.ProcessMessage(context.Background(), msg2, taskmanager.ProcessOptions{}, nil)
	require.NoError(t, err)
	replyMsg := reply.Result.(*protocol.Message)
	assert.Equal(t, ctxID, *replyMsg.ContextID)

	sess, err := sessions.Get(context.Background(), ctxID)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 4)
}

func TestProcessMessageRejectsStreaming(t *testing.T) {
	llm := newFakeLLM(t)
	processor := &messageProcessor{controller: newTestController(t, llm, nil)}

	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("hi")})
	_, err := processor.ProcessMessage(context.Background(), msg, taskmanager.ProcessOptions{Streaming: true}, nil)
	require.Error(t, err)
}

// TestEvaluationInsideServiceHandler exercises the evaluator adapter from
// inside an active service request: the controller's run_evaluation tool
// drives the blocking A2A adapter while handling a protocol message.
func TestEvaluationInsideServiceHandler(t *testing.T) {
	remote := newRemoteAgent(t)
	args := fmt.Sprintf(`{"domain":"mock","agent_endpoint":"%s","task_ids":["mock_005"]}`, remote.URL)
	llm := newFakeLLM(t,
		toolCallResponse("call-1", "run_evaluation", args),
		textResponse("The evaluation finished with a 100% success rate."),
	)
	store := evaluation.NewResultStore()
	processor := &messageProcessor{controller: newTestController(t, llm, store)}

	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{
		protocol.NewTextPart("Please evaluate my agent on the mock domain."),
	})
	result, err := processor.ProcessMessage(context.Background(), msg, taskmanager.ProcessOptions{}, nil)
	require.NoError(t, err)

	reply := result.Result.(*protocol.Message)
	require.Len(t, reply.Parts, 1)
	text := reply.Parts[0].(protocol.TextPart).Text
	assert.Contains(t, text, "success rate")
	assert.Len(t, store.IDs(), 1)
}

func TestNewValidation(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm model is required")

	server, err := New(WithLLM("gpt-4o", "key", ""))
	require.NoError(t, err)
	assert.NotNil(t, server)
}

func TestBuildAgentCard(t *testing.T) {
	opts := &options{
		name:        "eval_service",
		description: "desc",
		host:        "localhost:9999",
	}
	card := buildAgentCard(opts, serviceTools(nil))

	assert.Equal(t, "eval_service", card.Name)
	assert.Equal(t, "http://localhost:9999", card.URL)
	require.NotNil(t, card.Capabilities.Streaming)
	assert.False(t, *card.Capabilities.Streaming)
	require.Len(t, card.Skills, 3)

	names := map[string]bool{}
	for _, skill := range card.Skills {
		names[skill.Name] = true
	}
	assert.True(t, names["list_domains"])
	assert.True(t, names["run_evaluation"])
	assert.True(t, names["get_evaluation_results"])
}
