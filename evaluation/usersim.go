//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// UserSimulator produces the customer side of a simulation, one turn at a
// time. Implementations end the conversation by including StopSignal in a
// returned message.
type UserSimulator interface {
	// FirstMessage opens the conversation.
	FirstMessage(ctx context.Context) (string, error)
	// NextMessage answers the assistant's latest text reply.
	NextMessage(ctx context.Context, assistantContent string) (string, error)
}

// ScriptedSimulator replays the user turns of a task fixture and stops when
// the script runs out.
type ScriptedSimulator struct {
	script []string
	next   int
}

// NewScriptedSimulator creates a simulator over the task's script.
func NewScriptedSimulator(task *Task) *ScriptedSimulator {
	return &ScriptedSimulator{script: task.UserScenario.Script}
}

// FirstMessage implements UserSimulator.
func (s *ScriptedSimulator) FirstMessage(ctx context.Context) (string, error) {
	return s.NextMessage(ctx, "")
}

// NextMessage implements UserSimulator.
func (s *ScriptedSimulator) NextMessage(ctx context.Context, assistantContent string) (string, error) {
	if s.next >= len(s.script) {
		return StopSignal, nil
	}
	line := s.script[s.next]
	s.next++
	return line, nil
}

// llmSimulatorPrompt frames the user-simulator model.
const llmSimulatorPrompt = "You are simulating a customer talking to a customer service agent. " +
	"Stay in character, pursue the scenario below one request at a time, and keep each message short. " +
	"When your goal is met or cannot be met, reply with exactly " + StopSignal + ".\n\nScenario:\n%s"

// LLMSimulator drives the user side with a chat model. The assistant under
// evaluation appears to the model as its interlocutor.
type LLMSimulator struct {
	client  openai.Client
	model   string
	history []openai.ChatCompletionMessageParamUnion
}

// LLMSimulatorOption configures the LLM user simulator.
type LLMSimulatorOption func(*llmSimulatorOptions)

type llmSimulatorOptions struct {
	apiKey  string
	baseURL string
}

// WithAPIKey sets the API key for the simulator model.
func WithAPIKey(key string) LLMSimulatorOption {
	return func(o *llmSimulatorOptions) {
		o.apiKey = key
	}
}

// WithBaseURL points the simulator at an OpenAI-compatible endpoint.
func WithBaseURL(url string) LLMSimulatorOption {
	return func(o *llmSimulatorOptions) {
		o.baseURL = url
	}
}

// NewLLMSimulator creates an LLM-backed user simulator for the task.
func NewLLMSimulator(model string, task *Task, opts ...LLMSimulatorOption) *LLMSimulator {
	o := &llmSimulatorOptions{}
	for _, opt := range opts {
		opt(o)
	}
	var clientOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	return &LLMSimulator{
		client: openai.NewClient(clientOpts...),
		model:  model,
		history: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(llmSimulatorPrompt, task.UserScenario.Instructions)),
		},
	}
}

// FirstMessage implements UserSimulator.
func (s *LLMSimulator) FirstMessage(ctx context.Context) (string, error) {
	return s.complete(ctx)
}

// NextMessage implements UserSimulator.
func (s *LLMSimulator) NextMessage(ctx context.Context, assistantContent string) (string, error) {
	// From the simulator's perspective the agent under test is the user.
	s.history = append(s.history, openai.UserMessage(assistantContent))
	return s.complete(ctx)
}

func (s *LLMSimulator) complete(ctx context.Context) (string, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(s.model),
		Messages: s.history,
	})
	if err != nil {
		return "", fmt.Errorf("user simulator completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("user simulator returned no choices")
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	s.history = append(s.history, openai.AssistantMessage(content))
	return content, nil
}

// newUserSimulator selects the simulator for a run: scripted when no model
// is configured, LLM-backed otherwise.
func newUserSimulator(cfg *RunConfig, task *Task) UserSimulator {
	if cfg.UserLLM == "" {
		return NewScriptedSimulator(task)
	}
	return NewLLMSimulator(cfg.UserLLM, task)
}
