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

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/message"
	"trpc.group/trpc-go/trpc-eval-go/session"
	"trpc.group/trpc-go/trpc-eval-go/tool"
)

// controllerInstruction frames the routing model.
const controllerInstruction = `You are a conversational agent evaluation service.

You can evaluate other conversational agents across customer service domains
(airline, retail, telecom, mock). When a user requests an evaluation:
1. Clarify the evaluation parameters (domain, agent endpoint, number of tasks).
2. Use the run_evaluation tool to execute the evaluation.
3. Provide clear, actionable feedback on agent performance.
4. Offer to retrieve detailed results using get_evaluation_results.

Be helpful in explaining evaluation metrics and suggesting improvements.`

const defaultMaxToolIterations = 8

// controller routes incoming natural-language requests to the service tools
// through a chat model, one session per protocol context ID.
type controller struct {
	client        openai.Client
	model         string
	tools         map[string]tool.CallableTool
	sessions      session.Service
	maxIterations int
}

func newController(model, apiKey, baseURL string, tools []tool.CallableTool, sessions session.Service, maxIterations int) *controller {
	var clientOpts []openaiopt.RequestOption
	if apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(baseURL))
	}
	toolMap := make(map[string]tool.CallableTool, len(tools))
	for _, t := range tools {
		toolMap[t.Declaration().Name] = t
	}
	if maxIterations <= 0 {
		maxIterations = defaultMaxToolIterations
	}
	return &controller{
		client:        openai.NewClient(clientOpts...),
		model:         model,
		tools:         toolMap,
		sessions:      sessions,
		maxIterations: maxIterations,
	}
}

// HandleMessage resumes (or creates) the session for contextID, runs the
// model-with-tools loop until a text answer, persists the session and
// returns the answer.
func (c *controller) HandleMessage(ctx context.Context, contextID, userText string) (string, error) {
	sess, err := c.sessions.Get(ctx, contextID)
	if err != nil {
		return "", fmt.Errorf("session lookup failed: %w", err)
	}
	if sess == nil {
		sess = &session.Session{ID: contextID}
	}
	sess.Messages = append(sess.Messages, message.NewUserMessage(userText))

	var answer string
	for i := 0; i < c.maxIterations; i++ {
		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    shared.ChatModel(c.model),
			Messages: c.chatMessages(sess.Messages),
			Tools:    c.chatTools(),
		})
		if err != nil {
			return "", fmt.Errorf("controller completion failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("controller returned no choices")
		}
		choice := completion.Choices[0].Message

		if len(choice.ToolCalls) == 0 {
			answer = choice.Content
			sess.Messages = append(sess.Messages, message.NewAssistantMessage(answer))
			break
		}

		var calls []message.ToolCall
		for _, tc := range choice.ToolCalls {
			args := map[string]any{}
			if tc.Function.Arguments != "" {
				// Invalid arguments surface as a tool error below.
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			}
			calls = append(calls, message.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
				Requestor: message.RequestorAssistant,
			})
		}
		sess.Messages = append(sess.Messages, message.NewToolCallMessage(calls))

		for _, tc := range choice.ToolCalls {
			result := c.executeTool(ctx, tc.Function.Name, []byte(tc.Function.Arguments))
			sess.Messages = append(sess.Messages, message.NewToolMessage(tc.ID, tc.Function.Name, result))
		}
	}

	if answer == "" {
		answer = "I could not complete the request within the allowed number of tool calls."
		sess.Messages = append(sess.Messages, message.NewAssistantMessage(answer))
	}
	if err := c.sessions.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("session save failed: %w", err)
	}
	return answer, nil
}

// executeTool runs one tool and renders its result (or error) as JSON text.
// Errors go back to the model as structured tool output so it can correct
// the call and retry.
func (c *controller) executeTool(ctx context.Context, name string, args []byte) string {
	t, ok := c.tools[name]
	if !ok {
		return fmt.Sprintf(`{"error":"unknown tool %q"}`, name)
	}
	result, err := t.Call(ctx, args)
	if err != nil {
		log.Warnw("service tool failed", "tool", name, "error", err.Error())
		encoded, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(encoded)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(encoded)
}

func (c *controller) chatMessages(history []message.Message) []openai.ChatCompletionMessageParamUnion {
	out := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(controllerInstruction),
	}
	for _, m := range history {
		switch m.Role {
		case message.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case message.RoleAssistant:
			if m.IsToolCall() {
				out = append(out, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						ToolCalls: toToolCallParams(m.ToolCalls),
					},
				})
				continue
			}
			out = append(out, openai.AssistantMessage(m.Content))
		case message.RoleTool:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfTool: &openai.ChatCompletionToolMessageParam{
					Content: openai.ChatCompletionToolMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
					ToolCallID: m.ToolCallID,
				},
			})
		}
	}
	return out
}

func toToolCallParams(calls []message.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	out := make([]openai.ChatCompletionMessageToolCallParam, 0, len(calls))
	for _, call := range calls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		out = append(out, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	return out
}

func (c *controller) chatTools() []openai.ChatCompletionToolParam {
	var out []openai.ChatCompletionToolParam
	for _, t := range c.tools {
		decl := t.Declaration()
		schemaBytes, err := json.Marshal(decl.InputSchema)
		if err != nil {
			log.Errorf("failed to marshal tool schema for %s: %v", decl.Name, err)
			continue
		}
		var parameters shared.FunctionParameters
		if err := json.Unmarshal(schemaBytes, &parameters); err != nil {
			log.Errorf("failed to unmarshal tool schema for %s: %v", decl.Name, err)
			continue
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        decl.Name,
				Description: openai.String(decl.Description),
				Parameters:  parameters,
			},
		})
	}
	return out
}
