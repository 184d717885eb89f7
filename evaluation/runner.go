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
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-eval-go/a2a"
	"trpc.group/trpc-go/trpc-eval-go/agent"
	"trpc.group/trpc-go/trpc-eval-go/agent/a2aagent"
	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/message"
)

// Simulation termination reasons.
const (
	terminationUserStop      = "user_stop"
	terminationMaxSteps      = "max_steps"
	terminationMaxErrors     = "max_errors"
	terminationProtocolError = "protocol_error"
	terminationSetupError    = "setup_error"
)

// AgentBuilder constructs the agent under test for one simulation. Overridden
// in tests to substitute a local agent.
type AgentBuilder func(cfg *RunConfig, domain *Domain, env *Environment) (agent.Agent, error)

// RunEvaluation drives every selected task of the configured domain against
// the remote agent, NumTrials times each, with at most MaxConcurrency
// simulations in flight. Protocol failures fail the simulation they occur
// in; configuration errors fail the run before any task starts.
func RunEvaluation(ctx context.Context, cfg RunConfig) (*Results, error) {
	return runEvaluation(ctx, cfg, buildRemoteAgent)
}

func runEvaluation(ctx context.Context, cfg RunConfig, buildAgent AgentBuilder) (*Results, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	domain, err := GetDomain(cfg.Domain)
	if err != nil {
		return nil, err
	}
	tasks, err := selectTasks(domain, &cfg)
	if err != nil {
		return nil, err
	}

	results := &Results{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Info: map[string]any{
			"domain":         cfg.Domain,
			"agent_endpoint": cfg.AgentEndpoint,
			"user_llm":       cfg.UserLLM,
			"num_trials":     cfg.NumTrials,
		},
	}
	for _, task := range tasks {
		results.Tasks = append(results.Tasks, TaskInfo{ID: task.ID, Name: task.Name})
	}

	log.Infow("starting evaluation run",
		"run_id", results.ID,
		"domain", cfg.Domain,
		"endpoint", cfg.AgentEndpoint,
		"num_tasks", len(tasks),
		"num_trials", cfg.NumTrials,
	)

	pool, err := ants.NewPool(cfg.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, task := range tasks {
		for trial := 1; trial <= cfg.NumTrials; trial++ {
			task, trial := task, trial
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				sim := runSimulation(ctx, &cfg, domain, task, trial, buildAgent)
				mu.Lock()
				results.Simulations = append(results.Simulations, sim)
				mu.Unlock()
			}); err != nil {
				wg.Done()
				return nil, fmt.Errorf("failed to submit simulation: %w", err)
			}
		}
	}
	wg.Wait()

	sort.Slice(results.Simulations, func(i, j int) bool {
		if results.Simulations[i].TaskID != results.Simulations[j].TaskID {
			return results.Simulations[i].TaskID < results.Simulations[j].TaskID
		}
		return results.Simulations[i].Trial < results.Simulations[j].Trial
	})

	log.Infow("evaluation run finished",
		"run_id", results.ID,
		"simulations", len(results.Simulations),
		"successes", results.SuccessCount(),
	)
	return results, nil
}

func selectTasks(domain *Domain, cfg *RunConfig) ([]*Task, error) {
	var tasks []*Task
	if len(cfg.TaskIDs) > 0 {
		for _, id := range cfg.TaskIDs {
			task, err := domain.TaskByID(id)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
		return tasks, nil
	}
	for i := range domain.Tasks {
		tasks = append(tasks, &domain.Tasks[i])
	}
	if cfg.NumTasks > 0 && cfg.NumTasks < len(tasks) {
		tasks = tasks[:cfg.NumTasks]
	}
	return tasks, nil
}

// buildRemoteAgent constructs the A2A evaluator adapter for one simulation.
// Every simulation gets its own adapter and metric recorder; the agent card
// is re-fetched per run.
func buildRemoteAgent(cfg *RunConfig, domain *Domain, env *Environment) (agent.Agent, error) {
	configOpts := []a2a.ConfigOption{a2a.WithTimeout(cfg.Timeout)}
	if cfg.AuthToken != "" {
		configOpts = append(configOpts, a2a.WithAuthToken(cfg.AuthToken))
	}
	clientConfig, err := a2a.NewConfig(cfg.AgentEndpoint, configOpts...)
	if err != nil {
		return nil, err
	}
	return a2aagent.New(
		a2aagent.WithConfig(clientConfig),
		a2aagent.WithTools(env.Tools()),
		a2aagent.WithDomainPolicy(domain.Policy),
	)
}

// runSimulation drives one task once: user simulator and agent alternate,
// tool calls execute in-process, and the grader scores the transcript.
func runSimulation(ctx context.Context, cfg *RunConfig, domain *Domain, task *Task, trial int, buildAgent AgentBuilder) Simulation {
	sim := Simulation{TaskID: task.ID, Trial: trial}
	env := domain.NewEnvironment(task)

	testee, err := buildAgent(cfg, domain, env)
	if err != nil {
		sim.TerminationReason = terminationSetupError
		sim.Error = err.Error()
		return sim
	}
	defer func() {
		if stopErr := testee.Stop(ctx); stopErr != nil {
			log.Warnf("agent stop failed: %v", stopErr)
		}
	}()

	userSim := newUserSimulator(cfg, task)
	state := testee.GetInitialState(nil)

	finish := func(reason string) Simulation {
		sim.TerminationReason = reason
		sim.Messages = state.History
		sim.Success = grade(task, env, &sim)
		if metered, ok := testee.(interface{ AggregatedMetrics() a2a.AggregatedMetrics }); ok {
			agg := metered.AggregatedMetrics()
			sim.ProtocolMetrics = &agg
		}
		return sim
	}

	userContent, err := userSim.FirstMessage(ctx)
	if err != nil {
		sim.TerminationReason = terminationSetupError
		sim.Error = err.Error()
		return sim
	}

	input := message.NewUserMessage(userContent)
	toolErrors := 0
	for sim.Steps = 0; sim.Steps < cfg.MaxSteps; sim.Steps++ {
		assistant, next, err := testee.GenerateNextMessage(ctx, input, state)
		if err != nil {
			sim.Error = err.Error()
			sim.TerminationReason = terminationProtocolError
			sim.Messages = state.History
			return sim
		}
		state = next

		if testee.IsStop(assistant) {
			return finish(terminationUserStop)
		}

		if assistant.IsToolCall() {
			var toolMessages []message.Message
			for _, call := range assistant.ToolCalls {
				result, execErr := env.Execute(call.Name, call.Arguments)
				if execErr != nil {
					toolErrors++
					result = fmt.Sprintf("ERROR: %v", execErr)
				}
				toolMessages = append(toolMessages, message.NewToolMessage(call.ID, call.Name, result))
			}
			if toolErrors >= cfg.MaxErrors {
				return finish(terminationMaxErrors)
			}
			if len(toolMessages) == 1 {
				input = toolMessages[0]
			} else {
				input = message.NewMultiToolMessage(toolMessages)
			}
			continue
		}

		userContent, err = userSim.NextMessage(ctx, assistant.Content)
		if err != nil {
			sim.Error = err.Error()
			return finish(terminationSetupError)
		}
		if strings.Contains(userContent, StopSignal) {
			return finish(terminationUserStop)
		}
		input = message.NewUserMessage(userContent)
	}
	return finish(terminationMaxSteps)
}

// grade accepts a simulation when every expected tool call was attempted
// with at least the expected arguments, and the conversation ended on the
// user's stop rather than a limit.
func grade(task *Task, env *Environment, sim *Simulation) bool {
	if sim.TerminationReason != terminationUserStop {
		return false
	}
	calls := env.Calls()
	for _, expected := range task.ExpectedToolCalls {
		if !callMatched(expected, calls) {
			return false
		}
	}
	return true
}

func callMatched(expected ExpectedToolCall, calls []ExecutedCall) bool {
	for _, call := range calls {
		if call.Name == expected.Name && argumentsMatch(expected.Arguments, call.Arguments) {
			return true
		}
	}
	return false
}

// argumentsMatch reports whether every expected argument appears in the
// actual arguments with an equal rendered value. Fixture values come from
// YAML and actual values from JSON, so comparison is on rendered form.
func argumentsMatch(expected, actual map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return false
		}
	}
	return true
}
