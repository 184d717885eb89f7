//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluation provides the harness that drives a remote agent through
// scripted customer-service scenarios and scores its behaviour.
package evaluation

import (
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/a2a"
	ia2a "trpc.group/trpc-go/trpc-eval-go/internal/a2a"
	"trpc.group/trpc-go/trpc-eval-go/message"
)

// Default run limits.
const (
	DefaultNumTrials      = 1
	DefaultMaxSteps       = 50
	DefaultMaxErrors      = 10
	DefaultMaxConcurrency = 3
)

// StopSignal terminates a simulation when it appears in a user turn.
const StopSignal = "###STOP###"

// RunConfig configures one evaluation run: one domain against one remote
// agent, NumTrials simulations per selected task.
type RunConfig struct {
	// Domain is one of the registered domain names.
	Domain string `json:"domain" yaml:"domain"`
	// AgentEndpoint is the A2A endpoint of the agent under test.
	AgentEndpoint string `json:"agent_endpoint" yaml:"agent_endpoint"`
	// AuthToken optionally authenticates against the agent under test.
	AuthToken string `json:"-" yaml:"-"`
	// UserLLM selects the model backing the user simulator. Empty selects
	// the scripted simulator driven by each task's fixture.
	UserLLM string `json:"user_llm,omitempty" yaml:"user_llm,omitempty"`
	// NumTrials is the number of simulations per task.
	NumTrials int `json:"num_trials,omitempty" yaml:"num_trials,omitempty"`
	// NumTasks limits the run to the first N tasks of the domain.
	NumTasks int `json:"num_tasks,omitempty" yaml:"num_tasks,omitempty"`
	// TaskIDs limits the run to specific tasks.
	TaskIDs []string `json:"task_ids,omitempty" yaml:"task_ids,omitempty"`
	// MaxSteps bounds the turns of one simulation.
	MaxSteps int `json:"max_steps,omitempty" yaml:"max_steps,omitempty"`
	// MaxErrors bounds tolerated tool-execution errors per simulation.
	MaxErrors int `json:"max_errors,omitempty" yaml:"max_errors,omitempty"`
	// MaxConcurrency bounds simulations running in parallel.
	MaxConcurrency int `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty"`
	// Timeout is the per-exchange protocol deadline.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate checks the configuration and applies defaults. Configuration
// errors fail the run up-front, before any task starts.
func (c *RunConfig) Validate() error {
	if _, err := GetDomain(c.Domain); err != nil {
		return err
	}
	if !ia2a.IsAbsoluteHTTP(c.AgentEndpoint) {
		return fmt.Errorf("agent endpoint %q is not a valid http(s) URL", c.AgentEndpoint)
	}
	if c.NumTrials <= 0 {
		c.NumTrials = DefaultNumTrials
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = DefaultMaxErrors
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = a2a.DefaultTimeout
	}
	return nil
}

// TaskInfo identifies one evaluated task.
type TaskInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Simulation is the outcome of driving one task once.
type Simulation struct {
	TaskID string `json:"task_id"`
	Trial  int    `json:"trial"`
	// Success reports whether the grader accepted the simulation.
	Success bool `json:"success"`
	// Steps is the number of completed turns.
	Steps int `json:"steps"`
	// TerminationReason is one of user_stop, max_steps, max_errors,
	// protocol_error or setup_error.
	TerminationReason string `json:"termination_reason"`
	// Messages is the full task transcript including the system prelude.
	Messages []message.Message `json:"messages,omitempty"`
	// ProtocolMetrics summarizes the protocol overhead of the simulation.
	ProtocolMetrics *a2a.AggregatedMetrics `json:"protocol_metrics,omitempty"`
	// Error carries the failure detail when the simulation did not finish.
	Error string `json:"error,omitempty"`
}

// Results is the outcome of one evaluation run.
type Results struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Info        map[string]any `json:"info,omitempty"`
	Tasks       []TaskInfo     `json:"tasks"`
	Simulations []Simulation   `json:"simulations"`
}

// SuccessCount returns the number of successful simulations.
func (r *Results) SuccessCount() int {
	count := 0
	for _, sim := range r.Simulations {
		if sim.Success {
			count++
		}
	}
	return count
}

// SuccessRate returns the fraction of successful simulations, zero when no
// simulation ran.
func (r *Results) SuccessRate() float64 {
	if len(r.Simulations) == 0 {
		return 0
	}
	return float64(r.SuccessCount()) / float64(len(r.Simulations))
}
