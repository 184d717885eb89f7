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
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/evaluation"
	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/tool"
	"trpc.group/trpc-go/trpc-eval-go/tool/function"
)

// Tool names exposed by the evaluation service.
const (
	toolListDomains   = "list_domains"
	toolRunEvaluation = "run_evaluation"
	toolGetResults    = "get_evaluation_results"
)

type listDomainsInput struct{}

type domainInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TaskCount   int    `json:"task_count"`
}

type listDomainsOutput struct {
	Domains []domainInfo `json:"domains"`
}

func newListDomainsTool() tool.CallableTool {
	return function.New(func(ctx context.Context, in listDomainsInput) (listDomainsOutput, error) {
		var out listDomainsOutput
		for _, d := range evaluation.ListDomains() {
			out.Domains = append(out.Domains, domainInfo{
				Name:        d.Name,
				Description: d.Description,
				TaskCount:   len(d.Tasks),
			})
		}
		return out, nil
	},
		function.WithName(toolListDomains),
		function.WithDescription("List all available evaluation domains and their descriptions"),
	)
}

type runEvaluationInput struct {
	Domain         string   `json:"domain" description:"Evaluation domain (airline, retail, telecom, mock)"`
	AgentEndpoint  string   `json:"agent_endpoint" description:"A2A endpoint of the agent to evaluate"`
	UserLLM        string   `json:"user_llm,omitempty" description:"LLM model for the user simulator; omit for the scripted simulator"`
	NumTrials      int      `json:"num_trials,omitempty" description:"Number of trials per task (default 1)"`
	NumTasks       int      `json:"num_tasks,omitempty" description:"Number of tasks to evaluate (default all tasks in the domain)"`
	TaskIDs        []string `json:"task_ids,omitempty" description:"Specific task IDs to run"`
	MaxSteps       int      `json:"max_steps,omitempty" description:"Maximum turns per simulation (default 50)"`
	MaxErrors      int      `json:"max_errors,omitempty" description:"Maximum tolerated tool errors per simulation (default 10)"`
	MaxConcurrency int      `json:"max_concurrency,omitempty" description:"Maximum simulations in flight (default 3)"`
}

type evaluationSummary struct {
	TotalSimulations      int     `json:"total_simulations"`
	TotalTasks            int     `json:"total_tasks"`
	SuccessfulSimulations int     `json:"successful_simulations"`
	SuccessRate           float64 `json:"success_rate"`
}

type taskSummary struct {
	TaskID string `json:"task_id"`
	Name   string `json:"name"`
}

type runEvaluationOutput struct {
	Status       string            `json:"status"`
	EvaluationID string            `json:"evaluation_id"`
	Timestamp    string            `json:"timestamp"`
	Summary      evaluationSummary `json:"summary"`
	Tasks        []taskSummary     `json:"tasks"`
}

func newRunEvaluationTool(store *evaluation.ResultStore) tool.CallableTool {
	return function.New(func(ctx context.Context, in runEvaluationInput) (runEvaluationOutput, error) {
		cfg := evaluation.RunConfig{
			Domain:         in.Domain,
			AgentEndpoint:  in.AgentEndpoint,
			UserLLM:        in.UserLLM,
			NumTrials:      in.NumTrials,
			NumTasks:       in.NumTasks,
			TaskIDs:        in.TaskIDs,
			MaxSteps:       in.MaxSteps,
			MaxErrors:      in.MaxErrors,
			MaxConcurrency: in.MaxConcurrency,
		}
		log.Infow("starting evaluation via tool",
			"domain", in.Domain,
			"agent_endpoint", in.AgentEndpoint,
			"user_llm", in.UserLLM,
		)
		results, err := evaluation.RunEvaluation(ctx, cfg)
		if err != nil {
			return runEvaluationOutput{}, fmt.Errorf("evaluation failed: %w", err)
		}
		if store != nil {
			store.Save(results)
		}

		out := runEvaluationOutput{
			Status:       "completed",
			EvaluationID: results.ID,
			Timestamp:    results.Timestamp.Format(time.RFC3339),
			Summary: evaluationSummary{
				TotalSimulations:      len(results.Simulations),
				TotalTasks:            len(results.Tasks),
				SuccessfulSimulations: results.SuccessCount(),
				SuccessRate:           results.SuccessRate(),
			},
		}
		for _, task := range results.Tasks {
			out.Tasks = append(out.Tasks, taskSummary{TaskID: task.ID, Name: task.Name})
		}
		return out, nil
	},
		function.WithName(toolRunEvaluation),
		function.WithDescription("Run an evaluation of a conversational agent against a domain and report the success rate"),
	)
}

type getResultsInput struct {
	EvaluationID string `json:"evaluation_id" description:"Identifier returned by run_evaluation"`
}

func newGetResultsTool(store *evaluation.ResultStore) tool.CallableTool {
	return function.New(func(ctx context.Context, in getResultsInput) (map[string]any, error) {
		if store != nil {
			if results, ok := store.Get(in.EvaluationID); ok {
				return map[string]any{
					"evaluation_id": results.ID,
					"timestamp":     results.Timestamp.Format(time.RFC3339),
					"info":          results.Info,
					"tasks":         results.Tasks,
					"simulations":   results.Simulations,
				}, nil
			}
		}
		return map[string]any{
			"error": fmt.Sprintf("no stored results for evaluation %q", in.EvaluationID),
			"message": "Use run_evaluation, which returns results directly; " +
				"only evaluations run by this service instance are retained.",
		}, nil
	},
		function.WithName(toolGetResults),
		function.WithDescription("Get detailed results from a completed evaluation by evaluation_id"),
	)
}

// serviceTools builds the full tool surface backed by one result store.
func serviceTools(store *evaluation.ResultStore) []tool.CallableTool {
	return []tool.CallableTool{
		newListDomainsTool(),
		newRunEvaluationTool(store),
		newGetResultsTool(store),
	}
}
