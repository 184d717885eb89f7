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
	"sync"
	"time"
)

// RequestMetric is one performance measurement for a protocol exchange.
// Values are append-only; aggregation is pure.
type RequestMetric struct {
	RequestID    string  `json:"request_id"`
	Endpoint     string  `json:"endpoint"`
	Method       string  `json:"method"`
	StatusCode   int     `json:"status_code,omitempty"`
	LatencyMs    float64 `json:"latency_ms"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	ContextID    string  `json:"context_id,omitempty"`
	Error        string  `json:"error,omitempty"`
	Timestamp    string  `json:"timestamp"`
}

// AggregatedMetrics summarizes a metric series post-run.
type AggregatedMetrics struct {
	TotalRequests  int     `json:"total_requests"`
	TotalTokens    int     `json:"total_tokens"`
	TotalLatencyMs float64 `json:"total_latency_ms"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	ErrorCount     int     `json:"error_count"`
}

// AggregateMetrics computes summary statistics over a metric series.
func AggregateMetrics(metrics []RequestMetric) AggregatedMetrics {
	agg := AggregatedMetrics{TotalRequests: len(metrics)}
	for _, m := range metrics {
		agg.TotalTokens += m.InputTokens + m.OutputTokens
		agg.TotalLatencyMs += m.LatencyMs
		if m.Error != "" {
			agg.ErrorCount++
		}
	}
	if agg.TotalRequests > 0 {
		agg.AvgLatencyMs = agg.TotalLatencyMs / float64(agg.TotalRequests)
	}
	return agg
}

// Recorder is an append-only, concurrency-safe metric log.
type Recorder struct {
	mu      sync.Mutex
	metrics []RequestMetric
}

// NewRecorder creates an empty metric recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one metric.
func (r *Recorder) Record(m RequestMetric) {
	if m.Timestamp == "" {
		m.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, m)
}

// Metrics returns a copy of all recorded metrics.
func (r *Recorder) Metrics() []RequestMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RequestMetric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

// Clear drops all recorded metrics.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = nil
}

// Aggregate computes summary statistics over the recorded series.
func (r *Recorder) Aggregate() AggregatedMetrics {
	return AggregateMetrics(r.Metrics())
}

// ExportJSON renders the metric series and its summary for embedding in
// evaluation results.
func (r *Recorder) ExportJSON(taskID string) map[string]any {
	return map[string]any{
		"task_id":          taskID,
		"agent_type":       "a2a_agent",
		"protocol_metrics": r.Metrics(),
		"summary":          r.Aggregate(),
	}
}

// EstimateTokens estimates the token count of text with the rough four
// characters per token heuristic. Used when the reply does not supply counts.
func EstimateTokens(text string) int {
	return len(text) / 4
}
