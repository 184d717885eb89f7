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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"trpc.group/trpc-go/trpc-eval-go/log"
	tmetric "trpc.group/trpc-go/trpc-eval-go/telemetry/metric"
)

const (
	discoveryPath     = "/.well-known/agent-card.json"
	methodMessageSend = "message/send"

	jsonrpcVersion = "2.0"

	maxErrorBodyBytes = 512
)

// Client exchanges messages with one remote A2A agent.
//
// A fresh http.Client is created per call and its idle connections are closed
// before the call returns, so no connection state outlives a request.
type Client struct {
	config   Config
	recorder *Recorder

	cardMu sync.RWMutex
	card   *AgentCard

	requestCounter otelmetric.Int64Counter
	latencyHist    otelmetric.Float64Histogram
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRecorder sets the metric recorder shared with the caller.
func WithRecorder(recorder *Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = recorder
	}
}

// NewClient creates a client for the configured endpoint.
func NewClient(config Config, opts ...ClientOption) *Client {
	c := &Client{config: config}
	for _, opt := range opts {
		opt(c)
	}
	if c.recorder == nil {
		c.recorder = NewRecorder()
	}
	c.requestCounter, _ = tmetric.Meter.Int64Counter("a2a_client_requests")
	c.latencyHist, _ = tmetric.Meter.Float64Histogram("a2a_client_latency_ms")
	return c
}

// Config returns the immutable client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Recorder returns the metric recorder used by this client.
func (c *Client) Recorder() *Recorder {
	return c.recorder
}

// httpClient builds the per-call HTTP client honoring the configured
// deadline and TLS policy.
func (c *Client) httpClient() (*http.Client, *http.Transport) {
	transport := &http.Transport{}
	if !c.config.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   c.config.Timeout,
		Transport: transport,
	}, transport
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}
}

// DiscoverAgent fetches and validates the remote agent card, caching it for
// the lifetime of the client.
func (c *Client) DiscoverAgent(ctx context.Context) (*AgentCard, error) {
	c.cardMu.RLock()
	if c.card != nil {
		card := c.card
		c.cardMu.RUnlock()
		return card, nil
	}
	c.cardMu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+discoveryPath, nil)
	if err != nil {
		return nil, &DiscoveryError{Kind: DiscoveryMalformed, Endpoint: c.config.Endpoint, Detail: err.Error()}
	}
	c.setHeaders(req)

	httpClient, transport := c.httpClient()
	defer transport.CloseIdleConnections()

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &DiscoveryError{
			Kind:     DiscoveryUnreachable,
			Endpoint: c.config.Endpoint,
			Detail:   sanitizeNetError(err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DiscoveryError{
			Kind:       DiscoveryHTTPStatus,
			Endpoint:   c.config.Endpoint,
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("agent card request returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DiscoveryError{Kind: DiscoveryMalformed, Endpoint: c.config.Endpoint, Detail: err.Error()}
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, &DiscoveryError{
			Kind:     DiscoveryMalformed,
			Endpoint: c.config.Endpoint,
			Detail:   fmt.Sprintf("invalid agent card: %v", err),
		}
	}
	if err := card.Validate(); err != nil {
		return nil, &DiscoveryError{
			Kind:     DiscoveryMalformed,
			Endpoint: c.config.Endpoint,
			Detail:   err.Error(),
		}
	}

	c.cardMu.Lock()
	c.card = &card
	c.cardMu.Unlock()

	log.Infow("discovered a2a agent",
		"endpoint", c.config.Endpoint,
		"agent_name", card.Name,
		"agent_version", card.Version,
		"status", resp.StatusCode,
	)
	return &card, nil
}

// AgentCard returns the cached card, or nil when discovery has not run.
func (c *Client) AgentCard() *AgentCard {
	c.cardMu.RLock()
	defer c.cardMu.RUnlock()
	return c.card
}

// SendMessage posts one message/send exchange and normalizes the reply.
// It returns the agent reply and the context ID carried by the reply
// envelope (empty when the server issued none). A RequestMetric is recorded
// for every outcome, success or failure.
func (c *Client) SendMessage(ctx context.Context, msg Message) (*Message, string, error) {
	requestID := uuid.New().String()
	start := time.Now()
	inputTokens := EstimateTokens(msg.TextContent())

	metricOut := RequestMetric{
		RequestID:   requestID,
		Endpoint:    c.config.Endpoint,
		Method:      http.MethodPost,
		InputTokens: inputTokens,
		ContextID:   msg.ContextID,
	}
	fail := func(perr *ProtocolError) (*Message, string, error) {
		metricOut.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
		metricOut.Error = string(perr.Kind)
		c.recorder.Record(metricOut)
		c.observe(ctx, metricOut)
		log.Infow("a2a message exchange failed",
			"request_id", requestID,
			"endpoint", c.config.Endpoint,
			"status", metricOut.StatusCode,
			"latency_ms", metricOut.LatencyMs,
			"context_id", msg.ContextID,
			"error", perr.Error(),
		)
		return nil, "", perr
	}

	envelope := jsonrpcRequest{
		Jsonrpc: jsonrpcVersion,
		ID:      uuid.New().String(),
		Method:  methodMessageSend,
		Params:  requestParams{Message: msg},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fail(&ProtocolError{Kind: ProtocolMalformed, Detail: fmt.Sprintf("marshal request: %v", err)})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(&ProtocolError{Kind: ProtocolMalformed, Detail: err.Error()})
	}
	c.setHeaders(req)

	httpClient, transport := c.httpClient()
	defer transport.CloseIdleConnections()

	resp, err := httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fail(&ProtocolError{Kind: ProtocolTimeout, Detail: "agent response timeout"})
		}
		return fail(&ProtocolError{Kind: ProtocolUnreachable, Detail: sanitizeNetError(err)})
	}
	defer resp.Body.Close()
	metricOut.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fail(&ProtocolError{
			Kind:       ProtocolUnauthorized,
			StatusCode: resp.StatusCode,
			Detail:     "authentication failed",
		})
	case resp.StatusCode == http.StatusRequestTimeout:
		metricOut.StatusCode = 0
		return fail(&ProtocolError{Kind: ProtocolTimeout, Detail: "agent response timeout"})
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fail(&ProtocolError{
			Kind:       ProtocolBadStatus,
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("message send failed with status %d: %s", resp.StatusCode, truncatedBody(resp.Body)),
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(&ProtocolError{Kind: ProtocolMalformed, Detail: fmt.Sprintf("read response: %v", err)})
	}

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fail(&ProtocolError{Kind: ProtocolMalformed, Detail: fmt.Sprintf("invalid JSON-RPC response: %v", err)})
	}
	if rpcResp.Error != nil {
		return fail(&ProtocolError{
			Kind:    ProtocolRPCError,
			RPCCode: rpcResp.Error.Code,
			Detail:  rpcResp.Error.Message,
		})
	}
	if len(rpcResp.Result) == 0 {
		return fail(&ProtocolError{Kind: ProtocolMalformed, Detail: "response carries neither result nor error"})
	}

	reply, err := normalizeReply(rpcResp.Result)
	if err != nil {
		return fail(&ProtocolError{Kind: ProtocolMalformed, Detail: err.Error()})
	}

	latencyMs := float64(time.Since(start).Microseconds()) / 1000
	metricOut.LatencyMs = latencyMs
	metricOut.OutputTokens = EstimateTokens(reply.TextContent())
	metricOut.ContextID = reply.ContextID
	c.recorder.Record(metricOut)
	c.observe(ctx, metricOut)

	log.Infow("a2a message exchange completed",
		"request_id", requestID,
		"endpoint", c.config.Endpoint,
		"status", resp.StatusCode,
		"latency_ms", latencyMs,
		"input_tokens", inputTokens,
		"output_tokens", metricOut.OutputTokens,
		"context_id", reply.ContextID,
	)
	return reply, reply.ContextID, nil
}

func (c *Client) observe(ctx context.Context, m RequestMetric) {
	attrs := otelmetric.WithAttributes(
		attribute.String("endpoint", m.Endpoint),
		attribute.Bool("error", m.Error != ""),
	)
	c.requestCounter.Add(ctx, 1, attrs)
	c.latencyHist.Record(ctx, m.LatencyMs, attrs)
}

// isTimeout reports whether a transport error is a deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout()
	}
	return false
}

// sanitizeNetError strips the request URL's userinfo, if any, from transport
// errors. Bearer tokens live in headers and never reach error text, so the
// message is otherwise safe to propagate.
func sanitizeNetError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		target := urlErr.URL
		if u, perr := url.Parse(target); perr == nil && u.User != nil {
			u.User = nil
			target = u.String()
		}
		return fmt.Sprintf("%s %s: %v", urlErr.Op, target, urlErr.Err)
	}
	return err.Error()
}

func truncatedBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(body)
}
