//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package a2a

import "fmt"

// DiscoveryErrorKind classifies agent discovery failures.
type DiscoveryErrorKind string

// Discovery failure kinds.
const (
	DiscoveryUnreachable DiscoveryErrorKind = "unreachable"
	DiscoveryHTTPStatus  DiscoveryErrorKind = "http_status"
	DiscoveryMalformed   DiscoveryErrorKind = "malformed"
)

// DiscoveryError is returned when fetching or validating an agent card fails.
type DiscoveryError struct {
	Kind       DiscoveryErrorKind
	Endpoint   string
	StatusCode int
	Detail     string
}

// Error implements the error interface.
func (e *DiscoveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("agent discovery failed (%s, HTTP %d) at %s: %s", e.Kind, e.StatusCode, e.Endpoint, e.Detail)
	}
	return fmt.Sprintf("agent discovery failed (%s) at %s: %s", e.Kind, e.Endpoint, e.Detail)
}

// ProtocolErrorKind classifies message exchange failures.
type ProtocolErrorKind string

// Protocol failure kinds.
const (
	ProtocolTimeout      ProtocolErrorKind = "timeout"
	ProtocolUnreachable  ProtocolErrorKind = "unreachable"
	ProtocolUnauthorized ProtocolErrorKind = "unauthorized"
	ProtocolBadStatus    ProtocolErrorKind = "bad_status"
	ProtocolMalformed    ProtocolErrorKind = "malformed"
	ProtocolRPCError     ProtocolErrorKind = "rpc_error"
)

// ProtocolError is returned when a message/send exchange fails.
// Detail never contains the auth token.
type ProtocolError struct {
	Kind       ProtocolErrorKind
	StatusCode int
	RPCCode    int
	Detail     string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	switch {
	case e.Kind == ProtocolRPCError:
		return fmt.Sprintf("a2a protocol error (%s, code %d): %s", e.Kind, e.RPCCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("a2a protocol error (%s, HTTP %d): %s", e.Kind, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("a2a protocol error (%s): %s", e.Kind, e.Detail)
	}
}
