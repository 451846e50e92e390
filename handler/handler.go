// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package handler provides adapters to the peers.Handler type for functions
// with other signatures.
//
// Parameters are decoded from JSON into a value of the parameter type. If a
// command has no parameters, the function receives the zero value. Results
// are encoded as JSON.
package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/creachadair/flatembed/peers"
)

// paramsContextKey is a context key for the raw parameters to a handler.
type paramsContextKey struct{}

// ContextParams returns the parameters of the command passed to the handler,
// exactly as sent, or nil if there were none. The context passed to a
// function adapted by this package has this value.
func ContextParams(ctx context.Context) json.RawMessage {
	if v := ctx.Value(paramsContextKey{}); v != nil {
		return v.(json.RawMessage)
	}
	return nil
}

// ParamResultError adapts a function f that accepts parameters of type P and
// returns a result of type R and an error, to a peers.Handler.
func ParamResultError[P, R any](f func(context.Context, P) (R, error)) peers.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var p P
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return f(withParams(ctx, params), p)
	}
}

// ParamResult adapts a function f that accepts parameters of type P and
// returns a result of type R without error, to a peers.Handler.
func ParamResult[P, R any](f func(context.Context, P) R) peers.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var p P
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return f(withParams(ctx, params), p), nil
	}
}

// ParamError adapts a function f that accepts parameters of type P and returns
// an error with no result, to a peers.Handler.
func ParamError[P any](f func(context.Context, P) error) peers.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var p P
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return nil, f(withParams(ctx, params), p)
	}
}

// ResultError adapts a function f that accepts no parameters and returns a
// result of type R and an error, to a peers.Handler.
func ResultError[R any](f func(context.Context) (R, error)) peers.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		return f(withParams(ctx, params))
	}
}

// ResultOnly adapts a function f that accepts no parameters and returns a
// result of type R without error, to a peers.Handler.
func ResultOnly[R any](f func(context.Context) R) peers.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		return f(withParams(ctx, params)), nil
	}
}

// Value returns a peers.Handler that ignores its parameters and returns v.
func Value[R any](v R) peers.Handler {
	return func(context.Context, json.RawMessage) (any, error) { return v, nil }
}

// Echo is a peers.Handler that returns its parameters as its result.
func Echo(_ context.Context, params json.RawMessage) (any, error) {
	if params == nil {
		return nil, nil
	}
	return params, nil
}

func withParams(ctx context.Context, params json.RawMessage) context.Context {
	return context.WithValue(ctx, paramsContextKey{}, params)
}

// unmarshal decodes params into v. Absent parameters leave v unmodified.
func unmarshal(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
