// Package kit holds the transport-agnostic endpoint plumbing: a service
// operation is an Endpoint, and HTTP or MCP adapters decode their own wire
// format before calling it.
package kit

import "context"

// Endpoint is one service operation, independent of transport.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares left to right: the first runs outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
