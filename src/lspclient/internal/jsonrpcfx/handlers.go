package jsonrpcfx

import (
	"context"
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Handlers wraps handler the way protocol.Handlers does: inbound calls run one after another, every
// call must be replied to exactly once, and $/cancelRequest cancels the context of a running call.
func Handlers(handler jsonrpc2.Handler) jsonrpc2.Handler {
	return CancelHandler(jsonrpc2.AsyncHandler(jsonrpc2.ReplyHandler(handler)))
}

// CancelHandler handles $/cancelRequest for calls served by handler.
// Request ids arrive as JSON numbers or strings; both are accepted.
func CancelHandler(handler jsonrpc2.Handler) jsonrpc2.Handler {
	inner, canceller := jsonrpc2.CancelHandler(handler)

	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() != protocol.MethodCancelRequest {
			// A canceled call is still answered, so the reply must not inherit the cancellation.
			detached := func(ctx context.Context, result interface{}, err error) error {
				if ctx.Err() != nil && err == nil {
					err = protocol.ErrRequestCancelled
				}
				return reply(context.WithoutCancel(ctx), result, err)
			}
			return inner(ctx, detached, req)
		}

		id, err := ParseCancelID(req.Params())
		if err != nil {
			return reply(ctx, nil, fmt.Errorf("%s: %w", jsonrpc2.ErrParse, err))
		}
		canceller(id)
		return reply(ctx, nil, nil)
	}
}

// ParseCancelID decodes the id of a $/cancelRequest notification.
func ParseCancelID(params json.RawMessage) (jsonrpc2.ID, error) {
	var raw struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(params, &raw); err != nil {
		return jsonrpc2.ID{}, err
	}

	var name string
	if err := json.Unmarshal(raw.ID, &name); err == nil {
		return jsonrpc2.NewStringID(name), nil
	}

	var number json.Number
	if err := json.Unmarshal(raw.ID, &number); err != nil {
		return jsonrpc2.ID{}, fmt.Errorf("request ID %s malformed", raw.ID)
	}
	n, err := number.Int64()
	if err != nil {
		return jsonrpc2.ID{}, fmt.Errorf("request ID %s malformed", raw.ID)
	}
	return jsonrpc2.NewNumberID(int32(n)), nil
}
