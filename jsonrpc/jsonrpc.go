// Package jsonrpc is a thin envelope for driving the SDK from another
// process: requests name an operation, responses carry its typed result or a
// taxonomy error in wire form. It is a convenience layer, not part of the
// protocol engine.
package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the wire form of a taxonomy error.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler runs one registered method. Params arrive as raw JSON; the handler
// owns decoding them.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Router dispatches requests to registered methods.
type Router struct {
	methods map[string]Handler
}

func NewRouter() *Router {
	return &Router{methods: map[string]Handler{}}
}

// Register binds a method name. Registering twice replaces the handler.
func (r *Router) Register(method string, handler Handler) {
	r.methods[method] = handler
}

// RegisterTyped adapts a handler with typed params.
func RegisterTyped[P any, R any](r *Router, method string, run func(ctx context.Context, params P) (R, error)) {
	r.Register(method, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, sdkerrors.Wrap(sdkerrors.CodeDecodingFailed, err)
			}
		}
		return run(ctx, params)
	})
}

// Handle runs one request and builds its response.
func (r *Router) Handle(ctx context.Context, req *Request) *Response {
	resp := &Response{JSONRPC: "2.0", ID: req.ID}

	handler, ok := r.methods[req.Method]
	if !ok {
		resp.Error = &ResponseError{
			Code:    int(sdkerrors.CodeUnsupportedCommand),
			Message: "unknown method " + req.Method,
		}
		return resp
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		resp.Error = toResponseError(err)
		return resp
	}
	resp.Result = result
	return resp
}

// HandleRaw decodes a raw request, runs it and encodes the response.
func (r *Router) HandleRaw(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		out, _ := json.Marshal(&Response{
			JSONRPC: "2.0",
			Error: &ResponseError{
				Code:    int(sdkerrors.CodeDecodingFailed),
				Message: "malformed request",
			},
		})
		return out
	}
	out, _ := json.Marshal(r.Handle(ctx, &req))
	return out
}

func toResponseError(err error) *ResponseError {
	if e := sdkerrors.FromError(err); e != nil {
		return &ResponseError{Code: int(e.Code), Message: e.Description()}
	}
	return &ResponseError{Code: int(sdkerrors.CodeUnknownError), Message: err.Error()}
}
