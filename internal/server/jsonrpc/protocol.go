// Package jsonrpc serves the RPC methods as JSON-RPC 2.0 over HTTP POST.
// Requests may carry named (object) or positional (array) params, may be
// batched, and may be notifications (no id), which get no response.
package jsonrpc

import (
	"bytes"
	"encoding/json"
)

const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

var nullID = json.RawMessage("null")

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{JSONRPC: Version, Error: &Error{Code: code, Message: msg}, ID: id}
}

// isBatch reports whether the payload is a JSON array.
func isBatch(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
