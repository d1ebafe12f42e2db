package rpcclient

import (
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("server unavailable")

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

const codeInternalError = -32603
