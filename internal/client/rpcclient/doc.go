// Package rpcclient talks to the gophaccounts JSON-RPC endpoint.
//
// # Overview
//
// Client is the transport-agnostic contract used by the CLI; JSONRPCClient
// implements it over HTTP with a pooled go-cleanhttp client. Every call
// returns the server envelope unchanged, so "error" envelopes are data, not
// Go errors.
//
// # Error Handling
//
// Go errors are reserved for conditions where no envelope came back:
//   - ErrUnavailable: the server could not be reached, answered with a
//     non-JSON body or reported an internal error (-32603).
//   - *RPCError: any other JSON-RPC error object (bad params, rate limit).
//
// The remembered API key is sent as "Authorization: Bearer <key>".
package rpcclient
