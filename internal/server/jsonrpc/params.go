package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
)

// MethodFunc runs one method with its raw params.
type MethodFunc func(ctx context.Context, params json.RawMessage) (*envelope.Response, error)

// Bind adapts a typed handler to a MethodFunc. names gives the parameter
// order used for positional params; named params are decoded directly.
func Bind[P any](names []string, fn func(context.Context, P) (*envelope.Response, error)) MethodFunc {
	return func(ctx context.Context, raw json.RawMessage) (*envelope.Response, error) {
		var p P
		if err := decodeParams(raw, names, &p); err != nil {
			return nil, &Error{Code: CodeInvalidParams, Message: err.Error()}
		}
		return fn(ctx, p)
	}
}

func decodeParams(raw json.RawMessage, names []string, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '{':
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
		return nil
	case '[':
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
		if len(positional) > len(names) {
			return fmt.Errorf("invalid params: expected at most %d, got %d", len(names), len(positional))
		}
		named := make(map[string]json.RawMessage, len(positional))
		for i, v := range positional {
			named[names[i]] = v
		}
		b, err := json.Marshal(named)
		if err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
		if err := json.Unmarshal(b, dst); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
		return nil
	}
	return fmt.Errorf("invalid params: must be an object or an array")
}
