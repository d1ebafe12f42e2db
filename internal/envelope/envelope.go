// Package envelope defines the response shape shared by every RPC method:
// a JSON object with a "code" of "ok" or "error", a "message", and any
// number of method-specific fields.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

type Code string

const (
	CodeOK    Code = "ok"
	CodeError Code = "error"
)

// ErrInvalidCode is returned when a response is built with a code other
// than CodeOK or CodeError.
var ErrInvalidCode = errors.New("envelope: code must be \"ok\" or \"error\"")

const (
	keyCode    = "code"
	keyMessage = "message"
)

// Response is an RPC result envelope.
type Response struct {
	Code    Code
	Message string
	fields  map[string]any
}

// NewResponse builds a response, rejecting unknown codes.
func NewResponse(code Code, message string) (*Response, error) {
	if code != CodeOK && code != CodeError {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return &Response{Code: code, Message: message}, nil
}

func OK(message string) *Response {
	return &Response{Code: CodeOK, Message: message}
}

func Error(message string) *Response {
	return &Response{Code: CodeError, Message: message}
}

// With sets an extra field and returns r. The reserved keys "code" and
// "message" are left untouched.
func (r *Response) With(key string, value any) *Response {
	if key == keyCode || key == keyMessage {
		return r
	}
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	r.fields[key] = value
	return r
}

// Get returns an extra field.
func (r *Response) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// String returns an extra field as a string, or "" when absent or of
// another type.
func (r *Response) String(key string) string {
	s, _ := r.fields[key].(string)
	return s
}

// Keys returns the extra field names in sorted order.
func (r *Response) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Response) IsOK() bool { return r.Code == CodeOK }

func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Code != CodeOK && r.Code != CodeError {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, r.Code)
	}
	out := make(map[string]any, len(r.fields)+2)
	for k, v := range r.fields {
		out[k] = v
	}
	out[keyCode] = r.Code
	out[keyMessage] = r.Message
	return json.Marshal(out)
}

func (r *Response) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var code Code
	if err := json.Unmarshal(raw[keyCode], &code); err != nil {
		return fmt.Errorf("envelope: code: %w", err)
	}
	if code != CodeOK && code != CodeError {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	var message string
	if m, ok := raw[keyMessage]; ok {
		if err := json.Unmarshal(m, &message); err != nil {
			return fmt.Errorf("envelope: message: %w", err)
		}
	}

	r.Code, r.Message, r.fields = code, message, nil
	for k, v := range raw {
		if k == keyCode || k == keyMessage {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("envelope: %s: %w", k, err)
		}
		r.With(k, val)
	}
	return nil
}
