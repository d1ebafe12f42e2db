package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophaccounts/internal/logging"
	"github.com/dmitrijs2005/gophaccounts/internal/server/metrics"
)

// Dispatcher routes JSON-RPC requests on one endpoint to registered
// methods.
type Dispatcher struct {
	methods map[string]MethodFunc
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(logger logging.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{methods: make(map[string]MethodFunc), logger: logger, metrics: m}
}

// Register adds a method. Registering a name twice replaces the first.
func (d *Dispatcher) Register(name string, fn MethodFunc) *Dispatcher {
	d.methods[name] = fn
	return d
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(nil, CodeInvalidRequest, "request too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse(nil, CodeParseError, "parse error"))
		return
	}

	ctx := r.Context()

	if !isBatch(body) {
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusOK, errorResponse(nil, CodeParseError, "parse error"))
			return
		}
		resp := d.handle(ctx, &req)
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, statusFor(resp), resp)
		return
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, CodeParseError, "parse error"))
		return
	}
	if len(batch) == 0 {
		writeJSON(w, http.StatusOK, errorResponse(nil, CodeInvalidRequest, "empty batch"))
		return
	}

	out := make([]*Response, 0, len(batch))
	for _, raw := range batch {
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			out = append(out, errorResponse(nil, CodeInvalidRequest, "invalid request"))
			continue
		}
		if resp := d.handle(ctx, &req); resp != nil {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handle runs one request and returns nil for notifications.
func (d *Dispatcher) handle(ctx context.Context, req *Request) *Response {
	resp := d.call(ctx, req)
	if req.IsNotification() {
		return nil
	}
	return resp
}

func (d *Dispatcher) call(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != Version || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request")
	}

	fn, ok := d.methods[req.Method]
	if !ok {
		d.metrics.RPC("http", "unknown", "method_not_found")
		return errorResponse(req.ID, CodeMethodNotFound, "method not found")
	}

	env, err := fn(ctx, req.Params)
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			d.metrics.RPC("http", req.Method, "invalid_params")
			return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
		}
		d.metrics.RPC("http", req.Method, "internal_error")
		d.logger.Error(ctx, "method failed", "method", req.Method, "error", err)
		return errorResponse(req.ID, CodeInternalError, "internal error")
	}

	d.metrics.RPC("http", req.Method, string(env.Code))
	id := req.ID
	if len(id) == 0 {
		id = nullID
	}
	return &Response{JSONRPC: Version, Result: env, ID: id}
}

func statusFor(resp *Response) int {
	if resp.Error != nil && resp.Error.Code == CodeInternalError {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
