package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/vk/anda/internal/buildgraph"
)

// TransportError is a failure to complete the exchange: the request never
// got a well-formed answer. Retrying is safe.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rpc %s: unexpected HTTP status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("rpc %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client calls a compile server.
type Client struct {
	rpc *gethrpc.Client
}

// Dial returns a client for the server at baseURL. A nil httpClient means
// http.DefaultClient. No connection is made until the first call.
func Dial(ctx context.Context, baseURL string, httpClient *http.Client) (*Client, error) {
	var opts []gethrpc.ClientOption
	if httpClient != nil {
		opts = append(opts, gethrpc.WithHTTPClient(httpClient))
	}
	c, err := gethrpc.DialOptions(ctx, strings.TrimRight(baseURL, "/")+Path, opts...)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// Compile asks the server to compile spec. Server-side rejections are
// returned as *Error, everything else as *TransportError.
func (c *Client) Compile(ctx context.Context, spec buildgraph.JobSpec) (*CompileResult, error) {
	var res CompileResult
	if err := c.rpc.CallContext(ctx, &res, MethodCompile, spec); err != nil {
		return nil, callError(err)
	}
	return &res, nil
}

func callError(err error) error {
	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		return &TransportError{Op: "send", StatusCode: httpErr.StatusCode, Err: err}
	}
	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		e := &Error{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		var dataErr gethrpc.DataError
		if errors.As(err, &dataErr) {
			if data, ok := dataErr.ErrorData().(map[string]interface{}); ok {
				e.kind, _ = data["kind"].(string)
			}
		}
		return e
	}
	return &TransportError{Op: "call", Err: err}
}
