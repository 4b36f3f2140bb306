package rpc

import (
	"errors"
	"fmt"

	"github.com/moby/buildkit/client/llb"

	"github.com/vk/anda/internal/buildgraph"
)

const (
	// Path is where the server accepts calls.
	Path = "/rpc"

	// Namespace prefixes every method name.
	Namespace = "builder"

	MethodCompile = Namespace + "_compile"
	// MethodJobLLB is the legacy name of MethodCompile.
	MethodJobLLB = Namespace + "_jobLLB"
)

// JSON-RPC error codes.
const (
	CodeInvalidParams = -32602
	CodeCompileFailed = -32000
	CodeCancelled     = -32001
)

// Error kinds carried in error.data.kind.
const (
	KindInvalidJobID        = "invalid_job_id"
	KindInvalidBuilderImage = "invalid_builder_image"
	KindSourceFetchInvalid  = "source_fetch_spec_invalid"
	KindCancelled           = "cancelled"
)

// CompileResult carries a compiled job. Graph is the protobuf encoded LLB
// definition, base64 in JSON.
type CompileResult struct {
	ID     string `json:"id"`
	Graph  []byte `json:"graph"`
	Digest string `json:"digest"`
}

// Decode parses the definition carried by the result.
func (r *CompileResult) Decode() (*llb.Definition, error) {
	return buildgraph.DecodeDefinition(r.Graph)
}

// Error is a JSON-RPC error object. Errors for invalid jobs unwrap to the
// matching buildgraph sentinel.
type Error struct {
	Code    int
	Message string
	kind    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *Error) ErrorCode() int { return e.Code }

// ErrorData is sent as error.data.
func (e *Error) ErrorData() interface{} {
	if e.kind == "" {
		return nil
	}
	return map[string]string{"kind": e.kind}
}

// Kind returns error.data.kind, or "".
func (e *Error) Kind() string { return e.kind }

func (e *Error) Unwrap() error {
	switch e.kind {
	case KindInvalidJobID:
		return buildgraph.ErrInvalidJobID
	case KindInvalidBuilderImage:
		return buildgraph.ErrInvalidBuilderImage
	case KindSourceFetchInvalid:
		return buildgraph.ErrSourceFetchSpecInvalid
	default:
		return nil
	}
}

func newError(code int, kind, msg string) *Error {
	return &Error{Code: code, Message: msg, kind: kind}
}

// compileError maps a Compile failure onto the wire.
func compileError(err error) *Error {
	switch {
	case errors.Is(err, buildgraph.ErrInvalidJobID):
		return newError(CodeInvalidParams, KindInvalidJobID, err.Error())
	case errors.Is(err, buildgraph.ErrInvalidBuilderImage):
		return newError(CodeCompileFailed, KindInvalidBuilderImage, err.Error())
	case errors.Is(err, buildgraph.ErrSourceFetchSpecInvalid):
		return newError(CodeCompileFailed, KindSourceFetchInvalid, err.Error())
	default:
		return newError(CodeCompileFailed, "", err.Error())
	}
}
