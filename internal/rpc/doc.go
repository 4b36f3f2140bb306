// Package rpc exposes build graph compilation as JSON-RPC 2.0 methods over
// HTTP, served and called with go-ethereum's rpc package. Compilation is
// idempotent, so callers may retry on transport errors.
package rpc
