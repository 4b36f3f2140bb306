// Package buildgraph lowers a build job into a BuildKit LLB definition that an
// external sandboxed executor runs. Nothing here executes anything.
//
// Compile produces a Graph, a linear list of operations that is easy to
// inspect: every operation after the root PullImage has exactly one
// predecessor, the operation before it. The wire form is the LLB definition
// the Graph lowers to, encoded with protobuf.
package buildgraph
