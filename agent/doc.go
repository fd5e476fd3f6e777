// Package agent contains the supervisor loop, the canvas toolset, and the
// per-run sub-agent registry.
//
// The supervisor ("Director") drives a streaming model conversation,
// executes tools, and delegates to one sub-agent at a time. Cancellation is
// cooperative throughout: the interrupt coordinator's flag is consulted at
// every model call, every tool call, and between streamed tokens.
package agent
