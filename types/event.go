package types

import "time"

// StreamEventType is the kind of a normalized client-facing event.
type StreamEventType string

const (
	EventToolStart    StreamEventType = "tool_start"
	EventToolEnd      StreamEventType = "tool_end"
	EventNodeProposal StreamEventType = "node_proposal"
	EventThinking     StreamEventType = "thinking"
	EventText         StreamEventType = "text"
)

// StreamEvent is a normalized event emitted to the client. Every event
// carries the resolved (Agent, AgentID) pair so interleaved output from
// concurrently running sub-agents can be grouped correctly.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	ID        string          `json:"id,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	Result    string          `json:"result,omitempty"`
	Status    string          `json:"status,omitempty"`
	Text      string          `json:"text,omitempty"`
	Proposal  map[string]any  `json:"proposal,omitempty"`
	Agent     string          `json:"agent"`
	AgentID   string          `json:"agent_id"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// EventSink consumes normalized stream events. Implemented by the SSE
// emitter outside this core; tests use in-memory sinks.
type EventSink interface {
	Emit(event StreamEvent)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(StreamEvent)

// Emit implements EventSink.
func (f SinkFunc) Emit(event StreamEvent) { f(event) }
