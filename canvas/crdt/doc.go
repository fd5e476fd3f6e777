// Package crdt holds the replicated canvas document and the websocket
// connection that keeps it in sync with other clients.
//
// The document is an eventually-consistent map of raw node/edge records.
// Local mutations are applied to the document first, then propagated
// (local-first ordering); remote updates are applied in receipt order.
// There is no global ordering guarantee across independently connected
// processes.
package crdt

import (
	"sync"
	"sync/atomic"
)

// Update describes one document mutation, local or remote. Nodes and edges
// map record id to its raw map form. A nil record value removes the entry.
type Update struct {
	Nodes map[string]map[string]any
	Edges map[string]map[string]any
}

// UpdateHandler receives locally authored updates for propagation.
type UpdateHandler func(Update)

// Doc is the in-memory replica of the shared canvas document.
type Doc struct {
	mu    sync.RWMutex
	nodes map[string]map[string]any
	edges map[string]map[string]any

	subMu     sync.Mutex
	subs      map[int]UpdateHandler
	nextSubID int

	connected atomic.Bool
}

// NewDoc creates an empty document replica.
func NewDoc() *Doc {
	return &Doc{
		nodes: make(map[string]map[string]any),
		edges: make(map[string]map[string]any),
		subs:  make(map[int]UpdateHandler),
	}
}

// Connected reports whether a live sync connection backs this replica.
func (d *Doc) Connected() bool { return d.connected.Load() }

// SetConnected flips the connectivity flag; owned by the connection actor.
func (d *Doc) SetConnected(v bool) { d.connected.Store(v) }

// GetNode returns the raw record for a node id.
func (d *Doc) GetNode(id string) (map[string]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	raw, ok := d.nodes[id]
	if !ok {
		return nil, false
	}
	return deepCopy(raw), true
}

// GetAllNodes returns a snapshot of every node record.
func (d *Doc) GetAllNodes() map[string]map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]map[string]any, len(d.nodes))
	for id, raw := range d.nodes {
		out[id] = deepCopy(raw)
	}
	return out
}

// GetAllEdges returns a snapshot of every edge record.
func (d *Doc) GetAllEdges() map[string]map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]map[string]any, len(d.edges))
	for id, raw := range d.edges {
		out[id] = deepCopy(raw)
	}
	return out
}

// AddNode inserts a node record and propagates it.
func (d *Doc) AddNode(id string, raw map[string]any) {
	d.BatchUpdateGraph(map[string]map[string]any{id: raw}, nil)
}

// UpdateNode merges keys into an existing node record (or creates it) and
// propagates the merged form.
func (d *Doc) UpdateNode(id string, patch map[string]any) {
	d.mu.Lock()
	merged := mergeRecord(d.nodes[id], patch)
	d.nodes[id] = merged
	d.mu.Unlock()

	d.notify(Update{Nodes: map[string]map[string]any{id: deepCopy(merged)}})
}

// AddEdge inserts an edge record and propagates it.
func (d *Doc) AddEdge(id string, raw map[string]any) {
	d.BatchUpdateGraph(nil, map[string]map[string]any{id: raw})
}

// BatchUpdateGraph applies a set of node/edge upserts as one transaction:
// a single lock acquisition and a single propagation notification. This is
// the only multi-record write path with atomic visibility.
func (d *Doc) BatchUpdateGraph(nodes, edges map[string]map[string]any) {
	if len(nodes) == 0 && len(edges) == 0 {
		return
	}

	update := Update{}
	d.mu.Lock()
	if len(nodes) > 0 {
		update.Nodes = make(map[string]map[string]any, len(nodes))
		for id, raw := range nodes {
			merged := mergeRecord(d.nodes[id], raw)
			d.nodes[id] = merged
			update.Nodes[id] = deepCopy(merged)
		}
	}
	if len(edges) > 0 {
		update.Edges = make(map[string]map[string]any, len(edges))
		for id, raw := range edges {
			merged := mergeRecord(d.edges[id], raw)
			d.edges[id] = merged
			update.Edges[id] = deepCopy(merged)
		}
	}
	d.mu.Unlock()

	d.notify(update)
}

// ApplyRemote merges a remotely authored update without re-propagating it.
func (d *Doc) ApplyRemote(update Update) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, raw := range update.Nodes {
		if raw == nil {
			delete(d.nodes, id)
			continue
		}
		d.nodes[id] = mergeRecord(d.nodes[id], raw)
	}
	for id, raw := range update.Edges {
		if raw == nil {
			delete(d.edges, id)
			continue
		}
		d.edges[id] = mergeRecord(d.edges[id], raw)
	}
}

// Subscribe registers a handler for locally authored updates. The returned
// function removes the subscription.
func (d *Doc) Subscribe(handler UpdateHandler) func() {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	id := d.nextSubID
	d.nextSubID++
	d.subs[id] = handler
	return func() {
		d.subMu.Lock()
		defer d.subMu.Unlock()
		delete(d.subs, id)
	}
}

func (d *Doc) notify(update Update) {
	d.subMu.Lock()
	handlers := make([]UpdateHandler, 0, len(d.subs))
	for _, h := range d.subs {
		handlers = append(handlers, h)
	}
	d.subMu.Unlock()

	for _, h := range handlers {
		h(update)
	}
}

// mergeRecord overlays patch keys on top of base, merging the nested
// "data" map key-wise so a partial data patch does not clobber unrelated
// data fields.
func mergeRecord(base, patch map[string]any) map[string]any {
	if base == nil {
		return deepCopy(patch)
	}
	out := deepCopy(base)
	for k, v := range patch {
		if k == "data" {
			patchData, pok := v.(map[string]any)
			baseData, bok := out["data"].(map[string]any)
			if pok && bok {
				for dk, dv := range patchData {
					baseData[dk] = dv
				}
				continue
			}
		}
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
