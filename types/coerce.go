package types

import (
	"encoding/json"
	"fmt"
)

// NodeFromMap coerces a raw store representation (CRDT map entry, backend
// JSON row) into a typed Node. This is the single deserialization boundary:
// heterogeneous key probing happens here and nowhere else.
//
// Returns ErrMalformedNode when the record cannot be coerced after all
// fallback keys are exhausted.
func NodeFromMap(projectID, nodeID string, raw map[string]any) (*Node, error) {
	if raw == nil {
		return nil, Errorf(ErrMalformedNode, "node %s: nil record", nodeID).WithNodeID(nodeID)
	}

	n := &Node{ID: nodeID, ProjectID: projectID}
	if n.ID == "" {
		n.ID = stringKey(raw, "id", "node_id", "nodeId")
	}
	if n.ID == "" {
		return nil, NewError(ErrMalformedNode, "node record has no id")
	}

	typ := stringKey(raw, "type", "node_type", "nodeType")
	if typ == "" {
		return nil, Errorf(ErrMalformedNode, "node %s: no type", n.ID).WithNodeID(n.ID)
	}
	n.Type = NodeType(typ)
	n.ParentID = stringKey(raw, "parent_id", "parentId", "parentNode")

	if pos, ok := raw["position"].(map[string]any); ok {
		n.X = floatKey(pos, "x")
		n.Y = floatKey(pos, "y")
	}
	n.Width = floatKey(raw, "width")
	n.Height = floatKey(raw, "height")

	data, _ := raw["data"].(map[string]any)
	if data == nil {
		// Some authors flatten data keys onto the record itself.
		data = raw
	}
	n.Data = nodeDataFromMap(data)
	return n, nil
}

func nodeDataFromMap(data map[string]any) NodeData {
	d := NodeData{
		Label:        stringKey(data, "label"),
		Content:      stringKey(data, "content"),
		Prompt:       stringKey(data, "prompt"),
		Text:         stringKey(data, "text"),
		Value:        stringKey(data, "value"),
		ActionType:   ActionType(stringKey(data, "actionType", "action_type")),
		AssetID:      stringKey(data, "assetId", "asset_id"),
		SourceNodeID: stringKey(data, "sourceNodeId", "source_node_id"),
		Status:       AssetStatus(stringKey(data, "status")),
		Src:          stringKey(data, "src"),
		URL:          stringKey(data, "url"),
		Base64:       stringKey(data, "base64"),
		Model:        stringKey(data, "model"),
	}
	d.UpstreamNodeIDs = stringSliceKey(data, "upstreamNodeIds", "upstream_node_ids")
	d.ReferenceImages = stringSliceKey(data, "referenceImages", "reference_images")
	switch v := data["duration"].(type) {
	case float64:
		d.Duration = int(v)
	case int:
		d.Duration = v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			d.Duration = int(i)
		}
	}
	return d
}

// ToMap serializes a Node back into the wire/map shape shared with other
// canvas clients.
func (n *Node) ToMap() map[string]any {
	data := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			data[k] = v
		}
	}
	put("label", n.Data.Label)
	put("content", n.Data.Content)
	put("prompt", n.Data.Prompt)
	put("text", n.Data.Text)
	put("value", n.Data.Value)
	put("actionType", string(n.Data.ActionType))
	put("assetId", n.Data.AssetID)
	put("sourceNodeId", n.Data.SourceNodeID)
	put("status", string(n.Data.Status))
	put("src", n.Data.Src)
	put("url", n.Data.URL)
	put("base64", n.Data.Base64)
	put("model", n.Data.Model)
	if len(n.Data.UpstreamNodeIDs) > 0 {
		data["upstreamNodeIds"] = toAnySlice(n.Data.UpstreamNodeIDs)
	}
	if len(n.Data.ReferenceImages) > 0 {
		data["referenceImages"] = toAnySlice(n.Data.ReferenceImages)
	}
	if n.Data.Duration > 0 {
		data["duration"] = n.Data.Duration
	}
	for k, v := range n.Data.Extra {
		data[k] = v
	}

	m := map[string]any{
		"id":   n.ID,
		"type": string(n.Type),
		"data": data,
		"position": map[string]any{
			"x": n.X,
			"y": n.Y,
		},
	}
	if n.ParentID != "" {
		m["parent_id"] = n.ParentID
	}
	return m
}

// EdgeFromMap coerces a raw edge record.
func EdgeFromMap(projectID, edgeID string, raw map[string]any) (*Edge, error) {
	if raw == nil {
		return nil, NewError(ErrMalformedNode, "nil edge record")
	}
	e := &Edge{
		ID:           edgeID,
		ProjectID:    projectID,
		Source:       stringKey(raw, "source", "from"),
		Target:       stringKey(raw, "target", "to"),
		SourceHandle: stringKey(raw, "sourceHandle", "source_handle"),
		TargetHandle: stringKey(raw, "targetHandle", "target_handle"),
	}
	if e.ID == "" {
		e.ID = stringKey(raw, "id")
	}
	if e.Source == "" || e.Target == "" {
		return nil, Errorf(ErrMalformedNode, "edge %s: missing endpoints", edgeID)
	}
	return e, nil
}

// ToMap serializes an Edge into the wire/map shape.
func (e *Edge) ToMap() map[string]any {
	m := map[string]any{
		"id":     e.ID,
		"source": e.Source,
		"target": e.Target,
	}
	if e.SourceHandle != "" {
		m["sourceHandle"] = e.SourceHandle
	}
	if e.TargetHandle != "" {
		m["targetHandle"] = e.TargetHandle
	}
	return m
}

func stringKey(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case fmt.Stringer:
			if s := v.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

func floatKey(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func stringSliceKey(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []string:
			if len(v) > 0 {
				out := make([]string, len(v))
				copy(out, v)
				return out
			}
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
