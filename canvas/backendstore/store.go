// Package backendstore is the authoritative canvas store, backed by a
// relational database through GORM. It implements canvas.Backend and the
// identity.Checker uniqueness contract.
package backendstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/studioflow/canvasflow/types"
)

// NodeRecord is the persisted node row. The full wire form lives in Raw;
// the extracted columns exist for indexing and filtering only.
type NodeRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID string `gorm:"size:64;uniqueIndex:idx_project_node,priority:1;index:idx_project_type,priority:1"`
	NodeID    string `gorm:"size:128;uniqueIndex:idx_project_node,priority:2"`
	Type      string `gorm:"size:32;index:idx_project_type,priority:2"`
	ParentID  string `gorm:"size:128;index"`
	Raw       string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EdgeRecord is the persisted edge row.
type EdgeRecord struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID string `gorm:"size:64;index:idx_project_edge"`
	EdgeID    string `gorm:"size:128;index:idx_project_edge"`
	Source    string `gorm:"size:128;index"`
	Target    string `gorm:"size:128;index"`
	Raw       string `gorm:"type:text"`
	CreatedAt time.Time
}

// Store implements canvas.Backend on a relational database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates the store and migrates its schema.
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&NodeRecord{}, &EdgeRecord{}); err != nil {
		return nil, fmt.Errorf("backend store migration: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "backend_store")),
	}, nil
}

// ReadNode returns one node or a NODE_NOT_FOUND error.
func (s *Store) ReadNode(ctx context.Context, projectID, nodeID string) (*types.Node, error) {
	var rec NodeRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND node_id = ?", projectID, nodeID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.Errorf(types.ErrNodeNotFound, "node %s not found", nodeID).WithNodeID(nodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("read node %s: %w", nodeID, err)
	}
	return rec.toNode(projectID)
}

// ListNodes returns every node in a project.
func (s *Store) ListNodes(ctx context.Context, projectID string) ([]*types.Node, error) {
	var recs []NodeRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	nodes := make([]*types.Node, 0, len(recs))
	for _, rec := range recs {
		node, err := rec.toNode(projectID)
		if err != nil {
			s.logger.Warn("skipping unreadable node row",
				zap.String("node_id", rec.NodeID), zap.Error(err))
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// CreateNode persists a new node. The unique (project, node) index is the
// real uniqueness guarantee behind the identity allocator.
func (s *Store) CreateNode(ctx context.Context, node *types.Node) error {
	rec, err := recordFromNode(node)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create node %s: %w", node.ID, err)
	}
	return nil
}

// UpdateNode replaces the stored form of a node.
func (s *Store) UpdateNode(ctx context.Context, node *types.Node) error {
	rec, err := recordFromNode(node)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Model(&NodeRecord{}).
		Where("project_id = ? AND node_id = ?", node.ProjectID, node.ID).
		Updates(map[string]any{
			"type":      rec.Type,
			"parent_id": rec.ParentID,
			"raw":       rec.Raw,
		})
	if result.Error != nil {
		return fmt.Errorf("update node %s: %w", node.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return types.Errorf(types.ErrNodeNotFound, "node %s not found", node.ID).WithNodeID(node.ID)
	}
	return nil
}

// SearchNodes matches nodes whose raw form contains the query text.
func (s *Store) SearchNodes(ctx context.Context, projectID, query string) ([]*types.Node, error) {
	var recs []NodeRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND raw LIKE ?", projectID, "%"+query+"%").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	nodes := make([]*types.Node, 0, len(recs))
	for _, rec := range recs {
		node, err := rec.toNode(projectID)
		if err != nil {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// ListEdges returns every edge in a project.
func (s *Store) ListEdges(ctx context.Context, projectID string) ([]*types.Edge, error) {
	var recs []EdgeRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	edges := make([]*types.Edge, 0, len(recs))
	for _, rec := range recs {
		edges = append(edges, &types.Edge{
			ID:        rec.EdgeID,
			ProjectID: projectID,
			Source:    rec.Source,
			Target:    rec.Target,
		})
	}
	return edges, nil
}

// CreateEdge persists an edge. Duplicate (source, target) suppression is
// the canvas store's job; this layer stores what it is given.
func (s *Store) CreateEdge(ctx context.Context, edge *types.Edge) error {
	raw, err := json.Marshal(edge.ToMap())
	if err != nil {
		return fmt.Errorf("marshal edge %s: %w", edge.ID, err)
	}
	rec := &EdgeRecord{
		ProjectID: edge.ProjectID,
		EdgeID:    edge.ID,
		Source:    edge.Source,
		Target:    edge.Target,
		Raw:       string(raw),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create edge %s: %w", edge.ID, err)
	}
	return nil
}

// Exists implements identity.Checker against the persisted node set.
func (s *Store) Exists(ctx context.Context, id, projectID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&NodeRecord{}).
		Where("project_id = ? AND node_id = ?", projectID, id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("id existence check: %w", err)
	}
	return count > 0, nil
}

func recordFromNode(node *types.Node) (*NodeRecord, error) {
	raw, err := json.Marshal(node.ToMap())
	if err != nil {
		return nil, fmt.Errorf("marshal node %s: %w", node.ID, err)
	}
	return &NodeRecord{
		ProjectID: node.ProjectID,
		NodeID:    node.ID,
		Type:      string(node.Type),
		ParentID:  node.ParentID,
		Raw:       string(raw),
	}, nil
}

func (rec NodeRecord) toNode(projectID string) (*types.Node, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(rec.Raw), &raw); err != nil {
		return nil, types.Errorf(types.ErrMalformedNode, "node row %s unreadable", rec.NodeID).WithCause(err)
	}
	node, err := types.NodeFromMap(projectID, rec.NodeID, raw)
	if err != nil {
		return nil, err
	}
	node.ParentID = rec.ParentID
	return node, nil
}
