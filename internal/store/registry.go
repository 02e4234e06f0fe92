package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jengzang/geoevents-backend-go/internal/models"
)

// Registry persists node identities as a single JSON document that is
// rewritten wholesale on every registration. Each rewrite goes through
// a temp file + rename so a crash never leaves a torn document, but
// there is no locking: two concurrent registrations racing on the
// read-modify-write can lose one of the writes. Last write wins.
type Registry struct {
	path string
}

// NewRegistry creates a registry backed by the given nodes file
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the registry file path
func (r *Registry) Path() string {
	return r.path
}

// Load reads the full nodes document. A missing file yields an empty
// document, not an error.
func (r *Registry) Load() (*models.NodesDocument, error) {
	doc := &models.NodesDocument{Nodes: make(map[string]models.Node)}

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes file: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse nodes file: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = make(map[string]models.Node)
	}
	return doc, nil
}

// Save rewrites the whole nodes document atomically (write-then-rename)
func (r *Registry) Save(doc *models.NodesDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "nodes-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp nodes file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write nodes file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close nodes file: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace nodes file: %w", err)
	}
	return nil
}

// Create adds a node via read-modify-write of the whole document
func (r *Registry) Create(node models.Node) error {
	doc, err := r.Load()
	if err != nil {
		return err
	}
	doc.Nodes[node.NodeID] = node
	return r.Save(doc)
}

// Get looks up a node by id
func (r *Registry) Get(nodeID string) (*models.Node, error) {
	doc, err := r.Load()
	if err != nil {
		return nil, err
	}
	node, ok := doc.Nodes[nodeID]
	if !ok {
		return nil, nil
	}
	return &node, nil
}

// FindByToken looks up a node by its bearer token. Returns nil when no
// node carries the token.
func (r *Registry) FindByToken(token string) (*models.Node, error) {
	if token == "" {
		return nil, nil
	}
	doc, err := r.Load()
	if err != nil {
		return nil, err
	}
	for _, node := range doc.Nodes {
		if node.Token == token {
			n := node
			return &n, nil
		}
	}
	return nil, nil
}

// Count returns the number of registered nodes
func (r *Registry) Count() (int, error) {
	doc, err := r.Load()
	if err != nil {
		return 0, err
	}
	return len(doc.Nodes), nil
}
