package graph

import (
	"strings"
	"time"

	"github.com/nullsweep/camap/api/schemas"
	"go.uber.org/zap"
)

// Graph is the run-scoped node/edge index the builder writes into. Node
// identity is first-writer-wins by id; edge identity is at most one per
// (from, to, relationship) triple. Both guards make re-processing identical
// input idempotent. A Graph belongs to a single sequential run and is not
// safe for concurrent use.
type Graph struct {
	nodes     map[string]schemas.Node
	nodeOrder []string
	edges     map[string]schemas.Edge
	edgeOrder []string
	log       *zap.Logger
}

// New creates an empty graph.
func New(logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Graph{
		nodes: make(map[string]schemas.Node),
		edges: make(map[string]schemas.Edge),
		log:   logger.Named("graph"),
	}
}

// AddNode inserts a node unless one already exists under the same id. The
// first writer wins; it reports whether the node was inserted.
func (g *Graph) AddNode(n schemas.Node) bool {
	if _, exists := g.nodes[n.ID]; exists {
		return false
	}
	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.log.Debug("Node added", zap.String("id", n.ID), zap.String("type", string(n.Type)))
	return true
}

// HasNode reports whether a node exists for the id.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

func edgeKey(e schemas.Edge) string {
	return strings.Join([]string{e.From, e.To, e.Relationship}, "|")
}

// AddEdge inserts an edge unless one already exists for the same
// (from, to, relationship) triple. It reports whether the edge was inserted.
func (g *Graph) AddEdge(e schemas.Edge) bool {
	key := edgeKey(e)
	if _, exists := g.edges[key]; exists {
		return false
	}
	g.edges[key] = e
	g.edgeOrder = append(g.edgeOrder, key)
	g.log.Debug("Edge added",
		zap.String("from", e.From), zap.String("to", e.To), zap.String("relationship", e.Relationship))
	return true
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []schemas.Node {
	out := make([]schemas.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []schemas.Edge {
	out := make([]schemas.Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		out = append(out, g.edges[key])
	}
	return out
}

// Export wraps the graph in the envelope handed to downstream consumers.
func (g *Graph) Export(metadata map[string]interface{}) *schemas.GraphExport {
	return &schemas.GraphExport{
		GeneratedAt: time.Now().UTC(),
		Metadata:    metadata,
		Nodes:       g.Nodes(),
		Edges:       g.Edges(),
	}
}
