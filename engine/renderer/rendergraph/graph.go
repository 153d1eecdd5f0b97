package rendergraph

import (
	"github.com/spaghettifunk/anima-pipeline/engine/core"
)

// NodeID identifies a vertex of the render graph.
type NodeID uint32

const NullNode = ^NodeID(0)

type vertex struct {
	name     string
	layout   string
	parent   NodeID
	children []NodeID
	node     Node
	data     *RenderData
}

// Graph is the per-frame render graph: a forest of passes, each owning a tree
// of subpasses, queues and draw scopes. Every vertex carries its own render
// data; the global render data applies to all of them.
type Graph struct {
	vertices []vertex
	roots    []NodeID
	global   *RenderData
}

func NewGraph() *Graph {
	return &Graph{global: NewRenderData()}
}

// AddNode appends node under parent (NullNode for a pass). layout is the name
// of the layout the node binds against; queues and draw scopes leave it empty.
func (g *Graph) AddNode(parent NodeID, name, layout string, node Node) NodeID {
	core.Expects(node != nil, "node %q is nil", name)
	id := NodeID(len(g.vertices))
	g.vertices = append(g.vertices, vertex{
		name:   name,
		layout: layout,
		parent: parent,
		node:   node,
		data:   NewRenderData(),
	})
	if parent == NullNode {
		g.roots = append(g.roots, id)
	} else {
		g.checkID(parent)
		g.vertices[parent].children = append(g.vertices[parent].children, id)
	}
	return id
}

func (g *Graph) checkID(id NodeID) {
	core.Expects(int(id) < len(g.vertices), "render graph node %d out of range", id)
}

func (g *Graph) Len() int {
	return len(g.vertices)
}

func (g *Graph) Roots() []NodeID {
	return g.roots
}

func (g *Graph) Node(id NodeID) Node {
	g.checkID(id)
	return g.vertices[id].node
}

func (g *Graph) Name(id NodeID) string {
	g.checkID(id)
	return g.vertices[id].name
}

func (g *Graph) Layout(id NodeID) string {
	g.checkID(id)
	return g.vertices[id].layout
}

func (g *Graph) Data(id NodeID) *RenderData {
	g.checkID(id)
	return g.vertices[id].data
}

func (g *Graph) Parent(id NodeID) NodeID {
	g.checkID(id)
	return g.vertices[id].parent
}

func (g *Graph) Children(id NodeID) []NodeID {
	g.checkID(id)
	return g.vertices[id].children
}

func (g *Graph) Global() *RenderData {
	return g.global
}

// FindPass returns the root node named name.
func (g *Graph) FindPass(name string) (NodeID, bool) {
	for _, id := range g.roots {
		if g.vertices[id].name == name {
			return id, true
		}
	}
	return NullNode, false
}
