package layoutgraph

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
)

// Graph is the static binding metadata of every named scope: a forest of
// layouts, plus the attribute and constant name indices shared by all of
// them.
type Graph struct {
	layouts []*Layout
	roots   map[string]LayoutID

	attributes *core.IdentifierTable
	constants  *core.IdentifierTable
}

func NewGraph() *Graph {
	return &Graph{
		roots:      make(map[string]LayoutID),
		attributes: core.NewIdentifierTable(),
		constants:  core.NewIdentifierTable(),
	}
}

// AddLayout adds a layout named name under parent (NullLayout for a root).
func (g *Graph) AddLayout(parent LayoutID, name string) (LayoutID, error) {
	if name == "" || strings.Contains(name, "/") {
		return NullLayout, fmt.Errorf("invalid layout name %q", name)
	}
	siblings := g.roots
	if parent != NullLayout {
		if int(parent) >= len(g.layouts) {
			return NullLayout, fmt.Errorf("parent layout %d of %q does not exist", parent, name)
		}
		p := g.layouts[parent]
		if p.children == nil {
			p.children = make(map[string]LayoutID)
		}
		siblings = p.children
	}
	if _, ok := siblings[name]; ok {
		return NullLayout, fmt.Errorf("layout %q already exists under %s", name, g.Path(parent))
	}
	id := LayoutID(len(g.layouts))
	g.layouts = append(g.layouts, &Layout{
		ID:             id,
		Name:           name,
		Parent:         parent,
		DescriptorSets: make(map[UpdateFrequency]*DescriptorSetLayoutData),
	})
	siblings[name] = id
	return id, nil
}

// Locate finds the layout at path relative to parent. Path segments are
// separated by '/'; a leading '/' makes the path absolute. NullLayout is
// returned when any segment is missing.
func (g *Graph) Locate(parent LayoutID, path string) LayoutID {
	if strings.HasPrefix(path, "/") {
		parent = NullLayout
		path = strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return NullLayout
	}
	current := parent
	for _, segment := range strings.Split(path, "/") {
		siblings := g.roots
		if current != NullLayout {
			if int(current) >= len(g.layouts) {
				return NullLayout
			}
			siblings = g.layouts[current].children
		}
		next, ok := siblings[segment]
		if !ok {
			return NullLayout
		}
		current = next
	}
	return current
}

// Layout returns the layout with the given id. The id must be valid.
func (g *Graph) Layout(id LayoutID) *Layout {
	core.Expects(id != NullLayout && int(id) < len(g.layouts), "layout id %d out of range", id)
	return g.layouts[id]
}

func (g *Graph) Len() int {
	return len(g.layouts)
}

// Path returns the absolute path of id.
func (g *Graph) Path(id LayoutID) string {
	if id == NullLayout || int(id) >= len(g.layouts) {
		return "/"
	}
	var segments []string
	for current := id; current != NullLayout; current = g.layouts[current].Parent {
		segments = append(segments, g.layouts[current].Name)
	}
	var b strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(segments[i])
	}
	return b.String()
}

// SetDescriptorSet installs the descriptor set of layout id for freq.
func (g *Graph) SetDescriptorSet(id LayoutID, freq UpdateFrequency, data *DescriptorSetLayoutData) error {
	if freq >= frequencyCount {
		return fmt.Errorf("%w: %d", core.ErrUnknownFrequency, freq)
	}
	if id == NullLayout || int(id) >= len(g.layouts) {
		return fmt.Errorf("%w: id %d", core.ErrLayoutNotFound, id)
	}
	var capacity uint32
	for _, block := range data.DescriptorBlocks {
		if block.Offset != capacity {
			return fmt.Errorf("layout %s %s: block %s starts at binding %d, want %d",
				g.Path(id), freq, block.Type, block.Offset, capacity)
		}
		var count uint32
		for _, d := range block.Descriptors {
			count += d.Count
		}
		if count != block.Capacity {
			return fmt.Errorf("layout %s %s: block %s holds %d descriptors but has capacity %d",
				g.Path(id), freq, block.Type, count, block.Capacity)
		}
		if block.Type == UniformBuffer || block.Type == DynamicUniformBuffer {
			for _, d := range block.Descriptors {
				if _, ok := data.UniformBlocks[d.ID]; !ok {
					name, _ := g.AttributeName(d.ID)
					return fmt.Errorf("layout %s %s: uniform block %q is not described", g.Path(id), freq, name)
				}
			}
		}
		capacity += block.Capacity
	}
	if capacity != data.Capacity {
		return fmt.Errorf("layout %s %s: capacity %d does not match blocks (%d)", g.Path(id), freq, data.Capacity, capacity)
	}
	g.layouts[id].DescriptorSets[freq] = data
	return nil
}

// RegisterAttribute returns the id of a descriptor name, creating it if needed.
func (g *Graph) RegisterAttribute(name string) NameID {
	return NameID(g.attributes.Acquire(name))
}

func (g *Graph) AttributeID(name string) (NameID, bool) {
	id, ok := g.attributes.Lookup(name)
	return NameID(id), ok
}

func (g *Graph) AttributeName(id NameID) (string, bool) {
	return g.attributes.Name(uint32(id))
}

// RegisterConstant returns the id of a uniform member name, creating it if
// needed.
func (g *Graph) RegisterConstant(name string) NameID {
	return NameID(g.constants.Acquire(name))
}

func (g *Graph) ConstantID(name string) (NameID, bool) {
	id, ok := g.constants.Lookup(name)
	return NameID(id), ok
}

func (g *Graph) ConstantName(id NameID) (string, bool) {
	return g.constants.Name(uint32(id))
}
