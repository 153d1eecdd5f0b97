package resourcegraph

import (
	"fmt"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
)

// ResourceID identifies a physical resource.
type ResourceID uint32

const NullResource = ^ResourceID(0)

type Kind uint8

const (
	KindBuffer Kind = iota
	KindTexture
)

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type resource struct {
	name    string
	kind    Kind
	parent  ResourceID
	buffer  renderer.Buffer
	texture renderer.Texture
}

// Graph indexes the physical resources of a frame by name. Texture
// sub-resources (mips, slices, planes) are children of the texture they view.
type Graph struct {
	resources []resource
	index     map[string]ResourceID
}

func NewGraph() *Graph {
	return &Graph{index: make(map[string]ResourceID)}
}

func (g *Graph) add(r resource) (ResourceID, error) {
	if r.name == "" {
		return NullResource, fmt.Errorf("resource name is empty")
	}
	if _, ok := g.index[r.name]; ok {
		return NullResource, fmt.Errorf("resource %q already exists", r.name)
	}
	id := ResourceID(len(g.resources))
	g.resources = append(g.resources, r)
	g.index[r.name] = id
	return id, nil
}

func (g *Graph) AddBuffer(name string, buffer renderer.Buffer) (ResourceID, error) {
	if buffer == nil {
		return NullResource, fmt.Errorf("buffer %q is nil", name)
	}
	return g.add(resource{name: name, kind: KindBuffer, parent: NullResource, buffer: buffer})
}

func (g *Graph) AddTexture(name string, texture renderer.Texture) (ResourceID, error) {
	if texture == nil {
		return NullResource, fmt.Errorf("texture %q is nil", name)
	}
	return g.add(resource{name: name, kind: KindTexture, parent: NullResource, texture: texture})
}

// AddSubresource adds a texture view of parent. Sub-resources of
// sub-resources hang off the root texture.
func (g *Graph) AddSubresource(parent ResourceID, name string, texture renderer.Texture) (ResourceID, error) {
	if int(parent) >= len(g.resources) {
		return NullResource, fmt.Errorf("parent resource %d of %q does not exist", parent, name)
	}
	if g.resources[parent].kind != KindTexture {
		return NullResource, fmt.Errorf("parent %q of %q is not a texture", g.resources[parent].name, name)
	}
	if texture == nil {
		return NullResource, fmt.Errorf("texture %q is nil", name)
	}
	for g.resources[parent].parent != NullResource {
		parent = g.resources[parent].parent
	}
	return g.add(resource{name: name, kind: KindTexture, parent: parent, texture: texture})
}

// Find returns the resource named name, or NullResource.
func (g *Graph) Find(name string) ResourceID {
	if id, ok := g.index[name]; ok {
		return id
	}
	return NullResource
}

func (g *Graph) get(id ResourceID) *resource {
	core.Expects(int(id) < len(g.resources), "resource %d out of range", id)
	return &g.resources[id]
}

func (g *Graph) Len() int {
	return len(g.resources)
}

func (g *Graph) Kind(id ResourceID) Kind {
	return g.get(id).kind
}

// Buffer returns the buffer of id, nil if id is a texture.
func (g *Graph) Buffer(id ResourceID) renderer.Buffer {
	return g.get(id).buffer
}

// Texture returns the texture of id, nil if id is a buffer.
func (g *Graph) Texture(id ResourceID) renderer.Texture {
	return g.get(id).texture
}

// Parent returns the texture id is a sub-resource of, or NullResource.
func (g *Graph) Parent(id ResourceID) ResourceID {
	return g.get(id).parent
}

func (g *Graph) Name(id ResourceID) string {
	return g.get(id).name
}
