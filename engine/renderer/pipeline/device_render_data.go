package pipeline

import (
	"fmt"

	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
)

// DescriptorSetKey identifies the descriptor set a node binds at a
// frequency.
type DescriptorSetKey struct {
	Node      rendergraph.NodeID
	Frequency layoutgraph.UpdateFrequency
}

func (k DescriptorSetKey) String() string {
	return fmt.Sprintf("%d/%s", k.Node, k.Frequency)
}

// TextureWithAccess is a texture and the access its pass declared for it.
type TextureWithAccess struct {
	Texture renderer.Texture
	Access  metadata.AccessFlags
}

// DeviceRenderData is what a node resolved for one descriptor set, before
// any set is built. Required marks the node as the one that has to build
// the set.
type DeviceRenderData struct {
	Buffers  map[layoutgraph.NameID]renderer.Buffer
	Textures map[layoutgraph.NameID]TextureWithAccess
	Samplers map[layoutgraph.NameID]renderer.Sampler

	HasConstants bool
	Required     bool
}

func newDeviceRenderData() *DeviceRenderData {
	return &DeviceRenderData{
		Buffers:  make(map[layoutgraph.NameID]renderer.Buffer),
		Textures: make(map[layoutgraph.NameID]TextureWithAccess),
		Samplers: make(map[layoutgraph.NameID]renderer.Sampler),
	}
}

// HasNoData reports whether nothing was resolved at this node.
func (d *DeviceRenderData) HasNoData() bool {
	return len(d.Buffers) == 0 && len(d.Textures) == 0 && len(d.Samplers) == 0 && !d.HasConstants
}

func (d *DeviceRenderData) reset() {
	clear(d.Buffers)
	clear(d.Textures)
	clear(d.Samplers)
	d.HasConstants = false
	d.Required = false
}
