package pipeline

import (
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/framegraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/resourcegraph"
)

// dataRange picks the render data a scope resolves from. A scope that
// binds the same layout as its parent only contributes its own overrides;
// the parent already resolved the rest.
func (t *traversal) dataRange(layouts []layoutgraph.LayoutID) ([]*rendergraph.RenderData, bool) {
	core.Expects(len(layouts) > 0, "no layout in scope")
	n := len(layouts)
	chain := t.renderDataChain()
	if n < 2 || layouts[n-1] != layouts[n-2] {
		return chain, true
	}
	return chain[len(chain)-1:], false
}

func (t *traversal) collectPerPass(id rendergraph.NodeID) {
	layouts, _ := t.passChain()
	data, fullRange := t.dataRange(layouts)
	key := DescriptorSetKey{Node: id, Frequency: layoutgraph.PerPass}
	t.top().perPass = t.collectDescriptors(data, key, layouts[len(layouts)-1], fullRange)
}

func (t *traversal) collectPerPhase(id rendergraph.NodeID) {
	layouts, _ := t.phaseChain()
	data, _ := t.dataRange(layouts)
	key := DescriptorSetKey{Node: id, Frequency: layoutgraph.PerPhase}
	t.top().perPhase = t.collectDescriptors(data, key, layouts[len(layouts)-1], false)
}

func (t *traversal) getOrCreateDeviceRenderData(key DescriptorSetKey) *DeviceRenderData {
	if data, ok := t.p.renderData[key]; ok {
		core.Expects(data.HasNoData(), "render data %s was collected twice", key)
		return data
	}
	data := newDeviceRenderData()
	t.p.renderData[key] = data
	return data
}

// collector resolves the descriptors of one set at one node.
type collector struct {
	t             *traversal
	data          []*rendergraph.RenderData
	resourceIndex framegraph.ResourceIndex
	passID        rendergraph.NodeID
	access        *framegraph.AccessNode
	out           *DeviceRenderData
}

// collectDescriptors returns nil when the layout has no set at the key
// frequency. Physical resources of the pass are only visible when
// includeResources is set.
func (t *traversal) collectDescriptors(data []*rendergraph.RenderData, key DescriptorSetKey, layoutID layoutgraph.LayoutID, includeResources bool) *DeviceRenderData {
	set, ok := t.p.layouts.DescriptorSetLayout(layoutID, key.Frequency)
	if !ok {
		return nil
	}

	c := collector{t: t, data: data, passID: rendergraph.NullNode}
	if includeResources {
		c.passID = t.passOrSubpassID()
		if index := t.p.resourceIndices[c.passID]; len(index) > 0 {
			c.resourceIndex = index
		}
		c.access = t.fg.AccessNode(c.passID)
	}
	c.out = t.getOrCreateDeviceRenderData(key)

	core.Expects(set.Capacity != 0, "unbounded descriptor set in %s", t.p.layouts.Graph().Path(layoutID))
	core.Expects(len(set.DescriptorBlocks) > 0, "descriptor set of %s has no blocks", t.p.layouts.Graph().Path(layoutID))
	for _, block := range set.DescriptorBlocks {
		switch block.Type {
		case layoutgraph.UniformBuffer, layoutgraph.DynamicUniformBuffer:
			for _, d := range block.Descriptors {
				ub, ok := set.UniformBlocks[d.ID]
				core.Expects(ok, "uniform block %d is not described", d.ID)
				c.uniformBuffer(ub)
			}
		case layoutgraph.StorageBuffer, layoutgraph.DynamicStorageBuffer:
			for _, d := range block.Descriptors {
				c.buffer(d.ID)
			}
		case layoutgraph.Sampler:
			for _, d := range block.Descriptors {
				c.sampler(d.ID)
			}
		case layoutgraph.SamplerTexture:
			for _, d := range block.Descriptors {
				c.texture(d.ID)
				c.sampler(d.ID)
			}
		case layoutgraph.Texture, layoutgraph.StorageImage:
			for _, d := range block.Descriptors {
				c.texture(d.ID)
			}
		case layoutgraph.InputAttachment:
			for _, d := range block.Descriptors {
				c.inputAttachment(d.ID)
			}
		default:
			core.Expects(false, "unknown descriptor block type %s", block.Type)
		}
	}
	return c.out
}

// uniformBuffer marks constants as present when any member is overridden in
// range.
func (c *collector) uniformBuffer(block *layoutgraph.UniformBlock) {
	for _, member := range block.Members {
		id := c.t.p.layouts.ConstantID(member.Name)
		for i := len(c.data) - 1; i >= 0; i-- {
			if _, ok := c.data[i].Constants[id]; ok {
				c.out.HasConstants = true
				return
			}
		}
	}
}

func (c *collector) lookupResource(id layoutgraph.NameID) (resourcegraph.ResourceID, bool) {
	if c.resourceIndex == nil {
		return resourcegraph.NullResource, false
	}
	res, ok := c.resourceIndex[id]
	return res, ok
}

func (c *collector) buffer(id layoutgraph.NameID) {
	var buffer renderer.Buffer
	if res, ok := c.lookupResource(id); ok {
		buffer = c.t.fg.ResourceGraph().Buffer(res)
		core.Expects(buffer != nil, "resource %s is not a buffer", c.t.fg.ResourceGraph().Name(res))
	} else {
		for i := len(c.data) - 1; i >= 0; i-- {
			if b, ok := c.data[i].Buffers[id]; ok {
				buffer = b
				break
			}
		}
	}
	if buffer == nil {
		return
	}
	_, dup := c.out.Buffers[id]
	core.Ensures(!dup, "buffer %d collected twice", id)
	c.out.Buffers[id] = buffer
}

func (c *collector) sampler(id layoutgraph.NameID) {
	for i := len(c.data) - 1; i >= 0; i-- {
		s, ok := c.data[i].Samplers[id]
		if !ok {
			continue
		}
		core.Expects(s != nil, "sampler %d is nil", id)
		_, dup := c.out.Samplers[id]
		core.Ensures(!dup, "sampler %d collected twice", id)
		c.out.Samplers[id] = s
		return
	}
}

func (c *collector) resourceTexture(res resourcegraph.ResourceID) TextureWithAccess {
	resg := c.t.fg.ResourceGraph()
	tex := resg.Texture(res)
	core.Expects(tex != nil, "resource %s is not a texture", resg.Name(res))
	access, ok := c.access.Access(resg, res)
	core.Expects(ok, "%s does not access %s", c.t.fg.RenderGraph().Name(c.passID), resg.Name(res))
	return TextureWithAccess{Texture: tex, Access: access}
}

func (c *collector) texture(id layoutgraph.NameID) {
	var tex TextureWithAccess
	if res, ok := c.lookupResource(id); ok {
		tex = c.resourceTexture(res)
	} else {
		for i := len(c.data) - 1; i >= 0; i-- {
			if t, ok := c.data[i].Textures[id]; ok {
				tex = TextureWithAccess{Texture: t, Access: metadata.AccessNone}
				break
			}
		}
	}
	if tex.Texture == nil {
		return
	}
	_, dup := c.out.Textures[id]
	core.Ensures(!dup, "texture %d collected twice", id)
	c.out.Textures[id] = tex
}

// inputAttachment only ever binds physical resources of the pass.
func (c *collector) inputAttachment(id layoutgraph.NameID) {
	res, ok := c.lookupResource(id)
	if !ok {
		return
	}
	_, dup := c.out.Textures[id]
	core.Ensures(!dup, "input attachment %d collected twice", id)
	c.out.Textures[id] = c.resourceTexture(res)
}
