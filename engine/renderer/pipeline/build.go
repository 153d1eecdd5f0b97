package pipeline

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/vulkan"
)

// Sets are visible to every stage; layouts do not record stage masks.
var shaderStages = vk.ShaderStageFlags(vk.ShaderStageAll)

type layoutResourceKey struct {
	layout    layoutgraph.LayoutID
	frequency layoutgraph.UpdateFrequency
}

type uniformResource struct {
	pool renderer.BufferPool
	cpu  []byte
}

// layoutResource is the device state of one descriptor set layout, shared by
// every node binding it.
type layoutResource struct {
	pool     renderer.DescriptorSetPool
	uniforms map[layoutgraph.NameID]*uniformResource
}

func (p *Pipeline) resourcesFor(layoutID layoutgraph.LayoutID, freq layoutgraph.UpdateFrequency, set *layoutgraph.DescriptorSetLayoutData) *layoutResource {
	key := layoutResourceKey{layout: layoutID, frequency: freq}
	if res, ok := p.layoutResources[key]; ok {
		return res
	}
	path := p.layouts.Graph().Path(layoutID)
	bindings, err := vulkan.SetLayoutBindings(set, shaderStages)
	core.Expects(err == nil, "layout %s %s: %v", path, freq, err)
	sizes, err := vulkan.PoolSizes([]*layoutgraph.DescriptorSetLayoutData{set}, 1)
	core.Expects(err == nil, "layout %s %s: %v", path, freq, err)
	res := &layoutResource{
		pool: p.device.CreateDescriptorSetPool(renderer.DescriptorSetLayoutInfo{
			Name:           path,
			Capacity:       set.Capacity,
			Bindings:       uint32(len(set.DescriptorBlocks)),
			Frequency:      freq.String(),
			SetIndex:       vulkan.SetIndex(freq),
			LayoutBindings: bindings,
			PoolSizes:      sizes,
		}),
		uniforms: make(map[layoutgraph.NameID]*uniformResource, len(set.UniformBlocks)),
	}
	for id, block := range set.UniformBlocks {
		size := block.Size()
		res.uniforms[id] = &uniformResource{
			pool: p.device.CreateBufferPool(path+"/"+block.Name, size),
			cpu:  make([]byte, size),
		}
	}
	p.layoutResources[key] = res
	return res
}

func (t *traversal) tryCreatePerPass(id rendergraph.NodeID) {
	layouts, data := t.passChain()
	t.tryCreateDescriptorSet(id, layoutgraph.PerPass, layouts, data)
}

func (t *traversal) tryCreatePerPhase(id rendergraph.NodeID) {
	layouts, data := t.phaseChain()
	t.tryCreateDescriptorSet(id, layoutgraph.PerPhase, layouts, data)
}

// tryCreateDescriptorSet builds the set of node when it is required. The set
// merges the resolutions of every enclosing scope bound to the same layout.
// An innermost scope that resolved nothing defers the set to its parent.
func (t *traversal) tryCreateDescriptorSet(node rendergraph.NodeID, freq layoutgraph.UpdateFrequency, layouts []layoutgraph.LayoutID, data []*DeviceRenderData) {
	core.Expects(len(layouts) == len(data), "%d layouts for %d render data", len(layouts), len(data))
	core.Expects(len(layouts) > 0, "no scope to create %s set in", freq)

	target := data[len(data)-1]
	if target == nil || !target.Required {
		return
	}

	i := len(layouts) - 1
	for i > 0 && layouts[i] == layouts[i-1] {
		i--
	}
	run := data[i:]
	for _, d := range run {
		core.Expects(d != nil, "missing render data in a run of layout %d", layouts[i])
	}

	if len(run) > 1 && target.HasNoData() {
		run[len(run)-2].Required = true
		t.stats.DeferredToParent++
		return
	}
	t.buildDescriptorSet(node, freq, layouts[len(layouts)-1], run)
}

func (t *traversal) buildDescriptorSet(node rendergraph.NodeID, freq layoutgraph.UpdateFrequency, layoutID layoutgraph.LayoutID, run []*DeviceRenderData) {
	set, ok := t.p.layouts.DescriptorSetLayout(layoutID, freq)
	core.Expects(ok, "layout %s has no %s set", t.p.layouts.Graph().Path(layoutID), freq)

	res := t.p.resourcesFor(layoutID, freq, set)
	defaults := t.p.device.DefaultResource()

	ds := res.pool.AllocateDescriptorSet()
	core.Expects(ds != nil, "descriptor set pool of %s is exhausted", t.p.layouts.Graph().Path(layoutID))

	for _, block := range set.DescriptorBlocks {
		bind := block.Offset
		for _, d := range block.Descriptors {
			core.Expects(d.Count == 1, "descriptor arrays are not supported (descriptor %d has count %d)", d.ID, d.Count)
			switch block.Type {
			case layoutgraph.UniformBuffer, layoutgraph.DynamicUniformBuffer:
				ub, ok := set.UniformBlocks[d.ID]
				core.Expects(ok, "uniform block %d is not described", d.ID)
				ur, ok := res.uniforms[d.ID]
				core.Expects(ok, "uniform block %s has no buffer pool", ub.Name)
				core.Expects(ur.pool.BufferSize() == uint32(len(ur.cpu)), "uniform block %s: pool and staging sizes differ", ub.Name)

				t.updateCpuUniformBuffer(ub, ur.cpu)
				buffer := ur.pool.AllocateBuffer()
				core.Ensures(buffer != nil, "buffer pool of %s is exhausted", ub.Name)
				t.cmd.UpdateBuffer(buffer, ur.cpu)
				ds.BindBuffer(bind, buffer)
				t.stats.UniformUploads++

			case layoutgraph.StorageBuffer, layoutgraph.DynamicStorageBuffer:
				buffer := t.getBuffer(run, d.ID, defaults)
				core.Ensures(buffer != nil, "no buffer for descriptor %d", d.ID)
				ds.BindBuffer(bind, buffer)

			case layoutgraph.SamplerTexture:
				core.Expects(d.Type.IsCombinedSampler(), "descriptor %d of a sampler_texture block is a %s", d.ID, d.Type)
				tex := t.getTexture(run, d, defaults)
				core.Ensures(tex.Texture != nil, "no texture for descriptor %d", d.ID)
				ds.BindTexture(bind, tex.Texture, tex.Access)
				if s := t.getSampler(run, d.ID, defaults); s != nil {
					ds.BindSampler(bind, s)
				}

			case layoutgraph.Sampler:
				if s := t.getSampler(run, d.ID, defaults); s != nil {
					ds.BindSampler(bind, s)
				}

			case layoutgraph.Texture, layoutgraph.StorageImage:
				tex := t.getTexture(run, d, defaults)
				core.Ensures(tex.Texture != nil, "no texture for descriptor %d", d.ID)
				ds.BindTexture(bind, tex.Texture, tex.Access)

			case layoutgraph.InputAttachment:
				core.Expects(d.Type == metadata.TypeSubpassInput || d.Type == metadata.TypeImage2D,
					"input attachment %d is a %s", d.ID, d.Type)
				// Only the resource index fills these, there is no default.
				tex, ok := t.findTexture(run, d.ID)
				core.Ensures(ok && tex.Texture != nil, "input attachment %d is not bound by any view", d.ID)
				ds.BindTexture(bind, tex.Texture, tex.Access)

			default:
				core.Expects(false, "unknown descriptor block type %s", block.Type)
			}
			bind += d.Count
		}
	}
	ds.Update()

	key := DescriptorSetKey{Node: node, Frequency: freq}
	_, dup := t.p.descriptorSets[key]
	core.Ensures(!dup, "descriptor set %s built twice", key)
	t.p.descriptorSets[key] = ds
	t.stats.DescriptorSetsBuilt++
}

func (t *traversal) getBuffer(run []*DeviceRenderData, id layoutgraph.NameID, defaults renderer.DefaultResource) renderer.Buffer {
	for i := len(run) - 1; i >= 0; i-- {
		if b, ok := run[i].Buffers[id]; ok {
			return b
		}
	}
	return defaults.Buffer()
}

func (t *traversal) findTexture(run []*DeviceRenderData, id layoutgraph.NameID) (TextureWithAccess, bool) {
	for i := len(run) - 1; i >= 0; i-- {
		if tex, ok := run[i].Textures[id]; ok {
			return tex, true
		}
	}
	return TextureWithAccess{}, false
}

func (t *traversal) getTexture(run []*DeviceRenderData, d layoutgraph.Descriptor, defaults renderer.DefaultResource) TextureWithAccess {
	if tex, ok := t.findTexture(run, d.ID); ok {
		return tex
	}
	return TextureWithAccess{Texture: defaults.Texture(metadata.DefaultTextureType(d.Type))}
}

// getSampler falls back to the device default sampler, which may be nil.
func (t *traversal) getSampler(run []*DeviceRenderData, id layoutgraph.NameID, defaults renderer.DefaultResource) renderer.Sampler {
	for i := len(run) - 1; i >= 0; i-- {
		if s, ok := run[i].Samplers[id]; ok {
			return s
		}
	}
	return defaults.Sampler()
}

// findUniform returns the innermost value of a constant over every open
// scope, regardless of layouts.
func (t *traversal) findUniform(name string) []byte {
	id := t.p.layouts.ConstantID(name)
	chain := t.renderDataChain()
	for i := len(chain) - 1; i >= 0; i-- {
		if v, ok := chain[i].Constants[id]; ok {
			return v
		}
	}
	return nil
}

var identityMat4 = mat4Bytes(mgl32.Ident4())

func mat4Bytes(m mgl32.Mat4) []byte {
	b := make([]byte, 4*len(m))
	for i, v := range m {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

// updateCpuUniformBuffer packs block into buf member by member. Members
// nobody set stay zero, except mat4 which defaults to identity.
func (t *traversal) updateCpuUniformBuffer(block *layoutgraph.UniformBlock, buf []byte) {
	size := block.Size()
	core.Expects(block.Count == 1, "uniform block %s is an array of %d", block.Name, block.Count)
	core.Expects(uint32(len(buf)) == size, "staging buffer of %s holds %d bytes, want %d", block.Name, len(buf), size)
	clear(buf)

	var offset uint32
	for _, member := range block.Members {
		core.Expects(member.Count > 0, "uniform %s.%s has no elements", block.Name, member.Name)
		typeSize := metadata.TypeSize(member.Type)
		total := typeSize * member.Count
		core.Ensures(typeSize > 0, "uniform %s.%s has no size", block.Name, member.Name)

		if src := t.findUniform(member.Name); src != nil {
			if uint32(len(src)) != total {
				core.LogWarn("uniform %s.%s holds %d bytes, want %d", block.Name, member.Name, len(src), total)
			}
			core.Expects(offset+total <= size, "uniform %s.%s overflows its block", block.Name, member.Name)
			copy(buf[offset:offset+total], src)
		} else if member.Type == metadata.TypeMat4 {
			for i := uint32(0); i < member.Count; i++ {
				copy(buf[offset+i*typeSize:], identityMat4)
			}
		}
		offset += total
	}
	core.Ensures(offset == size, "uniform block %s packed %d bytes, want %d", block.Name, offset, size)
}
