// Package pipeline resolves what every node of a render graph binds and
// builds the descriptor sets for it.
//
// A traversal keeps a stack of open scopes, Pass [Subpass] [Queue [Scene]].
// Each scope resolves the descriptors of its layouts against the render data
// of the scopes above it, closest scope first. Scenes mark what they resolve
// as required, and a required set is built by the outermost scope of the run
// of scopes sharing its layout that resolved anything at all.
package pipeline

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/framegraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
)

// Options tunes a Pipeline.
type Options struct {
	// LayoutCacheSize bounds the memoized layout lookups. Zero or less
	// picks layoutgraph.DefaultLocateCacheSize.
	LayoutCacheSize int
}

// Pipeline prepares the descriptor sets of render graph passes on a device.
type Pipeline struct {
	device  renderer.Device
	layouts *layoutgraph.Resolver

	renderData      map[DescriptorSetKey]*DeviceRenderData
	descriptorSets  map[DescriptorSetKey]renderer.DescriptorSet
	resourceIndices map[rendergraph.NodeID]framegraph.ResourceIndex
	layoutResources map[layoutResourceKey]*layoutResource

	metrics *core.Metrics
}

// New returns a Pipeline allocating from device and resolving against layouts.
func New(device renderer.Device, layouts *layoutgraph.Graph, opts Options) (*Pipeline, error) {
	if device == nil {
		return nil, errors.New("pipeline needs a device")
	}
	if layouts == nil {
		return nil, errors.New("pipeline needs a layout graph")
	}
	resolver, err := layoutgraph.NewResolver(layouts, opts.LayoutCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the layout resolver")
	}
	return &Pipeline{
		device:          device,
		layouts:         resolver,
		renderData:      make(map[DescriptorSetKey]*DeviceRenderData),
		descriptorSets:  make(map[DescriptorSetKey]renderer.DescriptorSet),
		resourceIndices: make(map[rendergraph.NodeID]framegraph.ResourceIndex),
		layoutResources: make(map[layoutResourceKey]*layoutResource),
		metrics:         core.NewMetrics(),
	}, nil
}

func (p *Pipeline) LayoutGraph() *layoutgraph.Graph {
	return p.layouts.Graph()
}

// SetLayoutGraph swaps the layout graph between frames. Everything derived
// from the previous graph is dropped.
func (p *Pipeline) SetLayoutGraph(g *layoutgraph.Graph) {
	core.Expects(g != nil, "nil layout graph")
	p.layouts.Reset(g)
	clear(p.layoutResources)
	clear(p.renderData)
	clear(p.descriptorSets)
	clear(p.resourceIndices)
	core.LogInfo("layout graph swapped (%d layouts)", g.Len())
}

// BeginFrame forgets the results of the previous frame. Render data entries
// are kept and reset in place.
func (p *Pipeline) BeginFrame() {
	p.device.BeginFrame()
	p.metrics.NextFrame()
	for _, data := range p.renderData {
		data.reset()
	}
	for _, index := range p.resourceIndices {
		clear(index)
	}
	clear(p.descriptorSets)
}

// PrepareDescriptorSets resolves and builds the descriptor sets of the pass
// passID and everything under it. Uniform uploads are recorded into cmd in
// visit order. A malformed graph yields a contract violation error, see
// core.IsContractViolation.
func (p *Pipeline) PrepareDescriptorSets(cmd renderer.CommandBuffer, fg *framegraph.Dispatcher, passID rendergraph.NodeID) (err error) {
	name := "<unknown>"
	defer func() {
		if err != nil {
			err = errors.Wrapf(err, "failed to prepare descriptor sets of pass %s", name)
		}
	}()
	defer core.RecoverContract(&err)

	core.Expects(cmd != nil, "nil command buffer")
	core.Expects(fg != nil, "nil frame graph")
	rg := fg.RenderGraph()
	name = rg.Name(passID)
	core.Expects(rg.Parent(passID) == rendergraph.NullNode, "%s is not a pass", name)

	start := p.metrics.Begin()
	t := newTraversal(p, cmd, fg)
	t.visit(passID)
	core.Ensures(t.frames.Empty(), "%d scopes left open", t.frames.Len())
	p.metrics.End(start, t.stats)

	core.LogDebug("prepared pass %s: %d nodes, %d sets, %d uploads, %d deferred",
		name, t.stats.NodesVisited, t.stats.DescriptorSetsBuilt, t.stats.UniformUploads, t.stats.DeferredToParent)
	return nil
}

// DescriptorSet returns the set node binds at freq, if it built one this
// frame.
func (p *Pipeline) DescriptorSet(node rendergraph.NodeID, freq layoutgraph.UpdateFrequency) (renderer.DescriptorSet, bool) {
	ds, ok := p.descriptorSets[DescriptorSetKey{Node: node, Frequency: freq}]
	return ds, ok
}

// DescriptorSets returns the sets built this frame. The map must not be
// modified.
func (p *Pipeline) DescriptorSets() map[DescriptorSetKey]renderer.DescriptorSet {
	return p.descriptorSets
}

func (p *Pipeline) RenderData(key DescriptorSetKey) (*DeviceRenderData, bool) {
	data, ok := p.renderData[key]
	return data, ok
}

func (p *Pipeline) Metrics() *core.Metrics {
	return p.metrics
}
