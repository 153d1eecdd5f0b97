package pipeline

import (
	"github.com/spaghettifunk/anima-pipeline/engine/containers"
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/framegraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
)

type scopeKind uint8

const (
	scopePass scopeKind = iota
	scopeSubpass
	scopeQueue
	scopeScene
)

func (k scopeKind) String() string {
	switch k {
	case scopePass:
		return "pass"
	case scopeSubpass:
		return "subpass"
	case scopeQueue:
		return "queue"
	default:
		return "scene"
	}
}

// scopeFrame is one open scope of the traversal. Pass and subpass frames
// have no phase layout and no per-phase data.
type scopeFrame struct {
	kind        scopeKind
	node        rendergraph.NodeID
	passLayout  layoutgraph.LayoutID
	phaseLayout layoutgraph.LayoutID
	data        *rendergraph.RenderData

	perPass  *DeviceRenderData
	perPhase *DeviceRenderData
}

// traversal is the state of one PrepareDescriptorSets call. Open scopes
// always read Pass [Subpass] [Queue [Scene]] from the bottom.
type traversal struct {
	p   *Pipeline
	rg  *rendergraph.Graph
	fg  *framegraph.Dispatcher
	cmd renderer.CommandBuffer

	frames containers.Stack[scopeFrame]
	stats  core.PrepareStats

	// scratch for the derived chains
	dataChain   []*rendergraph.RenderData
	layoutChain []layoutgraph.LayoutID
	deviceChain []*DeviceRenderData
}

func newTraversal(p *Pipeline, cmd renderer.CommandBuffer, fg *framegraph.Dispatcher) *traversal {
	return &traversal{
		p:   p,
		rg:  fg.RenderGraph(),
		fg:  fg,
		cmd: cmd,
	}
}

func (t *traversal) top() *scopeFrame {
	core.Expects(!t.frames.Empty(), "no open scope")
	return t.frames.Top()
}

func (t *traversal) hasSubpass() bool {
	return t.frames.Len() > 1 && t.frames.At(1).kind == scopeSubpass
}

// checkShape verifies the open scopes, bottom first, are exactly kinds.
func (t *traversal) checkShape(kinds ...scopeKind) {
	core.Expects(t.frames.Len() == len(kinds), "scope depth %d, want %v", t.frames.Len(), kinds)
	for i, k := range kinds {
		core.Expects(t.frames.At(i).kind == k, "scope %d is a %s, want %s", i, t.frames.At(i).kind, k)
	}
}

// checkOpen verifies the scopes above the pass, with or without a subpass.
func (t *traversal) checkOpen(above ...scopeKind) {
	kinds := []scopeKind{scopePass}
	if t.hasSubpass() {
		kinds = append(kinds, scopeSubpass)
	}
	t.checkShape(append(kinds, above...)...)
}

func (t *traversal) passOrSubpassID() rendergraph.NodeID {
	if t.hasSubpass() {
		return t.frames.At(1).node
	}
	return t.frames.At(0).node
}

// renderDataChain is the global render data followed by the data of every
// open scope.
func (t *traversal) renderDataChain() []*rendergraph.RenderData {
	t.dataChain = append(t.dataChain[:0], t.rg.Global())
	for _, f := range t.frames.View() {
		t.dataChain = append(t.dataChain, f.data)
	}
	return t.dataChain
}

func (t *traversal) passChain() ([]layoutgraph.LayoutID, []*DeviceRenderData) {
	t.layoutChain = t.layoutChain[:0]
	t.deviceChain = t.deviceChain[:0]
	for _, f := range t.frames.View() {
		t.layoutChain = append(t.layoutChain, f.passLayout)
		t.deviceChain = append(t.deviceChain, f.perPass)
	}
	return t.layoutChain, t.deviceChain
}

func (t *traversal) phaseChain() ([]layoutgraph.LayoutID, []*DeviceRenderData) {
	t.layoutChain = t.layoutChain[:0]
	t.deviceChain = t.deviceChain[:0]
	for _, f := range t.frames.View() {
		if f.kind != scopeQueue && f.kind != scopeScene {
			continue
		}
		t.layoutChain = append(t.layoutChain, f.phaseLayout)
		t.deviceChain = append(t.deviceChain, f.perPhase)
	}
	return t.layoutChain, t.deviceChain
}

func (t *traversal) buildResourceIndex(id rendergraph.NodeID, compute rendergraph.ComputeViews, raster rendergraph.RasterViews) {
	index, ok := t.p.resourceIndices[id]
	if !ok {
		index = make(framegraph.ResourceIndex)
		t.p.resourceIndices[id] = index
	}
	core.Expects(len(index) == 0, "resource index of %s is already built", t.rg.Name(id))
	t.fg.BuildDescriptorIndex(compute, raster, index)
}

func (t *traversal) enterPass(id rendergraph.NodeID, compute rendergraph.ComputeViews) {
	core.Expects(t.frames.Empty(), "pass %s opened inside another scope", t.rg.Name(id))
	name := t.rg.Layout(id)
	core.Expects(name != "", "pass %s has no layout", t.rg.Name(id))

	t.buildResourceIndex(id, compute, nil)

	layoutID := t.p.layouts.Locate(layoutgraph.NullLayout, name)
	core.Ensures(layoutID != layoutgraph.NullLayout, "layout %q of pass %s not found", name, t.rg.Name(id))

	t.frames.Push(scopeFrame{
		kind:        scopePass,
		node:        id,
		passLayout:  layoutID,
		phaseLayout: layoutgraph.NullLayout,
		data:        t.rg.Data(id),
	})
	t.collectPerPass(id)

	t.checkShape(scopePass)
}

func (t *traversal) exitPass(id rendergraph.NodeID) {
	t.checkShape(scopePass)
	core.Expects(t.top().node == id, "closing pass %s out of order", t.rg.Name(id))
	t.tryCreatePerPass(id)
	t.frames.Pop()
}

func (t *traversal) enterSubpass(id rendergraph.NodeID, compute rendergraph.ComputeViews, raster rendergraph.RasterViews) {
	t.checkShape(scopePass)

	t.buildResourceIndex(id, compute, raster)

	layoutID := t.top().passLayout
	if name := t.rg.Layout(id); name != "" {
		layoutID = t.p.layouts.Locate(layoutgraph.NullLayout, name)
	}
	core.Ensures(layoutID != layoutgraph.NullLayout, "layout %q of subpass %s not found", t.rg.Layout(id), t.rg.Name(id))

	t.frames.Push(scopeFrame{
		kind:        scopeSubpass,
		node:        id,
		passLayout:  layoutID,
		phaseLayout: layoutgraph.NullLayout,
		data:        t.rg.Data(id),
	})
	t.collectPerPass(id)

	t.checkShape(scopePass, scopeSubpass)
}

func (t *traversal) exitSubpass(id rendergraph.NodeID) {
	t.checkShape(scopePass, scopeSubpass)
	core.Expects(t.top().node == id, "closing subpass %s out of order", t.rg.Name(id))
	t.tryCreatePerPass(id)
	t.frames.Pop()
}

func (t *traversal) enterQueue(id rendergraph.NodeID, queue *rendergraph.RenderQueue) {
	t.checkOpen()

	passLayout := queue.PassLayoutID
	if passLayout == layoutgraph.NullLayout {
		passLayout = t.top().passLayout
	}
	core.Ensures(passLayout != layoutgraph.NullLayout, "queue %s has no pass layout", t.rg.Name(id))
	core.Expects(queue.PhaseID != layoutgraph.NullLayout, "queue %s has no phase", t.rg.Name(id))

	t.frames.Push(scopeFrame{
		kind:        scopeQueue,
		node:        id,
		passLayout:  passLayout,
		phaseLayout: queue.PhaseID,
		data:        t.rg.Data(id),
	})
	t.collectPerPass(id)
	t.collectPerPhase(id)

	t.checkOpen(scopeQueue)
}

func (t *traversal) exitQueue(id rendergraph.NodeID) {
	t.checkOpen(scopeQueue)
	core.Expects(t.top().node == id, "closing queue %s out of order", t.rg.Name(id))
	t.tryCreatePerPass(id)
	t.tryCreatePerPhase(id)
	t.frames.Pop()
}

// enterScene opens a draw scope. It binds against the layouts of its queue,
// and whatever it resolves must be bound by itself or an ancestor.
func (t *traversal) enterScene(id rendergraph.NodeID) {
	t.checkOpen(scopeQueue)

	queue := t.top()
	t.frames.Push(scopeFrame{
		kind:        scopeScene,
		node:        id,
		passLayout:  queue.passLayout,
		phaseLayout: queue.phaseLayout,
		data:        t.rg.Data(id),
	})
	t.collectPerPass(id)
	t.collectPerPhase(id)

	scene := t.top()
	if scene.perPass != nil {
		scene.perPass.Required = true
	}
	if scene.perPhase != nil {
		scene.perPhase.Required = true
	}

	t.checkOpen(scopeQueue, scopeScene)
}

func (t *traversal) exitScene(id rendergraph.NodeID) {
	t.checkOpen(scopeQueue, scopeScene)
	core.Expects(t.top().node == id, "closing scene %s out of order", t.rg.Name(id))
	t.tryCreatePerPass(id)
	t.tryCreatePerPhase(id)
	t.frames.Pop()
}
