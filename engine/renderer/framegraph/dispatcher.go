package framegraph

import (
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/resourcegraph"
)

// AttributeIndex maps descriptor names to their layout graph ids.
type AttributeIndex interface {
	AttributeID(name string) (layoutgraph.NameID, bool)
}

// ResourceIndex maps descriptors of a pass to the physical resources bound
// to them by the pass views.
type ResourceIndex map[layoutgraph.NameID]resourcegraph.ResourceID

type AccessStatus struct {
	Access metadata.AccessFlags
}

// AccessNode is how one pass or subpass touches each resource, keyed by the
// name of the root resource.
type AccessNode struct {
	ResourceStatus map[string]AccessStatus
}

// Dispatcher derives resource access of every pass and subpass of a render
// graph.
type Dispatcher struct {
	renderGraph   *rendergraph.Graph
	resourceGraph *resourcegraph.Graph
	attributes    AttributeIndex

	accessNodes map[rendergraph.NodeID]*AccessNode
}

func NewDispatcher(rg *rendergraph.Graph, resg *resourcegraph.Graph, attributes AttributeIndex) *Dispatcher {
	return &Dispatcher{
		renderGraph:   rg,
		resourceGraph: resg,
		attributes:    attributes,
		accessNodes:   make(map[rendergraph.NodeID]*AccessNode),
	}
}

func (d *Dispatcher) RenderGraph() *rendergraph.Graph {
	return d.renderGraph
}

func (d *Dispatcher) ResourceGraph() *resourcegraph.Graph {
	return d.resourceGraph
}

// Run computes the access nodes. It must be called once the render graph is
// complete.
func (d *Dispatcher) Run() {
	clear(d.accessNodes)
	for _, pass := range d.renderGraph.Roots() {
		d.visit(pass)
	}
}

func (d *Dispatcher) visit(id rendergraph.NodeID) {
	switch n := d.renderGraph.Node(id).(type) {
	case *rendergraph.RasterPass:
		d.accessNodes[id] = d.accessNode(n.RasterViews, n.ComputeViews, false)
	case *rendergraph.ComputePass:
		d.accessNodes[id] = d.accessNode(nil, n.ComputeViews, true)
	case *rendergraph.RaytracePass:
		d.accessNodes[id] = d.accessNode(nil, n.ComputeViews, true)
	case *rendergraph.RasterSubpass:
		d.accessNodes[id] = d.accessNode(n.RasterViews, n.ComputeViews, false)
	case *rendergraph.ComputeSubpass:
		d.accessNodes[id] = d.accessNode(nil, n.ComputeViews, true)
	default:
		return
	}
	for _, child := range d.renderGraph.Children(id) {
		d.visit(child)
	}
}

func (d *Dispatcher) rootName(resName string) string {
	id := d.resourceGraph.Find(resName)
	if id == resourcegraph.NullResource {
		return resName
	}
	if parent := d.resourceGraph.Parent(id); parent != resourcegraph.NullResource {
		return d.resourceGraph.Name(parent)
	}
	return resName
}

func (d *Dispatcher) accessNode(raster rendergraph.RasterViews, compute rendergraph.ComputeViews, computeQueue bool) *AccessNode {
	node := &AccessNode{ResourceStatus: make(map[string]AccessStatus)}
	add := func(resName string, access metadata.AccessFlags) {
		name := d.rootName(resName)
		status := node.ResourceStatus[name]
		status.Access |= access
		node.ResourceStatus[name] = status
	}
	for resName, view := range raster {
		add(resName, rasterAccess(view))
	}
	for resName, views := range compute {
		for _, view := range views {
			add(resName, computeAccess(view, computeQueue))
		}
	}
	return node
}

func rasterAccess(view rendergraph.RasterView) metadata.AccessFlags {
	depth := view.AttachmentType == rendergraph.AttachmentDepthStencil
	switch view.AccessType {
	case rendergraph.AccessRead:
		if depth {
			return metadata.AccessFragmentShaderReadDepthStencilInputAttachment
		}
		return metadata.AccessFragmentShaderReadColorInputAttachment
	case rendergraph.AccessWrite:
		if depth {
			return metadata.AccessDepthStencilAttachmentWrite
		}
		return metadata.AccessColorAttachmentWrite
	default:
		if depth {
			return metadata.AccessDepthStencilAttachmentRead | metadata.AccessDepthStencilAttachmentWrite
		}
		return metadata.AccessColorAttachmentRead | metadata.AccessColorAttachmentWrite
	}
}

func computeAccess(view rendergraph.ComputeView, computeQueue bool) metadata.AccessFlags {
	var read, write metadata.AccessFlags
	if computeQueue {
		read, write = metadata.AccessComputeShaderReadTexture, metadata.AccessComputeShaderWrite
	} else {
		read, write = metadata.AccessFragmentShaderReadTexture, metadata.AccessFragmentShaderWrite
	}
	switch view.AccessType {
	case rendergraph.AccessRead:
		return read
	case rendergraph.AccessWrite:
		return write
	default:
		return read | write
	}
}

// AccessNode returns the access node of a pass or subpass.
func (d *Dispatcher) AccessNode(id rendergraph.NodeID) *AccessNode {
	node, ok := d.accessNodes[id]
	core.Expects(ok, "no access node for %s", d.renderGraph.Name(id))
	return node
}

// Access returns how the node accesses res. Sub-resources share the access
// of their root resource.
func (n *AccessNode) Access(resg *resourcegraph.Graph, res resourcegraph.ResourceID) (metadata.AccessFlags, bool) {
	root := resg.Parent(res)
	if root == resourcegraph.NullResource {
		root = res
	}
	status, ok := n.ResourceStatus[resg.Name(root)]
	return status.Access, ok
}

// AccessFlags returns how the pass or subpass id accesses res.
func (d *Dispatcher) AccessFlags(id rendergraph.NodeID, res resourcegraph.ResourceID) metadata.AccessFlags {
	access, ok := d.AccessNode(id).Access(d.resourceGraph, res)
	core.Expects(ok, "%s does not access %s", d.renderGraph.Name(id), d.resourceGraph.Name(res))
	return access
}

// BuildDescriptorIndex maps the shader names exposed by the views to the
// resources they view. Write-only raster views are attachments, not
// descriptors.
func (d *Dispatcher) BuildDescriptorIndex(compute rendergraph.ComputeViews, raster rendergraph.RasterViews, index ResourceIndex) {
	for resName, views := range compute {
		for _, view := range views {
			d.index(view.Name, resName, index)
		}
	}
	for resName, view := range raster {
		if view.AccessType == rendergraph.AccessWrite || view.SlotName == "" {
			continue
		}
		d.index(view.SlotName, resName, index)
	}
}

func (d *Dispatcher) index(attrName, resName string, index ResourceIndex) {
	attrID, ok := d.attributes.AttributeID(attrName)
	if !ok {
		core.LogDebug("descriptor %s of resource %s is not used by any layout", attrName, resName)
		return
	}
	resID := d.resourceGraph.Find(resName)
	core.Expects(resID != resourcegraph.NullResource, "resource %s is not in the resource graph", resName)
	index[attrID] = resID
}
