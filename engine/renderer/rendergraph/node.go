package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
)

// Node is the payload of a render graph vertex. The set of node kinds is
// closed: descriptor preparation handles every one of them explicitly.
type Node interface {
	isNode()
}

type AccessType uint8

const (
	AccessRead AccessType = iota
	AccessWrite
	AccessReadWrite
)

func (a AccessType) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read_write"
	default:
		return fmt.Sprintf("AccessType(%d)", uint8(a))
	}
}

func ParseAccessType(s string) (AccessType, error) {
	for a := AccessRead; a <= AccessReadWrite; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return AccessRead, fmt.Errorf("string %s is not a valid AccessType", s)
}

type AttachmentType uint8

const (
	AttachmentRenderTarget AttachmentType = iota
	AttachmentDepthStencil
	AttachmentShadingRate
)

func (a AttachmentType) String() string {
	switch a {
	case AttachmentRenderTarget:
		return "render_target"
	case AttachmentDepthStencil:
		return "depth_stencil"
	case AttachmentShadingRate:
		return "shading_rate"
	default:
		return fmt.Sprintf("AttachmentType(%d)", uint8(a))
	}
}

func ParseAttachmentType(s string) (AttachmentType, error) {
	for a := AttachmentRenderTarget; a <= AttachmentShadingRate; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return AttachmentRenderTarget, fmt.Errorf("string %s is not a valid AttachmentType", s)
}

// RasterView is an attachment of a raster pass. Read views are exposed to
// shaders as input attachments under SlotName.
type RasterView struct {
	SlotName       string
	AccessType     AccessType
	AttachmentType AttachmentType
}

// ComputeView exposes a resource to shaders under Name.
type ComputeView struct {
	Name       string
	AccessType AccessType
}

// RasterViews and ComputeViews are keyed by resource name.
type RasterViews map[string]RasterView
type ComputeViews map[string][]ComputeView

type RasterPass struct {
	Width        uint32
	Height       uint32
	RasterViews  RasterViews
	ComputeViews ComputeViews
}

type ComputePass struct {
	ComputeViews ComputeViews
}

type RaytracePass struct {
	ComputeViews ComputeViews
}

type RasterSubpass struct {
	RasterViews  RasterViews
	ComputeViews ComputeViews
}

type ComputeSubpass struct {
	ComputeViews ComputeViews
}

// RenderQueue groups the draws of one phase. PhaseID must name a layout;
// PassLayoutID overrides the layout inherited from the enclosing pass when
// it is not NullLayout.
type RenderQueue struct {
	PhaseID      layoutgraph.LayoutID
	PassLayoutID layoutgraph.LayoutID
}

type SceneData struct {
	Scene string
}

type Blit struct {
	Material string
	PassID   uint32
}

type Dispatch struct {
	ThreadGroupCountX uint32
	ThreadGroupCountY uint32
	ThreadGroupCountZ uint32
}

type ResolvePair struct {
	Source string
	Target string
}

type ResolvePass struct {
	Pairs []ResolvePair
}

type CopyPair struct {
	Source string
	Target string
}

type CopyPass struct {
	Pairs []CopyPair
}

type MovePair struct {
	Source string
	Target string
}

type MovePass struct {
	Pairs []MovePair
}

type ClearView struct {
	SlotName string
	Color    [4]float32
}

type ClearViews []ClearView

type Viewport struct {
	Left, Top        int32
	Width, Height    uint32
	MinDepth, MaxDepth float32
}

func (*RasterPass) isNode()     {}
func (*ComputePass) isNode()    {}
func (*RaytracePass) isNode()   {}
func (*RasterSubpass) isNode()  {}
func (*ComputeSubpass) isNode() {}
func (*RenderQueue) isNode()    {}
func (*SceneData) isNode()      {}
func (*Blit) isNode()           {}
func (*Dispatch) isNode()       {}
func (*ResolvePass) isNode()    {}
func (*CopyPass) isNode()       {}
func (*MovePass) isNode()       {}
func (*ClearViews) isNode()     {}
func (*Viewport) isNode()       {}

// Kind returns a short name of the node kind, used in logs and frame files.
func Kind(n Node) string {
	switch n.(type) {
	case *RasterPass:
		return "raster_pass"
	case *ComputePass:
		return "compute_pass"
	case *RaytracePass:
		return "raytrace_pass"
	case *RasterSubpass:
		return "raster_subpass"
	case *ComputeSubpass:
		return "compute_subpass"
	case *RenderQueue:
		return "queue"
	case *SceneData:
		return "scene"
	case *Blit:
		return "blit"
	case *Dispatch:
		return "dispatch"
	case *ResolvePass:
		return "resolve"
	case *CopyPass:
		return "copy"
	case *MovePass:
		return "move"
	case *ClearViews:
		return "clear"
	case *Viewport:
		return "viewport"
	default:
		return fmt.Sprintf("%T", n)
	}
}
