package framegraph

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/rendergraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/resourcegraph"
)

// LayoutLocator resolves the layout and name references of a frame file.
// *layoutgraph.Graph implements it.
type LayoutLocator interface {
	Locate(parent layoutgraph.LayoutID, path string) layoutgraph.LayoutID
	AttributeID(name string) (layoutgraph.NameID, bool)
	ConstantID(name string) (layoutgraph.NameID, bool)
}

// Objects creates the device objects a frame file declares.
type Objects interface {
	CreateBuffer(name string, size uint32) renderer.Buffer
	CreateTexture(name string, textureType metadata.TextureType) renderer.Texture
	CreateSampler(name string) renderer.Sampler
}

// FrameDoc is the on-disk description of one frame.
type FrameDoc struct {
	Global    DataDoc       `toml:"global"`
	Objects   []ObjectDoc   `toml:"objects"`
	Resources []ResourceDoc `toml:"resources"`
	Passes    []NodeDoc     `toml:"passes"`
}

// ObjectDoc declares a buffer, texture or sampler render data can refer to.
type ObjectDoc struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
	Size uint32 `toml:"size"`
	Type string `toml:"type"`
}

// ResourceDoc declares a physical resource of the resource graph. Parent
// makes it a sub-resource of an earlier texture.
type ResourceDoc struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Size   uint32 `toml:"size"`
	Type   string `toml:"type"`
	Parent string `toml:"parent"`
}

// DataDoc is the render data of a node. Constants are keyed by uniform
// member name, the rest by descriptor name with an object name as value.
type DataDoc struct {
	Constants map[string][]float32 `toml:"constants"`
	Buffers   map[string]string    `toml:"buffers"`
	Textures  map[string]string    `toml:"textures"`
	Samplers  map[string]string    `toml:"samplers"`
}

type NodeDoc struct {
	Kind       string `toml:"kind"`
	Name       string `toml:"name"`
	Layout     string `toml:"layout"`
	Phase      string `toml:"phase"`
	PassLayout string `toml:"pass_layout"`

	RasterViews  []RasterViewDoc  `toml:"raster_views"`
	ComputeViews []ComputeViewDoc `toml:"compute_views"`

	Data     DataDoc   `toml:"data"`
	Children []NodeDoc `toml:"children"`
}

type RasterViewDoc struct {
	Resource   string `toml:"resource"`
	Slot       string `toml:"slot"`
	Access     string `toml:"access"`
	Attachment string `toml:"attachment"`
}

type ComputeViewDoc struct {
	Resource string `toml:"resource"`
	Name     string `toml:"name"`
	Access   string `toml:"access"`
}

// Frame is a loaded frame, ready for descriptor preparation.
type Frame struct {
	RenderGraph   *rendergraph.Graph
	ResourceGraph *resourcegraph.Graph
	Dispatcher    *Dispatcher
	// Layouts is what the frame was resolved against.
	Layouts LayoutLocator
}

func DecodeFrame(r io.Reader) (*FrameDoc, error) {
	doc := &FrameDoc{}
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decoding frame document")
	}
	return doc, nil
}

func LoadFrameFile(path string, layouts LayoutLocator, objects Objects) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frame, err := LoadFrame(f, layouts, objects)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return frame, nil
}

func LoadFrame(r io.Reader, layouts LayoutLocator, objects Objects) (*Frame, error) {
	doc, err := DecodeFrame(r)
	if err != nil {
		return nil, err
	}
	return BuildFrame(doc, layouts, objects)
}

type frameBuilder struct {
	layouts LayoutLocator
	objects Objects

	rg   *rendergraph.Graph
	resg *resourcegraph.Graph

	buffers  map[string]renderer.Buffer
	textures map[string]renderer.Texture
	samplers map[string]renderer.Sampler
}

func BuildFrame(doc *FrameDoc, layouts LayoutLocator, objects Objects) (*Frame, error) {
	b := &frameBuilder{
		layouts:  layouts,
		objects:  objects,
		rg:       rendergraph.NewGraph(),
		resg:     resourcegraph.NewGraph(),
		buffers:  make(map[string]renderer.Buffer),
		textures: make(map[string]renderer.Texture),
		samplers: make(map[string]renderer.Sampler),
	}
	for _, od := range doc.Objects {
		if err := b.addObject(od); err != nil {
			return nil, err
		}
	}
	for _, rd := range doc.Resources {
		if err := b.addResource(rd); err != nil {
			return nil, err
		}
	}
	if err := b.fillData(b.rg.Global(), doc.Global); err != nil {
		return nil, errors.Wrap(err, "global render data")
	}
	for _, nd := range doc.Passes {
		if err := b.addNode(rendergraph.NullNode, layoutgraph.NullLayout, nd); err != nil {
			return nil, err
		}
	}

	d := NewDispatcher(b.rg, b.resg, layouts)
	d.Run()
	core.LogDebug("loaded frame with %d nodes and %d resources", b.rg.Len(), b.resg.Len())
	return &Frame{RenderGraph: b.rg, ResourceGraph: b.resg, Dispatcher: d, Layouts: layouts}, nil
}

func parseTextureType(s string) (metadata.TextureType, error) {
	if s == "" {
		return metadata.TextureType2d, nil
	}
	return metadata.ParseTextureType(s)
}

func (b *frameBuilder) addObject(od ObjectDoc) error {
	switch od.Kind {
	case "buffer":
		b.buffers[od.Name] = b.objects.CreateBuffer(od.Name, od.Size)
	case "texture":
		typ, err := parseTextureType(od.Type)
		if err != nil {
			return errors.Wrapf(err, "object %q", od.Name)
		}
		b.textures[od.Name] = b.objects.CreateTexture(od.Name, typ)
	case "sampler":
		b.samplers[od.Name] = b.objects.CreateSampler(od.Name)
	default:
		return errors.Newf("object %q: unknown kind %q", od.Name, od.Kind)
	}
	return nil
}

func (b *frameBuilder) addResource(rd ResourceDoc) error {
	var err error
	switch rd.Kind {
	case "buffer":
		buf := b.objects.CreateBuffer(rd.Name, rd.Size)
		b.buffers[rd.Name] = buf
		_, err = b.resg.AddBuffer(rd.Name, buf)
	case "texture":
		var typ metadata.TextureType
		if typ, err = parseTextureType(rd.Type); err != nil {
			break
		}
		tex := b.objects.CreateTexture(rd.Name, typ)
		b.textures[rd.Name] = tex
		if rd.Parent == "" {
			_, err = b.resg.AddTexture(rd.Name, tex)
			break
		}
		parent := b.resg.Find(rd.Parent)
		if parent == resourcegraph.NullResource {
			err = errors.Newf("parent %q is not declared before", rd.Parent)
			break
		}
		_, err = b.resg.AddSubresource(parent, rd.Name, tex)
	default:
		err = errors.Newf("unknown kind %q", rd.Kind)
	}
	return errors.Wrapf(err, "resource %q", rd.Name)
}

func (b *frameBuilder) attribute(name string) (layoutgraph.NameID, error) {
	id, ok := b.layouts.AttributeID(name)
	if !ok {
		return 0, errors.Newf("descriptor %q is not declared by any layout", name)
	}
	return id, nil
}

func (b *frameBuilder) fillData(data *rendergraph.RenderData, dd DataDoc) error {
	for name, values := range dd.Constants {
		id, ok := b.layouts.ConstantID(name)
		if !ok {
			return errors.Newf("constant %q is not declared by any layout", name)
		}
		data.SetFloats(id, values...)
	}
	for name, object := range dd.Buffers {
		id, err := b.attribute(name)
		if err != nil {
			return err
		}
		buf, ok := b.buffers[object]
		if !ok {
			return errors.Newf("buffer %q is not declared", object)
		}
		data.SetBuffer(id, buf)
	}
	for name, object := range dd.Textures {
		id, err := b.attribute(name)
		if err != nil {
			return err
		}
		tex, ok := b.textures[object]
		if !ok {
			return errors.Newf("texture %q is not declared", object)
		}
		data.SetTexture(id, tex)
	}
	for name, object := range dd.Samplers {
		id, err := b.attribute(name)
		if err != nil {
			return err
		}
		smp, ok := b.samplers[object]
		if !ok {
			return errors.Newf("sampler %q is not declared", object)
		}
		data.SetSampler(id, smp)
	}
	return nil
}

func rasterViews(docs []RasterViewDoc) (rendergraph.RasterViews, error) {
	views := make(rendergraph.RasterViews, len(docs))
	for _, vd := range docs {
		view := rendergraph.RasterView{SlotName: vd.Slot, AccessType: rendergraph.AccessWrite}
		var err error
		if vd.Access != "" {
			if view.AccessType, err = rendergraph.ParseAccessType(vd.Access); err != nil {
				return nil, err
			}
		}
		if vd.Attachment != "" {
			if view.AttachmentType, err = rendergraph.ParseAttachmentType(vd.Attachment); err != nil {
				return nil, err
			}
		}
		views[vd.Resource] = view
	}
	return views, nil
}

func computeViews(docs []ComputeViewDoc) (rendergraph.ComputeViews, error) {
	views := make(rendergraph.ComputeViews, len(docs))
	for _, vd := range docs {
		view := rendergraph.ComputeView{Name: vd.Name, AccessType: rendergraph.AccessRead}
		if vd.Access != "" {
			var err error
			if view.AccessType, err = rendergraph.ParseAccessType(vd.Access); err != nil {
				return nil, err
			}
		}
		views[vd.Resource] = append(views[vd.Resource], view)
	}
	return views, nil
}

// addNode adds nd under parent. scope is the pass layout in effect at
// parent, used to resolve queue phases.
func (b *frameBuilder) addNode(parent rendergraph.NodeID, scope layoutgraph.LayoutID, nd NodeDoc) error {
	raster, err := rasterViews(nd.RasterViews)
	if err != nil {
		return errors.Wrapf(err, "node %q", nd.Name)
	}
	compute, err := computeViews(nd.ComputeViews)
	if err != nil {
		return errors.Wrapf(err, "node %q", nd.Name)
	}

	isPass := parent == rendergraph.NullNode
	var node rendergraph.Node
	layout := nd.Layout
	switch nd.Kind {
	case "raster_pass":
		node = &rendergraph.RasterPass{RasterViews: raster, ComputeViews: compute}
	case "compute_pass":
		node = &rendergraph.ComputePass{ComputeViews: compute}
	case "raytrace_pass":
		node = &rendergraph.RaytracePass{ComputeViews: compute}
	case "raster_subpass":
		node = &rendergraph.RasterSubpass{RasterViews: raster, ComputeViews: compute}
	case "compute_subpass":
		node = &rendergraph.ComputeSubpass{ComputeViews: compute}
	case "queue":
		queue := &rendergraph.RenderQueue{PassLayoutID: layoutgraph.NullLayout}
		phaseParent := scope
		if nd.PassLayout != "" {
			queue.PassLayoutID = b.layouts.Locate(layoutgraph.NullLayout, nd.PassLayout)
			if queue.PassLayoutID == layoutgraph.NullLayout {
				return errors.Wrapf(core.ErrLayoutNotFound, "queue %q pass layout %q", nd.Name, nd.PassLayout)
			}
			phaseParent = queue.PassLayoutID
		}
		queue.PhaseID = b.layouts.Locate(phaseParent, nd.Phase)
		if queue.PhaseID == layoutgraph.NullLayout {
			return errors.Wrapf(core.ErrLayoutNotFound, "queue %q phase %q", nd.Name, nd.Phase)
		}
		node = queue
		layout = ""
	case "scene":
		node = &rendergraph.SceneData{Scene: nd.Name}
	case "blit":
		node = &rendergraph.Blit{}
	case "dispatch":
		node = &rendergraph.Dispatch{ThreadGroupCountX: 1, ThreadGroupCountY: 1, ThreadGroupCountZ: 1}
	case "resolve":
		node = &rendergraph.ResolvePass{}
	case "copy":
		node = &rendergraph.CopyPass{}
	case "move":
		node = &rendergraph.MovePass{}
	case "clear":
		node = &rendergraph.ClearViews{}
	case "viewport":
		node = &rendergraph.Viewport{}
	default:
		return errors.Wrapf(core.ErrUnknownNodeKind, "node %q: %q", nd.Name, nd.Kind)
	}

	switch node.(type) {
	case *rendergraph.RasterPass, *rendergraph.ComputePass, *rendergraph.RaytracePass:
		if !isPass {
			return errors.Newf("pass %q must be a root node", nd.Name)
		}
		scope = b.layouts.Locate(layoutgraph.NullLayout, layout)
		if scope == layoutgraph.NullLayout {
			return errors.Wrapf(core.ErrLayoutNotFound, "pass %q layout %q", nd.Name, layout)
		}
	case *rendergraph.ResolvePass, *rendergraph.CopyPass, *rendergraph.MovePass:
	case *rendergraph.RasterSubpass, *rendergraph.ComputeSubpass:
		if isPass {
			return errors.Newf("subpass %q must be inside a pass", nd.Name)
		}
		if layout != "" {
			scope = b.layouts.Locate(layoutgraph.NullLayout, layout)
			if scope == layoutgraph.NullLayout {
				return errors.Wrapf(core.ErrLayoutNotFound, "subpass %q layout %q", nd.Name, layout)
			}
		}
	default:
		if isPass {
			return errors.Newf("%s %q cannot be a root node", nd.Kind, nd.Name)
		}
	}

	id := b.rg.AddNode(parent, nd.Name, layout, node)
	if err := b.fillData(b.rg.Data(id), nd.Data); err != nil {
		return errors.Wrapf(err, "node %q", nd.Name)
	}
	for _, child := range nd.Children {
		if err := b.addNode(id, scope, child); err != nil {
			return err
		}
	}
	return nil
}
