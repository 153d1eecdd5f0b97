package layoutgraph

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
)

// Document is the on-disk description of a set of layouts.
//
//	[[layouts]]
//	name = "forward"
//
//	[[layouts.sets]]
//	frequency = "per_pass"
//
//	[[layouts.sets.blocks]]
//	type = "uniform_buffer"
//	descriptors = [{ name = "CCCamera" }]
//
//	[[layouts.sets.uniforms]]
//	name = "CCCamera"
//	members = [{ name = "cc_matView", type = "mat4" }]
type Document struct {
	Layouts []LayoutDoc `toml:"layouts"`
}

type LayoutDoc struct {
	Name string `toml:"name"`
	// Parent is the absolute path of the parent layout, empty for a root.
	Parent string   `toml:"parent"`
	Sets   []SetDoc `toml:"sets"`
}

type SetDoc struct {
	Frequency string       `toml:"frequency"`
	Blocks    []BlockDoc   `toml:"blocks"`
	Uniforms  []UniformDoc `toml:"uniforms"`
}

type BlockDoc struct {
	Type        string          `toml:"type"`
	Descriptors []DescriptorDoc `toml:"descriptors"`
}

type DescriptorDoc struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Count uint32 `toml:"count"`
}

type UniformDoc struct {
	Name    string      `toml:"name"`
	Count   uint32      `toml:"count"`
	Members []MemberDoc `toml:"members"`
}

type MemberDoc struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Count uint32 `toml:"count"`
}

// Decode reads a layout document. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	doc := &Document{}
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return nil, errors.Wrap(err, "decoding layout document")
	}
	return doc, nil
}

// Build assembles a graph out of documents. Layouts may reference parents
// declared later or in another document.
func Build(docs ...*Document) (*Graph, error) {
	var pending []LayoutDoc
	for _, doc := range docs {
		pending = append(pending, doc.Layouts...)
	}

	g := NewGraph()
	for len(pending) > 0 {
		var next []LayoutDoc
		for _, ld := range pending {
			parent := NullLayout
			if ld.Parent != "" {
				parent = g.Locate(NullLayout, ld.Parent)
				if parent == NullLayout {
					next = append(next, ld)
					continue
				}
			}
			if err := g.addLayoutDoc(parent, ld); err != nil {
				return nil, err
			}
		}
		if len(next) == len(pending) {
			return nil, errors.Wrapf(core.ErrLayoutNotFound, "parent %q of layout %q", next[0].Parent, next[0].Name)
		}
		pending = next
	}
	return g, nil
}

func (g *Graph) addLayoutDoc(parent LayoutID, ld LayoutDoc) error {
	id, err := g.AddLayout(parent, ld.Name)
	if err != nil {
		return err
	}
	for _, sd := range ld.Sets {
		freq, err := ParseUpdateFrequency(sd.Frequency)
		if err != nil {
			return errors.Wrapf(err, "layout %q", ld.Name)
		}
		data, err := g.buildSet(sd)
		if err != nil {
			return errors.Wrapf(err, "layout %q %s", ld.Name, freq)
		}
		if err := g.SetDescriptorSet(id, freq, data); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) buildSet(sd SetDoc) (*DescriptorSetLayoutData, error) {
	data := NewDescriptorSetLayoutData()
	for _, bd := range sd.Blocks {
		typ, err := ParseDescriptorTypeOrder(bd.Type)
		if err != nil {
			return nil, err
		}
		descriptors := make([]Descriptor, 0, len(bd.Descriptors))
		for _, dd := range bd.Descriptors {
			d := Descriptor{
				ID:    g.RegisterAttribute(dd.Name),
				Count: dd.Count,
			}
			if dd.Type != "" {
				if d.Type, err = metadata.TypeFromString(dd.Type); err != nil {
					return nil, errors.Wrapf(core.ErrUnknownType, "descriptor %q: %v", dd.Name, err)
				}
			} else {
				d.Type = defaultDescriptorType(typ)
			}
			descriptors = append(descriptors, d)
		}
		data.AddBlock(typ, descriptors...)
	}
	for _, ud := range sd.Uniforms {
		block := &UniformBlock{Name: ud.Name, Count: ud.Count}
		for _, md := range ud.Members {
			typ, err := metadata.TypeFromString(md.Type)
			if err != nil {
				return nil, errors.Wrapf(core.ErrUnknownType, "uniform %s.%s: %v", ud.Name, md.Name, err)
			}
			g.RegisterConstant(md.Name)
			block.Members = append(block.Members, UniformMember{Name: md.Name, Type: typ, Count: md.Count})
		}
		data.AddUniformBlock(g.RegisterAttribute(ud.Name), block)
	}
	return data, nil
}

func defaultDescriptorType(t DescriptorTypeOrder) metadata.Type {
	switch t {
	case SamplerTexture:
		return metadata.TypeSampler2D
	case Sampler:
		return metadata.TypeSampler
	case Texture:
		return metadata.TypeTexture2D
	case StorageImage:
		return metadata.TypeImage2D
	case InputAttachment:
		return metadata.TypeSubpassInput
	default:
		return metadata.TypeUnknown
	}
}

// LoadDir parses every *.toml file of dir concurrently and builds a single
// graph out of them. Files are merged in name order.
func LoadDir(ctx context.Context, dir string) (*Graph, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, errors.Wrapf(err, "listing layouts in %s", dir)
	}
	if len(files) == 0 {
		return nil, errors.Newf("no layout files in %s", dir)
	}
	sort.Strings(files)

	docs := make([]*Document, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := Decode(bytes.NewReader(data))
			if err != nil {
				return errors.Wrapf(err, "%s", file)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	core.LogDebug("loaded %d layout documents from %s", len(docs), dir)
	return Build(docs...)
}
