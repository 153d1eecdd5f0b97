package layoutgraph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
)

const forwardLayouts = `
[[layouts]]
name = "forward"

[[layouts.sets]]
frequency = "per_pass"

[[layouts.sets.blocks]]
type = "uniform_buffer"
descriptors = [{ name = "CCCamera" }]

[[layouts.sets.blocks]]
type = "sampler_texture"
descriptors = [{ name = "cc_shadowMap" }, { name = "cc_environment", type = "sampler_cube" }]

[[layouts.sets.uniforms]]
name = "CCCamera"
members = [
	{ name = "cc_matView", type = "mat4" },
	{ name = "cc_cameraPos", type = "float4" },
]

[[layouts]]
name = "default"
parent = "/forward"

[[layouts.sets]]
frequency = "per_phase"

[[layouts.sets.blocks]]
type = "storage_buffer"
descriptors = [{ name = "cc_lights" }]
`

func buildForward(t *testing.T) *Graph {
	t.Helper()
	doc, err := Decode(strings.NewReader(forwardLayouts))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g, err := Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuild(t *testing.T) {
	g := buildForward(t)
	if g.Len() != 2 {
		t.Fatalf("Graph.Len:\nhave %d\nwant 2", g.Len())
	}
	forward := g.Locate(NullLayout, "forward")
	if forward == NullLayout {
		t.Fatal("Locate(forward): not found")
	}
	set := g.Layout(forward).DescriptorSets[PerPass]
	if set == nil {
		t.Fatal("forward: no per_pass set")
	}
	if set.Capacity != 3 {
		t.Fatalf("per_pass capacity:\nhave %d\nwant 3", set.Capacity)
	}
	if have := len(set.DescriptorBlocks); have != 2 {
		t.Fatalf("per_pass blocks:\nhave %d\nwant 2", have)
	}
	textures := set.DescriptorBlocks[1]
	if textures.Offset != 1 || textures.Capacity != 2 {
		t.Fatalf("sampler_texture block:\nhave offset %d capacity %d\nwant offset 1 capacity 2", textures.Offset, textures.Capacity)
	}
	if textures.Descriptors[0].Type != metadata.TypeSampler2D {
		t.Fatalf("default sampler type:\nhave %s\nwant %s", textures.Descriptors[0].Type, metadata.TypeSampler2D)
	}
	if textures.Descriptors[1].Type != metadata.TypeSamplerCube {
		t.Fatalf("explicit sampler type:\nhave %s\nwant %s", textures.Descriptors[1].Type, metadata.TypeSamplerCube)
	}

	camera, ok := g.AttributeID("CCCamera")
	if !ok {
		t.Fatal("AttributeID(CCCamera): not registered")
	}
	block := set.UniformBlocks[camera]
	if block == nil {
		t.Fatal("CCCamera: uniform block not described")
	}
	if have, want := block.Size(), uint32(64+16); have != want {
		t.Fatalf("CCCamera size:\nhave %d\nwant %d", have, want)
	}
	if _, ok := g.ConstantID("cc_matView"); !ok {
		t.Fatal("ConstantID(cc_matView): not registered")
	}

	def := g.Locate(forward, "default")
	if def == NullLayout || g.Layout(def).Parent != forward {
		t.Fatalf("Locate(forward, default): have %d", def)
	}
	if _, ok := g.Layout(def).DescriptorSets[PerPass]; ok {
		t.Fatal("default: unexpected per_pass set")
	}
}

func TestBuildOutOfOrderParents(t *testing.T) {
	docs := []*Document{
		{Layouts: []LayoutDoc{{Name: "leaf", Parent: "/root/mid"}}},
		{Layouts: []LayoutDoc{{Name: "mid", Parent: "/root"}, {Name: "root"}}},
	}
	g, err := Build(docs...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if id := g.Locate(NullLayout, "root/mid/leaf"); id == NullLayout {
		t.Fatal("Locate(root/mid/leaf): not found")
	} else if have := g.Path(id); have != "/root/mid/leaf" {
		t.Fatalf("Path:\nhave %q\nwant %q", have, "/root/mid/leaf")
	}

	_, err = Build(&Document{Layouts: []LayoutDoc{{Name: "orphan", Parent: "/missing"}}})
	if !errors.Is(err, core.ErrLayoutNotFound) {
		t.Fatalf("Build (orphan): have %v, want ErrLayoutNotFound", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"frequency", "[[layouts]]\nname = \"a\"\n[[layouts.sets]]\nfrequency = \"per_frame\"\n", core.ErrUnknownFrequency},
		{"block", "[[layouts]]\nname = \"a\"\n[[layouts.sets]]\nfrequency = \"per_pass\"\n[[layouts.sets.blocks]]\ntype = \"ssbo\"\n", core.ErrUnknownDescriptorType},
		{"member", "[[layouts]]\nname = \"a\"\n[[layouts.sets]]\nfrequency = \"per_pass\"\n[[layouts.sets.uniforms]]\nname = \"U\"\nmembers = [{ name = \"x\", type = \"quaternion\" }]\n", core.ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if _, err := Build(doc); !errors.Is(err, tt.want) {
				t.Fatalf("Build:\nhave %v\nwant %v", err, tt.want)
			}
		})
	}

	if _, err := Decode(strings.NewReader("[[layouts]]\nname = \"a\"\ncolour = 1\n")); err == nil {
		t.Fatal("Decode (unknown field): have nil error")
	}
}

func TestLocate(t *testing.T) {
	g := NewGraph()
	pass, _ := g.AddLayout(NullLayout, "deferred")
	gbuffer, _ := g.AddLayout(pass, "gbuffer")
	opaque, _ := g.AddLayout(gbuffer, "opaque")

	tests := []struct {
		parent LayoutID
		path   string
		want   LayoutID
	}{
		{NullLayout, "deferred", pass},
		{NullLayout, "deferred/gbuffer/opaque", opaque},
		{pass, "gbuffer", gbuffer},
		{pass, "gbuffer/opaque", opaque},
		{opaque, "/deferred", pass},
		{pass, "opaque", NullLayout},
		{NullLayout, "", NullLayout},
		{NullLayout, "forward", NullLayout},
	}
	for _, tt := range tests {
		if have := g.Locate(tt.parent, tt.path); have != tt.want {
			t.Errorf("Locate(%d, %q):\nhave %d\nwant %d", tt.parent, tt.path, have, tt.want)
		}
	}

	if _, err := g.AddLayout(pass, "gbuffer"); err == nil {
		t.Error("AddLayout (duplicate): have nil error")
	}
	if _, err := g.AddLayout(NullLayout, "a/b"); err == nil {
		t.Error("AddLayout (slash): have nil error")
	}
}

func TestSetDescriptorSetValidation(t *testing.T) {
	g := NewGraph()
	id, _ := g.AddLayout(NullLayout, "pass")
	ubo := g.RegisterAttribute("Globals")

	data := NewDescriptorSetLayoutData()
	data.AddBlock(UniformBuffer, Descriptor{ID: ubo})
	if err := g.SetDescriptorSet(id, PerPass, data); err == nil {
		t.Fatal("SetDescriptorSet (undescribed uniform): have nil error")
	}
	data.AddUniformBlock(ubo, &UniformBlock{Name: "Globals", Members: []UniformMember{{Name: "time", Type: metadata.TypeFloat4}}})
	if err := g.SetDescriptorSet(id, PerPass, data); err != nil {
		t.Fatalf("SetDescriptorSet: %v", err)
	}

	data.Capacity++
	if err := g.SetDescriptorSet(id, PerPass, data); err == nil {
		t.Fatal("SetDescriptorSet (capacity): have nil error")
	}
	data.Capacity--
	data.DescriptorBlocks[0].Offset = 3
	if err := g.SetDescriptorSet(id, PerPass, data); err == nil {
		t.Fatal("SetDescriptorSet (offset): have nil error")
	}
}

func TestResolver(t *testing.T) {
	g := buildForward(t)
	r, err := NewResolver(g, 0)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	id, layout, err := r.LayoutByName("forward")
	if err != nil {
		t.Fatalf("LayoutByName: %v", err)
	}
	if layout.Name != "forward" {
		t.Fatalf("LayoutByName:\nhave %q\nwant %q", layout.Name, "forward")
	}
	if again := r.Locate(NullLayout, "forward"); again != id {
		t.Fatalf("Locate (cached):\nhave %d\nwant %d", again, id)
	}
	if _, ok := r.DescriptorSetLayout(id, PerPass); !ok {
		t.Fatal("DescriptorSetLayout(per_pass): not found")
	}
	if _, ok := r.DescriptorSetLayout(id, PerBatch); ok {
		t.Fatal("DescriptorSetLayout(per_batch): unexpected set")
	}
	if _, _, err := r.LayoutByName("shadow"); !errors.Is(err, core.ErrLayoutNotFound) {
		t.Fatalf("LayoutByName(shadow): have %v, want ErrLayoutNotFound", err)
	}

	// A new graph must not be answered from the old cache.
	other := NewGraph()
	other.AddLayout(NullLayout, "shadow")
	fwd, _ := other.AddLayout(NullLayout, "forward")
	r.Reset(other)
	if have := r.Locate(NullLayout, "forward"); have != fwd {
		t.Fatalf("Locate after Reset:\nhave %d\nwant %d", have, fwd)
	}
}

func TestResolverConstantIDMissing(t *testing.T) {
	r, _ := NewResolver(NewGraph(), 8)
	err := func() (err error) {
		defer core.RecoverContract(&err)
		r.ConstantID("cc_missing")
		return nil
	}()
	if !core.IsContractViolation(err) {
		t.Fatalf("ConstantID (missing): have %v, want contract violation", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	parts := map[string]string{
		"00-forward.toml": forwardLayouts,
		"10-shadow.toml":  "[[layouts]]\nname = \"shadow\"\nparent = \"/forward\"\n",
		"README.md":       "not a layout",
	}
	for name, content := range parts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	g, err := LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if g.Locate(NullLayout, "forward/shadow") == NullLayout {
		t.Fatal("LoadDir: forward/shadow not found")
	}

	if err := os.WriteFile(filepath.Join(dir, "20-broken.toml"), []byte("[[layouts]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(context.Background(), dir); err == nil {
		t.Fatal("LoadDir (broken file): have nil error")
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "forward.toml"), []byte(forwardLayouts), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case g := <-w.Graphs():
		if g.Locate(NullLayout, "forward/default") == NullLayout {
			t.Fatal("reloaded graph: forward/default not found")
		}
	case err := <-w.Errors():
		t.Fatalf("Watcher: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher: no graph after 5s")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err == nil {
		t.Fatal("Close (twice): have nil error")
	}
}

func TestLoadDirEmpty(t *testing.T) {
	if _, err := LoadDir(context.Background(), t.TempDir()); err == nil {
		t.Fatal("LoadDir (empty dir): have nil error")
	}
}
