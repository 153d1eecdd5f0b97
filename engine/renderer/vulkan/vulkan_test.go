package vulkan

import (
	"errors"
	"strings"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
)

const layouts = `
[[layouts]]
name = "forward"

[[layouts.sets]]
frequency = "per_pass"

[[layouts.sets.blocks]]
type = "uniform_buffer"
descriptors = [{ name = "CCCamera" }]

[[layouts.sets.blocks]]
type = "sampler_texture"
descriptors = [{ name = "cc_shadowMap" }, { name = "cc_spotShadowMap" }]

[[layouts.sets.uniforms]]
name = "CCCamera"
members = [{ name = "cc_matView", type = "mat4" }]

[[layouts]]
name = "default"
parent = "/forward"

[[layouts.sets]]
frequency = "per_phase"

[[layouts.sets.blocks]]
type = "storage_buffer"
descriptors = [{ name = "cc_lights" }]

[[layouts.sets.blocks]]
type = "sampler_texture"
descriptors = [{ name = "cc_environment", type = "sampler_cube" }]
`

func graph(t *testing.T) *layoutgraph.Graph {
	t.Helper()
	doc, err := layoutgraph.Decode(strings.NewReader(layouts))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g, err := layoutgraph.Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestDescriptorType(t *testing.T) {
	tests := []struct {
		in   layoutgraph.DescriptorTypeOrder
		want vk.DescriptorType
	}{
		{layoutgraph.UniformBuffer, vk.DescriptorTypeUniformBuffer},
		{layoutgraph.DynamicUniformBuffer, vk.DescriptorTypeUniformBufferDynamic},
		{layoutgraph.SamplerTexture, vk.DescriptorTypeCombinedImageSampler},
		{layoutgraph.Sampler, vk.DescriptorTypeSampler},
		{layoutgraph.Texture, vk.DescriptorTypeSampledImage},
		{layoutgraph.StorageBuffer, vk.DescriptorTypeStorageBuffer},
		{layoutgraph.DynamicStorageBuffer, vk.DescriptorTypeStorageBufferDynamic},
		{layoutgraph.StorageImage, vk.DescriptorTypeStorageImage},
		{layoutgraph.InputAttachment, vk.DescriptorTypeInputAttachment},
	}
	for _, tt := range tests {
		have, err := DescriptorType(tt.in)
		if err != nil {
			t.Errorf("DescriptorType(%s): %v", tt.in, err)
			continue
		}
		if have != tt.want {
			t.Errorf("DescriptorType(%s):\nhave %d\nwant %d", tt.in, have, tt.want)
		}
	}
	if _, err := DescriptorType(layoutgraph.DescriptorTypeOrder(200)); !errors.Is(err, core.ErrUnknownDescriptorType) {
		t.Errorf("DescriptorType(200):\nhave %v\nwant %v", err, core.ErrUnknownDescriptorType)
	}
}

func TestSetIndex(t *testing.T) {
	if SetIndex(layoutgraph.PerPass) != 0 || SetIndex(layoutgraph.PerInstance) != 3 {
		t.Fatalf("SetIndex: have per_pass=%d per_instance=%d", SetIndex(layoutgraph.PerPass), SetIndex(layoutgraph.PerInstance))
	}
}

func TestSetLayoutBindings(t *testing.T) {
	g := graph(t)
	forward := g.Locate(layoutgraph.NullLayout, "forward")
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

	bindings, err := SetLayoutBindings(g.Layout(forward).DescriptorSets[layoutgraph.PerPass], stages)
	if err != nil {
		t.Fatalf("SetLayoutBindings: %v", err)
	}
	want := []struct {
		binding uint32
		typ     vk.DescriptorType
	}{
		{0, vk.DescriptorTypeUniformBuffer},
		{1, vk.DescriptorTypeCombinedImageSampler},
		{2, vk.DescriptorTypeCombinedImageSampler},
	}
	if len(bindings) != len(want) {
		t.Fatalf("bindings:\nhave %d\nwant %d", len(bindings), len(want))
	}
	for i, w := range want {
		b := bindings[i]
		if b.Binding != w.binding || b.DescriptorType != w.typ || b.DescriptorCount != 1 || b.StageFlags != stages {
			t.Errorf("binding %d:\nhave %+v\nwant binding %d type %d", i, b, w.binding, w.typ)
		}
	}

	info := SetLayoutCreateInfo(bindings)
	if info.SType != vk.StructureTypeDescriptorSetLayoutCreateInfo || info.BindingCount != 3 {
		t.Errorf("SetLayoutCreateInfo: have %+v", info)
	}
}

func TestPoolSizes(t *testing.T) {
	g := graph(t)
	forward := g.Locate(layoutgraph.NullLayout, "forward")
	phase := g.Locate(forward, "default")
	sets := []*layoutgraph.DescriptorSetLayoutData{
		g.Layout(forward).DescriptorSets[layoutgraph.PerPass],
		g.Layout(phase).DescriptorSets[layoutgraph.PerPhase],
	}

	sizes, err := PoolSizes(sets, 4)
	if err != nil {
		t.Fatalf("PoolSizes: %v", err)
	}
	want := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 12},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 4},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 4},
	}
	if len(sizes) != len(want) {
		t.Fatalf("PoolSizes:\nhave %+v\nwant %+v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("PoolSizes[%d]:\nhave %+v\nwant %+v", i, sizes[i], want[i])
		}
	}

	info := PoolCreateInfo(sizes, 8)
	if info.MaxSets != 8 || info.PoolSizeCount != 3 {
		t.Errorf("PoolCreateInfo: have %+v", info)
	}
}

func TestDescribeLayout(t *testing.T) {
	g := graph(t)
	phase := g.Locate(layoutgraph.NullLayout, "forward/default")

	info, err := DescribeLayout(g, phase, vk.ShaderStageFlags(vk.ShaderStageAll))
	if err != nil {
		t.Fatalf("DescribeLayout: %v", err)
	}
	if info.Path != "/forward/default" {
		t.Errorf("Path:\nhave %q\nwant /forward/default", info.Path)
	}
	// per_pass comes from the parent layout.
	if have := len(info.Bindings[SetIndex(layoutgraph.PerPass)]); have != 3 {
		t.Errorf("per_pass bindings:\nhave %d\nwant 3", have)
	}
	if have := len(info.Bindings[SetIndex(layoutgraph.PerPhase)]); have != 2 {
		t.Errorf("per_phase bindings:\nhave %d\nwant 2", have)
	}
	if have := len(info.Bindings[SetIndex(layoutgraph.PerBatch)]); have != 0 {
		t.Errorf("per_batch bindings:\nhave %d\nwant 0", have)
	}

	if _, err := DescribeLayout(g, layoutgraph.NullLayout, 0); !errors.Is(err, core.ErrLayoutNotFound) {
		t.Errorf("DescribeLayout(null):\nhave %v\nwant %v", err, core.ErrLayoutNotFound)
	}
}

func TestImageLayout(t *testing.T) {
	tests := []struct {
		access metadata.AccessFlags
		want   vk.ImageLayout
	}{
		{metadata.AccessNone, vk.ImageLayoutShaderReadOnlyOptimal},
		{metadata.AccessFragmentShaderReadTexture, vk.ImageLayoutShaderReadOnlyOptimal},
		{metadata.AccessComputeShaderWrite, vk.ImageLayoutGeneral},
		{metadata.AccessFragmentShaderReadColorInputAttachment, vk.ImageLayoutShaderReadOnlyOptimal},
		{metadata.AccessFragmentShaderReadColorInputAttachment | metadata.AccessColorAttachmentWrite, vk.ImageLayoutGeneral},
		{metadata.AccessFragmentShaderReadDepthStencilInputAttachment, vk.ImageLayoutDepthStencilReadOnlyOptimal},
		{metadata.AccessDepthStencilAttachmentWrite, vk.ImageLayoutDepthStencilAttachmentOptimal},
		{metadata.AccessColorAttachmentWrite, vk.ImageLayoutColorAttachmentOptimal},
		{metadata.AccessTransferWrite, vk.ImageLayoutTransferDstOptimal},
	}
	for _, tt := range tests {
		if have := ImageLayout(tt.access); have != tt.want {
			t.Errorf("ImageLayout(%s):\nhave %d\nwant %d", tt.access, have, tt.want)
		}
	}
}

func TestWriteDescriptors(t *testing.T) {
	var (
		set     vk.DescriptorSet
		buffer  vk.Buffer
		view    vk.ImageView
		sampler vk.Sampler
	)
	w := WriteBuffer(set, 3, vk.DescriptorTypeUniformBuffer, buffer, 80)
	if w.DstBinding != 3 || len(w.PBufferInfo) != 1 || w.PBufferInfo[0].Range != 80 {
		t.Errorf("WriteBuffer: have %+v", w)
	}

	w = WriteImage(set, 1, vk.DescriptorTypeStorageImage, view, sampler, metadata.AccessComputeShaderWrite)
	if len(w.PImageInfo) != 1 || w.PImageInfo[0].ImageLayout != vk.ImageLayoutGeneral {
		t.Errorf("WriteImage(storage): have %+v", w)
	}

	w = WriteImage(set, 2, vk.DescriptorTypeSampler, view, sampler, metadata.AccessFragmentShaderReadTexture)
	if w.PImageInfo[0].ImageLayout != vk.ImageLayoutUndefined {
		t.Errorf("WriteImage(sampler): layout %d, want undefined", w.PImageInfo[0].ImageLayout)
	}
}
