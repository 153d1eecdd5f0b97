package layoutgraph

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
)

// LayoutID identifies a vertex of the layout graph.
type LayoutID uint32

// NullLayout is the id of no layout. Locating from NullLayout searches the
// root layouts.
const NullLayout = ^LayoutID(0)

// NameID is the dense id of an attribute or a constant name.
type NameID uint32

// UpdateFrequency tells how often the contents of a descriptor set change.
type UpdateFrequency uint8

const (
	PerInstance UpdateFrequency = iota
	PerBatch
	PerPhase
	PerPass
	frequencyCount
)

func (f UpdateFrequency) String() string {
	switch f {
	case PerInstance:
		return "per_instance"
	case PerBatch:
		return "per_batch"
	case PerPhase:
		return "per_phase"
	case PerPass:
		return "per_pass"
	default:
		return fmt.Sprintf("UpdateFrequency(%d)", uint8(f))
	}
}

func ParseUpdateFrequency(s string) (UpdateFrequency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f := PerInstance; f < frequencyCount; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownFrequency, s)
}

// DescriptorTypeOrder is the kind of a descriptor block. Blocks of a set are
// bound in the order they are declared.
type DescriptorTypeOrder uint8

const (
	UniformBuffer DescriptorTypeOrder = iota
	DynamicUniformBuffer
	SamplerTexture
	Sampler
	Texture
	StorageBuffer
	DynamicStorageBuffer
	StorageImage
	InputAttachment
	descriptorTypeCount
)

var descriptorTypeNames = [descriptorTypeCount]string{
	UniformBuffer:        "uniform_buffer",
	DynamicUniformBuffer: "dynamic_uniform_buffer",
	SamplerTexture:       "sampler_texture",
	Sampler:              "sampler",
	Texture:              "texture",
	StorageBuffer:        "storage_buffer",
	DynamicStorageBuffer: "dynamic_storage_buffer",
	StorageImage:         "storage_image",
	InputAttachment:      "input_attachment",
}

func (t DescriptorTypeOrder) String() string {
	if t >= descriptorTypeCount {
		return fmt.Sprintf("DescriptorTypeOrder(%d)", uint8(t))
	}
	return descriptorTypeNames[t]
}

func ParseDescriptorTypeOrder(s string) (DescriptorTypeOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range descriptorTypeNames {
		if name == s {
			return DescriptorTypeOrder(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownDescriptorType, s)
}

// Descriptor is a single shader-visible binding inside a block.
type Descriptor struct {
	ID    NameID
	Type  metadata.Type
	Count uint32
}

type DescriptorBlock struct {
	Type DescriptorTypeOrder
	// Offset is the binding of the first descriptor of the block.
	Offset   uint32
	Capacity uint32

	Descriptors []Descriptor
}

type UniformMember struct {
	Name  string
	Type  metadata.Type
	Count uint32
}

// Size is the size in bytes of the member including all array elements.
func (m UniformMember) Size() uint32 {
	return metadata.TypeSize(m.Type) * m.Count
}

type UniformBlock struct {
	Name    string
	Count   uint32
	Members []UniformMember
}

// Size is the tightly packed size of the block, times its array count.
func (b *UniformBlock) Size() uint32 {
	var size uint32
	for _, m := range b.Members {
		size += m.Size()
	}
	return b.Count * size
}

// DescriptorSetLayoutData describes one descriptor set of a layout.
type DescriptorSetLayoutData struct {
	// Capacity is the total number of descriptors over all blocks. A zero
	// capacity denotes an unbounded set.
	Capacity         uint32
	DescriptorBlocks []DescriptorBlock
	UniformBlocks    map[NameID]*UniformBlock
}

func NewDescriptorSetLayoutData() *DescriptorSetLayoutData {
	return &DescriptorSetLayoutData{
		UniformBlocks: make(map[NameID]*UniformBlock),
	}
}

// AddBlock appends a block of the given type. Its offset follows the
// previous blocks and every descriptor with a zero count is counted once.
func (d *DescriptorSetLayoutData) AddBlock(typ DescriptorTypeOrder, descriptors ...Descriptor) *DescriptorBlock {
	block := DescriptorBlock{
		Type:        typ,
		Offset:      d.Capacity,
		Descriptors: make([]Descriptor, 0, len(descriptors)),
	}
	for _, desc := range descriptors {
		if desc.Count == 0 {
			desc.Count = 1
		}
		block.Capacity += desc.Count
		block.Descriptors = append(block.Descriptors, desc)
	}
	d.Capacity += block.Capacity
	d.DescriptorBlocks = append(d.DescriptorBlocks, block)
	return &d.DescriptorBlocks[len(d.DescriptorBlocks)-1]
}

// AddUniformBlock registers the layout of the uniform block bound by id.
func (d *DescriptorSetLayoutData) AddUniformBlock(id NameID, block *UniformBlock) {
	if block.Count == 0 {
		block.Count = 1
	}
	for i := range block.Members {
		if block.Members[i].Count == 0 {
			block.Members[i].Count = 1
		}
	}
	d.UniformBlocks[id] = block
}

// Layout is a named vertex of the layout graph.
type Layout struct {
	ID             LayoutID
	Name           string
	Parent         LayoutID
	DescriptorSets map[UpdateFrequency]*DescriptorSetLayoutData

	children map[string]LayoutID
}
