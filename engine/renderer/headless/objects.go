package headless

import (
	"fmt"
	"slices"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/vulkan"
)

func objectName(prefix string) string {
	return fmt.Sprintf("%s#%s", prefix, uuid.New().String())
}

// Buffer is a host-memory buffer. Uploads recorded by a CommandBuffer are
// written to it immediately.
type Buffer struct {
	name string
	data []byte
}

func (b *Buffer) Name() string {
	return b.name
}

func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

// Data returns the current contents of the buffer.
func (b *Buffer) Data() []byte {
	return b.data
}

type Texture struct {
	name        string
	textureType metadata.TextureType
}

func (t *Texture) Name() string {
	return t.name
}

func (t *Texture) TextureType() metadata.TextureType {
	return t.textureType
}

type Sampler struct {
	name string
}

func (s *Sampler) Name() string {
	return s.name
}

// Binding is what a descriptor set slot points at.
type Binding struct {
	Buffer  renderer.Buffer
	Texture renderer.Texture
	Access  metadata.AccessFlags
	Sampler renderer.Sampler
}

// Headless objects have no Vulkan handles, writes carry null ones.
var (
	nullSet     vk.DescriptorSet
	nullBuffer  vk.Buffer
	nullView    vk.ImageView
	nullSampler vk.Sampler
)

// DescriptorSet records its bindings. Update turns them into the Vulkan
// writes a device would issue, typed by the layout of the pool.
type DescriptorSet struct {
	name     string
	layout   string
	types    map[uint32]vk.DescriptorType
	bindings map[uint32]Binding
	writes   []vk.WriteDescriptorSet
	updates  int
}

func newDescriptorSet(layout string, types map[uint32]vk.DescriptorType) *DescriptorSet {
	return &DescriptorSet{
		name:     objectName("dset/" + layout),
		layout:   layout,
		types:    types,
		bindings: make(map[uint32]Binding),
	}
}

func (s *DescriptorSet) Name() string {
	return s.name
}

func (s *DescriptorSet) Layout() string {
	return s.layout
}

func (s *DescriptorSet) BindBuffer(binding uint32, buffer renderer.Buffer) {
	b := s.bindings[binding]
	b.Buffer = buffer
	s.bindings[binding] = b
}

func (s *DescriptorSet) BindTexture(binding uint32, texture renderer.Texture, access metadata.AccessFlags) {
	b := s.bindings[binding]
	b.Texture = texture
	b.Access = access
	s.bindings[binding] = b
}

func (s *DescriptorSet) BindSampler(binding uint32, sampler renderer.Sampler) {
	b := s.bindings[binding]
	b.Sampler = sampler
	s.bindings[binding] = b
}

func (s *DescriptorSet) Update() {
	s.writes = s.writes[:0]
	for _, k := range s.sortedBindings() {
		dt, ok := s.types[k]
		if !ok {
			continue
		}
		b := s.bindings[k]
		if b.Buffer != nil {
			s.writes = append(s.writes, vulkan.WriteBuffer(nullSet, k, dt, nullBuffer, b.Buffer.Size()))
			continue
		}
		s.writes = append(s.writes, vulkan.WriteImage(nullSet, k, dt, nullView, nullSampler, b.Access))
	}
	s.updates++
}

// Writes returns the writes of the last Update, ordered by binding.
func (s *DescriptorSet) Writes() []vk.WriteDescriptorSet {
	return s.writes
}

// Updated reports whether Update was called since the set was allocated.
func (s *DescriptorSet) Updated() bool {
	return s.updates > 0
}

func (s *DescriptorSet) Binding(binding uint32) (Binding, bool) {
	b, ok := s.bindings[binding]
	return b, ok
}

func (s *DescriptorSet) Len() int {
	return len(s.bindings)
}

func (s *DescriptorSet) sortedBindings() []uint32 {
	keys := make([]uint32, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String lists the bindings in order, naming what is bound to each.
func (s *DescriptorSet) String() string {
	var sb strings.Builder
	sb.WriteString(s.layout)
	for _, k := range s.sortedBindings() {
		b := s.bindings[k]
		fmt.Fprintf(&sb, " %d:", k)
		switch {
		case b.Buffer != nil:
			sb.WriteString(b.Buffer.Name())
		case b.Texture != nil:
			sb.WriteString(b.Texture.Name())
			if b.Sampler != nil {
				sb.WriteString("+" + b.Sampler.Name())
			}
		case b.Sampler != nil:
			sb.WriteString(b.Sampler.Name())
		}
	}
	return sb.String()
}

func (s *DescriptorSet) reset() {
	clear(s.bindings)
	s.writes = s.writes[:0]
	s.updates = 0
}

// Upload is one recorded CommandBuffer.UpdateBuffer call.
type Upload struct {
	Buffer renderer.Buffer
	Data   []byte
}

// CommandBuffer records uploads in issue order.
type CommandBuffer struct {
	uploads []Upload
}

func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

func (c *CommandBuffer) UpdateBuffer(buffer renderer.Buffer, data []byte) {
	upload := Upload{Buffer: buffer, Data: append([]byte(nil), data...)}
	if b, ok := buffer.(*Buffer); ok {
		copy(b.data, data)
	}
	c.uploads = append(c.uploads, upload)
}

func (c *CommandBuffer) Uploads() []Upload {
	return c.uploads
}

func (c *CommandBuffer) Reset() {
	c.uploads = c.uploads[:0]
}

// DefaultResource hands out one fallback object per kind.
type DefaultResource struct {
	buffer   *Buffer
	textures map[metadata.TextureType]*Texture
	sampler  *Sampler
}

func newDefaultResource(withSampler bool) *DefaultResource {
	d := &DefaultResource{
		buffer:   &Buffer{name: "default-buffer", data: make([]byte, defaultBufferSize)},
		textures: make(map[metadata.TextureType]*Texture),
	}
	for _, typ := range metadata.TextureTypes() {
		d.textures[typ] = &Texture{name: "default-texture-" + typ.String(), textureType: typ}
	}
	if withSampler {
		d.sampler = &Sampler{name: "default-sampler"}
	}
	return d
}

func (d *DefaultResource) Buffer() renderer.Buffer {
	return d.buffer
}

func (d *DefaultResource) Texture(textureType metadata.TextureType) renderer.Texture {
	if t, ok := d.textures[textureType]; ok {
		return t
	}
	return d.textures[metadata.TextureType2d]
}

func (d *DefaultResource) Sampler() renderer.Sampler {
	if d.sampler == nil {
		return nil
	}
	return d.sampler
}
