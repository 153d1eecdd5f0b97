package renderer

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
)

// Buffer is an opaque GPU buffer.
type Buffer interface {
	Name() string
	Size() uint32
}

// Texture is an opaque GPU texture (or texture view).
type Texture interface {
	Name() string
	TextureType() metadata.TextureType
}

// Sampler is an opaque GPU sampler.
type Sampler interface {
	Name() string
}

// DescriptorSet receives bindings and becomes usable after Update.
type DescriptorSet interface {
	BindBuffer(binding uint32, buffer Buffer)
	BindTexture(binding uint32, texture Texture, access metadata.AccessFlags)
	BindSampler(binding uint32, sampler Sampler)
	Update()
}

// CommandBuffer records uploads. Calls are consumed by the device in the
// order they were issued.
type CommandBuffer interface {
	UpdateBuffer(buffer Buffer, data []byte)
}

// DescriptorSetPool hands out descriptor sets for a single layout.
type DescriptorSetPool interface {
	AllocateDescriptorSet() DescriptorSet
}

// BufferPool hands out buffers of a fixed size.
type BufferPool interface {
	AllocateBuffer() Buffer
	BufferSize() uint32
}

// DefaultResource provides fallbacks for descriptors nothing resolved.
// Sampler may return nil when the device has no default sampler.
type DefaultResource interface {
	Buffer() Buffer
	Texture(textureType metadata.TextureType) Texture
	Sampler() Sampler
}

// DescriptorSetLayoutInfo describes the layout a pool allocates for.
// PoolSizes counts the descriptors of a single set.
type DescriptorSetLayoutInfo struct {
	Name      string
	Capacity  uint32
	Bindings  uint32
	Frequency string

	SetIndex       uint32
	LayoutBindings []vk.DescriptorSetLayoutBinding
	PoolSizes      []vk.DescriptorPoolSize
}

// Device is the slice of the graphics backend descriptor preparation needs.
type Device interface {
	CreateDescriptorSetPool(info DescriptorSetLayoutInfo) DescriptorSetPool
	CreateBufferPool(name string, bufferSize uint32) BufferPool
	DefaultResource() DefaultResource
	// BeginFrame recycles the pool slots of the frame that last used them.
	BeginFrame()
}
