package headless

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-pipeline/engine/containers"
	"github.com/spaghettifunk/anima-pipeline/engine/core"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/vulkan"
)

const (
	defaultBufferSize = 256

	DefaultFramesInFlight         = 3
	DefaultDescriptorSetsPerFrame = 64
	DefaultBuffersPerFrame        = 64
	DefaultBufferAlignment        = 256
)

type Config struct {
	FramesInFlight         uint32
	DescriptorSetsPerFrame uint32
	BuffersPerFrame        uint32
	// BufferAlignment is the granularity pooled buffers are laid out at,
	// like minUniformBufferOffsetAlignment. Must be a power of two.
	BufferAlignment uint32
	// NoDefaultSampler makes DefaultResource().Sampler() return nil.
	NoDefaultSampler bool
}

// Device is an in-memory renderer.Device. Objects allocated from its pools
// are kept alive for FramesInFlight frames and recycled afterwards.
type Device struct {
	cfg   Config
	frame uint64

	descriptorSetPools []*DescriptorSetPool
	bufferPools        []*BufferPool
	defaults           *DefaultResource
}

func NewDevice(cfg Config) *Device {
	if cfg.FramesInFlight == 0 {
		cfg.FramesInFlight = DefaultFramesInFlight
	}
	if cfg.DescriptorSetsPerFrame == 0 {
		cfg.DescriptorSetsPerFrame = DefaultDescriptorSetsPerFrame
	}
	if cfg.BuffersPerFrame == 0 {
		cfg.BuffersPerFrame = DefaultBuffersPerFrame
	}
	if cfg.BufferAlignment == 0 {
		cfg.BufferAlignment = DefaultBufferAlignment
	}
	return &Device{
		cfg:      cfg,
		defaults: newDefaultResource(!cfg.NoDefaultSampler),
	}
}

// CreateDescriptorSetPool sizes the pool for every slot of every frame in
// flight.
func (d *Device) CreateDescriptorSetPool(info renderer.DescriptorSetLayoutInfo) renderer.DescriptorSetPool {
	maxSets := d.cfg.FramesInFlight * d.cfg.DescriptorSetsPerFrame
	sizes := make([]vk.DescriptorPoolSize, len(info.PoolSizes))
	for i, size := range info.PoolSizes {
		sizes[i] = vk.DescriptorPoolSize{Type: size.Type, DescriptorCount: size.DescriptorCount * maxSets}
	}
	types := make(map[uint32]vk.DescriptorType, len(info.LayoutBindings))
	for _, b := range info.LayoutBindings {
		types[b.Binding] = b.DescriptorType
	}
	p := &DescriptorSetPool{
		info:       info,
		layoutInfo: vulkan.SetLayoutCreateInfo(info.LayoutBindings),
		poolInfo:   vulkan.PoolCreateInfo(sizes, maxSets),
		ring: newRingPool(d.cfg.FramesInFlight, d.cfg.DescriptorSetsPerFrame,
			func() *DescriptorSet { return newDescriptorSet(info.Name, types) },
			func(s *DescriptorSet) { s.reset() }),
	}
	d.descriptorSetPools = append(d.descriptorSetPools, p)
	core.LogDebug("created descriptor set pool %s (%s, %d descriptors)", info.Name, info.Frequency, info.Capacity)
	return p
}

func (d *Device) CreateBufferPool(name string, bufferSize uint32) renderer.BufferPool {
	p := &BufferPool{
		name:   name,
		size:   bufferSize,
		stride: metadata.GetAligned(bufferSize, d.cfg.BufferAlignment),
	}
	p.ring = newRingPool(d.cfg.FramesInFlight, d.cfg.BuffersPerFrame,
		func() *Buffer { return &Buffer{name: objectName(name), data: make([]byte, bufferSize)} },
		func(b *Buffer) { clear(b.data) })
	d.bufferPools = append(d.bufferPools, p)
	return p
}

func (d *Device) DefaultResource() renderer.DefaultResource {
	return d.defaults
}

func (d *Device) BeginFrame() {
	d.frame++
	for _, p := range d.descriptorSetPools {
		p.ring.beginFrame()
	}
	for _, p := range d.bufferPools {
		p.ring.beginFrame()
	}
}

// BufferMemory returns the bytes held by every pooled buffer created so far,
// each rounded up to the buffer alignment.
func (d *Device) BufferMemory() uint64 {
	var total uint64
	for _, p := range d.bufferPools {
		total += uint64(p.stride) * uint64(p.ring.created)
	}
	return total
}

// DescriptorSetPools returns the pools in creation order.
func (d *Device) DescriptorSetPools() []*DescriptorSetPool {
	return d.descriptorSetPools
}

// Frame returns the number of BeginFrame calls so far.
func (d *Device) Frame() uint64 {
	return d.frame
}

func (d *Device) CreateBuffer(name string, size uint32) renderer.Buffer {
	return &Buffer{name: name, data: make([]byte, size)}
}

func (d *Device) CreateTexture(name string, textureType metadata.TextureType) renderer.Texture {
	return &Texture{name: name, textureType: textureType}
}

func (d *Device) CreateSampler(name string) renderer.Sampler {
	return &Sampler{name: name}
}

type DescriptorSetPool struct {
	info       renderer.DescriptorSetLayoutInfo
	layoutInfo vk.DescriptorSetLayoutCreateInfo
	poolInfo   vk.DescriptorPoolCreateInfo
	ring       *ringPool[*DescriptorSet]
}

func (p *DescriptorSetPool) AllocateDescriptorSet() renderer.DescriptorSet {
	return p.ring.allocate()
}

func (p *DescriptorSetPool) Info() renderer.DescriptorSetLayoutInfo {
	return p.info
}

// LayoutCreateInfo is the Vulkan layout the pool's sets are allocated with.
func (p *DescriptorSetPool) LayoutCreateInfo() vk.DescriptorSetLayoutCreateInfo {
	return p.layoutInfo
}

// PoolCreateInfo is the Vulkan pool able to hold every set the ring can
// keep alive.
func (p *DescriptorSetPool) PoolCreateInfo() vk.DescriptorPoolCreateInfo {
	return p.poolInfo
}

// Allocated returns the number of sets handed out since the pool was created.
func (p *DescriptorSetPool) Allocated() int {
	return p.ring.allocated
}

type BufferPool struct {
	name   string
	size   uint32
	stride uint32
	ring   *ringPool[*Buffer]
}

func (p *BufferPool) AllocateBuffer() renderer.Buffer {
	return p.ring.allocate()
}

func (p *BufferPool) BufferSize() uint32 {
	return p.size
}

// Stride is BufferSize rounded up to the device buffer alignment.
func (p *BufferPool) Stride() uint32 {
	return p.stride
}

// ringPool recycles objects once the frame slot that used them comes round
// again.
type ringPool[T any] struct {
	free     *containers.RingQueue[T]
	inFlight [][]T
	slot     int

	create func() T
	reset  func(T)

	allocated int
	created   int
}

func newRingPool[T any](frames, perFrame uint32, create func() T, reset func(T)) *ringPool[T] {
	return &ringPool[T]{
		free:     containers.NewRingQueue[T](int(frames * perFrame)),
		inFlight: make([][]T, frames),
		create:   create,
		reset:    reset,
	}
}

func (p *ringPool[T]) allocate() T {
	v, err := p.free.Dequeue()
	if err != nil {
		v = p.create()
		p.created++
	}
	p.inFlight[p.slot] = append(p.inFlight[p.slot], v)
	p.allocated++
	return v
}

func (p *ringPool[T]) beginFrame() {
	p.slot = (p.slot + 1) % len(p.inFlight)
	for _, v := range p.inFlight[p.slot] {
		p.reset(v)
		if err := p.free.Enqueue(v); err != nil {
			// Over budget: let it go.
			break
		}
	}
	clear(p.inFlight[p.slot])
	p.inFlight[p.slot] = p.inFlight[p.slot][:0]
}
