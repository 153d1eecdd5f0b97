package rendergraph

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-pipeline/engine/renderer"
	"github.com/spaghettifunk/anima-pipeline/engine/renderer/layoutgraph"
)

// RenderData holds the overrides set at one node of the render graph.
// Constants are keyed by constant id, everything else by attribute id.
type RenderData struct {
	Constants map[layoutgraph.NameID][]byte
	Buffers   map[layoutgraph.NameID]renderer.Buffer
	Textures  map[layoutgraph.NameID]renderer.Texture
	Samplers  map[layoutgraph.NameID]renderer.Sampler
}

func NewRenderData() *RenderData {
	return &RenderData{
		Constants: make(map[layoutgraph.NameID][]byte),
		Buffers:   make(map[layoutgraph.NameID]renderer.Buffer),
		Textures:  make(map[layoutgraph.NameID]renderer.Texture),
		Samplers:  make(map[layoutgraph.NameID]renderer.Sampler),
	}
}

// Empty reports whether no override is set.
func (d *RenderData) Empty() bool {
	return len(d.Constants) == 0 && len(d.Buffers) == 0 &&
		len(d.Textures) == 0 && len(d.Samplers) == 0
}

// SetConstant stores a copy of value, padded to a multiple of 4 bytes.
func (d *RenderData) SetConstant(id layoutgraph.NameID, value []byte) {
	size := (len(value) + 3) &^ 3
	buf := make([]byte, size)
	copy(buf, value)
	d.Constants[id] = buf
}

func (d *RenderData) SetFloats(id layoutgraph.NameID, values ...float32) {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	d.Constants[id] = buf
}

// SetMat4 stores column-major matrices, one after the other.
func (d *RenderData) SetMat4(id layoutgraph.NameID, values ...mgl32.Mat4) {
	floats := make([]float32, 0, 16*len(values))
	for _, m := range values {
		floats = append(floats, m[:]...)
	}
	d.SetFloats(id, floats...)
}

func (d *RenderData) SetBuffer(id layoutgraph.NameID, b renderer.Buffer) {
	d.Buffers[id] = b
}

func (d *RenderData) SetTexture(id layoutgraph.NameID, t renderer.Texture) {
	d.Textures[id] = t
}

func (d *RenderData) SetSampler(id layoutgraph.NameID, s renderer.Sampler) {
	d.Samplers[id] = s
}

// Floats decodes a constant back into floats.
func Floats(value []byte) []float32 {
	out := make([]float32, len(value)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(value[4*i:]))
	}
	return out
}
