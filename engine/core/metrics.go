package core

import (
	"time"

	"github.com/loov/hrtime"
)

const AVG_COUNT uint8 = 30

// PrepareStats are the counters of a single descriptor preparation.
type PrepareStats struct {
	NodesVisited        int
	DescriptorSetsBuilt int
	UniformUploads      int
	DeferredToParent    int
}

func (s *PrepareStats) Add(o PrepareStats) {
	s.NodesVisited += o.NodesVisited
	s.DescriptorSetsBuilt += o.DescriptorSetsBuilt
	s.UniformUploads += o.UniformUploads
	s.DeferredToParent += o.DeferredToParent
}

// Metrics keeps the counters of the current frame and a rolling average of
// the time spent preparing descriptor sets.
type Metrics struct {
	FrameAVGCounter uint8
	Times           [AVG_COUNT]time.Duration
	Avg             time.Duration
	Frames          uint64

	Frame PrepareStats
	Total PrepareStats

	frameTime time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Begin starts a timed section and returns its start mark.
func (m *Metrics) Begin() time.Duration {
	return hrtime.Now()
}

// End closes a timed section started with Begin and accumulates stats.
func (m *Metrics) End(start time.Duration, stats PrepareStats) {
	m.frameTime += hrtime.Since(start)
	m.Frame.Add(stats)
	m.Total.Add(stats)
}

// NextFrame commits the frame timings into the rolling average.
func (m *Metrics) NextFrame() {
	m.Times[m.FrameAVGCounter] = m.frameTime
	if m.FrameAVGCounter == AVG_COUNT-1 {
		var sum time.Duration
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += m.Times[i]
		}
		m.Avg = sum / time.Duration(AVG_COUNT)
	}
	m.FrameAVGCounter++
	m.FrameAVGCounter %= AVG_COUNT

	m.Frames++
	m.Frame = PrepareStats{}
	m.frameTime = 0
}

func (m *Metrics) FrameTime() time.Duration {
	return m.Avg
}
