package core

import "github.com/spaghettifunk/wreck/engine/containers"

const AVG_COUNT = 30

// Metrics averages frame times over the last AVG_COUNT frames and counts frames per second.
type Metrics struct {
	window             *containers.RingQueue[float64]
	windowSum          float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		window: containers.NewRingQueue[float64](AVG_COUNT),
	}
}

// Update records one frame and reports whether a new FPS value was produced.
func (m *Metrics) Update(frameElapsedSeconds float64) bool {
	frameMS := frameElapsedSeconds * 1000.0
	if m.window.IsFull() {
		oldest, _ := m.window.Dequeue()
		m.windowSum -= oldest
	}
	_ = m.window.Enqueue(frameMS)
	m.windowSum += frameMS
	m.msAvg = m.windowSum / float64(m.window.Len())

	m.frames++
	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
		return true
	}
	return false
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}
