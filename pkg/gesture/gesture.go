package gesture

import (
	"sync"
	"time"

	"AccessAI/pkg/confirmation"
)

const (
	historyCap    = 50
	minSamples    = 10
	windowSamples = 20

	// Thresholds are in percent of the viewport.
	shakeThreshold = 15.0
	nodThreshold   = 15.0
	crossRatio     = 0.5
)

type Point struct {
	X float64   `json:"x"`
	Y float64   `json:"y"`
	T time.Time `json:"t"`
}

// Detector turns a stream of head cursor positions into nod and shake
// gestures. A nod reads as YES, a shake as NO.
type Detector struct {
	mu      sync.Mutex
	clock   func() time.Time
	cursor  Point
	history []Point
}

func NewDetector(clock func() time.Time) *Detector {
	if clock == nil {
		clock = time.Now
	}
	return &Detector{
		clock:   clock,
		cursor:  Point{X: 50, Y: 50},
		history: make([]Point, 0, historyCap),
	}
}

// Observe records a cursor sample and reports a gesture when one is found.
// History is dropped after a detection so the same motion is not reported
// twice.
func (d *Detector) Observe(x, y float64) confirmation.Signal {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := Point{X: clamp(x), Y: clamp(y), T: d.clock()}
	d.cursor = p

	d.history = append(d.history, p)
	if len(d.history) > historyCap {
		d.history = d.history[len(d.history)-historyCap:]
	}

	sig := detect(d.history)
	if sig != confirmation.SignalNone {
		d.history = d.history[:0]
	}
	return sig
}

// Move shifts the cursor by a relative amount without recording history.
func (d *Detector) Move(dx, dy float64) Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor.X = clamp(d.cursor.X + dx)
	d.cursor.Y = clamp(d.cursor.Y + dy)
	return d.cursor
}

func (d *Detector) Cursor() Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

func (d *Detector) Reset() {
	d.mu.Lock()
	d.history = d.history[:0]
	d.mu.Unlock()
}

func detect(history []Point) confirmation.Signal {
	if len(history) < minSamples {
		return confirmation.SignalNone
	}

	recent := history
	if len(recent) > windowSamples {
		recent = recent[len(recent)-windowSamples:]
	}

	minX, maxX := recent[0].X, recent[0].X
	minY, maxY := recent[0].Y, recent[0].Y
	for _, p := range recent[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	xRange := maxX - minX
	yRange := maxY - minY

	if xRange > shakeThreshold && yRange < xRange*crossRatio {
		return confirmation.SignalNo
	}
	if yRange > nodThreshold && xRange < yRange*crossRatio {
		return confirmation.SignalYes
	}
	return confirmation.SignalNone
}

func clamp(v float64) float64 {
	return min(100, max(0, v))
}
