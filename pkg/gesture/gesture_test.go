package gesture

import (
	"testing"

	"AccessAI/pkg/confirmation"

	"github.com/stretchr/testify/assert"
)

func feed(d *Detector, points [][2]float64) []confirmation.Signal {
	var out []confirmation.Signal
	for _, p := range points {
		if sig := d.Observe(p[0], p[1]); sig != confirmation.SignalNone {
			out = append(out, sig)
		}
	}
	return out
}

func zigzag(n int, horizontal bool) [][2]float64 {
	pts := make([][2]float64, 0, n)
	for i := 0; i < n; i++ {
		off := 40.0
		if i%2 == 1 {
			off = 60.0
		}
		if horizontal {
			pts = append(pts, [2]float64{off, 50})
		} else {
			pts = append(pts, [2]float64{50, off})
		}
	}
	return pts
}

func TestDetector(t *testing.T) {
	t.Run("shake is NO", func(t *testing.T) {
		d := NewDetector(nil)
		got := feed(d, zigzag(10, true))
		assert.Equal(t, []confirmation.Signal{confirmation.SignalNo}, got)
	})

	t.Run("nod is YES", func(t *testing.T) {
		d := NewDetector(nil)
		got := feed(d, zigzag(10, false))
		assert.Equal(t, []confirmation.Signal{confirmation.SignalYes}, got)
	})

	t.Run("needs ten samples", func(t *testing.T) {
		d := NewDetector(nil)
		got := feed(d, zigzag(9, true))
		assert.Empty(t, got)
	})

	t.Run("diagonal motion is ambiguous", func(t *testing.T) {
		d := NewDetector(nil)
		var pts [][2]float64
		for i := 0; i < 20; i++ {
			v := float64(30 + (i%2)*30)
			pts = append(pts, [2]float64{v, v})
		}
		assert.Empty(t, feed(d, pts))
	})

	t.Run("history resets after detection", func(t *testing.T) {
		d := NewDetector(nil)
		// 19 samples: one detection at the 10th, then 9 more is not enough
		// for a second one.
		got := feed(d, zigzag(19, true))
		assert.Len(t, got, 1)
	})

	t.Run("cursor is clamped", func(t *testing.T) {
		d := NewDetector(nil)
		d.Observe(130, -5)
		c := d.Cursor()
		assert.Equal(t, 100.0, c.X)
		assert.Equal(t, 0.0, c.Y)

		c = d.Move(-150, 20)
		assert.Equal(t, 0.0, c.X)
		assert.Equal(t, 20.0, c.Y)
	})
}
