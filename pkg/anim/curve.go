package anim

import (
	"errors"
	"fmt"
	"iter"
	gomath "math"

	"github.com/Faultbox/midgard-fbx/pkg/fbx"
)

// ErrCurveKeys is returned for a curve whose key arrays differ in length
// or whose key times decrease.
var ErrCurveKeys = errors.New("invalid curve keys")

// Curve is one sparse single-channel keyframe curve. KeyTimes are in
// container ticks and never decrease.
type Curve struct {
	ID        int64
	KeyTimes  []int64
	KeyValues []float32

	// Default is held before the first key.
	Default float32
}

func (c *Curve) validate() error {
	if len(c.KeyTimes) != len(c.KeyValues) {
		return fmt.Errorf("%w: curve %d has %d times and %d values",
			ErrCurveKeys, c.ID, len(c.KeyTimes), len(c.KeyValues))
	}
	for i := 1; i < len(c.KeyTimes); i++ {
		if c.KeyTimes[i] < c.KeyTimes[i-1] {
			return fmt.Errorf("%w: curve %d key %d goes back in time", ErrCurveKeys, c.ID, i)
		}
	}
	return nil
}

// Evaluator returns a cursor over c positioned before the first key.
func (c *Curve) Evaluator() *Evaluator {
	return &Evaluator{curve: c, last: gomath.MinInt64}
}

// Samples yields the value of c at frames start, start+1, ... start+frames-1
// of a fps timeline beginning at tick 0. Every range over the sequence
// starts a fresh cursor.
func (c *Curve) Samples(fps float64, start, frames int) iter.Seq2[int, float32] {
	return func(yield func(int, float32) bool) {
		if fps <= 0 {
			return
		}
		e := c.Evaluator()
		for f := start; f < start+frames; f++ {
			if !yield(f, e.At(FrameTime(0, f, fps))) {
				return
			}
		}
	}
}

// Evaluator interpolates a curve at increasing times. It moves a key
// cursor forward only, so a sequence of rising times costs one pass over
// the keys. A time earlier than the previous request rewinds to the start.
type Evaluator struct {
	curve *Curve
	next  int
	last  int64
}

// At returns the curve value at tick t: the default before the first key,
// the last key's value after the last key and linear interpolation between
// the surrounding keys otherwise. A time equal to a key time yields that
// key's value.
func (e *Evaluator) At(t int64) float32 {
	c := e.curve
	if t < e.last {
		e.next = 0
	}
	e.last = t

	for e.next < len(c.KeyTimes) && c.KeyTimes[e.next] <= t {
		e.next++
	}
	switch {
	case e.next == 0:
		return c.Default
	case e.next == len(c.KeyTimes):
		return c.KeyValues[len(c.KeyValues)-1]
	}

	prevT, nextT := c.KeyTimes[e.next-1], c.KeyTimes[e.next]
	prevV, nextV := c.KeyValues[e.next-1], c.KeyValues[e.next]
	if t == prevT {
		return prevV
	}
	f := (float64(t) - float64(prevT)) / (float64(nextT) - float64(prevT))
	return float32(float64(prevV) + (float64(nextV)-float64(prevV))*f)
}

// FrameTime returns the tick of frame f on a fps timeline starting at start.
func FrameTime(start int64, f int, fps float64) int64 {
	return start + int64(gomath.Round(float64(f)*float64(fbx.TicksPerSecond)/fps))
}

// FrameIndex returns the nearest frame of a fps timeline starting at tick 0.
func FrameIndex(t int64, fps float64) int {
	return int(gomath.Round(float64(t) * fps / float64(fbx.TicksPerSecond)))
}

// readCurve loads an AnimationCurve record. def is used when the record
// carries no Default of its own.
func readCurve(node fbx.Node, def float32) (*Curve, error) {
	c := &Curve{ID: node.ID(), Default: def}
	if d := node.Child("Default"); d.Valid() {
		if v, err := d.Prop(0).AsFloat64(); err == nil {
			c.Default = float32(v)
		}
	}

	var err error
	if times := node.Child("KeyTime"); times.Valid() {
		if c.KeyTimes, err = times.Prop(0).AsInt64s(); err != nil {
			return nil, fmt.Errorf("curve %d key times: %w", c.ID, err)
		}
	}
	if values := node.Child("KeyValueFloat"); values.Valid() {
		if c.KeyValues, err = values.Prop(0).AsFloat32s(); err != nil {
			wide, err64 := values.Prop(0).AsFloat64s()
			if err64 != nil {
				return nil, fmt.Errorf("curve %d key values: %w", c.ID, err)
			}
			c.KeyValues = make([]float32, len(wide))
			for i, v := range wide {
				c.KeyValues[i] = float32(v)
			}
		}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
