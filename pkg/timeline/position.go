package timeline

import "math"

// maxPosition is the scrub value for the live edge of the timeline.
const maxPosition = 100.0

// Position owns the continuous scrub value in [0,100]. The active event
// index is always derived from (position, log length) and never stored, so
// the two cannot diverge.
type Position struct {
	value float64
}

// Value returns the current scrub position.
func (p *Position) Value() float64 {
	return p.value
}

// SetPosition stores pos clamped to [0,100].
func (p *Position) SetPosition(pos float64) {
	p.value = clamp(pos, 0, maxPosition)
}

// OnAppend implements tail-follow. Called after the log grows from oldLen
// to newLen: a viewer at the live edge stays there, and the first event of
// a fresh session jumps the view to it. A viewer scrubbed back in history
// is left alone.
func (p *Position) OnAppend(oldLen, newLen int) {
	if newLen <= oldLen {
		return
	}
	if p.value == maxPosition || (oldLen == 0 && newLen > 0) {
		p.value = maxPosition
	}
}

// SelectIndex stores the position that maps back to index i for a log of
// the given length. The stored value is kept exact rather than rounded so
// that ActiveIndex round-trips for any log length, not just short ones.
func (p *Position) SelectIndex(i, length int) {
	if length <= 1 {
		p.value = maxPosition
		return
	}
	i = clampInt(i, 0, length-1)
	p.value = float64(i) / float64(length-1) * maxPosition
}

// ActiveIndex derives the discrete event index for the current position
// and log length. Returns -1 for an empty log.
func (p *Position) ActiveIndex(length int) int {
	return ActiveIndex(p.value, length)
}

// Reset returns the position to the start of history. Called on session
// switch before the new log begins filling; the first appended event then
// tail-follows to the live edge.
func (p *Position) Reset() {
	p.value = 0
}

// ActiveIndex maps a scrub position onto an event index for a log of the
// given length: round(pos/100 x (length-1)), clamped. -1 when empty.
func ActiveIndex(pos float64, length int) int {
	if length <= 0 {
		return -1
	}
	idx := int(math.Round(pos / maxPosition * float64(length-1)))
	return clampInt(idx, 0, length-1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
