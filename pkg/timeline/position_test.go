package timeline

import "testing"

// TestSetPositionClamps verifies the scrub value is clamped to [0,100].
func TestSetPositionClamps(t *testing.T) {
	tests := []struct {
		name string
		pos  float64
		want float64
	}{
		{name: "below range", pos: -5, want: 0},
		{name: "zero", pos: 0, want: 0},
		{name: "mid", pos: 42.5, want: 42.5},
		{name: "max", pos: 100, want: 100},
		{name: "above range", pos: 250, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Position
			p.SetPosition(tt.pos)
			if p.Value() != tt.want {
				t.Errorf("SetPosition(%v) -> Value() = %v, want %v", tt.pos, p.Value(), tt.want)
			}
		})
	}
}

// TestTailFollow verifies the tail-follow invariant: a viewer at the live
// edge advances with new events, a viewer in history does not move.
func TestTailFollow(t *testing.T) {
	t.Run("at live edge stays at live edge", func(t *testing.T) {
		var p Position
		p.SetPosition(100)

		p.OnAppend(4, 5)

		if p.Value() != 100 {
			t.Errorf("Value() = %v, want 100", p.Value())
		}
		if got := p.ActiveIndex(5); got != 4 {
			t.Errorf("ActiveIndex(5) = %d, want 4 (newest)", got)
		}
	})

	t.Run("scrubbed back is not yanked forward", func(t *testing.T) {
		var p Position
		p.SetPosition(40)

		p.OnAppend(4, 5)

		if p.Value() != 40 {
			t.Errorf("Value() = %v, want 40", p.Value())
		}
	})

	t.Run("first event jumps to live edge", func(t *testing.T) {
		var p Position
		p.Reset()

		p.OnAppend(0, 1)

		if p.Value() != 100 {
			t.Errorf("Value() = %v, want 100", p.Value())
		}
		if got := p.ActiveIndex(1); got != 0 {
			t.Errorf("ActiveIndex(1) = %d, want 0", got)
		}
	})

	t.Run("initial batch jumps to live edge", func(t *testing.T) {
		var p Position
		p.Reset()

		p.OnAppend(0, 7)

		if p.Value() != 100 {
			t.Errorf("Value() = %v, want 100", p.Value())
		}
		if got := p.ActiveIndex(7); got != 6 {
			t.Errorf("ActiveIndex(7) = %d, want 6", got)
		}
	})

	t.Run("no growth is a no-op", func(t *testing.T) {
		var p Position
		p.SetPosition(100)
		p.OnAppend(3, 3)
		if p.Value() != 100 {
			t.Errorf("Value() = %v, want 100", p.Value())
		}
	})
}

// TestActiveIndexEmptyLog verifies the empty log has no active index.
func TestActiveIndexEmptyLog(t *testing.T) {
	var p Position
	p.SetPosition(100)
	if got := p.ActiveIndex(0); got != -1 {
		t.Errorf("ActiveIndex(0) = %d, want -1", got)
	}
}

// TestIndexRoundTrip verifies ActiveIndex(SelectIndex(i), L) == i for every
// index of several log lengths.
func TestIndexRoundTrip(t *testing.T) {
	for _, length := range []int{1, 2, 3, 7, 50, 101, 997} {
		for i := 0; i < length; i++ {
			var p Position
			p.SelectIndex(i, length)
			if got := p.ActiveIndex(length); got != i {
				t.Fatalf("round-trip failed: length %d index %d -> pos %v -> index %d",
					length, i, p.Value(), got)
			}
		}
	}
}

// TestSelectIndexShortLog verifies the length<=1 special case.
func TestSelectIndexShortLog(t *testing.T) {
	var p Position
	p.SelectIndex(0, 1)
	if p.Value() != 100 {
		t.Errorf("SelectIndex(0, 1) -> Value() = %v, want 100", p.Value())
	}

	p.SelectIndex(5, 0)
	if p.Value() != 100 {
		t.Errorf("SelectIndex(5, 0) -> Value() = %v, want 100", p.Value())
	}
}

// TestResetThenTailFollow covers the session-switch sequence: reset to 0,
// then the first event of the new session pulls the view to the live edge.
func TestResetThenTailFollow(t *testing.T) {
	var p Position
	p.SetPosition(63)

	p.Reset()
	if p.Value() != 0 {
		t.Fatalf("Value() after Reset = %v, want 0", p.Value())
	}

	p.OnAppend(0, 1)
	if p.Value() != 100 {
		t.Errorf("Value() after first append = %v, want 100", p.Value())
	}
}
