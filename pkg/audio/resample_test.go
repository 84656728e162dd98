package audio

import "testing"

func TestStretchHalvesAtDoubleRate(t *testing.T) {
	t.Parallel()

	in := make([]float32, 1000)
	out := Stretch(in, 2.0)
	if len(out) != 500 {
		t.Errorf("len = %d; want 500", len(out))
	}
}

func TestStretchDoublesAtHalfRate(t *testing.T) {
	t.Parallel()

	in := make([]float32, 500)
	out := Stretch(in, 0.5)
	if len(out) != 1000 {
		t.Errorf("len = %d; want 1000", len(out))
	}
}

func TestStretchIdentityRateReturnsInput(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, 0.2, 0.3}
	out := Stretch(in, 1.0)
	if &out[0] != &in[0] {
		t.Error("rate 1.0 should return the input slice unchanged")
	}
}

func TestStretchInvalidRateReturnsInput(t *testing.T) {
	t.Parallel()

	in := []float32{0.1, 0.2, 0.3}
	for _, rate := range []float64{0, -1} {
		out := Stretch(in, rate)
		if &out[0] != &in[0] {
			t.Errorf("rate %v should return the input slice unchanged", rate)
		}
	}
}

func TestStretchInterpolatesLinearly(t *testing.T) {
	t.Parallel()

	// A ramp stays a ramp under linear interpolation.
	in := []float32{0, 1, 2, 3}
	out := Stretch(in, 0.5)
	want := []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}
	if len(out) != len(want) {
		t.Fatalf("len = %d; want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v; want %v", i, out[i], want[i])
		}
	}
}

func TestStretchTinyInput(t *testing.T) {
	t.Parallel()

	in := []float32{0.5}
	if out := Stretch(in, 2.0); len(out) != 1 {
		t.Errorf("single sample should pass through, got len %d", len(out))
	}
}
