package dfe

import (
	"math/cmplx"
	"math/rand"
	"testing"
)

var bpsk = []complex128{1, -1}

func TestNewRejectsInvalidParams(t *testing.T) {
	if _, err := New(0, 1, 0.1, bpsk, 10, 1); err == nil {
		t.Fatal("expected error for zero feedforward taps")
	}
	if _, err := New(4, 1, 0, bpsk, 10, 1); err == nil {
		t.Fatal("expected error for zero step size")
	}
	if _, err := New(4, 1, 0.1, nil, 10, 1); err == nil {
		t.Fatal("expected error for empty constellation")
	}
	if _, err := New(4, 1, 0.1, bpsk, 10, 0); err == nil {
		t.Fatal("expected error for zero iterations")
	}
}

// On an identity (no-ISI) channel with training-only symbols, the
// equalizer's lead feedforward tap should converge near 1 and the
// others near 0, and the decision error rate over a long training run
// should be low.
func TestConvergesOnIdentityChannel(t *testing.T) {
	eq, err := New(4, 2, 0.2, bpsk, 1000, 4)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	const n = 1000

	var errors int
	for i := 0; i < n; i++ {
		symbol := bpsk[rng.Intn(2)]
		decision, err := eq.Step(symbol, symbol, true)
		if err != nil {
			t.Fatal(err)
		}
		if i > n/2 && decision != symbol {
			errors++
		}
	}

	rate := float64(errors) / float64(n/2)
	if rate > 0.01 {
		t.Fatalf("decision error rate = %v, want <= 0.01", rate)
	}

	if d := cmplx.Abs(eq.wff[0] - 1); d > 0.1 {
		t.Fatalf("wff[0] = %v, want close to 1", eq.wff[0])
	}
	for i := 1; i < len(eq.wff); i++ {
		if cmplx.Abs(eq.wff[i]) > 0.2 {
			t.Fatalf("wff[%d] = %v, want close to 0", i, eq.wff[i])
		}
	}
}

// A two-tap multipath channel y[n] = x[n] + 0.3*x[n-1] should still
// converge to a leading feedforward coefficient dominating the tap
// weights, after enough training.
func TestConvergesOnMultipathChannel(t *testing.T) {
	eq, err := New(4, 2, 0.2, bpsk, 2000, 4)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(2))
	const n = 2000

	var prev complex128
	var errors int
	for i := 0; i < n; i++ {
		symbol := bpsk[rng.Intn(2)]
		received := symbol + 0.3*prev
		prev = symbol

		decision, err := eq.Step(received, symbol, true)
		if err != nil {
			t.Fatal(err)
		}
		if i > 3*n/4 && decision != symbol {
			errors++
		}
	}

	rate := float64(errors) / float64(n/4)
	if rate > 0.05 {
		t.Fatalf("decision error rate = %v, want <= 0.05", rate)
	}

	if cmplx.Abs(eq.wff[0]) < cmplx.Abs(eq.wff[1]) {
		t.Fatalf("leading tap wff[0]=%v should dominate wff[1]=%v", eq.wff[0], eq.wff[1])
	}
}

func TestResetClearsState(t *testing.T) {
	eq, err := New(3, 1, 0.1, bpsk, 10, 1)
	if err != nil {
		t.Fatal(err)
	}

	eq.Step(1, 1, true)
	eq.Step(-1, -1, true)

	eq.Reset()

	for _, w := range eq.wff {
		if w != 0 {
			t.Fatalf("wff not cleared: %v", eq.wff)
		}
	}
	for _, u := range eq.uff {
		if u != 0 {
			t.Fatalf("uff not cleared: %v", eq.uff)
		}
	}
	if eq.symbolNum != 0 {
		t.Fatalf("symbolNum = %d, want 0", eq.symbolNum)
	}
}

func TestSearchPhaseOffsetPicksBestScore(t *testing.T) {
	scores := map[int]float64{0: 0.1, 2: 0.9, 4: 0.3, 6: 0.2}
	best := SearchPhaseOffset(8, 4, func(offset int) float64 {
		return scores[offset]
	})
	if best != 2 {
		t.Fatalf("best offset = %d, want 2", best)
	}
}

func TestSearchPhaseOffsetSingleCandidate(t *testing.T) {
	if got := SearchPhaseOffset(8, 1, func(offset int) float64 { return 42 }); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}
