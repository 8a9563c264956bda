package bcm

import (
	"testing"

	"pinio/internal/hal"
	"pinio/internal/hwindex"
)

func loc(ch int, addr, bit byte) hwindex.Decoded {
	return hwindex.Decoded{Kind: hwindex.I2C, Channel: ch, Address: addr, Bit: bit}
}

// TestDutyLaw checks that, averaged over one full BCM frame (all N planes,
// each weighted 2^j), a pin set to pwmValue v is high for exactly v of the
// 2^N-1 weighted frame units.
func TestDutyLaw(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)

	for v := 0; v <= MaxPWM; v++ {
		if err := e.SetPclOutput(loc(0, 0x40, 0), 0, uint8(v), 0); err != nil {
			t.Fatalf("SetPclOutput(%d): %v", v, err)
		}
		weight := 0
		for j := 0; j < N; j++ {
			level, ok := e.PlaneBit(0, 0x40, 0, j)
			if !ok {
				t.Fatalf("no slot for v=%d plane=%d", v, j)
			}
			if level {
				weight += 1 << uint(j)
			}
		}
		if weight != v {
			t.Fatalf("v=%d: weighted-on time = %d, want %d", v, weight, v)
		}
	}
}

// TestPlaneOrderingCycle asserts AdvancePlane walks 0..N-1 then wraps.
func TestPlaneOrderingCycle(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)

	got := make([]int, 0, 3*N)
	for i := 0; i < 3*N; i++ {
		got = append(got, e.AdvancePlane())
	}
	for i, p := range got {
		if p != (i+1)%N {
			t.Fatalf("plane sequence[%d] = %d, want %d", i, p, (i+1)%N)
		}
	}
}

// TestPulseExpiry checks that a pulse pattern holds hi for tPulse ms then
// settles to lo on the first HandleBitRules tick crossing it.
func TestPulseExpiry(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)

	if err := e.SetPclOutput(loc(0, 0x40, 0), 10, MaxPWM, 0); err != nil {
		t.Fatal(err)
	}
	level, _ := e.PlaneBit(0, 0x40, 0, N-1)
	if !level {
		t.Fatalf("expected bit high immediately after SetPclOutput with hi=MaxPWM")
	}

	e.HandleBitRules(9) // 9ms elapsed, still within the 10ms pulse
	level, _ = e.PlaneBit(0, 0x40, 0, N-1)
	if !level {
		t.Fatalf("bit should still be high before pulse expiry")
	}

	e.HandleBitRules(1) // crosses the 10ms boundary
	level, _ = e.PlaneBit(0, 0x40, 0, N-1)
	if level {
		t.Fatalf("bit should have settled low once the pulse expired")
	}
}

// TestSteadyPatternNeverExpires covers the OUT-steady scenario: tPulse == 0
// stores an inactive rule, so HandleBitRules never touches the pattern.
func TestSteadyPatternNeverExpires(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)

	if err := e.SetPclOutput(loc(0, 0x41, 0), 0, 3, 0); err != nil {
		t.Fatal(err)
	}
	e.HandleBitRules(1_000_000)

	for j := 0; j < N; j++ {
		level, _ := e.PlaneBit(0, 0x41, 0, j)
		want := j < 2 // 3 = 0b0011, planes 0 and 1 set
		if level != want {
			t.Fatalf("plane %d = %v, want %v", j, level, want)
		}
	}
}

func TestSetPclOutputRejectsMatrixIndex(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)
	matrixLoc := hwindex.Decoded{Kind: hwindex.Matrix}
	if err := e.SetPclOutput(matrixLoc, 0, 1, 0); err == nil {
		t.Fatalf("expected error installing a pattern on a matrix-kind location")
	}
}

func TestEmitPlaneWritesOnlyLiveEntries(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)

	if err := e.SetPclOutput(loc(1, 0x42, 3), 0, MaxPWM, 0); err != nil {
		t.Fatal(err)
	}
	n := e.EmitPlane(N - 1)
	if n != 1 {
		t.Fatalf("EmitPlane walked %d entries, want 1", n)
	}
	data, ok := sim.LastWrite(1, 0x42)
	if !ok || len(data) != 1 || data[0] != 1<<3 {
		t.Fatalf("unexpected I2C write: ok=%v data=%v", ok, data)
	}
}

func TestNoSpaceWhenSlotsExhausted(t *testing.T) {
	sim := hal.NewSim()
	e := New(sim)

	for i := 0; i < listLen; i++ {
		if err := e.SetPclOutput(loc(i%4, byte(0x40+i), 0), 0, 1, 0); err != nil {
			t.Fatalf("slot %d: unexpected error %v", i, err)
		}
	}
	if err := e.SetPclOutput(loc(0, 0x7F, 0), 0, 1, 0); err == nil {
		t.Fatalf("expected NoSpace once every slot is allocated")
	}
}
