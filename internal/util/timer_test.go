package util

import (
	"testing"
	"time"
)

func TestResetAndDrainTimer(t *testing.T) {
	tm := time.NewTimer(time.Hour)
	if !tm.Stop() {
		DrainTimer(tm)
	}
	ResetTimer(tm, 1*time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after ResetTimer")
	}
	ResetTimer(tm, -1)
	select {
	case <-tm.C:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("timer did not fire after negative ResetTimer")
	}
}

func TestClampInt(t *testing.T) {
	if ClampInt(-5, 0, 10) != 0 {
		t.Fatal("clamp low failed")
	}
	if ClampInt(15, 0, 10) != 10 {
		t.Fatal("clamp high failed")
	}
	if ClampInt(7, 0, 10) != 7 {
		t.Fatal("clamp mid failed")
	}
}
