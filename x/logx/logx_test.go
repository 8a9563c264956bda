package logx

import (
	"testing"

	"pinio/x/shmring"
)

func TestPrintlnMirrorsToRing(t *testing.T) {
	r := shmring.New(64)
	l := New()
	l.SetMirror(r)

	l.Println("scan ch=", 2, " degraded=", true)

	buf := make([]byte, 64)
	n := r.TryReadInto(buf)
	got := string(buf[:n])
	want := "scan ch=2 degraded=true\n"
	if got != want {
		t.Fatalf("mirrored output = %q, want %q", got, want)
	}
}

func TestPrintWritesEachPartWithNoSeparator(t *testing.T) {
	r := shmring.New(64)
	l := New()
	l.SetMirror(r)

	l.Print("a", 1, "b")

	buf := make([]byte, 64)
	n := r.TryReadInto(buf)
	got := string(buf[:n])
	if got != "a1b" {
		t.Fatalf("Print output = %q, want %q", got, "a1b")
	}
}

func TestNoMirrorDoesNotPanic(t *testing.T) {
	l := New()
	l.Println("no mirror attached")
}
