package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Description: "Simulating", Out: &buf}

	r.Start(3)
	r.Update(1, "decision_a completed")
	r.Update(2, "no decision")
	r.Finish()

	want := []string{
		"Simulating: starting 3 ticks",
		"[1/3] decision_a completed",
		"[2/3] no decision",
		"Simulating: complete",
	}
	got := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTerminalReporterWritesToOut(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{Description: "Simulating", Out: &buf}

	r.Start(2)
	r.Update(1, "tick")
	r.Update(2, "tick")
	r.Finish()

	if buf.Len() == 0 {
		t.Error("expected progress bar output")
	}
}

func TestNewReporterInCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}

func TestNopReporter(t *testing.T) {
	var r Reporter = Nop{}
	r.Start(1)
	r.Update(1, "ignored")
	r.Finish()
}
