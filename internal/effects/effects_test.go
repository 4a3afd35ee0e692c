package effects

import (
	"errors"
	"testing"
)

func TestTable_IdleByDefault(t *testing.T) {
	tbl := NewTable()
	if a := tbl.Advance(); a.Any() {
		t.Fatalf("expected no active protocol, got %+v", a)
	}
	if tbl.Remaining(Reflective) != 0 || tbl.Remaining(Agentic) != 0 {
		t.Fatal("expected zero counters")
	}
}

func TestTable_ReflectiveWindow(t *testing.T) {
	tbl := NewTable()
	if err := tbl.Trigger(Reflective); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	for i := 0; i < ReflectiveTicks; i++ {
		a := tbl.Advance()
		if !a.Reflective {
			t.Fatalf("advance %d: expected reflective active", i)
		}
		if a.Agentic {
			t.Fatalf("advance %d: agentic should stay idle", i)
		}
	}
	if a := tbl.Advance(); a.Reflective {
		t.Fatal("expected reflective to expire after its window")
	}
}

func TestTable_AgenticWindow(t *testing.T) {
	tbl := NewTable()
	tbl.Trigger(Agentic)
	count := 0
	for i := 0; i < 10; i++ {
		if tbl.Advance().Agentic {
			count++
		}
	}
	if count != AgenticTicks {
		t.Fatalf("expected %d active ticks, got %d", AgenticTicks, count)
	}
}

func TestTable_RetriggerRejected(t *testing.T) {
	tbl := NewTable()
	tbl.Trigger(Reflective)
	tbl.Advance()
	err := tbl.Trigger(Reflective)
	if !errors.Is(err, ErrActive) {
		t.Fatalf("expected ErrActive, got %v", err)
	}
	if tbl.Remaining(Reflective) != ReflectiveTicks-1 {
		t.Fatalf("rejected trigger must not reset the counter, got %d", tbl.Remaining(Reflective))
	}
}

func TestTable_NeverNegative(t *testing.T) {
	tbl := NewTable()
	tbl.Trigger(Agentic)
	for i := 0; i < 20; i++ {
		tbl.Advance()
	}
	for _, p := range []Protocol{Reflective, Agentic} {
		if n := tbl.Remaining(p); n != 0 {
			t.Fatalf("%s should have floored at 0, got %d", p, n)
		}
	}
}

func TestTable_UnknownProtocol(t *testing.T) {
	if err := NewTable().Trigger(Protocol("bogus")); err == nil {
		t.Fatal("expected error for unknown protocol")
	}
}

func TestTable_Reset(t *testing.T) {
	tbl := NewTable()
	tbl.Trigger(Reflective)
	tbl.Trigger(Agentic)
	tbl.Reset()
	if tbl.Advance().Any() {
		t.Fatal("expected all protocols idle after reset")
	}
}
