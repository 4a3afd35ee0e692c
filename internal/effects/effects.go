package effects

import "errors"

// #region protocol

// Protocol names a timed effect a command can arm on the loop.
type Protocol string

const (
	Reflective Protocol = "reflective_injection"
	Agentic    Protocol = "agentic_override"
)

// Durations in ticks, counting the tick the effect first applies to.
const (
	ReflectiveTicks = 3
	AgenticTicks    = 5
)

// ErrActive is returned when a protocol is re-triggered while still running.
var ErrActive = errors.New("protocol already active")

// #endregion

// #region record

// Record is one active-effect entry with its remaining duration.
type Record struct {
	Protocol  Protocol
	Remaining int
}

// Active reports which effects apply to the tick being processed.
type Active struct {
	Reflective bool
	Agentic    bool
}

// Any reports whether at least one protocol applies.
func (a Active) Any() bool {
	return a.Reflective || a.Agentic
}

// #endregion

// #region table

// Table holds one record per protocol. The zero value is not usable; call NewTable.
type Table struct {
	records []Record
}

// NewTable returns a table with every protocol idle.
func NewTable() *Table {
	return &Table{records: []Record{
		{Protocol: Reflective},
		{Protocol: Agentic},
	}}
}

// Trigger arms p for its full duration. Re-triggering while active is rejected.
func (t *Table) Trigger(p Protocol) error {
	r := t.find(p)
	if r == nil {
		return errors.New("unknown protocol: " + string(p))
	}
	if r.Remaining > 0 {
		return ErrActive
	}
	r.Remaining = duration(p)
	return nil
}

// Advance decrements every record once, flooring at zero, and returns the
// flags as they stood before the decrement.
func (t *Table) Advance() Active {
	var a Active
	for i := range t.records {
		r := &t.records[i]
		if r.Remaining <= 0 {
			continue
		}
		switch r.Protocol {
		case Reflective:
			a.Reflective = true
		case Agentic:
			a.Agentic = true
		}
		r.Remaining--
	}
	return a
}

// Remaining returns the ticks left for p.
func (t *Table) Remaining(p Protocol) int {
	if r := t.find(p); r != nil {
		return r.Remaining
	}
	return 0
}

// Reset idles every protocol.
func (t *Table) Reset() {
	for i := range t.records {
		t.records[i].Remaining = 0
	}
}

func (t *Table) find(p Protocol) *Record {
	for i := range t.records {
		if t.records[i].Protocol == p {
			return &t.records[i]
		}
	}
	return nil
}

func duration(p Protocol) int {
	if p == Agentic {
		return AgenticTicks
	}
	return ReflectiveTicks
}

// #endregion
