package replay

import (
	"fmt"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/engine"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/journal"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/logging"
)

// #region export

// FromJournal builds a fixture from a recorded session: its seed, its accepted
// commands and the category and kind of every recorded tick. Commands issued
// after the last recorded tick cannot affect it and are dropped.
func FromJournal(store *journal.Store, sessionID string) (*Fixture, error) {
	sess, err := store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	ticks, err := store.Ticks(sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("load ticks: %w", err)
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("session %s has no ticks", sessionID)
	}
	cmds, err := store.Commands(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}

	last := int(ticks[len(ticks)-1].Tick)
	f := &Fixture{
		Description:       fmt.Sprintf("exported from session %s", sessionID),
		Seed:              sess.Seed,
		Ticks:             last,
		AffectWindowTicks: windowTicks(sess),
	}
	for _, c := range cmds {
		// A reset ends the journal session, so it never belongs in the replay.
		if c.Decision != logging.DecisionAccept || c.Command == string(engine.CmdReset) {
			continue
		}
		// Idle periods produce no ticks, so the step that follows a command
		// is always the one producing tick+1.
		step := int(c.Tick) + 1
		if step > last {
			continue
		}
		f.Commands = append(f.Commands, FixtureCommand{AtStep: step, Command: c.Command, Argument: c.Argument})
	}
	for _, t := range ticks {
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			Tick:     t.Tick,
			Category: t.Category,
			Kind:     t.Kind,
		})
	}
	return f, nil
}

func windowTicks(sess journal.SessionRecord) int {
	if sess.Interval <= 0 {
		return 0
	}
	n := int(sess.AffectWindow / sess.Interval)
	if sess.AffectWindow%sess.Interval != 0 {
		n++
	}
	return n
}

// #endregion export
