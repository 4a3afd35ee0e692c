package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/replay"
)

var (
	replayDB      string
	replaySession string
	replayFixture string
	replayAll     bool
)

// errDiverged makes the process exit non-zero when a replay disagrees with
// its expectations.
type errDiverged int

func (e errDiverged) Error() string { return fmt.Sprintf("%d ticks diverged", int(e)) }

// #region command

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture or a journaled session deterministically",
	Long: `Fixture mode (--fixture) replays a JSON fixture and compares each tick with
its expected classification. Journal mode (--session) exports the session's
command log first and replays that.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "path to fixture JSON (fixture mode)")
	replayCmd.Flags().StringVar(&replayDB, "db", "", "journal path (journal mode, defaults to config)")
	replayCmd.Flags().StringVarP(&replaySession, "session", "s", "", "journaled session ID (journal mode)")
	replayCmd.Flags().BoolVar(&replayAll, "all", false, "print idle steps and matching ticks too")
	replayCmd.MarkFlagsMutuallyExclusive("fixture", "session")
	replayCmd.MarkFlagsOneRequired("fixture", "session")
}

// #endregion command

func runReplay(cmd *cobra.Command, _ []string) error {
	var f *replay.Fixture
	var err error
	if replayFixture != "" {
		f, err = replay.LoadFixture(replayFixture)
	} else {
		f, err = loadSessionFixture(replayDB, replaySession)
	}
	if err != nil {
		return err
	}

	results, err := replay.Run(f)
	if err != nil {
		return err
	}
	return printComparison(f, results, replayAll)
}

func loadSessionFixture(db, id string) (*replay.Fixture, error) {
	store, err := openJournal(db)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return replay.FromJournal(store, id)
}

// #region output

// printComparison outputs a per-step table and a summary. Journal exports
// carry expectations for every tick, so a clean replay prints no DIFF rows.
func printComparison(f *replay.Fixture, results []replay.ReplayResult, all bool) error {
	if f.Description != "" {
		fmt.Println(f.Description)
	}
	fmt.Printf("%-6s| %-6s| %-16s| %-20s| %s\n", "Step", "Tick", "Category", "Kind", "Match")
	fmt.Printf("%-6s+%-7s+%-17s+%-21s+%s\n", "------", "-------", "-----------------", "---------------------", "------")

	for _, r := range results {
		if r.Missing {
			fmt.Printf("%-6s| %-6d| %-16s| %-20s| DIFF %s\n", "—", r.Tick, "", "", r.Mismatch)
			continue
		}
		for _, c := range r.Commands {
			if c.Err != nil {
				fmt.Printf("%-6d| %-6s| rejected %s %s: %v\n", r.Step, "", c.Command, c.Argument, c.Err)
			}
		}
		if !r.Ticked {
			if all {
				fmt.Printf("%-6d| %-6s| %-16s| %-20s|\n", r.Step, "—", "IDLE", "")
			}
			continue
		}
		match := "OK"
		if r.Mismatch != "" {
			match = "DIFF " + r.Mismatch
		} else if !all {
			continue
		}
		fmt.Printf("%-6d| %-6d| %-16s| %-20s| %s\n", r.Step, r.Tick, r.Category, r.Kind, match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d steps, %d ticks, %d idle, %d rejected commands, %d diverge (%d never produced)\n",
		s.TotalSteps, s.Ticks, s.Idle, s.RejectedCommands, s.Mismatches, s.Missing)
	printCounts("Categories", s.Categories)
	printCounts("Kinds", s.Kinds)
	m := s.FinalMetrics
	fmt.Printf("Final: H=%.4f C=%.4f D=%.4f R=%.4f health=%.4f\n", m.Entropy, m.Coherence, m.Diversity, m.Recursion, m.Health)

	if s.Mismatches > 0 {
		return errDiverged(s.Mismatches)
	}
	return nil
}

func printCounts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(os.Stdout, "  %-20s %d\n", k, counts[k])
	}
}

// #endregion output
