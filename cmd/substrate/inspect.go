package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/journal"
)

var (
	inspectDB      string
	inspectSession string
	inspectLast    int
	inspectJSON    bool
)

// #region command

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect journaled sessions, ticks and commands",
	Long: `Without --session, lists the most recent sessions.
With --session, prints that session's ticks and its command log.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "journal path (defaults to config journal.path)")
	inspectCmd.Flags().StringVarP(&inspectSession, "session", "s", "", "session ID to show")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N rows")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of table")
}

// #endregion command

func runInspect(cmd *cobra.Command, _ []string) error {
	store, err := openJournal(inspectDB)
	if err != nil {
		return err
	}
	defer store.Close()

	if inspectSession != "" {
		return runDetailMode(store, inspectSession, inspectLast, inspectJSON)
	}
	return runListMode(store, inspectLast, inspectJSON)
}

func openJournal(path string) (*journal.Store, error) {
	if path == "" {
		path = cfg.Journal.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no journal: pass --db or set journal.path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return journal.NewStore(path)
}

// #region list-mode

type sessionRow struct {
	SessionID    string `json:"session_id"`
	Seed         int64  `json:"seed"`
	Interval     string `json:"interval"`
	AffectWindow string `json:"affect_window"`
	StartedAt    string `json:"started_at"`
}

func runListMode(store *journal.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = sessionRow{
			SessionID:    s.ID,
			Seed:         s.Seed,
			Interval:     s.Interval.String(),
			AffectWindow: s.AffectWindow.String(),
			StartedAt:    s.StartedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-36s  %20s  %8s  %8s  %s\n", "Session", "Seed", "Interval", "Window", "Started")
	fmt.Printf("%-36s+-%20s+-%8s+-%8s+-%s\n",
		"------------------------------------", "--------------------", "--------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-36s  %20d  %8s  %8s  %s\n", r.SessionID, r.Seed, r.Interval, r.AffectWindow, r.StartedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type tickOut struct {
	Tick       uint64          `json:"tick"`
	PacketID   string          `json:"packet_id"`
	Kind       string          `json:"kind"`
	Category   string          `json:"category"`
	Hint       string          `json:"hint,omitempty"`
	Vector     []float64       `json:"vector"`
	Phase      float64         `json:"phase"`
	Reflective bool            `json:"reflective"`
	Agentic    bool            `json:"agentic"`
	Metrics    json.RawMessage `json:"metrics"`
	CreatedAt  string          `json:"created_at"`
}

type commandOut struct {
	Tick     uint64 `json:"tick"`
	Command  string `json:"command"`
	Argument string `json:"argument,omitempty"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

type detailOutput struct {
	Session  sessionRow   `json:"session"`
	Ticks    []tickOut    `json:"ticks"`
	Commands []commandOut `json:"commands"`
}

func runDetailMode(store *journal.Store, id string, last int, jsonOut bool) error {
	sess, err := store.GetSession(id)
	if err != nil {
		return err
	}
	ticks, err := store.Ticks(id, 0)
	if err != nil {
		return err
	}
	if last > 0 && len(ticks) > last {
		ticks = ticks[len(ticks)-last:]
	}
	cmds, err := store.Commands(id)
	if err != nil {
		return err
	}

	out := detailOutput{
		Session: sessionRow{
			SessionID:    sess.ID,
			Seed:         sess.Seed,
			Interval:     sess.Interval.String(),
			AffectWindow: sess.AffectWindow.String(),
			StartedAt:    sess.StartedAt.Format("2006-01-02T15:04:05Z"),
		},
	}
	for _, t := range ticks {
		out.Ticks = append(out.Ticks, tickOut{
			Tick:       t.Tick,
			PacketID:   t.PacketID,
			Kind:       t.Kind,
			Category:   t.Category,
			Hint:       t.Hint,
			Vector:     t.Vector[:],
			Phase:      t.Phase,
			Reflective: t.Reflective,
			Agentic:    t.Agentic,
			Metrics:    json.RawMessage(t.MetricsJSON),
			CreatedAt:  t.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	for _, c := range cmds {
		out.Commands = append(out.Commands, commandOut{
			Tick: c.Tick, Command: c.Command, Argument: c.Argument, Decision: c.Decision, Reason: c.Reason,
		})
	}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:  %s\n", out.Session.SessionID)
	fmt.Printf("Seed:     %d\n", out.Session.Seed)
	fmt.Printf("Interval: %s  Affect window: %s\n", out.Session.Interval, out.Session.AffectWindow)
	fmt.Printf("Started:  %s\n\n", out.Session.StartedAt)

	fmt.Printf("%6s  %-16s  %-20s  %-28s  %3s  %3s\n", "Tick", "Category", "Kind", "Hint", "RFI", "AGT")
	fmt.Printf("%6s+-%-16s+-%-20s+-%-28s+-%3s+-%3s\n",
		"------", "----------------", "--------------------", "----------------------------", "---", "---")
	for _, t := range out.Ticks {
		hint := t.Hint
		if hint == "" {
			hint = "—"
		}
		fmt.Printf("%6d  %-16s  %-20s  %-28s  %3s  %3s\n",
			t.Tick, t.Category, t.Kind, hint, mark(t.Reflective), mark(t.Agentic))
	}

	fmt.Printf("\nCommands:\n")
	if len(out.Commands) == 0 {
		fmt.Println("  (none)")
	}
	for _, c := range out.Commands {
		line := fmt.Sprintf("  @%-5d %-20s %-8s %s", c.Tick, c.Command, c.Argument, c.Decision)
		if c.Reason != "" {
			line += " (" + c.Reason + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func mark(b bool) string {
	if b {
		return "*"
	}
	return ""
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
