package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/affect"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/session"
)

var (
	runJournal string
	runSeed    int64
	runWatch   bool
	runTicks   uint64
)

// #region command

var promptHelp = `  start | stop | reset
  rfi                trigger the reflective protocol
  agentic            trigger the agentic protocol
  emotion <label>    inject an affect (` + strings.Join(labelNames(), ", ") + `)
  diag               request a supervisor diagnosis
  status             print the current state
  quit
`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the substrate loop with an interactive command prompt",
	Long: "Runs the simulation loop. Commands are read line by line from stdin:\n\n" +
		promptHelp + "\nWith --ticks the loop starts immediately and exits after N ticks.",
	RunE: runSubstrate,
}

func init() {
	runCmd.Flags().StringVar(&runJournal, "journal", "", "SQLite journal path (overrides config)")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "metrics random seed (overrides config)")
	runCmd.Flags().BoolVarP(&runWatch, "watch", "w", false, "print a line per tick")
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 0, "headless: start, run N ticks, then exit")
}

// #endregion command

// #region run

func runSubstrate(cmd *cobra.Command, _ []string) error {
	if runJournal != "" {
		cfg.Journal.Path = runJournal
	}
	if runSeed != 0 {
		cfg.Engine.Seed = runSeed
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := session.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	logger.Info("substrate ready",
		zap.Int64("seed", sess.Seed()),
		zap.String("interval", cfg.GetInterval().String()),
		zap.String("journal", cfg.Journal.Path),
		zap.String("diagnostics", cfg.Diagnostics.Backend))

	out := cmd.OutOrStdout()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return watch(egCtx, sess, out, cancel) })

	if runTicks > 0 {
		sess.Start()
	} else {
		lines := readLines(cmd.InOrStdin())
		eg.Go(func() error {
			defer cancel()
			return prompt(egCtx, sess, lines, out)
		})
	}

	<-egCtx.Done()
	sess.Stop()
	sess.WaitDiagnostics()
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	printStatus(out, sess.View())
	return nil
}

// readLines feeds stdin into a channel. The reader goroutine cannot be
// interrupted mid-read, so it is left to exit with the process.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// #endregion run

// #region prompt

func prompt(ctx context.Context, sess *session.Session, lines <-chan string, out io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := execute(ctx, sess, line, out)
			if err != nil {
				fmt.Fprintf(out, "rejected: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// execute applies one prompt line. It reports quit=true for quit/exit.
func execute(ctx context.Context, sess *session.Session, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch strings.ToLower(fields[0]) {
	case "start":
		sess.Start()
	case "stop":
		sess.Stop()
	case "reset":
		return false, sess.Reset()
	case "rfi", "reflective":
		return false, sess.TriggerReflective()
	case "agentic":
		return false, sess.TriggerAgentic()
	case "emotion", "affect":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: emotion <%s>", strings.Join(labelNames(), "|"))
		}
		return false, sess.InjectAffect(fields[1])
	case "diag", "diagnose":
		return false, sess.RequestDiagnostics(ctx)
	case "status":
		printStatus(out, sess.View())
	case "help", "?":
		fmt.Fprint(out, promptHelp)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

// #endregion prompt

// #region watch

// watch polls the session and prints each new tick. With --ticks it cancels
// the run once the count is reached.
func watch(ctx context.Context, sess *session.Session, out io.Writer, done context.CancelFunc) error {
	every := cfg.GetInterval() / 4
	if every <= 0 {
		every = time.Millisecond
	}
	poll := time.NewTicker(every)
	defer poll.Stop()

	var seen uint64
	var board string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
		}
		v := sess.View()
		if v.Tick < seen {
			seen = 0 // reset
		}
		if v.Tick > seen && v.Packet != nil {
			seen = v.Tick
			if runWatch {
				fmt.Fprintf(out, "%6d  %-16s  %-20s  H=%.3f C=%.3f R=%.3f health=%.3f\n",
					v.Tick, v.Packet.Category, v.Packet.Kind,
					v.Metrics.Entropy, v.Metrics.Coherence, v.Metrics.Recursion, v.Metrics.Health)
			}
		}
		if v.Diagnostics != board && !v.DiagnosticsLoading {
			board = v.Diagnostics
			fmt.Fprintf(out, ">> %s\n", board)
		}
		if runTicks > 0 && seen >= runTicks {
			done()
			return nil
		}
	}
}

// #endregion watch

// #region status

func printStatus(out io.Writer, v session.View) {
	state := "IDLE"
	if v.Running {
		state = "RUNNING"
	}
	fmt.Fprintf(out, "state:       %s (tick %d)\n", state, v.Tick)
	if v.SessionID != "" {
		fmt.Fprintf(out, "journal:     %s\n", v.SessionID)
	}
	if v.Packet != nil {
		fmt.Fprintf(out, "category:    %s  kind: %s  hint: %s\n", v.Packet.Category, v.Packet.Kind, v.Packet.Hint)
		fmt.Fprintf(out, "vector:      %.4f\n", v.Packet.Vector)
	}
	m := v.Metrics
	fmt.Fprintf(out, "entropy:     %.4f  coherence: %.4f  diversity: %.4f\n", m.Entropy, m.Coherence, m.Diversity)
	fmt.Fprintf(out, "recursion:   %.4f  health:    %.4f  free_will: %.4f\n", m.Recursion, m.Health, m.FreeWill)
	fmt.Fprintf(out, "valence:     %.4f  arousal:   %.4f  memory:    %.4f\n", m.Valence, m.Arousal, m.MemoryStability)
	fmt.Fprintf(out, "protocols:   reflective=%d agentic=%d\n", v.Reflective, v.Agentic)
	if v.Override != nil {
		fmt.Fprintf(out, "affect:      (%.2f, %.2f) until %s\n", v.Override.Valence, v.Override.Arousal, v.OverrideUntil.Format(time.TimeOnly))
	}
	board := v.Diagnostics
	if v.DiagnosticsLoading {
		board = "(analyzing...)"
	}
	fmt.Fprintf(out, "diagnostics: %s\n", board)
}

func labelNames() []string {
	names := make([]string, 0, len(affect.Labels))
	for _, l := range affect.Labels {
		names = append(names, string(l))
	}
	return names
}

// #endregion status
