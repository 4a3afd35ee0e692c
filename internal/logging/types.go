package logging

import "time"

// #region command-entry
// CommandEntry is a single row in the command_log table.
type CommandEntry struct {
	SessionID string
	Tick      uint64
	Command   string // "start" | "stop" | "reset" | "trigger_reflective" | "trigger_agentic" | "inject_affect"
	Argument  string
	Decision  string // "accept" | "reject"
	Reason    string
	CreatedAt time.Time
}

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// #endregion command-entry

// #region logger-config
// Config selects the zap logger flavour.
type Config struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// #endregion logger-config
