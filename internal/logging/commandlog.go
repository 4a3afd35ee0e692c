package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-command
// LogCommand writes a command entry to the command_log table.
func LogCommand(db *sql.DB, entry CommandEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO command_log (session_id, tick, command, argument, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		int64(entry.Tick),
		entry.Command,
		nullIfEmpty(entry.Argument),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log command: %w", err)
	}
	return nil
}

// #endregion log-command

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
