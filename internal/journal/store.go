// Package journal keeps an optional, write-only record of engine runs in SQLite.
// The engine never reads it back; cmd tooling does.
package journal

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/engine"
	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/signals"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id       TEXT PRIMARY KEY,
	seed             INTEGER NOT NULL,
	interval_ms      INTEGER NOT NULL,
	affect_window_ms INTEGER NOT NULL,
	started_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ticks (
	session_id   TEXT NOT NULL,
	tick         INTEGER NOT NULL,
	packet_id    TEXT NOT NULL,
	kind         TEXT NOT NULL,
	category     TEXT NOT NULL,
	hint         TEXT,
	vector       BLOB NOT NULL,
	raw_vector   BLOB NOT NULL,
	phase        REAL NOT NULL,
	reflective   INTEGER NOT NULL,
	agentic      INTEGER NOT NULL,
	metrics_json TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	PRIMARY KEY (session_id, tick),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS command_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	tick       INTEGER NOT NULL,
	command    TEXT NOT NULL,
	argument   TEXT,
	decision   TEXT NOT NULL,
	reason     TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// #endregion schema

// #region store-struct
// Store manages the journal database.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection; one writer connection keeps them in force.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region sessions
// CreateSession registers a new run and returns its record.
func (s *Store) CreateSession(seed int64, interval, affectWindow time.Duration) (SessionRecord, error) {
	rec := SessionRecord{
		ID:           uuid.New().String(),
		Seed:         seed,
		Interval:     interval,
		AffectWindow: affectWindow,
		StartedAt:    time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, seed, interval_ms, affect_window_ms, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Seed, interval.Milliseconds(), affectWindow.Milliseconds(),
		rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT session_id, seed, interval_ms, affect_window_ms, started_at
		 FROM sessions WHERE session_id = ?`, id,
	)
	rec, err := scanSession(row)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return rec, nil
}

// ListSessions returns the most recent sessions first.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, seed, interval_ms, affect_window_ms, started_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (SessionRecord, error) {
	var rec SessionRecord
	var intervalMS, windowMS int64
	var startedStr string
	if err := sc.Scan(&rec.ID, &rec.Seed, &intervalMS, &windowMS, &startedStr); err != nil {
		return SessionRecord{}, err
	}
	rec.Interval = time.Duration(intervalMS) * time.Millisecond
	rec.AffectWindow = time.Duration(windowMS) * time.Millisecond
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	return rec, nil
}

// #endregion sessions

// #region ticks
// AppendTick stores one published tick. A tick already stored for the session
// is left as is.
func (s *Store) AppendTick(sessionID string, rec engine.TickRecord) error {
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	p := rec.Packet
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO ticks
		 (session_id, tick, packet_id, kind, category, hint, vector, raw_vector, phase, reflective, agentic, metrics_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, int64(p.Tick), p.ID, string(p.Kind), string(p.Category), nullIfEmpty(string(p.Hint)),
		encodeVector(p.Vector), encodeVector(p.Raw), p.Phase, boolInt(p.Reflective), boolInt(p.Agentic),
		string(metricsJSON), p.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert tick %d: %w", p.Tick, err)
	}
	return nil
}

// Ticks returns a session's ticks in order. A non-positive limit returns all.
func (s *Store) Ticks(sessionID string, limit int) ([]TickRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT tick, packet_id, kind, category, hint, vector, raw_vector, phase, reflective, agentic, metrics_json, created_at
		 FROM ticks WHERE session_id = ? ORDER BY tick ASC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ticks: %w", err)
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		r := TickRow{SessionID: sessionID}
		var tick int64
		var hint sql.NullString
		var vecBlob, rawBlob []byte
		var reflective, agentic int
		var createdStr string
		if err := rows.Scan(&tick, &r.PacketID, &r.Kind, &r.Category, &hint, &vecBlob, &rawBlob,
			&r.Phase, &reflective, &agentic, &r.MetricsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Tick = uint64(tick)
		if hint.Valid {
			r.Hint = hint.String
		}
		r.Vector = decodeVector(vecBlob)
		r.Raw = decodeVector(rawBlob)
		r.Reflective = reflective != 0
		r.Agentic = agentic != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion ticks

// #region commands
// Commands returns a session's command log in insertion order.
func (s *Store) Commands(sessionID string) ([]CommandRow, error) {
	rows, err := s.db.Query(
		`SELECT tick, command, argument, decision, reason, created_at
		 FROM command_log WHERE session_id = ? ORDER BY id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	var out []CommandRow
	for rows.Next() {
		var r CommandRow
		var tick int64
		var argument, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&tick, &r.Command, &argument, &r.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Tick = uint64(tick)
		r.Argument = argument.String
		r.Reason = reason.String
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion commands

// #region vector-encoding
func encodeVector(v signals.Vector) []byte {
	buf := make([]byte, signals.Channels*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) signals.Vector {
	var v signals.Vector
	for i := range v {
		if i*8+8 <= len(b) {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	return v
}

// #endregion vector-encoding

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
