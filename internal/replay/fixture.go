package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description       string                  `json:"description"`
	Seed              int64                   `json:"seed"`
	Ticks             int                     `json:"ticks"`
	AffectWindowTicks int                     `json:"affect_window_ticks"`
	Commands          []FixtureCommand        `json:"commands"`
	ExpectedResults   []FixtureExpectedResult `json:"expected_results"`
}

// FixtureCommand is applied right before step attempt AtStep (1-based).
type FixtureCommand struct {
	AtStep   int    `json:"at_step"`
	Command  string `json:"command"`
	Argument string `json:"argument,omitempty"`
}

// FixtureExpectedResult captures the expected classification of one tick.
type FixtureExpectedResult struct {
	Tick     uint64 `json:"tick"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Ticks < 0 {
		return nil, fmt.Errorf("parse fixture %s: negative ticks", path)
	}
	return &f, nil
}

// SaveFixture writes f as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader
