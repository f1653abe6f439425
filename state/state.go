// Package state persists the engine's portfolio state as a JSON snapshot so a
// restart resumes with the same capital, open positions, trade history, and
// price cache it left off with.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/perps/internal/fsutil"
	"github.com/rustyeddy/perps/ledger"
)

// Snapshot is the persisted portfolio state. Risk counters live in their own
// file (see the risk package) so they can be audited independently.
type Snapshot struct {
	Capital   float64                    `json:"capital"`
	Positions map[string]ledger.Position `json:"positions"`
	Trades    []ledger.Trade             `json:"trades"`
	Prices    map[string]float64         `json:"prices"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Store reads and writes snapshots at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Save writes the snapshot atomically. A reader never observes a partial
// file: it sees either the previous snapshot or this one.
func (s *Store) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}
	return nil
}

// Load reads the snapshot from disk. A missing file returns an error
// satisfying os.IsNotExist, which callers treat as a fresh start. An
// unparseable file is a hard failure: starting over with a zeroed ledger
// would silently erase trading history, so startup must refuse instead.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	return snap, nil
}
