// Package checkpoint persists the full simulation state at year boundaries so
// a multi-decade run can resume at whole-year granularity. States are msgpack
// blobs in the checkpoint database, one per completed year, written only after
// all of that year's decision mutations are applied.
package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/systemiqofficial/steel-iq-sub000/internal/database"
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// ErrNotFound reports that no checkpoint exists for the requested year.
var ErrNotFound = errors.New("checkpoint: not found")

// State is the complete facility and ownership state of the simulation at the
// end of a year.
type State struct {
	Year        int                  `msgpack:"year"`
	PlantGroups []*domain.PlantGroup `msgpack:"plant_groups"`

	// CapacityAdded is the year's expansion-and-switch total per product,
	// kept for the capacity-limit audit across a restored run.
	CapacityAdded map[domain.Product]float64 `msgpack:"capacity_added"`
}

// Store reads and writes checkpoints.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore returns a store over the checkpoint database.
func NewStore(db *database.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "checkpoint").Logger(),
	}
}

// Save serializes the state and writes it under its year. Re-running a year
// overwrites that year's checkpoint.
func (s *Store) Save(state *State) error {
	blob, err := msgpack.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint for year %d: %w", state.Year, err)
	}

	err = database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO checkpoints (year, state) VALUES (?, ?)`,
			state.Year, blob,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to store checkpoint for year %d: %w", state.Year, err)
	}

	s.log.Info().
		Int("year", state.Year).
		Int("bytes", len(blob)).
		Msg("Checkpoint saved")
	return nil
}

// Restore reconstructs the state saved for a year.
func (s *Store) Restore(year int) (*State, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT state FROM checkpoints WHERE year = ?`, year).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: year %d", ErrNotFound, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint for year %d: %w", year, err)
	}

	var state State
	if err := msgpack.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint for year %d: %w", year, err)
	}
	return &state, nil
}

// LatestYear returns the most recent checkpointed year, or ok=false when the
// store is empty.
func (s *Store) LatestYear() (int, bool, error) {
	var year sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(year) FROM checkpoints`).Scan(&year)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read latest checkpoint year: %w", err)
	}
	if !year.Valid {
		return 0, false, nil
	}
	return int(year.Int64), true, nil
}
