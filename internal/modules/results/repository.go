// Package results persists per-year simulation aggregates and the command
// log, and serves them to the read-only HTTP API.
package results

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/systemiqofficial/steel-iq-sub000/internal/database"
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// ErrNotFound reports that no results exist for the requested year.
var ErrNotFound = errors.New("results: not found")

// YearSummary aggregates one simulated year.
type YearSummary struct {
	Year                   int                `json:"year"`
	ProductionByTechnology map[string]float64 `json:"production_by_technology"` // tonnes
	CapacityAddedSteel     float64            `json:"capacity_added_steel"`
	CapacityAddedIron      float64            `json:"capacity_added_iron"`
	Emissions              domain.Emissions   `json:"emissions"`
}

// StoredCommand is one logged decision command, payload kept as raw JSON.
type StoredCommand struct {
	ID      string          `json:"id"`
	Year    int             `json:"year"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Repository stores and serves year results.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository returns a repository over the results database.
func NewRepository(db *database.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "results_repository").Logger(),
	}
}

// SaveYear writes a year's summary and its command log in one transaction.
// Re-running a year replaces its summary; commands are keyed by their own IDs.
func (r *Repository) SaveYear(summary YearSummary, commands []domain.Command) error {
	production, err := json.Marshal(summary.ProductionByTechnology)
	if err != nil {
		return fmt.Errorf("failed to serialize production for year %d: %w", summary.Year, err)
	}

	err = database.WithTransaction(r.db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO year_results
			   (year, production_by_technology, capacity_added_steel, capacity_added_iron,
			    emissions_direct, emissions_indirect, emissions_supply_chain)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			summary.Year, string(production),
			summary.CapacityAddedSteel, summary.CapacityAddedIron,
			summary.Emissions.Direct, summary.Emissions.Indirect, summary.Emissions.SupplyChain,
		)
		if err != nil {
			return err
		}

		for _, cmd := range commands {
			payload, err := json.Marshal(cmd)
			if err != nil {
				return fmt.Errorf("failed to serialize command %s: %w", cmd.ID(), err)
			}
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO commands (id, year, command_type, payload) VALUES (?, ?, ?, ?)`,
				cmd.ID(), summary.Year, string(cmd.Type()), string(payload),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store results for year %d: %w", summary.Year, err)
	}

	r.log.Debug().
		Int("year", summary.Year).
		Int("commands", len(commands)).
		Msg("Year results stored")
	return nil
}

// Years lists the years with stored results, ascending.
func (r *Repository) Years() ([]int, error) {
	rows, err := r.db.Query(`SELECT year FROM year_results ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("failed to list result years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan result year: %w", err)
		}
		years = append(years, year)
	}
	return years, rows.Err()
}

// Year returns the summary for one year.
func (r *Repository) Year(year int) (*YearSummary, error) {
	var summary YearSummary
	var production string
	err := r.db.QueryRow(
		`SELECT year, production_by_technology, capacity_added_steel, capacity_added_iron,
		        emissions_direct, emissions_indirect, emissions_supply_chain
		 FROM year_results WHERE year = ?`, year,
	).Scan(
		&summary.Year, &production,
		&summary.CapacityAddedSteel, &summary.CapacityAddedIron,
		&summary.Emissions.Direct, &summary.Emissions.Indirect, &summary.Emissions.SupplyChain,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: year %d", ErrNotFound, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results for year %d: %w", year, err)
	}

	if err := json.Unmarshal([]byte(production), &summary.ProductionByTechnology); err != nil {
		return nil, fmt.Errorf("failed to deserialize production for year %d: %w", year, err)
	}
	return &summary, nil
}

// Commands returns the command log for one year, oldest first.
func (r *Repository) Commands(year int) ([]StoredCommand, error) {
	rows, err := r.db.Query(
		`SELECT id, year, command_type, payload FROM commands WHERE year = ? ORDER BY created_at, id`,
		year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list commands for year %d: %w", year, err)
	}
	defer rows.Close()

	var commands []StoredCommand
	for rows.Next() {
		var cmd StoredCommand
		var payload string
		if err := rows.Scan(&cmd.ID, &cmd.Year, &cmd.Type, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		cmd.Payload = json.RawMessage(payload)
		commands = append(commands, cmd)
	}
	return commands, rows.Err()
}
