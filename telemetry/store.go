package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store persists generation and network records to a SQLite database.
// Each run is identified by a run id so several runs can share one file.
// A nil Store discards everything.
type Store struct {
	db    *sql.DB
	runID int64

	insertGen *sql.Stmt
	insertNet *sql.Stmt
}

// OpenStore opens (creating if needed) the database at path and registers a new run.
// Returns nil if path is empty (store disabled).
func OpenStore(path string, seed uint64, configYAML string) (*Store, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	res, err := db.Exec(`INSERT INTO runs (seed, config) VALUES (?, ?)`, int64(seed), configYAML)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}

	s := &Store{db: db, runID: runID}
	if err := s.prepare(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("store pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seed INTEGER NOT NULL,
			config TEXT NOT NULL,
			started_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS generations (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			gen INTEGER NOT NULL,
			pop_size INTEGER NOT NULL,
			sim_time REAL NOT NULL,
			move_events INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			forage_phases INTEGER NOT NULL,
			food_eaten INTEGER NOT NULL,
			new_infections INTEGER NOT NULL,
			pathogen_introduced INTEGER NOT NULL,
			n_infected INTEGER NOT NULL,
			p_src_horizontal REAL NOT NULL,
			energy_mean REAL NOT NULL,
			energy_sd REAL NOT NULL,
			coef_nbrs_mean REAL NOT NULL,
			coef_food_mean REAL NOT NULL,
			coef_nbrs2_mean REAL NOT NULL,
			coef_food2_mean REAL NOT NULL,
			activity_mean REAL NOT NULL,
			assoc_mean REAL NOT NULL,
			degree_mean REAL NOT NULL,
			wall_time_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, gen)
		);`,
		`CREATE TABLE IF NOT EXISTS networks (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			gen INTEGER NOT NULL,
			vertices INTEGER NOT NULL,
			edges INTEGER NOT NULL,
			interactions INTEGER NOT NULL,
			mean_degree REAL NOT NULL,
			mean_strength REAL NOT NULL,
			density REAL NOT NULL,
			components INTEGER NOT NULL,
			largest_component INTEGER NOT NULL,
			PRIMARY KEY (run_id, gen)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("store schema: %w", err)
		}
	}
	return nil
}

func (s *Store) prepare() error {
	var err error
	s.insertGen, err = s.db.Prepare(`INSERT INTO generations (
		run_id, gen, pop_size, sim_time, move_events, moves, forage_phases, food_eaten,
		new_infections, pathogen_introduced, n_infected, p_src_horizontal,
		energy_mean, energy_sd, coef_nbrs_mean, coef_food_mean, coef_nbrs2_mean,
		coef_food2_mean, activity_mean, assoc_mean, degree_mean, wall_time_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing generation insert: %w", err)
	}
	s.insertNet, err = s.db.Prepare(`INSERT INTO networks (
		run_id, gen, vertices, edges, interactions, mean_degree, mean_strength,
		density, components, largest_component
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing network insert: %w", err)
	}
	return nil
}

// RunID returns the id of the run this store writes to.
func (s *Store) RunID() int64 {
	if s == nil {
		return 0
	}
	return s.runID
}

// WriteGeneration inserts a generation record.
func (s *Store) WriteGeneration(r GenerationRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.insertGen.Exec(
		s.runID, r.Gen, r.PopSize, r.SimTime, r.MoveEvents, r.Moves, r.ForagePhases, r.FoodEaten,
		r.NewInfections, boolInt(r.PathogenIntroduced), r.Infected, r.PropHorizontal,
		r.EnergyMean, r.EnergySD, r.CoefNbrsMean, r.CoefFoodMean, r.CoefNbrs2Mean,
		r.CoefFood2Mean, r.ActivityMean, r.AssocMean, r.DegreeMean, r.WallTimeMS,
	)
	if err != nil {
		return fmt.Errorf("storing generation %d: %w", r.Gen, err)
	}
	return nil
}

// WriteNetwork inserts a network record.
func (s *Store) WriteNetwork(r NetworkRecord) error {
	if s == nil {
		return nil
	}
	_, err := s.insertNet.Exec(
		s.runID, r.Gen, r.Vertices, r.Edges, r.Interactions, r.MeanDegree, r.MeanStrength,
		r.Density, r.Components, r.LargestComponent,
	)
	if err != nil {
		return fmt.Errorf("storing network %d: %w", r.Gen, err)
	}
	return nil
}

// Generations returns the number of generations stored for this run.
func (s *Store) Generations() (int, error) {
	if s == nil {
		return 0, nil
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM generations WHERE run_id = ?`, s.runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting generations: %w", err)
	}
	return n, nil
}

// InfectedSeries returns the infected count per generation of this run, ordered by generation.
func (s *Store) InfectedSeries() ([]int, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT n_infected FROM generations WHERE run_id = ? ORDER BY gen`, s.runID)
	if err != nil {
		return nil, fmt.Errorf("querying infections: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning infections: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	for _, stmt := range []*sql.Stmt{s.insertGen, s.insertNet} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}
