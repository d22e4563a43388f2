package circuits

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/blochd/internal/modules/engine"
)

// Repository persists circuit definitions. Gate lists and noise settings are
// stored as JSON, snapshot sequences as msgpack blobs.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a circuit repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "circuits").Logger(),
	}
}

// InitSchema creates the circuits table if missing.
func (r *Repository) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS circuits (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			qubit_count INTEGER NOT NULL,
			gates TEXT NOT NULL,
			noise TEXT,
			focus_qubit INTEGER NOT NULL DEFAULT 0,
			global_phase REAL,
			snapshots BLOB,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create circuits table: %w", err)
	}
	return nil
}

const circuitColumns = `id, name, description, qubit_count, gates, noise,
focus_qubit, global_phase, snapshots, created_at, updated_at`

// Save inserts a new circuit or updates an existing one. A missing ID gets a
// fresh UUID. The stored record is returned with its timestamps set.
func (r *Repository) Save(c SavedCircuit) (*SavedCircuit, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, fmt.Errorf("%w: circuit name is required", engine.ErrInvalidParameters)
	}

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	gatesJSON, err := json.Marshal(c.Gates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gates: %w", err)
	}

	var noiseJSON sql.NullString
	if c.Noise != nil {
		raw, err := json.Marshal(c.Noise)
		if err != nil {
			return nil, fmt.Errorf("failed to encode noise config: %w", err)
		}
		noiseJSON = sql.NullString{String: string(raw), Valid: true}
	}

	var snapshotBlob []byte
	if len(c.Snapshots) > 0 {
		snapshotBlob, err = msgpack.Marshal(c.Snapshots)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshots: %w", err)
		}
	}

	var globalPhase sql.NullFloat64
	if c.GlobalPhase != nil {
		globalPhase = sql.NullFloat64{Float64: *c.GlobalPhase, Valid: true}
	}

	_, err = r.db.Exec(`
		INSERT INTO circuits (`+circuitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			qubit_count = excluded.qubit_count,
			gates = excluded.gates,
			noise = excluded.noise,
			focus_qubit = excluded.focus_qubit,
			global_phase = excluded.global_phase,
			snapshots = excluded.snapshots,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, c.Description, c.QubitCount, string(gatesJSON), noiseJSON,
		c.FocusQubit, globalPhase, snapshotBlob,
		c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to save circuit: %w", err)
	}

	return r.Get(c.ID)
}

// Get returns a circuit by ID, or nil when not found.
func (r *Repository) Get(id string) (*SavedCircuit, error) {
	rows, err := r.db.Query("SELECT "+circuitColumns+" FROM circuits WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query circuit: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	c, err := r.scanCircuit(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns circuits ordered by most recently updated.
func (r *Repository) List(limit, offset int) ([]SavedCircuit, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(
		"SELECT "+circuitColumns+" FROM circuits ORDER BY updated_at DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list circuits: %w", err)
	}
	defer rows.Close()

	circuits := []SavedCircuit{}
	for rows.Next() {
		c, err := r.scanCircuit(rows)
		if err != nil {
			return nil, err
		}
		circuits = append(circuits, c)
	}
	return circuits, rows.Err()
}

// Delete removes a circuit and reports whether it existed.
func (r *Repository) Delete(id string) (bool, error) {
	res, err := r.db.Exec("DELETE FROM circuits WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete circuit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of stored circuits.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM circuits").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count circuits: %w", err)
	}
	return n, nil
}

func (r *Repository) scanCircuit(rows *sql.Rows) (SavedCircuit, error) {
	var (
		c            SavedCircuit
		gatesJSON    string
		noiseJSON    sql.NullString
		globalPhase  sql.NullFloat64
		snapshotBlob []byte
		createdAt    string
		updatedAt    string
	)

	err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.QubitCount, &gatesJSON,
		&noiseJSON, &c.FocusQubit, &globalPhase, &snapshotBlob, &createdAt, &updatedAt)
	if err != nil {
		return SavedCircuit{}, fmt.Errorf("failed to scan circuit: %w", err)
	}

	if err := json.Unmarshal([]byte(gatesJSON), &c.Gates); err != nil {
		return SavedCircuit{}, fmt.Errorf("failed to decode gates: %w", err)
	}
	if noiseJSON.Valid {
		var noise engine.NoiseConfig
		if err := json.Unmarshal([]byte(noiseJSON.String), &noise); err != nil {
			return SavedCircuit{}, fmt.Errorf("failed to decode noise config: %w", err)
		}
		c.Noise = &noise
	}
	if globalPhase.Valid {
		v := globalPhase.Float64
		c.GlobalPhase = &v
	}
	if len(snapshotBlob) > 0 {
		if err := msgpack.Unmarshal(snapshotBlob, &c.Snapshots); err != nil {
			return SavedCircuit{}, fmt.Errorf("failed to decode snapshots: %w", err)
		}
	}

	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return SavedCircuit{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return SavedCircuit{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return c, nil
}
