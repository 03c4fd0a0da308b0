// Package sqlstore persists generated pseudo-datasets in SQLite or
// PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"sxfit/domain/core"
	"sxfit/domain/model"
	"sxfit/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by GetByID for an unknown dataset.
var ErrNotFound = errors.New("dataset not found")

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

const schema = `
CREATE TABLE IF NOT EXISTS fake_datasets (
	id          TEXT PRIMARY KEY,
	experiment  INTEGER NOT NULL,
	config_hash TEXT NOT NULL,
	seed        BIGINT NOT NULL,
	poisson     BOOLEAN NOT NULL,
	observed    INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fake_datasets_config ON fake_datasets (config_hash, experiment);
CREATE TABLE IF NOT EXISTS signal_counts (
	dataset_id TEXT NOT NULL REFERENCES fake_datasets (id) ON DELETE CASCADE,
	signal     TEXT NOT NULL,
	expected   DOUBLE PRECISION NOT NULL,
	efficiency DOUBLE PRECISION NOT NULL,
	observed   INTEGER NOT NULL,
	PRIMARY KEY (dataset_id, signal)
);`

// datasetRepository implements ports.DatasetRepository
type datasetRepository struct {
	db *sqlx.DB
}

// countRow is one signal_counts row
type countRow struct {
	DatasetID string `db:"dataset_id"`
	model.SignalCount
}

// Open connects to driver ("sqlite" or "postgres") at dsn.
func Open(ctx context.Context, driver, dsn string) (ports.DatasetRepository, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, core.NewConfigError("storage driver", fmt.Sprintf("unsupported driver %q", driver))
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}
	return NewDatasetRepository(db), nil
}

// NewDatasetRepository creates a repository over an open connection
func NewDatasetRepository(db *sqlx.DB) ports.DatasetRepository {
	return &datasetRepository{db: db}
}

// Init creates the tables if they do not exist
func (r *datasetRepository) Init(ctx context.Context) error {
	if r.db.DriverName() == "sqlite" {
		if _, err := r.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts a dataset and its per-signal counts in one transaction
func (r *datasetRepository) Save(ctx context.Context, ds *model.FakeDataset) error {
	if ds.ID.IsEmpty() {
		return core.NewConfigError("dataset id", "required")
	}
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO fake_datasets (
		id, experiment, config_hash, seed, poisson, observed, created_at, payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = tx.ExecContext(ctx, query,
		ds.ID.String(), ds.Experiment, ds.ConfigHash.String(), int64(ds.Seed), ds.Poisson,
		ds.Observed(), ds.CreatedAt.UTC(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	for _, c := range ds.Counts {
		row := countRow{DatasetID: ds.ID.String(), SignalCount: c}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO signal_counts (
			dataset_id, signal, expected, efficiency, observed
		) VALUES (:dataset_id, :signal, :expected, :efficiency, :observed)`, row)
		if err != nil {
			return fmt.Errorf("failed to insert count for %s: %w", c.Signal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

// GetByID retrieves a dataset by its ID
func (r *datasetRepository) GetByID(ctx context.Context, id core.DatasetID) (*model.FakeDataset, error) {
	var payload string
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`SELECT payload FROM fake_datasets WHERE id = ?`), id.String()).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	var ds model.FakeDataset
	if err := json.Unmarshal([]byte(payload), &ds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset: %w", err)
	}

	var counts []countRow
	err = r.db.SelectContext(ctx, &counts, r.db.Rebind(`SELECT
		dataset_id, signal, expected, efficiency, observed
	FROM signal_counts WHERE dataset_id = ? ORDER BY signal`), id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get signal counts: %w", err)
	}
	if len(counts) > 0 {
		byName := make(map[string]model.SignalCount, len(counts))
		for _, c := range counts {
			byName[c.Signal] = c.SignalCount
		}
		for i, c := range ds.Counts {
			if stored, ok := byName[c.Signal]; ok {
				ds.Counts[i] = stored
			}
		}
	}
	return &ds, nil
}

// ListByConfig lists datasets generated from one configuration, in
// experiment order
func (r *datasetRepository) ListByConfig(ctx context.Context, hash core.ConfigHash, limit int) ([]ports.DatasetSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []ports.DatasetSummary
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT
		id, experiment, observed, poisson, seed
	FROM fake_datasets
	WHERE config_hash = ?
	ORDER BY experiment, created_at
	LIMIT ?`), hash.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return out, nil
}

// Close closes the connection
func (r *datasetRepository) Close() error {
	return r.db.Close()
}
