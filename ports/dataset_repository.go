package ports

import (
	"context"

	"sxfit/domain/core"
	"sxfit/domain/model"
)

// DatasetRepository defines the interface for pseudo-dataset storage operations
type DatasetRepository interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, ds *model.FakeDataset) error
	GetByID(ctx context.Context, id core.DatasetID) (*model.FakeDataset, error)
	ListByConfig(ctx context.Context, hash core.ConfigHash, limit int) ([]DatasetSummary, error)
	Close() error
}

// DatasetSummary is the list view of a stored dataset
type DatasetSummary struct {
	ID         core.DatasetID `db:"id"`
	Experiment int            `db:"experiment"`
	Observed   int            `db:"observed"`
	Poisson    bool           `db:"poisson"`
	Seed       int64          `db:"seed"`
}
