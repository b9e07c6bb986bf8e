package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type batchRepository struct {
	db *batchTable
}

var _ lesson.BatchRepository = (*batchRepository)(nil) // interface compliance check

func NewBatchRepository(db *DB) lesson.BatchRepository {
	return &batchRepository{db: db.batch}
}

func (repo *batchRepository) CreateBatch(_ context.Context, b lesson.Batch, _ ...core.DBExecutor) (lesson.Batch, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// same rule as the partial unique index on lesson_batches
	if b.IdempotencyKey != "" {
		for _, other := range repo.db.table {
			if other.TenantID == b.TenantID && other.IdempotencyKey == b.IdempotencyKey && !other.Failed {
				return lesson.Batch{}, lesson.ErrDuplicateBatch
			}
		}
	}
	repo.db.table[b.ID] = &b
	return b, nil
}

func (repo *batchRepository) FinishBatch(_ context.Context, b lesson.Batch, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[b.ID]
	if !ok || stored.TenantID != b.TenantID {
		return errors.Errorf("batch %s not found", b.ID)
	}
	stored.Stats = b.Stats
	stored.Failed = b.Failed
	stored.FinishedAt = b.FinishedAt
	return nil
}
