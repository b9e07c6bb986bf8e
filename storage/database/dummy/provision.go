package dummydb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

type provisionRepository struct {
	db *provisionTable
}

var _ lesson.ProvisionRepository = (*provisionRepository)(nil) // interface compliance check

func NewProvisionRepository(db *DB) lesson.ProvisionRepository {
	return &provisionRepository{db: db.provision}
}

func (repo *provisionRepository) CreateIntent(_ context.Context, in lesson.ProvisionIntent, _ ...core.DBExecutor) (lesson.ProvisionIntent, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[in.ID] = &in
	return in, nil
}

func (repo *provisionRepository) UpdateIntent(_ context.Context, in lesson.ProvisionIntent, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[in.ID]; !ok {
		return errors.Errorf("provisioning intent %s not found", in.ID)
	}
	repo.db.table[in.ID] = &in
	return nil
}

func (repo *provisionRepository) QueryIntents(_ context.Context, filter lesson.IntentFilter, _ ...core.DBExecutor) ([]lesson.ProvisionIntent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[lesson.ProvisionStatus]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		wanted[st] = true
	}

	intents := make([]lesson.ProvisionIntent, 0)
	for _, in := range repo.db.table {
		if len(wanted) > 0 && !wanted[in.Status] {
			continue
		}
		if !filter.UpdatedBefore.IsZero() && !in.UpdatedAt.Before(filter.UpdatedBefore) {
			continue
		}
		intents = append(intents, *in)
	}
	sort.Slice(intents, func(i, j int) bool { return intents[i].CreatedAt.Before(intents[j].CreatedAt) })

	if filter.Limit > 0 && len(intents) > filter.Limit {
		intents = intents[:filter.Limit]
	}
	return intents, nil
}
