package boiledrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

const (
	intentTable   = "provisioning_intents"
	intentColumns = "id, tenant_id, batch_id, lesson_id, provider, resource_name, external_id, join_url, status, last_error, attempts, created_at, updated_at"
)

var (
	intentColumnList = strings.Split(strings.ReplaceAll(intentColumns, " ", ""), ",")

	dialect = drivers.Dialect{
		LQ:                   '"',
		RQ:                   '"',
		UseIndexPlaceholders: true,
		UseDefaultKeyword:    true,
	}
)

// provisioningIntent mirrors the provisioning_intents table.
type provisioningIntent struct {
	ID           string      `boil:"id"`
	TenantID     string      `boil:"tenant_id"`
	BatchID      string      `boil:"batch_id"`
	LessonID     string      `boil:"lesson_id"`
	Provider     string      `boil:"provider"`
	ResourceName string      `boil:"resource_name"`
	ExternalID   null.String `boil:"external_id"`
	JoinURL      null.String `boil:"join_url"`
	Status       string      `boil:"status"`
	LastError    null.String `boil:"last_error"`
	Attempts     int         `boil:"attempts"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
}

type provisionRepository struct {
	exec core.DBExecutor
}

var _ lesson.ProvisionRepository = (*provisionRepository)(nil) // interface compliance check

func NewProvisionRepository(exec core.DBExecutor) *provisionRepository {
	return &provisionRepository{exec: exec}
}

func (repo provisionRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo provisionRepository) boil(in lesson.ProvisionIntent) provisioningIntent {
	return provisioningIntent{
		ID:           in.ID,
		TenantID:     in.TenantID,
		BatchID:      in.BatchID,
		LessonID:     in.LessonID,
		Provider:     string(in.Provider),
		ResourceName: in.ResourceName,
		ExternalID:   null.NewString(in.ExternalID, in.ExternalID != ""),
		JoinURL:      null.NewString(in.JoinURL, in.JoinURL != ""),
		Status:       string(in.Status),
		LastError:    null.NewString(in.LastError, in.LastError != ""),
		Attempts:     in.Attempts,
		CreatedAt:    in.CreatedAt.UTC(),
		UpdatedAt:    in.UpdatedAt.UTC(),
	}
}

func (repo provisionRepository) unboil(in provisioningIntent) lesson.ProvisionIntent {
	return lesson.ProvisionIntent{
		ID:           in.ID,
		TenantID:     in.TenantID,
		BatchID:      in.BatchID,
		LessonID:     in.LessonID,
		Provider:     lesson.Provider(in.Provider),
		ResourceName: in.ResourceName,
		ExternalID:   in.ExternalID.String,
		JoinURL:      in.JoinURL.String,
		Status:       lesson.ProvisionStatus(in.Status),
		LastError:    in.LastError.String,
		Attempts:     in.Attempts,
		CreatedAt:    in.CreatedAt.UTC(),
		UpdatedAt:    in.UpdatedAt.UTC(),
	}
}

func (repo provisionRepository) CreateIntent(ctx context.Context, in lesson.ProvisionIntent, exec ...core.DBExecutor) (lesson.ProvisionIntent, error) {
	row := repo.boil(in)
	_, err := queries.Raw(
		`INSERT INTO `+intentTable+` (`+intentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		row.ID, row.TenantID, row.BatchID, row.LessonID, row.Provider, row.ResourceName, row.ExternalID,
		row.JoinURL, row.Status, row.LastError, row.Attempts, row.CreatedAt, row.UpdatedAt,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return lesson.ProvisionIntent{}, errors.Wrap(err, "inserting provisioning intent")
	}
	return in, nil
}

func (repo provisionRepository) UpdateIntent(ctx context.Context, in lesson.ProvisionIntent, exec ...core.DBExecutor) error {
	row := repo.boil(in)
	res, err := queries.Raw(
		`UPDATE `+intentTable+` SET external_id = $1, join_url = $2, status = $3, last_error = $4, attempts = $5,
			updated_at = $6 WHERE id = $7`,
		row.ExternalID, row.JoinURL, row.Status, row.LastError, row.Attempts, row.UpdatedAt, row.ID,
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return errors.Wrap(err, "updating provisioning intent")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("provisioning intent %s not found", in.ID)
	}
	return nil
}

func (repo provisionRepository) QueryIntents(ctx context.Context, filter lesson.IntentFilter, exec ...core.DBExecutor) ([]lesson.ProvisionIntent, error) {
	var rows []provisioningIntent
	if err := intentsQuery(filter).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying provisioning intents")
	}
	intents := make([]lesson.ProvisionIntent, 0, len(rows))
	for _, row := range rows {
		intents = append(intents, repo.unboil(row))
	}
	return intents, nil
}

func intentsQuery(filter lesson.IntentFilter) *queries.Query {
	mods := []qm.QueryMod{
		qm.Select(intentColumnList...),
		qm.From(intentTable),
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]interface{}, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		mods = append(mods, qm.WhereIn("status IN ?", statuses...))
	}
	if !filter.UpdatedBefore.IsZero() {
		mods = append(mods, qm.Where("updated_at < ?", filter.UpdatedBefore.UTC()))
	}
	mods = append(mods, qm.OrderBy("created_at ASC"))
	if filter.Limit > 0 {
		mods = append(mods, qm.Limit(filter.Limit))
	}

	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}
