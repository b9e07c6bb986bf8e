package lesson

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

const (
	maxReconcileAttempts = 5
	reconcileBatchSize   = 100
)

type (
	// ReconcileItem is the outcome for one provisioning intent.
	ReconcileItem struct {
		IntentID     string
		LessonID     string
		Provider     Provider
		ResourceName string
		ExternalID   string
		From         ProvisionStatus
		To           ProvisionStatus
		Err          string
	}

	ReconcileReport struct {
		Examined    int
		Compensated int
		Abandoned   int
		Failed      int
		Items       []ReconcileItem
	}

	// Reconciler deletes external resources left behind by partially failed batches.
	Reconciler struct {
		provisions ProvisionRepository
		meetings   MeetingProvider
		rooms      RoomProvider
		logger     core.Logger
		pendingAge time.Duration
	}
)

// NewReconciler returns a Reconciler. meetings and rooms may be nil when the provider is not configured;
// intents of such providers are then skipped.
func NewReconciler(provisions ProvisionRepository, meetings MeetingProvider, rooms RoomProvider, logger core.Logger, pendingAge time.Duration) *Reconciler {
	return &Reconciler{
		provisions: provisions,
		meetings:   meetings,
		rooms:      rooms,
		logger:     logger,
		pendingAge: pendingAge,
	}
}

// Reconcile runs a single pass over orphaned intents, and over pending or provisioned intents
// that have not moved for longer than the pending age.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	orphaned, err := r.provisions.QueryIntents(ctx, IntentFilter{
		Statuses: []ProvisionStatus{StatusOrphaned},
		Limit:    reconcileBatchSize,
	})
	if err != nil {
		return report, errors.Wrap(err, "querying orphaned intents")
	}
	stale, err := r.provisions.QueryIntents(ctx, IntentFilter{
		Statuses:      []ProvisionStatus{StatusPending, StatusProvisioned},
		UpdatedBefore: nowFunc().UTC().Add(-r.pendingAge),
		Limit:         reconcileBatchSize,
	})
	if err != nil {
		return report, errors.Wrap(err, "querying stale intents")
	}

	for _, intent := range append(orphaned, stale...) {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		item, ok := r.reconcile(ctx, intent)
		if !ok {
			continue
		}
		report.Examined++
		switch item.To {
		case StatusCompensated:
			report.Compensated++
		case StatusAbandoned:
			report.Abandoned++
		}
		if item.Err != "" {
			report.Failed++
		}
		report.Items = append(report.Items, item)
	}
	return report, nil
}

// reconcile deletes the intent's resource, if possible. It reports false when the provider is not configured.
func (r *Reconciler) reconcile(ctx context.Context, intent ProvisionIntent) (ReconcileItem, bool) {
	item := ReconcileItem{
		IntentID:     intent.ID,
		LessonID:     intent.LessonID,
		Provider:     intent.Provider,
		ResourceName: intent.ResourceName,
		ExternalID:   intent.ExternalID,
		From:         intent.Status,
		To:           intent.Status,
	}

	var err error
	switch intent.Provider {
	case ProviderZoom:
		if r.meetings == nil {
			return item, false
		}
		if intent.ExternalID == "" {
			// the meeting can't be looked up without its ID
			item.To = StatusAbandoned
			break
		}
		err = r.meetings.DeleteMeeting(ctx, intent.ExternalID)
	case ProviderDaily:
		if r.rooms == nil {
			return item, false
		}
		err = r.rooms.DeleteRoom(ctx, intent.ResourceName)
	default:
		item.To = StatusAbandoned
	}

	intent.Attempts++
	intent.UpdatedAt = nowFunc().UTC()
	if err != nil {
		item.Err = err.Error()
		intent.LastError = err.Error()
		if intent.Attempts >= maxReconcileAttempts {
			item.To = StatusAbandoned
		}
	} else if item.To != StatusAbandoned {
		item.To = StatusCompensated
	}
	intent.Status = item.To

	if uErr := r.provisions.UpdateIntent(ctx, intent); uErr != nil {
		r.logger.Error(fmt.Sprintf("reconcile: updating intent %s: %v", intent.ID, uErr), uErr)
		if item.Err == "" {
			item.Err = uErr.Error()
		}
	}
	if item.Err != "" {
		r.logger.Warn(fmt.Sprintf("reconcile: %s %s %q: %s", intent.Provider, intent.ID, intent.ResourceName, item.Err))
	}
	return item, true
}

// Run reconciles every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Reconcile(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Error(fmt.Sprintf("reconcile: %v", err), err)
				}
				continue
			}
			if report.Examined > 0 {
				r.logger.Info(fmt.Sprintf(
					"reconcile: examined %d intents, %d compensated, %d abandoned, %d failed",
					report.Examined, report.Compensated, report.Abandoned, report.Failed,
				))
			}
		}
	}
}
