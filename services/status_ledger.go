package services

import (
	"context"

	"permit-portal-api/models"
	"permit-portal-api/repository"
)

// StatusLedger is the append-only status history of each submission.
type StatusLedger struct {
	records repository.RecordStore
}

func NewStatusLedger(records repository.RecordStore) *StatusLedger {
	return &StatusLedger{records: records}
}

// Append writes entry and fills its HistoryID.
func (l *StatusLedger) Append(ctx context.Context, entry *models.StatusHistoryEntry) error {
	if !entry.StatusCode.Valid() {
		return invalidTransition("unknown status code %d", int(entry.StatusCode))
	}
	if err := l.records.AppendStatusHistory(ctx, entry); err != nil {
		return persistenceError("append status history", err)
	}
	return nil
}

// List returns the history oldest first.
func (l *StatusLedger) List(ctx context.Context, submissionID int) ([]models.StatusHistoryEntry, error) {
	entries, err := l.records.ListStatusHistory(ctx, submissionID)
	if err != nil {
		return nil, persistenceError("list status history", err)
	}
	return entries, nil
}

// Current folds the ledger: the latest entry wins, an empty ledger means Submitted.
func (l *StatusLedger) Current(ctx context.Context, submissionID int) (models.StatusCode, error) {
	latest, err := l.records.LatestStatusHistory(ctx, submissionID)
	if err != nil {
		return 0, persistenceError("load latest status", err)
	}
	if latest == nil {
		return models.StatusSubmitted, nil
	}
	return latest.StatusCode, nil
}
