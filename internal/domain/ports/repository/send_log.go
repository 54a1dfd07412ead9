package repository

import (
	"context"
	"time"

	"sms-relay/internal/domain/model"
)

// -----------------------------
// Send Log
// -----------------------------

type SendLogRepository interface {
	// Save records the outcome of one send request.
	Save(ctx context.Context, tx Tx, rec *model.SendRecord) error
	// ListRecent returns the newest records first, at most limit of them.
	ListRecent(ctx context.Context, tx Tx, limit int) ([]*model.SendRecord, error)
	// Prune deletes records created before the cutoff and reports how many.
	Prune(ctx context.Context, tx Tx, before time.Time) (int64, error)
}
