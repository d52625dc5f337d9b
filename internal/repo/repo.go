// Package repo persists plan periods, the goal event log and study logs.
package repo

import (
	"context"
	"errors"
	"time"

	"duotoeic/internal/ledger"
	"duotoeic/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Period is one planning week. Penalty is the text the period started with;
// later changes arrive as penalty_set events.
type Period struct {
	ID        string
	StartedAt time.Time
	Penalty   string
}

type Store interface {
	CreatePeriod(ctx context.Context, p Period) error
	// LatestPeriod returns the most recently started period or ErrNotFound.
	LatestPeriod(ctx context.Context) (Period, error)
	// AppendEvent assigns the next sequence number within the event's period.
	AppendEvent(ctx context.Context, ev ledger.Event) (ledger.Event, error)
	ListEvents(ctx context.Context, periodID string) ([]ledger.Event, error)

	AppendLog(ctx context.Context, entry models.StudyLog) error
	// ListLogs returns entries in insertion order.
	ListLogs(ctx context.Context) ([]models.StudyLog, error)
}
