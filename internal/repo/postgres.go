package repo

import (
	"context"
	"errors"
	"time"

	"duotoeic/internal/ledger"
	"duotoeic/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

func (r *Postgres) CreatePeriod(ctx context.Context, p Period) error {
	_, err := r.Pool.Exec(ctx, `INSERT INTO plan_periods (id, started_at, penalty) VALUES ($1, $2, $3)`, p.ID, p.StartedAt.UTC(), p.Penalty)
	return mapPgError(err)
}

func (r *Postgres) LatestPeriod(ctx context.Context) (Period, error) {
	var p Period
	err := r.Pool.QueryRow(ctx, `SELECT id, started_at, penalty FROM plan_periods ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&p.ID, &p.StartedAt, &p.Penalty)
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, ErrNotFound
	}
	return p, err
}

func (r *Postgres) AppendEvent(ctx context.Context, ev ledger.Event) (ledger.Event, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	err := r.Pool.QueryRow(ctx, `INSERT INTO plan_events (period_id, seq, kind, actor, owner, goal_id, text, at)
		VALUES ($1, COALESCE((SELECT MAX(seq) FROM plan_events WHERE period_id=$1), 0) + 1, $2, $3, $4, $5, $6, $7)
		RETURNING seq`,
		ev.PeriodID, string(ev.Kind), string(ev.Actor), string(ev.Owner), ev.GoalID, ev.Text, ev.At.UTC()).Scan(&ev.Seq)
	if err != nil {
		return ledger.Event{}, mapPgError(err)
	}
	return ev, nil
}

func (r *Postgres) ListEvents(ctx context.Context, periodID string) ([]ledger.Event, error) {
	rows, err := r.Pool.Query(ctx, `SELECT period_id, seq, kind, actor, owner, goal_id, text, at
		FROM plan_events WHERE period_id=$1 ORDER BY seq`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []ledger.Event
	for rows.Next() {
		var ev ledger.Event
		var kind, actor, owner string
		if err := rows.Scan(&ev.PeriodID, &ev.Seq, &kind, &actor, &owner, &ev.GoalID, &ev.Text, &ev.At); err != nil {
			return nil, err
		}
		ev.Kind = ledger.EventKind(kind)
		ev.Actor = models.UserID(actor)
		ev.Owner = models.UserID(owner)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *Postgres) AppendLog(ctx context.Context, entry models.StudyLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.Pool.Exec(ctx, `INSERT INTO study_logs (id, user_id, date, skill, duration_minutes, score, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, string(entry.UserID), entry.Date, string(entry.Skill), entry.DurationMinutes, entry.Score, entry.Notes, entry.CreatedAt.UTC())
	return mapPgError(err)
}

func (r *Postgres) ListLogs(ctx context.Context) ([]models.StudyLog, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, user_id, date, skill, duration_minutes, score, notes, created_at
		FROM study_logs ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []models.StudyLog
	for rows.Next() {
		var entry models.StudyLog
		var userID, skill string
		if err := rows.Scan(&entry.ID, &userID, &entry.Date, &skill, &entry.DurationMinutes, &entry.Score, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.UserID = models.UserID(userID)
		entry.Skill = models.Skill(skill)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return ErrNotFound
		}
	}
	return err
}
