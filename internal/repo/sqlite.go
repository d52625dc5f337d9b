package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"duotoeic/internal/ledger"
	"duotoeic/internal/models"
)

// SQLite stores timestamps as unix nanoseconds.
type SQLite struct {
	DB *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db}
}

func (r *SQLite) CreatePeriod(ctx context.Context, p Period) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO plan_periods (id, started_at, penalty) VALUES (?, ?, ?)`, p.ID, p.StartedAt.UnixNano(), p.Penalty)
	return mapSQLiteError(err)
}

func (r *SQLite) LatestPeriod(ctx context.Context) (Period, error) {
	var p Period
	var started int64
	err := r.DB.QueryRowContext(ctx, `SELECT id, started_at, penalty FROM plan_periods ORDER BY started_at DESC, id DESC LIMIT 1`).Scan(&p.ID, &started, &p.Penalty)
	if errors.Is(err, sql.ErrNoRows) {
		return Period{}, ErrNotFound
	}
	if err != nil {
		return Period{}, err
	}
	p.StartedAt = time.Unix(0, started).UTC()
	return p, nil
}

func (r *SQLite) AppendEvent(ctx context.Context, ev ledger.Event) (ledger.Event, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	err := r.DB.QueryRowContext(ctx, `INSERT INTO plan_events (period_id, seq, kind, actor, owner, goal_id, text, at)
		VALUES (?1, COALESCE((SELECT MAX(seq) FROM plan_events WHERE period_id=?1), 0) + 1, ?2, ?3, ?4, ?5, ?6, ?7)
		RETURNING seq`,
		ev.PeriodID, string(ev.Kind), string(ev.Actor), string(ev.Owner), ev.GoalID, ev.Text, ev.At.UnixNano()).Scan(&ev.Seq)
	if err != nil {
		return ledger.Event{}, mapSQLiteError(err)
	}
	return ev, nil
}

func (r *SQLite) ListEvents(ctx context.Context, periodID string) ([]ledger.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT period_id, seq, kind, actor, owner, goal_id, text, at
		FROM plan_events WHERE period_id=? ORDER BY seq`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []ledger.Event
	for rows.Next() {
		var ev ledger.Event
		var kind, actor, owner string
		var at int64
		if err := rows.Scan(&ev.PeriodID, &ev.Seq, &kind, &actor, &owner, &ev.GoalID, &ev.Text, &at); err != nil {
			return nil, err
		}
		ev.Kind = ledger.EventKind(kind)
		ev.Actor = models.UserID(actor)
		ev.Owner = models.UserID(owner)
		ev.At = time.Unix(0, at).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *SQLite) AppendLog(ctx context.Context, entry models.StudyLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var score sql.NullInt64
	if entry.Score != nil {
		score = sql.NullInt64{Int64: int64(*entry.Score), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO study_logs (id, user_id, date, skill, duration_minutes, score, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.UserID), entry.Date, string(entry.Skill), entry.DurationMinutes, score, entry.Notes, entry.CreatedAt.UnixNano())
	return mapSQLiteError(err)
}

func (r *SQLite) ListLogs(ctx context.Context) ([]models.StudyLog, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, user_id, date, skill, duration_minutes, score, notes, created_at
		FROM study_logs ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []models.StudyLog
	for rows.Next() {
		var entry models.StudyLog
		var userID, skill string
		var score sql.NullInt64
		var created int64
		if err := rows.Scan(&entry.ID, &userID, &entry.Date, &skill, &entry.DurationMinutes, &score, &entry.Notes, &created); err != nil {
			return nil, err
		}
		entry.UserID = models.UserID(userID)
		entry.Skill = models.Skill(skill)
		if score.Valid {
			v := int(score.Int64)
			entry.Score = &v
		}
		entry.CreatedAt = time.Unix(0, created).UTC()
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// mapSQLiteError classifies constraint failures by message text.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"):
		return ErrConflict
	case strings.Contains(msg, "foreign key constraint failed"):
		return ErrNotFound
	}
	return err
}
