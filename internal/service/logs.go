package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
	"duotoeic/internal/repo"
	"duotoeic/internal/studylog"
)

const recentScoreCount = 5

type LogInput struct {
	Date            string       `json:"date"`
	Skill           models.Skill `json:"skill"`
	DurationMinutes int          `json:"duration_minutes"`
	Score           *int         `json:"score"`
	Notes           string       `json:"notes"`
}

// AddLog records a study session for actor. A blank date means today (UTC).
func (s *Service) AddLog(ctx context.Context, actor models.UserID, in LogInput) (models.StudyLog, error) {
	now := s.Now()
	entry := models.StudyLog{
		ID:              s.NewID(),
		UserID:          actor,
		Date:            in.Date,
		Skill:           in.Skill,
		DurationMinutes: in.DurationMinutes,
		Score:           in.Score,
		Notes:           in.Notes,
		CreatedAt:       now,
	}
	if entry.Date == "" {
		entry.Date = now.Format(time.DateOnly)
	}
	if err := studylog.Validate(entry, s.Users.IDs()); err != nil {
		log.Printf("study log by %s rejected: %v", actor, err)
		return models.StudyLog{}, err
	}
	if err := s.Repo.AppendLog(ctx, entry); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return models.StudyLog{}, apperr.Wrap(apperr.CodeValidation, "duplicate study log id", err)
		}
		return models.StudyLog{}, fmt.Errorf("persist study log: %w", err)
	}
	return entry, nil
}

func (s *Service) Logs(ctx context.Context) (studylog.Store, error) {
	entries, err := s.Repo.ListLogs(ctx)
	if err != nil {
		return studylog.Store{}, fmt.Errorf("list study logs: %w", err)
	}
	return studylog.NewStore(entries...), nil
}

type Summary struct {
	Hours        []studylog.SkillHours `json:"hours"`
	RecentScores []models.StudyLog     `json:"recent_scores"`
	TotalMinutes map[models.UserID]int `json:"total_minutes"`
	Progress     []models.Progress     `json:"progress"`
}

// Summary is the dashboard: hours per skill and user, the latest mock test
// scores and this week's goal progress.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	store, err := s.Logs(ctx)
	if err != nil {
		return Summary{}, err
	}
	ids := s.Users.IDs()
	totals := store.TotalsByUser()
	for _, id := range ids {
		if _, ok := totals[id]; !ok {
			totals[id] = 0
		}
	}
	recent := store.RecentScores(recentScoreCount)
	if recent == nil {
		recent = []models.StudyLog{}
	}
	return Summary{
		Hours:        store.Hours(ids),
		RecentScores: recent,
		TotalMinutes: totals,
		Progress:     s.PlanView().Progress,
	}, nil
}
