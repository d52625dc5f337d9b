package service

import (
	"context"
	"fmt"
	"log"

	"duotoeic/internal/ledger"
	"duotoeic/internal/models"
	"duotoeic/internal/repo"
)

const (
	seedPeriodID = "week-1"
	seedPenalty  = "Buy Milk Tea 🧋"
)

func intPtr(v int) *int { return &v }

// bootstrap creates the first period. Callers hold s.mu.
func (s *Service) bootstrap(ctx context.Context, seed bool) error {
	penalty := ""
	if seed {
		penalty = seedPenalty
	}
	period := repo.Period{ID: seedPeriodID, StartedAt: s.Now(), Penalty: penalty}
	if err := s.Repo.CreatePeriod(ctx, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	s.plan = s.Ledger.NewPlan(period.ID, period.StartedAt, period.Penalty)
	if !seed {
		return nil
	}

	ids := s.Users.IDs()
	first, second := ids[0], ids[1]
	events := []ledger.Event{
		{Kind: ledger.EventGoalAdded, Actor: first, Owner: first, GoalID: "101", Text: "Learn 20 Vocab words"},
		{Kind: ledger.EventGoalAdded, Actor: first, Owner: first, GoalID: "102", Text: "Do 1 Listening Test"},
		{Kind: ledger.EventCompletionToggled, Actor: first, Owner: first, GoalID: "102"},
		{Kind: ledger.EventGoalAdded, Actor: second, Owner: second, GoalID: "201", Text: "Write 1 Email"},
	}
	for _, ev := range events {
		ev.PeriodID = period.ID
		ev.At = period.StartedAt
		next, err := s.Ledger.Apply(s.plan, ev)
		if err != nil {
			return fmt.Errorf("seed %s: %w", ev.Kind, err)
		}
		if _, err := s.Repo.AppendEvent(ctx, ev); err != nil {
			return fmt.Errorf("seed %s: %w", ev.Kind, err)
		}
		s.plan = next
	}

	existing, err := s.Repo.ListLogs(ctx)
	if err != nil {
		return fmt.Errorf("seed logs: %w", err)
	}
	if len(existing) == 0 {
		logs := []models.StudyLog{
			{ID: "1", UserID: first, Date: "2023-10-25", Skill: models.SkillListening, DurationMinutes: 60, Score: intPtr(650)},
			{ID: "2", UserID: second, Date: "2023-10-25", Skill: models.SkillReading, DurationMinutes: 45},
			{ID: "3", UserID: first, Date: "2023-10-26", Skill: models.SkillSpeaking, DurationMinutes: 30},
			{ID: "4", UserID: second, Date: "2023-10-26", Skill: models.SkillWriting, DurationMinutes: 45},
			{ID: "5", UserID: first, Date: "2023-10-27", Skill: models.SkillReading, DurationMinutes: 90, Score: intPtr(700)},
		}
		for _, entry := range logs {
			entry.CreatedAt = period.StartedAt
			if err := s.Repo.AppendLog(ctx, entry); err != nil {
				return fmt.Errorf("seed log %s: %w", entry.ID, err)
			}
		}
	}
	log.Printf("plan %s seeded with demo data", period.ID)
	return nil
}
