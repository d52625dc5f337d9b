// Package studylog keeps the append-only record of study sessions and the
// aggregates the dashboard charts are built from.
package studylog

import (
	"fmt"
	"strings"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
)

const (
	MinScore = 0
	MaxScore = 990
)

// Store is an immutable, append-only sequence of study logs.
type Store struct {
	entries []models.StudyLog
}

func NewStore(entries ...models.StudyLog) Store {
	return Store{entries: append([]models.StudyLog(nil), entries...)}
}

// Entries returns a copy of the logs in insertion order.
func (s Store) Entries() []models.StudyLog {
	return append([]models.StudyLog{}, s.entries...)
}

func (s Store) Len() int {
	return len(s.entries)
}

// Validate checks an entry against the data model. users lists the known
// user ids; an empty list skips the ownership check.
func Validate(entry models.StudyLog, users []models.UserID) error {
	if strings.TrimSpace(entry.ID) == "" {
		return validationErr("id required")
	}
	if len(users) > 0 && !contains(users, entry.UserID) {
		return validationErr("unknown user %q", entry.UserID)
	}
	if _, err := time.Parse(time.DateOnly, entry.Date); err != nil {
		return validationErr("date must be YYYY-MM-DD")
	}
	if !entry.Skill.Valid() {
		return validationErr("unknown skill %q", entry.Skill)
	}
	if entry.DurationMinutes <= 0 {
		return validationErr("duration must be positive")
	}
	if entry.Score != nil && (*entry.Score < MinScore || *entry.Score > MaxScore) {
		return validationErr("score must be between %d and %d", MinScore, MaxScore)
	}
	return nil
}

// Append returns a new store with entry added at the end.
func (s Store) Append(entry models.StudyLog, users []models.UserID) (Store, error) {
	if err := Validate(entry, users); err != nil {
		return s, err
	}
	next := make([]models.StudyLog, len(s.entries), len(s.entries)+1)
	copy(next, s.entries)
	return Store{entries: append(next, entry)}, nil
}

type SkillUser struct {
	Skill  models.Skill
	UserID models.UserID
}

// AggregateBySkillAndUser sums minutes per (skill, user). Pairs without
// activity are absent.
func (s Store) AggregateBySkillAndUser() map[SkillUser]int {
	totals := make(map[SkillUser]int)
	for _, e := range s.entries {
		totals[SkillUser{Skill: e.Skill, UserID: e.UserID}] += e.DurationMinutes
	}
	return totals
}

// SkillHours is one bar group of the hours chart.
type SkillHours struct {
	Skill models.Skill              `json:"skill"`
	Hours map[models.UserID]float64 `json:"hours"`
}

// Hours returns every skill in fixed order with hours per user, zero-filled.
func (s Store) Hours(users []models.UserID) []SkillHours {
	totals := s.AggregateBySkillAndUser()
	rows := make([]SkillHours, 0, len(models.Skills))
	for _, skill := range models.Skills {
		row := SkillHours{Skill: skill, Hours: make(map[models.UserID]float64, len(users))}
		for _, u := range users {
			row.Hours[u] = float64(totals[SkillUser{Skill: skill, UserID: u}]) / 60
		}
		rows = append(rows, row)
	}
	return rows
}

// RecentScores returns the last n entries carrying a mock test score.
func (s Store) RecentScores(n int) []models.StudyLog {
	var scored []models.StudyLog
	for _, e := range s.entries {
		if e.Score != nil {
			scored = append(scored, e)
		}
	}
	if n >= 0 && len(scored) > n {
		scored = scored[len(scored)-n:]
	}
	return scored
}

func (s Store) TotalsByUser() map[models.UserID]int {
	totals := make(map[models.UserID]int)
	for _, e := range s.entries {
		totals[e.UserID] += e.DurationMinutes
	}
	return totals
}

func contains(users []models.UserID, id models.UserID) bool {
	for _, u := range users {
		if u == id {
			return true
		}
	}
	return false
}

func validationErr(format string, args ...any) error {
	return apperr.New(apperr.CodeValidation, fmt.Sprintf(format, args...))
}
