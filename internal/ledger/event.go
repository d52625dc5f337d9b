package ledger

import (
	"fmt"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
)

type EventKind string

const (
	EventPenaltySet          EventKind = "penalty_set"
	EventGoalAdded           EventKind = "goal_added"
	EventCompletionToggled   EventKind = "completion_toggled"
	EventVerificationToggled EventKind = "verification_toggled"
	EventGoalDeleted         EventKind = "goal_deleted"
)

// Event records one accepted mutation. Seq is assigned by the store.
type Event struct {
	PeriodID string        `json:"period_id"`
	Seq      int64         `json:"seq"`
	Kind     EventKind     `json:"kind"`
	Actor    models.UserID `json:"actor"`
	Owner    models.UserID `json:"owner,omitempty"`
	GoalID   string        `json:"goal_id,omitempty"`
	Text     string        `json:"text,omitempty"`
	At       time.Time     `json:"at"`
}

// Apply runs the operation an event describes.
func (l *Ledger) Apply(plan models.WeeklyPlan, ev Event) (models.WeeklyPlan, error) {
	switch ev.Kind {
	case EventPenaltySet:
		return l.SetPenalty(plan, ev.Actor, ev.Text)
	case EventGoalAdded:
		return l.AddGoal(plan, ev.Actor, ev.Owner, ev.GoalID, ev.Text)
	case EventCompletionToggled:
		return l.ToggleCompletion(plan, ev.Actor, ev.Owner, ev.GoalID)
	case EventVerificationToggled:
		return l.ToggleVerification(plan, ev.Actor, ev.Owner, ev.GoalID)
	case EventGoalDeleted:
		return l.DeleteGoal(plan, ev.Actor, ev.Owner, ev.GoalID)
	default:
		return plan, apperr.New(apperr.CodeValidation, fmt.Sprintf("unknown event kind %q", ev.Kind))
	}
}

// Replay folds a stored event stream into base. Events were accepted under
// the rules in force when they were written, so replay only enforces the
// ownership checks; a rejection means the stream is corrupt.
func (l *Ledger) Replay(base models.WeeklyPlan, events []Event) (models.WeeklyPlan, error) {
	relaxed := &Ledger{Users: l.Users}
	plan := base
	for _, ev := range events {
		next, err := relaxed.Apply(plan, ev)
		if err != nil {
			return plan, fmt.Errorf("replay %s event %d: %w", ev.PeriodID, ev.Seq, err)
		}
		plan = next
	}
	return plan, nil
}
