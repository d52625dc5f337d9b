// Package ledger implements the weekly battle plan: goals that each user
// sets for themselves and that only the partner can verify.
//
// Every operation takes the current plan and returns a new one. The input
// plan is never modified, so callers can publish the result atomically or
// drop it when persisting fails.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
)

// Rules tightens the behaviour of the ledger. With the zero value verified
// goals can still be toggled and deleted by their owner, and incomplete
// goals can be verified.
type Rules struct {
	LockVerified             bool
	RequireCompletedToVerify bool
	ForbidDeleteVerified     bool
}

// Ledger applies operations under a fixed set of participants and rules.
type Ledger struct {
	Users []models.UserID
	Rules Rules
}

func New(users []models.UserID, rules Rules) *Ledger {
	return &Ledger{Users: users, Rules: rules}
}

// NewPlan returns an empty plan with one goal sequence per participant.
func (l *Ledger) NewPlan(periodID string, start time.Time, penalty string) models.WeeklyPlan {
	goals := make(map[models.UserID][]models.Goal, len(l.Users))
	for _, id := range l.Users {
		goals[id] = []models.Goal{}
	}
	return models.WeeklyPlan{ID: periodID, WeekStart: start, Penalty: penalty, Goals: goals}
}

func (l *Ledger) SetPenalty(plan models.WeeklyPlan, actor models.UserID, text string) (models.WeeklyPlan, error) {
	if !l.isParticipant(actor) {
		return plan, permissionErr("unknown user %q", actor)
	}
	next := clone(plan)
	next.Penalty = text
	return next, nil
}

func (l *Ledger) AddGoal(plan models.WeeklyPlan, actor, owner models.UserID, goalID, text string) (models.WeeklyPlan, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return plan, apperr.New(apperr.CodeValidation, "goal text required")
	}
	if !l.isParticipant(owner) {
		return plan, permissionErr("unknown user %q", owner)
	}
	if actor != owner {
		return plan, permissionErr("only %s can add goals to their list", owner)
	}
	if goalID == "" {
		return plan, apperr.New(apperr.CodeValidation, "goal id required")
	}
	if hasGoal(plan, goalID) {
		return plan, stateErr("goal %s already exists", goalID)
	}
	next := clone(plan)
	next.Goals[owner] = append(next.Goals[owner], models.Goal{ID: goalID, Text: text})
	return next, nil
}

// ToggleCompletion flips the owner's done flag. Any verification is cleared
// because it no longer matches the owner's claim.
func (l *Ledger) ToggleCompletion(plan models.WeeklyPlan, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error) {
	if actor != owner {
		return plan, permissionErr("only %s can mark their goals done", owner)
	}
	idx, err := locate(plan, owner, goalID)
	if err != nil {
		return plan, err
	}
	if l.Rules.LockVerified && plan.Goals[owner][idx].IsVerified {
		return plan, stateErr("goal %s is verified", goalID)
	}
	next := clone(plan)
	g := &next.Goals[owner][idx]
	g.IsCompleted = !g.IsCompleted
	g.IsVerified = false
	return next, nil
}

// ToggleVerification flips the partner's sign-off. Nobody verifies their own goals.
func (l *Ledger) ToggleVerification(plan models.WeeklyPlan, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error) {
	if actor == owner {
		return plan, permissionErr("%s cannot verify their own goal", actor)
	}
	if !l.isParticipant(actor) {
		return plan, permissionErr("unknown user %q", actor)
	}
	idx, err := locate(plan, owner, goalID)
	if err != nil {
		return plan, err
	}
	current := plan.Goals[owner][idx]
	if l.Rules.RequireCompletedToVerify && !current.IsVerified && !current.IsCompleted {
		return plan, stateErr("goal %s is not completed", goalID)
	}
	next := clone(plan)
	next.Goals[owner][idx].IsVerified = !current.IsVerified
	return next, nil
}

func (l *Ledger) DeleteGoal(plan models.WeeklyPlan, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error) {
	if actor != owner {
		return plan, permissionErr("only %s can delete their goals", owner)
	}
	idx, err := locate(plan, owner, goalID)
	if err != nil {
		return plan, err
	}
	if l.Rules.ForbidDeleteVerified && plan.Goals[owner][idx].IsVerified {
		return plan, stateErr("goal %s is verified", goalID)
	}
	next := clone(plan)
	goals := next.Goals[owner]
	next.Goals[owner] = append(goals[:idx], goals[idx+1:]...)
	return next, nil
}

// Progress counts verified goals only; completed-but-unchecked goals still
// put the user at risk of the penalty.
func Progress(plan models.WeeklyPlan, user models.UserID) models.Progress {
	p := models.Progress{UserID: user}
	for _, g := range plan.Goals[user] {
		p.Total++
		if g.IsCompleted {
			p.Completed++
		}
		if g.IsVerified {
			p.Verified++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Verified) / float64(p.Total) * 100
	}
	p.AtRisk = p.Total > 0 && p.Verified < p.Total
	return p
}

// Validate checks that the plan only holds sequences for participants and
// that goal ids are unique across the plan.
func (l *Ledger) Validate(plan models.WeeklyPlan) error {
	seen := make(map[string]bool)
	for owner, goals := range plan.Goals {
		if !l.isParticipant(owner) {
			return stateErr("goals stored under unknown user %q", owner)
		}
		for _, g := range goals {
			if seen[g.ID] {
				return stateErr("duplicate goal id %s", g.ID)
			}
			seen[g.ID] = true
		}
	}
	return nil
}

func (l *Ledger) isParticipant(id models.UserID) bool {
	for _, u := range l.Users {
		if u == id {
			return true
		}
	}
	return false
}

func locate(plan models.WeeklyPlan, owner models.UserID, goalID string) (int, error) {
	for i, g := range plan.Goals[owner] {
		if g.ID == goalID {
			return i, nil
		}
	}
	return -1, stateErr("goal %s not found for %s", goalID, owner)
}

func hasGoal(plan models.WeeklyPlan, goalID string) bool {
	for _, goals := range plan.Goals {
		for _, g := range goals {
			if g.ID == goalID {
				return true
			}
		}
	}
	return false
}

func clone(plan models.WeeklyPlan) models.WeeklyPlan {
	next := plan
	next.Goals = make(map[models.UserID][]models.Goal, len(plan.Goals))
	for owner, goals := range plan.Goals {
		cp := make([]models.Goal, len(goals))
		copy(cp, goals)
		next.Goals[owner] = cp
	}
	return next
}

func permissionErr(format string, args ...any) error {
	return apperr.New(apperr.CodePermission, fmt.Sprintf(format, args...))
}

func stateErr(format string, args ...any) error {
	return apperr.New(apperr.CodeStateInvariant, fmt.Sprintf(format, args...))
}
