package ledger

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/models"
)

const (
	u1 models.UserID = "user1"
	u2 models.UserID = "user2"
)

func newTestLedger(rules Rules) *Ledger {
	return New([]models.UserID{u1, u2}, rules)
}

func planWithGoal(t *testing.T, l *Ledger) models.WeeklyPlan {
	t.Helper()
	plan := l.NewPlan("week-1", time.Date(2023, 10, 23, 0, 0, 0, 0, time.UTC), "Buy Milk Tea")
	plan, err := l.AddGoal(plan, u1, u1, "101", "Learn 20 Vocab words")
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	return plan
}

func goal(t *testing.T, plan models.WeeklyPlan, owner models.UserID, id string) models.Goal {
	t.Helper()
	for _, g := range plan.Goals[owner] {
		if g.ID == id {
			return g
		}
	}
	t.Fatalf("goal %s not found for %s", id, owner)
	return models.Goal{}
}

func TestVerificationScenario(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)

	plan, err := l.ToggleCompletion(plan, u1, u1, "101")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if g := goal(t, plan, u1, "101"); !g.IsCompleted || g.IsVerified {
		t.Fatalf("expected completed and unverified, got %+v", g)
	}

	plan, err = l.ToggleVerification(plan, u2, u1, "101")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if g := goal(t, plan, u1, "101"); !g.IsVerified {
		t.Fatalf("expected verified, got %+v", g)
	}

	plan, err = l.ToggleCompletion(plan, u1, u1, "101")
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if g := goal(t, plan, u1, "101"); g.IsCompleted || g.IsVerified {
		t.Fatalf("expected verification reset, got %+v", g)
	}
}

func TestSelfVerificationRejected(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	plan, _ = l.ToggleCompletion(plan, u1, u1, "101")

	next, err := l.ToggleVerification(plan, u1, u1, "101")
	if !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if !reflect.DeepEqual(next, plan) {
		t.Fatalf("plan changed on rejected verification")
	}
}

func TestToggleCompletionAlwaysClearsVerification(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	// verified while incomplete is allowed under the default rules
	plan, err := l.ToggleVerification(plan, u2, u1, "101")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	for i := 0; i < 4; i++ {
		before := goal(t, plan, u1, "101")
		plan, err = l.ToggleCompletion(plan, u1, u1, "101")
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		after := goal(t, plan, u1, "101")
		if after.IsCompleted == before.IsCompleted {
			t.Fatalf("toggle %d did not flip completion", i)
		}
		if after.IsVerified {
			t.Fatalf("toggle %d left goal verified", i)
		}
	}
}

func TestToggleCompletionByPartnerRejected(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	next, err := l.ToggleCompletion(plan, u2, u1, "101")
	if !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if goal(t, next, u1, "101").IsCompleted {
		t.Fatalf("partner toggled completion")
	}
}

func TestLockVerified(t *testing.T) {
	l := newTestLedger(Rules{LockVerified: true})
	plan := planWithGoal(t, l)
	plan, _ = l.ToggleCompletion(plan, u1, u1, "101")
	plan, _ = l.ToggleVerification(plan, u2, u1, "101")

	_, err := l.ToggleCompletion(plan, u1, u1, "101")
	if !errors.Is(err, apperr.ErrStateInvariant) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestRequireCompletedToVerify(t *testing.T) {
	l := newTestLedger(Rules{RequireCompletedToVerify: true})
	plan := planWithGoal(t, l)

	if _, err := l.ToggleVerification(plan, u2, u1, "101"); !errors.Is(err, apperr.ErrStateInvariant) {
		t.Fatalf("expected state error, got %v", err)
	}
	plan, _ = l.ToggleCompletion(plan, u1, u1, "101")
	plan, err := l.ToggleVerification(plan, u2, u1, "101")
	if err != nil {
		t.Fatalf("verify completed goal: %v", err)
	}
	plan, err = l.ToggleVerification(plan, u2, u1, "101")
	if err != nil {
		t.Fatalf("undo verification: %v", err)
	}
	if goal(t, plan, u1, "101").IsVerified {
		t.Fatalf("expected verification undone")
	}
}

func TestAddGoalRejectsBlankText(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	for _, text := range []string{"", "   ", "\t\n"} {
		next, err := l.AddGoal(plan, u1, u1, "x", text)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("text %q: expected validation error, got %v", text, err)
		}
		if len(next.Goals[u1]) != 1 {
			t.Fatalf("text %q: goal count changed", text)
		}
	}
}

func TestAddGoalOwnershipAndOrder(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)

	if _, err := l.AddGoal(plan, u2, u1, "102", "Sneaky"); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := l.AddGoal(plan, u1, u1, "101", "Duplicate"); !errors.Is(err, apperr.ErrStateInvariant) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	plan, err := l.AddGoal(plan, u1, u1, "102", "  Do 1 Listening Test ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got := plan.Goals[u1]
	if len(got) != 2 || got[0].ID != "101" || got[1].ID != "102" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Text != "Do 1 Listening Test" {
		t.Fatalf("expected trimmed text, got %q", got[1].Text)
	}
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	plan, _ = l.AddGoal(plan, u1, u1, "102", "Second")
	snapshot := clone(plan)

	_, _ = l.ToggleCompletion(plan, u1, u1, "101")
	_, _ = l.ToggleVerification(plan, u2, u1, "102")
	_, _ = l.DeleteGoal(plan, u1, u1, "101")
	_, _ = l.SetPenalty(plan, u2, "Cook dinner")

	if !reflect.DeepEqual(plan, snapshot) {
		t.Fatalf("input plan was mutated")
	}
}

func TestDeleteGoal(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	plan, _ = l.AddGoal(plan, u1, u1, "102", "Second")
	plan, _ = l.AddGoal(plan, u1, u1, "103", "Third")

	if _, err := l.DeleteGoal(plan, u2, u1, "102"); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if _, err := l.DeleteGoal(plan, u1, u1, "nope"); !errors.Is(err, apperr.ErrStateInvariant) {
		t.Fatalf("expected state error, got %v", err)
	}
	plan, err := l.DeleteGoal(plan, u1, u1, "102")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	got := plan.Goals[u1]
	if len(got) != 2 || got[0].ID != "101" || got[1].ID != "103" {
		t.Fatalf("unexpected goals after delete: %+v", got)
	}
}

func TestDeleteVerifiedGoal(t *testing.T) {
	plan := planWithGoal(t, newTestLedger(Rules{}))
	plan, _ = newTestLedger(Rules{}).ToggleVerification(plan, u2, u1, "101")

	if _, err := newTestLedger(Rules{}).DeleteGoal(plan, u1, u1, "101"); err != nil {
		t.Fatalf("default rules should allow delete: %v", err)
	}
	strict := newTestLedger(Rules{ForbidDeleteVerified: true})
	if _, err := strict.DeleteGoal(plan, u1, u1, "101"); !errors.Is(err, apperr.ErrStateInvariant) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestSetPenalty(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := planWithGoal(t, l)
	plan, err := l.SetPenalty(plan, u2, "")
	if err != nil || plan.Penalty != "" {
		t.Fatalf("expected empty penalty, got %q err=%v", plan.Penalty, err)
	}
	if _, err := l.SetPenalty(plan, "mallory", "x"); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected permission error for unknown user, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	l := newTestLedger(Rules{})
	plan := l.NewPlan("week-1", time.Now(), "")

	p := Progress(plan, u1)
	if p.Percent != 0 || p.Total != 0 || p.AtRisk {
		t.Fatalf("empty progress: %+v", p)
	}

	plan, _ = l.AddGoal(plan, u1, u1, "a", "A")
	plan, _ = l.AddGoal(plan, u1, u1, "b", "B")
	plan, _ = l.ToggleCompletion(plan, u1, u1, "a")
	plan, _ = l.ToggleVerification(plan, u2, u1, "a")
	plan, _ = l.ToggleCompletion(plan, u1, u1, "b")

	p = Progress(plan, u1)
	if p.Verified != 1 || p.Completed != 2 || p.Total != 2 || p.Percent != 50 || !p.AtRisk {
		t.Fatalf("unexpected progress: %+v", p)
	}

	plan, _ = l.ToggleVerification(plan, u2, u1, "b")
	if p = Progress(plan, u1); p.Percent != 100 || p.AtRisk {
		t.Fatalf("expected complete progress: %+v", p)
	}
}

func TestReplay(t *testing.T) {
	l := newTestLedger(Rules{})
	at := time.Now()
	events := []Event{
		{PeriodID: "week-1", Seq: 1, Kind: EventGoalAdded, Actor: u1, Owner: u1, GoalID: "101", Text: "Learn 20 Vocab words", At: at},
		{PeriodID: "week-1", Seq: 2, Kind: EventCompletionToggled, Actor: u1, Owner: u1, GoalID: "101", At: at},
		{PeriodID: "week-1", Seq: 3, Kind: EventVerificationToggled, Actor: u2, Owner: u1, GoalID: "101", At: at},
		{PeriodID: "week-1", Seq: 4, Kind: EventPenaltySet, Actor: u2, Text: "Buy Milk Tea", At: at},
	}
	plan, err := l.Replay(l.NewPlan("week-1", at, ""), events)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if g := goal(t, plan, u1, "101"); !g.IsCompleted || !g.IsVerified {
		t.Fatalf("unexpected goal after replay: %+v", g)
	}
	if plan.Penalty != "Buy Milk Tea" {
		t.Fatalf("unexpected penalty %q", plan.Penalty)
	}
	if err := l.Validate(plan); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bad := append(events, Event{PeriodID: "week-1", Seq: 5, Kind: EventVerificationToggled, Actor: u1, Owner: u1, GoalID: "101"})
	if _, err := l.Replay(l.NewPlan("week-1", at, ""), bad); !errors.Is(err, apperr.ErrPermission) {
		t.Fatalf("expected replay to surface permission error, got %v", err)
	}
}

func TestReplayIgnoresStricterRules(t *testing.T) {
	strict := newTestLedger(Rules{RequireCompletedToVerify: true})
	events := []Event{
		{Seq: 1, Kind: EventGoalAdded, Actor: u1, Owner: u1, GoalID: "101", Text: "A"},
		{Seq: 2, Kind: EventVerificationToggled, Actor: u2, Owner: u1, GoalID: "101"},
	}
	plan, err := strict.Replay(strict.NewPlan("week-1", time.Now(), ""), events)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !goal(t, plan, u1, "101").IsVerified {
		t.Fatalf("expected historic verification to survive replay")
	}
}
