package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/auth"
	"duotoeic/internal/config"
	"duotoeic/internal/ledger"
	"duotoeic/internal/models"
	"duotoeic/internal/repo"

	"github.com/google/uuid"
)

// Coach is the feedback backend used for coaching requests.
type Coach interface {
	WritingFeedback(ctx context.Context, topic, submission string) (models.WritingFeedback, error)
	SpeakingFeedback(ctx context.Context, question, transcript string) (models.SpeakingFeedback, error)
	DailyTopic(ctx context.Context) string
	SpeakingQuestion(ctx context.Context) string
}

type Service struct {
	Users    config.Users
	Ledger   *ledger.Ledger
	Repo     repo.Store
	Coach    Coach
	Auth     *auth.Manager
	TokenTTL time.Duration

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string

	mu   sync.Mutex
	plan models.WeeklyPlan

	topicMu  sync.Mutex
	topicDay string
	topic    string

	slots slots
}

func New(users config.Users, rules ledger.Rules, store repo.Store, coach Coach, authManager *auth.Manager) *Service {
	return &Service{
		Users:    users,
		Ledger:   ledger.New(users.IDs(), rules),
		Repo:     store,
		Coach:    coach,
		Auth:     authManager,
		TokenTTL: 7 * 24 * time.Hour,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
	}
}

// Start loads the active plan by replaying the latest period. When the store
// holds no period yet, week-1 is created, with demo data if seed is set.
func (s *Service) Start(ctx context.Context, seed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, err := s.Repo.LatestPeriod(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return s.bootstrap(ctx, seed)
	}
	if err != nil {
		return fmt.Errorf("load period: %w", err)
	}
	events, err := s.Repo.ListEvents(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	plan, err := s.Ledger.Replay(s.Ledger.NewPlan(period.ID, period.StartedAt, period.Penalty), events)
	if err != nil {
		return err
	}
	s.plan = plan
	log.Printf("plan %s restored from %d events", period.ID, len(events))
	return nil
}

// Plan returns the active plan.
func (s *Service) Plan() models.WeeklyPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

type PlanView struct {
	Plan     models.WeeklyPlan `json:"plan"`
	Progress []models.Progress `json:"progress"`
	Users    []models.User     `json:"users"`
}

// PlanView returns the plan with progress for each user in profile order.
func (s *Service) PlanView() PlanView {
	plan := s.Plan()
	view := PlanView{Plan: plan, Users: s.Users}
	for _, id := range s.Users.IDs() {
		view.Progress = append(view.Progress, ledger.Progress(plan, id))
	}
	return view
}

func (s *Service) SetPenalty(ctx context.Context, actor models.UserID, text string) (models.WeeklyPlan, error) {
	return s.apply(ctx, ledger.Event{Kind: ledger.EventPenaltySet, Actor: actor, Text: text})
}

// AddGoal appends a goal with a fresh id to owner's list.
func (s *Service) AddGoal(ctx context.Context, actor, owner models.UserID, text string) (models.WeeklyPlan, error) {
	return s.apply(ctx, ledger.Event{Kind: ledger.EventGoalAdded, Actor: actor, Owner: owner, GoalID: s.NewID(), Text: text})
}

func (s *Service) ToggleCompletion(ctx context.Context, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error) {
	return s.apply(ctx, ledger.Event{Kind: ledger.EventCompletionToggled, Actor: actor, Owner: owner, GoalID: goalID})
}

func (s *Service) ToggleVerification(ctx context.Context, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error) {
	return s.apply(ctx, ledger.Event{Kind: ledger.EventVerificationToggled, Actor: actor, Owner: owner, GoalID: goalID})
}

func (s *Service) DeleteGoal(ctx context.Context, actor, owner models.UserID, goalID string) (models.WeeklyPlan, error) {
	return s.apply(ctx, ledger.Event{Kind: ledger.EventGoalDeleted, Actor: actor, Owner: owner, GoalID: goalID})
}

// StartPeriod closes the active plan and opens an empty one. A blank penalty
// carries the current one over.
func (s *Service) StartPeriod(ctx context.Context, actor models.UserID, penalty string) (models.WeeklyPlan, error) {
	if _, ok := s.Users.Get(actor); !ok {
		return models.WeeklyPlan{}, apperr.New(apperr.CodePermission, fmt.Sprintf("unknown user %q", actor))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if penalty == "" {
		penalty = s.plan.Penalty
	}
	period := repo.Period{ID: s.NewID(), StartedAt: s.Now(), Penalty: penalty}
	if err := s.Repo.CreatePeriod(ctx, period); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return models.WeeklyPlan{}, apperr.Wrap(apperr.CodeStateInvariant, "period already exists", err)
		}
		return models.WeeklyPlan{}, fmt.Errorf("create period: %w", err)
	}
	log.Printf("plan %s closed by %s, period %s started", s.plan.ID, actor, period.ID)
	s.plan = s.Ledger.NewPlan(period.ID, period.StartedAt, period.Penalty)
	return s.plan, nil
}

// apply runs one ledger command against the active plan, persists the
// accepted event and publishes the result. Rejected commands change nothing.
func (s *Service) apply(ctx context.Context, ev ledger.Event) (models.WeeklyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.PeriodID = s.plan.ID
	ev.At = s.Now()
	next, err := s.Ledger.Apply(s.plan, ev)
	if err != nil {
		log.Printf("plan %s: %s by %s rejected: %s", ev.PeriodID, ev.Kind, ev.Actor, apperr.CodeOf(err))
		return s.plan, err
	}
	if _, err := s.Repo.AppendEvent(ctx, ev); err != nil {
		return s.plan, fmt.Errorf("persist %s: %w", ev.Kind, err)
	}
	s.plan = next
	return next, nil
}
