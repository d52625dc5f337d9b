package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"duotoeic/internal/apperr"
	"duotoeic/internal/feedback"
	"duotoeic/internal/models"

	"golang.org/x/sync/semaphore"
)

type slotKey struct {
	kind string
	user models.UserID
}

// slots allows one in-flight graded request per kind and user.
type slots struct {
	mu   sync.Mutex
	sems map[slotKey]*semaphore.Weighted
}

func (s *slots) acquire(kind string, user models.UserID) (func(), error) {
	s.mu.Lock()
	if s.sems == nil {
		s.sems = make(map[slotKey]*semaphore.Weighted)
	}
	key := slotKey{kind: kind, user: user}
	sem, ok := s.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.sems[key] = sem
	}
	s.mu.Unlock()

	if !sem.TryAcquire(1) {
		return nil, apperr.New(apperr.CodeBusy, fmt.Sprintf("a %s check is already running", kind))
	}
	return func() { sem.Release(1) }, nil
}

// DailyTopic returns the topic of the current UTC day. Fallback topics are
// not cached so a later call can still get a generated one.
func (s *Service) DailyTopic(ctx context.Context) string {
	s.topicMu.Lock()
	defer s.topicMu.Unlock()

	day := s.Now().Format(time.DateOnly)
	if s.topicDay == day && s.topic != "" {
		return s.topic
	}
	topic := s.Coach.DailyTopic(ctx)
	if topic != feedback.FallbackTopic {
		s.topicDay, s.topic = day, topic
	}
	return topic
}

func (s *Service) SpeakingQuestion(ctx context.Context) string {
	return s.Coach.SpeakingQuestion(ctx)
}

func (s *Service) CheckWriting(ctx context.Context, actor models.UserID, topic, submission string) (models.WritingFeedback, error) {
	release, err := s.slots.acquire("writing", actor)
	if err != nil {
		return models.WritingFeedback{}, err
	}
	defer release()

	out, err := s.Coach.WritingFeedback(ctx, topic, submission)
	if err != nil {
		log.Printf("writing check for %s failed: %s: %v", actor, apperr.CodeOf(err), err)
		return models.WritingFeedback{}, err
	}
	return out, nil
}

func (s *Service) CheckSpeaking(ctx context.Context, actor models.UserID, question, transcript string) (models.SpeakingFeedback, error) {
	release, err := s.slots.acquire("speaking", actor)
	if err != nil {
		return models.SpeakingFeedback{}, err
	}
	defer release()

	out, err := s.Coach.SpeakingFeedback(ctx, question, transcript)
	if err != nil {
		log.Printf("speaking check for %s failed: %s: %v", actor, apperr.CodeOf(err), err)
		return models.SpeakingFeedback{}, err
	}
	return out, nil
}
