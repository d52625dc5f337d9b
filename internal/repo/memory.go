package repo

import (
	"context"
	"sync"

	"duotoeic/internal/ledger"
	"duotoeic/internal/models"
)

type Memory struct {
	mu      sync.RWMutex
	periods []Period
	events  map[string][]ledger.Event // periodID -> events
	logs    []models.StudyLog
	logIDs  map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		events: make(map[string][]ledger.Event),
		logIDs: make(map[string]struct{}),
	}
}

func (m *Memory) CreatePeriod(ctx context.Context, p Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.periods {
		if existing.ID == p.ID {
			return ErrConflict
		}
	}
	m.periods = append(m.periods, p)
	return nil
}

func (m *Memory) LatestPeriod(ctx context.Context) (Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.periods) == 0 {
		return Period{}, ErrNotFound
	}
	latest := m.periods[0]
	for _, p := range m.periods[1:] {
		if !p.StartedAt.Before(latest.StartedAt) {
			latest = p
		}
	}
	return latest, nil
}

func (m *Memory) AppendEvent(ctx context.Context, ev ledger.Event) (ledger.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasPeriod(ev.PeriodID) {
		return ledger.Event{}, ErrNotFound
	}
	ev.Seq = int64(len(m.events[ev.PeriodID]) + 1)
	m.events[ev.PeriodID] = append(m.events[ev.PeriodID], ev)
	return ev, nil
}

func (m *Memory) ListEvents(ctx context.Context, periodID string) ([]ledger.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.events[periodID]
	out := make([]ledger.Event, len(events))
	copy(out, events)
	return out, nil
}

func (m *Memory) AppendLog(ctx context.Context, entry models.StudyLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.logIDs[entry.ID]; exists {
		return ErrConflict
	}
	m.logIDs[entry.ID] = struct{}{}
	m.logs = append(m.logs, entry)
	return nil
}

func (m *Memory) ListLogs(ctx context.Context) ([]models.StudyLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.StudyLog, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

func (m *Memory) hasPeriod(id string) bool {
	for _, p := range m.periods {
		if p.ID == id {
			return true
		}
	}
	return false
}
