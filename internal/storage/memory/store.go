// Package memory is a process-local storage backend used by tests and by
// the ":memory:" database setting.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

type Store struct {
	mu          sync.RWMutex
	habits      map[int64]models.Habit
	completions map[int64]models.CompletionRecord
	settings    map[string]string

	nextHabitID      int64
	nextCompletionID int64
}

func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.habits = make(map[int64]models.Habit)
	s.completions = make(map[int64]models.CompletionRecord)
	s.settings = make(map[string]string)
}

func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.habits == nil {
		s.reset()
	}
	return nil
}

func (s *Store) Load() error  { return s.Init() }
func (s *Store) Close() error { return nil }

func (s *Store) GetConfigPath() string {
	return constants.MemoryConfig
}

func (s *Store) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	if err := ctx.Err(); err != nil {
		return models.Habit{}, derrors.StoreFailure("get habit", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.habits[id]
	if !ok {
		return models.Habit{}, derrors.NotFound("habit %d", id)
	}
	return h, nil
}

func (s *Store) listHabits(ctx context.Context, op string, keep func(models.Habit) bool) ([]models.Habit, error) {
	if err := ctx.Err(); err != nil {
		return nil, derrors.StoreFailure(op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Habit
	for _, h := range s.habits {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetActiveHabits(ctx context.Context) ([]models.Habit, error) {
	return s.listHabits(ctx, "list active habits", func(h models.Habit) bool { return h.Active })
}

func (s *Store) GetAllHabits(ctx context.Context) ([]models.Habit, error) {
	return s.listHabits(ctx, "list habits", func(models.Habit) bool { return true })
}

func (s *Store) InsertHabit(ctx context.Context, h models.Habit) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, derrors.StoreFailure("insert habit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHabitID++
	h.ID = s.nextHabitID
	s.habits[h.ID] = h
	return h.ID, nil
}

func (s *Store) UpdateHabit(ctx context.Context, h models.Habit) error {
	return s.mutateHabit(ctx, "update habit", h.ID, func(cur *models.Habit) {
		*cur = h
	})
}

func (s *Store) DeleteHabit(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return derrors.StoreFailure("delete habit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[id]; !ok {
		return derrors.NotFound("habit %d", id)
	}
	delete(s.habits, id)
	return nil
}

func (s *Store) IncrementTotalCompletions(ctx context.Context, id int64, delta int) error {
	return s.mutateHabit(ctx, "increment total completions", id, func(h *models.Habit) {
		h.TotalCompletions = max(0, h.TotalCompletions+delta)
	})
}

func (s *Store) SetStreakFields(ctx context.Context, id int64, current, longest int) error {
	return s.mutateHabit(ctx, "set streak fields", id, func(h *models.Habit) {
		h.CurrentStreak = current
		h.LongestStreak = max(h.LongestStreak, longest)
	})
}

func (s *Store) RepairTotalCompletions(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, derrors.StoreFailure("repair total completions", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return false, nil
	}
	n := 0
	for _, r := range s.completions {
		if r.HabitID == id {
			n++
		}
	}
	if h.TotalCompletions >= n {
		return false, nil
	}
	h.TotalCompletions = n
	s.habits[id] = h
	return true, nil
}

func (s *Store) mutateHabit(ctx context.Context, op string, id int64, fn func(*models.Habit)) error {
	if err := ctx.Err(); err != nil {
		return derrors.StoreFailure(op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[id]
	if !ok {
		return derrors.NotFound("habit %d", id)
	}
	fn(&h)
	s.habits[id] = h
	return nil
}

func (s *Store) DeactivateCategory(ctx context.Context, category string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, derrors.StoreFailure("deactivate category", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for id, h := range s.habits {
		if h.Category == category && h.Active {
			h.Active = false
			h.UpdatedAt = now
			s.habits[id] = h
			n++
		}
	}
	return n, nil
}

func (s *Store) HabitIDsInCategory(ctx context.Context, category string) ([]int64, error) {
	habits, err := s.listHabits(ctx, "list category", func(h models.Habit) bool { return h.Category == category })
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(habits))
	for _, h := range habits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	habits, err := s.GetActiveHabits(ctx)
	return len(habits), err
}

func (s *Store) CountTotal(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, derrors.StoreFailure("count habits", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.habits), nil
}

// DeleteHabitCascade removes a habit and its completions under one lock.
func (s *Store) DeleteHabitCascade(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return derrors.StoreFailure("delete habit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[id]; !ok {
		return derrors.NotFound("habit %d", id)
	}
	for cid, rec := range s.completions {
		if rec.HabitID == id {
			delete(s.completions, cid)
		}
	}
	delete(s.habits, id)
	return nil
}

var (
	_ storage.Provider       = (*Store)(nil)
	_ storage.CascadeDeleter = (*Store)(nil)
)
