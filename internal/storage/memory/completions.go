package memory

import (
	"context"
	"sort"

	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

func (s *Store) InsertCompletion(ctx context.Context, rec models.CompletionRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, derrors.StoreFailure("insert completion", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.habits[rec.HabitID]; !ok {
		return 0, derrors.NotFound("habit %d", rec.HabitID)
	}
	s.nextCompletionID++
	rec.ID = s.nextCompletionID
	s.completions[rec.ID] = rec
	return rec.ID, nil
}

func (s *Store) RecordCompletion(ctx context.Context, rec models.CompletionRecord, target int) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, derrors.StoreFailure("record completion", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[rec.HabitID]
	if !ok {
		return 0, false, derrors.NotFound("habit %d", rec.HabitID)
	}
	n := 0
	for _, r := range s.completions {
		if r.HabitID == rec.HabitID && r.DayKey == rec.DayKey {
			n++
		}
	}
	if n >= target {
		return 0, false, nil
	}
	s.nextCompletionID++
	rec.ID = s.nextCompletionID
	s.completions[rec.ID] = rec
	h.TotalCompletions++
	s.habits[rec.HabitID] = h
	return rec.ID, true, nil
}

func (s *Store) DeleteCompletion(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return derrors.StoreFailure("delete completion", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.completions[id]; !ok {
		return derrors.NotFound("completion %d", id)
	}
	delete(s.completions, id)
	return nil
}

func (s *Store) CountForDay(ctx context.Context, habitID int64, dayKey string) (int, error) {
	recs, err := s.filter(ctx, "count completions", func(r models.CompletionRecord) bool {
		return r.HabitID == habitID && r.DayKey == dayKey
	})
	return len(recs), err
}

func (s *Store) ListForHabit(ctx context.Context, habitID int64) ([]models.CompletionRecord, error) {
	return s.filter(ctx, "list completions", func(r models.CompletionRecord) bool {
		return r.HabitID == habitID
	})
}

func (s *Store) ListInDayRange(ctx context.Context, habitID int64, startKey, endKey string) ([]models.CompletionRecord, error) {
	return s.filter(ctx, "list completions in range", func(r models.CompletionRecord) bool {
		return r.HabitID == habitID && r.DayKey >= startKey && r.DayKey <= endKey
	})
}

func (s *Store) filter(ctx context.Context, op string, keep func(models.CompletionRecord) bool) ([]models.CompletionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, derrors.StoreFailure(op, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CompletionRecord
	for _, r := range s.completions {
		if keep(r) {
			out = append(out, r)
		}
	}
	storage.SortCompletions(out)
	return out, nil
}

func (s *Store) DeleteAllForHabit(ctx context.Context, habitID int64) (int64, error) {
	return s.deleteWhere(ctx, "delete completions", func(r models.CompletionRecord) bool {
		return r.HabitID == habitID
	})
}

func (s *Store) DeleteBefore(ctx context.Context, dayKey string) ([]int64, error) {
	touched := make(map[int64]bool)
	_, err := s.deleteWhere(ctx, "prune completions", func(r models.CompletionRecord) bool {
		if r.DayKey < dayKey {
			touched[r.HabitID] = true
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) deleteWhere(ctx context.Context, op string, match func(models.CompletionRecord) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, derrors.StoreFailure(op, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.completions {
		if match(r) {
			delete(s.completions, id)
			n++
		}
	}
	return n, nil
}
