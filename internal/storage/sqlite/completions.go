package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

const completionColumns = `id, habit_id, completed_at, note, day_key`

func (s *Store) InsertCompletion(ctx context.Context, rec models.CompletionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO completions (habit_id, completed_at, note, day_key) VALUES (?, ?, ?, ?)`,
		rec.HabitID, formatTime(rec.CompletedAt), nullString(rec.Note), rec.DayKey)
	if err != nil {
		return 0, derrors.StoreFailure("insert completion", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, derrors.StoreFailure("insert completion", err)
	}
	return id, nil
}

// RecordCompletion runs the target check and the insert as one statement
// inside an immediate transaction, so a concurrent writer waits on the
// database lock instead of reading a stale count.
func (s *Store) RecordCompletion(ctx context.Context, rec models.CompletionRecord, target int) (int64, bool, error) {
	const op = "record completion"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO completions (habit_id, completed_at, note, day_key)
		SELECT ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM completions WHERE habit_id = ? AND day_key = ?) < ?`,
		rec.HabitID, formatTime(rec.CompletedAt), nullString(rec.Note), rec.DayKey,
		rec.HabitID, rec.DayKey, target)
	if err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE habits SET total_completions = total_completions + 1 WHERE id = ?`, rec.HabitID)
	if err := expectRow(res, err, op, "habit %d", rec.HabitID); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(); err != nil {
		return 0, false, derrors.StoreFailure(op, fmt.Errorf("commit: %w", err))
	}
	return id, true, nil
}

func (s *Store) DeleteCompletion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE id = ?`, id)
	return expectRow(res, err, "delete completion", "completion %d", id)
}

func (s *Store) CountForDay(ctx context.Context, habitID int64, dayKey string) (int, error) {
	return s.count(ctx, "count completions",
		`SELECT COUNT(*) FROM completions WHERE habit_id = ? AND day_key = ?`, habitID, dayKey)
}

func (s *Store) ListForHabit(ctx context.Context, habitID int64) ([]models.CompletionRecord, error) {
	return s.queryCompletions(ctx, "list completions",
		`SELECT `+completionColumns+` FROM completions WHERE habit_id = ? ORDER BY day_key DESC, id DESC`, habitID)
}

func (s *Store) ListInDayRange(ctx context.Context, habitID int64, startKey, endKey string) ([]models.CompletionRecord, error) {
	return s.queryCompletions(ctx, "list completions in range",
		`SELECT `+completionColumns+` FROM completions
		WHERE habit_id = ? AND day_key >= ? AND day_key <= ?
		ORDER BY day_key DESC, id DESC`, habitID, startKey, endKey)
}

func (s *Store) queryCompletions(ctx context.Context, op, query string, args ...any) ([]models.CompletionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, derrors.StoreFailure(op, err)
	}
	defer rows.Close()

	var recs []models.CompletionRecord
	for rows.Next() {
		var rec models.CompletionRecord
		var completedAt string
		var note sql.NullString
		if err := rows.Scan(&rec.ID, &rec.HabitID, &completedAt, &note, &rec.DayKey); err != nil {
			return nil, derrors.StoreFailure(op, err)
		}
		if rec.CompletedAt, err = parseTime("completed_at", completedAt); err != nil {
			return nil, derrors.StoreFailure(op, err)
		}
		rec.Note = note.String
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.StoreFailure(op, err)
	}

	storage.SortCompletions(recs)
	return recs, nil
}

func (s *Store) DeleteAllForHabit(ctx context.Context, habitID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = ?`, habitID)
	if err != nil {
		return 0, derrors.StoreFailure("delete completions", err)
	}
	n, err := res.RowsAffected()
	return n, derrors.StoreFailure("delete completions", err)
}

func (s *Store) DeleteBefore(ctx context.Context, dayKey string) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, derrors.StoreFailure("prune completions", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT habit_id FROM completions WHERE day_key < ? ORDER BY habit_id`, dayKey)
	if err != nil {
		return nil, derrors.StoreFailure("prune completions", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, derrors.StoreFailure("prune completions", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, derrors.StoreFailure("prune completions", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE day_key < ?`, dayKey); err != nil {
		return nil, derrors.StoreFailure("prune completions", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, derrors.StoreFailure("prune completions", err)
	}
	return ids, nil
}

// DeleteHabitCascade removes a habit and its completions in one transaction.
func (s *Store) DeleteHabitCascade(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return derrors.StoreFailure("delete habit", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = ?`, id); err != nil {
		return derrors.StoreFailure("delete habit completions", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
	if err := expectRow(res, err, "delete habit", "habit %d", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return derrors.StoreFailure("delete habit", fmt.Errorf("commit: %w", err))
	}
	return nil
}
