package postgres

import (
	"context"
	"database/sql"
	"errors"

	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
	"github.com/julianstephens/daystreak/internal/storage"
)

const completionColumns = `id, habit_id, completed_at, note, day_key`

func (s *Store) InsertCompletion(ctx context.Context, rec models.CompletionRecord) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO completions (habit_id, completed_at, note, day_key) VALUES ($1, $2, $3, $4) RETURNING id`,
		rec.HabitID, rec.CompletedAt.UTC(), nullString(rec.Note), rec.DayKey).Scan(&id)
	if err != nil {
		return 0, derrors.StoreFailure("insert completion", err)
	}
	return id, nil
}

// RecordCompletion locks the habit row for the rest of the transaction, so
// concurrent recorders for the same habit see each other's inserts.
func (s *Store) RecordCompletion(ctx context.Context, rec models.CompletionRecord, target int) (int64, bool, error) {
	const op = "record completion"
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM habits WHERE id = $1 FOR UPDATE`, rec.HabitID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, derrors.NotFound("habit %d", rec.HabitID)
	}
	if err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM completions WHERE habit_id = $1 AND day_key = $2`,
		rec.HabitID, rec.DayKey).Scan(&n); err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	if n >= target {
		return 0, false, nil
	}

	var id int64
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO completions (habit_id, completed_at, note, day_key) VALUES ($1, $2, $3, $4) RETURNING id`,
		rec.HabitID, rec.CompletedAt.UTC(), nullString(rec.Note), rec.DayKey).Scan(&id); err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE habits SET total_completions = total_completions + 1 WHERE id = $1`, rec.HabitID); err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, derrors.StoreFailure(op, err)
	}
	return id, true, nil
}

func (s *Store) DeleteCompletion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE id = $1`, id)
	return expectRow(res, err, "delete completion", "completion %d", id)
}

func (s *Store) CountForDay(ctx context.Context, habitID int64, dayKey string) (int, error) {
	return s.count(ctx, "count completions",
		`SELECT COUNT(*) FROM completions WHERE habit_id = $1 AND day_key = $2`, habitID, dayKey)
}

func (s *Store) ListForHabit(ctx context.Context, habitID int64) ([]models.CompletionRecord, error) {
	return s.queryCompletions(ctx, "list completions",
		`SELECT `+completionColumns+` FROM completions WHERE habit_id = $1
		ORDER BY day_key DESC, completed_at DESC, id DESC`, habitID)
}

func (s *Store) ListInDayRange(ctx context.Context, habitID int64, startKey, endKey string) ([]models.CompletionRecord, error) {
	return s.queryCompletions(ctx, "list completions in range",
		`SELECT `+completionColumns+` FROM completions
		WHERE habit_id = $1 AND day_key >= $2 AND day_key <= $3
		ORDER BY day_key DESC, completed_at DESC, id DESC`, habitID, startKey, endKey)
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
		var note sql.NullString
		if err := rows.Scan(&rec.ID, &rec.HabitID, &rec.CompletedAt, &note, &rec.DayKey); err != nil {
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = $1`, habitID)
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

	ids, err := queryIDsOn(ctx, tx, "prune completions",
		`SELECT DISTINCT habit_id FROM completions WHERE day_key < $1 ORDER BY habit_id`, dayKey)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE day_key < $1`, dayKey); err != nil {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE habit_id = $1`, id); err != nil {
		return derrors.StoreFailure("delete habit completions", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err := expectRow(res, err, "delete habit", "habit %d", id); err != nil {
		return err
	}
	return derrors.StoreFailure("delete habit", tx.Commit())
}
