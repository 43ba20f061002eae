package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/julianstephens/daystreak/internal/constants"
	derrors "github.com/julianstephens/daystreak/internal/errors"
	"github.com/julianstephens/daystreak/internal/models"
)

const habitColumns = `id, name, description, color, icon, target_count, frequency,
	reminder_time, reminder_enabled, active, category,
	current_streak, longest_streak, total_completions, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var frequency, createdAt, updatedAt string
	var reminderTime, category sql.NullString

	err := row.Scan(
		&h.ID, &h.Name, &h.Description, &h.Color, &h.Icon, &h.TargetCount, &frequency,
		&reminderTime, &h.ReminderEnabled, &h.Active, &category,
		&h.CurrentStreak, &h.LongestStreak, &h.TotalCompletions, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Habit{}, err
	}

	h.Frequency = constants.Frequency(frequency)
	h.ReminderTime = reminderTime.String
	h.Category = category.String

	if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (s *Store) queryHabits(ctx context.Context, op, query string, args ...any) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, derrors.StoreFailure(op, err)
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, derrors.StoreFailure(op, err)
		}
		habits = append(habits, h)
	}
	return habits, derrors.StoreFailure(op, rows.Err())
}

func (s *Store) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, derrors.NotFound("habit %d", id)
	}
	if err != nil {
		return models.Habit{}, derrors.StoreFailure("get habit", err)
	}
	return h, nil
}

func (s *Store) GetActiveHabits(ctx context.Context) ([]models.Habit, error) {
	return s.queryHabits(ctx, "list active habits",
		`SELECT `+habitColumns+` FROM habits WHERE active = 1 ORDER BY created_at, id`)
}

func (s *Store) GetAllHabits(ctx context.Context) ([]models.Habit, error) {
	return s.queryHabits(ctx, "list habits",
		`SELECT `+habitColumns+` FROM habits ORDER BY created_at, id`)
}

func (s *Store) InsertHabit(ctx context.Context, h models.Habit) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (name, description, color, icon, target_count, frequency,
			reminder_time, reminder_enabled, active, category,
			current_streak, longest_streak, total_completions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Name, h.Description, h.Color, h.Icon, h.TargetCount, string(h.Frequency),
		nullString(h.ReminderTime), h.ReminderEnabled, h.Active, nullString(h.Category),
		h.CurrentStreak, h.LongestStreak, h.TotalCompletions, formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	if err != nil {
		return 0, derrors.StoreFailure("insert habit", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, derrors.StoreFailure("insert habit", err)
	}
	return id, nil
}

func (s *Store) UpdateHabit(ctx context.Context, h models.Habit) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE habits SET name = ?, description = ?, color = ?, icon = ?, target_count = ?,
			frequency = ?, reminder_time = ?, reminder_enabled = ?, active = ?, category = ?,
			current_streak = ?, longest_streak = ?, total_completions = ?, updated_at = ?
		WHERE id = ?`,
		h.Name, h.Description, h.Color, h.Icon, h.TargetCount,
		string(h.Frequency), nullString(h.ReminderTime), h.ReminderEnabled, h.Active, nullString(h.Category),
		h.CurrentStreak, h.LongestStreak, h.TotalCompletions, formatTime(h.UpdatedAt),
		h.ID,
	)
	return expectRow(res, err, "update habit", "habit %d", h.ID)
}

func (s *Store) DeleteHabit(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
	return expectRow(res, err, "delete habit", "habit %d", id)
}

func (s *Store) IncrementTotalCompletions(ctx context.Context, id int64, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET total_completions = MAX(0, total_completions + ?) WHERE id = ?`, delta, id)
	return expectRow(res, err, "increment total completions", "habit %d", id)
}

func (s *Store) RepairTotalCompletions(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET total_completions = (SELECT COUNT(*) FROM completions WHERE habit_id = habits.id)
		WHERE id = ? AND total_completions < (SELECT COUNT(*) FROM completions WHERE habit_id = habits.id)`, id)
	if err != nil {
		return false, derrors.StoreFailure("repair total completions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, derrors.StoreFailure("repair total completions", err)
	}
	return n > 0, nil
}

func (s *Store) SetStreakFields(ctx context.Context, id int64, current, longest int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET current_streak = ?, longest_streak = MAX(longest_streak, ?) WHERE id = ?`,
		current, longest, id)
	return expectRow(res, err, "set streak fields", "habit %d", id)
}

func (s *Store) DeactivateCategory(ctx context.Context, category string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE habits SET active = 0, updated_at = ? WHERE category = ? AND active = 1`,
		formatTime(time.Now()), category)
	if err != nil {
		return 0, derrors.StoreFailure("deactivate category", err)
	}
	n, err := res.RowsAffected()
	return n, derrors.StoreFailure("deactivate category", err)
}

func (s *Store) HabitIDsInCategory(ctx context.Context, category string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM habits WHERE category = ? ORDER BY created_at, id`, category)
	if err != nil {
		return nil, derrors.StoreFailure("list category", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, derrors.StoreFailure("list category", err)
		}
		ids = append(ids, id)
	}
	return ids, derrors.StoreFailure("list category", rows.Err())
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	return s.count(ctx, "count active habits", `SELECT COUNT(*) FROM habits WHERE active = 1`)
}

func (s *Store) CountTotal(ctx context.Context) (int, error) {
	return s.count(ctx, "count habits", `SELECT COUNT(*) FROM habits`)
}

func (s *Store) count(ctx context.Context, op, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, derrors.StoreFailure(op, err)
	}
	return n, nil
}

// expectRow turns a zero-row update or delete into NotFound.
func expectRow(res sql.Result, err error, op, format string, args ...any) error {
	if err != nil {
		return derrors.StoreFailure(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return derrors.StoreFailure(op, err)
	}
	if n == 0 {
		return derrors.NotFound(format, args...)
	}
	return nil
}
