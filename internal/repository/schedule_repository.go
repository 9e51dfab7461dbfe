package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emadrasa/emadrasa-api/internal/models"
)

// scheduleDetailColumns joins entry rows with class, subject, school and
// assigned-teacher context so responses never carry stale cached names.
const scheduleDetailColumns = `SELECT se.id, se.class_id, se.subject_id, se.day_of_week, se.start_time, se.end_time, COALESCE(se.room, '') AS room, se.created_at, se.updated_at,
    c.name AS class_name, sub.name AS subject_name, sc.name AS school_name, c.teacher_id, t.full_name AS teacher_name
    FROM schedule_entries se
    JOIN classes c ON c.id = se.class_id
    JOIN subjects sub ON sub.id = se.subject_id
    JOIN schools sc ON sc.id = c.school_id
    LEFT JOIN teachers t ON t.id = c.teacher_id`

// ScheduleRepository handles persistence of weekly schedule entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ListDetails returns all schedule entries with joined display data.
func (r *ScheduleRepository) ListDetails(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("se.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("se.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("se.day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(se.room) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Room)
	}

	query := scheduleDetailColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY se.day_of_week ASC, se.start_time ASC"

	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// ListByDay returns entries sharing a day of week, optionally excluding one
// entry by id or all entries belonging to one class. This is the working set
// for conflict detection; the class exclusion serves schedule replacement,
// where a class's current rows must not collide with their own successors.
func (r *ScheduleRepository) ListByDay(ctx context.Context, dayOfWeek int, excludeEntryID, excludeClassID string) ([]models.ScheduleEntryDetail, error) {
	query := scheduleDetailColumns + " WHERE se.day_of_week = $1"
	args := []interface{}{dayOfWeek}
	if excludeEntryID != "" {
		query += fmt.Sprintf(" AND se.id <> $%d", len(args)+1)
		args = append(args, excludeEntryID)
	}
	if excludeClassID != "" {
		query += fmt.Sprintf(" AND se.class_id <> $%d", len(args)+1)
		args = append(args, excludeClassID)
	}
	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list day schedule: %w", err)
	}
	return entries, nil
}

// ListByClass returns a class's schedule entries with display data.
func (r *ScheduleRepository) ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntryDetail, error) {
	query := scheduleDetailColumns + " WHERE se.class_id = $1 ORDER BY se.day_of_week ASC, se.start_time ASC"
	var entries []models.ScheduleEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list class schedule: %w", err)
	}
	return entries, nil
}

// FindDetailByID returns one entry with joined display data.
func (r *ScheduleRepository) FindDetailByID(ctx context.Context, id string) (*models.ScheduleEntryDetail, error) {
	query := scheduleDetailColumns + " WHERE se.id = $1"
	var entry models.ScheduleEntryDetail
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ReplaceForClass swaps a class's schedule wholesale: delete all existing
// rows, insert the new set. It is a replace, not a diff.
func (r *ScheduleRepository) ReplaceForClass(ctx context.Context, classID string, entries []models.ScheduleEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE class_id = $1`, classID); err != nil {
		err = fmt.Errorf("clear class schedule: %w", err)
		return err
	}

	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.ClassID = classID
		entry.CreatedAt = now
		entry.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO schedule_entries (id, class_id, subject_id, day_of_week, start_time, end_time, room, created_at, updated_at)
            VALUES (:id, :class_id, :subject_id, :day_of_week, :start_time, :end_time, :room, :created_at, :updated_at)`, entry); err != nil {
			err = fmt.Errorf("insert schedule entry: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule replace: %w", err)
	}
	return nil
}

// DeleteByClass removes all schedule entries owned by a class.
func (r *ScheduleRepository) DeleteByClass(ctx context.Context, classID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("delete class schedule: %w", err)
	}
	return nil
}
