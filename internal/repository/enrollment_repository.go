package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emadrasa/emadrasa-api/internal/models"
)

// Sentinel errors surfaced by the guarded enrollment writes. The service
// layer maps them onto the HTTP error taxonomy.
var (
	ErrDuplicateActiveEnrollment = errors.New("active enrollment already exists for student and class")
	ErrClassCapacityReached      = errors.New("class has no free capacity")
)

// EnrollmentRepository handles persistence of enrollments and keeps the
// denormalised classes.current_students counter consistent. Every write goes
// through a transaction that recomputes the counter before committing, so
// readers never observe a stale value.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN classes c ON c.id = e.class_id
LEFT JOIN schools sc ON sc.id = c.school_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrollment_date": "e.enrollment_date",
		"student_name":    "s.full_name",
		"class_name":      "c.name",
		"status":          "e.status",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrollment_date"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.class_id, e.status, e.enrollment_date, e.academic_year, e.created_at, e.updated_at,
        s.full_name AS student_name, c.name AS class_name, sc.name AS school_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, status, enrollment_date, academic_year, created_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with joined student and class info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.class_id, e.status, e.enrollment_date, e.academic_year, e.created_at, e.updated_at,
        s.full_name AS student_name, c.name AS class_name, sc.name AS school_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN classes c ON c.id = e.class_id
        LEFT JOIN schools sc ON sc.id = c.school_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks whether the student already holds an active enrollment
// in the class.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, classID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID, models.EnrollmentStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// CountActiveByClass returns the live active-enrollment count for a class.
func (r *EnrollmentRepository) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, classID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}

// CountByStatus tallies enrollments per status for dashboard reporting.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT status, COUNT(*) FROM enrollments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.EnrollmentStatus]int)
	for rows.Next() {
		var status models.EnrollmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ListActiveByClass returns the active enrollments for a class.
func (r *EnrollmentRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.class_id, e.status, e.enrollment_date, e.academic_year, e.created_at, e.updated_at,
        s.full_name AS student_name, c.name AS class_name, sc.name AS school_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN classes c ON c.id = e.class_id
        LEFT JOIN schools sc ON sc.id = c.school_id
        WHERE e.class_id = $1 AND e.status = $2
        ORDER BY s.full_name ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, classID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return enrollments, nil
}

// ListByStudent returns every enrollment held by a student.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, class_id, status, enrollment_date, academic_year, created_at, updated_at FROM enrollments WHERE student_id = $1`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// CreateGuarded inserts an active enrollment after re-running the duplicate
// and capacity checks under a row lock on the class, then recomputes
// current_students, all in one transaction. Two requests racing for the last
// seat serialise on the lock; the loser gets ErrClassCapacityReached.
func (r *EnrollmentRepository) CreateGuarded(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var maxStudents int
	if err = tx.GetContext(ctx, &maxStudents, `SELECT max_students FROM classes WHERE id = $1 FOR UPDATE`, enrollment.ClassID); err != nil {
		return err
	}

	var duplicate int
	dupErr := tx.GetContext(ctx, &duplicate, `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`,
		enrollment.StudentID, enrollment.ClassID, models.EnrollmentStatusActive)
	if dupErr == nil {
		err = ErrDuplicateActiveEnrollment
		return err
	}
	if dupErr != sql.ErrNoRows {
		err = fmt.Errorf("check duplicate enrollment: %w", dupErr)
		return err
	}

	var active int
	if err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2`,
		enrollment.ClassID, models.EnrollmentStatusActive); err != nil {
		err = fmt.Errorf("count active enrollments: %w", err)
		return err
	}
	if active >= maxStudents {
		err = ErrClassCapacityReached
		return err
	}

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO enrollments (id, student_id, class_id, status, enrollment_date, academic_year, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :status, :enrollment_date, :academic_year, :created_at, :updated_at)`, enrollment); err != nil {
		err = fmt.Errorf("create enrollment: %w", err)
		return err
	}

	if err = recomputeClassCount(ctx, tx, enrollment.ClassID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// UpdateStatus persists a new status and recomputes the class counter in the
// same transaction. Status changes affect the active count in both
// directions, so the recompute always runs. Moving into active re-runs the
// duplicate check: the student may hold another active row in the same class
// opened after this one went inactive.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row struct {
		StudentID string `db:"student_id"`
		ClassID   string `db:"class_id"`
	}
	if err = tx.GetContext(ctx, &row, `SELECT student_id, class_id FROM enrollments WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}

	if status == models.EnrollmentStatusActive {
		var duplicate int
		dupErr := tx.GetContext(ctx, &duplicate, `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 AND id <> $4 LIMIT 1`,
			row.StudentID, row.ClassID, models.EnrollmentStatusActive, id)
		if dupErr == nil {
			err = ErrDuplicateActiveEnrollment
			return err
		}
		if dupErr != sql.ErrNoRows {
			err = fmt.Errorf("check duplicate enrollment: %w", dupErr)
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC()); err != nil {
		err = fmt.Errorf("update enrollment status: %w", err)
		return err
	}

	if err = recomputeClassCount(ctx, tx, row.ClassID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status update: %w", err)
	}
	return nil
}

// Transfer closes the old enrollment and opens a new active one in the
// target class as a single transaction: duplicate and capacity checks on the
// target, old row marked transferred (never deleted), both class counters
// recomputed. Either everything lands or nothing does.
func (r *EnrollmentRepository) Transfer(ctx context.Context, id, newClassID string) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var old models.Enrollment
	if err = tx.GetContext(ctx, &old, `SELECT id, student_id, class_id, status, enrollment_date, academic_year, created_at, updated_at FROM enrollments WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}

	var maxStudents int
	if err = tx.GetContext(ctx, &maxStudents, `SELECT max_students FROM classes WHERE id = $1 FOR UPDATE`, newClassID); err != nil {
		return nil, err
	}

	var duplicate int
	dupErr := tx.GetContext(ctx, &duplicate, `SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1`,
		old.StudentID, newClassID, models.EnrollmentStatusActive)
	if dupErr == nil {
		err = ErrDuplicateActiveEnrollment
		return nil, err
	}
	if dupErr != sql.ErrNoRows {
		err = fmt.Errorf("check duplicate enrollment: %w", dupErr)
		return nil, err
	}

	var active int
	if err = tx.GetContext(ctx, &active, `SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2`,
		newClassID, models.EnrollmentStatusActive); err != nil {
		err = fmt.Errorf("count active enrollments: %w", err)
		return nil, err
	}
	if active >= maxStudents {
		err = ErrClassCapacityReached
		return nil, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`,
		old.ID, models.EnrollmentStatusTransferred, now); err != nil {
		err = fmt.Errorf("close old enrollment: %w", err)
		return nil, err
	}

	next := &models.Enrollment{
		ID:             uuid.NewString(),
		StudentID:      old.StudentID,
		ClassID:        newClassID,
		Status:         models.EnrollmentStatusActive,
		EnrollmentDate: now,
		AcademicYear:   old.AcademicYear,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO enrollments (id, student_id, class_id, status, enrollment_date, academic_year, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :status, :enrollment_date, :academic_year, :created_at, :updated_at)`, next); err != nil {
		err = fmt.Errorf("open new enrollment: %w", err)
		return nil, err
	}

	if err = recomputeClassCount(ctx, tx, old.ClassID); err != nil {
		return nil, err
	}
	if err = recomputeClassCount(ctx, tx, newClassID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return next, nil
}

// Delete hard-deletes an enrollment and recomputes its class counter.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var classID string
	if err = tx.GetContext(ctx, &classID, `SELECT class_id FROM enrollments WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		err = fmt.Errorf("delete enrollment: %w", err)
		return err
	}

	if err = recomputeClassCount(ctx, tx, classID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// DeleteByStudent removes all of a student's enrollments and recomputes each
// touched class. Used when the owning student is deleted.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var classIDs []string
	if err = tx.SelectContext(ctx, &classIDs, `SELECT DISTINCT class_id FROM enrollments WHERE student_id = $1`, studentID); err != nil {
		err = fmt.Errorf("collect enrolled classes: %w", err)
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE student_id = $1`, studentID); err != nil {
		err = fmt.Errorf("delete student enrollments: %w", err)
		return err
	}

	for _, classID := range classIDs {
		if err = recomputeClassCount(ctx, tx, classID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade: %w", err)
	}
	return nil
}

// recomputeClassCount is the only writer of classes.current_students: the
// counter is always derived from the active enrollment rows, never
// incremented by hand.
func recomputeClassCount(ctx context.Context, tx *sqlx.Tx, classID string) error {
	const query = `UPDATE classes SET current_students = (
        SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2
    ), updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, classID, models.EnrollmentStatusActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("recompute class count: %w", err)
	}
	return nil
}
