package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/emadrasa/emadrasa-api/internal/models"
)

// ClassRepository manages persistence for classes and their subject sets.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes matching filter criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes c
JOIN schools sc ON sc.id = c.school_id
LEFT JOIN teachers t ON t.id = c.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("c.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Grade != "" {
		conditions = append(conditions, fmt.Sprintf("c.grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("c.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":             "c.name",
		"grade":            "c.grade",
		"current_students": "c.current_students",
		"created_at":       "c.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "c.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT c.id, c.school_id, c.name, c.grade, c.teacher_id, c.primary_subject_id, c.max_students, c.current_students, c.academic_year, c.created_at, c.updated_at,
        sc.name AS school_name, t.full_name AS teacher_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class record by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, school_id, name, grade, teacher_id, primary_subject_id, max_students, current_students, academic_year, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindDetailByID returns a class with joined names and its subject set.
func (r *ClassRepository) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	const query = `SELECT c.id, c.school_id, c.name, c.grade, c.teacher_id, c.primary_subject_id, c.max_students, c.current_students, c.academic_year, c.created_at, c.updated_at,
        sc.name AS school_name, t.full_name AS teacher_name
        FROM classes c
        JOIN schools sc ON sc.id = c.school_id
        LEFT JOIN teachers t ON t.id = c.teacher_id
        WHERE c.id = $1`
	var detail models.ClassDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	subjects, err := r.SubjectIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.SubjectIDs = subjects
	return &detail, nil
}

// SubjectIDs returns the subject set assigned to a class.
func (r *ClassRepository) SubjectIDs(ctx context.Context, classID string) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM class_subjects WHERE class_id = $1`, classID); err != nil {
		return nil, fmt.Errorf("list class subjects: %w", err)
	}
	return ids, nil
}

// ExistsByName checks for a duplicate class name within the same school.
func (r *ClassRepository) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM classes WHERE school_id = $1 AND LOWER(name) = LOWER($2)`
	args := []interface{}{schoolID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class name: %w", err)
	}
	return true, nil
}

// Create persists a class together with its subject set.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class, subjectIDs []string) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO classes (id, school_id, name, grade, teacher_id, primary_subject_id, max_students, current_students, academic_year, created_at, updated_at)
        VALUES (:id, :school_id, :name, :grade, :teacher_id, :primary_subject_id, :max_students, 0, :academic_year, :created_at, :updated_at)`, class); err != nil {
		err = fmt.Errorf("create class: %w", err)
		return err
	}

	if err = replaceClassSubjects(ctx, tx, class.ID, subjectIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class: %w", err)
	}
	return nil
}

// Update persists class fields and replaces the subject set.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class, subjectIDs []string) error {
	class.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, `UPDATE classes SET school_id = :school_id, name = :name, grade = :grade, teacher_id = :teacher_id,
        primary_subject_id = :primary_subject_id, max_students = :max_students, academic_year = :academic_year, updated_at = :updated_at
        WHERE id = :id`, class); err != nil {
		err = fmt.Errorf("update class: %w", err)
		return err
	}

	if err = replaceClassSubjects(ctx, tx, class.ID, subjectIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class update: %w", err)
	}
	return nil
}

// Delete removes a class; schedule entries cascade at the schema level.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// Count returns the total number of classes.
func (r *ClassRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM classes`); err != nil {
		return 0, fmt.Errorf("count classes: %w", err)
	}
	return count, nil
}

func replaceClassSubjects(ctx context.Context, tx *sqlx.Tx, classID string, subjectIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class subjects: %w", err)
	}
	for _, subjectID := range subjectIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO class_subjects (class_id, subject_id) VALUES ($1, $2)`, classID, subjectID); err != nil {
			return fmt.Errorf("assign class subject: %w", err)
		}
	}
	return nil
}
