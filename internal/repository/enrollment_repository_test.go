package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/emadrasa/emadrasa-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func expectRecomputeClassCount(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET current_students = (")).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestEnrollmentRepositoryCreateGuarded(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_students FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "class-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2")).
		WithArgs("class-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectRecomputeClassCount(mock)
	mock.ExpectCommit()

	enrollment := &models.Enrollment{StudentID: "stu-1", ClassID: "class-1", AcademicYear: "2026/2027"}
	require.NoError(t, repo.CreateGuarded(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateGuardedDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_students FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "class-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{StudentID: "stu-1", ClassID: "class-1", AcademicYear: "2026/2027"}
	err := repo.CreateGuarded(context.Background(), enrollment)
	require.ErrorIs(t, err, ErrDuplicateActiveEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateGuardedCapacity(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_students FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-1").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "class-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2")).
		WithArgs("class-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectRollback()

	enrollment := &models.Enrollment{StudentID: "stu-1", ClassID: "class-1", AcademicYear: "2026/2027"}
	err := repo.CreateGuarded(context.Background(), enrollment)
	require.ErrorIs(t, err, ErrClassCapacityReached)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusRecomputesCounter(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, class_id FROM enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "class_id"}).AddRow("stu-1", "class-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecomputeClassCount(mock)
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusInactive))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReactivationChecksDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	// The student opened a second active enrollment in the class after this
	// one went inactive; moving it back to active must not create a twin.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, class_id FROM enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "class_id"}).AddRow("stu-1", "class-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 AND id <> $4 LIMIT 1")).
		WithArgs("stu-1", "class-1", models.EnrollmentStatusActive, "enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusActive)
	require.ErrorIs(t, err, ErrDuplicateActiveEnrollment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryReactivationWithoutTwinProceeds(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, class_id FROM enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "class_id"}).AddRow("stu-1", "class-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 AND id <> $4 LIMIT 1")).
		WithArgs("stu-1", "class-1", models.EnrollmentStatusActive, "enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecomputeClassCount(mock)
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusActive))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransfer(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, class_id, status, enrollment_date, academic_year, created_at, updated_at FROM enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "class_id", "status", "enrollment_date", "academic_year", "created_at", "updated_at"}).
			AddRow("enr-1", "stu-1", "class-1", "active", now, "2026/2027", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_students FROM classes WHERE id = $1 FOR UPDATE")).
		WithArgs("class-2").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("stu-1", "class-2", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE class_id = $1 AND status = $2")).
		WithArgs("class-2", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectRecomputeClassCount(mock)
	expectRecomputeClassCount(mock)
	mock.ExpectCommit()

	next, err := repo.Transfer(context.Background(), "enr-1", "class-2")
	require.NoError(t, err)
	require.Equal(t, "class-2", next.ClassID)
	require.Equal(t, "stu-1", next.StudentID)
	require.Equal(t, models.EnrollmentStatusActive, next.Status)
	require.NotEqual(t, "enr-1", next.ID, "the old row is closed, a fresh one is opened")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteRecomputesCounter(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT class_id FROM enrollments WHERE id = $1 FOR UPDATE")).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"class_id"}).AddRow("class-1"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecomputeClassCount(mock)
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) FROM enrollments GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("active", 41).
			AddRow("graduated", 7))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 41, counts[models.EnrollmentStatusActive])
	require.Equal(t, 7, counts[models.EnrollmentStatusGraduated])
	require.NoError(t, mock.ExpectationsWereMet())
}
