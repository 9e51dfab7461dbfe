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

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scheduleDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "class_id", "subject_id", "day_of_week", "start_time", "end_time", "room",
		"created_at", "updated_at", "class_name", "subject_name", "school_name", "teacher_id", "teacher_name",
	})
}

func TestScheduleRepositoryListByDayExclusions(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE se.day_of_week = $1 AND se.id <> $2 AND se.class_id <> $3")).
		WithArgs(1, "sch-self", "class-self").
		WillReturnRows(scheduleDetailRows().
			AddRow("sch-1", "class-1", "subj-1", 1, "08:00", "09:00", "Lab 1", now, now, "Grade 7A", "Mathematics", "Al Noor", "teacher-1", "Ustadh Kareem"))

	entries, err := repo.ListByDay(context.Background(), 1, "sch-self", "class-self")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "sch-1", entries[0].ID)
	require.NotNil(t, entries[0].TeacherName)
	require.Equal(t, "Ustadh Kareem", *entries[0].TeacherName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListByDayWithoutExclusions(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE se.day_of_week = $1")).
		WithArgs(3).
		WillReturnRows(scheduleDetailRows())

	entries, err := repo.ListByDay(context.Background(), 3, "", "")
	require.NoError(t, err)
	require.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListDetailsFilters(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	day := 2
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE se.class_id = $1 AND se.day_of_week = $2 AND LOWER(se.room) = LOWER($3)")).
		WithArgs("class-1", 2, "lab 1").
		WillReturnRows(scheduleDetailRows().
			AddRow("sch-1", "class-1", "subj-1", 2, "08:00", "09:00", "Lab 1", now, now, "Grade 7A", "Mathematics", "Al Noor", nil, nil))

	entries, err := repo.ListDetails(context.Background(), models.ScheduleFilter{
		ClassID:   "class-1",
		DayOfWeek: &day,
		Room:      "lab 1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].TeacherID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceForClass(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_entries WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entries := []models.ScheduleEntry{
		{SubjectID: "subj-1", DayOfWeek: 1, StartTime: "08:00", EndTime: "09:00", Room: "Lab 1"},
		{SubjectID: "subj-2", DayOfWeek: 3, StartTime: "10:00", EndTime: "11:30"},
	}
	require.NoError(t, repo.ReplaceForClass(context.Background(), "class-1", entries))
	require.NotEmpty(t, entries[0].ID, "ids are assigned on insert")
	require.Equal(t, "class-1", entries[0].ClassID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceForClassEmptySetClears(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_entries WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForClass(context.Background(), "class-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteByClass(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_entries WHERE class_id = $1")).
		WithArgs("class-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByClass(context.Background(), "class-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
