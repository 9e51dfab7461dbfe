package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type mockClassRepo struct {
	nameTaken  bool
	created    *models.Class
	updated    *models.Class
	deleted    []string
	byID       map[string]*models.Class
	detailByID map[string]*models.ClassDetail
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	return nil, 0, nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.detailByID[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	return m.nameTaken, nil
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class, subjectIDs []string) error {
	class.ID = "class-new"
	m.created = class
	if m.detailByID == nil {
		m.detailByID = map[string]*models.ClassDetail{}
	}
	m.detailByID[class.ID] = &models.ClassDetail{Class: *class, SubjectIDs: subjectIDs}
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class, subjectIDs []string) error {
	m.updated = class
	if m.detailByID == nil {
		m.detailByID = map[string]*models.ClassDetail{}
	}
	m.detailByID[class.ID] = &models.ClassDetail{Class: *class, SubjectIDs: subjectIDs}
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockScheduleWriter struct {
	replaced map[string][]models.ScheduleEntry
	deleted  []string
}

func (m *mockScheduleWriter) ReplaceForClass(ctx context.Context, classID string, entries []models.ScheduleEntry) error {
	if m.replaced == nil {
		m.replaced = map[string][]models.ScheduleEntry{}
	}
	m.replaced[classID] = entries
	return nil
}

func (m *mockScheduleWriter) DeleteByClass(ctx context.Context, classID string) error {
	m.deleted = append(m.deleted, classID)
	return nil
}

type mockScheduleChecker struct {
	conflicts []string
	err       error
	calls     int
}

func (m *mockScheduleChecker) CheckEntries(ctx context.Context, class *models.ClassDetail, entries []dto.ScheduleEntryRequest, excludeClassID string) ([]string, error) {
	m.calls++
	return m.conflicts, m.err
}

type mockSchoolReader struct {
	schools map[string]*models.School
}

func (m *mockSchoolReader) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := m.schools[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockTeacherReader struct {
	teachers map[string]*models.Teacher
}

func (m *mockTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.teachers[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type mockSubjectReader struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectReader) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type classServiceFixture struct {
	repo      *mockClassRepo
	schedules *mockScheduleWriter
	checker   *mockScheduleChecker
	caches    *mockInvalidator
	svc       *ClassService
}

func newClassServiceFixture() *classServiceFixture {
	f := &classServiceFixture{
		repo:      &mockClassRepo{},
		schedules: &mockScheduleWriter{},
		checker:   &mockScheduleChecker{},
		caches:    &mockInvalidator{},
	}
	f.svc = NewClassService(
		f.repo,
		f.schedules,
		f.checker,
		&mockSchoolReader{schools: map[string]*models.School{"school-1": {ID: "school-1"}}},
		&mockTeacherReader{teachers: map[string]*models.Teacher{"teacher-1": {ID: "teacher-1"}}},
		&mockSubjectReader{subjects: map[string]*models.Subject{"subj-1": {ID: "subj-1"}, "subj-2": {ID: "subj-2"}}},
		f.caches,
		nil, nil,
	)
	return f
}

func classRequest() dto.ClassRequest {
	return dto.ClassRequest{
		SchoolID:     "school-1",
		Name:         "Grade 7A",
		Grade:        "7",
		SubjectIDs:   []string{"subj-1", "subj-2"},
		MaxStudents:  30,
		AcademicYear: "2026/2027",
	}
}

func TestClassCreateHappyPath(t *testing.T) {
	f := newClassServiceFixture()

	result, err := f.svc.Create(context.Background(), classRequest())
	require.NoError(t, err)
	require.NotNil(t, result.Class)
	assert.Equal(t, "class-new", result.Class.ID)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, 1, f.caches.calls)
}

func TestClassCreateRejectsDuplicateName(t *testing.T) {
	f := newClassServiceFixture()
	f.repo.nameTaken = true

	_, err := f.svc.Create(context.Background(), classRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateName.Code, appErrors.FromError(err).Code)
	assert.Nil(t, f.repo.created)
}

func TestClassCreateRejectsPrimarySubjectOutsideSet(t *testing.T) {
	f := newClassServiceFixture()
	req := classRequest()
	primary := "subj-2"
	req.PrimarySubjectID = &primary
	req.SubjectIDs = []string{"subj-1"}

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestClassCreateRejectsUnknownSubject(t *testing.T) {
	f := newClassServiceFixture()
	req := classRequest()
	req.SubjectIDs = []string{"subj-1", "subj-missing"}

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReference.Code, appErrors.FromError(err).Code)
}

func TestClassCreateWithScheduleReturnsAdvisoryConflicts(t *testing.T) {
	f := newClassServiceFixture()
	f.checker.conflicts = []string{"Room conflict: Lab 1 is already booked at 08:00-09:00 for class Grade 8B"}
	req := classRequest()
	req.Schedule = []dto.ScheduleEntryRequest{
		{SubjectID: "subj-1", DayOfWeek: 1, StartTime: "08:00", EndTime: "09:00", Room: "Lab 1"},
	}

	result, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err, "conflicts warn, they do not block the write")
	require.NotNil(t, f.repo.created)
	assert.Len(t, f.schedules.replaced["class-new"], 1)
	require.Len(t, result.Conflicts, 1)
	assert.Contains(t, result.Conflicts[0], "Room conflict")
}

func TestClassCreateScheduleHardFailureBlocksWrite(t *testing.T) {
	f := newClassServiceFixture()
	f.checker.err = appErrors.Clone(appErrors.ErrValidation, "start time 10:00 must be before end time 09:00")
	req := classRequest()
	req.Schedule = []dto.ScheduleEntryRequest{
		{SubjectID: "subj-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "09:00"},
	}

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, f.repo.created, "nothing is persisted when the schedule payload is invalid")
}

func TestClassUpdateWithoutSchedulePayloadLeavesScheduleAlone(t *testing.T) {
	f := newClassServiceFixture()
	f.repo.byID = map[string]*models.Class{
		"class-1": {ID: "class-1", SchoolID: "school-1", CurrentStudents: 12},
	}

	result, err := f.svc.Update(context.Background(), "class-1", classRequest())
	require.NoError(t, err)
	assert.Equal(t, 12, f.repo.updated.CurrentStudents, "the enrollment counter is never client writable")
	assert.Empty(t, f.schedules.replaced)
	assert.Equal(t, 0, f.checker.calls)
	assert.Empty(t, result.Conflicts)
}

func TestClassUpdateReplacesScheduleWholesale(t *testing.T) {
	f := newClassServiceFixture()
	f.repo.byID = map[string]*models.Class{
		"class-1": {ID: "class-1", SchoolID: "school-1"},
	}
	req := classRequest()
	req.Schedule = []dto.ScheduleEntryRequest{
		{SubjectID: "subj-1", DayOfWeek: 2, StartTime: "08:00", EndTime: "09:00", Room: "Lab 2"},
		{SubjectID: "subj-2", DayOfWeek: 4, StartTime: "10:00", EndTime: "11:30"},
	}

	_, err := f.svc.Update(context.Background(), "class-1", req)
	require.NoError(t, err)
	assert.Len(t, f.schedules.replaced["class-1"], 2)
	assert.Equal(t, 1, f.checker.calls)
}

func TestClassUpdateUnknownClass(t *testing.T) {
	f := newClassServiceFixture()

	_, err := f.svc.Update(context.Background(), "class-missing", classRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassDeleteRemovesScheduleFirst(t *testing.T) {
	f := newClassServiceFixture()
	f.repo.byID = map[string]*models.Class{"class-1": {ID: "class-1"}}

	err := f.svc.Delete(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"class-1"}, f.schedules.deleted)
	assert.Equal(t, []string{"class-1"}, f.repo.deleted)
	assert.Equal(t, 1, f.caches.calls)
}
