package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	"github.com/emadrasa/emadrasa-api/internal/repository"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	createErr     error
	created       []*models.Enrollment
	findByID      map[string]*models.Enrollment
	updateErr     error
	updatedStatus models.EnrollmentStatus
	transferErr   error
	transferred   *models.Enrollment
	deleteErr     error
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.findByID[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.findByID[id]; ok {
		return &models.EnrollmentDetail{Enrollment: *e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ListActiveByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

func (m *mockEnrollmentRepo) CreateGuarded(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = fmt.Sprintf("enr-%d", len(m.created)+1)
	enrollment.Status = models.EnrollmentStatusActive
	m.created = append(m.created, enrollment)
	if m.findByID == nil {
		m.findByID = map[string]*models.Enrollment{}
	}
	m.findByID[enrollment.ID] = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedStatus = status
	if e, ok := m.findByID[id]; ok {
		e.Status = status
	}
	return nil
}

func (m *mockEnrollmentRepo) Transfer(ctx context.Context, id, newClassID string) (*models.Enrollment, error) {
	if m.transferErr != nil {
		return nil, m.transferErr
	}
	m.transferred = &models.Enrollment{ID: "enr-next", ClassID: newClassID, Status: models.EnrollmentStatusActive}
	return m.transferred, nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassReader struct {
	classes map[string]*models.Class
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) Invalidate(ctx context.Context) { m.calls++ }

func newEnrollmentServiceForTest(repo *mockEnrollmentRepo, students map[string]*models.Student, classes map[string]*models.Class, caches cacheInvalidator) *EnrollmentService {
	return NewEnrollmentService(repo,
		&mockStudentReader{students: students},
		&mockClassReader{classes: classes},
		caches, nil, nil)
}

func enrollRequest() dto.EnrollStudentRequest {
	return dto.EnrollStudentRequest{
		StudentID:      "stu-1",
		ClassID:        "class-1",
		EnrollmentDate: "2026-07-15",
		AcademicYear:   "2026/2027",
	}
}

func TestEnrollHappyPath(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	caches := &mockInvalidator{}
	svc := newEnrollmentServiceForTest(repo,
		map[string]*models.Student{"stu-1": {ID: "stu-1"}},
		map[string]*models.Class{"class-1": {ID: "class-1", MaxStudents: 30}},
		caches)

	detail, err := svc.Enroll(context.Background(), enrollRequest())
	require.NoError(t, err)
	assert.Equal(t, "enr-1", detail.ID)
	assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
	assert.Equal(t, "2026-07-15", detail.EnrollmentDate.Format("2006-01-02"))
	assert.Equal(t, 1, caches.calls, "successful writes invalidate the dashboard cache")
}

func TestEnrollRejectsUnknownStudent(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{},
		nil,
		map[string]*models.Class{"class-1": {ID: "class-1"}},
		nil)

	_, err := svc.Enroll(context.Background(), enrollRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReference.Code, appErrors.FromError(err).Code)
}

func TestEnrollMapsDuplicateSentinel(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: repository.ErrDuplicateActiveEnrollment}
	svc := newEnrollmentServiceForTest(repo,
		map[string]*models.Student{"stu-1": {ID: "stu-1"}},
		map[string]*models.Class{"class-1": {ID: "class-1"}},
		nil)

	_, err := svc.Enroll(context.Background(), enrollRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyEnrolled))
	assert.Equal(t, "Student is already enrolled in this class", appErrors.FromError(err).Message)
}

func TestEnrollMapsCapacitySentinel(t *testing.T) {
	repo := &mockEnrollmentRepo{createErr: repository.ErrClassCapacityReached}
	svc := newEnrollmentServiceForTest(repo,
		map[string]*models.Student{"stu-1": {ID: "stu-1"}},
		map[string]*models.Class{"class-1": {ID: "class-1"}},
		nil)

	_, err := svc.Enroll(context.Background(), enrollRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrClassFull))
	assert.Equal(t, "Class is full. Maximum students reached.", appErrors.FromError(err).Message)
}

func TestBulkEnrollCollectsPerStudentFailures(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentServiceForTest(repo,
		map[string]*models.Student{"stu-1": {ID: "stu-1"}, "stu-2": {ID: "stu-2"}},
		map[string]*models.Class{"class-1": {ID: "class-1"}},
		nil)

	result, err := svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{
		ClassID:      "class-1",
		StudentIDs:   []string{"stu-1", "stu-missing", "stu-2"},
		AcademicYear: "2026/2027",
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, "stu-1", result.Created[0].StudentID)
	assert.Equal(t, "stu-2", result.Created[1].StudentID)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "stu-missing: student not found", result.Errors[0])
}

func TestBulkEnrollUnknownClassFailsOutright(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, nil, nil, nil)

	_, err := svc.BulkEnroll(context.Background(), dto.BulkEnrollRequest{
		ClassID:      "class-missing",
		StudentIDs:   []string{"stu-1"},
		AcademicYear: "2026/2027",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReference.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &mockEnrollmentRepo{findByID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1", MaxStudents: 30}},
		nil)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "expelled"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusReactivationGuardsCapacity(t *testing.T) {
	repo := &mockEnrollmentRepo{findByID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusInactive},
	}}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1", MaxStudents: 30, CurrentStudents: 30}},
		nil)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "active"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrClassFull))
}

func TestUpdateStatusReactivationSucceedsWithSeatFree(t *testing.T) {
	repo := &mockEnrollmentRepo{findByID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusInactive},
	}}
	caches := &mockInvalidator{}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1", MaxStudents: 30, CurrentStudents: 12}},
		caches)

	detail, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, detail.Status)
	assert.Equal(t, models.EnrollmentStatusActive, repo.updatedStatus)
	assert.Equal(t, 1, caches.calls)
}

func TestUpdateStatusReactivationMapsDuplicateSentinel(t *testing.T) {
	repo := &mockEnrollmentRepo{
		findByID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusInactive},
		},
		updateErr: repository.ErrDuplicateActiveEnrollment,
	}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1", MaxStudents: 30, CurrentStudents: 12}},
		nil)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", dto.UpdateEnrollmentStatusRequest{Status: "active"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyEnrolled))
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Status, appErrors.FromError(err).Status)
}

func TestTransferRejectsSameClass(t *testing.T) {
	repo := &mockEnrollmentRepo{findByID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1"}},
		nil)

	_, err := svc.Transfer(context.Background(), "enr-1", dto.TransferEnrollmentRequest{NewClassID: "class-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTransferRejectsInactiveEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{findByID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusGraduated},
	}}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1"}, "class-2": {ID: "class-2"}},
		nil)

	_, err := svc.Transfer(context.Background(), "enr-1", dto.TransferEnrollmentRequest{NewClassID: "class-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTransferMapsTargetCapacitySentinel(t *testing.T) {
	repo := &mockEnrollmentRepo{
		findByID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
		},
		transferErr: repository.ErrClassCapacityReached,
	}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1"}, "class-2": {ID: "class-2"}},
		nil)

	_, err := svc.Transfer(context.Background(), "enr-1", dto.TransferEnrollmentRequest{NewClassID: "class-2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrClassFull))
}

func TestTransferHappyPath(t *testing.T) {
	repo := &mockEnrollmentRepo{findByID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
	}}
	caches := &mockInvalidator{}
	svc := newEnrollmentServiceForTest(repo, nil,
		map[string]*models.Class{"class-1": {ID: "class-1"}, "class-2": {ID: "class-2"}},
		caches)

	next, err := svc.Transfer(context.Background(), "enr-1", dto.TransferEnrollmentRequest{NewClassID: "class-2"})
	require.NoError(t, err)
	assert.Equal(t, "class-2", next.ClassID)
	assert.Equal(t, models.EnrollmentStatusActive, next.Status)
	assert.Equal(t, 1, caches.calls)
}

func TestListRejectsInvalidStatusFilter(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, nil, nil, nil)

	_, _, err := svc.List(context.Background(), models.EnrollmentFilter{Status: "ACTIVE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDeleteUnknownEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{deleteErr: sql.ErrNoRows}
	svc := newEnrollmentServiceForTest(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), "enr-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
