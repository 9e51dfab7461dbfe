package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	"github.com/emadrasa/emadrasa-api/internal/repository"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListActiveByClass(ctx context.Context, classID string) ([]models.EnrollmentDetail, error)
	CreateGuarded(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Transfer(ctx context.Context, id, newClassID string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// EnrollmentService owns the enrollment lifecycle. Capacity and duplicate
// guards live in the repository transaction; this layer validates input,
// checks referenced entities exist and translates storage sentinels into the
// API error taxonomy.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentReader
	classes   enrollmentClassReader
	caches    cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService instantiates EnrollmentService. caches may be nil when
// no aggregate cache is configured.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentReader, classes enrollmentClassReader, caches cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, classes: classes, caches: caches, validator: validate, logger: logger}
}

// List returns enrollments matching the filter plus the total count.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment status filter")
	}
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}

// Get returns a single enrollment with joined display data.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Roster returns the active enrollments of a class ordered by student name.
func (s *EnrollmentService) Roster(ctx context.Context, classID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	roster, err := s.repo.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	return roster, nil
}

// Enroll opens a new active enrollment and returns it with joined display
// data. The duplicate and capacity checks run inside the repository
// transaction so concurrent requests cannot oversell a class.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollStudentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.checkReferences(ctx, req.StudentID, req.ClassID); err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID:    req.StudentID,
		ClassID:      req.ClassID,
		AcademicYear: req.AcademicYear,
	}
	if req.EnrollmentDate != "" {
		date, err := time.Parse("2006-01-02", req.EnrollmentDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "enrollmentDate must be formatted as YYYY-MM-DD")
		}
		enrollment.EnrollmentDate = date
	}
	if err := s.repo.CreateGuarded(ctx, enrollment); err != nil {
		return nil, s.mapWriteError(err)
	}

	invalidate(ctx, s.caches)
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("class_id", enrollment.ClassID))
	return s.Get(ctx, enrollment.ID)
}

// BulkEnroll enrolls a batch of students into one class. Each student is
// processed independently; failures are collected, not rolled back.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, req dto.BulkEnrollRequest) (*dto.BulkEnrollResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk enrollment payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrReference, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	result := &dto.BulkEnrollResponse{Created: []models.EnrollmentDetail{}, Errors: []string{}}
	for _, studentID := range req.StudentIDs {
		detail, err := s.Enroll(ctx, dto.EnrollStudentRequest{
			StudentID:      studentID,
			ClassID:        req.ClassID,
			EnrollmentDate: req.EnrollmentDate,
			AcademicYear:   req.AcademicYear,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", studentID, appErrors.FromError(err).Message))
			continue
		}
		result.Created = append(result.Created, *detail)
	}
	return result, nil
}

// UpdateStatus moves an enrollment to a new lifecycle status. The class
// counter is recomputed inside the repository transaction since any move into
// or out of active changes it.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status := models.EnrollmentStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrollment status")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !models.CanTransition(current.Status, status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status transition not allowed")
	}

	if status == models.EnrollmentStatusActive && current.Status != models.EnrollmentStatusActive {
		// Reactivation competes for a seat like a fresh enrollment does.
		if err := s.guardReactivation(ctx, current); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, s.mapWriteError(err)
	}
	invalidate(ctx, s.caches)
	return s.Get(ctx, id)
}

// Transfer moves a student's enrollment to another class in one transaction.
func (s *EnrollmentService) Transfer(ctx context.Context, id string, req dto.TransferEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	if _, err := s.classes.FindByID(ctx, req.NewClassID); err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrReference, "target class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target class")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if current.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only active enrollments can be transferred")
	}
	if current.ClassID == req.NewClassID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is already enrolled in the target class")
	}

	next, err := s.repo.Transfer(ctx, id, req.NewClassID)
	if err != nil {
		return nil, s.mapWriteError(err)
	}

	invalidate(ctx, s.caches)
	s.logger.Info("enrollment transferred",
		zap.String("old_enrollment_id", id),
		zap.String("new_enrollment_id", next.ID),
		zap.String("new_class_id", next.ClassID))
	return next, nil
}

// Delete removes an enrollment record entirely.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	invalidate(ctx, s.caches)
	return nil
}

func (s *EnrollmentService) checkReferences(ctx context.Context, studentID, classID string) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrReference, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrReference, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}

// guardReactivation rejects a move back to active when the class is full.
// The duplicate-active check runs inside the repository transaction; this
// pre-check gives the caller a precise capacity error without opening one.
func (s *EnrollmentService) guardReactivation(ctx context.Context, current *models.Enrollment) error {
	class, err := s.classes.FindByID(ctx, current.ClassID)
	if err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrReference, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.CurrentStudents >= class.MaxStudents {
		return appErrors.ErrClassFull
	}
	return nil
}

func (s *EnrollmentService) mapWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateActiveEnrollment):
		return appErrors.ErrAlreadyEnrolled
	case errors.Is(err, repository.ErrClassCapacityReached):
		return appErrors.ErrClassFull
	case isNoRows(err):
		return appErrors.Clone(appErrors.ErrReference, "referenced resource not found")
	default:
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write enrollment")
	}
}
