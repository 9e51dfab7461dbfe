package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
	ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class, subjectIDs []string) error
	Update(ctx context.Context, class *models.Class, subjectIDs []string) error
	Delete(ctx context.Context, id string) error
}

type classScheduleWriter interface {
	ReplaceForClass(ctx context.Context, classID string, entries []models.ScheduleEntry) error
	DeleteByClass(ctx context.Context, classID string) error
}

type classScheduleChecker interface {
	CheckEntries(ctx context.Context, class *models.ClassDetail, entries []dto.ScheduleEntryRequest, excludeClassID string) ([]string, error)
}

type classSchoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type classTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type classSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// ClassService manages classes together with their subject sets and weekly
// schedules. A schedule payload on create or update replaces the class's
// schedule wholesale; conflicts with other classes are reported back as
// warnings, never as rejections.
type ClassService struct {
	repo      classRepository
	schedules classScheduleWriter
	checker   classScheduleChecker
	schools   classSchoolReader
	teachers  classTeacherReader
	subjects  classSubjectReader
	caches    cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService instantiates ClassService.
func NewClassService(
	repo classRepository,
	schedules classScheduleWriter,
	checker classScheduleChecker,
	schools classSchoolReader,
	teachers classTeacherReader,
	subjects classSubjectReader,
	caches cacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{
		repo:      repo,
		schedules: schedules,
		checker:   checker,
		schools:   schools,
		teachers:  teachers,
		subjects:  subjects,
		caches:    caches,
		validator: validate,
		logger:    logger,
	}
}

// List returns classes matching the filter plus the total count.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, total, nil
}

// Get returns a class with joined names and its subject set.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create persists a new class and, when a schedule payload is present,
// installs its weekly schedule. Returned conflicts are advisory.
func (s *ClassService) Create(ctx context.Context, req dto.ClassRequest) (*dto.ClassScheduleResponse, error) {
	if err := s.validateRequest(ctx, req, ""); err != nil {
		return nil, err
	}

	class := &models.Class{
		SchoolID:         req.SchoolID,
		Name:             req.Name,
		Grade:            req.Grade,
		TeacherID:        req.TeacherID,
		PrimarySubjectID: req.PrimarySubjectID,
		MaxStudents:      req.MaxStudents,
		AcademicYear:     req.AcademicYear,
	}

	conflicts, err := s.checkSchedule(ctx, class, req, "")
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, class, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	if err := s.installSchedule(ctx, class.ID, req); err != nil {
		return nil, err
	}

	invalidate(ctx, s.caches)
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", class.Name))
	detail, err := s.Get(ctx, class.ID)
	if err != nil {
		return nil, err
	}
	return &dto.ClassScheduleResponse{Class: detail, Conflicts: conflicts}, nil
}

// Update modifies a class. A schedule payload replaces the schedule; an
// absent one leaves the existing schedule untouched.
func (s *ClassService) Update(ctx context.Context, id string, req dto.ClassRequest) (*dto.ClassScheduleResponse, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	if err := s.validateRequest(ctx, req, id); err != nil {
		return nil, err
	}

	class := &models.Class{
		ID:               existing.ID,
		SchoolID:         req.SchoolID,
		Name:             req.Name,
		Grade:            req.Grade,
		TeacherID:        req.TeacherID,
		PrimarySubjectID: req.PrimarySubjectID,
		MaxStudents:      req.MaxStudents,
		CurrentStudents:  existing.CurrentStudents,
		AcademicYear:     req.AcademicYear,
		CreatedAt:        existing.CreatedAt,
	}

	conflicts, err := s.checkSchedule(ctx, class, req, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, class, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	if err := s.installSchedule(ctx, id, req); err != nil {
		return nil, err
	}
	invalidate(ctx, s.caches)

	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ClassScheduleResponse{Class: detail, Conflicts: conflicts}, nil
}

// Delete removes a class and its schedule entries.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.schedules.DeleteByClass(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class schedule")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	invalidate(ctx, s.caches)
	s.logger.Info("class deleted", zap.String("class_id", id))
	return nil
}

func (s *ClassService) validateRequest(ctx context.Context, req dto.ClassRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	if _, err := s.schools.FindByID(ctx, req.SchoolID); err != nil {
		if isNoRows(err) {
			return appErrors.Clone(appErrors.ErrReference, "school not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	if req.TeacherID != nil && *req.TeacherID != "" {
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if isNoRows(err) {
				return appErrors.Clone(appErrors.ErrReference, "teacher not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}
	for _, subjectID := range req.SubjectIDs {
		if _, err := s.subjects.FindByID(ctx, subjectID); err != nil {
			if isNoRows(err) {
				return appErrors.Clone(appErrors.ErrReference, "subject not found: "+subjectID)
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
	}
	if req.PrimarySubjectID != nil && *req.PrimarySubjectID != "" && !containsString(req.SubjectIDs, *req.PrimarySubjectID) {
		return appErrors.Clone(appErrors.ErrValidation, "primary subject must be part of the class subject set")
	}

	taken, err := s.repo.ExistsByName(ctx, req.SchoolID, req.Name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicateName, "a class with this name already exists in the school")
	}
	return nil
}

// checkSchedule runs the advisory conflict check against the candidate class.
// Malformed entries and subjects outside the class set reject the whole
// request before anything is written.
func (s *ClassService) checkSchedule(ctx context.Context, class *models.Class, req dto.ClassRequest, excludeClassID string) ([]string, error) {
	if len(req.Schedule) == 0 {
		return []string{}, nil
	}
	candidate := &models.ClassDetail{Class: *class, SubjectIDs: req.SubjectIDs}
	conflicts, err := s.checker.CheckEntries(ctx, candidate, req.Schedule, excludeClassID)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []string{}
	}
	return conflicts, nil
}

func (s *ClassService) installSchedule(ctx context.Context, classID string, req dto.ClassRequest) error {
	if req.Schedule == nil {
		return nil
	}
	entries := make([]models.ScheduleEntry, 0, len(req.Schedule))
	for _, item := range req.Schedule {
		entries = append(entries, models.ScheduleEntry{
			SubjectID: item.SubjectID,
			DayOfWeek: item.DayOfWeek,
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
			Room:      item.Room,
		})
	}
	if err := s.schedules.ReplaceForClass(ctx, classID, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save class schedule")
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
