package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type scheduleRepository interface {
	ListDetails(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error)
	ListByDay(ctx context.Context, dayOfWeek int, excludeEntryID, excludeClassID string) ([]models.ScheduleEntryDetail, error)
	ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntryDetail, error)
}

type scheduleClassReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.ClassDetail, error)
}

// candidateEntry is the detector's view of a slot under evaluation. For a
// persisted entry the teacher fields come from its joined detail row; for a
// not-yet-persisted candidate they come from the owning class.
type candidateEntry struct {
	Range          models.TimeRange
	Room           string
	TeacherID      string
	ExcludeEntryID string
	ExcludeClassID string
}

// ScheduleService hosts conflict detection and room utilization reporting.
// Conflicts are advisory: detection never blocks a write by itself, callers
// decide what to do with the warnings. Malformed time ranges, by contrast,
// are hard validation failures.
type ScheduleService struct {
	repo      scheduleRepository
	classes   scheduleClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, classes scheduleClassReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns schedule entries with joined display data.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	entries, err := s.repo.ListDetails(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}
	return entries, nil
}

// ListByClass returns a class's assembled schedule.
func (s *ScheduleService) ListByClass(ctx context.Context, classID string) ([]models.ScheduleEntryDetail, error) {
	entries, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class schedule")
	}
	return entries, nil
}

// Validate evaluates a candidate slot against all persisted entries and
// returns the advisory conflict list without persisting anything.
func (s *ScheduleService) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*dto.ValidateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	candidateRange, err := models.NewTimeRange(req.DayOfWeek, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if !class.HasSubject(req.SubjectID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "schedule subject is not assigned to this class")
	}

	teacherID := ""
	if class.TeacherID != nil {
		teacherID = *class.TeacherID
	}

	conflicts, err := s.detect(ctx, candidateEntry{
		Range:     candidateRange,
		Room:      req.Room,
		TeacherID: teacherID,
	})
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []string{}
	}

	return &dto.ValidateScheduleResponse{
		Valid:     len(conflicts) == 0,
		Conflicts: conflicts,
		Schedule: dto.CandidateScheduleView{
			ClassID:   req.ClassID,
			SubjectID: req.SubjectID,
			DayOfWeek: req.DayOfWeek,
			DayName:   models.DayName(req.DayOfWeek),
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Room:      req.Room,
		},
	}, nil
}

// ConflictReport runs the detector once per persisted entry (self-excluded)
// and reports every entry that collides with at least one other.
func (s *ScheduleService) ConflictReport(ctx context.Context) (*dto.ConflictReportResponse, error) {
	entries, err := s.repo.ListDetails(ctx, models.ScheduleFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}

	report := &dto.ConflictReportResponse{Conflicts: []dto.ScheduleConflictItem{}}
	for _, entry := range entries {
		conflicts, err := s.detectForEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			continue
		}
		report.Conflicts = append(report.Conflicts, dto.ScheduleConflictItem{
			ScheduleID:  entry.ID,
			ClassName:   entry.ClassName,
			SubjectName: entry.SubjectName,
			DayOfWeek:   entry.DayOfWeek,
			DayName:     models.DayName(entry.DayOfWeek),
			TimeRange:   fmt.Sprintf("%s-%s", entry.StartTime, entry.EndTime),
			Room:        entry.Room,
			Conflicts:   conflicts,
		})
		report.TotalConflicts += len(conflicts)
	}
	return report, nil
}

// RoomUtilization groups entries by room and sums booked hours per week.
// Overlapping sessions in the same room are counted at face value: the
// overlap is exactly what the conflict list next to them reports. Entries
// without a room are excluded.
func (s *ScheduleService) RoomUtilization(ctx context.Context) (*dto.RoomUtilizationResponse, error) {
	entries, err := s.repo.ListDetails(ctx, models.ScheduleFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}

	type roomAgg struct {
		display    string
		totalHours float64
		sessions   []dto.RoomSession
		conflicts  []string
	}
	rooms := make(map[string]*roomAgg)

	for _, entry := range entries {
		if strings.TrimSpace(entry.Room) == "" {
			continue
		}
		key := strings.ToLower(entry.Room)
		agg, ok := rooms[key]
		if !ok {
			agg = &roomAgg{display: entry.Room}
			rooms[key] = agg
		}

		entryRange, rangeErr := entry.TimeRange()
		if rangeErr != nil {
			s.logger.Warn("skipping malformed schedule entry", zap.String("schedule_id", entry.ID), zap.Error(rangeErr))
			continue
		}

		agg.totalHours += entryRange.Hours()
		agg.sessions = append(agg.sessions, dto.RoomSession{
			ScheduleID:  entry.ID,
			ClassName:   entry.ClassName,
			SubjectName: entry.SubjectName,
			DayOfWeek:   entry.DayOfWeek,
			DayName:     models.DayName(entry.DayOfWeek),
			TimeRange:   fmt.Sprintf("%s-%s", entry.StartTime, entry.EndTime),
			Hours:       entryRange.Hours(),
		})

		conflicts, err := s.detectForEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		agg.conflicts = append(agg.conflicts, conflicts...)
	}

	response := &dto.RoomUtilizationResponse{Rooms: []dto.RoomUtilization{}}
	for _, agg := range rooms {
		if agg.conflicts == nil {
			agg.conflicts = []string{}
		}
		response.Rooms = append(response.Rooms, dto.RoomUtilization{
			Room:       agg.display,
			TotalHours: agg.totalHours,
			Sessions:   agg.sessions,
			Conflicts:  agg.conflicts,
		})
	}
	sort.Slice(response.Rooms, func(i, j int) bool {
		return response.Rooms[i].TotalHours > response.Rooms[j].TotalHours
	})
	response.TotalRooms = len(response.Rooms)
	return response, nil
}

// CheckEntries validates a proposed schedule set for a class and returns the
// advisory conflict descriptions. Hard failures (malformed ranges, subject
// outside the class's subject set) come back as errors; conflicts come back
// as warnings.
func (s *ScheduleService) CheckEntries(ctx context.Context, class *models.ClassDetail, entries []dto.ScheduleEntryRequest, excludeClassID string) ([]string, error) {
	teacherID := ""
	if class.TeacherID != nil {
		teacherID = *class.TeacherID
	}

	var warnings []string
	for _, entry := range entries {
		entryRange, err := models.NewTimeRange(entry.DayOfWeek, entry.StartTime, entry.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		if !class.HasSubject(entry.SubjectID) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("schedule subject %s is not assigned to this class", entry.SubjectID))
		}

		conflicts, err := s.detect(ctx, candidateEntry{
			Range:          entryRange,
			Room:           entry.Room,
			TeacherID:      teacherID,
			ExcludeClassID: excludeClassID,
		})
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, conflicts...)
	}
	return warnings, nil
}

func (s *ScheduleService) detectForEntry(ctx context.Context, entry models.ScheduleEntryDetail) ([]string, error) {
	entryRange, err := entry.TimeRange()
	if err != nil {
		// Persisted rows should always be well formed; a malformed one is
		// reported, not fatal.
		s.logger.Warn("malformed persisted schedule entry", zap.String("schedule_id", entry.ID), zap.Error(err))
		return nil, nil
	}
	teacherID := ""
	if entry.TeacherID != nil {
		teacherID = *entry.TeacherID
	}
	return s.detect(ctx, candidateEntry{
		Range:          entryRange,
		Room:           entry.Room,
		TeacherID:      teacherID,
		ExcludeEntryID: entry.ID,
	})
}

// detect compares the candidate against all other persisted same-day entries.
// Room and teacher checks are independent: one overlapping pair can produce
// zero, one or two conflict messages.
func (s *ScheduleService) detect(ctx context.Context, candidate candidateEntry) ([]string, error) {
	existing, err := s.repo.ListByDay(ctx, candidate.Range.Day, candidate.ExcludeEntryID, candidate.ExcludeClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}

	candidateRoom := strings.TrimSpace(candidate.Room)

	var conflicts []string
	for _, other := range existing {
		otherRange, rangeErr := other.TimeRange()
		if rangeErr != nil {
			continue
		}
		if !candidate.Range.Overlaps(otherRange) {
			continue
		}

		otherRoom := strings.TrimSpace(other.Room)
		if candidateRoom != "" && otherRoom != "" && strings.EqualFold(candidateRoom, otherRoom) {
			conflicts = append(conflicts, fmt.Sprintf("Room conflict: %s is already booked at %s-%s for class %s",
				otherRoom, other.StartTime, other.EndTime, other.ClassName))
		}

		if candidate.TeacherID != "" && other.TeacherID != nil && *other.TeacherID == candidate.TeacherID {
			name := candidate.TeacherID
			if other.TeacherName != nil {
				name = *other.TeacherName
			}
			conflicts = append(conflicts, fmt.Sprintf("Teacher conflict: %s is already scheduled at %s-%s",
				name, other.StartTime, other.EndTime))
		}
	}
	return conflicts, nil
}

func (s *ScheduleService) loadClass(ctx context.Context, classID string) (*models.ClassDetail, error) {
	class, err := s.classes.FindDetailByID(ctx, classID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrReference, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}
