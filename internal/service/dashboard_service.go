package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

const (
	dashboardStatsCacheKey = "dashboard:stats"
	dashboardCachePattern  = "dashboard:*"
)

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

type enrollmentStatsReader interface {
	CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error)
}

type roomUtilizationReader interface {
	RoomUtilization(ctx context.Context) (*dto.RoomUtilizationResponse, error)
}

// DashboardService aggregates entity counts, enrollment breakdowns and room
// load into one payload. The aggregate touches every table, so results are
// cached in Redis and invalidated on any write that shifts the numbers.
type DashboardService struct {
	schools     entityCounter
	teachers    entityCounter
	students    entityCounter
	classes     entityCounter
	subjects    entityCounter
	enrollments enrollmentStatsReader
	rooms       roomUtilizationReader
	cache       *CacheService
	metrics     *MetricsService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService instantiates DashboardService.
func NewDashboardService(
	schools, teachers, students, classes, subjects entityCounter,
	enrollments enrollmentStatsReader,
	rooms roomUtilizationReader,
	cache *CacheService,
	metrics *MetricsService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		schools:     schools,
		teachers:    teachers,
		students:    students,
		classes:     classes,
		subjects:    subjects,
		enrollments: enrollments,
		rooms:       rooms,
		cache:       cache,
		metrics:     metrics,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// Stats returns the dashboard aggregate and whether it was served from cache.
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStatsResponse, bool, error) {
	var cached dto.DashboardStatsResponse
	if hit, err := s.cache.Get(ctx, dashboardStatsCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := s.cache.Set(ctx, dashboardStatsCacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
	}
	return stats, false, nil
}

// Invalidate drops the cached dashboard aggregate. Write paths call this
// after any change to enrollments, classes or schedules.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// SystemMetrics exposes the runtime metrics snapshot for the admin dashboard.
func (s *DashboardService) SystemMetrics() models.SystemMetricsSnapshot {
	return s.metrics.Snapshot()
}

func (s *DashboardService) compute(ctx context.Context) (*dto.DashboardStatsResponse, error) {
	stats := &dto.DashboardStatsResponse{}

	counts := []struct {
		counter entityCounter
		dest    *int
		label   string
	}{
		{s.schools, &stats.Totals.Schools, "schools"},
		{s.teachers, &stats.Totals.Teachers, "teachers"},
		{s.students, &stats.Totals.Students, "students"},
		{s.classes, &stats.Totals.Classes, "classes"},
		{s.subjects, &stats.Totals.Subjects, "subjects"},
	}
	start := time.Now()
	for _, item := range counts {
		count, err := item.counter.Count(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count "+item.label)
		}
		*item.dest = count
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("dashboard_counts", time.Since(start))
	}

	start = time.Now()
	byStatus, err := s.enrollments.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("dashboard_enrollments", time.Since(start))
	}
	stats.Enrollments = dto.EnrollmentStatusBreakdown{
		Active:      byStatus[models.EnrollmentStatusActive],
		Inactive:    byStatus[models.EnrollmentStatusInactive],
		Transferred: byStatus[models.EnrollmentStatusTransferred],
		Graduated:   byStatus[models.EnrollmentStatusGraduated],
	}

	start = time.Now()
	utilization, err := s.rooms.RoomUtilization(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("dashboard_rooms", time.Since(start))
	}
	stats.Rooms.TotalRooms = utilization.TotalRooms
	for _, room := range utilization.Rooms {
		stats.Rooms.TotalConflicts += len(room.Conflicts)
	}
	if len(utilization.Rooms) > 0 {
		// Rooms arrive sorted by total hours descending.
		stats.Rooms.BusiestRoom = utilization.Rooms[0].Room
		stats.Rooms.BusiestHours = utilization.Rooms[0].TotalHours
	}
	return stats, nil
}
