package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type fakeCounter struct {
	n   int
	err error
}

func (f *fakeCounter) Count(context.Context) (int, error) {
	return f.n, f.err
}

type fakeEnrollmentStats struct {
	byStatus map[models.EnrollmentStatus]int
}

func (f *fakeEnrollmentStats) CountByStatus(context.Context) (map[models.EnrollmentStatus]int, error) {
	return f.byStatus, nil
}

type fakeRoomReader struct {
	resp *dto.RoomUtilizationResponse
}

func (f *fakeRoomReader) RoomUtilization(context.Context) (*dto.RoomUtilizationResponse, error) {
	return f.resp, nil
}

// memoryCacheRepo keeps JSON payloads in a map so cache behaviour can be
// exercised without Redis.
type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = map[string][]byte{}
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(context.Context, string) error {
	m.entries = map[string][]byte{}
	return nil
}

func newDashboardServiceForTest(metrics *MetricsService) *DashboardService {
	cache := NewCacheService(&memoryCacheRepo{}, metrics, time.Minute, zap.NewNop(), true)
	return NewDashboardService(
		&fakeCounter{n: 2}, &fakeCounter{n: 8}, &fakeCounter{n: 120}, &fakeCounter{n: 6}, &fakeCounter{n: 10},
		&fakeEnrollmentStats{byStatus: map[models.EnrollmentStatus]int{
			models.EnrollmentStatusActive:    110,
			models.EnrollmentStatusGraduated: 10,
		}},
		&fakeRoomReader{resp: &dto.RoomUtilizationResponse{
			TotalRooms: 2,
			Rooms: []dto.RoomUtilization{
				{Room: "Lab 1", TotalHours: 6, Conflicts: []string{"Room conflict: Lab 1 is already booked at 08:00-09:30 for class Grade 8B"}},
				{Room: "Room 12", TotalHours: 3},
			},
		}},
		cache, metrics, time.Minute, zap.NewNop())
}

func TestDashboardStatsReportsCacheHit(t *testing.T) {
	svc := newDashboardServiceForTest(NewMetricsService())

	first, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit, "first call computes the aggregate")
	assert.Equal(t, 120, first.Totals.Students)
	assert.Equal(t, "Lab 1", first.Rooms.BusiestRoom)
	assert.Equal(t, 1, first.Rooms.TotalConflicts)

	second, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.True(t, hit, "second call is served from cache")
	assert.Equal(t, first, second)
}

func TestDashboardInvalidateForcesRecompute(t *testing.T) {
	svc := newDashboardServiceForTest(NewMetricsService())

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)

	svc.Invalidate(context.Background())

	_, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardComputeObservesQueryDurations(t *testing.T) {
	metrics := NewMetricsService()
	svc := newDashboardServiceForTest(metrics)

	_, _, err := svc.Stats(context.Background())
	require.NoError(t, err)

	// One observation each for the entity counts, the enrollment breakdown
	// and the room aggregation.
	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 3, snapshot.DBQueryCount)

	_, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.True(t, hit)
	assert.EqualValues(t, 3, metrics.Snapshot().DBQueryCount, "cache hits issue no queries")
}
