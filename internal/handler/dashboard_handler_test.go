package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emadrasa/emadrasa-api/internal/dto"
	"github.com/emadrasa/emadrasa-api/internal/models"
)

type dashboardServiceStub struct {
	stats    *dto.DashboardStatsResponse
	hit      bool
	err      error
	snapshot models.SystemMetricsSnapshot
}

func (s *dashboardServiceStub) Stats(context.Context) (*dto.DashboardStatsResponse, bool, error) {
	return s.stats, s.hit, s.err
}

func (s *dashboardServiceStub) SystemMetrics() models.SystemMetricsSnapshot {
	return s.snapshot
}

func TestDashboardHandlerStatsSurfacesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &dashboardServiceStub{
		stats: &dto.DashboardStatsResponse{Totals: dto.DashboardTotals{Students: 120}},
		hit:   true,
	}
	handler := NewDashboardHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.DashboardStatsResponse `json:"data"`
		Meta map[string]interface{}     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 120, envelope.Data.Totals.Students)
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestDashboardHandlerStatsReportsMiss(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &dashboardServiceStub{stats: &dto.DashboardStatsResponse{}}
	handler := NewDashboardHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}
