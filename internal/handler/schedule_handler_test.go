package handler

import (
	"bytes"
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
	appErrors "github.com/emadrasa/emadrasa-api/pkg/errors"
)

type scheduleServiceMock struct {
	listResp     []models.ScheduleEntryDetail
	validateResp *dto.ValidateScheduleResponse
	validateErr  error
	reportResp   *dto.ConflictReportResponse
	roomsResp    *dto.RoomUtilizationResponse
}

func (m *scheduleServiceMock) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntryDetail, error) {
	return m.listResp, nil
}

func (m *scheduleServiceMock) Validate(ctx context.Context, req dto.ValidateScheduleRequest) (*dto.ValidateScheduleResponse, error) {
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	return m.validateResp, nil
}

func (m *scheduleServiceMock) ConflictReport(ctx context.Context) (*dto.ConflictReportResponse, error) {
	return m.reportResp, nil
}

func (m *scheduleServiceMock) RoomUtilization(ctx context.Context) (*dto.RoomUtilizationResponse, error) {
	return m.roomsResp, nil
}

func TestScheduleHandlerValidateReturnsConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleServiceMock{validateResp: &dto.ValidateScheduleResponse{
		Valid:     false,
		Conflicts: []string{"Room conflict: Lab 1 is already booked at 08:00-09:30 for class Grade 8B"},
	}}
	handler := NewScheduleHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ValidateScheduleRequest{
		ClassID: "class-1", SubjectID: "subj-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", Room: "Lab 1",
	})
	req, _ := http.NewRequest(http.MethodPost, "/schedule/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code, "conflicts are reported, not rejected")

	var envelope struct {
		Data dto.ValidateScheduleResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Data.Valid)
	assert.Len(t, envelope.Data.Conflicts, 1)
}

func TestScheduleHandlerValidateMalformedRange(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleServiceMock{validateErr: appErrors.Clone(appErrors.ErrValidation, "start time 10:00 must be before end time 09:00")}
	handler := NewScheduleHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.ValidateScheduleRequest{
		ClassID: "class-1", SubjectID: "subj-1", DayOfWeek: 1, StartTime: "10:00", EndTime: "09:00",
	})
	req, _ := http.NewRequest(http.MethodPost, "/schedule/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Validate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerValidateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedule/validate", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Validate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerListRejectsBadDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewScheduleHandler(&scheduleServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedule?dayOfWeek=9", nil)
	c.Request = req

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerRooms(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &scheduleServiceMock{roomsResp: &dto.RoomUtilizationResponse{
		TotalRooms: 1,
		Rooms: []dto.RoomUtilization{
			{Room: "Lab 1", TotalHours: 3.5, Sessions: []dto.RoomSession{}, Conflicts: []string{}},
		},
	}}
	handler := NewScheduleHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedule/rooms", nil)
	c.Request = req

	handler.Rooms(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.RoomUtilizationResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.TotalRooms)
	assert.Equal(t, "Lab 1", envelope.Data.Rooms[0].Room)
}
