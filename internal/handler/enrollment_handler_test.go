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

type enrollmentServiceMock struct {
	enrollResp    *models.EnrollmentDetail
	enrollErr     error
	bulkResp      *dto.BulkEnrollResponse
	statusResp    *models.EnrollmentDetail
	statusErr     error
	transferResp  *models.Enrollment
	transferErr   error
	deleteErr     error
	listResp      []models.EnrollmentDetail
	listTotal     int
	receivedQuery models.EnrollmentFilter
}

func (m *enrollmentServiceMock) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	m.receivedQuery = filter
	return m.listResp, m.listTotal, nil
}

func (m *enrollmentServiceMock) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return nil, appErrors.ErrNotFound
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, req dto.EnrollStudentRequest) (*models.EnrollmentDetail, error) {
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return m.enrollResp, nil
}

func (m *enrollmentServiceMock) BulkEnroll(ctx context.Context, req dto.BulkEnrollRequest) (*dto.BulkEnrollResponse, error) {
	return m.bulkResp, nil
}

func (m *enrollmentServiceMock) UpdateStatus(ctx context.Context, id string, req dto.UpdateEnrollmentStatusRequest) (*models.EnrollmentDetail, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.statusResp, nil
}

func (m *enrollmentServiceMock) Transfer(ctx context.Context, id string, req dto.TransferEnrollmentRequest) (*models.Enrollment, error) {
	if m.transferErr != nil {
		return nil, m.transferErr
	}
	return m.transferResp, nil
}

func (m *enrollmentServiceMock) Delete(ctx context.Context, id string) error {
	return m.deleteErr
}

func postJSON(t *testing.T, w *httptest.ResponseRecorder, target string, payload interface{}) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func TestEnrollmentHandlerCreateReturns201(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &enrollmentServiceMock{enrollResp: &models.EnrollmentDetail{
		Enrollment:  models.Enrollment{ID: "enr-1", StudentID: "stu-1", ClassID: "class-1", Status: models.EnrollmentStatusActive},
		StudentName: "Aisha Rahman",
		ClassName:   "Grade 7A",
	}}
	handler := NewEnrollmentHandler(mock)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/enrollments", dto.EnrollStudentRequest{
		StudentID: "stu-1", ClassID: "class-1", AcademicYear: "2026/2027",
	})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.EnrollmentDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "enr-1", envelope.Data.ID)
	assert.Equal(t, models.EnrollmentStatusActive, envelope.Data.Status)
	assert.Equal(t, "Aisha Rahman", envelope.Data.StudentName)
}

func TestEnrollmentHandlerCreateClassFull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &enrollmentServiceMock{enrollErr: appErrors.ErrClassFull}
	handler := NewEnrollmentHandler(mock)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/enrollments", dto.EnrollStudentRequest{
		StudentID: "stu-1", ClassID: "class-1", AcademicYear: "2026/2027",
	})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CLASS_FULL", envelope.Error.Code)
	assert.Equal(t, "Class is full. Maximum students reached.", envelope.Error.Message)
}

func TestEnrollmentHandlerCreateAlreadyEnrolled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &enrollmentServiceMock{enrollErr: appErrors.ErrAlreadyEnrolled}
	handler := NewEnrollmentHandler(mock)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/enrollments", dto.EnrollStudentRequest{
		StudentID: "stu-1", ClassID: "class-1", AcademicYear: "2026/2027",
	})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_ENROLLED", envelope.Error.Code)
}

func TestEnrollmentHandlerBulkPartialSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &enrollmentServiceMock{bulkResp: &dto.BulkEnrollResponse{
		Created: []models.EnrollmentDetail{
			{Enrollment: models.Enrollment{ID: "enr-1", StudentID: "stu-1"}},
			{Enrollment: models.Enrollment{ID: "enr-2", StudentID: "stu-2"}},
		},
		Errors: []string{"stu-3: Student is already enrolled in this class"},
	}}
	handler := NewEnrollmentHandler(mock)

	w := httptest.NewRecorder()
	c := postJSON(t, w, "/enrollments/bulk", dto.BulkEnrollRequest{
		ClassID: "class-1", StudentIDs: []string{"stu-1", "stu-2", "stu-3"}, AcademicYear: "2026/2027",
	})

	handler.Bulk(c)
	require.Equal(t, http.StatusOK, w.Code, "partial failure is still a 200 with per-student errors")

	var envelope struct {
		Data struct {
			Created []models.EnrollmentDetail `json:"created"`
			Errors  []string                  `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Created, 2)
	require.Len(t, envelope.Data.Errors, 1)
	assert.Equal(t, "stu-3: Student is already enrolled in this class", envelope.Data.Errors[0])
}

func TestEnrollmentHandlerUpdateStatusInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/enrollments/enr-1/status", bytes.NewReader([]byte(`garbage`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerListPassesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &enrollmentServiceMock{}
	handler := NewEnrollmentHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/enrollments?classId=class-1&status=active&page=2&pageSize=10", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", mock.receivedQuery.ClassID)
	assert.Equal(t, models.EnrollmentStatusActive, mock.receivedQuery.Status)
	assert.Equal(t, 2, mock.receivedQuery.Page)
	assert.Equal(t, 10, mock.receivedQuery.PageSize)
}

func TestEnrollmentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/enrollments/enr-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}
