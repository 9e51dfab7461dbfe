package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/emadrasa/emadrasa-api/internal/service"
)

func newReadinessRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	Register(r, Handlers{}, Deps{
		Metrics: service.NewMetricsService(),
		DB:      sqlx.NewDb(db, "sqlmock"),
	})
	return r, mock
}

func TestReadyReportsOKWhenDatabaseResponds(t *testing.T) {
	r, mock := newReadinessRouter(t)
	mock.ExpectPing()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadyReportsUnavailableWhenDatabaseIsDown(t *testing.T) {
	r, mock := newReadinessRouter(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
