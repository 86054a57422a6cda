package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/edustack/timetable-api/internal/middleware"
	"github.com/edustack/timetable-api/internal/models"
	"github.com/edustack/timetable-api/internal/service"
	"github.com/edustack/timetable-api/pkg/config"
)

type timetableStoreMock struct {
	entries []models.TimetableEntry
}

func (m *timetableStoreMock) ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error {
	m.entries = entries
	return nil
}

func (m *timetableStoreMock) ListAll(ctx context.Context) ([]models.TimetableEntry, error) {
	return m.entries, nil
}

func (m *timetableStoreMock) ListByClass(ctx context.Context, className string) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for _, entry := range m.entries {
		if entry.ClassName == className {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *timetableStoreMock) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error) {
	return nil, nil
}

func (m *timetableStoreMock) DeleteByClass(ctx context.Context, className string) (int64, error) {
	return 0, nil
}

func (m *timetableStoreMock) DeleteAll(ctx context.Context) error {
	m.entries = nil
	return nil
}

type classCatalogMock struct{}

func (m *classCatalogMock) ListAll(ctx context.Context) ([]models.Class, error) {
	return []models.Class{{ID: "c1", Name: "10A", SubjectIDs: []string{"s-math"}}}, nil
}

type teacherCatalogMock struct{}

func (m *teacherCatalogMock) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return []models.Teacher{{ID: "t1", FullName: "Alice Carter", TeachingTypes: []string{"theory"}, SubjectIDs: []string{"s-math"}}}, nil
}

type subjectCatalogMock struct{}

func (m *subjectCatalogMock) ListAll(ctx context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: "s-math", Name: "Mathematics", Code: "MATH", Type: models.SubjectTypeTheory, HoursPerWeek: 2}}, nil
}

func newTimetableTestHandler(store *timetableStoreMock) *TimetableHandler {
	svc := service.NewTimetableService(store, &classCatalogMock{}, &teacherCatalogMock{}, &subjectCatalogMock{},
		nil, nil, nil, config.SchedulerConfig{Seed: 11}, validator.New(), zap.NewNop())
	return NewTimetableHandler(svc, nil)
}

func adminContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
		c.Next()
	}
}

func generatePayload() []byte {
	return []byte(`{"days":["Monday","Tuesday"],"periods_per_day":4,"lunch_after":2}`)
}

func TestTimetableGenerateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &timetableStoreMock{}
	handler := newTimetableTestHandler(store)
	router := gin.New()
	router.Use(adminContext())
	router.POST("/timetables/generate", internalmiddleware.RequireRoles(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(generatePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, store.entries)
}

func TestTimetableGenerateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableTestHandler(&timetableStoreMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"days":`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableGenerateUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableTestHandler(&timetableStoreMock{})
	router := gin.New()
	router.POST("/timetables/generate", internalmiddleware.RequireRoles(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(generatePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableGenerateForbiddenForTeacher(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableTestHandler(&timetableStoreMock{})
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
		c.Next()
	})
	router.POST("/timetables/generate", internalmiddleware.RequireRoles(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(generatePayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTimetableExportCSVHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	subjectID := "s-math"
	teacherID := "t1"
	store := &timetableStoreMock{entries: []models.TimetableEntry{
		{ClassName: "10A", Day: "Monday", Time: "P1", SubjectID: &subjectID, TeacherID: &teacherID, Room: "10A"},
	}}
	handler := newTimetableTestHandler(store)
	router := gin.New()
	router.Use(adminContext())
	router.GET("/timetables/:class/export/csv", handler.ExportCSV)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/10A/export/csv", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "attachment; filename=timetable-10A.csv", w.Header().Get("Content-Disposition"))
	require.Contains(t, w.Body.String(), "Mathematics")
}

func TestTimetableGetByClassNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableTestHandler(&timetableStoreMock{})
	router := gin.New()
	router.Use(adminContext())
	router.GET("/timetables/:class", handler.GetByClass)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/11Z", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
