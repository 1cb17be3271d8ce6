package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type mockService struct{ mock.Mock }

func (m *mockService) ListReports(ctx context.Context, c Caller) ([]models.ReportSummary, error) {
	args := m.Called(ctx, c)
	list, _ := args.Get(0).([]models.ReportSummary)
	return list, args.Error(1)
}

func (m *mockService) GetReport(ctx context.Context, c Caller, id string) (*models.ReportConfig, error) {
	args := m.Called(ctx, c, id)
	r, _ := args.Get(0).(*models.ReportConfig)
	return r, args.Error(1)
}

func (m *mockService) CreateReport(ctx context.Context, c Caller, r *models.ReportConfig) (string, error) {
	args := m.Called(ctx, c, r)
	return args.String(0), args.Error(1)
}

func (m *mockService) UpdateReport(ctx context.Context, c Caller, id string, r *models.ReportConfig) error {
	return m.Called(ctx, c, id, r).Error(0)
}

func (m *mockService) DeleteReport(ctx context.Context, c Caller, id string) error {
	return m.Called(ctx, c, id).Error(0)
}

func (m *mockService) Preview(ctx context.Context, c Caller, r *models.ReportConfig) (*models.PreviewResult, error) {
	args := m.Called(ctx, c, r)
	res, _ := args.Get(0).(*models.PreviewResult)
	return res, args.Error(1)
}

func (m *mockService) ExportPreview(ctx context.Context, c Caller, r *models.ReportConfig) ([]byte, string, error) {
	args := m.Called(ctx, c, r)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

var devCaller = Caller{OrgID: "dev-org", UserID: "dev-admin-id"}

func newTestApp(svc ReportService) *fiber.App {
	app := fiber.New()
	NewReportApi(NewReportController(svc, zap.NewNop()), &config.Config{SkipAuth: true}).Setup(app)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*httptestResponse, models.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env models.Response
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return &httptestResponse{Status: resp.StatusCode, Header: resp.Header.Get, Body: raw}, env
}

type httptestResponse struct {
	Status int
	Header func(string) string
	Body   []byte
}

func TestController_List(t *testing.T) {
	svc := &mockService{}
	svc.On("ListReports", mock.Anything, devCaller).Return([]models.ReportSummary{{ID: "r1", Title: "Pipeline"}}, nil)

	resp, env := do(t, newTestApp(svc), "GET", "/api/reports", nil)
	assert.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, models.CodeOK, env.Code)
	assert.Len(t, env.Content, 1)
}

func TestController_CreateValidation(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateReport", mock.Anything, devCaller, mock.Anything).Return("", invalid("title is required"))

	resp, env := do(t, newTestApp(svc), "POST", "/api/reports", models.ReportConfig{})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, models.CodeInvalid, env.Code)
	assert.Contains(t, env.Message, "title is required")
}

func TestController_CreateRejectsUnknownComponent(t *testing.T) {
	svc := &mockService{}
	body := map[string]any{
		"title":          "x",
		"displayedCards": []map[string]any{{"id": "c", "component": "SoftphoneCard"}},
	}
	resp, env := do(t, newTestApp(svc), "POST", "/api/reports", body)
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, models.CodeInvalid, env.Code)
	svc.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestController_Create(t *testing.T) {
	svc := &mockService{}
	svc.On("CreateReport", mock.Anything, devCaller, mock.MatchedBy(func(r *models.ReportConfig) bool {
		return r.Title == "Q1"
	})).Return("abc", nil)

	resp, env := do(t, newTestApp(svc), "POST", "/api/reports", models.ReportConfig{Title: "Q1"})
	assert.Equal(t, fiber.StatusCreated, resp.Status)
	assert.Equal(t, map[string]any{"id": "abc"}, env.Content)
}

func TestController_GetNotFound(t *testing.T) {
	svc := &mockService{}
	svc.On("GetReport", mock.Anything, devCaller, "missing").Return(nil, ErrNotFound)

	resp, env := do(t, newTestApp(svc), "GET", "/api/reports/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.Status)
	assert.Equal(t, models.CodeNotFound, env.Code)
}

func TestController_InternalErrorIsHidden(t *testing.T) {
	svc := &mockService{}
	svc.On("DeleteReport", mock.Anything, devCaller, "r1").Return(errors.New("connection reset by peer"))

	resp, env := do(t, newTestApp(svc), "DELETE", "/api/reports/r1", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.Status)
	assert.Equal(t, models.CodeInternal, env.Code)
	assert.Equal(t, "Failed to delete report", env.Message)
}

func TestController_UpdateDefault(t *testing.T) {
	svc := &mockService{}
	svc.On("UpdateReport", mock.Anything, devCaller, "default", mock.Anything).Return(ErrDefaultReadOnly)

	resp, env := do(t, newTestApp(svc), "PUT", "/api/reports/default", models.ReportConfig{Title: "x"})
	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, models.CodeInvalid, env.Code)
}

func TestController_PreviewIsNotTakenForAnID(t *testing.T) {
	svc := &mockService{}
	svc.On("Preview", mock.Anything, devCaller, mock.Anything).Return(&models.PreviewResult{
		Rows:     []map[string]any{{"id": "l1"}},
		Metadata: models.PreviewMetadata{Total: 1},
	}, nil)

	resp, env := do(t, newTestApp(svc), "POST", "/api/reports/preview", models.ReportConfig{})
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Len(t, env.Content, 1)
	meta, ok := env.Metadata.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, meta["total"])
}

func TestController_Export(t *testing.T) {
	f := newServiceFixture()
	f.records.On("Find", mock.Anything, "dev-org", models.SourceLeads, mock.Anything, int64(3)).Return(sampleRecords(), int64(4), nil)

	resp, _ := do(t, newTestApp(f.svc), "POST", "/api/reports/preview/export", models.ReportConfig{Title: "Pipeline"})
	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Contains(t, resp.Header(fiber.HeaderContentDisposition), "pipeline_report_")

	book, err := excelize.OpenReader(bytes.NewReader(resp.Body))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{"Rows", "Summary"}, book.GetSheetList())

	rows, err := book.GetRows("Rows")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, RowColumns, rows[0])
	assert.Equal(t, "l1", rows[1][0])
}
