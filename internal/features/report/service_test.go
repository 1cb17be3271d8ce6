package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/config"
	"go-crm-reports/internal/features/audit"
	"go-crm-reports/internal/features/layout"
	"go-crm-reports/pkg/condition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type mockReportRepo struct{ mock.Mock }

func (m *mockReportRepo) Create(ctx context.Context, r *models.ReportConfig) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReportRepo) Get(ctx context.Context, orgID, id string) (*models.ReportConfig, error) {
	args := m.Called(ctx, orgID, id)
	r, _ := args.Get(0).(*models.ReportConfig)
	return r, args.Error(1)
}

func (m *mockReportRepo) List(ctx context.Context, orgID string) ([]models.ReportSummary, error) {
	args := m.Called(ctx, orgID)
	list, _ := args.Get(0).([]models.ReportSummary)
	return list, args.Error(1)
}

func (m *mockReportRepo) Update(ctx context.Context, orgID, id string, r *models.ReportConfig) error {
	return m.Called(ctx, orgID, id, r).Error(0)
}

func (m *mockReportRepo) Delete(ctx context.Context, orgID, id string) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *mockReportRepo) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockRecordRepo struct{ mock.Mock }

func (m *mockRecordRepo) Find(ctx context.Context, orgID, source string, filter bson.M, limit int64) ([]Record, int64, error) {
	args := m.Called(ctx, orgID, source, filter, limit)
	rows, _ := args.Get(0).([]Record)
	return rows, args.Get(1).(int64), args.Error(2)
}

type mockAudit struct{ mock.Mock }

func (m *mockAudit) LogChange(ctx context.Context, actor audit.Actor, action models.AuditAction, module, recordID string, changes map[string]models.Change) error {
	return m.Called(ctx, actor, action, module, recordID, changes).Error(0)
}

func (m *mockAudit) ListLogs(ctx context.Context, orgID string, filters map[string]string, page, limit int64) ([]models.AuditLog, error) {
	args := m.Called(ctx, orgID, filters, page, limit)
	logs, _ := args.Get(0).([]models.AuditLog)
	return logs, args.Error(1)
}

var (
	testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	acme    = Caller{OrgID: "acme", UserID: "u1"}
)

type serviceFixture struct {
	reports *mockReportRepo
	records *mockRecordRepo
	audit   *mockAudit
	svc     *ReportServiceImpl
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{reports: &mockReportRepo{}, records: &mockRecordRepo{}, audit: &mockAudit{}}
	cfg := &config.Config{PreviewLimit: 3, QueryTimeout: time.Second}
	f.svc = NewReportService(f.reports, f.records, f.audit, cfg, zap.NewNop()).(*ReportServiceImpl)
	f.svc.now = func() time.Time { return testNow }
	f.audit.On("LogChange", mock.Anything, mock.Anything, mock.Anything, "reports", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func TestGetReport_DefaultIsVirtual(t *testing.T) {
	f := newServiceFixture()
	cfg, err := f.svc.GetReport(context.Background(), acme, models.DefaultReportID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultReportID, cfg.ID)
	assert.Len(t, cfg.DisplayedCards, 7)
	f.reports.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetReport_FillsPivotDefaults(t *testing.T) {
	f := newServiceFixture()
	f.reports.On("Get", mock.Anything, "acme", "r1").Return(&models.ReportConfig{
		ID:             "r1",
		DisplayedCards: []models.CardSpec{{ID: "card7", Component: models.ComponentPivot, ColSpan: 2}},
	}, nil)

	cfg, err := f.svc.GetReport(context.Background(), acme, "r1")
	require.NoError(t, err)
	assert.Equal(t, layout.DefaultPivotConfig(), cfg.DisplayedCards[0].PivotConfig)
}

func TestCreateReport_RequiresTitle(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.CreateReport(context.Background(), acme, &models.ReportConfig{Title: "  "})
	assert.ErrorIs(t, err, ErrInvalid)
	f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReport_FillsDefaults(t *testing.T) {
	f := newServiceFixture()
	f.reports.On("Create", mock.Anything, mock.MatchedBy(func(r *models.ReportConfig) bool {
		return r.OrgID == "acme" && r.CreatedBy == "u1" && r.Title == "Q1" &&
			r.DataSource.Source == models.SourceLeads &&
			len(r.DisplayedCards) == 7 && len(r.AvailableCards) == 0 &&
			r.DataSource.Conditions.HasGroups()
	})).Return(nil)

	id, err := f.svc.CreateReport(context.Background(), acme, &models.ReportConfig{Title: " Q1 "})
	require.NoError(t, err)
	assert.Len(t, id, 36)
	f.reports.AssertExpectations(t)
	f.audit.AssertCalled(t, "LogChange", mock.Anything, audit.Actor{OrgID: "acme", UserID: "u1"}, models.AuditActionCreate, "reports", id, mock.Anything)
}

func TestCreateReport_RejectsBadConditions(t *testing.T) {
	f := newServiceFixture()
	tree := condition.NewTree()
	tree.Conditions[0].Conditions = []condition.Condition{{ColumnName: "Status", Operator: "~~", Value: "x"}}
	_, err := f.svc.CreateReport(context.Background(), acme, &models.ReportConfig{
		Title:      "bad",
		DataSource: models.DataSource{Conditions: tree},
	})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.svc.CreateReport(context.Background(), acme, &models.ReportConfig{
		Title:      "bad",
		DataSource: models.DataSource{Source: "invoices"},
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateAndDelete_DefaultIsReadOnly(t *testing.T) {
	f := newServiceFixture()
	assert.ErrorIs(t, f.svc.UpdateReport(context.Background(), acme, models.DefaultReportID, &models.ReportConfig{Title: "x"}), ErrDefaultReadOnly)
	assert.ErrorIs(t, f.svc.DeleteReport(context.Background(), acme, models.DefaultReportID), ErrDefaultReadOnly)
}

func TestUpdateReport_NotFound(t *testing.T) {
	f := newServiceFixture()
	f.reports.On("Get", mock.Anything, "acme", "gone").Return(nil, ErrNotFound)

	err := f.svc.UpdateReport(context.Background(), acme, "gone", &models.ReportConfig{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	f.reports.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateReport_AuditsChanges(t *testing.T) {
	f := newServiceFixture()
	f.reports.On("Get", mock.Anything, "acme", "r1").Return(&models.ReportConfig{ID: "r1", Title: "Old"}, nil)
	f.reports.On("Update", mock.Anything, "acme", "r1", mock.Anything).Return(nil)

	require.NoError(t, f.svc.UpdateReport(context.Background(), acme, "r1", &models.ReportConfig{Title: "New"}))
	f.audit.AssertCalled(t, "LogChange", mock.Anything, mock.Anything, models.AuditActionUpdate, "reports", "r1",
		mock.MatchedBy(func(c map[string]models.Change) bool {
			return c["title"].Old == "Old" && c["title"].New == "New"
		}))
}

func TestPreview(t *testing.T) {
	f := newServiceFixture()
	tree := condition.ApplyFilterState(condition.NewTree(), condition.FilterState{
		DateSelect:         condition.DateSelectLast7,
		SelectedWorkspaces: []condition.Workspace{{ID: "w1"}},
	})
	f.records.On("Find", mock.Anything, "acme", models.SourceLeads, mock.MatchedBy(func(filter bson.M) bool {
		and, ok := filter["$and"].([]bson.M)
		return ok && len(and) == 3
	}), int64(3)).Return(sampleRecords()[:3], int64(10), nil)

	res, err := f.svc.Preview(context.Background(), acme, &models.ReportConfig{
		DataSource:     models.DataSource{Conditions: tree},
		DisplayedCards: []models.CardSpec{{ID: "card1", Component: models.ComponentOverview}, {ID: "card7", Component: models.ComponentPivot}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 3)
	assert.EqualValues(t, 10, res.Metadata.Total)
	assert.True(t, res.Metadata.Truncated)
	assert.Equal(t, testNow, res.Metadata.Generated)
	require.Contains(t, res.Metadata.Cards, "card7")
	assert.EqualValues(t, 3, res.Metadata.Cards["card1"].Metrics["total"])
	assert.NotNil(t, res.Metadata.Cards["card7"].Pivot)
	assert.Equal(t, "2024", res.Rows[0]["created_year"])
}

func TestPreview_RepositoryError(t *testing.T) {
	f := newServiceFixture()
	f.records.On("Find", mock.Anything, "acme", models.SourceCustomers, mock.Anything, int64(3)).Return(nil, int64(0), errors.New("socket closed"))

	_, err := f.svc.Preview(context.Background(), acme, &models.ReportConfig{DataSource: models.DataSource{Source: models.SourceCustomers}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}

func TestExportPreview(t *testing.T) {
	f := newServiceFixture()
	f.records.On("Find", mock.Anything, "acme", models.SourceLeads, mock.Anything, int64(3)).Return(sampleRecords(), int64(4), nil)

	data, name, err := f.svc.ExportPreview(context.Background(), acme, &models.ReportConfig{
		ID:             "r1",
		Title:          "Pipeline Q1",
		DisplayedCards: layout.DefaultCards(),
	})
	require.NoError(t, err)
	assert.Equal(t, "pipeline-q1_report_20240315_120000.xlsx", name)
	assert.NotEmpty(t, data)
	f.audit.AssertCalled(t, "LogChange", mock.Anything, mock.Anything, models.AuditActionExport, "reports", "r1", mock.Anything)
}
