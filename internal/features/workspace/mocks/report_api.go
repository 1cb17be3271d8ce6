package mocks

import (
	"context"
	"sync"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/features/workspace"

	"github.com/stretchr/testify/mock"
)

// ReportAPI is a mock for workspace.ReportAPI.
type ReportAPI struct {
	mock.Mock
}

func (m *ReportAPI) ListReports(ctx context.Context) ([]models.ReportSummary, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]models.ReportSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportAPI) GetReport(ctx context.Context, id string) (*models.ReportConfig, error) {
	args := m.Called(ctx, id)
	if cfg, ok := args.Get(0).(*models.ReportConfig); ok {
		return cfg.Clone(), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ReportAPI) UpdateReport(ctx context.Context, id string, cfg *models.ReportConfig) error {
	args := m.Called(ctx, id, cfg)
	return args.Error(0)
}

func (m *ReportAPI) CreateReport(ctx context.Context, cfg *models.ReportConfig) (string, error) {
	args := m.Called(ctx, cfg)
	return args.String(0), args.Error(1)
}

func (m *ReportAPI) DeleteReport(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ReportAPI) Preview(ctx context.Context, cfg *models.ReportConfig) (*models.PreviewResult, error) {
	args := m.Called(ctx, cfg)
	if res, ok := args.Get(0).(*models.PreviewResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier records notices.
type Notifier struct {
	mu       sync.Mutex
	Messages []string
}

func (n *Notifier) Notify(_ workspace.NoticeLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages = append(n.Messages, message)
}

func (n *Notifier) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Messages) == 0 {
		return ""
	}
	return n.Messages[len(n.Messages)-1]
}
