package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/config"
	"go-crm-reports/internal/features/audit"
	"go-crm-reports/internal/features/layout"
	"go-crm-reports/pkg/condition"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Caller is the authenticated user a request acts for.
type Caller struct {
	OrgID  string
	UserID string
}

type ReportService interface {
	ListReports(ctx context.Context, caller Caller) ([]models.ReportSummary, error)
	GetReport(ctx context.Context, caller Caller, id string) (*models.ReportConfig, error)
	CreateReport(ctx context.Context, caller Caller, report *models.ReportConfig) (string, error)
	UpdateReport(ctx context.Context, caller Caller, id string, report *models.ReportConfig) error
	DeleteReport(ctx context.Context, caller Caller, id string) error
	Preview(ctx context.Context, caller Caller, report *models.ReportConfig) (*models.PreviewResult, error)
	ExportPreview(ctx context.Context, caller Caller, report *models.ReportConfig) ([]byte, string, error)
}

type ReportServiceImpl struct {
	ReportRepo   ReportRepository
	RecordRepo   RecordRepository
	AuditService audit.AuditService
	limit        int64
	timeout      time.Duration
	log          *zap.Logger
	now          func() time.Time
}

func NewReportService(reportRepo ReportRepository, recordRepo RecordRepository, auditService audit.AuditService, cfg *config.Config, log *zap.Logger) ReportService {
	return &ReportServiceImpl{
		ReportRepo:   reportRepo,
		RecordRepo:   recordRepo,
		AuditService: auditService,
		limit:        cfg.PreviewLimit,
		timeout:      cfg.QueryTimeout,
		log:          log,
		now:          time.Now,
	}
}

func (s *ReportServiceImpl) ListReports(ctx context.Context, caller Caller) ([]models.ReportSummary, error) {
	return s.ReportRepo.List(ctx, caller.OrgID)
}

// GetReport serves the virtual default report without touching storage.
func (s *ReportServiceImpl) GetReport(ctx context.Context, caller Caller, id string) (*models.ReportConfig, error) {
	if id == models.DefaultReportID {
		return layout.DefaultConfig(), nil
	}
	report, err := s.ReportRepo.Get(ctx, caller.OrgID, id)
	if err != nil {
		return nil, err
	}
	report, _ = layout.ReconcilePivotDefaults(report)
	return report, nil
}

func (s *ReportServiceImpl) CreateReport(ctx context.Context, caller Caller, report *models.ReportConfig) (string, error) {
	if err := s.prepare(report); err != nil {
		return "", err
	}
	report.ID = uuid.NewString()
	report.OrgID = caller.OrgID
	report.CreatedBy = caller.UserID

	if err := s.ReportRepo.Create(ctx, report); err != nil {
		return "", fmt.Errorf("creating report: %w", err)
	}
	s.record(ctx, caller, models.AuditActionCreate, report.ID, map[string]models.Change{
		"report": {New: report.Title},
	})
	return report.ID, nil
}

func (s *ReportServiceImpl) UpdateReport(ctx context.Context, caller Caller, id string, report *models.ReportConfig) error {
	if id == models.DefaultReportID {
		return ErrDefaultReadOnly
	}
	if err := s.prepare(report); err != nil {
		return err
	}
	old, err := s.ReportRepo.Get(ctx, caller.OrgID, id)
	if err != nil {
		return err
	}
	if err := s.ReportRepo.Update(ctx, caller.OrgID, id, report); err != nil {
		return err
	}
	s.record(ctx, caller, models.AuditActionUpdate, id, diff(old, report))
	return nil
}

func (s *ReportServiceImpl) DeleteReport(ctx context.Context, caller Caller, id string) error {
	if id == models.DefaultReportID {
		return ErrDefaultReadOnly
	}
	if err := s.ReportRepo.Delete(ctx, caller.OrgID, id); err != nil {
		return err
	}
	s.record(ctx, caller, models.AuditActionDelete, id, nil)
	return nil
}

// Preview runs the report's conditions against its data source and renders
// every displayed card. At most the configured number of rows is returned;
// the cards are computed from the same rows.
func (s *ReportServiceImpl) Preview(ctx context.Context, caller Caller, report *models.ReportConfig) (*models.PreviewResult, error) {
	if report == nil {
		return nil, invalid("report config is required")
	}
	source := report.DataSource.Source
	if source == "" {
		source = models.SourceLeads
	}

	compiler := condition.NewCompiler(nil)
	compiler.Now = s.now
	filter, err := compiler.Compile(report.DataSource.Conditions)
	if err != nil {
		return nil, invalid("%v", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	records, total, err := s.RecordRepo.Find(ctx, caller.OrgID, source, filter, s.limit)
	if err != nil {
		return nil, err
	}

	cards := make(map[string]models.CardData, len(report.DisplayedCards))
	for _, card := range layout.Normalize(report.DisplayedCards) {
		data, err := CardData(card, records)
		if err != nil {
			return nil, err
		}
		cards[card.ID] = data
	}

	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}

	s.log.Debug("preview computed",
		zap.String("org_id", caller.OrgID),
		zap.String("report_id", report.ID),
		zap.Int64("total", total),
		zap.Int("rows", len(rows)),
		zap.Duration("took", s.now().Sub(start)),
	)

	return &models.PreviewResult{
		Rows: rows,
		Metadata: models.PreviewMetadata{
			Total:     total,
			Truncated: total > int64(len(rows)),
			Cards:     cards,
			Generated: s.now().UTC(),
		},
	}, nil
}

// ExportPreview renders Preview as a workbook and names the file after the
// report title.
func (s *ReportServiceImpl) ExportPreview(ctx context.Context, caller Caller, report *models.ReportConfig) ([]byte, string, error) {
	res, err := s.Preview(ctx, caller, report)
	if err != nil {
		return nil, "", err
	}
	data, err := exportWorkbook(report, res)
	if err != nil {
		return nil, "", fmt.Errorf("building workbook: %w", err)
	}
	if report.ID != "" && report.ID != models.DefaultReportID {
		s.record(ctx, caller, models.AuditActionExport, report.ID, nil)
	}
	return data, exportFilename(report.Title, s.now()), nil
}

// prepare validates a report sent by a client and fills in what it may
// leave out: the source, the default layout and the card catalog split.
func (s *ReportServiceImpl) prepare(report *models.ReportConfig) error {
	if report == nil {
		return invalid("report config is required")
	}
	report.Title = strings.TrimSpace(report.Title)
	if report.Title == "" {
		return invalid("title is required")
	}

	switch report.DataSource.Source {
	case "":
		report.DataSource.Source = models.SourceLeads
	case models.SourceLeads, models.SourceCustomers:
	default:
		return invalid("unknown data source %q", report.DataSource.Source)
	}

	if report.DataSource.Conditions == nil || !report.DataSource.Conditions.HasGroups() {
		report.DataSource.Conditions = layout.DefaultConfig().DataSource.Conditions
	}
	if _, err := condition.NewCompiler(nil).Compile(report.DataSource.Conditions); err != nil {
		return invalid("%v", err)
	}

	cards := layout.Normalize(report.DisplayedCards)
	if len(cards) == 0 {
		cards = layout.DefaultCards()
	}
	report.DisplayedCards = layout.ReconcileCards(cards)
	report.AvailableCards = layout.Partition(report.DisplayedCards)
	return nil
}

func (s *ReportServiceImpl) record(ctx context.Context, caller Caller, action models.AuditAction, id string, changes map[string]models.Change) {
	if s.AuditService == nil {
		return
	}
	// The audit trail is best effort; the service logs its own failures.
	_ = s.AuditService.LogChange(ctx, audit.Actor{OrgID: caller.OrgID, UserID: caller.UserID}, action, "reports", id, changes)
}

func diff(old, updated *models.ReportConfig) map[string]models.Change {
	changes := map[string]models.Change{}
	if old.Title != updated.Title {
		changes["title"] = models.Change{Old: old.Title, New: updated.Title}
	}
	if old.Description != updated.Description {
		changes["description"] = models.Change{Old: old.Description, New: updated.Description}
	}
	if old.DataSource.Source != updated.DataSource.Source {
		changes["source"] = models.Change{Old: old.DataSource.Source, New: updated.DataSource.Source}
	}
	changes["displayed_cards"] = models.Change{Old: cardIDs(old.DisplayedCards), New: cardIDs(updated.DisplayedCards)}
	return changes
}

func cardIDs(cards []models.CardSpec) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}
