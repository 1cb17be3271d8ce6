// Package workspace is the report page controller: it owns the working and
// original copies of a report, turns filter and layout edits into config
// changes, and talks to the report API.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/features/layout"
	"go-crm-reports/pkg/condition"

	"go.uber.org/zap"
)

var (
	ErrEmptyTitle    = errors.New("report title is required")
	ErrVirtualReport = errors.New("the default report cannot be saved or deleted")
	ErrStalePreview  = errors.New("preview superseded by a newer request")
	ErrNoReport      = errors.New("no report is open")
	ErrReportLoading = errors.New("another report is being opened")
	ErrNotLoaded     = errors.New("the report failed to load and shows fallback data")
	ErrUnknownCard   = errors.New("unknown card")
)

// ReportAPI is the remote report service.
type ReportAPI interface {
	ListReports(ctx context.Context) ([]models.ReportSummary, error)
	GetReport(ctx context.Context, id string) (*models.ReportConfig, error)
	UpdateReport(ctx context.Context, id string, cfg *models.ReportConfig) error
	CreateReport(ctx context.Context, cfg *models.ReportConfig) (string, error)
	DeleteReport(ctx context.Context, id string) error
	Preview(ctx context.Context, cfg *models.ReportConfig) (*models.PreviewResult, error)
}

type Session struct {
	api     ReportAPI
	layouts *layout.Store
	codec   *condition.Codec
	notify  Notifier
	log     *zap.Logger

	mu       sync.Mutex
	reportID string
	// pending is the report an Open in flight is loading. reportID and
	// working only change together once it completes.
	pending  string
	degraded bool
	original *models.ReportConfig
	working  *models.ReportConfig
	filter   condition.FilterState

	seq     uint64
	cancel  context.CancelFunc
	loading bool
	preview *models.PreviewResult
}

func NewSession(api ReportAPI, layouts *layout.Store, codec *condition.Codec, notify Notifier, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = LogNotifier{Log: log}
	}
	return &Session{api: api, layouts: layouts, codec: codec, notify: notify, log: log}
}

// Reports lists the saved reports, with the virtual default report first.
func (s *Session) Reports(ctx context.Context) ([]models.ReportSummary, error) {
	list, err := s.api.ListReports(ctx)
	if err != nil {
		s.notify.Notify(NoticeError, messageFor("Failed to load reports", err))
		return nil, err
	}
	out := []models.ReportSummary{{ID: models.DefaultReportID, Title: layout.DefaultConfig().Title}}
	return append(out, list...), nil
}

// Open switches to reportID. Any in-flight preview for the previous report
// is cancelled. A failed fetch is reported and the layout falls back to the
// local entry or the template; Open itself only fails on a cancelled ctx.
func (s *Session) Open(ctx context.Context, reportID string) error {
	if reportID == "" {
		reportID = models.DefaultReportID
	}

	s.mu.Lock()
	s.stopPreviewLocked()
	s.pending = reportID
	s.mu.Unlock()

	var remote *models.ReportConfig
	if reportID != models.DefaultReportID {
		cfg, err := s.api.GetReport(ctx, reportID)
		if err != nil {
			if ctx.Err() != nil {
				s.mu.Lock()
				if s.pending == reportID {
					s.pending = ""
				}
				s.mu.Unlock()
				return ctx.Err()
			}
			s.log.Warn("loading report failed, using local layout", zap.String("report_id", reportID), zap.Error(err))
			s.notify.Notify(NoticeError, messageFor("Failed to load report", err))
		} else {
			remote = cfg
		}
	}

	base := remote
	if base == nil {
		base = layout.DefaultConfig()
		base.ID = reportID
	}
	cfg := base.Clone()
	cfg.DisplayedCards = s.layouts.Resolve(ctx, reportID, remote)
	cfg.AvailableCards = layout.Partition(cfg.DisplayedCards)
	cfg, _ = layout.ReconcilePivotDefaults(cfg)

	filter := s.codec.FilterStateFromTree(cfg.DataSource.Conditions)
	cfg.DataSource.Conditions = condition.ApplyFilterState(cfg.DataSource.Conditions, filter)
	if cfg.DataSource.Source == "" {
		cfg.DataSource.Source = models.SourceLeads
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != reportID {
		// Another Open won the race.
		return nil
	}
	s.pending = ""
	s.reportID = reportID
	s.degraded = reportID != models.DefaultReportID && remote == nil
	s.original = cfg
	s.working = cfg.Clone()
	s.filter = filter
	s.preview = nil
	return nil
}

// readyLocked reports whether edits can be applied: a report is open and
// no other one is being loaded in its place.
func (s *Session) readyLocked() error {
	if s.pending != "" {
		return ErrReportLoading
	}
	if s.working == nil {
		return ErrNoReport
	}
	return nil
}

// Degraded reports whether the open report failed to load and shows the
// local or default layout instead.
func (s *Session) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// ReportID is the open report.
func (s *Session) ReportID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportID
}

// Working returns a copy of the edited config.
func (s *Session) Working() *models.ReportConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

// Original returns a copy of the last saved config.
func (s *Session) Original() *models.ReportConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original.Clone()
}

func (s *Session) Filter() condition.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Dirty reports whether there is anything to save or discard.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HasChanges(s.original, s.working)
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LastPreview is the most recent applied preview.
func (s *Session) LastPreview() *models.PreviewResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// Filter edits. Each one rewrites the working tree from the filter state.

func (s *Session) SetDateSelect(sel condition.DateSelect) error {
	if !sel.Valid() {
		return fmt.Errorf("unknown date preset %q", sel)
	}
	return s.updateFilter(func(f *condition.FilterState) {
		f.DateSelect = sel
		f.Date = condition.RangeFor(sel, s.codec.Now())
	})
}

func (s *Session) SetDateRange(rng condition.DateRange) error {
	if rng.To.Before(rng.From) {
		return fmt.Errorf("date range ends before it starts")
	}
	return s.updateFilter(func(f *condition.FilterState) {
		f.DateSelect = condition.DateSelectCustom
		f.Date = rng
	})
}

func (s *Session) SetWorkspaces(ws []condition.Workspace) error {
	return s.updateFilter(func(f *condition.FilterState) {
		f.SelectedWorkspaces = append([]condition.Workspace{}, ws...)
	})
}

func (s *Session) SetAssignees(ids []string) error {
	return s.updateFilter(func(f *condition.FilterState) {
		f.SelectedAssigneeIDs = append([]string{}, ids...)
	})
}

// ReplaceConditions swaps the whole working tree, for example with one
// imported from a file, and re-derives the filter state from it.
func (s *Session) ReplaceConditions(tree *condition.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	s.filter = s.codec.FilterStateFromTree(tree)
	s.working.DataSource.Conditions = condition.ApplyFilterState(tree, s.filter)
	return nil
}

func (s *Session) updateFilter(edit func(*condition.FilterState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	edit(&s.filter)
	s.working.DataSource.Conditions = condition.ApplyFilterState(s.working.DataSource.Conditions, s.filter)
	return nil
}

// Layout edits. The local entry is written along with the in-memory change.

func (s *Session) AddCard(ctx context.Context, card models.CardSpec) error {
	return s.updateCards(ctx, func(cards []models.CardSpec) []models.CardSpec {
		return layout.Add(cards, card)
	})
}

// AddCatalogCard adds a catalog card by id.
func (s *Session) AddCatalogCard(ctx context.Context, id string) error {
	card, ok := layout.CatalogCard(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCard, id)
	}
	return s.AddCard(ctx, card)
}

func (s *Session) RemoveCard(ctx context.Context, id string) error {
	return s.updateCards(ctx, func(cards []models.CardSpec) []models.CardSpec {
		return layout.Remove(cards, id)
	})
}

func (s *Session) MoveCardUp(ctx context.Context, id string) error {
	return s.updateCards(ctx, func(cards []models.CardSpec) []models.CardSpec {
		return layout.MoveUp(cards, id)
	})
}

func (s *Session) MoveCardDown(ctx context.Context, id string) error {
	return s.updateCards(ctx, func(cards []models.CardSpec) []models.CardSpec {
		return layout.MoveDown(cards, id)
	})
}

func (s *Session) ReorderCards(ctx context.Context, from, to int) error {
	return s.updateCards(ctx, func(cards []models.CardSpec) []models.CardSpec {
		return layout.Reorder(cards, from, to)
	})
}

func (s *Session) updateCards(ctx context.Context, edit func([]models.CardSpec) []models.CardSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	cards := edit(s.working.DisplayedCards)
	s.working.DisplayedCards = layout.ReconcileCards(cards)
	s.working.AvailableCards = layout.Partition(s.working.DisplayedCards)

	if err := s.layouts.Persist(ctx, s.reportID, s.working.DisplayedCards); err != nil {
		s.log.Warn("persisting local layout failed", zap.String("report_id", s.reportID), zap.Error(err))
		s.notify.Notify(NoticeWarn, "Layout change could not be stored locally")
		return err
	}
	return nil
}

// Refresh fetches preview data for the working config. Only the newest
// request is applied: an older one that finishes late returns
// ErrStalePreview and changes nothing.
func (s *Session) Refresh(ctx context.Context) (*models.PreviewResult, error) {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.stopPreviewLocked()
	s.seq++
	seq := s.seq
	pctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loading = true
	cfg := s.working.Clone()
	s.mu.Unlock()

	res, err := s.api.Preview(pctx, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if seq != s.seq {
		s.log.Debug("dropping stale preview", zap.Uint64("seq", seq), zap.Uint64("latest", s.seq))
		return nil, ErrStalePreview
	}
	s.cancel = nil
	s.loading = false
	if err != nil {
		s.notify.Notify(NoticeError, messageFor("Failed to load report data", err))
		return nil, err
	}
	s.preview = res
	return res, nil
}

func (s *Session) stopPreviewLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	// Bumping seq makes any reply still on its way stale.
	s.seq++
	s.loading = false
}

// Save commits the working copy. On failure the working copy stays as it is
// so the user can retry.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	reportID := s.reportID
	if reportID == models.DefaultReportID {
		s.mu.Unlock()
		s.notify.Notify(NoticeWarn, "Create a report to save these settings")
		return ErrVirtualReport
	}
	if s.degraded {
		s.mu.Unlock()
		s.notify.Notify(NoticeError, "The report did not load, reopen it before saving")
		return ErrNotLoaded
	}
	cfg := s.working.Clone()
	s.mu.Unlock()

	if err := s.api.UpdateReport(ctx, reportID, cfg); err != nil {
		s.notify.Notify(NoticeError, messageFor("Failed to save report", err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reportID == reportID {
		s.original = cfg
	}
	s.notify.Notify(NoticeInfo, "Report saved")
	return nil
}

// Reset discards the working copy.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	s.working = s.original.Clone()
	s.filter = s.codec.FilterStateFromTree(s.working.DataSource.Conditions)
	if err := s.layouts.Persist(ctx, s.reportID, s.working.DisplayedCards); err != nil {
		s.log.Warn("persisting local layout failed", zap.String("report_id", s.reportID), zap.Error(err))
	}
	return nil
}

// Create saves a new report seeded from the current filters and the default
// layout, then opens it. The title is checked before anything is sent.
func (s *Session) Create(ctx context.Context, title, description string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		s.notify.Notify(NoticeWarn, "Please enter a report title")
		return "", ErrEmptyTitle
	}

	s.mu.Lock()
	filter := s.filter
	source := models.SourceLeads
	if s.working != nil {
		source = s.working.DataSource.Source
	} else {
		filter = s.codec.DefaultFilterState()
	}
	s.mu.Unlock()

	cards := layout.ReconcileCards(layout.DefaultCards())
	cfg := &models.ReportConfig{
		Title:       title,
		Description: strings.TrimSpace(description),
		DataSource: models.DataSource{
			Conditions: condition.ApplyFilterState(condition.NewTree(), filter),
			Source:     source,
		},
		AvailableCards: layout.Partition(cards),
		DisplayedCards: cards,
	}

	id, err := s.api.CreateReport(ctx, cfg)
	if err != nil {
		s.notify.Notify(NoticeError, messageFor("Failed to create report", err))
		return "", err
	}
	if err := s.layouts.Persist(ctx, id, cards); err != nil {
		s.log.Warn("persisting local layout failed", zap.String("report_id", id), zap.Error(err))
	}
	s.notify.Notify(NoticeInfo, "Report created")
	return id, s.Open(ctx, id)
}

// Delete removes the open report and switches to the default one.
func (s *Session) Delete(ctx context.Context) error {
	s.mu.Lock()
	err := s.readyLocked()
	reportID := s.reportID
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if reportID == models.DefaultReportID {
		s.notify.Notify(NoticeWarn, "The default report cannot be deleted")
		return ErrVirtualReport
	}
	if err := s.api.DeleteReport(ctx, reportID); err != nil {
		s.notify.Notify(NoticeError, messageFor("Failed to delete report", err))
		return err
	}
	if err := s.layouts.Forget(ctx, reportID); err != nil {
		s.log.Warn("removing local layout failed", zap.String("report_id", reportID), zap.Error(err))
	}
	s.notify.Notify(NoticeInfo, "Report deleted")
	return s.Open(ctx, models.DefaultReportID)
}
