package layout

import (
	"context"
	"encoding/json"
	"fmt"

	"go-crm-reports/internal/common/models"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

// KV is the local fallback store: whole string values by key.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

const keyPrefix = "reportLayout_"

// Key is the fallback store key for a report's layout.
func Key(reportID string) string {
	return keyPrefix + reportID
}

type fallbackEntry struct {
	DisplayedCards []models.CardSpec `json:"displayedCards"`
}

// Store resolves and persists a report's displayed cards.
type Store struct {
	kv  KV
	log *zap.Logger
}

func NewStore(kv KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log}
}

// Resolve picks the displayed cards from, in order: the remote config, the
// local fallback entry, the default template. It always returns a non-empty
// list; unreadable sources are logged and skipped.
func (s *Store) Resolve(ctx context.Context, reportID string, remote *models.ReportConfig) []models.CardSpec {
	if remote != nil {
		if cards := Normalize(remote.DisplayedCards); len(cards) > 0 {
			return cards
		}
	}

	if cards, err := s.Load(ctx, reportID); err != nil {
		s.log.Warn("ignoring local layout", zap.String("report_id", reportID), zap.Error(err))
	} else if len(cards) > 0 {
		return cards
	}

	return DefaultCards()
}

// Load reads the fallback entry. A missing entry is (nil, nil).
func (s *Store) Load(ctx context.Context, reportID string) ([]models.CardSpec, error) {
	raw, ok, err := s.kv.Get(ctx, Key(reportID))
	if err != nil {
		return nil, fmt.Errorf("reading local layout: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var entry fallbackEntry
	if err := json.Unmarshal(jsonc.ToJSON([]byte(raw)), &entry); err != nil {
		return nil, fmt.Errorf("decoding local layout: %w", err)
	}
	return Normalize(entry.DisplayedCards), nil
}

// Persist writes the fallback entry. Callers persist together with the
// in-memory edit so a reload before the remote save keeps it.
func (s *Store) Persist(ctx context.Context, reportID string, cards []models.CardSpec) error {
	b, err := json.Marshal(fallbackEntry{DisplayedCards: Normalize(cards)})
	if err != nil {
		return fmt.Errorf("encoding local layout: %w", err)
	}
	if err := s.kv.Set(ctx, Key(reportID), string(b)); err != nil {
		return fmt.Errorf("writing local layout: %w", err)
	}
	return nil
}

// Forget drops the fallback entry of a deleted report.
func (s *Store) Forget(ctx context.Context, reportID string) error {
	if err := s.kv.Remove(ctx, Key(reportID)); err != nil {
		return fmt.Errorf("removing local layout: %w", err)
	}
	return nil
}
