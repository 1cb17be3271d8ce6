package layout

import (
	"slices"

	"go-crm-reports/internal/common/models"
)

// PivotFields returns the card's field layout, or the default layout when
// the stored config is missing or unreadable.
func PivotFields(card models.CardSpec) []models.PivotField {
	if card.PivotConfig != "" {
		if l, err := models.DecodePivotLayout(card.PivotConfig); err == nil {
			return l.Fields
		}
	}
	return slices.Clone(DefaultPivotFields)
}

// ReconcileCards returns cards with the default field config attached to
// every pivot card that has none. The input slice is never modified.
func ReconcileCards(cards []models.CardSpec) []models.CardSpec {
	out := slices.Clone(cards)
	for i := range out {
		if out[i].Component == models.ComponentPivot && out[i].PivotConfig == "" {
			out[i].PivotConfig = DefaultPivotConfig()
		}
	}
	return out
}

// ReconcilePivotDefaults makes sure no displayed pivot card reaches the
// widget without a field config. It returns cfg itself and false when
// nothing needed changing, and a new config and true otherwise.
func ReconcilePivotDefaults(cfg *models.ReportConfig) (*models.ReportConfig, bool) {
	if cfg == nil {
		return nil, false
	}
	needs := slices.ContainsFunc(cfg.DisplayedCards, func(c models.CardSpec) bool {
		return c.Component == models.ComponentPivot && c.PivotConfig == ""
	})
	if !needs {
		return cfg, false
	}
	out := cfg.Clone()
	out.DisplayedCards = ReconcileCards(out.DisplayedCards)
	return out, true
}
