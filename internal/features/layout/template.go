package layout

import (
	"encoding/json"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/pkg/condition"
)

// DefaultPivotFields is the field layout a pivot card gets when it has none:
// created year and month across, status down, lead count in the cells.
var DefaultPivotFields = []models.PivotField{
	{UniqueName: "created_year", Area: models.PivotAreaColumn, Caption: "Year"},
	{UniqueName: "created_month", Area: models.PivotAreaColumn, Caption: "Month"},
	{UniqueName: "status", Area: models.PivotAreaRow, Caption: "Status"},
	{UniqueName: "id", Area: models.PivotAreaData, Aggregation: "count", Caption: "Leads"},
}

// DefaultPivotConfig is DefaultPivotFields in stored form.
func DefaultPivotConfig() string {
	b, _ := json.Marshal(models.PivotLayout{Fields: DefaultPivotFields})
	return string(b)
}

// DefaultCards is the canonical seven card layout. The pivot card carries no
// field config; ReconcilePivotDefaults fills it in.
func DefaultCards() []models.CardSpec {
	return []models.CardSpec{
		{ID: "card1", Name: "Overview", Component: models.ComponentOverview, ColSpan: 2, DefaultPosition: 1},
		{ID: "card2", Name: "Lead trend", Component: models.ComponentLeadTrend, ColSpan: 1, DefaultPosition: 2},
		{ID: "card3", Name: "Lead sources", Component: models.ComponentLeadSource, ColSpan: 1, DefaultPosition: 3},
		{ID: "card4", Name: "Lead status", Component: models.ComponentLeadStatus, ColSpan: 1, DefaultPosition: 4},
		{ID: "card5", Name: "Customer growth", Component: models.ComponentCustomerGrowth, ColSpan: 1, DefaultPosition: 5},
		{ID: "card6", Name: "Assignee ranking", Component: models.ComponentAssigneeRanking, ColSpan: 2, DefaultPosition: 6},
		{ID: "card7", Name: "Pivot", Component: models.ComponentPivot, ColSpan: 2, DefaultPosition: 7,
			PivotID: "pivot1", Title: "Leads by status"},
	}
}

// Catalog is every card a report can show.
func Catalog() []models.CardSpec {
	return DefaultCards()
}

// CatalogCard looks a card up by id.
func CatalogCard(id string) (models.CardSpec, bool) {
	for _, c := range Catalog() {
		if c.ID == id {
			return c, true
		}
	}
	return models.CardSpec{}, false
}

// DefaultConfig materializes the virtual default report.
func DefaultConfig() *models.ReportConfig {
	cards := ReconcileCards(DefaultCards())
	tree := condition.UpdateTimeConditions(condition.NewTree(),
		condition.BuildTimeConditions(condition.DateSelectLast30, condition.DateRange{}))
	return &models.ReportConfig{
		ID:          models.DefaultReportID,
		Title:       "Default report",
		Description: "Lead and customer overview for the last 30 days",
		DataSource: models.DataSource{
			Conditions: tree,
			Source:     models.SourceLeads,
		},
		AvailableCards: Partition(cards),
		DisplayedCards: cards,
	}
}
