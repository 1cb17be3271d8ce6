package models

import (
	"testing"

	"go-crm-reports/pkg/condition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCardSpec_BSONRejectsUnknownComponent(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"id": "card9", "name": "Gauge", "component": "GaugeCard"})
	require.NoError(t, err)

	var card CardSpec
	assert.ErrorContains(t, bson.Unmarshal(raw, &card), `unknown card component "GaugeCard"`)

	raw, err = bson.Marshal(bson.M{"id": "card9", "component": 7})
	require.NoError(t, err)
	assert.Error(t, bson.Unmarshal(raw, &card))

	raw, err = bson.Marshal(CardSpec{ID: "card7", Name: "Pivot", Component: ComponentPivot, ColSpan: 2})
	require.NoError(t, err)
	require.NoError(t, bson.Unmarshal(raw, &card))
	assert.Equal(t, ComponentPivot, card.Component)
}

func sampleConfig() *ReportConfig {
	return &ReportConfig{
		ID:    "r1",
		Title: "Pipeline",
		DataSource: DataSource{
			Source: SourceLeads,
			Conditions: &condition.Tree{Conjunction: condition.Or, Conditions: []condition.Group{
				{Conjunction: condition.And, Conditions: []condition.Condition{
					{ColumnName: condition.ColumnWorkspaceID, Operator: condition.OpIn, ExtendValues: []string{"w1"}},
				}},
			}},
		},
		DisplayedCards: []CardSpec{{ID: "card1", Name: "Overview", Component: ComponentOverview}},
		AvailableCards: []CardSpec{{ID: "card2", Name: "Trend", Component: ComponentLeadTrend}},
	}
}

func TestReportConfig_CloneSharesNothing(t *testing.T) {
	for name, clone := range map[string]func(*ReportConfig) *ReportConfig{
		"Clone":      (*ReportConfig).Clone,
		"copyFields": (*ReportConfig).copyFields,
	} {
		t.Run(name, func(t *testing.T) {
			orig := sampleConfig()
			cp := clone(orig)
			require.Equal(t, orig, cp)

			cp.DisplayedCards[0].Name = "changed"
			cp.AvailableCards[0].ID = "changed"
			cp.DataSource.Conditions.Conditions[0].Conditions[0].ExtendValues[0] = "w2"

			assert.Equal(t, "Overview", orig.DisplayedCards[0].Name)
			assert.Equal(t, "card2", orig.AvailableCards[0].ID)
			assert.Equal(t, "w1", orig.DataSource.Conditions.Conditions[0].Conditions[0].ExtendValues[0])
		})
	}

	assert.Nil(t, (*ReportConfig)(nil).Clone())
}
