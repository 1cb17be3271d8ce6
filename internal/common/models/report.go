package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"go-crm-reports/pkg/condition"

	"github.com/tiendc/go-deepcopy"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// DefaultReportID names the virtual report built from the default template.
// It is never stored.
const DefaultReportID = "default"

// Component selects the widget that renders a card. The set is closed:
// decoding an unknown name fails.
type Component string

const (
	ComponentOverview        Component = "OverviewCard"
	ComponentLeadTrend       Component = "LeadTrendCard"
	ComponentLeadSource      Component = "LeadSourceCard"
	ComponentLeadStatus      Component = "LeadStatusCard"
	ComponentCustomerGrowth  Component = "CustomerGrowthCard"
	ComponentAssigneeRanking Component = "AssigneeRankingCard"
	ComponentPivot           Component = "PivotCard"
)

var Components = []Component{
	ComponentOverview,
	ComponentLeadTrend,
	ComponentLeadSource,
	ComponentLeadStatus,
	ComponentCustomerGrowth,
	ComponentAssigneeRanking,
	ComponentPivot,
}

func (c Component) Valid() bool {
	for _, known := range Components {
		if c == known {
			return true
		}
	}
	return false
}

func (c *Component) UnmarshalText(b []byte) error {
	v := Component(b)
	if !v.Valid() {
		return fmt.Errorf("unknown card component %q", string(b))
	}
	*c = v
	return nil
}

// UnmarshalBSONValue applies the same check to documents read from mongo.
func (c *Component) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	name, ok := bson.RawValue{Type: t, Value: data}.StringValueOK()
	if !ok {
		return fmt.Errorf("card component stored as %s, want string", t)
	}
	return c.UnmarshalText([]byte(name))
}

// DefaultColSpan is the grid width a card gets when none is stored.
func (c Component) DefaultColSpan() int {
	if c == ComponentPivot {
		return 2
	}
	return 1
}

// CardSpec is one widget on a report and its placement.
type CardSpec struct {
	ID              string    `json:"id" bson:"id"`
	Name            string    `json:"name" bson:"name"`
	Component       Component `json:"component" bson:"component"`
	ColSpan         int       `json:"colSpan,omitempty" bson:"colSpan,omitempty"`
	DefaultPosition int       `json:"defaultPosition" bson:"defaultPosition"`

	// Pivot cards only.
	PivotID     string `json:"pivotId,omitempty" bson:"pivotId,omitempty"`
	PivotConfig string `json:"pivotConfig,omitempty" bson:"pivotConfig,omitempty"`
	Title       string `json:"title,omitempty" bson:"title,omitempty"`
}

// PivotField is one entry of a pivot card's field layout.
type PivotField struct {
	UniqueName  string `json:"uniqueName"`
	Area        string `json:"area"`
	Aggregation string `json:"aggregation,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

// Pivot field areas.
const (
	PivotAreaRow    = "row"
	PivotAreaColumn = "column"
	PivotAreaData   = "data"
)

// PivotLayout is the decoded form of CardSpec.PivotConfig.
type PivotLayout struct {
	Fields []PivotField `json:"fields"`
}

// DecodePivotLayout reads a pivot config. A config without a fields array is
// an error.
func DecodePivotLayout(raw string) (*PivotLayout, error) {
	var probe struct {
		Fields *[]PivotField `json:"fields"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("decoding pivot config: %w", err)
	}
	if probe.Fields == nil {
		return nil, fmt.Errorf("pivot config has no fields array")
	}
	return &PivotLayout{Fields: *probe.Fields}, nil
}

type DataSource struct {
	Conditions *condition.Tree `json:"conditions" bson:"conditions"`
	Source     string          `json:"source" bson:"source"`
	Grouped    bool            `json:"grouped" bson:"grouped"`
}

// Data sources a report can query.
const (
	SourceLeads     = "leads"
	SourceCustomers = "customers"
)

// ReportConfig is the saved document for one report.
type ReportConfig struct {
	ID             string     `json:"id,omitempty" bson:"_id,omitempty"`
	OrgID          string     `json:"-" bson:"org_id"`
	Title          string     `json:"title" bson:"title"`
	Description    string     `json:"description" bson:"description"`
	DataSource     DataSource `json:"dataSource" bson:"data_source"`
	AvailableCards []CardSpec `json:"availableCards" bson:"available_cards"`
	DisplayedCards []CardSpec `json:"displayedCards" bson:"displayed_cards"`
	CreatedBy      string     `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Clone deep copies the config so snapshots never share slices.
func (r *ReportConfig) Clone() *ReportConfig {
	if r == nil {
		return nil
	}
	var out ReportConfig
	if err := deepcopy.Copy(&out, r); err != nil {
		return r.copyFields()
	}
	return &out
}

// copyFields is the field-by-field copy Clone falls back to when the
// reflective copy rejects a value.
func (r *ReportConfig) copyFields() *ReportConfig {
	out := *r
	out.DataSource.Conditions = r.DataSource.Conditions.Clone()
	out.AvailableCards = slices.Clone(r.AvailableCards)
	out.DisplayedCards = slices.Clone(r.DisplayedCards)
	return &out
}

type ReportSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Response codes carried in the envelope. Anything but CodeOK is an
// application failure.
const (
	CodeOK           = 0
	CodeInvalid      = 1
	CodeNotFound     = 2
	CodeUnauthorized = 3
	CodeInternal     = 4
)

// Response is the envelope every report API reply uses.
type Response struct {
	Code     int    `json:"code"`
	Content  any    `json:"content,omitempty"`
	Message  string `json:"message,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
}

// PreviewMetadata accompanies preview rows.
type PreviewMetadata struct {
	Total     int64               `json:"total"`
	Truncated bool                `json:"truncated"`
	Cards     map[string]CardData `json:"cards"`
	Generated time.Time           `json:"generatedAt"`
}

// CardData is the rendered data for one displayed card.
type CardData struct {
	Component Component        `json:"component"`
	Metrics   map[string]int64 `json:"metrics,omitempty"`
	Series    []SeriesPoint    `json:"series,omitempty"`
	Pivot     *PivotTable      `json:"pivot,omitempty"`
}

type SeriesPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type PivotTable struct {
	Rows    []string                    `json:"rows"`
	Columns []string                    `json:"columns"`
	Data    map[string]map[string]int64 `json:"data"`
}

type PreviewResult struct {
	Rows     []map[string]any `json:"content"`
	Metadata PreviewMetadata  `json:"metadata"`
}
