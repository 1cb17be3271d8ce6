package report

import (
	"fmt"
	"sort"
	"strings"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/features/layout"
)

const (
	rankingSize = 10
	unassigned  = "Unassigned"
	unknown     = "Unknown"
)

// CardData computes what one displayed card shows for rows. The switch is
// closed over models.Components; a new kind fails here until it is handled.
func CardData(card models.CardSpec, rows []Record) (models.CardData, error) {
	out := models.CardData{Component: card.Component}

	switch card.Component {
	case models.ComponentOverview:
		out.Metrics = overview(rows)
	case models.ComponentLeadTrend:
		out.Series = countBy(rows, func(r Record) string { return r.CreatedAt.UTC().Format("2006-01-02") })
		sortByName(out.Series)
	case models.ComponentLeadSource:
		out.Series = countBy(rows, func(r Record) string { return orDefault(r.Source, unknown) })
		sortByValue(out.Series)
	case models.ComponentLeadStatus:
		out.Series = countBy(rows, func(r Record) string { return orDefault(r.Status, unknown) })
		sortByValue(out.Series)
	case models.ComponentCustomerGrowth:
		out.Series = cumulative(countBy(rows, func(r Record) string { return r.CreatedAt.UTC().Format("2006-01") }))
	case models.ComponentAssigneeRanking:
		out.Series = countBy(rows, assigneeLabel)
		sortByValue(out.Series)
		if len(out.Series) > rankingSize {
			out.Series = out.Series[:rankingSize]
		}
	case models.ComponentPivot:
		out.Pivot = pivot(layout.PivotFields(card), rows)
	default:
		return out, fmt.Errorf("card %s: no renderer for component %q", card.ID, card.Component)
	}
	return out, nil
}

func overview(rows []Record) map[string]int64 {
	m := map[string]int64{"total": int64(len(rows))}
	workspaces := map[string]struct{}{}
	for _, r := range rows {
		if r.AssignedTo == "" {
			m["unassigned"]++
		} else {
			m["assigned"]++
		}
		if r.WorkspaceID != "" {
			workspaces[r.WorkspaceID] = struct{}{}
		}
	}
	m["workspaces"] = int64(len(workspaces))
	return m
}

func assigneeLabel(r Record) string {
	switch {
	case r.AssigneeName != "":
		return r.AssigneeName
	case r.AssignedTo != "":
		return r.AssignedTo
	default:
		return unassigned
	}
}

func countBy(rows []Record, key func(Record) string) []models.SeriesPoint {
	counts := map[string]int64{}
	for _, r := range rows {
		counts[key(r)]++
	}
	out := make([]models.SeriesPoint, 0, len(counts))
	for name, v := range counts {
		out = append(out, models.SeriesPoint{Name: name, Value: v})
	}
	sortByName(out)
	return out
}

func cumulative(points []models.SeriesPoint) []models.SeriesPoint {
	sortByName(points)
	var total int64
	for i := range points {
		total += points[i].Value
		points[i].Value = total
	}
	return points
}

func sortByName(points []models.SeriesPoint) {
	sort.Slice(points, func(i, j int) bool { return points[i].Name < points[j].Name })
}

// sortByValue orders largest first, ties by name.
func sortByValue(points []models.SeriesPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Value != points[j].Value {
			return points[i].Value > points[j].Value
		}
		return points[i].Name < points[j].Name
	})
}

// pivot cross-tabulates rows. Row and column keys join the values of every
// field in the area with " | ". Count is the only aggregation the rows
// support, since records carry no numeric measures.
func pivot(fields []models.PivotField, rows []Record) *models.PivotTable {
	var rowFields, colFields []string
	for _, f := range fields {
		switch f.Area {
		case models.PivotAreaRow:
			rowFields = append(rowFields, f.UniqueName)
		case models.PivotAreaColumn:
			colFields = append(colFields, f.UniqueName)
		}
	}

	table := &models.PivotTable{Data: map[string]map[string]int64{}}
	rowSeen, colSeen := map[string]bool{}, map[string]bool{}
	for _, rec := range rows {
		row := rec.Row()
		rk, ck := buildKey(row, rowFields), buildKey(row, colFields)
		if !rowSeen[rk] {
			rowSeen[rk] = true
			table.Rows = append(table.Rows, rk)
		}
		if !colSeen[ck] {
			colSeen[ck] = true
			table.Columns = append(table.Columns, ck)
		}
		if table.Data[rk] == nil {
			table.Data[rk] = map[string]int64{}
		}
		table.Data[rk][ck]++
	}
	sort.Strings(table.Rows)
	sort.Strings(table.Columns)
	if table.Rows == nil {
		table.Rows = []string{}
	}
	if table.Columns == nil {
		table.Columns = []string{}
	}
	return table
}

func buildKey(row map[string]any, fields []string) string {
	if len(fields) == 0 {
		return "Total"
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if val, ok := row[field]; ok && fmt.Sprint(val) != "" {
			parts = append(parts, fmt.Sprint(val))
		} else {
			parts = append(parts, "N/A")
		}
	}
	return strings.Join(parts, " | ")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
