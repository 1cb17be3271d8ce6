package report

import (
	"fmt"
	"sort"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/pkg/utils"

	"github.com/xuri/excelize/v2"
)

const (
	rowsSheet    = "Rows"
	summarySheet = "Summary"
)

func exportFilename(title string, now time.Time) string {
	return fmt.Sprintf("%s_report_%s.xlsx", utils.Slugify(title), now.Format("20060102_150405"))
}

// exportWorkbook writes the preview rows to one sheet and the card series
// and metrics to a second.
func exportWorkbook(report *models.ReportConfig, res *models.PreviewResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rowsSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, col := range RowColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(rowsSheet, cell, col); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(rowsSheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}
	for rowIdx, row := range res.Rows {
		for colIdx, col := range RowColumns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(rowsSheet, cell, row[col]); err != nil {
				return nil, err
			}
		}
	}
	for i := range RowColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(rowsSheet, col, col, 18); err != nil {
			return nil, err
		}
	}

	if err := writeSummary(f, report, res.Metadata, headerStyle); err != nil {
		return nil, err
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func writeSummary(f *excelize.File, report *models.ReportConfig, meta models.PreviewMetadata, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	line := 1
	put := func(values ...any) error {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		line++
		return f.SetSheetRow(summarySheet, cell, &values)
	}

	if err := put("Report", report.Title); err != nil {
		return err
	}
	if err := put("Total rows", meta.Total); err != nil {
		return err
	}
	if err := put("Generated", meta.Generated.Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	line++

	for _, card := range report.DisplayedCards {
		data, ok := meta.Cards[card.ID]
		if !ok {
			continue
		}
		header, _ := excelize.CoordinatesToCellName(1, line)
		if err := put(cardLabel(card)); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, header, header, headerStyle); err != nil {
			return err
		}

		keys := make([]string, 0, len(data.Metrics))
		for k := range data.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := put(k, data.Metrics[k]); err != nil {
				return err
			}
		}
		for _, p := range data.Series {
			if err := put(p.Name, p.Value); err != nil {
				return err
			}
		}
		if data.Pivot != nil {
			if err := put(append([]any{""}, stringsToAny(data.Pivot.Columns)...)...); err != nil {
				return err
			}
			for _, rk := range data.Pivot.Rows {
				values := []any{rk}
				for _, ck := range data.Pivot.Columns {
					values = append(values, data.Pivot.Data[rk][ck])
				}
				if err := put(values...); err != nil {
					return err
				}
			}
		}
		line++
	}
	return f.SetColWidth(summarySheet, "A", "A", 28)
}

func cardLabel(card models.CardSpec) string {
	if card.Title != "" {
		return card.Title
	}
	if card.Name != "" {
		return card.Name
	}
	return string(card.Component)
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
