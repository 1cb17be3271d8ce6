package workspace

import (
	"reflect"
	"slices"
	"strings"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/pkg/condition"
)

// HasChanges reports whether working differs from original in a way the
// report API would see. Leaf order inside a group and id order inside an IN
// list carry no meaning and are ignored; so are timestamps and nil versus
// empty lists. Card order is significant.
func HasChanges(original, working *models.ReportConfig) bool {
	if original == nil || working == nil {
		return original != working
	}
	return !reflect.DeepEqual(canonical(original), canonical(working))
}

func canonical(cfg *models.ReportConfig) *models.ReportConfig {
	out := cfg.Clone()
	out.CreatedAt, out.UpdatedAt = time.Time{}, time.Time{}
	out.DataSource.Conditions = canonicalTree(out.DataSource.Conditions)
	if out.AvailableCards == nil {
		out.AvailableCards = []models.CardSpec{}
	}
	if out.DisplayedCards == nil {
		out.DisplayedCards = []models.CardSpec{}
	}
	return out
}

func canonicalTree(t *condition.Tree) *condition.Tree {
	if t == nil {
		return nil
	}
	if t.Conditions == nil {
		t.Conditions = []condition.Group{}
	}
	for i := range t.Conditions {
		g := &t.Conditions[i]
		if g.Conditions == nil {
			g.Conditions = []condition.Condition{}
		}
		for j := range g.Conditions {
			vals := g.Conditions[j].ExtendValues
			if len(vals) == 0 {
				g.Conditions[j].ExtendValues = nil
				continue
			}
			slices.Sort(vals)
		}
		slices.SortStableFunc(g.Conditions, compareLeaves)
	}
	return t
}

func compareLeaves(a, b condition.Condition) int {
	if c := strings.Compare(a.ColumnName, b.ColumnName); c != 0 {
		return c
	}
	if c := strings.Compare(a.Operator, b.Operator); c != 0 {
		return c
	}
	if c := strings.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	return slices.Compare(a.ExtendValues, b.ExtendValues)
}
