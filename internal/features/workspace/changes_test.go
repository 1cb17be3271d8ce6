package workspace_test

import (
	"testing"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/features/layout"
	"go-crm-reports/internal/features/workspace"
	"go-crm-reports/pkg/condition"

	"github.com/stretchr/testify/assert"
)

func TestHasChanges(t *testing.T) {
	base := remoteReport()

	t.Run("identical", func(t *testing.T) {
		assert.False(t, workspace.HasChanges(base, base.Clone()))
	})

	t.Run("nil", func(t *testing.T) {
		assert.False(t, workspace.HasChanges(nil, nil))
		assert.True(t, workspace.HasChanges(nil, base))
	})

	t.Run("leaf order is ignored", func(t *testing.T) {
		w := base.Clone()
		g := w.DataSource.Conditions.Conditions[0].Conditions
		g[0], g[2] = g[2], g[0]
		assert.False(t, workspace.HasChanges(base, w))
	})

	t.Run("id order is ignored", func(t *testing.T) {
		o := base.Clone()
		o.DataSource.Conditions = condition.UpdateIDSetCondition(o.DataSource.Conditions, condition.ColumnAssignTo, []string{"a", "b"})
		w := base.Clone()
		w.DataSource.Conditions = condition.UpdateIDSetCondition(w.DataSource.Conditions, condition.ColumnAssignTo, []string{"b", "a"})
		assert.False(t, workspace.HasChanges(o, w))
	})

	t.Run("timestamps are ignored", func(t *testing.T) {
		w := base.Clone()
		w.UpdatedAt = time.Now()
		assert.False(t, workspace.HasChanges(base, w))
	})

	t.Run("card order matters", func(t *testing.T) {
		w := base.Clone()
		w.DisplayedCards = layout.MoveDown(w.DisplayedCards, "card1")
		assert.True(t, workspace.HasChanges(base, w))
	})

	t.Run("filter value", func(t *testing.T) {
		w := base.Clone()
		w.DataSource.Conditions = condition.UpdateIDSetCondition(w.DataSource.Conditions, condition.ColumnWorkspaceID, []string{"w9"})
		assert.True(t, workspace.HasChanges(base, w))
	})

	t.Run("title", func(t *testing.T) {
		w := base.Clone()
		w.Title = "Renamed"
		assert.True(t, workspace.HasChanges(base, w))
	})

	t.Run("nil and empty card lists", func(t *testing.T) {
		o := &models.ReportConfig{ID: "x"}
		w := &models.ReportConfig{ID: "x", AvailableCards: []models.CardSpec{}}
		assert.False(t, workspace.HasChanges(o, w))
	})
}
