package report

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("report not found")
	ErrInvalid         = errors.New("invalid report")
	ErrDefaultReadOnly = errors.New("the default report is read only")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Record is one lead or customer document as the preview reads it.
type Record struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Status       string    `bson:"status" json:"status"`
	Source       string    `bson:"source" json:"source"`
	WorkspaceID  string    `bson:"workspace_id" json:"workspace_id"`
	AssignedTo   string    `bson:"assigned_to" json:"assigned_to"`
	AssigneeName string    `bson:"assignee_name" json:"assignee_name"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// RowColumns is the column order of preview rows and exports.
var RowColumns = []string{
	"id", "name", "status", "source", "workspace_id",
	"assigned_to", "assignee_name", "created_at", "created_year", "created_month",
}

// Row flattens r for the preview. created_year and created_month exist so
// pivot layouts can group by them.
func (r Record) Row() map[string]any {
	return map[string]any{
		"id":            r.ID,
		"name":          r.Name,
		"status":        r.Status,
		"source":        r.Source,
		"workspace_id":  r.WorkspaceID,
		"assigned_to":   r.AssignedTo,
		"assignee_name": r.AssigneeName,
		"created_at":    r.CreatedAt.UTC().Format(time.RFC3339),
		"created_year":  r.CreatedAt.UTC().Format("2006"),
		"created_month": r.CreatedAt.UTC().Format("2006-01"),
	}
}
