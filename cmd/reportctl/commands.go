package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/features/layout"
	"go-crm-reports/internal/features/workspace"
	"go-crm-reports/pkg/condition"
	"go-crm-reports/pkg/utils"

	"github.com/spf13/cobra"
)

var presets = map[string]condition.DateSelect{
	"today":     condition.DateSelectToday,
	"yesterday": condition.DateSelectYesterday,
	"last7":     condition.DateSelectLast7,
	"last30":    condition.DateSelectLast30,
	"thisyear":  condition.DateSelectThisYear,
}

func presetName(sel condition.DateSelect) string {
	for name, v := range presets {
		if v == sel {
			return name
		}
	}
	return "custom"
}

type filterView struct {
	Date       string   `yaml:"date" json:"date"`
	From       string   `yaml:"from" json:"from"`
	To         string   `yaml:"to" json:"to"`
	Workspaces []string `yaml:"workspaces,omitempty" json:"workspaces,omitempty"`
	Assignees  []string `yaml:"assignees,omitempty" json:"assignees,omitempty"`
}

type reportView struct {
	ID        string     `yaml:"id" json:"id"`
	Title     string     `yaml:"title" json:"title"`
	Source    string     `yaml:"source" json:"source"`
	Unsaved   bool       `yaml:"unsaved,omitempty" json:"unsaved,omitempty"`
	Filter    filterView `yaml:"filter" json:"filter"`
	Grid      [][]string `yaml:"grid" json:"grid"`
	Available []string   `yaml:"available,omitempty" json:"available,omitempty"`
}

func viewOf(s *workspace.Session) reportView {
	cfg := s.Working()
	fs := s.Filter()
	v := reportView{
		ID:      cfg.ID,
		Title:   cfg.Title,
		Source:  cfg.DataSource.Source,
		Unsaved: s.Dirty(),
		Filter: filterView{
			Date:       presetName(fs.DateSelect),
			From:       fs.Date.From.Format(condition.DateLayout),
			To:         fs.Date.To.Format(condition.DateLayout),
			Workspaces: fs.WorkspaceIDs(),
			Assignees:  fs.SelectedAssigneeIDs,
		},
	}
	for _, row := range layout.Rows(cfg.DisplayedCards) {
		var ids []string
		for _, c := range row {
			ids = append(ids, c.ID+" "+string(c.Component))
		}
		v.Grid = append(v.Grid, ids)
	}
	for _, c := range cfg.AvailableCards {
		v.Available = append(v.Available, c.ID+" "+string(c.Component))
	}
	return v
}

// save pushes the working copy. Saving the default report is only a notice.
func save(ctx context.Context, s *workspace.Session) error {
	if !s.Dirty() {
		return nil
	}
	err := s.Save(ctx)
	if errors.Is(err, workspace.ErrVirtualReport) {
		return nil
	}
	return err
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved reports",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, e *env, _ []string) error {
			reports, err := e.session.Reports(ctx)
			if err != nil {
				return err
			}
			return e.print(reports)
		}),
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show [report-id]",
		Short: "Show a report's filters and card grid",
		Args:  cobra.MaximumNArgs(1),
		RunE: opts.run(func(ctx context.Context, e *env, args []string) error {
			id := models.DefaultReportID
			if len(args) == 1 {
				id = args[0]
			}
			if err := e.session.Open(ctx, id); err != nil {
				return err
			}
			return e.print(viewOf(e.session))
		}),
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a report with the default layout",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, e *env, _ []string) error {
			id, err := e.session.Create(ctx, title, description)
			if err != nil {
				return err
			}
			return e.print(map[string]string{"id": id})
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "Report title (required).")
	cmd.Flags().StringVar(&description, "description", "", "Report description.")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, e *env, args []string) error {
			if err := e.session.Open(ctx, args[0]); err != nil {
				return err
			}
			return e.session.Delete(ctx)
		}),
	}
}

func newFilterCmd(opts *options) *cobra.Command {
	var (
		date, from, to        string
		workspaces, assignees []string
		dryRun                bool
	)
	cmd := &cobra.Command{
		Use:   "filter <report-id>",
		Short: "Change a report's date, workspace and assignee filters",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(func(ctx context.Context, e *env, args []string) error {
		s := e.session
		if err := s.Open(ctx, args[0]); err != nil {
			return err
		}

		if date != "" {
			sel, ok := presets[date]
			if !ok {
				return fmt.Errorf("unknown date preset %q", date)
			}
			if err := s.SetDateSelect(sel); err != nil {
				return err
			}
		}
		if from != "" || to != "" {
			rng, err := parseRange(from, to, opts.now())
			if err != nil {
				return err
			}
			if err := s.SetDateRange(rng); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("workspace") {
			ws := make([]condition.Workspace, 0, len(workspaces))
			for _, id := range workspaces {
				ws = append(ws, condition.Workspace{ID: id})
			}
			if err := s.SetWorkspaces(ws); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("assignee") {
			if err := s.SetAssignees(assignees); err != nil {
				return err
			}
		}

		if !dryRun {
			if err := save(ctx, s); err != nil {
				return err
			}
		}
		return e.print(viewOf(s))
	})

	cmd.Flags().StringVar(&date, "date", "", "Date preset: today, yesterday, last7, last30 or thisyear.")
	cmd.Flags().StringVar(&from, "from", "", "Custom range start (YYYY-MM-DD).")
	cmd.Flags().StringVar(&to, "to", "", "Custom range end (YYYY-MM-DD).")
	cmd.Flags().StringSliceVar(&workspaces, "workspace", nil, "Workspace ids; pass an empty value to clear.")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "Assignee ids; pass an empty value to clear.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the result without saving.")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	cmd.MarkFlagsMutuallyExclusive("date", "to")
	return cmd
}

func parseRange(from, to string, now time.Time) (condition.DateRange, error) {
	var rng condition.DateRange
	parse := func(s string) (time.Time, error) {
		if s == "" {
			return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
		}
		return time.ParseInLocation(condition.DateLayout, s, now.Location())
	}
	var err error
	if rng.From, err = parse(from); err != nil {
		return rng, fmt.Errorf("--from: %w", err)
	}
	if rng.To, err = parse(to); err != nil {
		return rng, fmt.Errorf("--to: %w", err)
	}
	return rng, nil
}

func newLayoutCmd(opts *options) *cobra.Command {
	var push bool
	cmd := &cobra.Command{
		Use:       "layout <report-id> <add|remove|up|down> <card-id>",
		Short:     "Rearrange a report's cards",
		Long:      `Changes are written to the local layout store at once. Use --save to also store them on the server.`,
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"add", "remove", "up", "down"},
	}
	cmd.RunE = opts.run(func(ctx context.Context, e *env, args []string) error {
		s := e.session
		if err := s.Open(ctx, args[0]); err != nil {
			return err
		}

		card := args[2]
		var err error
		switch args[1] {
		case "add":
			err = s.AddCatalogCard(ctx, card)
		case "remove":
			err = s.RemoveCard(ctx, card)
		case "up":
			err = s.MoveCardUp(ctx, card)
		case "down":
			err = s.MoveCardDown(ctx, card)
		default:
			return fmt.Errorf("unknown layout action %q", args[1])
		}
		if err != nil {
			return err
		}

		if push {
			if err := save(ctx, s); err != nil {
				return err
			}
		}
		return e.print(viewOf(s))
	})
	cmd.Flags().BoolVar(&push, "save", false, "Also save the layout on the server.")
	return cmd
}

type cardView struct {
	ID   string          `yaml:"id" json:"id"`
	Data models.CardData `yaml:"data" json:"data"`
}

type previewView struct {
	Total     int64            `yaml:"total" json:"total"`
	Truncated bool             `yaml:"truncated" json:"truncated"`
	Cards     []cardView       `yaml:"cards" json:"cards"`
	Rows      []map[string]any `yaml:"rows,omitempty" json:"rows,omitempty"`
}

func newPreviewCmd(opts *options) *cobra.Command {
	var (
		rows   int
		export string
	)
	cmd := &cobra.Command{
		Use:   "preview [report-id]",
		Short: "Fetch preview data for a report",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = opts.run(func(ctx context.Context, e *env, args []string) error {
		id := models.DefaultReportID
		if len(args) == 1 {
			id = args[0]
		}
		s := e.session
		if err := s.Open(ctx, id); err != nil {
			return err
		}

		if export != "" {
			data, err := e.api.ExportPreview(ctx, s.Working())
			if err != nil {
				return err
			}
			if err := os.WriteFile(export, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", export)
			return nil
		}

		res, err := s.Refresh(ctx)
		if err != nil {
			return err
		}
		v := previewView{Total: res.Metadata.Total, Truncated: res.Metadata.Truncated}
		for _, c := range s.Working().DisplayedCards {
			if data, ok := res.Metadata.Cards[c.ID]; ok {
				v.Cards = append(v.Cards, cardView{ID: c.ID, Data: data})
			}
		}
		if rows > len(res.Rows) {
			rows = len(res.Rows)
		}
		if rows > 0 {
			v.Rows = res.Rows[:rows]
		}
		return e.print(v)
	})
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of rows to print.")
	cmd.Flags().StringVar(&export, "export", "", "Write an xlsx workbook to this path instead.")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import <report-id>",
		Short: "Replace a report's conditions with a tree from a JSON file",
		Long:  `The file holds a condition tree. Comments and trailing commas are allowed.`,
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(func(ctx context.Context, e *env, args []string) error {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		tree, err := condition.ParseTree(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", file, err)
		}

		s := e.session
		if err := s.Open(ctx, args[0]); err != nil {
			return err
		}
		if err := s.ReplaceConditions(tree); err != nil {
			return err
		}
		if !dryRun {
			if err := save(ctx, s); err != nil {
				return err
			}
		}
		return e.print(viewOf(s))
	})
	cmd.Flags().StringVarP(&file, "file", "f", "", "Condition tree file.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the result without saving.")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newTokenCmd signs a development token. It needs the server's secret, so
// it is only useful against a local API.
func newTokenCmd(_ *options) *cobra.Command {
	var (
		secret, user, org string
		roles             []string
		ttl               time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			utils.SetSecret(secret)
			token, err := utils.GenerateToken(user, org, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "secret", "JWT secret of the API.")
	cmd.Flags().StringVar(&user, "user", "dev-admin-id", "User id claim.")
	cmd.Flags().StringVar(&org, "org", "", "Organization id claim (required).")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role claims.")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime.")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
