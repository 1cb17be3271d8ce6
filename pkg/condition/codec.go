package condition

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// Workspace is a selectable workspace in the filter bar.
type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// FilterState is the filter bar state the tree is derived from.
type FilterState struct {
	Date                DateRange   `json:"date"`
	DateSelect          DateSelect  `json:"dateSelect,omitempty"`
	SelectedWorkspaces  []Workspace `json:"selectedWorkspaces"`
	SelectedAssigneeIDs []string    `json:"selectedAssigneeIds"`
}

// WorkspaceIDs returns the ids of the selected workspaces in selection order.
func (f FilterState) WorkspaceIDs() []string {
	ids := make([]string, 0, len(f.SelectedWorkspaces))
	for _, w := range f.SelectedWorkspaces {
		ids = append(ids, w.ID)
	}
	return ids
}

// ExtractTimeConditions returns every CreatedDate leaf of every group, in
// traversal order.
func ExtractTimeConditions(tree *Tree) []Condition {
	out := []Condition{}
	if tree == nil {
		return out
	}
	for _, g := range tree.Conditions {
		for _, c := range g.Conditions {
			if c.ColumnName == ColumnCreatedDate {
				out = append(out, c)
			}
		}
	}
	return out
}

// UpdateTimeConditions drops all CreatedDate leaves and appends conds to the
// first group. A tree without groups is returned unchanged.
func UpdateTimeConditions(tree *Tree, conds []Condition) *Tree {
	if !tree.HasGroups() {
		return tree
	}
	out := tree.Clone()
	for i := range out.Conditions {
		out.Conditions[i].Conditions = removeColumn(out.Conditions[i].Conditions, ColumnCreatedDate)
	}
	out.Conditions[0].Conditions = append(out.Conditions[0].Conditions, conds...)
	return out
}

// BuildTimeConditions encodes the date filter as a >= / <= pair. Presets are
// written as keywords, custom ranges as literal dates.
func BuildTimeConditions(sel DateSelect, date DateRange) []Condition {
	from, to := date.From.Format(DateLayout), date.To.Format(DateLayout)
	if p, ok := pairFor(sel); ok {
		from, to = p.from, p.to
	}
	return []Condition{
		{ColumnName: ColumnCreatedDate, Operator: OpGte, Value: from},
		{ColumnName: ColumnCreatedDate, Operator: OpLte, Value: to},
	}
}

// ExtractIDSetCondition returns the id list of the first IN leaf for column,
// or nil if the column is not filtered.
func ExtractIDSetCondition(tree *Tree, column string) []string {
	if tree == nil {
		return nil
	}
	for _, g := range tree.Conditions {
		for _, c := range g.Conditions {
			if c.ColumnName == column && c.Operator == OpIn {
				return slices.Clone(c.ExtendValues)
			}
		}
	}
	return nil
}

// UpdateIDSetCondition keeps exactly one IN leaf for column in the first
// group. An empty ids removes the leaf: no filter means no restriction.
func UpdateIDSetCondition(tree *Tree, column string, ids []string) *Tree {
	if !tree.HasGroups() {
		return tree
	}
	out := tree.Clone()
	for i := 1; i < len(out.Conditions); i++ {
		out.Conditions[i].Conditions = removeColumn(out.Conditions[i].Conditions, column)
	}

	first := out.Conditions[0].Conditions
	pos := slices.IndexFunc(first, func(c Condition) bool { return c.ColumnName == column })
	first = removeColumn(first, column)

	if values := dedupe(ids); len(values) > 0 {
		leaf := Condition{ColumnName: column, Operator: OpIn, ExtendValues: values}
		if pos < 0 || pos > len(first) {
			first = append(first, leaf)
		} else {
			first = slices.Insert(first, pos, leaf)
		}
	}
	out.Conditions[0].Conditions = first
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ApplyFilterState writes the whole filter state into tree. Unlike the
// single-column updates it seeds a fresh tree when tree has no groups.
func ApplyFilterState(tree *Tree, fs FilterState) *Tree {
	if !tree.HasGroups() {
		tree = NewTree()
	}
	tree = UpdateTimeConditions(tree, BuildTimeConditions(fs.DateSelect, fs.Date))
	tree = UpdateIDSetCondition(tree, ColumnWorkspaceID, fs.WorkspaceIDs())
	return UpdateIDSetCondition(tree, ColumnAssignTo, fs.SelectedAssigneeIDs)
}

// Codec decodes trees back into filter state. Decoding needs a clock for the
// presets and a logger for malformed input, encoding does not.
type Codec struct {
	log *zap.Logger
	now func() time.Time
}

func NewCodec(log *zap.Logger) *Codec {
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{log: log, now: time.Now}
}

// WithClock returns a copy of c reading time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// Now is the codec's clock.
func (c *Codec) Now() time.Time {
	return c.now()
}

// DefaultFilterState is the last 30 days with no workspace or assignee filter.
func (c *Codec) DefaultFilterState() FilterState {
	return FilterState{
		Date:                RangeFor(DateSelectLast30, c.now()),
		DateSelect:          DateSelectLast30,
		SelectedWorkspaces:  []Workspace{},
		SelectedAssigneeIDs: []string{},
	}
}

// ResolveFilterState decodes a CreatedDate pair. It never fails: anything it
// cannot read degrades to the last 30 days.
func (c *Codec) ResolveFilterState(conds []Condition) (DateRange, DateSelect) {
	def := c.DefaultFilterState()
	if len(conds) == 0 {
		return def.Date, def.DateSelect
	}

	var from, to *Condition
	for i := range conds {
		switch conds[i].Operator {
		case OpGte:
			if from == nil {
				from = &conds[i]
			}
		case OpLte:
			if to == nil {
				to = &conds[i]
			}
		}
	}
	if from == nil || to == nil {
		c.log.Warn("incomplete CreatedDate conditions, using default range", zap.Int("count", len(conds)))
		return def.Date, def.DateSelect
	}

	for _, p := range symbolicPairs {
		if from.Value == p.from && to.Value == p.to {
			return RangeFor(p.sel, c.now()), p.sel
		}
	}

	loc := c.now().Location()
	fromDay, errFrom := time.ParseInLocation(DateLayout, from.Value, loc)
	toDay, errTo := time.ParseInLocation(DateLayout, to.Value, loc)
	if errFrom != nil || errTo != nil {
		c.log.Warn("unreadable CreatedDate conditions, using default range",
			zap.String("from", from.Value),
			zap.String("to", to.Value))
		return def.Date, def.DateSelect
	}
	return DateRange{From: fromDay, To: toDay}, DateSelectCustom
}

// FilterStateFromTree decodes every tracked column. Workspace names are not
// stored in the tree, so only ids are filled in.
func (c *Codec) FilterStateFromTree(tree *Tree) FilterState {
	date, sel := c.ResolveFilterState(ExtractTimeConditions(tree))
	fs := FilterState{
		Date:                date,
		DateSelect:          sel,
		SelectedWorkspaces:  []Workspace{},
		SelectedAssigneeIDs: []string{},
	}
	for _, id := range ExtractIDSetCondition(tree, ColumnWorkspaceID) {
		fs.SelectedWorkspaces = append(fs.SelectedWorkspaces, Workspace{ID: id})
	}
	if ids := ExtractIDSetCondition(tree, ColumnAssignTo); ids != nil {
		fs.SelectedAssigneeIDs = ids
	}
	return fs
}
