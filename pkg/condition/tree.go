package condition

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/jsonc"
)

type Conjunction string

const (
	And Conjunction = "and"
	Or  Conjunction = "or"
)

// Operators understood by the report query API.
const (
	OpEq    = "="
	OpNe    = "!="
	OpGt    = ">"
	OpLt    = "<"
	OpGte   = ">="
	OpLte   = "<="
	OpIn    = "IN"
	OpNotIn = "NOT IN"
	OpLike  = "LIKE"
)

// Columns tracked by the filter bar.
const (
	ColumnCreatedDate = "CreatedDate"
	ColumnWorkspaceID = "WorkspaceId"
	ColumnAssignTo    = "AssignTo"
)

// Condition is a single leaf of the tree. ExtendValues carries the id list
// of IN / NOT IN leaves, Value carries everything else.
type Condition struct {
	ColumnName   string   `json:"columnName" bson:"columnName"`
	Operator     string   `json:"operator" bson:"operator"`
	Value        string   `json:"value" bson:"value"`
	ExtendValues []string `json:"extendValues,omitempty" bson:"extendValues,omitempty"`
}

// Group is one top-level conjunction group.
type Group struct {
	Conjunction Conjunction `json:"conjunction" bson:"conjunction"`
	Conditions  []Condition `json:"conditions" bson:"conditions"`
}

// Tree is the two-level boolean filter sent to the report query API.
type Tree struct {
	Conjunction Conjunction `json:"conjunction" bson:"conjunction"`
	Conditions  []Group     `json:"conditions" bson:"conditions"`
}

// NewTree returns the canonical empty tree: an OR over a single empty AND group.
func NewTree() *Tree {
	return &Tree{
		Conjunction: Or,
		Conditions:  []Group{{Conjunction: And, Conditions: []Condition{}}},
	}
}

// Clone returns a deep copy of t. Updates in this package always work on a
// clone so callers can keep both the before and after snapshots.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{Conjunction: t.Conjunction}
	if t.Conditions != nil {
		out.Conditions = make([]Group, len(t.Conditions))
	}
	for i, g := range t.Conditions {
		out.Conditions[i] = Group{Conjunction: g.Conjunction, Conditions: slices.Clone(g.Conditions)}
		for j, c := range g.Conditions {
			out.Conditions[i].Conditions[j].ExtendValues = slices.Clone(c.ExtendValues)
		}
	}
	return out
}

// HasGroups reports whether t has at least one top-level group to write into.
func (t *Tree) HasGroups() bool {
	return t != nil && len(t.Conditions) > 0
}

// ParseTree decodes a tree from JSON. Comments and trailing commas are
// accepted since trees are sometimes hand-edited.
func ParseTree(data []byte) (*Tree, error) {
	var t Tree
	if err := json.Unmarshal(jsonc.ToJSON(data), &t); err != nil {
		return nil, fmt.Errorf("parsing condition tree: %w", err)
	}
	if t.Conjunction == "" {
		t.Conjunction = Or
	}
	for i := range t.Conditions {
		if t.Conditions[i].Conjunction == "" {
			t.Conditions[i].Conjunction = And
		}
	}
	return &t, nil
}

func removeColumn(conds []Condition, column string) []Condition {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c.ColumnName != column {
			out = append(out, c)
		}
	}
	return out
}
