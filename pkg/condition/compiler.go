package condition

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field maps a tree column onto a document field.
type Field struct {
	Name string
	Date bool
}

// Compiler turns a Tree into a MongoDB filter. Symbolic date values are
// resolved against Now when Compile runs, so saved reports stay relative.
type Compiler struct {
	Fields map[string]Field
	Now    func() time.Time
}

// DefaultFields maps the filter bar columns onto lead documents.
var DefaultFields = map[string]Field{
	ColumnCreatedDate: {Name: "created_at", Date: true},
	ColumnWorkspaceID: {Name: "workspace_id"},
	ColumnAssignTo:    {Name: "assigned_to"},
	"Status":          {Name: "status"},
	"Source":          {Name: "source"},
}

func NewCompiler(fields map[string]Field) *Compiler {
	if fields == nil {
		fields = DefaultFields
	}
	return &Compiler{Fields: fields, Now: time.Now}
}

func (c *Compiler) Compile(tree *Tree) (bson.M, error) {
	if tree == nil {
		return bson.M{}, nil
	}

	var groups []bson.M
	for _, g := range tree.Conditions {
		cond, err := c.compileGroup(g)
		if err != nil {
			return nil, err
		}
		if len(cond) > 0 {
			groups = append(groups, cond)
		}
	}

	switch len(groups) {
	case 0:
		return bson.M{}, nil
	case 1:
		return groups[0], nil
	}
	return bson.M{operatorFor(tree.Conjunction, "$or"): groups}, nil
}

func (c *Compiler) compileGroup(g Group) (bson.M, error) {
	var conditions []bson.M
	for _, leaf := range g.Conditions {
		cond, err := c.compileLeaf(leaf)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			conditions = append(conditions, cond)
		}
	}
	if len(conditions) == 0 {
		return bson.M{}, nil
	}
	return bson.M{operatorFor(g.Conjunction, "$and"): conditions}, nil
}

func operatorFor(conj Conjunction, fallback string) string {
	switch Conjunction(strings.ToLower(string(conj))) {
	case And:
		return "$and"
	case Or:
		return "$or"
	}
	return fallback
}

func (c *Compiler) compileLeaf(leaf Condition) (bson.M, error) {
	field, ok := c.Fields[leaf.ColumnName]
	if !ok {
		field = Field{Name: leaf.ColumnName}
	}

	switch strings.ToUpper(leaf.Operator) {
	case OpIn:
		// An empty IN list would match nothing; treat it as no restriction.
		if len(leaf.ExtendValues) == 0 {
			return nil, nil
		}
		return bson.M{field.Name: bson.M{"$in": leaf.ExtendValues}}, nil
	case OpNotIn:
		if len(leaf.ExtendValues) == 0 {
			return nil, nil
		}
		return bson.M{field.Name: bson.M{"$nin": leaf.ExtendValues}}, nil
	case OpLike:
		return bson.M{field.Name: bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(leaf.Value), Options: "i"}}}, nil
	}

	op, ok := comparisonOps[leaf.Operator]
	if !ok {
		return nil, fmt.Errorf("unknown operator: %s", leaf.Operator)
	}
	if !field.Date {
		return bson.M{field.Name: bson.M{op: leaf.Value}}, nil
	}

	day, err := c.resolveDay(leaf.Value)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", leaf.ColumnName, err)
	}
	switch leaf.Operator {
	case OpLte, OpGt:
		// Upper bounds cover the whole day.
		return bson.M{field.Name: bson.M{op: endOfDay(day)}}, nil
	case OpEq:
		return bson.M{field.Name: bson.M{"$gte": day, "$lte": endOfDay(day)}}, nil
	}
	return bson.M{field.Name: bson.M{op: day}}, nil
}

var comparisonOps = map[string]string{
	OpEq:  "$eq",
	OpNe:  "$ne",
	OpGt:  "$gt",
	OpLt:  "$lt",
	OpGte: "$gte",
	OpLte: "$lte",
}

func (c *Compiler) resolveDay(value string) (time.Time, error) {
	now := c.Now()
	if day, ok := keywordDay(value, now); ok {
		return day, nil
	}
	day, err := time.ParseInLocation(DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date value %q", value)
	}
	return day, nil
}
