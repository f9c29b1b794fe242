// Package filter turns loosely shaped request criteria into typed conditions
// and applies them to an article query.
//
// Criteria are tolerant by default: unknown keys and malformed values are
// dropped rather than rejected, so a bad key never fails the whole request.
package filter

import (
	"sort"
	"time"
)

// Field is a filterable article attribute.
type Field string

const (
	Source      Field = "source"
	Author      Field = "author"
	Category    Field = "category"
	CategoryID  Field = "category_id"
	PublishedAt Field = "published_at"
	Keyword     Field = "keyword"
)

// Kind is the shape of a constraint.
type Kind int

const (
	KindEquals Kind = iota + 1
	KindIn
	KindRange
	KindContains
)

func (k Kind) String() string {
	switch k {
	case KindEquals:
		return "equals"
	case KindIn:
		return "in"
	case KindRange:
		return "range"
	case KindContains:
		return "contains"
	default:
		return "unknown"
	}
}

// Constraint narrows a single field.
// Equals uses Values[0]; In uses all Values; Range uses From/To where a nil
// bound is open; Contains uses Term.
type Constraint struct {
	Kind   Kind
	Values []any
	From   *time.Time
	To     *time.Time
	Term   string
}

// Condition binds a constraint to a field.
type Condition struct {
	Field      Field
	Constraint Constraint
}

// Criteria is a validated set of conditions, at most one per field.
type Criteria []Condition

// Empty reports whether the criteria would leave a query untouched.
func (c Criteria) Empty() bool { return len(c) == 0 }

// get returns the condition for field, if any.
func (c Criteria) get(field Field) (Condition, bool) {
	for _, cond := range c {
		if cond.Field == field {
			return cond, true
		}
	}
	return Condition{}, false
}

// Query is the mutable query a Builder narrows. Implementations ignore fields
// they cannot map.
type Query interface {
	WhereEquals(field Field, value any)
	WhereIn(field Field, values []any)
	WhereRange(field Field, from, to *time.Time)
	WhereContains(field Field, term string)
}

// Build applies every condition in c to q and returns q.
// Empty criteria leave q unchanged.
func Build(c Criteria, q Query) Query {
	for _, cond := range c {
		cons := cond.Constraint
		switch cons.Kind {
		case KindEquals:
			if len(cons.Values) > 0 {
				q.WhereEquals(cond.Field, cons.Values[0])
			}
		case KindIn:
			if len(cons.Values) > 0 {
				q.WhereIn(cond.Field, cons.Values)
			}
		case KindRange:
			if cons.From != nil || cons.To != nil {
				q.WhereRange(cond.Field, cons.From, cons.To)
			}
		case KindContains:
			if cons.Term != "" {
				q.WhereContains(cond.Field, cons.Term)
			}
		}
	}
	return q
}

func (c Criteria) sorted() Criteria {
	sort.Slice(c, func(i, j int) bool { return c[i].Field < c[j].Field })
	return c
}
