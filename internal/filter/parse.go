package filter

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// fieldSpec describes how one request key is interpreted.
type fieldSpec struct {
	field     Field
	canonical bool
	parse     func(raw json.RawMessage) (Constraint, bool)
}

var specs = map[string]fieldSpec{
	"source":       {Source, true, parseText},
	"sources":      {Source, false, parseText},
	"author":       {Author, true, parseText},
	"authors":      {Author, false, parseText},
	"category":     {Category, true, parseText},
	"categories":   {Category, false, parseText},
	"category_id":  {CategoryID, true, parseIDs},
	"category_ids": {CategoryID, false, parseIDs},
	"published_at": {PublishedAt, true, parseDateRange},
	"date":         {PublishedAt, false, parseDateRange},
	"keyword":      {Keyword, true, parseTerm},
	"q":            {Keyword, false, parseTerm},
	"search":       {Keyword, false, parseTerm},
}

// Parse reads a JSON object body into Criteria.
// A body that is empty, not JSON, or not an object yields empty criteria.
// The second result lists keys that were dropped, sorted.
func Parse(body []byte) (Criteria, []string) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil
	}
	return FromMap(raw)
}

// FromMap interprets each key of raw through the recognised field set.
// When a canonical key and an alias both produce a condition for the same
// field, the canonical key wins; between aliases the first in key order wins.
func FromMap(raw map[string]json.RawMessage) (Criteria, []string) {
	type picked struct {
		cond      Condition
		canonical bool
	}
	chosen := make(map[Field]picked)
	var dropped []string

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		spec, ok := specs[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			dropped = append(dropped, key)
			continue
		}

		cons, ok := spec.parse(value)
		if !ok {
			dropped = append(dropped, key)
			continue
		}

		if prev, exists := chosen[spec.field]; exists && (prev.canonical || !spec.canonical) {
			dropped = append(dropped, key)
			continue
		}
		chosen[spec.field] = picked{Condition{Field: spec.field, Constraint: cons}, spec.canonical}
	}

	criteria := make(Criteria, 0, len(chosen))
	for _, p := range chosen {
		criteria = append(criteria, p.cond)
	}
	sort.Strings(dropped)
	return criteria.sorted(), dropped
}

// parseText accepts a non-empty string (equals) or an array of strings (in).
func parseText(raw json.RawMessage) (Constraint, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		single = strings.TrimSpace(single)
		if single == "" {
			return Constraint{}, false
		}
		return Constraint{Kind: KindEquals, Values: []any{single}}, true
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return Constraint{}, false
	}

	seen := make(map[string]struct{}, len(items))
	values := make([]any, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		values = append(values, s)
	}
	if len(values) == 0 {
		return Constraint{}, false
	}
	return Constraint{Kind: KindIn, Values: values}, true
}

// parseIDs accepts an id (number or numeric string) or an array of them.
func parseIDs(raw json.RawMessage) (Constraint, bool) {
	if id, ok := parseID(raw); ok {
		return Constraint{Kind: KindEquals, Values: []any{id}}, true
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return Constraint{}, false
	}

	seen := make(map[int64]struct{}, len(items))
	values := make([]any, 0, len(items))
	for _, item := range items {
		id, ok := parseID(item)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		values = append(values, id)
	}
	if len(values) == 0 {
		return Constraint{}, false
	}
	return Constraint{Kind: KindIn, Values: values}, true
}

func parseID(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n > 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

type dateRange struct {
	From  *string `json:"from"`
	To    *string `json:"to"`
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// parseDateRange accepts {"from","to"} (or start/end) or a single date.
// A single date-only value covers that whole day.
func parseDateRange(raw json.RawMessage) (Constraint, bool) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		t, dateOnly, ok := parseTime(single)
		if !ok {
			return Constraint{}, false
		}
		from, to := t, t
		if dateOnly {
			to = endOfDay(t)
		}
		return Constraint{Kind: KindRange, From: &from, To: &to}, true
	}

	var r dateRange
	if err := json.Unmarshal(raw, &r); err != nil {
		return Constraint{}, false
	}

	lower := firstNonNil(r.From, r.Start)
	upper := firstNonNil(r.To, r.End)

	var cons Constraint
	if lower != nil {
		if t, _, ok := parseTime(*lower); ok {
			cons.From = &t
		}
	}
	if upper != nil {
		if t, dateOnly, ok := parseTime(*upper); ok {
			if dateOnly {
				t = endOfDay(t)
			}
			cons.To = &t
		}
	}
	if cons.From == nil && cons.To == nil {
		return Constraint{}, false
	}
	cons.Kind = KindRange
	return cons, true
}

// parseTerm accepts a non-empty search string.
func parseTerm(raw json.RawMessage) (Constraint, bool) {
	var term string
	if err := json.Unmarshal(raw, &term); err != nil {
		return Constraint{}, false
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return Constraint{}, false
	}
	return Constraint{Kind: KindContains, Term: term}, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

const dateLayout = "2006-01-02"

// parseTime returns the instant in UTC and whether the input was a bare date.
func parseTime(s string) (time.Time, bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), true, true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, true
		}
	}
	return time.Time{}, false, false
}

func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
