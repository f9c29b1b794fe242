package filter

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

// recordingQuery captures calls so tests can assert what a Builder applied.
type recordingQuery struct {
	calls []string
}

func (q *recordingQuery) WhereEquals(field Field, value any) {
	q.calls = append(q.calls, fmt.Sprintf("%s = %v", field, value))
}

func (q *recordingQuery) WhereIn(field Field, values []any) {
	q.calls = append(q.calls, fmt.Sprintf("%s in %v", field, values))
}

func (q *recordingQuery) WhereRange(field Field, from, to *time.Time) {
	q.calls = append(q.calls, fmt.Sprintf("%s between %s and %s", field, fmtBound(from), fmtBound(to)))
}

func (q *recordingQuery) WhereContains(field Field, term string) {
	q.calls = append(q.calls, fmt.Sprintf("%s contains %s", field, term))
}

func fmtBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.Format(time.RFC3339Nano)
}

func apply(t *testing.T, body string) []string {
	t.Helper()
	criteria, _ := Parse([]byte(body))
	q := &recordingQuery{}
	Build(criteria, q)
	return q.calls
}

func TestParseEmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no body", ""},
		{"whitespace", "   \n"},
		{"empty object", "{}"},
		{"invalid json", "{source:"},
		{"array body", `["BBC"]`},
		{"string body", `"BBC"`},
		{"null body", "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria, _ := Parse([]byte(tt.body))
			if !criteria.Empty() {
				t.Fatalf("Expected empty criteria, got %+v", criteria)
			}
			if calls := apply(t, tt.body); len(calls) != 0 {
				t.Errorf("Expected no query changes, got %v", calls)
			}
		})
	}
}

func TestBuildAppliesEachConstraintKind(t *testing.T) {
	body := `{
		"source": "BBC",
		"author": ["Jane Doe", "John Roe", "Jane Doe"],
		"category_id": [1, "2", "x", 0, 2],
		"published_at": {"from": "2023-12-01", "to": "2023-12-05"},
		"keyword": "  election "
	}`

	got := apply(t, body)
	want := []string{
		"author in [Jane Doe John Roe]",
		"category_id in [1 2]",
		"keyword contains election",
		"published_at between 2023-12-01T00:00:00Z and 2023-12-05T23:59:59.999999999Z",
		"source = BBC",
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unexpected calls\n got: %v\nwant: %v", got, want)
	}
}

func TestParseDropsUnknownAndMalformed(t *testing.T) {
	body := `{
		"colour": "red",
		"source": 42,
		"author": "",
		"category": [],
		"category_id": "abc",
		"published_at": {"from": "yesterday"},
		"keyword": ["a", "b"],
		"categories": [null, 3, "World"]
	}`

	criteria, dropped := Parse([]byte(body))

	if len(criteria) != 1 {
		t.Fatalf("Expected 1 surviving condition, got %d: %+v", len(criteria), criteria)
	}
	cond := criteria[0]
	if cond.Field != Category || cond.Constraint.Kind != KindIn {
		t.Fatalf("Expected category in-set, got %+v", cond)
	}
	if !reflect.DeepEqual(cond.Constraint.Values, []any{"World"}) {
		t.Errorf("Expected values [World], got %v", cond.Constraint.Values)
	}

	wantDropped := []string{"author", "category", "category_id", "colour", "keyword", "published_at", "source"}
	if !reflect.DeepEqual(dropped, wantDropped) {
		t.Errorf("Expected dropped %v, got %v", wantDropped, dropped)
	}
}

func TestParseAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"plural alias", `{"sources": ["BBC", "CNN"]}`, []string{"source in [BBC CNN]"}},
		{"canonical wins", `{"sources": ["CNN"], "source": "BBC"}`, []string{"source = BBC"}},
		{"alias used when canonical malformed", `{"source": {}, "sources": "CNN"}`, []string{"source = CNN"}},
		{"search alias", `{"q": "climate"}`, []string{"keyword contains climate"}},
		{"key case", `{"Author": "Jane"}`, []string{"author = Jane"}},
		{"date alias", `{"date": "2023-12-05"}`, []string{"published_at between 2023-12-05T00:00:00Z and 2023-12-05T23:59:59.999999999Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := apply(t, tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDateRangeShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantFrom string
		wantTo   string
		wantOK   bool
	}{
		{"open upper", `{"published_at": {"from": "2023-12-01T10:00:00Z"}}`, "2023-12-01T10:00:00Z", "open", true},
		{"open lower", `{"published_at": {"to": "2023-12-01"}}`, "open", "2023-12-01T23:59:59.999999999Z", true},
		{"start end", `{"published_at": {"start": "2023-12-01", "end": "2023-12-02"}}`, "2023-12-01T00:00:00Z", "2023-12-02T23:59:59.999999999Z", true},
		{"offset normalised", `{"published_at": {"from": "2023-12-01T10:00:00+02:00"}}`, "2023-12-01T08:00:00Z", "open", true},
		{"one bad bound kept other", `{"published_at": {"from": "nope", "to": "2023-12-01 12:00:00"}}`, "open", "2023-12-01T12:00:00Z", true},
		{"instant", `{"published_at": "2023-12-01T10:00:00Z"}`, "2023-12-01T10:00:00Z", "2023-12-01T10:00:00Z", true},
		{"no bounds", `{"published_at": {}}`, "", "", false},
		{"number", `{"published_at": 20231201}`, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria, _ := Parse([]byte(tt.body))
			cond, ok := criteria.get(PublishedAt)
			if ok != tt.wantOK {
				t.Fatalf("Expected present=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if got := fmtBound(cond.Constraint.From); got != tt.wantFrom {
				t.Errorf("From = %s, want %s", got, tt.wantFrom)
			}
			if got := fmtBound(cond.Constraint.To); got != tt.wantTo {
				t.Errorf("To = %s, want %s", got, tt.wantTo)
			}
		})
	}
}

func TestBuildSkipsHollowConstraints(t *testing.T) {
	criteria := Criteria{
		{Field: Source, Constraint: Constraint{Kind: KindEquals}},
		{Field: Author, Constraint: Constraint{Kind: KindIn}},
		{Field: PublishedAt, Constraint: Constraint{Kind: KindRange}},
		{Field: Keyword, Constraint: Constraint{Kind: KindContains}},
		{Field: Category, Constraint: Constraint{Kind: Kind(99), Values: []any{"x"}}},
	}

	q := &recordingQuery{}
	Build(criteria, q)
	if len(q.calls) != 0 {
		t.Errorf("Expected no calls, got %v", q.calls)
	}
}

func TestKindString(t *testing.T) {
	if KindIn.String() != "in" || KindRange.String() != "range" || Kind(0).String() != "unknown" {
		t.Error("Unexpected kind names")
	}
}
