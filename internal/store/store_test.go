package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pep299/article-feed-api/internal/filter"
	"github.com/pep299/article-feed-api/internal/model"
)

func strPtr(s string) *string { return &s }
func idPtr(id int64) *int64    { return &id }

func timePtr(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "articles.db")
	s, err := Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	categories := []model.Category{{ID: 1, Name: "World"}, {ID: 2, Name: "Tech"}}
	articles := []model.Article{
		{ID: 1, CategoryID: idPtr(1), Title: "Election results", Description: "Votes counted", Content: "Full story",
			Source: strPtr("BBC"), Author: strPtr("Jane Doe"), PublishedAt: timePtr("2023-12-01T10:00:00Z")},
		{ID: 2, CategoryID: idPtr(2), Title: "New chip", Description: "Faster 100% of the time", Content: "Silicon",
			Source: strPtr("BBC"), Author: strPtr("John Roe"), PublishedAt: timePtr("2023-12-05T23:30:00Z")},
		{ID: 3, CategoryID: idPtr(2), Title: "Robots", Description: "", Content: "An ELECTION of robots",
			Source: strPtr("CNN"), Author: nil, PublishedAt: timePtr("2023-12-06T00:00:00Z")},
		{ID: 7, CategoryID: nil, Title: "Orphan", Source: nil, Author: strPtr("Ann Lee")},
	}
	if err := s.Seed(ctx, categories, articles); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	return s
}

func ids(articles []model.Article) []int64 {
	out := make([]int64, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

func TestListArticles(t *testing.T) {
	s := newTestStore(t)

	articles, err := s.ListArticles(context.Background())
	if err != nil {
		t.Fatalf("ListArticles failed: %v", err)
	}
	if got := ids(articles); !reflect.DeepEqual(got, []int64{1, 2, 3, 7}) {
		t.Fatalf("Expected ids [1 2 3 7], got %v", got)
	}

	first := articles[0]
	if first.Category == nil || first.Category.Name != "World" {
		t.Errorf("Expected category World, got %+v", first.Category)
	}
	if first.PublishedAt == nil || !first.PublishedAt.Equal(*timePtr("2023-12-01T10:00:00Z")) {
		t.Errorf("Unexpected published_at %v", first.PublishedAt)
	}

	orphan := articles[3]
	if orphan.Category != nil || orphan.CategoryID != nil {
		t.Errorf("Expected no category, got %+v", orphan.Category)
	}
	if orphan.Source != nil || orphan.PublishedAt != nil {
		t.Errorf("Expected null source and published_at")
	}
}

func TestFindArticle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.FindArticle(ctx, 7)
	if err != nil {
		t.Fatalf("FindArticle failed: %v", err)
	}
	if a == nil || a.Title != "Orphan" {
		t.Fatalf("Expected article 7, got %+v", a)
	}

	missing, err := s.FindArticle(ctx, 999)
	if err != nil {
		t.Fatalf("FindArticle failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing article, got %+v", missing)
	}
}

func TestArticlesWithFilter(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name string
		body string
		want []int64
	}{
		{"empty", `{}`, []int64{1, 2, 3, 7}},
		{"source equals", `{"source": "BBC"}`, []int64{1, 2}},
		{"author in", `{"authors": ["Ann Lee", "John Roe"]}`, []int64{2, 7}},
		{"category name", `{"category": "Tech"}`, []int64{2, 3}},
		{"category id", `{"category_id": "1"}`, []int64{1}},
		{"whole day", `{"date": "2023-12-05"}`, []int64{2}},
		{"open range", `{"published_at": {"from": "2023-12-05"}}`, []int64{2, 3}},
		{"keyword case insensitive", `{"keyword": "election"}`, []int64{1, 3}},
		{"keyword escapes wildcards", `{"q": "100%"}`, []int64{2}},
		{"keyword literal percent", `{"q": "%"}`, []int64{2}},
		{"combined", `{"source": "BBC", "category": "Tech"}`, []int64{2}},
		{"unknown key ignored", `{"colour": "red", "source": "CNN"}`, []int64{3}},
		{"no match", `{"source": "Reuters"}`, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria, _ := filter.Parse([]byte(tt.body))
			q := NewArticleQuery()
			filter.Build(criteria, q)

			articles, err := s.Articles(context.Background(), q)
			if err != nil {
				t.Fatalf("Articles failed: %v", err)
			}
			if got := ids(articles); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArticlesWithLargeInList(t *testing.T) {
	s := newTestStore(t)

	sources := make([]string, 0, 40001)
	for i := 0; i < 40000; i++ {
		sources = append(sources, fmt.Sprintf("outlet-%d", i))
	}
	sources = append(sources, "CNN")
	body, err := json.Marshal(map[string]any{"sources": sources, "category_ids": []int64{2, 3}})
	if err != nil {
		t.Fatalf("Failed to build body: %v", err)
	}

	criteria, _ := filter.Parse(body)
	q := NewArticleQuery()
	filter.Build(criteria, q)

	articles, err := s.Articles(context.Background(), q)
	if err != nil {
		t.Fatalf("Articles failed: %v", err)
	}
	if got := ids(articles); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("got %v, want [3]", got)
	}
}

func TestSampleArticles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sample, err := s.SampleArticles(ctx, 2)
	if err != nil {
		t.Fatalf("SampleArticles failed: %v", err)
	}
	if len(sample) != 2 {
		t.Errorf("Expected 2 articles, got %d", len(sample))
	}

	all, err := s.SampleArticles(ctx, 10)
	if err != nil {
		t.Fatalf("SampleArticles failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Expected all 4 articles, got %d", len(all))
	}
}

func TestListCategories(t *testing.T) {
	s := newTestStore(t)

	categories, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	want := []model.Category{{ID: 1, Name: "World"}, {ID: 2, Name: "Tech"}}
	if !reflect.DeepEqual(categories, want) {
		t.Errorf("got %+v, want %+v", categories, want)
	}
}

func TestDistinctValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		column LookupColumn
		limit  int
		want   []string
	}{
		{SourceColumn, 20, []string{"BBC", "CNN"}},
		{SourceColumn, 1, []string{"BBC"}},
		{AuthorColumn, 20, []string{"Ann Lee", "Jane Doe", "John Roe"}},
	}

	for _, tt := range tests {
		got, err := s.DistinctValues(ctx, tt.column, tt.limit)
		if err != nil {
			t.Fatalf("DistinctValues(%s) failed: %v", tt.column, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DistinctValues(%s, %d) = %v, want %v", tt.column, tt.limit, got, tt.want)
		}
	}

	if _, err := s.DistinctValues(ctx, LookupColumn("title; DROP TABLE articles"), 5); err == nil {
		t.Error("Expected error for unsupported column")
	}
}

func TestSeedReplacesAndCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Seed(ctx, []model.Category{{ID: 2, Name: "Science"}}, nil)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts != (Counts{Articles: 4, Categories: 2}) {
		t.Errorf("Unexpected counts %+v", counts)
	}

	a, _ := s.FindArticle(ctx, 2)
	if a == nil || a.Category == nil || a.Category.Name != "Science" {
		t.Errorf("Expected renamed category, got %+v", a)
	}

	maxCat, maxArt, err := s.MaxIDs(ctx)
	if err != nil {
		t.Fatalf("MaxIDs failed: %v", err)
	}
	if maxCat != 2 || maxArt != 7 {
		t.Errorf("MaxIDs = %d, %d", maxCat, maxArt)
	}

	if err := s.Seed(ctx, nil, []model.Article{{Title: "no id"}}); err == nil {
		t.Error("Expected error for article without id")
	}
}

func TestRebind(t *testing.T) {
	got := Postgres.rebind("a = ? AND b IN (?,?)")
	if got != "a = $1 AND b IN ($2,$3)" {
		t.Errorf("Unexpected postgres rebind: %s", got)
	}
	if SQLite.rebind("a = ?") != "a = ?" {
		t.Error("SQLite should keep ? placeholders")
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"sqlite", SQLite, false},
		{"SQLite3", SQLite, false},
		{"postgres", Postgres, false},
		{"pgx", Postgres, false},
		{"mysql", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDialect(tt.driver)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDialect(%q) error = %v", tt.driver, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseDialect(%q) = %v, want %v", tt.driver, got, tt.want)
		}
	}
}
