// Package seed loads category and article fixtures from YAML into the store.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pep299/article-feed-api/internal/model"
)

// Fixtures is the YAML document accepted by newsctl seed.
type Fixtures struct {
	Categories []CategoryFixture `yaml:"categories"`
	Articles   []ArticleFixture  `yaml:"articles"`
}

type CategoryFixture struct {
	ID   int64  `yaml:"id,omitempty"`
	Name string `yaml:"name"`
}

// ArticleFixture references its category by id or by name.
type ArticleFixture struct {
	ID          int64   `yaml:"id,omitempty"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Content     string  `yaml:"content"`
	Source      *string `yaml:"source"`
	Author      *string `yaml:"author"`
	URL         string  `yaml:"url"`
	ImageURL    string  `yaml:"image_url"`
	PublishedAt string  `yaml:"published_at"`
	CategoryID  int64   `yaml:"category_id,omitempty"`
	Category    string  `yaml:"category,omitempty"`
}

// Seeder is the store write path used for fixtures.
type Seeder interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	MaxIDs(ctx context.Context) (categoryID, articleID int64, err error)
	Seed(ctx context.Context, categories []model.Category, articles []model.Article) error
}

// Load decodes fixtures from r.
func Load(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding fixtures: %w", err)
	}
	return &f, nil
}

// LoadFile decodes fixtures from path.
func LoadFile(path string) (*Fixtures, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixtures: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// Resolve assigns ids and links categories. A category without an id reuses
// the id of a stored category with the same name. Other rows without an id
// get the next id after the larger of the stored maximum and any explicit
// fixture id, in file order.
func (f *Fixtures) Resolve(existing []model.Category, maxCategoryID, maxArticleID int64) ([]model.Category, []model.Article, error) {
	stored := make(map[string]int64, len(existing))
	for _, c := range existing {
		stored[c.Name] = c.ID
	}

	for _, c := range f.Categories {
		maxCategoryID = max(maxCategoryID, c.ID)
	}
	for _, a := range f.Articles {
		maxArticleID = max(maxArticleID, a.ID)
	}

	categories := make([]model.Category, 0, len(f.Categories))
	byName := make(map[string]int64, len(f.Categories))
	for i, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("category %d: name is required", i+1)
		}
		id := c.ID
		if id <= 0 {
			if storedID, ok := stored[name]; ok {
				id = storedID
			} else {
				maxCategoryID++
				id = maxCategoryID
			}
		}
		if _, dup := byName[name]; dup {
			return nil, nil, fmt.Errorf("category %q is defined twice", name)
		}
		byName[name] = id
		categories = append(categories, model.Category{ID: id, Name: name})
	}

	articles := make([]model.Article, 0, len(f.Articles))
	for i, a := range f.Articles {
		if strings.TrimSpace(a.Title) == "" {
			return nil, nil, fmt.Errorf("article %d: title is required", i+1)
		}
		id := a.ID
		if id <= 0 {
			maxArticleID++
			id = maxArticleID
		}

		article := model.Article{
			ID:          id,
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			Source:      a.Source,
			Author:      a.Author,
			URL:         a.URL,
			ImageURL:    a.ImageURL,
		}

		switch {
		case a.CategoryID > 0:
			cid := a.CategoryID
			article.CategoryID = &cid
		case a.Category != "":
			cid, ok := byName[a.Category]
			if !ok {
				cid, ok = stored[a.Category]
			}
			if !ok {
				return nil, nil, fmt.Errorf("article %q: unknown category %q", a.Title, a.Category)
			}
			article.CategoryID = &cid
		}

		if a.PublishedAt != "" {
			t, err := parsePublishedAt(a.PublishedAt)
			if err != nil {
				return nil, nil, fmt.Errorf("article %q: %w", a.Title, err)
			}
			article.PublishedAt = &t
		}

		articles = append(articles, article)
	}

	return categories, articles, nil
}

// Apply resolves f against the store's current ids and writes it.
func Apply(ctx context.Context, s Seeder, f *Fixtures) (int, int, error) {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return 0, 0, err
	}
	maxCat, maxArt, err := s.MaxIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	categories, articles, err := f.Resolve(existing, maxCat, maxArt)
	if err != nil {
		return 0, 0, err
	}
	if err := s.Seed(ctx, categories, articles); err != nil {
		return 0, 0, err
	}
	return len(categories), len(articles), nil
}

func parsePublishedAt(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid published_at %q", s)
}
