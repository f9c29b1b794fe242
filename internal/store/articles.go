package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pep299/article-feed-api/internal/model"
)

// LookupColumn is a column exposed for distinct-value lookups.
type LookupColumn string

const (
	SourceColumn LookupColumn = "source"
	AuthorColumn LookupColumn = "author"
)

// Articles runs q and returns the matching articles with their categories.
func (s *Store) Articles(ctx context.Context, q *ArticleQuery) ([]model.Article, error) {
	query, args := q.build(s.dialect)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying articles: %w", err)
	}
	defer rows.Close()

	articles := make([]model.Article, 0)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading articles: %w", err)
	}
	return articles, nil
}

// ListArticles returns every article ordered by id.
func (s *Store) ListArticles(ctx context.Context) ([]model.Article, error) {
	return s.Articles(ctx, NewArticleQuery())
}

// FindArticle returns the article with id, or nil when none exists.
func (s *Store) FindArticle(ctx context.Context, id int64) (*model.Article, error) {
	articles, err := s.Articles(ctx, NewArticleQuery().WhereID(id).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

// SampleArticles returns up to n articles in random order.
func (s *Store) SampleArticles(ctx context.Context, n int) ([]model.Article, error) {
	return s.Articles(ctx, NewArticleQuery().InRandomOrder().Limit(n))
}

// ListCategories returns every category ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	return categories, nil
}

// DistinctValues returns up to limit distinct non-null values of column,
// ordered alphabetically.
func (s *Store) DistinctValues(ctx context.Context, column LookupColumn, limit int) ([]string, error) {
	if column != SourceColumn && column != AuthorColumn {
		return nil, fmt.Errorf("unsupported lookup column: %s", column)
	}
	col := string(column)
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM articles WHERE %s IS NOT NULL ORDER BY %s LIMIT ?",
		col, col, col,
	)

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("querying distinct %s: %w", col, err)
	}
	defer rows.Close()

	values := make([]string, 0, limit)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", col, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading distinct %s: %w", col, err)
	}
	return values, nil
}

// Counts holds table sizes.
type Counts struct {
	Articles   int64 `json:"articles"`
	Categories int64 `json:"categories"`
}

// Counts returns the number of stored articles and categories.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&c.Articles); err != nil {
		return Counts{}, fmt.Errorf("counting articles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&c.Categories); err != nil {
		return Counts{}, fmt.Errorf("counting categories: %w", err)
	}
	return c, nil
}

func scanArticle(rows *sql.Rows) (model.Article, error) {
	var (
		a           model.Article
		categoryID  sql.NullInt64
		source      sql.NullString
		author      sql.NullString
		publishedAt sql.NullTime
		catID       sql.NullInt64
		catName     sql.NullString
	)
	err := rows.Scan(
		&a.ID, &categoryID, &a.Title, &a.Description, &a.Content,
		&source, &author, &a.URL, &a.ImageURL, &publishedAt, &catID, &catName,
	)
	if err != nil {
		return model.Article{}, fmt.Errorf("scanning article: %w", err)
	}

	if categoryID.Valid {
		id := categoryID.Int64
		a.CategoryID = &id
	}
	if source.Valid {
		v := source.String
		a.Source = &v
	}
	if author.Valid {
		v := author.String
		a.Author = &v
	}
	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		a.PublishedAt = &t
	}
	if catID.Valid {
		a.Category = &model.Category{ID: catID.Int64, Name: catName.String}
	}
	return a, nil
}
