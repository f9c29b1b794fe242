// Package service implements the read-only article query operations behind
// the HTTP API.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pep299/article-feed-api/internal/cache"
	"github.com/pep299/article-feed-api/internal/filter"
	"github.com/pep299/article-feed-api/internal/idcodec"
	"github.com/pep299/article-feed-api/internal/model"
	"github.com/pep299/article-feed-api/internal/resource"
	"github.com/pep299/article-feed-api/internal/store"
)

const (
	DefaultSampleSize  = 5
	MaxSampleSize      = 100
	DefaultLookupLimit = 20
)

// Store is the read surface Articles needs from the database.
type Store interface {
	Articles(ctx context.Context, q *store.ArticleQuery) ([]model.Article, error)
	FindArticle(ctx context.Context, id int64) (*model.Article, error)
	SampleArticles(ctx context.Context, n int) ([]model.Article, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	DistinctValues(ctx context.Context, column store.LookupColumn, limit int) ([]string, error)
}

// Articles answers article and category queries.
type Articles struct {
	store       Store
	cache       *cache.Manager
	codec       idcodec.Codec
	lookupLimit int
}

// Option customises Articles.
type Option func(*Articles)

// WithCache caches category and distinct-value lookups in m.
func WithCache(m *cache.Manager) Option {
	return func(a *Articles) { a.cache = m }
}

// WithLookupLimit sets the default and maximum distinct lookup size.
func WithLookupLimit(n int) Option {
	return func(a *Articles) {
		if n > 0 {
			a.lookupLimit = n
		}
	}
}

// NewArticles creates the query service over s.
func NewArticles(s Store, opts ...Option) *Articles {
	a := &Articles{
		store:       s,
		cache:       cache.NewManager(nil),
		codec:       idcodec.V1,
		lookupLimit: DefaultLookupLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListAll returns every article in id order.
func (a *Articles) ListAll(ctx context.Context) ([]resource.ArticleView, error) {
	return a.Filtered(ctx, nil)
}

// Filtered returns the articles matching criteria. Empty criteria match all.
func (a *Articles) Filtered(ctx context.Context, criteria filter.Criteria) ([]resource.ArticleView, error) {
	q := store.NewArticleQuery()
	filter.Build(criteria, q)

	articles, err := a.store.Articles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	return resource.Articles(articles), nil
}

// ByID returns the article behind an encoded id. Undecodable ids and missing
// articles both return nil without error.
func (a *Articles) ByID(ctx context.Context, encodedID string) (*resource.ArticleView, error) {
	id, ok := a.codec.Decode(encodedID)
	if !ok {
		log.Ctx(ctx).Debug().Str("id", encodedID).Msg("Ignoring undecodable article id")
		return nil, nil
	}

	article, err := a.store.FindArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding article %d: %w", id, err)
	}
	if article == nil {
		return nil, nil
	}
	view := resource.Article(*article)
	return &view, nil
}

// Sample returns up to n random articles; n <= 0 uses DefaultSampleSize.
// Categories may repeat.
func (a *Articles) Sample(ctx context.Context, n int) ([]resource.ArticleView, error) {
	if n <= 0 {
		n = DefaultSampleSize
	}
	n = min(n, MaxSampleSize)
	articles, err := a.store.SampleArticles(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("sampling articles: %w", err)
	}
	return resource.Articles(articles), nil
}

// Categories returns every category in id order.
func (a *Articles) Categories(ctx context.Context) ([]resource.CategoryView, error) {
	return cache.GetOrLoad(ctx, a.cache, categoriesKey, a.loadCategories)
}

// DistinctSources returns up to limit distinct sources alphabetically.
// The limit is capped at the configured lookup limit.
func (a *Articles) DistinctSources(ctx context.Context, limit int) ([]string, error) {
	return a.distinct(ctx, store.SourceColumn, limit)
}

// DistinctAuthors returns up to limit distinct authors alphabetically.
func (a *Articles) DistinctAuthors(ctx context.Context, limit int) ([]string, error) {
	return a.distinct(ctx, store.AuthorColumn, limit)
}

// Warm reloads the cached lookups at the default limit.
func (a *Articles) Warm(ctx context.Context) error {
	if !a.cache.Enabled() {
		return nil
	}
	if _, err := cache.Refresh(ctx, a.cache, categoriesKey, a.loadCategories); err != nil {
		return err
	}
	for _, col := range []store.LookupColumn{store.SourceColumn, store.AuthorColumn} {
		if _, err := cache.Refresh(ctx, a.cache, lookupKey(col, a.lookupLimit), a.distinctLoader(col, a.lookupLimit)); err != nil {
			return err
		}
	}
	return nil
}

const categoriesKey = "categories"

func lookupKey(col store.LookupColumn, limit int) string {
	return fmt.Sprintf("%s:%d", col, limit)
}

func (a *Articles) distinct(ctx context.Context, col store.LookupColumn, limit int) ([]string, error) {
	if limit <= 0 || limit > a.lookupLimit {
		limit = a.lookupLimit
	}
	return cache.GetOrLoad(ctx, a.cache, lookupKey(col, limit), a.distinctLoader(col, limit))
}

func (a *Articles) distinctLoader(col store.LookupColumn, limit int) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		values, err := a.store.DistinctValues(ctx, col, limit)
		if err != nil {
			return nil, fmt.Errorf("listing distinct %s: %w", col, err)
		}
		return values, nil
	}
}

func (a *Articles) loadCategories(ctx context.Context) ([]resource.CategoryView, error) {
	categories, err := a.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return resource.Categories(categories), nil
}
