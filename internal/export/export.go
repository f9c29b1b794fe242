// Package export writes JSON snapshots of the article store to object storage.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pep299/article-feed-api/internal/model"
	"github.com/pep299/article-feed-api/internal/resource"
)

const (
	snapshotDir     = "snapshots/"
	latestName      = "latest.json"
	timestampLayout = "20060102T150405Z"
)

// Sink stores snapshot objects.
type Sink interface {
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// Pruner is implemented by sinks that can delete old snapshots. Timestamped
// snapshots under prefix created before cutoff are removed.
type Pruner interface {
	Prune(ctx context.Context, prefix string, cutoff time.Time) (int, error)
}

// Source provides the records to export.
type Source interface {
	ListArticles(ctx context.Context) ([]model.Article, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Snapshot is the exported document.
type Snapshot struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Categories  []resource.CategoryView `json:"categories"`
	Articles    []resource.ArticleView  `json:"articles"`
}

// Result summarises one export run.
type Result struct {
	Key        string `json:"key"`
	Articles   int    `json:"articles"`
	Categories int    `json:"categories"`
	Bytes      int    `json:"bytes"`
	Pruned     int    `json:"pruned"`
}

// Exporter builds snapshots from a Source and writes them to a Sink.
type Exporter struct {
	source    Source
	sink      Sink
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewExporter creates an exporter. A zero retention disables pruning.
func NewExporter(source Source, sink Sink, prefix string, retention time.Duration) *Exporter {
	return &Exporter{
		source:    source,
		sink:      sink,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

// Run writes a timestamped snapshot and overwrites latest.json.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	generatedAt := e.now().UTC()

	categories, err := e.source.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	articles, err := e.source.ListArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading articles: %w", err)
	}

	data, err := json.Marshal(Snapshot{
		GeneratedAt: generatedAt,
		Categories:  resource.Categories(categories),
		Articles:    resource.Articles(articles),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := e.prefix + snapshotDir
	key := dir + generatedAt.Format(timestampLayout) + ".json"
	if err := e.sink.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("writing snapshot %s: %w", key, err)
	}
	if err := e.sink.Put(ctx, dir+latestName, data); err != nil {
		return nil, fmt.Errorf("writing latest snapshot: %w", err)
	}

	result := &Result{
		Key:        key,
		Articles:   len(articles),
		Categories: len(categories),
		Bytes:      len(data),
	}

	if pruner, ok := e.sink.(Pruner); ok && e.retention > 0 {
		n, err := pruner.Prune(ctx, dir, generatedAt.Add(-e.retention))
		if err != nil {
			log.Warn().Err(err).Str("prefix", dir).Msg("Pruning old snapshots failed")
		}
		result.Pruned = n
	}

	log.Info().
		Str("key", key).
		Int("articles", result.Articles).
		Int("categories", result.Categories).
		Int("pruned", result.Pruned).
		Msg("Snapshot exported")

	return result, nil
}

// isSnapshot reports whether name is a timestamped snapshot object.
func isSnapshot(name string) bool {
	base := path.Base(name)
	if path.Ext(base) != ".json" {
		return false
	}
	_, err := time.Parse(timestampLayout, base[:len(base)-len(".json")])
	return err == nil
}
