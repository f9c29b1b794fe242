package store

import (
	"context"
	"fmt"

	"github.com/pep299/article-feed-api/internal/model"
)

const upsertCategory = `INSERT INTO categories (id, name) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name`

const upsertArticle = `INSERT INTO articles
	(id, category_id, title, description, content, source, author, url, image_url, published_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	category_id = excluded.category_id,
	title = excluded.title,
	description = excluded.description,
	content = excluded.content,
	source = excluded.source,
	author = excluded.author,
	url = excluded.url,
	image_url = excluded.image_url,
	published_at = excluded.published_at`

// Seed writes categories and articles in one transaction. Every row must carry
// an explicit id; existing rows with the same id are replaced.
// Only the operator CLI calls Seed.
func (s *Store) Seed(ctx context.Context, categories []model.Category, articles []model.Article) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	for _, c := range categories {
		if c.ID <= 0 {
			return fmt.Errorf("category %q has no id", c.Name)
		}
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(upsertCategory), c.ID, c.Name); err != nil {
			return fmt.Errorf("seeding category %d: %w", c.ID, err)
		}
	}

	for _, a := range articles {
		if a.ID <= 0 {
			return fmt.Errorf("article %q has no id", a.Title)
		}
		var published any
		if a.PublishedAt != nil {
			published = a.PublishedAt.UTC()
		}
		_, err := tx.ExecContext(ctx, s.dialect.rebind(upsertArticle),
			a.ID, a.CategoryID, a.Title, a.Description, a.Content,
			a.Source, a.Author, a.URL, a.ImageURL, published,
		)
		if err != nil {
			return fmt.Errorf("seeding article %d: %w", a.ID, err)
		}
	}

	if s.dialect == Postgres {
		for _, table := range []string{"categories", "articles"} {
			stmt := fmt.Sprintf(
				"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))",
				table, table,
			)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("resetting %s sequence: %w", table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed: %w", err)
	}
	return nil
}

// MaxIDs returns the highest stored category and article ids.
func (s *Store) MaxIDs(ctx context.Context) (categoryID, articleID int64, err error) {
	if err = s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM categories").Scan(&categoryID); err != nil {
		return 0, 0, fmt.Errorf("reading max category id: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM articles").Scan(&articleID); err != nil {
		return 0, 0, fmt.Errorf("reading max article id: %w", err)
	}
	return categoryID, articleID, nil
}
