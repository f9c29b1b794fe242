package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pep299/article-feed-api/internal/filter"
)

// columns maps filterable fields onto the joined article/category select.
var columns = map[filter.Field]string{
	filter.Source:      "a.source",
	filter.Author:      "a.author",
	filter.Category:    "c.name",
	filter.CategoryID:  "a.category_id",
	filter.PublishedAt: "a.published_at",
}

// searchColumns are matched by filter.Keyword.
var searchColumns = []string{"a.title", "a.description", "a.content"}

// ArticleQuery is a mutable article query. It implements filter.Query so the
// filter builder can narrow it before execution.
type ArticleQuery struct {
	where  []clause
	args   []any
	random bool
	limit  int
}

// clause renders one WHERE condition for a dialect.
type clause func(d Dialect) string

func raw(sql string) clause {
	return func(Dialect) string { return sql }
}

var _ filter.Query = (*ArticleQuery)(nil)

// NewArticleQuery returns an unfiltered query over all articles.
func NewArticleQuery() *ArticleQuery {
	return &ArticleQuery{}
}

// WhereID restricts the query to a single article.
func (q *ArticleQuery) WhereID(id int64) *ArticleQuery {
	q.where = append(q.where, raw("a.id = ?"))
	q.args = append(q.args, id)
	return q
}

// InRandomOrder shuffles results instead of ordering by id.
func (q *ArticleQuery) InRandomOrder() *ArticleQuery {
	q.random = true
	return q
}

// Limit caps the number of rows returned; n <= 0 means no cap.
func (q *ArticleQuery) Limit(n int) *ArticleQuery {
	q.limit = n
	return q
}

func (q *ArticleQuery) WhereEquals(field filter.Field, value any) {
	col, ok := columns[field]
	if !ok {
		return
	}
	q.where = append(q.where, raw(col+" = ?"))
	q.args = append(q.args, normalizeArg(value))
}

// WhereIn binds the whole list as a single JSON array argument, so the
// number of values is not bounded by the driver's parameter limit.
func (q *ArticleQuery) WhereIn(field filter.Field, values []any) {
	col, ok := columns[field]
	if !ok || len(values) == 0 {
		return
	}
	list, err := json.Marshal(values)
	if err != nil {
		return
	}

	numeric := true
	for _, v := range values {
		if _, ok := v.(int64); !ok {
			numeric = false
			break
		}
	}

	q.args = append(q.args, string(list))
	q.where = append(q.where, func(d Dialect) string {
		if d != Postgres {
			return col + " IN (SELECT value FROM json_each(?))"
		}
		if numeric {
			return col + " IN (SELECT jsonb_array_elements_text(?::jsonb)::bigint)"
		}
		return col + " IN (SELECT jsonb_array_elements_text(?::jsonb))"
	})
}

func (q *ArticleQuery) WhereRange(field filter.Field, from, to *time.Time) {
	col, ok := columns[field]
	if !ok {
		return
	}
	if from != nil {
		q.where = append(q.where, raw(col+" >= ?"))
		q.args = append(q.args, from.UTC())
	}
	if to != nil {
		q.where = append(q.where, raw(col+" <= ?"))
		q.args = append(q.args, to.UTC())
	}
}

func (q *ArticleQuery) WhereContains(field filter.Field, term string) {
	if field != filter.Keyword || term == "" {
		return
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	parts := make([]string, len(searchColumns))
	for i, col := range searchColumns {
		parts[i] = "LOWER(" + col + ") LIKE ? ESCAPE '\\'"
		q.args = append(q.args, pattern)
	}
	q.where = append(q.where, raw("("+strings.Join(parts, " OR ")+")"))
}

const articleSelect = `SELECT a.id, a.category_id, a.title, a.description, a.content,
	a.source, a.author, a.url, a.image_url, a.published_at, c.id, c.name
FROM articles a
LEFT JOIN categories c ON c.id = a.category_id`

// build renders the query for dialect d.
func (q *ArticleQuery) build(d Dialect) (string, []any) {
	query := articleSelect
	if len(q.where) > 0 {
		conds := make([]string, len(q.where))
		for i, c := range q.where {
			conds[i] = c(d)
		}
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if q.random {
		query += " ORDER BY RANDOM()"
	} else {
		query += " ORDER BY a.id"
	}
	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	return d.rebind(query), q.args
}

func normalizeArg(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
