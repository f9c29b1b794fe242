// Package resource shapes stored records into the JSON views returned by the API.
package resource

import (
	"time"

	"github.com/pep299/article-feed-api/internal/idcodec"
	"github.com/pep299/article-feed-api/internal/model"
)

// CategoryView is the public shape of a category.
type CategoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ArticleView is the public shape of an article. The id is opaque.
type ArticleView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Source      *string       `json:"source"`
	Author      *string       `json:"author"`
	URL         string        `json:"url"`
	ImageURL    string        `json:"image_url"`
	PublishedAt *time.Time    `json:"published_at"`
	Category    *CategoryView `json:"category"`
}

func Category(c model.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name}
}

func Categories(cs []model.Category) []CategoryView {
	views := make([]CategoryView, len(cs))
	for i, c := range cs {
		views[i] = Category(c)
	}
	return views
}

func Article(a model.Article) ArticleView {
	v := ArticleView{
		ID:          idcodec.Encode(a.ID),
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		Source:      a.Source,
		Author:      a.Author,
		URL:         a.URL,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt,
	}
	if a.Category != nil {
		c := Category(*a.Category)
		v.Category = &c
	}
	return v
}

func Articles(as []model.Article) []ArticleView {
	views := make([]ArticleView, len(as))
	for i, a := range as {
		views[i] = Article(a)
	}
	return views
}
