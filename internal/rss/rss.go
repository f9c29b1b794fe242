// Package rss fetches RSS and Atom feeds and turns their items into article
// fixtures for the seed loader.
package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pep299/article-feed-api/internal/seed"
)

// Feed is a parsed RSS or Atom feed.
type Feed struct {
	Title string
	Link  string
	Items []Item
}

// Item is a single feed entry.
type Item struct {
	Title       string
	Link        string
	Description string
	Content     string
	GUID        string
	Author      string
	ImageURL    string
	Categories  []string
	Published   *time.Time
}

// Client fetches feeds over HTTP.
type Client struct {
	parser *gofeed.Parser
}

// NewClient creates a feed client with a 30 second timeout.
func NewClient() *Client {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: 30 * time.Second}
	p.UserAgent = "article-feed-api/1.0"
	return &Client{parser: p}
}

// FetchFeed fetches and parses the feed at url.
func (c *Client) FetchFeed(ctx context.Context, url string) (*Feed, error) {
	f, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", url, err)
	}
	return convert(f), nil
}

// FetchFeeds fetches urls with at most limit requests in flight. Failed feeds
// are reported by url in the second map.
func (c *Client) FetchFeeds(ctx context.Context, urls []string, limit int) (map[string]*Feed, map[string]error) {
	if limit <= 0 {
		limit = 1
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = make(chan struct{}, limit)
		feeds = make(map[string]*Feed)
		errs  = make(map[string]error)
	)

	for _, url := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			feed, err := c.FetchFeed(ctx, u)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[u] = err
				return
			}
			feeds[u] = feed
		}(url)
	}

	wg.Wait()
	return feeds, errs
}

// Parse reads a feed document from r.
func Parse(r io.Reader) (*Feed, error) {
	f, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return convert(f), nil
}

func convert(f *gofeed.Feed) *Feed {
	feed := &Feed{Title: strings.TrimSpace(f.Title), Link: f.Link, Items: make([]Item, 0, len(f.Items))}
	for _, it := range f.Items {
		item := Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        it.Link,
			Description: strings.TrimSpace(it.Description),
			Content:     strings.TrimSpace(it.Content),
			GUID:        it.GUID,
			Categories:  it.Categories,
		}
		if len(it.Authors) > 0 && it.Authors[0] != nil {
			item.Author = strings.TrimSpace(it.Authors[0].Name)
		}
		if it.Image != nil {
			item.ImageURL = it.Image.URL
		}
		switch {
		case it.PublishedParsed != nil:
			t := it.PublishedParsed.UTC()
			item.Published = &t
		case it.UpdatedParsed != nil:
			t := it.UpdatedParsed.UTC()
			item.Published = &t
		}
		feed.Items = append(feed.Items, item)
	}
	return feed
}

// FilterOptions holds filtering criteria
type FilterOptions struct {
	ExcludeCategories []string
	ExcludeKeywords   []string
	MinTitleLength    int
	MaxAge            time.Duration
	// ExcludeLinks drops items already stored under the same URL.
	ExcludeLinks map[string]bool
}

// FilterItems returns the items accepted by options.
func FilterItems(items []Item, options FilterOptions) []Item {
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if shouldIncludeItem(item, options) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func shouldIncludeItem(item Item, options FilterOptions) bool {
	if item.Title == "" {
		return false
	}
	if options.MinTitleLength > 0 && len(item.Title) < options.MinTitleLength {
		return false
	}
	if options.ExcludeLinks[item.Link] {
		return false
	}

	if options.MaxAge > 0 && item.Published != nil {
		if time.Since(*item.Published) > options.MaxAge {
			return false
		}
	}

	for _, category := range item.Categories {
		for _, excluded := range options.ExcludeCategories {
			if strings.EqualFold(category, excluded) {
				return false
			}
		}
	}

	title := strings.ToLower(item.Title)
	desc := strings.ToLower(item.Description)
	for _, keyword := range options.ExcludeKeywords {
		k := strings.ToLower(keyword)
		if strings.Contains(title, k) || strings.Contains(desc, k) {
			return false
		}
	}

	return true
}

// GetUniqueItems removes duplicate items based on GUID or link
func GetUniqueItems(items []Item) []Item {
	seen := make(map[string]bool)
	unique := make([]Item, 0, len(items))

	for _, item := range items {
		key := item.GUID
		if key == "" {
			key = item.Link
		}
		if key != "" && !seen[key] {
			seen[key] = true
			unique = append(unique, item)
		}
	}

	return unique
}

// ImportOptions controls how feed items become fixtures.
type ImportOptions struct {
	// Source overrides the feed title as the article source.
	Source string
	// Category files every item under this category name.
	Category string
	// Limit caps the number of items taken from the feed; 0 means all.
	Limit int
}

// ToFixtures converts feed items to article fixtures. Ids are left for the
// seed loader to assign.
func ToFixtures(feed *Feed, items []Item, opts ImportOptions) *seed.Fixtures {
	fixtures := &seed.Fixtures{}

	category := strings.TrimSpace(opts.Category)
	if category != "" {
		fixtures.Categories = append(fixtures.Categories, seed.CategoryFixture{Name: category})
	}

	source := strings.TrimSpace(opts.Source)
	if source == "" && feed != nil {
		source = feed.Title
	}

	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	for _, item := range items {
		a := seed.ArticleFixture{
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			URL:         item.Link,
			ImageURL:    item.ImageURL,
			Category:    category,
		}
		if a.Description == "" {
			a.Description = item.Content
		}
		if source != "" {
			s := source
			a.Source = &s
		}
		if item.Author != "" {
			author := item.Author
			a.Author = &author
		}
		if item.Published != nil {
			a.PublishedAt = item.Published.Format(time.RFC3339)
		}
		fixtures.Articles = append(fixtures.Articles, a)
	}

	return fixtures
}
