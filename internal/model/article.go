package model

import "time"

// Article is a single stored article. Articles are written by the ingestion
// pipeline; this service only reads them.
type Article struct {
	ID          int64
	CategoryID  *int64
	Title       string
	Description string
	Content     string
	Source      *string
	Author      *string
	URL         string
	ImageURL    string
	PublishedAt *time.Time

	// Category is attached when the article references one.
	Category *Category
}
