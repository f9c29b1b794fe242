package model

// Category groups articles by topic.
type Category struct {
	ID   int64
	Name string
}
