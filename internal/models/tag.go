package models

// Tag is a categorical label from the tag catalog
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TagList wraps the array of tags in a catalog file
type TagList struct {
	Tags []Tag `json:"tags"`
}
