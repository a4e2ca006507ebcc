package models

import "time"

// TilePack represents a published tile pack
type TilePack struct {
	ID          int64     `json:"id"`
	PublicID    string    `json:"public_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageName   string    `json:"image_name"`
	AuthorID    string    `json:"author_id"`
	Tiles       string    `json:"tiles"`
	Installs    int64     `json:"installs"`
	CreatedAt   time.Time `json:"created_at"`
}

// TilePackWithTags is a tile pack joined with its tags
type TilePackWithTags struct {
	TilePack
	Tags []Tag `json:"tags"`
}

// Path returns the detail page path for the tile pack
func (t TilePack) Path() string {
	return "/tilepacks/" + t.PublicID + "/" + t.Slug
}
