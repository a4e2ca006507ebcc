package remote

import (
	"encoding/json"
	"time"

	"tilepacks.dev/internal/models"
)

// tilePackRow is a tilepacks row as the REST API returns it. The tiles
// column may be stored as text or as a JSON document.
type tilePackRow struct {
	ID          int64           `json:"id"`
	PublicID    string          `json:"public_id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageName   string          `json:"image_name"`
	AuthorID    string          `json:"author_id"`
	Tiles       json.RawMessage `json:"tiles"`
	Installs    int64           `json:"installs"`
	CreatedAt   time.Time       `json:"created_at"`
	Tags        []models.Tag    `json:"tags"`
}

func (r tilePackRow) model() models.TilePackWithTags {
	tags := r.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return models.TilePackWithTags{
		TilePack: models.TilePack{
			ID:          r.ID,
			PublicID:    r.PublicID,
			Slug:        r.Slug,
			Name:        r.Name,
			Description: r.Description,
			ImageName:   r.ImageName,
			AuthorID:    r.AuthorID,
			Tiles:       tilesText(r.Tiles),
			Installs:    r.Installs,
			CreatedAt:   r.CreatedAt,
		},
		Tags: tags,
	}
}

func tilesText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
