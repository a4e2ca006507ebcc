package submission

import "tilepacks.dev/internal/models"

// Limits enforced on a tile pack submission
const (
	MaxNameLength        = 100
	MinDescriptionLength = 10
	MaxDescriptionLength = 5000
	MinTiles             = 1
	MaxTiles             = 200
	MinTags              = 1
	MaxTags              = 7
)

// File is an uploaded binary file held in memory
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Form holds the raw values of an upload form as the user entered them
type Form struct {
	Name          string
	Description   string
	Tiles         string
	Images        []File
	Tags          []string
	HumanVerified bool
}

// Submission is a fully validated tile pack submission
type Submission struct {
	Name        string
	Description string
	Tiles       []models.TileEntry
	Image       File
	Tags        []string
}
