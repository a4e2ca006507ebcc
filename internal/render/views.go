package render

import (
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/submission"
)

// Orientation is the layout of a result card
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Card is one tile pack in a result list
type Card struct {
	Pack        models.TilePackWithTags
	ImageURL    string
	Orientation Orientation
}

// HomeView is the data for the home page
type HomeView struct {
	Popular []Card
	Tags    []models.Tag
}

// ListView is a list of tile pack results
type ListView struct {
	Heading string
	Query   string
	Cards   []Card
}

// TagView lists the tile packs carrying one tag
type TagView struct {
	Tag   models.Tag
	Cards []Card
}

// DetailView is the data for a tile pack's page
type DetailView struct {
	Card      Card
	TileCount int
	TilesJSON string
}

// UploadValues are the text values typed into the upload form
type UploadValues struct {
	Name          string
	Description   string
	Tiles         string
	HumanVerified bool
}

// UploadView is the data for the upload form
type UploadView struct {
	Values        UploadValues
	Selected      []models.Tag
	Available     []models.Tag
	Remaining     []string
	Full          bool
	MaxTags       int
	MaxImageBytes int64
	Errors        *submission.ValidationError
	Message       string
	CatalogEmpty  bool
}

// FieldError returns the first error for a field, for use in templates
func (v UploadView) FieldError(field string) string {
	if v.Errors == nil {
		return ""
	}
	return v.Errors.First(field)
}

// ErrorView is the data for error pages
type ErrorView struct {
	Status  int
	Message string
}
