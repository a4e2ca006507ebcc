package models

// TileEntry is a single colored tile overlay inside a tile pack.
// Coordinates follow the game client's region addressing.
type TileEntry struct {
	RegionID int64   `json:"regionId"`
	RegionX  int64   `json:"regionX"`
	RegionY  int64   `json:"regionY"`
	Z        int64   `json:"z"`
	Color    string  `json:"color"`
	Label    *string `json:"label,omitempty"`
}
