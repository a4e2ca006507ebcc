package submission

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"tilepacks.dev/internal/models"
)

// maxSafeInteger is the largest integer a double can hold exactly (2^53 - 1).
// The game client plugin reads tiles as doubles.
const maxSafeInteger = 1<<53 - 1

// tileSchema describes an export from the Ground Markers plugin
var tileSchema = newTileSchema()

func newTileSchema() *openapi3.Schema {
	coord := func() *openapi3.Schema {
		return openapi3.NewIntegerSchema().WithMin(0).WithMax(maxSafeInteger)
	}

	tile := openapi3.NewObjectSchema().
		WithProperty("regionId", coord()).
		WithProperty("regionX", coord()).
		WithProperty("regionY", coord()).
		WithProperty("z", coord()).
		WithProperty("color", openapi3.NewStringSchema().WithPattern(`^#[0-9a-fA-F]{8}$`)).
		WithProperty("label", openapi3.NewStringSchema()).
		WithoutAdditionalProperties()
	tile.Required = []string{"regionId", "regionX", "regionY", "z", "color"}

	return openapi3.NewArraySchema().
		WithItems(tile).
		WithMinItems(MinTiles).
		WithMaxItems(MaxTiles)
}

// ValidateTiles parses raw tile text and checks it against the tile schema.
// The returned error wraps ErrInvalidJSON when the text is not JSON, and
// ErrInvalidTileData when the JSON does not describe 1 to 200 tiles.
func ValidateTiles(raw string) ([]models.TileEntry, error) {
	if !json.Valid([]byte(raw)) {
		return nil, ErrInvalidJSON
	}

	// Numbers decode as doubles, so 1.0 reads as 1 and -0 as 0. A number too
	// large for a double is valid JSON but never a valid coordinate.
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTileData, err)
	}
	if err := tileSchema.VisitJSON(parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTileData, err)
	}

	items := parsed.([]any)
	tiles := make([]models.TileEntry, 0, len(items))
	for _, item := range items {
		tiles = append(tiles, toTile(item.(map[string]any)))
	}
	return tiles, nil
}

// TilesMessage maps a ValidateTiles error to its form message
func TilesMessage(err error) string {
	if errors.Is(err, ErrInvalidJSON) {
		return MsgInvalidJSON
	}
	return MsgInvalidTileData
}

// toTile converts an entry that already passed tileSchema
func toTile(obj map[string]any) models.TileEntry {
	tile := models.TileEntry{
		RegionID: int64(obj["regionId"].(float64)),
		RegionX:  int64(obj["regionX"].(float64)),
		RegionY:  int64(obj["regionY"].(float64)),
		Z:        int64(obj["z"].(float64)),
		Color:    obj["color"].(string),
	}
	if label, ok := obj["label"].(string); ok {
		tile.Label = &label
	}
	return tile
}
