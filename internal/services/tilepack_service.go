package services

import (
	"context"
	"errors"
	"fmt"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/models"
)

// TilePackService handles tile pack read operations
type TilePackService struct {
	source backend.TilePackSource
	urls   backend.PublicURLResolver
	bucket string
}

// NewTilePackService creates a new TilePackService
func NewTilePackService(source backend.TilePackSource, urls backend.PublicURLResolver, bucket string) *TilePackService {
	return &TilePackService{source: source, urls: urls, bucket: bucket}
}

// List returns tile packs matching the query
func (s *TilePackService) List(ctx context.Context, q backend.Query) ([]models.TilePackWithTags, error) {
	packs, err := s.source.ListTilePacks(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tilepacks: %w", err)
	}
	return packs, nil
}

// Popular returns the n most installed tile packs
func (s *TilePackService) Popular(ctx context.Context, n int) ([]models.TilePackWithTags, error) {
	return s.List(ctx, backend.Query{Order: backend.OrderPopular, Limit: n})
}

// GetByID returns a specific tile pack by public id
func (s *TilePackService) GetByID(ctx context.Context, publicID string) (*models.TilePackWithTags, error) {
	pack, err := s.source.GetTilePack(ctx, publicID)
	if err != nil {
		return nil, fmt.Errorf("get tilepack: %w", err)
	}
	return pack, nil
}

// Install returns a tile pack's tiles for import into the game client and
// counts the install when the backend tracks installs.
func (s *TilePackService) Install(ctx context.Context, publicID string) (*models.TilePackWithTags, error) {
	pack, err := s.GetByID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if counter, ok := s.source.(backend.InstallCounter); ok {
		if err := counter.RecordInstall(ctx, publicID); err != nil && !errors.Is(err, backend.ErrNotFound) {
			return pack, fmt.Errorf("record install: %w", err)
		}
	}
	return pack, nil
}

// ImageURL returns the public URL of a tile pack's image
func (s *TilePackService) ImageURL(pack models.TilePack) string {
	return s.urls.PublicURL(s.bucket, pack.ImageName)
}
