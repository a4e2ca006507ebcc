package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/models"
)

// TagService serves the tag catalog from a cache refreshed after ttl
type TagService struct {
	catalog backend.TagCatalog
	ttl     time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	tags     []models.Tag
	loadedAt time.Time
}

// NewTagService creates a new TagService
func NewTagService(catalog backend.TagCatalog, ttl time.Duration) *TagService {
	return &TagService{catalog: catalog, ttl: ttl, now: time.Now}
}

// List returns a copy of the tag catalog. When a refresh fails and an older
// copy is cached, the older copy is returned.
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	s.mu.RLock()
	tags, fresh := s.tags, s.tags != nil && s.now().Sub(s.loadedAt) < s.ttl
	s.mu.RUnlock()
	if fresh {
		return slices.Clone(tags), nil
	}

	loaded, err := s.catalog.ListTags(ctx)
	if err != nil {
		if tags != nil {
			return slices.Clone(tags), nil
		}
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if loaded == nil {
		loaded = []models.Tag{}
	}

	s.mu.Lock()
	s.tags, s.loadedAt = loaded, s.now()
	s.mu.Unlock()
	return slices.Clone(loaded), nil
}

// GetBySlug returns a specific tag by slug
func (s *TagService) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	tags, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		if tag.Slug == slug {
			return &tag, nil
		}
	}
	return nil, fmt.Errorf("tag %s: %w", slug, backend.ErrNotFound)
}

// Invalidate drops the cached catalog so the next List reloads it
func (s *TagService) Invalidate() {
	s.mu.Lock()
	s.tags = nil
	s.mu.Unlock()
}
