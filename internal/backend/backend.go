// Package backend defines the narrow contracts the web tier needs from the
// hosted backend: the tag catalog, the upload sink, public image URLs and
// read access to published tile packs.
package backend

import (
	"context"
	"errors"
	"io/fs"

	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/submission"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// TagCatalog lists the tags a tile pack can be labelled with
type TagCatalog interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
}

// UploadSink accepts assembled tile pack submissions
type UploadSink interface {
	Submit(ctx context.Context, payload *submission.Payload) error
}

// PublicURLResolver maps an object in a storage bucket to a fetchable URL
type PublicURLResolver interface {
	PublicURL(bucket, key string) string
}

// TilePackSource reads published tile packs
type TilePackSource interface {
	ListTilePacks(ctx context.Context, q Query) ([]models.TilePackWithTags, error)
	GetTilePack(ctx context.Context, publicID string) (*models.TilePackWithTags, error)
}

// Backend bundles every contract a storage backend provides
type Backend interface {
	TagCatalog
	UploadSink
	PublicURLResolver
	TilePackSource
	Close() error
}

// ObjectStore is implemented by backends that keep uploaded objects locally
// and need the web tier to serve them.
type ObjectStore interface {
	ObjectFS(bucket string) (fs.FS, error)
}

// InstallCounter records tile pack installs
type InstallCounter interface {
	RecordInstall(ctx context.Context, publicID string) error
}

// Order selects how tile pack listings are sorted
type Order string

const (
	OrderNewest  Order = "newest"
	OrderPopular Order = "popular"
)

// Query filters a tile pack listing
type Query struct {
	Search  string // matched against name and description
	TagSlug string
	Order   Order
	Limit   int
}
