// Package sqlite provides a local backend on SQLite, with uploaded images
// kept as files on disk. It serves development and self-hosted deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/backend/sqlite/migrations"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/slug"
	"tilepacks.dev/internal/submission"
)

// AnonymousAuthor is recorded as the author of uploads until sign-in exists
const AnonymousAuthor = "anonymous"

const defaultLimit = 50

// Options configures a Store
type Options struct {
	// ObjectDir is where uploaded objects are written, one directory per bucket
	ObjectDir string
	// Bucket is the bucket uploaded images are stored in
	Bucket string
	// PublicBaseURL prefixes public object URLs, e.g. "http://localhost:8080"
	PublicBaseURL string
}

// Store persists tile packs and tags in SQLite
type Store struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

var _ backend.Backend = (*Store)(nil)

// Open opens a SQLite store at path and applies the embedded migrations
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("image bucket is required")
	}
	if err := os.MkdirAll(filepath.Join(opts.ObjectDir, opts.Bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, opts: opts, now: time.Now}, nil
}

// Close closes the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SeedTags inserts or updates catalog tags by id
func (s *Store) SeedTags(ctx context.Context, tags []models.Tag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tags (id, name, slug) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, slug = excluded.slug`,
			tag.ID, tag.Name, tag.Slug,
		); err != nil {
			return fmt.Errorf("seed tag %q: %w", tag.Name, err)
		}
	}
	return tx.Commit()
}

// ListTags returns the tag catalog ordered by name
func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Submit stores the image under a fresh key and records the tile pack with its tags
func (s *Store) Submit(ctx context.Context, payload *submission.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	imageName := uuid.NewString() + imageExt(payload.Image)
	imagePath := filepath.Join(s.opts.ObjectDir, s.opts.Bucket, imageName)
	if err := os.WriteFile(imagePath, payload.Image.Data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	if err := s.insertTilePack(ctx, payload, imageName); err != nil {
		_ = os.Remove(imagePath)
		return err
	}
	return nil
}

func (s *Store) insertTilePack(ctx context.Context, payload *submission.Payload, imageName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tilepacks (public_id, slug, name, description, image_name, author_id, tiles, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		slug.Make(payload.Name),
		payload.Name,
		payload.Description,
		imageName,
		AnonymousAuthor,
		payload.Tiles,
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert tilepack: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert tilepack: %w", err)
	}

	for i, tag := range payload.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tilepack_tags (tilepack_id, tag_id, position) VALUES (?, ?, ?)`,
			id, tag.ID, i,
		); err != nil {
			return fmt.Errorf("link tag %q: %w", tag.Name, err)
		}
	}
	return tx.Commit()
}

// ListTilePacks returns tile packs matching q, with their tags
func (s *Store) ListTilePacks(ctx context.Context, q backend.Query) ([]models.TilePackWithTags, error) {
	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		where = append(where, `(p.name LIKE ? ESCAPE '\' OR p.description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if q.TagSlug != "" {
		where = append(where, `EXISTS (
			SELECT 1 FROM tilepack_tags tt JOIN tags t ON t.id = tt.tag_id
			WHERE tt.tilepack_id = p.id AND t.slug = ?)`)
		args = append(args, q.TagSlug)
	}

	query := `SELECT p.id, p.public_id, p.slug, p.name, p.description, p.image_name,
	                 p.author_id, p.tiles, p.installs, p.created_at
	          FROM tilepacks p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if q.Order == backend.OrderPopular {
		query += " ORDER BY p.installs DESC, p.created_at DESC, p.id DESC"
	} else {
		query += " ORDER BY p.created_at DESC, p.id DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tilepacks: %w", err)
	}
	defer rows.Close()

	var packs []models.TilePackWithTags
	for rows.Next() {
		pack, err := scanTilePack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tilepack: %w", err)
		}
		packs = append(packs, models.TilePackWithTags{TilePack: pack})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tilepacks: %w", err)
	}

	if err := s.attachTags(ctx, packs); err != nil {
		return nil, err
	}
	return packs, nil
}

// GetTilePack returns one tile pack by public id
func (s *Store) GetTilePack(ctx context.Context, publicID string) (*models.TilePackWithTags, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, slug, name, description, image_name, author_id, tiles, installs, created_at
		 FROM tilepacks WHERE public_id = ?`, publicID)
	pack, err := scanTilePack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tilepack %s: %w", publicID, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get tilepack: %w", err)
	}

	packs := []models.TilePackWithTags{{TilePack: pack}}
	if err := s.attachTags(ctx, packs); err != nil {
		return nil, err
	}
	return &packs[0], nil
}

// RecordInstall increments a tile pack's install count
func (s *Store) RecordInstall(ctx context.Context, publicID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tilepacks SET installs = installs + 1 WHERE public_id = ?`, publicID)
	if err != nil {
		return fmt.Errorf("record install: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tilepack %s: %w", publicID, backend.ErrNotFound)
	}
	return nil
}

// PublicURL returns the URL the web tier serves a stored object from
func (s *Store) PublicURL(bucket, key string) string {
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/storage/" + url.PathEscape(bucket) + "/" + url.PathEscape(key)
}

// ObjectFS exposes a bucket's stored objects
func (s *Store) ObjectFS(bucket string) (fs.FS, error) {
	if bucket != s.opts.Bucket {
		return nil, fmt.Errorf("bucket %s: %w", bucket, backend.ErrNotFound)
	}
	return os.DirFS(filepath.Join(s.opts.ObjectDir, bucket)), nil
}

func (s *Store) attachTags(ctx context.Context, packs []models.TilePackWithTags) error {
	if len(packs) == 0 {
		return nil
	}
	index := make(map[int64]int, len(packs))
	placeholders := make([]string, len(packs))
	args := make([]any, len(packs))
	for i, pack := range packs {
		index[pack.ID] = i
		placeholders[i] = "?"
		args[i] = pack.ID
		packs[i].Tags = []models.Tag{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tt.tilepack_id, t.id, t.name, t.slug
		 FROM tilepack_tags tt JOIN tags t ON t.id = tt.tag_id
		 WHERE tt.tilepack_id IN (`+strings.Join(placeholders, ",")+`)
		 ORDER BY tt.tilepack_id, tt.position`, args...)
	if err != nil {
		return fmt.Errorf("query tilepack tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var packID int64
		var tag models.Tag
		if err := rows.Scan(&packID, &tag.ID, &tag.Name, &tag.Slug); err != nil {
			return fmt.Errorf("scan tilepack tag: %w", err)
		}
		if i, ok := index[packID]; ok {
			packs[i].Tags = append(packs[i].Tags, tag)
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTilePack(row scanner) (models.TilePack, error) {
	var (
		pack      models.TilePack
		createdAt int64
	)
	err := row.Scan(&pack.ID, &pack.PublicID, &pack.Slug, &pack.Name, &pack.Description,
		&pack.ImageName, &pack.AuthorID, &pack.Tiles, &pack.Installs, &createdAt)
	if err != nil {
		return models.TilePack{}, err
	}
	pack.CreatedAt = time.UnixMilli(createdAt).UTC()
	return pack, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func imageExt(f submission.File) string {
	switch f.ContentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	ext := strings.ToLower(filepath.Ext(f.Filename))
	if len(ext) < 2 || len(ext) > 5 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
