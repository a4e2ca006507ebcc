package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/submission"
)

type fakeCatalog struct {
	tags  []models.Tag
	err   error
	calls atomic.Int32
}

func (f *fakeCatalog) ListTags(context.Context) ([]models.Tag, error) {
	f.calls.Add(1)
	return f.tags, f.err
}

type fakeSink struct {
	payloads []*submission.Payload
	err      error
}

func (f *fakeSink) Submit(_ context.Context, p *submission.Payload) error {
	f.payloads = append(f.payloads, p)
	return f.err
}

type fakeSource struct {
	packs    map[string]models.TilePackWithTags
	lastQ    backend.Query
	installs map[string]int
}

func (f *fakeSource) ListTilePacks(_ context.Context, q backend.Query) ([]models.TilePackWithTags, error) {
	f.lastQ = q
	var out []models.TilePackWithTags
	for _, p := range f.packs {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSource) GetTilePack(_ context.Context, id string) (*models.TilePackWithTags, error) {
	p, ok := f.packs[id]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return &p, nil
}

func (f *fakeSource) RecordInstall(_ context.Context, id string) error {
	f.installs[id]++
	return nil
}

type prefixURLs string

func (p prefixURLs) PublicURL(bucket, key string) string {
	return string(p) + "/" + bucket + "/" + key
}

var catalog = []models.Tag{{ID: 1, Name: "PvM", Slug: "pvm"}, {ID: 2, Name: "Skilling", Slug: "skilling"}}

func zulrahForm() submission.Form {
	return submission.Form{
		Name:          "Zulrah Safe Spots",
		Description:   "10+ characters of text",
		Tiles:         `[{"regionId":1,"regionX":2,"regionY":3,"z":0,"color":"#ff0000ff"}]`,
		Images:        []submission.File{{Filename: "z.png", Data: []byte("x")}},
		Tags:          []string{"PvM"},
		HumanVerified: true,
	}
}

func TestTagService_CachesUntilTTL(t *testing.T) {
	src := &fakeCatalog{tags: catalog}
	svc := NewTagService(src, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		tags, err := svc.List(context.Background())
		require.NoError(t, err)
		assert.Len(t, tags, 2)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())

	svc.Invalidate()
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestTagService_StaleOnFailure(t *testing.T) {
	src := &fakeCatalog{tags: catalog}
	svc := NewTagService(src, 0)

	_, err := svc.List(context.Background())
	require.NoError(t, err)

	src.err = errors.New("backend down")
	tags, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, catalog, tags)

	svc.Invalidate()
	_, err = svc.List(context.Background())
	assert.Error(t, err)
}

func TestTagService_GetBySlug(t *testing.T) {
	svc := NewTagService(&fakeCatalog{tags: catalog}, time.Minute)
	tag, err := svc.GetBySlug(context.Background(), "skilling")
	require.NoError(t, err)
	assert.Equal(t, "Skilling", tag.Name)

	_, err = svc.GetBySlug(context.Background(), "nope")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestTagService_CallersCannotChangeCache(t *testing.T) {
	src := &fakeCatalog{tags: []models.Tag{{ID: 1, Name: "PvM", Slug: "pvm"}, {ID: 2, Name: "Skilling", Slug: "skilling"}}}
	svc := NewTagService(src, time.Minute)

	tags, err := svc.List(context.Background())
	require.NoError(t, err)
	tags[0].Name = "changed"

	tag, err := svc.GetBySlug(context.Background(), "skilling")
	require.NoError(t, err)
	tag.Slug = "changed"

	tags, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, catalog, tags)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestUploadService_SubmitsOnce(t *testing.T) {
	sink := &fakeSink{}
	svc := NewUploadService(NewTagService(&fakeCatalog{tags: catalog}, time.Minute), sink)

	require.NoError(t, svc.Submit(context.Background(), zulrahForm()))
	require.Len(t, sink.payloads, 1)
	assert.Equal(t, []models.Tag{{ID: 1, Name: "PvM", Slug: "pvm"}}, sink.payloads[0].Tags)
}

func TestUploadService_InvalidFormNeverReachesSink(t *testing.T) {
	sink := &fakeSink{}
	svc := NewUploadService(NewTagService(&fakeCatalog{tags: catalog}, time.Minute), sink)

	form := zulrahForm()
	form.HumanVerified = false
	err := svc.Submit(context.Background(), form)

	var verr *submission.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{submission.FieldHumanVerified}, verr.FieldNames())
	assert.Empty(t, sink.payloads)
}

func TestUploadService_UnresolvableTag(t *testing.T) {
	sink := &fakeSink{}
	src := &fakeCatalog{tags: catalog}
	svc := NewUploadService(NewTagService(src, time.Hour), sink)

	form := zulrahForm()
	form.Tags = []string{"PvM", "Retired"}
	err := svc.Submit(context.Background(), form)

	var terr *submission.TagResolutionError
	require.ErrorAs(t, err, &terr)
	assert.Empty(t, sink.payloads)

	_, _ = svc.tags.List(context.Background())
	assert.Equal(t, int32(2), src.calls.Load(), "catalog reloads after a resolution failure")
}

func TestUploadService_SinkFailurePropagates(t *testing.T) {
	cause := errors.New("503 from storage")
	sink := &fakeSink{err: cause}
	svc := NewUploadService(NewTagService(&fakeCatalog{tags: catalog}, time.Minute), sink)

	err := svc.Submit(context.Background(), zulrahForm())

	var serr *UploadSinkError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, sink.payloads, 1, "no retry")
}

func TestTilePackService(t *testing.T) {
	src := &fakeSource{
		packs: map[string]models.TilePackWithTags{
			"abc": {TilePack: models.TilePack{PublicID: "abc", ImageName: "a.png"}},
		},
		installs: map[string]int{},
	}
	svc := NewTilePackService(src, prefixURLs("http://cdn"), "images")
	ctx := context.Background()

	_, err := svc.Popular(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, backend.Query{Order: backend.OrderPopular, Limit: 4}, src.lastQ)

	pack, err := svc.Install(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", pack.PublicID)
	assert.Equal(t, 1, src.installs["abc"])

	_, err = svc.GetByID(ctx, "zzz")
	assert.ErrorIs(t, err, backend.ErrNotFound)

	assert.Equal(t, "http://cdn/images/a.png", svc.ImageURL(pack.TilePack))
}
