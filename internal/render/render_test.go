package render

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilepacks.dev/internal/config"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/submission"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	site := config.DefaultSite
	r, err := New(&site)
	require.NoError(t, err)
	return r
}

func sampleCard(o Orientation) Card {
	return Card{
		Pack: models.TilePackWithTags{
			TilePack: models.TilePack{
				PublicID: "abc", Slug: "zulrah-safe-spots", Name: "Zulrah Safe Spots",
				Description: "Stand **here**", AuthorID: "anonymous", Installs: 12345,
				CreatedAt: time.Now().Add(-time.Hour),
			},
			Tags: []models.Tag{{ID: 1, Name: "PvM", Slug: "pvm"}},
		},
		ImageURL:    "http://localhost/storage/tilepack-images/a.png",
		Orientation: o,
	}
}

func TestMarkdownSanitizes(t *testing.T) {
	r := newRenderer(t)
	out := string(r.Markdown("**bold** <script>alert(1)</script> [x](javascript:alert(1))"))
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "javascript:")
}

func TestExecutePages(t *testing.T) {
	r := newRenderer(t)
	tests := []struct {
		page string
		data any
		want []string
	}{
		{PageHome, HomeView{Popular: []Card{sampleCard(Vertical)}, Tags: []models.Tag{{Name: "PvM", Slug: "pvm"}}},
			[]string{"Upload Your Own", "card-vertical", `href="/tags/pvm"`, "12,345 installs"}},
		{PageTilePacks, ListView{Heading: "Tile Packs", Query: "zul", Cards: []Card{sampleCard(Horizontal)}},
			[]string{"card-horizontal", `href="/tilepacks/abc/zulrah-safe-spots"`, `value="zul"`}},
		{PageTilePacks, ListView{Heading: "Tile Packs"}, []string{"No tile packs found."}},
		{PageTag, TagView{Tag: models.Tag{Name: "PvM"}}, []string{"Tagged", "No tile packs found."}},
		{PageTilePack, DetailView{Card: sampleCard(Horizontal), TileCount: 1, TilesJSON: "[]"},
			[]string{"<strong>here</strong>", "1 tiles", "/tilepacks/abc/zulrah-safe-spots/tiles.json", "1 hour ago"}},
		{PageError, ErrorView{Status: 404, Message: "Tile pack not found"}, []string{"Tile pack not found"}},
		{PageUpload, UploadView{CatalogEmpty: true}, []string{"failed to load"}},
	}
	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Execute(&buf, tt.page, "Title", tt.data))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
			assert.Contains(t, buf.String(), "--primary: #ff9f1c")
		})
	}
}

func TestUploadPagePicker(t *testing.T) {
	r := newRenderer(t)
	view := UploadView{
		Values:    UploadValues{Name: `<b>"x"</b>`, Tiles: "[]", HumanVerified: true},
		Selected:  []models.Tag{{Name: "PvM"}, {Name: "Raids"}},
		Available: []models.Tag{{Name: "Skilling"}},
		Remaining: []string{"Skilling"},
		MaxTags:   submission.MaxTags,
		Errors: &submission.ValidationError{Fields: map[string][]string{
			submission.FieldTiles: {submission.MsgInvalidTileData},
		}},
		MaxImageBytes: 5 << 20,
	}

	var buf bytes.Buffer
	require.NoError(t, r.Execute(&buf, PageUpload, "Upload", view))
	out := buf.String()

	assert.Contains(t, out, `value="deselect:1"`)
	assert.Contains(t, out, `value="select:Skilling"`)
	assert.Contains(t, out, `name="pool" value="Skilling"`)
	assert.Contains(t, out, "Invalid tile data")
	assert.Contains(t, out, "5.0 MiB")
	assert.Contains(t, out, " checked")
	assert.NotContains(t, out, "<b>")

	view.Full = true
	buf.Reset()
	require.NoError(t, r.Execute(&buf, PageUpload, "Upload", view))
	assert.NotContains(t, buf.String(), `value="select:Skilling"`)
	assert.Equal(t, 2, strings.Count(buf.String(), "deselect:"))
}

func TestHTMLWritesStatus(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()
	require.NoError(t, r.HTML(rec, http.StatusNotFound, PageError, "Not found", ErrorView{Status: 404}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	assert.Error(t, r.HTML(rec, http.StatusOK, "missing", "", nil))
	assert.Equal(t, 0, rec.Body.Len())
}
