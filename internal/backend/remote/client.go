// Package remote talks to the hosted backend: REST table reads, a multipart
// upload endpoint and public object storage URLs.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/models"
	"tilepacks.dev/internal/submission"
)

const (
	defaultLimit   = 50
	maxErrorBody   = 4 << 10
	defaultTimeout = 30 * time.Second
)

// Options configures a Client
type Options struct {
	// BaseURL is the backend project URL, e.g. https://abc.example.co
	BaseURL string
	// APIKey is the public (anonymous) API key
	APIKey string
	// UploadURL receives tile pack submissions; defaults to the
	// upload-tilepack function under BaseURL
	UploadURL  string
	HTTPClient *http.Client
}

// Client is a backend.Backend over the hosted backend's HTTP APIs
type Client struct {
	base      *url.URL
	uploadURL string
	apiKey    string
	http      *http.Client
}

var _ backend.Backend = (*Client)(nil)

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// New returns a client for the backend at opts.BaseURL
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", opts.BaseURL)
	}

	uploadURL := opts.UploadURL
	if uploadURL == "" {
		uploadURL = base.String() + "/functions/v1/upload-tilepack"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		base:      base,
		uploadURL: uploadURL,
		apiKey:    opts.APIKey,
		http:      httpClient,
	}, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// ListTags fetches the tag catalog
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	q := url.Values{}
	q.Set("select", "id,name,slug")
	q.Set("order", "name.asc")

	var tags []models.Tag
	if err := c.getJSON(ctx, "list tags", "/rest/v1/tags", q, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// ListTilePacks fetches tile packs with their tags
func (c *Client) ListTilePacks(ctx context.Context, query backend.Query) ([]models.TilePackWithTags, error) {
	q := url.Values{}
	sel := "*,tags(*)"
	if query.TagSlug != "" {
		sel += ",filter_tags:tags!inner(slug)"
		q.Set("filter_tags.slug", "eq."+query.TagSlug)
	}
	q.Set("select", sel)
	search := strings.TrimSpace(query.Search)
	if search != "" {
		pattern := quoteFilter(ilikePattern(search))
		q.Set("or", "(name.ilike."+pattern+",description.ilike."+pattern+")")
	}
	if query.Order == backend.OrderPopular {
		q.Set("order", "installs.desc,created_at.desc")
	} else {
		q.Set("order", "created_at.desc")
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	q.Set("limit", strconv.Itoa(limit))

	var rows []tilePackRow
	if err := c.getJSON(ctx, "list tilepacks", "/rest/v1/tilepacks", q, &rows); err != nil {
		return nil, err
	}
	packs := make([]models.TilePackWithTags, 0, len(rows))
	for _, row := range rows {
		pack := row.model()
		if strings.Contains(search, "*") && !matchesSearch(pack.TilePack, search) {
			continue
		}
		packs = append(packs, pack)
	}
	return packs, nil
}

// GetTilePack fetches one tile pack by public id
func (c *Client) GetTilePack(ctx context.Context, publicID string) (*models.TilePackWithTags, error) {
	q := url.Values{}
	q.Set("select", "*,tags(*)")
	q.Set("public_id", "eq."+publicID)
	q.Set("limit", "1")

	var rows []tilePackRow
	if err := c.getJSON(ctx, "get tilepack", "/rest/v1/tilepacks", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tilepack %s: %w", publicID, backend.ErrNotFound)
	}
	pack := rows[0].model()
	return &pack, nil
}

// RecordInstall calls the increment_installs procedure
func (c *Client) RecordInstall(ctx context.Context, publicID string) error {
	body, err := json.Marshal(map[string]string{"public_id": publicID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/rest/v1/rpc/increment_installs", nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("record install: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "record install", nil)
}

// Submit posts the payload to the upload endpoint as multipart form data
func (c *Client) Submit(ctx context.Context, payload *submission.Payload) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := payload.WriteMultipart(w); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return fmt.Errorf("upload tilepack: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, "upload tilepack", nil)
}

// PublicURL returns the public storage URL of an object
func (c *Client) PublicURL(bucket, key string) string {
	return c.base.String() + "/storage/v1/object/public/" + url.PathEscape(bucket) + "/" + url.PathEscape(key)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// quoteFilter wraps a filter value in double quotes when it contains
// characters that are reserved in filter expressions
// ilikePattern builds a contains pattern that matches search literally.
// PostgREST turns every * into %, so a literal * is sent as _ and the rows
// are checked again with matchesSearch.
func ilikePattern(search string) string {
	return "*" + likeEscaper.Replace(search) + "*"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `_`)

// matchesSearch reports whether search appears in the name or description, ignoring case
func matchesSearch(pack models.TilePack, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(pack.Name), needle) ||
		strings.Contains(strings.ToLower(pack.Description), needle)
}

func quoteFilter(v string) string {
	if !strings.ContainsAny(v, `,.:()"\`) {
		return v
	}
	v = strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
	return `"` + v + `"`
}
