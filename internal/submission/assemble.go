package submission

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"tilepacks.dev/internal/models"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Payload is what gets handed to an upload sink
type Payload struct {
	Name        string
	Description string
	Tiles       string
	Image       File
	Tags        []models.Tag
}

// Assemble resolves the submission's tag names against the catalog and
// packages it for upload. Any unresolvable name fails the whole payload
// with a *TagResolutionError.
func Assemble(sub Submission, catalog []models.Tag) (*Payload, error) {
	byName := make(map[string]models.Tag, len(catalog))
	for _, tag := range catalog {
		byName[tag.Name] = tag
	}

	tags := make([]models.Tag, 0, len(sub.Tags))
	for _, name := range sub.Tags {
		tag, ok := byName[name]
		if !ok {
			return nil, &TagResolutionError{Name: name}
		}
		tags = append(tags, tag)
	}

	tiles, err := json.Marshal(sub.Tiles)
	if err != nil {
		return nil, fmt.Errorf("encoding tiles: %w", err)
	}

	return &Payload{
		Name:        sub.Name,
		Description: sub.Description,
		Tiles:       string(tiles),
		Image:       sub.Image,
		Tags:        tags,
	}, nil
}

// WriteMultipart writes the payload as multipart form fields. The caller
// closes the writer.
func (p *Payload) WriteMultipart(w *multipart.Writer) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	fields := []struct{ name, value string }{
		{FieldName, p.Name},
		{FieldDescription, p.Description},
		{FieldTiles, p.Tiles},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	contentType := p.Image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(FieldImage), quoteEscaper.Replace(p.Image.Filename)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	if _, err := part.Write(p.Image.Data); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}

	if err := w.WriteField(FieldTags, string(tags)); err != nil {
		return fmt.Errorf("writing tags: %w", err)
	}
	return nil
}
