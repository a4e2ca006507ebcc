package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"tilepacks.dev/internal/submission"
)

const (
	// formOverhead is the allowance for text fields on top of the image limit
	formOverhead = 1 << 20
	// maxFormMemory is the part of a multipart body kept in memory
	maxFormMemory = 8 << 20
)

// errBodyTooLarge is returned when a request body exceeds its limit
var errBodyTooLarge = errors.New("request body too large")

// uploadForm is a parsed upload request
type uploadForm struct {
	form submission.Form
	// pool is the ordered list of unselected tag names the picker last rendered
	pool []string
	// oversize is set when an image was dropped for exceeding the size limit
	oversize bool
}

// readUploadForm parses a multipart upload request into a submission form
func readUploadForm(w http.ResponseWriter, r *http.Request, maxImageBytes int64) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+formOverhead)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, errBodyTooLarge
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
	}

	out := &uploadForm{
		form: submission.Form{
			Name:          r.PostFormValue("name"),
			Description:   r.PostFormValue("description"),
			Tiles:         r.PostFormValue("tiles"),
			Tags:          r.PostForm["tags"],
			HumanVerified: checked(r.PostFormValue("humanVerified")),
		},
		pool: r.PostForm["pool"],
	}

	if r.MultipartForm == nil {
		return out, nil
	}
	for _, header := range r.MultipartForm.File["image"] {
		// browsers send an empty part when no file was chosen
		if header.Filename == "" && header.Size == 0 {
			continue
		}
		if header.Size > maxImageBytes {
			out.oversize = true
			continue
		}
		file, err := readFile(header)
		if err != nil {
			return nil, err
		}
		out.form.Images = append(out.form.Images, file)
	}
	// An oversize part still counts as an attached image, so the image
	// field fails even when another part fits.
	if out.oversize {
		out.form.Images = nil
	}
	return out, nil
}

// applyOversize replaces the image error when an image was dropped for size
func (f *uploadForm) applyOversize(verr *submission.ValidationError, maxImageBytes int64) {
	if !f.oversize || !verr.Has(submission.FieldImage) {
		return
	}
	verr.Fields[submission.FieldImage] = []string{imageTooLarge(maxImageBytes)}
}

func imageTooLarge(maxImageBytes int64) string {
	return "Image must be at most " + humanize.IBytes(uint64(maxImageBytes))
}

func readFile(header *multipart.FileHeader) (submission.File, error) {
	f, err := header.Open()
	if err != nil {
		return submission.File{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return submission.File{}, fmt.Errorf("read image: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return submission.File{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// checked reports whether a checkbox value means the box was ticked
func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "yes":
		return true
	}
	ok, _ := strconv.ParseBool(v)
	return ok
}
