package services

import (
	"context"
	"errors"
	"fmt"

	"tilepacks.dev/internal/backend"
	"tilepacks.dev/internal/submission"
)

// UploadSinkError wraps a failure of the upload sink. It unwraps to the
// sink's own error.
type UploadSinkError struct {
	Err error
}

func (e *UploadSinkError) Error() string {
	return "upload failed: " + e.Err.Error()
}

func (e *UploadSinkError) Unwrap() error {
	return e.Err
}

// UploadService validates, assembles and submits tile pack uploads
type UploadService struct {
	tags *TagService
	sink backend.UploadSink
}

// NewUploadService creates a new UploadService
func NewUploadService(tags *TagService, sink backend.UploadSink) *UploadService {
	return &UploadService{tags: tags, sink: sink}
}

// Submit hands a valid form to the sink exactly once. It returns a
// *submission.ValidationError for invalid forms, a
// *submission.TagResolutionError when a tag left the catalog and an
// *UploadSinkError when the sink fails. Nothing is retried.
func (s *UploadService) Submit(ctx context.Context, form submission.Form) error {
	sub, err := submission.Validate(form)
	if err != nil {
		return err
	}

	catalog, err := s.tags.List(ctx)
	if err != nil {
		return fmt.Errorf("load tag catalog: %w", err)
	}

	payload, err := submission.Assemble(sub, catalog)
	if err != nil {
		var terr *submission.TagResolutionError
		if errors.As(err, &terr) {
			s.tags.Invalidate()
		}
		return err
	}

	if err := s.sink.Submit(ctx, payload); err != nil {
		return &UploadSinkError{Err: err}
	}
	return nil
}
