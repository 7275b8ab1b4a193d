package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrRenderFailed wraps failures of the external conversion or storage
// collaborators. It is not retried here; the whole issuance is safe to
// retry from the caller because issuance is idempotent on unchanged input.
var ErrRenderFailed = errors.New("render: external rendering failed")

// Converter turns a merged document into PDF bytes. Implementations call an
// external service and must honor the context deadline.
type Converter interface {
	Convert(ctx context.Context, document []byte) ([]byte, error)
}

// BlobStore persists rendered bytes and hands out retrievable references.
type BlobStore interface {
	Store(ctx context.Context, object string, data []byte, contentType string) error
	ReadURL(ctx context.Context, object string) (string, error)
}

// Renderer merges a template with payload data and produces the stored PDF.
// It owns rendered-byte production, not persistence of contract metadata.
type Renderer struct {
	Converter Converter
	Store     BlobStore
}

// Render runs the full text transform over the template source —
// conditional evaluation, then marker substitution — converts the merged
// document to PDF, and stores the bytes under the given object name.
//
// Conditional errors propagate untouched: they mean the template itself is
// broken and the operator must hear about it. Converter and store errors
// come back wrapped in ErrRenderFailed.
func (r *Renderer) Render(ctx context.Context, source []byte, object string, placeholders map[string]string, flags map[string]bool) error {
	text, err := EvalConditionals(string(source), flags)
	if err != nil {
		return err
	}
	merged := Substitute(text, placeholders)

	pdf, err := r.Converter.Convert(ctx, []byte(merged))
	if err != nil {
		return fmt.Errorf("%w: convert: %v", ErrRenderFailed, err)
	}
	if err := r.Store.Store(ctx, object, pdf, "application/pdf"); err != nil {
		return fmt.Errorf("%w: store: %v", ErrRenderFailed, err)
	}
	return nil
}
