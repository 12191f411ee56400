package extractor

import (
	"context"
	"strings"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/brief-service/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/brief-service/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/brief-service/internal/infrastructure/extractor/wordxml"
)

// Format extracts text from one document format.
type Format interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Dispatcher selects a Format by file extension. Unknown extensions are
// treated as PDF.
type Dispatcher struct {
	formats  map[string]Format
	fallback Format
}

func NewDispatcher() *Dispatcher {
	pdf := pdftext.NewExtractor()
	word := wordxml.NewExtractor()
	text := plaintext.NewExtractor()
	return &Dispatcher{
		formats: map[string]Format{
			"pdf":  pdf,
			"doc":  word,
			"docx": word,
			"xlsx": spreadsheet.NewExtractor(),
			"txt":  text,
			"md":   text,
		},
		fallback: pdf,
	}
}

// Register adds or replaces the Format used for ext.
func (d *Dispatcher) Register(ext string, format Format) {
	d.formats[normalizeExt(ext)] = format
}

func (d *Dispatcher) Extract(ctx context.Context, data []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = normalizeExt(ext)
	format, ok := d.formats[ext]
	if !ok {
		format = d.fallback
	}
	text, err := format.Extract(ctx, data)
	if err != nil {
		if ext == "" {
			ext = "unknown"
		}
		return "", domain.WrapError(domain.ErrExtraction, "extract "+ext, err)
	}
	return text, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
