package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of every page in order. Pages that fail to
// decode are skipped; an error is returned only if no page could be read.
func (e *Extractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var (
		out      strings.Builder
		fonts    = make(map[string]*pdf.Font)
		lastErr  error
		pagesOK  int
		numPages = reader.NumPage()
	)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			lastErr = err
			continue
		}
		pagesOK++
		out.WriteString(pageText)
		out.WriteString("\n")
	}
	if pagesOK == 0 && lastErr != nil {
		return "", fmt.Errorf("read pdf text: %w", lastErr)
	}
	return strings.TrimSpace(out.String()), nil
}

// PageCounter counts pages with pdfcpu, which validates the document
// structure more strictly than the text reader.
type PageCounter struct{}

func NewPageCounter() *PageCounter {
	return &PageCounter{}
}

func (c *PageCounter) PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return count, nil
}
