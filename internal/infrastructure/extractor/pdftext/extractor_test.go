package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

// buildPDF writes one Helvetica page per text with a byte-accurate xref.
func buildPDF(t *testing.T, pages ...string) []byte {
	t.Helper()
	fontID := 3 + 2*len(pages)
	kids := make([]byte, 0)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"",
	}
	for i, text := range pages {
		pageID := 3 + 2*i
		kids = fmt.Appendf(kids, "%d 0 R ", pageID)
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, pageID+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids), len(pages))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractKeepsPageOrder(t *testing.T) {
	data := buildPDF(t, "Facts of the case", "Issues before court")

	text, err := NewExtractor().Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Facts of the case\n\nIssues before court" {
		t.Fatalf("unexpected text %q", text)
	}

	count, err := NewPageCounter().PageCount(data)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pages, got %d", count)
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor().Extract(ctx, buildPDF(t, "Facts of the case")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := NewExtractor().Extract(context.Background(), []byte("PK\x03\x04 not a pdf"))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestExtractRecoversFromTruncatedPDF(t *testing.T) {
	data := []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	_, err := NewExtractor().Extract(context.Background(), data)
	if err == nil {
		t.Fatalf("expected error for truncated pdf")
	}
}

func TestPageCountRejectsNonPDF(t *testing.T) {
	if _, err := NewPageCounter().PageCount([]byte("hello")); err == nil {
		t.Fatalf("expected error")
	}
}
