// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

// buildPDF assembles a minimal but valid PDF with one page per entry in
// pageTexts, computing xref offsets as it writes. An empty string produces a
// page with no text content.
func buildPDF(t *testing.T, pageTexts []string) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := map[int]int{}
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	buf.WriteString("%PDF-1.4\n")

	n := len(pageTexts)
	kids := make([]string, n)
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pageTexts {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1
		writeObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			contentNum))
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
		}
		writeObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	maxObj := 3 + 2*n
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxObj+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxObj; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", maxObj+1, xrefOffset)

	return buf.Bytes()
}

func TestExtract_PDF_PageDelimiters(t *testing.T) {
	src := newFakeSource()
	src.add("https://cdn.test/two.pdf", buildPDF(t, []string{"Hello", "World"}))
	svc := newTestService(src)

	res := svc.Extract(context.Background(), Request{
		URL: "https://cdn.test/two.pdf", Filename: "two.pdf", MimeType: "application/pdf",
	})

	if !res.Usable() {
		t.Fatalf("expected usable result, got failure %+v", res.Failure)
	}

	i1 := strings.Index(res.Text, "--- Page 1 ---\nHello")
	i2 := strings.Index(res.Text, "--- Page 2 ---\nWorld")
	if i1 < 0 || i2 < 0 {
		t.Fatalf("missing page delimiters in %q", res.Text)
	}
	if i1 > i2 {
		t.Errorf("pages out of order in %q", res.Text)
	}
}

func TestExtract_PDF_NoTextLayer(t *testing.T) {
	src := newFakeSource()
	src.add("https://cdn.test/scan.pdf", buildPDF(t, []string{"", ""}))
	svc := newTestService(src)

	res := svc.Extract(context.Background(), Request{
		URL: "https://cdn.test/scan.pdf", Filename: "scan.pdf", MimeType: "application/pdf",
	})

	if res.Usable() {
		t.Fatal("expected no-text failure for image-only PDF")
	}
	if res.Failure.Reason != ReasonNoText {
		t.Errorf("Reason = %v, want %v", res.Failure.Reason, ReasonNoText)
	}
	if len(res.Text) < MinTextLen {
		t.Errorf("fallback text too short: %q", res.Text)
	}
}

func TestExtract_PDF_Garbage(t *testing.T) {
	src := newFakeSource()
	src.add("https://cdn.test/junk.pdf", []byte("definitely not a pdf"))
	svc := newTestService(src)

	res := svc.Extract(context.Background(), Request{
		URL: "https://cdn.test/junk.pdf", Filename: "junk.pdf", MimeType: "application/pdf",
	})

	if res.Usable() {
		t.Fatal("expected parse failure for garbage input")
	}
	if res.Failure.Reason != ReasonParse {
		t.Errorf("Reason = %v, want %v", res.Failure.Reason, ReasonParse)
	}
}
