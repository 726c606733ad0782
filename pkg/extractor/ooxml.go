// Copyright Study Chat Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Office Open XML documents are ZIP archives of XML parts. Both the
// wordprocessingml and drawingml schemas put visible text in <t> runs
// (w:t and a:t respectively), so a single token-stream collector serves
// DOCX and PPTX alike.

// extractDOCX reads word/document.xml and joins all text runs with single
// spaces, collapsing whitespace.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open DOCX archive: %w", err)
	}

	doc := findZipEntry(zr, "word/document.xml")
	if doc == nil {
		return "", fmt.Errorf("parse DOCX: word/document.xml missing")
	}

	runs, err := collectTextRuns(doc)
	if err != nil {
		return "", fmt.Errorf("parse DOCX: %w", err)
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w in word/document.xml", errNoText)
	}

	return strings.Join(strings.Fields(strings.Join(runs, " ")), " "), nil
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX enumerates ppt/slides/slideN.xml entries in numeric order
// (slide2 before slide10) and emits "--- Slide N ---" delimiters using each
// slide's own number. Gaps in the numbering are preserved, not renumbered.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PPTX archive: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: n, file: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("parse PPTX: no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for _, sl := range slides {
		runs, err := collectTextRuns(sl.file)
		if err != nil {
			continue
		}
		text := strings.Join(strings.Fields(strings.Join(runs, " ")), " ")
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Slide %d ---\n%s", sl.num, text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("%w across %d slides", errNoText, len(slides))
	}
	return sb.String(), nil
}

// findZipEntry returns the named entry or nil.
func findZipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// collectTextRuns streams the XML of a zip entry and collects the character
// data of every <t> element, namespace-agnostic.
func collectTextRuns(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	var runs []string
	depth := 0 // nesting depth inside <t> elements
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == "t" && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				if s := string(t); s != "" {
					runs = append(runs, s)
				}
			}
		}
	}
	return runs, nil
}
