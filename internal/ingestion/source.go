// Package ingestion turns uploaded contract documents into plain text.
package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// TextSource extracts plain text from raw document bytes.
type TextSource interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// CommandRunner runs an external program and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// PDFSource extracts text with pdftotext from poppler-utils.
// Encrypted or corrupt PDFs make pdftotext exit non-zero, which surfaces as an error.
type PDFSource struct {
	Binary string
	Run    CommandRunner
}

// NewPDFSource returns a PDFSource using the pdftotext binary on PATH.
func NewPDFSource() *PDFSource {
	return &PDFSource{Binary: "pdftotext", Run: execRunner}
}

// Extract writes the PDF to a temp file and reads pdftotext's stdout.
func (s *PDFSource) Extract(ctx context.Context, data []byte) (string, error) {
	binary := s.Binary
	if binary == "" {
		binary = "pdftotext"
	}
	run := s.Run
	if run == nil {
		run = execRunner
	}

	tmp, err := os.CreateTemp("", "contract-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	out, err := run(ctx, binary, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// HTMLSource extracts the visible text of an HTML document.
type HTMLSource struct{}

// Extract drops scripts, styles and page chrome, then returns the body text.
func (HTMLSource) Extract(_ context.Context, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	var content *goquery.Selection
	for _, selector := range []string{"main", "article", "#content", ".content"} {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}

	// Block elements would otherwise run together in Text().
	content.Find("p, div, li, h1, h2, h3, h4, h5, h6, br, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return content.Text(), nil
}

// PlainTextSource accepts UTF-8 text as is.
type PlainTextSource struct{}

// Extract rejects byte streams that are not valid UTF-8.
func (PlainTextSource) Extract(_ context.Context, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}
