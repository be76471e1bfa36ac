package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the document family a TextSource handles.
type Kind string

// Supported document kinds
const (
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

var extensionKinds = map[string]Kind{
	".pdf":  KindPDF,
	".html": KindHTML,
	".htm":  KindHTML,
	".txt":  KindText,
	".text": KindText,
	".md":   KindText,
}

var kindMIME = map[Kind]string{
	KindPDF:  "application/pdf",
	KindHTML: "text/html",
	KindText: "text/plain",
}

// Document is the outcome of ingesting one upload.
type Document struct {
	FileName string
	MIMEType string
	Kind     Kind
	Size     int
	Hash     string // SHA256 hex digest of the raw bytes
	Text     string // cleaned, untruncated
}

// DetectKind classifies a document by sniffing its content, falling back to the file extension.
func DetectKind(fileName string, data []byte) (Kind, string, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/pdf"):
			return KindPDF, kindMIME[KindPDF], true
		case m.Is("text/html"):
			return KindHTML, kindMIME[KindHTML], true
		}
	}

	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(fileName))]; ok {
		// A .pdf that does not sniff as PDF is still handed to pdftotext, which reports corruption.
		return kind, kindMIME[kind], true
	}

	if detected.Is("text/plain") {
		return KindText, kindMIME[KindText], true
	}
	return "", detected.String(), false
}

// Ingester dispatches documents to the TextSource registered for their kind.
type Ingester struct {
	sources map[Kind]TextSource
}

// NewIngester returns an Ingester with the default PDF, HTML and plain-text sources.
func NewIngester() *Ingester {
	return &Ingester{sources: map[Kind]TextSource{
		KindPDF:  NewPDFSource(),
		KindHTML: HTMLSource{},
		KindText: PlainTextSource{},
	}}
}

// WithSource replaces the TextSource used for kind.
func (in *Ingester) WithSource(kind Kind, src TextSource) *Ingester {
	in.sources[kind] = src
	return in
}

// Ingest extracts and cleans the text of a document. Every failure is an *ExtractionError.
func (in *Ingester) Ingest(ctx context.Context, fileName string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{FileName: fileName, Message: "no content", Cause: ErrEmptyDocument}
	}

	kind, mimeType, ok := DetectKind(fileName, data)
	if !ok {
		return nil, &ExtractionError{FileName: fileName, Message: "type " + mimeType, Cause: ErrUnsupportedType}
	}
	src, ok := in.sources[kind]
	if !ok {
		return nil, &ExtractionError{FileName: fileName, Message: "no source for " + string(kind), Cause: ErrUnsupportedType}
	}

	raw, err := src.Extract(ctx, data)
	if err != nil {
		return nil, &ExtractionError{FileName: fileName, Message: "unreadable " + string(kind) + " document", Cause: err}
	}

	text := CleanText(raw)
	if text == "" {
		return nil, &ExtractionError{FileName: fileName, Message: "no text could be extracted", Cause: ErrEmptyDocument}
	}

	return &Document{
		FileName: fileName,
		MIMEType: mimeType,
		Kind:     kind,
		Size:     len(data),
		Hash:     computeHash(data),
		Text:     text,
	}, nil
}

func computeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
