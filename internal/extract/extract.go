// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
)

const (
	defaultAntiword = "antiword"

	extPDF  = ".pdf"
	extDOCX = ".docx"
	extDOC  = ".doc"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")

	xmlTag = regexp.MustCompile(`<[^>]+>`)

	docxMarkup = strings.NewReplacer(
		"</w:p>", "\n",
		"<w:tab/>", "\t",
		"<w:br/>", "\n",
		"<w:cr/>", "\n",
	)
)

// Extractor reads text out of PDF, DOCX, DOC and plain text uploads.
type Extractor struct {
	antiword string
	logger   *zap.Logger
}

type Option func(*Extractor)

// WithAntiword overrides the antiword binary used for legacy .doc files.
func WithAntiword(path string) Option {
	return func(e *Extractor) {
		if path = strings.TrimSpace(path); path != "" {
			e.antiword = path
		}
	}
}

func New(logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Extractor{antiword: defaultAntiword, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Text returns the document text chosen by the declared filename extension.
// Unsupported or corrupt documents yield an empty string and a warning.
func (e *Extractor) Text(ctx context.Context, data []byte, filename string) string {
	kind := kindOf(data, filename)

	var (
		text string
		err  error
	)

	switch kind {
	case extPDF:
		text, err = pdfText(data)
	case extDOCX:
		text, err = docxText(data)
	case extDOC:
		text, err = e.docText(ctx, data)
	default:
		text = strings.ToValidUTF8(string(data), "")
	}

	if err != nil {
		e.logger.Warn("text extraction failed",
			zap.String("filename", filename),
			zap.String("kind", kind),
			zap.Int("size", len(data)),
			zap.Error(err),
		)
		return ""
	}

	text = strings.TrimSpace(text)
	e.logger.Debug("text extracted",
		zap.String("filename", filename),
		zap.String("kind", kind),
		zap.Int("length", len(text)),
	)

	return text
}

// kindOf trusts the extension and falls back to magic numbers for files declared as plain text.
func kindOf(data []byte, filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case extPDF, extDOCX, extDOC:
		return ext
	}

	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return extPDF
	case bytes.HasPrefix(data, zipMagic):
		return extDOCX
	default:
		return ""
	}
}

func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return string(out), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	return documentXMLText(doc.Editable().GetContent()), nil
}

func documentXMLText(content string) string {
	content = docxMarkup.Replace(content)
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

func (e *Extractor) docText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "hr-matcher-*.doc")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.antiword, tmp.Name())
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run %s: %w: %s", e.antiword, err, strings.TrimSpace(stderr.String()))
	}

	return strings.ToValidUTF8(string(output), ""), nil
}
