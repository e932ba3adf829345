package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// DocumentInfo holds the metadata pdfinfo reports for a document.
type DocumentInfo struct {
	Title      string
	Author     string
	TotalPages int
}

// Extractor converts a stored document into per-page text. Implementations
// wrap external tools or libraries; page failures are per-page errors.
type Extractor interface {
	Info(ctx context.Context, filePath string) (DocumentInfo, error)
	PageText(ctx context.Context, filePath string, page int) (string, error)
}

// PDFExtractor extracts text from PDF files using the poppler utilities
// (pdfinfo, pdftotext).
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

var (
	pagesRe  = regexp.MustCompile(`Pages:\s+(\d+)`)
	titleRe  = regexp.MustCompile(`Title:\s+(.*)`)
	authorRe = regexp.MustCompile(`Author:\s+(.*)`)
)

// Info runs pdfinfo and parses page count, title and author.
func (e *PDFExtractor) Info(ctx context.Context, filePath string) (DocumentInfo, error) {
	cmd := exec.CommandContext(ctx, "pdfinfo", filePath)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return DocumentInfo{}, fmt.Errorf("error running pdfinfo: %v", err)
	}

	info := DocumentInfo{}
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		line := scanner.Text()
		if matches := pagesRe.FindStringSubmatch(line); len(matches) == 2 {
			pages, err := strconv.Atoi(matches[1])
			if err == nil {
				info.TotalPages = pages
			}
		}
		if matches := titleRe.FindStringSubmatch(line); len(matches) == 2 {
			info.Title = strings.TrimSpace(matches[1])
		}
		if matches := authorRe.FindStringSubmatch(line); len(matches) == 2 {
			info.Author = strings.TrimSpace(matches[1])
		}
	}

	if info.TotalPages == 0 {
		return DocumentInfo{}, fmt.Errorf("unable to determine page count from pdfinfo")
	}
	return info, nil
}

// PageText extracts the text of a single page with pdftotext.
func (e *PDFExtractor) PageText(ctx context.Context, filePath string, page int) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-enc", "UTF-8", "-nopgbrk",
		filePath, "-")
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("error executing pdftotext for page %d: %v", page, err)
	}
	pageText := out.String()
	if trimmed := strings.TrimSpace(pageText); len(trimmed) > 0 {
		return pageText, nil
	}
	return "", fmt.Errorf("got nothing at page %d", page)
}

// CleanPageText strips control characters that confuse chunking and
// embedding while leaving the readable content intact.
func CleanPageText(text string) string {
	replacements := map[string]string{
		"\u0000": "",   // Null character
		"\ufffd": "",   // Unicode replacement character
		"\u001b": "",   // Escape character
		"\r":     "",   // Carriage return
		"\f":     "\n", // Form feed to newline
	}
	cleaned := text
	for old, new := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, new)
	}
	return strings.TrimSpace(cleaned)
}
