package pdfrenderer

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
)

// PopplerRenderer implements PDF rendering by running pdftoppm from poppler-utils
// and decoding its output with imaging
type PopplerRenderer struct {
	PdftoppmPath string
	PdfinfoPath  string
}

// NewPopplerRenderer creates a poppler renderer; empty paths mean the tool is not installed
func NewPopplerRenderer(pdftoppmPath, pdfinfoPath string) *PopplerRenderer {
	return &PopplerRenderer{
		PdftoppmPath: pdftoppmPath,
		PdfinfoPath:  pdfinfoPath,
	}
}

// Name implements Backend
func (r *PopplerRenderer) Name() string {
	return "poppler"
}

// Available checks that pdftoppm can be executed
func (r *PopplerRenderer) Available() error {
	if r.PdftoppmPath == "" {
		return fmt.Errorf("pdftoppm not found: please install poppler-utils")
	}
	info, err := os.Stat(r.PdftoppmPath)
	if err != nil {
		return fmt.Errorf("pdftoppm not usable: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("pdftoppm path is a directory: %s", r.PdftoppmPath)
	}
	return nil
}

// Open counts the pages of the document; pdftoppm itself is run once per page
func (r *PopplerRenderer) Open(filename string) (Document, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("unable to access PDF file: %w", err)
	}

	pages, err := r.countPages(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}

	return &popplerDocument{
		pdftoppm:  r.PdftoppmPath,
		filename:  filename,
		pageCount: pages,
	}, nil
}

// Close is a no-op, pdftoppm holds no state between runs
func (r *PopplerRenderer) Close() error {
	return nil
}

// countPages reads the page tree with ledongthuc/pdf, falling back to pdfinfo
// for files that reader can't parse (e.g. cross-reference streams it rejects)
func (r *PopplerRenderer) countPages(filename string) (int, error) {
	pages, readErr := countPagesWithReader(filename)
	if readErr == nil && pages > 0 {
		return pages, nil
	}
	if readErr == nil {
		readErr = fmt.Errorf("document has no pages")
	}
	Logger.Debug("PDF reader could not count pages", "fileName", filename, "error", readErr)

	if r.PdfinfoPath == "" {
		return 0, readErr
	}

	var stdout, stderr bytes.Buffer
	pdfinfoCMD := exec.Command(r.PdfinfoPath, filename)
	pdfinfoCMD.Stdout = &stdout
	pdfinfoCMD.Stderr = &stderr
	if err := pdfinfoCMD.Run(); err != nil {
		return 0, fmt.Errorf("pdfinfo failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parsePdfInfoPages(stdout.String())
}

func countPagesWithReader(filename string) (pages int, err error) {
	// the reader panics on some malformed trailers
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	file, reader, err := pdf.Open(filename)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return reader.NumPage(), nil
}

// parsePdfInfoPages extracts the "Pages:" field from pdfinfo output
func parsePdfInfoPages(output string) (int, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found || strings.TrimSpace(key) != "Pages" {
			continue
		}
		pages, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid page count %q: %w", strings.TrimSpace(value), err)
		}
		if pages < 1 {
			return 0, fmt.Errorf("document has no pages")
		}
		return pages, nil
	}
	return 0, fmt.Errorf("pdfinfo output has no page count")
}

type popplerDocument struct {
	pdftoppm  string
	filename  string
	pageCount int
}

func (d *popplerDocument) PageCount() int {
	return d.pageCount
}

// RenderPage runs pdftoppm for a single page into a scratch directory.
// pdftoppm -r scales by dpi/72 like the other backends.
func (d *popplerDocument) RenderPage(index int, dpi int) (image.Image, error) {
	tempDir, err := os.MkdirTemp("", "pdf2png-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	page := strconv.Itoa(index + 1)
	outputBase := filepath.Join(tempDir, "page")
	pdftoppmArgs := []string{"-png", "-r", strconv.Itoa(dpi), "-f", page, "-l", page, "-singlefile", d.filename, outputBase}
	pdftoppmCMD := exec.Command(d.pdftoppm, pdftoppmArgs...)
	var stderr bytes.Buffer
	pdftoppmCMD.Stderr = &stderr

	err = pdftoppmCMD.Run()
	Logger.Debug("pdftoppm command run was", "command", pdftoppmCMD.String())
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w: %s", index+1, err, strings.TrimSpace(stderr.String()))
	}

	img, err := imaging.Open(outputBase + ".png")
	if err != nil {
		return nil, fmt.Errorf("unable to read rendered page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *popplerDocument) Close() error {
	return nil
}
