package pdfrenderer

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements PDF rendering using go-fitz (requires MuPDF)
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

// Name implements Backend
func (r *FitzRenderer) Name() string {
	return "mupdf"
}

// Available renders a blank in-memory page. The MuPDF binding panics when the
// shared library can't be loaded, so that is recovered and reported as unavailable.
func (r *FitzRenderer) Available() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("mupdf could not be loaded: %v", rec)
		}
	}()

	doc, err := fitz.NewFromMemory(BlankPDF(1, 72, 72))
	if err != nil {
		return fmt.Errorf("mupdf cannot open documents: %w", err)
	}
	defer doc.Close()

	if _, err := doc.ImageDPI(0, 72); err != nil {
		return fmt.Errorf("mupdf cannot render pages: %w", err)
	}
	return nil
}

// Open opens a PDF document with go-fitz
func (r *FitzRenderer) Open(filename string) (Document, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// Close cleans up resources (no-op for Fitz renderer as each document is closed by its owner)
func (r *FitzRenderer) Close() error {
	return nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	return d.doc.NumPage()
}

func (d *fitzDocument) RenderPage(index int, dpi int) (image.Image, error) {
	// ImageDPI applies the dpi/72 transform itself
	img, err := d.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
