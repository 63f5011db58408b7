package pdfrenderer

import (
	"errors"
	"image"
	"log/slog"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// ErrNoBackend is returned when no rasterization backend can be used
var ErrNoBackend = errors.New("no PDF rasterization backend available")

// Backend is a PDF rasterization capability
type Backend interface {
	// Name identifies the backend in logs and progress output
	Name() string

	// Available probes the runtime environment, nil means the backend can render
	Available() error

	// Open opens a document for page by page rendering
	// The caller must Close the returned document
	Open(filename string) (Document, error)

	// Close cleans up any resources used by the backend
	Close() error
}

// Document is an opened PDF held by a backend
type Document interface {
	// PageCount returns the number of pages in the document
	PageCount() int

	// RenderPage renders the zero based page at the given DPI.
	// Page coordinates are scaled by dpi/72 in both axes.
	RenderPage(index int, dpi int) (image.Image, error)

	// Close releases the document handle
	Close() error
}
