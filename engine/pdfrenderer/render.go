package pdfrenderer

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// BaseDPI is the nominal resolution of PDF user space
const BaseDPI = 72

// Job is everything needed to rasterize one document
type Job struct {
	Path      string
	OutputDir string
	DPI       int
}

// PageRenderer writes one PNG per page of a document using a single backend
type PageRenderer struct {
	Backend     Backend
	Out         io.Writer
	Compression png.CompressionLevel
}

// NewPageRenderer creates a renderer that reports progress to out
func NewPageRenderer(backend Backend, out io.Writer, compression png.CompressionLevel) *PageRenderer {
	if out == nil {
		out = io.Discard
	}
	return &PageRenderer{Backend: backend, Out: out, Compression: compression}
}

// Render converts every page of job.Path and returns the written paths in page order.
// The output directory must already exist.
func (r *PageRenderer) Render(job Job) ([]string, error) {
	if job.DPI <= 0 {
		return nil, fmt.Errorf("invalid DPI %d: must be a positive integer", job.DPI)
	}

	Logger.Info("Converting PDF to PNG", "fileName", job.Path, "backend", r.Backend.Name(), "dpi", job.DPI)

	doc, err := r.Backend.Open(job.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := doc.Close(); closeErr != nil {
			Logger.Warn("Failed to close PDF document", "fileName", job.Path, "error", closeErr)
		}
	}()

	numPages := doc.PageCount()
	Logger.Debug("PDF has pages", "count", numPages)
	if numPages < 1 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	baseName := strings.TrimSuffix(filepath.Base(job.Path), filepath.Ext(job.Path))
	outputFiles := make([]string, 0, numPages)

	for pageIndex := 0; pageIndex < numPages; pageIndex++ {
		img, err := doc.RenderPage(pageIndex, job.DPI)
		if err != nil {
			return outputFiles, err
		}

		outputFile := filepath.Join(job.OutputDir, OutputName(baseName, pageIndex+1, numPages))
		if err := r.writePNG(outputFile, img); err != nil {
			return outputFiles, err
		}
		outputFiles = append(outputFiles, outputFile)

		fmt.Fprintf(r.Out, "converted page %d/%d: %s\n", pageIndex+1, numPages, outputFile)
	}

	return outputFiles, nil
}

func (r *PageRenderer) writePNG(outputFile string, img image.Image) error {
	outFile, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("unable to create output image file: %w", err)
	}

	err = imaging.Encode(outFile, img, imaging.PNG, imaging.PNGCompressionLevel(r.Compression))
	if err != nil {
		outFile.Close()
		return fmt.Errorf("unable to encode PNG image %s: %w", outputFile, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("unable to write PNG image %s: %w", outputFile, err)
	}
	return nil
}

// OutputName returns the file name for a 1-indexed page of a document with total pages.
// Single page documents keep the document's name.
func OutputName(baseName string, page, total int) string {
	if total == 1 {
		return baseName + ".png"
	}
	return fmt.Sprintf("%s_page_%03d.png", baseName, page)
}

// ScaledSize returns the approximate pixel size of a page rendered at dpi
func ScaledSize(widthPt, heightPt float64, dpi int) (int, int) {
	scale := float64(dpi) / BaseDPI
	return int(math.Round(widthPt * scale)), int(math.Round(heightPt * scale))
}
