package engine

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/pdf2png/engine/pdfrenderer"
	"github.com/hashicorp/go-multierror"
	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

var (
	// ErrNotFound is returned when the input document does not exist
	ErrNotFound = errors.New("file does not exist")
	// ErrNotPDF is returned when the input document is not named *.pdf
	ErrNotPDF = errors.New("not a PDF file")
)

// pdfPattern is matched case-sensitively against base names in auto mode
const pdfPattern = "*.pdf"

// bytesPerMB is a binary megabyte
const bytesPerMB = 1024 * 1024

// Converter drives the page renderer for single documents and batch runs
type Converter struct {
	backend  pdfrenderer.Backend
	renderer *pdfrenderer.PageRenderer
	out      io.Writer
}

// NewConverter creates a converter bound to an already selected backend
func NewConverter(backend pdfrenderer.Backend, out io.Writer, compression png.CompressionLevel) *Converter {
	if out == nil {
		out = io.Discard
	}
	return &Converter{
		backend:  backend,
		renderer: pdfrenderer.NewPageRenderer(backend, out, compression),
		out:      out,
	}
}

// BatchSummary is the outcome of one auto mode run
type BatchSummary struct {
	RunID     ulid.ULID
	Found     int
	Converted int
	Failed    int
	Pages     int
	errs      *multierror.Error
}

// Err returns every per-document failure of the run, or nil
func (s BatchSummary) Err() error {
	return s.errs.ErrorOrNil()
}

// ValidateInput checks that a document exists and is named like a PDF
func ValidateInput(pdfPath string) error {
	if _, err := os.Stat(pdfPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w - %s", ErrNotFound, pdfPath)
		}
		return fmt.Errorf("unable to access %s: %w", pdfPath, err)
	}
	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		return fmt.Errorf("%w - %s", ErrNotPDF, pdfPath)
	}
	return nil
}

// ConvertFile converts one document. An empty outputDir writes beside the document.
func (c *Converter) ConvertFile(pdfPath, outputDir string, dpi int) ([]string, error) {
	if err := ValidateInput(pdfPath); err != nil {
		Logger.Warn("Rejected input document", "fileName", pdfPath, "error", err)
		return nil, err
	}

	if outputDir == "" {
		outputDir = filepath.Dir(pdfPath)
	}
	if err := EnsureOutputDir(outputDir); err != nil {
		return nil, err
	}

	fmt.Fprintf(c.out, "converting with %s: %s\n", c.backend.Name(), pdfPath)
	convertedFiles, err := c.renderer.Render(pdfrenderer.Job{Path: pdfPath, OutputDir: outputDir, DPI: dpi})
	if err != nil {
		Logger.Error("Unable to convert PDF", "fileName", pdfPath, "error", err)
		return nil, err
	}

	fmt.Fprintf(c.out, "\nconversion finished, %d PNG file(s) written:\n", len(convertedFiles))
	for _, file := range convertedFiles {
		fileInfo, err := os.Stat(file)
		if err != nil {
			Logger.Warn("Unable to stat output file", "fileName", file, "error", err)
			fmt.Fprintf(c.out, "  %s\n", file)
			continue
		}
		fmt.Fprintf(c.out, "  %s (%.2f MB)\n", file, float64(fileInfo.Size())/bytesPerMB)
	}
	return convertedFiles, nil
}

// DiscoverPDFs recursively finds files under root whose name matches *.pdf.
// Unreadable directories are logged and skipped.
func DiscoverPDFs(root string) ([]string, error) {
	var pdfPaths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			Logger.Warn("Unable to read path, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if matched, _ := filepath.Match(pdfPattern, d.Name()); matched {
			pdfPaths = append(pdfPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not scan directory %s: %w", root, err)
	}
	return pdfPaths, nil
}

// RunAuto converts every PDF under root, writing each document's pages beside it.
// A failing document is reported and the run moves on to the next one.
func (c *Converter) RunAuto(root string, dpi int) BatchSummary {
	summary := BatchSummary{RunID: ulid.Make()}
	logger := Logger.With("run", summary.RunID.String())

	logger.Info("Starting auto conversion", "root", root, "backend", c.backend.Name(), "dpi", dpi)
	pdfFiles, err := DiscoverPDFs(root)
	if err != nil {
		logger.Error("Error reading files for auto conversion", "error", err)
		fmt.Fprintf(c.out, "unable to scan %s: %v\n", root, err)
		summary.errs = multierror.Append(summary.errs, err)
		return summary
	}
	summary.Found = len(pdfFiles)

	if len(pdfFiles) == 0 {
		fmt.Fprintln(c.out, "no PDF files found in the current directory")
		logger.Info("No PDF files found", "root", root)
		return summary
	}

	for _, pdfFile := range pdfFiles {
		fmt.Fprintf(c.out, "\nprocessing file: %s\n", pdfFile)
		logger.Debug("Starting processing for file", "filePath", pdfFile)

		convertedFiles, err := c.convertInPlace(pdfFile, dpi)
		if err != nil {
			fmt.Fprintf(c.out, "conversion failed: %v\n", err)
			logger.Error("Conversion failed", "filePath", pdfFile, "error", err)
			summary.Failed++
			summary.errs = multierror.Append(summary.errs, fmt.Errorf("%s: %w", pdfFile, err))
			continue
		}

		fmt.Fprintf(c.out, "converted %d file(s)\n", len(convertedFiles))
		summary.Converted++
		summary.Pages += len(convertedFiles)
	}

	if summary.Failed > 0 {
		logger.Warn("Auto conversion finished with failures",
			"found", summary.Found,
			"converted", summary.Converted,
			"failed", summary.Failed,
			"errors", summary.Err())
	} else {
		logger.Info("Auto conversion finished", "found", summary.Found, "converted", summary.Converted, "pages", summary.Pages)
	}
	return summary
}

// convertInPlace renders a discovered document into its own directory
func (c *Converter) convertInPlace(pdfFile string, dpi int) ([]string, error) {
	outputDir := filepath.Dir(pdfFile)
	if err := EnsureOutputDir(outputDir); err != nil {
		return nil, err
	}
	fmt.Fprintf(c.out, "converting with %s: %s\n", c.backend.Name(), pdfFile)
	return c.renderer.Render(pdfrenderer.Job{Path: pdfFile, OutputDir: outputDir, DPI: dpi})
}
