package main

import (
	"bytes"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	config "github.com/drummonds/pdf2png/config"
	"github.com/drummonds/pdf2png/engine/pdfrenderer"
)

// stubBackend renders 1x1 pages for any file that starts with a PDF header
type stubBackend struct {
	availErr error
	opened   int
}

func (b *stubBackend) Name() string { return "stub" }
func (b *stubBackend) Available() error { return b.availErr }
func (b *stubBackend) Close() error { return nil }

func (b *stubBackend) Open(filename string) (pdfrenderer.Document, error) {
	b.opened++
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("not a PDF")
	}
	return stubDocument{}, nil
}

type stubDocument struct{}

func (stubDocument) PageCount() int { return 1 }
func (stubDocument) Close() error { return nil }
func (stubDocument) RenderPage(index int, dpi int) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type stubInstaller struct {
	ok     bool
	called int
}

func (i *stubInstaller) InstallDependencies() bool {
	i.called++
	return i.ok
}

func newTestApp(backend *stubBackend, installer *stubInstaller) (*app, *bytes.Buffer) {
	var out bytes.Buffer
	a := newApp(config.Config{DefaultDPI: 300}, &out)
	a.candidates = func(config.Config) []pdfrenderer.Backend {
		return []pdfrenderer.Backend{backend}
	}
	a.newInstaller = func(io.Writer, config.Config) dependencyInstaller {
		return installer
	}
	return a, &out
}

func writePDF(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, pdfrenderer.BlankPDF(1, 72, 72), 0644); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}
}

func TestInstallDepsProcessesNoDocuments(t *testing.T) {
	tempDir := t.TempDir()
	pdfPath := filepath.Join(tempDir, "report.pdf")
	writePDF(t, pdfPath)

	backend := &stubBackend{}
	installer := &stubInstaller{ok: true}
	a, _ := newTestApp(backend, installer)

	if code := a.execute([]string{"--install-deps", "--auto", pdfPath}); code != 0 {
		t.Errorf("Expected exit 0, got %d", code)
	}
	if installer.called != 1 {
		t.Errorf("Expected installer to run once, ran %d times", installer.called)
	}
	if backend.opened != 0 {
		t.Error("No documents should be processed with --install-deps")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "report.png")); !os.IsNotExist(err) {
		t.Error("No output should be written with --install-deps")
	}
}

func TestInstallDepsFailure(t *testing.T) {
	a, _ := newTestApp(&stubBackend{}, &stubInstaller{ok: false})
	if code := a.execute([]string{"--install-deps"}); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
}

func TestNoBackend(t *testing.T) {
	tempDir := t.TempDir()
	pdfPath := filepath.Join(tempDir, "report.pdf")
	outDir := filepath.Join(tempDir, "out")
	writePDF(t, pdfPath)

	backend := &stubBackend{availErr: errors.New("library missing")}
	a, out := newTestApp(backend, &stubInstaller{})

	if code := a.execute([]string{pdfPath, "-o", outDir}); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "--install-deps") {
		t.Errorf("Expected remediation text, got %q", out.String())
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("Output directory should not be created without a backend")
	}
}

func TestMissingInputPrintsHelp(t *testing.T) {
	a, out := newTestApp(&stubBackend{}, &stubInstaller{})
	if code := a.execute(nil); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("Expected help text, got %q", out.String())
	}
}

func TestTextFileRejected(t *testing.T) {
	txtPath := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(txtPath, []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	backend := &stubBackend{}
	a, out := newTestApp(backend, &stubInstaller{})
	if code := a.execute([]string{txtPath}); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if backend.opened != 0 {
		t.Error("Backend should not open a non-PDF input")
	}
	if !strings.Contains(out.String(), "not a PDF file") {
		t.Errorf("Expected validation message, got %q", out.String())
	}
}

func TestInvalidDPI(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "report.pdf")
	writePDF(t, pdfPath)

	a, _ := newTestApp(&stubBackend{}, &stubInstaller{})
	if code := a.execute([]string{pdfPath, "--dpi", "0"}); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
}

func TestSingleFileConversion(t *testing.T) {
	tempDir := t.TempDir()
	pdfPath := filepath.Join(tempDir, "report.pdf")
	outDir := filepath.Join(tempDir, "images")
	writePDF(t, pdfPath)

	a, out := newTestApp(&stubBackend{}, &stubInstaller{})
	if code := a.execute([]string{pdfPath, "--output", outDir, "-d", "150"}); code != 0 {
		t.Fatalf("Expected exit 0, got %d: %s", code, out.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "report.png")); err != nil {
		t.Errorf("Expected output image: %v", err)
	}
}

func TestSingleFileConversionFailure(t *testing.T) {
	pdfPath := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(pdfPath, []byte("garbage"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	a, out := newTestApp(&stubBackend{}, &stubInstaller{})
	if code := a.execute([]string{pdfPath}); code != 1 {
		t.Errorf("Expected exit 1, got %d", code)
	}
	if !strings.Contains(out.String(), "conversion failed") {
		t.Errorf("Expected failure message, got %q", out.String())
	}
}

func TestAutoModeIgnoresOutputAndFailures(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	writePDF(t, filepath.Join(root, "docs", "a.pdf"))
	if err := os.WriteFile(filepath.Join(root, "b.pdf"), []byte("corrupt"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	a, out := newTestApp(&stubBackend{}, &stubInstaller{})
	if code := a.execute([]string{"--auto", "-o", "elsewhere"}); code != 0 {
		t.Errorf("Expected exit 0 despite failures, got %d", code)
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "a.png")); err != nil {
		t.Errorf("Expected a.png beside its source: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "elsewhere")); !os.IsNotExist(err) {
		t.Error("--output must not be used in auto mode")
	}
	if !strings.Contains(out.String(), "conversion failed") {
		t.Errorf("Expected failure for b.pdf to be reported, got %q", out.String())
	}
}

func TestAutoModeNoFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	a, out := newTestApp(&stubBackend{}, &stubInstaller{})
	if code := a.execute([]string{"--auto"}); code != 0 {
		t.Errorf("Expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "no PDF files found") {
		t.Errorf("Expected no files message, got %q", out.String())
	}
}
