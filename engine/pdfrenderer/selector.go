package pdfrenderer

import (
	"fmt"

	"github.com/drummonds/pdf2png/config"
	"github.com/hashicorp/go-multierror"
)

// Candidates returns the backends to probe, in order of preference.
// Automatic selection prefers in-process MuPDF over the poppler tools; PDFium
// is only used when it has been asked for by name.
func Candidates(cfg config.Config) []Backend {
	switch cfg.Backend {
	case config.BackendMuPDF:
		return []Backend{NewFitzRenderer()}
	case config.BackendPoppler:
		return []Backend{NewPopplerRenderer(cfg.PdftoppmPath, cfg.PdfinfoPath)}
	case config.BackendPDFium:
		return []Backend{NewPDFiumRenderer()}
	default:
		return []Backend{
			NewFitzRenderer(),
			NewPopplerRenderer(cfg.PdftoppmPath, cfg.PdfinfoPath),
		}
	}
}

// Select returns the first available backend.
// Backends that were probed but not chosen are closed.
func Select(candidates ...Backend) (Backend, error) {
	var probeErrs *multierror.Error
	for _, backend := range candidates {
		err := backend.Available()
		if err == nil {
			Logger.Info("Selected rasterization backend", "backend", backend.Name())
			return backend, nil
		}
		Logger.Debug("Backend unavailable", "backend", backend.Name(), "error", err)
		probeErrs = multierror.Append(probeErrs, fmt.Errorf("%s: %w", backend.Name(), err))
		if closeErr := backend.Close(); closeErr != nil {
			Logger.Warn("Failed to release unavailable backend", "backend", backend.Name(), "error", closeErr)
		}
	}
	if probeErrs == nil {
		return nil, ErrNoBackend
	}
	return nil, fmt.Errorf("%w: %v", ErrNoBackend, probeErrs.ErrorOrNil())
}
