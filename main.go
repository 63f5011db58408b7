package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	config "github.com/drummonds/pdf2png/config"
	engine "github.com/drummonds/pdf2png/engine"
	"github.com/drummonds/pdf2png/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	engine.Logger = Logger
	pdfrenderer.Logger = Logger
}

// exitError carries the process exit status out of a cobra RunE
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// dependencyInstaller is the --install-deps operation
type dependencyInstaller interface {
	InstallDependencies() bool
}

// app holds one invocation's configuration, flags and collaborators
type app struct {
	cfg          config.Config
	out          io.Writer
	candidates   func(config.Config) []pdfrenderer.Backend
	newInstaller func(out io.Writer, cfg config.Config) dependencyInstaller

	output      string
	dpi         int
	installDeps bool
	auto        bool
}

func newApp(cfg config.Config, out io.Writer) *app {
	return &app{
		cfg:        cfg,
		out:        out,
		candidates: pdfrenderer.Candidates,
		newInstaller: func(out io.Writer, cfg config.Config) dependencyInstaller {
			return engine.NewInstaller(out, cfg.InstallSudo)
		},
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf2png [input.pdf]",
		Short: "Lossless PDF to PNG converter",
		Long: `
Converts every page of a PDF into a PNG image at the requested resolution.
Single page documents produce <name>.png, longer ones <name>_page_001.png and so on.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.run,
	}

	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Output directory (default: same directory as the input file)")
	cmd.Flags().IntVarP(&a.dpi, "dpi", "d", a.cfg.DefaultDPI, "Output resolution in DPI")
	cmd.Flags().BoolVar(&a.installDeps, "install-deps", false, "Install the PDF rendering dependencies and exit")
	cmd.Flags().BoolVar(&a.auto, "auto", false, "Convert every PDF file under the current directory")

	cmd.SetOut(a.out)
	cmd.SetErr(a.out)
	return cmd
}

// run handles the flags in precedence order: install, backend selection, auto, single file
func (a *app) run(cmd *cobra.Command, args []string) error {
	if a.installDeps {
		Logger.Info("Installing dependencies, no documents will be processed")
		if !a.newInstaller(a.out, a.cfg).InstallDependencies() {
			return &exitError{code: 1}
		}
		return nil
	}

	if a.dpi <= 0 {
		return &exitError{code: 1, err: fmt.Errorf("invalid --dpi %d: must be a positive integer", a.dpi)}
	}

	backend, err := pdfrenderer.Select(a.candidates(a.cfg)...)
	if err != nil {
		Logger.Error("No rasterization backend available", "error", err)
		fmt.Fprint(a.out, engine.RemediationText())
		return &exitError{code: 1}
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Warn("Failed to release backend", "backend", backend.Name(), "error", err)
		}
	}()

	converter := engine.NewConverter(backend, a.out, a.cfg.PNGCompression)

	if a.auto {
		if a.output != "" {
			Logger.Info("Ignoring --output in auto mode, images are written beside each PDF", "output", a.output)
		}
		converter.RunAuto(".", a.dpi)
		return nil
	}

	if len(args) == 0 {
		fmt.Fprintln(a.out, "please specify an input PDF file or use --auto")
		cmd.Help()
		return &exitError{code: 1}
	}

	if _, err := converter.ConvertFile(args[0], a.output, a.dpi); err != nil {
		if errors.Is(err, engine.ErrNotFound) || errors.Is(err, engine.ErrNotPDF) {
			return &exitError{code: 1, err: fmt.Errorf("error: %w", err)}
		}
		return &exitError{code: 1, err: fmt.Errorf("conversion failed: %w", err)}
	}
	return nil
}

// execute runs the command line and returns the process exit status
func (a *app) execute(args []string) int {
	cmd := a.rootCmd()
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(a.out, exitErr.err)
		}
		return exitErr.code
	}

	// flag and argument errors
	fmt.Fprintf(a.out, "error: %v\n", err)
	cmd.Usage()
	return 1
}

func main() {
	cfg, logger := config.Setup()
	injectGlobals(logger) //inject the logger into all of the packages

	os.Exit(newApp(cfg, os.Stdout).execute(os.Args[1:]))
}
