package config

import (
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// Backend names accepted by PDF2PNG_BACKEND
const (
	BackendAuto    = "auto"
	BackendMuPDF   = "mupdf"
	BackendPoppler = "poppler"
	BackendPDFium  = "pdfium"
)

// Config contains all of the converter settings
type Config struct {
	LogLevel       string
	LogOutput      string
	LogFile        string
	Backend        string
	DefaultDPI     int
	PNGCompression png.CompressionLevel
	PdftoppmPath   string //empty if poppler is not installed
	PdfinfoPath    string
	InstallSudo    bool
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// Setup loads configuration and returns Config and Logger
func Setup() (Config, *slog.Logger) {
	cfg := Config{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("pdf2png.env")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogOutput = getEnv("LOG_OUTPUT", "stderr")
	cfg.LogFile = getEnv("LOG_FILE", "pdf2png.log")

	logger := setupLogging(cfg)
	Logger = logger

	cfg.Backend = strings.ToLower(getEnv("PDF2PNG_BACKEND", BackendAuto))
	switch cfg.Backend {
	case BackendAuto, BackendMuPDF, BackendPoppler, BackendPDFium:
	default:
		logger.Warn("Unknown backend requested, falling back to automatic selection", "backend", cfg.Backend)
		cfg.Backend = BackendAuto
	}

	cfg.DefaultDPI = getEnvInt("PDF2PNG_DPI", 300)
	if cfg.DefaultDPI <= 0 {
		logger.Warn("Ignoring non-positive default DPI", "dpi", cfg.DefaultDPI)
		cfg.DefaultDPI = 300
	}

	cfg.PNGCompression = parseCompression(getEnv("PDF2PNG_PNG_COMPRESSION", "none"))
	cfg.InstallSudo = getEnvBool("PDF2PNG_INSTALL_SUDO", false)

	// poppler helpers, only needed by the poppler backend
	cfg.PdftoppmPath = resolveExecutable(getEnv("PDFTOPPM_PATH", "pdftoppm"), logger)
	cfg.PdfinfoPath = resolveExecutable(getEnv("PDFINFO_PATH", "pdfinfo"), logger)

	logger.Debug("Configuration loaded",
		"backend", cfg.Backend,
		"defaultDPI", cfg.DefaultDPI,
		"pdftoppm", cfg.PdftoppmPath,
		"pdfinfo", cfg.PdfinfoPath)

	return cfg, logger
}

// parseCompression maps a config value onto a png compression level.
// Unknown values keep the lossless, no-transform default.
func parseCompression(value string) png.CompressionLevel {
	switch strings.ToLower(value) {
	case "speed", "fast", "bestspeed":
		return png.BestSpeed
	case "default":
		return png.DefaultCompression
	case "best", "size", "bestcompression":
		return png.BestCompression
	default:
		return png.NoCompression
	}
}

// resolveExecutable returns the absolute path of an executable, or "" when it can't be found
func resolveExecutable(name string, logger *slog.Logger) string {
	path := name
	if !filepath.IsAbs(name) {
		found, err := exec.LookPath(name)
		if err != nil {
			logger.Debug("Executable not found on PATH", "name", name)
			return ""
		}
		path = found
	}
	if err := checkExecutables(path, logger); err != nil {
		return ""
	}
	return path
}

// setupLogging configures the application logger
func setupLogging(cfg Config) *slog.Logger {
	var level slog.Level

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	var logWriter io.Writer

	switch cfg.LogOutput {
	case "stdout":
		logWriter = os.Stdout
	case "file":
		logPath, err := filepath.Abs(filepath.ToSlash(cfg.LogFile))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating log file path: %v\n", err)
			logWriter = os.Stderr
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
				logWriter = os.Stderr
			} else {
				logWriter = logFile
			}
		}
	default:
		logWriter = os.Stderr
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// checkExecutables verifies that an executable exists at the given path
func checkExecutables(path string, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		logger.Error("Cannot find executable at location specified", "path", path)
		return err
	}
	if info.IsDir() {
		logger.Error("Executable path is a directory", "path", path)
		return fmt.Errorf("%s is a directory, not an executable", path)
	}
	logger.Debug("Executable found", "path", path)
	return nil
}
