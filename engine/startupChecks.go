package engine

import (
	"fmt"
	"os"
)

// EnsureOutputDir makes sure the output directory exists, creating it and any
// parents when needed. It is safe to call repeatedly for the same directory.
func EnsureOutputDir(path string) error {
	if path == "" {
		path = "."
	}

	// Check if directory exists
	dirInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating output directory", "path", path)
			err = os.MkdirAll(path, 0755)
			if err != nil {
				Logger.Error("Failed to create output directory", "path", path, "error", err)
				return fmt.Errorf("failed to create output directory %s: %w", path, err)
			}
			return nil
		}
		Logger.Error("Error checking output directory", "path", path, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !dirInfo.IsDir() {
		Logger.Error("Output path exists but is not a directory", "path", path)
		return fmt.Errorf("output path is not a directory: %s", path)
	}

	return nil
}
