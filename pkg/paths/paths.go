package paths

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the user's config directory for docqa.
//
// If the home directory cannot be determined, it falls back to a directory
// under the system temporary directory.
func GetConfigDir() string {
	if dir := os.Getenv("DOCQA_CONFIG_DIR"); dir != "" {
		return filepath.Clean(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".docqa-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", "docqa"))
}

// GetDataDir returns the user's data directory for docqa (logs, catalog).
func GetDataDir() string {
	if dir := os.Getenv("DOCQA_DATA_DIR"); dir != "" {
		return filepath.Clean(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), ".docqa"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".docqa"))
}
