package utils

import (
	"os"
	"path/filepath"
)

// HistoryFile is the name of the REPL history file in the user's home.
const HistoryFile = ".exprc_history"

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}

	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// HistoryPath returns where the REPL keeps its history. Without a home
// directory it falls back to the working directory.
func HistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return HistoryFile
	}
	return filepath.Join(home, HistoryFile)
}
