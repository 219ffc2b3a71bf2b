package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// rootMarkers identify a review workspace.
var rootMarkers = []string{
	ConfigFile,
	".git",
	"rules.xlsx",
	"rules.csv",
	"rules.yaml",
	"rules.json",
}

// FindRoot looks upwards from startDir for a workspace marker: review.yaml,
// a .git directory, or a rules file. It returns the absolute path of the
// first directory holding one.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, marker := range rootMarkers {
			if hasFile(dir, marker) {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("root not found")
}

func hasFile(dir, name string) bool {
	path := filepath.Join(dir, name)
	_, err := os.Stat(path)
	return err == nil
}
