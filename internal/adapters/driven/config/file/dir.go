package file

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the configuration directory.
const HomeEnv = "SERCHA_RAG_HOME"

// DefaultDir returns the configuration directory: $SERCHA_RAG_HOME if set,
// otherwise ~/.sercha-rag.
func DefaultDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sercha-rag"), nil
}
