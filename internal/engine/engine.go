// Package engine holds what every generation backend shares. Backends live in
// subpackages: openai talks to an OpenAI-compatible inference server and lead
// is an extractive fallback for offline runs.
package engine

import (
	"fmt"
	"os"
)

// RequireArtifacts fails unless dir exists and holds at least one entry.
func RequireArtifacts(dir string) error {
	if dir == "" {
		return fmt.Errorf("model directory is not set")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read model directory: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("model directory %s is empty", dir)
	}
	return nil
}
