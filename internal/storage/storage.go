// Package storage writes the dashboard document for the presentation layer.
//
// Writes are atomic: the document goes to a temporary file first and is then
// renamed over the destination, so readers never observe a partial file.
// An empty path writes to stdout instead.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/rewired-gh/signuptrends/internal/models"
)

// DocumentVersion is stamped into every written document.
const DocumentVersion = "1.0"

// Writer persists dashboards to a file or stream.
type Writer struct {
	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
	stream          io.Writer
}

// Document is the file structure written for the presentation layer.
type Document struct {
	Version   string            `json:"version"`
	Dashboard *models.Dashboard `json:"dashboard"`
}

// New creates a Writer. Zero permissions fall back to 0644 / 0755.
func New(filePath string, filePermissions, dirPermissions os.FileMode) *Writer {
	if filePermissions == 0 {
		filePermissions = 0o644
	}
	if dirPermissions == 0 {
		dirPermissions = 0o755
	}
	return &Writer{
		filePath:        filePath,
		filePermissions: filePermissions,
		dirPermissions:  dirPermissions,
		stream:          os.Stdout,
	}
}

// Destination describes where Save writes.
func (w *Writer) Destination() string {
	if w.filePath == "" {
		return "stdout"
	}
	return w.filePath
}

// Save writes the dashboard document.
func (w *Writer) Save(d *models.Dashboard) error {
	jsonData, err := json.MarshalIndent(Document{Version: DocumentVersion, Dashboard: d}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	jsonData = append(jsonData, '\n')

	if w.filePath == "" {
		if _, err := w.stream.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write dashboard: %w", err)
		}
		return nil
	}

	// Create output directory if needed
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, w.dirPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write to temporary file first (atomic write)
	tempPath := w.filePath + ".tmp"
	if err := os.WriteFile(tempPath, jsonData, w.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	// Rename temp file to actual file
	if err := os.Rename(tempPath, w.filePath); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Load reads a previously written document back, for tools that consume
// the output.
func Load(path string) (*Document, error) {
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}
