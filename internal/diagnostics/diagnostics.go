// Package diagnostics writes the debug artifacts a run leaves behind when the
// remote page or the input does not look as expected.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"fjacquet/budget-sync/internal/fileutils"
	"fjacquet/budget-sync/internal/logging"
)

// Artifact file names.
const (
	DashboardSnapshot = "debug-dashboard.html"
	BudgetCandidates  = "debug-budgets.json"
	BadInput          = "debug-bad-input.txt"
)

// Writer stores artifacts in a single directory. A disabled Writer does nothing.
type Writer struct {
	dir     string
	enabled bool
	logger  logging.Logger
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string, enabled bool, logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Writer{dir: dir, enabled: enabled, logger: logger}
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns where the named artifact is written.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteText stores raw text under name and returns the file path.
func (w *Writer) WriteText(name, content string) (string, error) {
	if w == nil || !w.enabled {
		return "", nil
	}
	path := w.Path(name)
	if err := fileutils.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("diagnostics %s: %w", name, err)
	}
	w.logger.Debug("Wrote diagnostic artifact",
		logging.F(logging.FieldComponent, logging.ComponentDiagnostics),
		logging.F(logging.FieldArtifact, path))
	return path, nil
}

// WriteJSON stores v as indented JSON under name and returns the file path.
func (w *Writer) WriteJSON(name string, v interface{}) (string, error) {
	if w == nil || !w.enabled {
		return "", nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("diagnostics %s: %w", name, err)
	}
	return w.WriteText(name, string(data))
}
