// Package envelope persists question envelopes to disk.
//
// Files are written atomically: the envelope is marshalled to a
// temporary file in the target directory and renamed over the final
// path, so a kill mid-write leaves the previous checkpoint intact.
package envelope

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pyqbank/pkg/models"
)

// Read loads an envelope from path. Unknown fields in the file are
// ignored so older files with extra bookkeeping remain readable.
func Read(path string) (*models.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("envelope: read %s: %w", path, err)
	}
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("envelope: parse %s: %w", path, err)
	}
	return &env, nil
}

// Write persists the envelope atomically. The metadata counters are
// refreshed before writing.
func Write(path string, env *models.Envelope) error {
	env.Touch()

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("envelope: marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("envelope: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("envelope: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("envelope: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("envelope: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("envelope: rename to %s: %w", path, err)
	}
	return nil
}
