// Package writer serializes map pins to the JSON document the frontend fetches.
package writer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/1F47E/mappins/pkg/models"
)

// DefaultPath is where the frontend expects the document, relative to the project root.
const DefaultPath = "public/data/locations.json"

// defaultMode is used when the destination does not exist yet.
const defaultMode os.FileMode = 0o644

// ErrFilesystem is returned when the document cannot be written.
var ErrFilesystem = errors.New("filesystem error")

// Encode writes pins as a two-space indented JSON array.
// Non-ASCII characters and &, <, > are left unescaped.
func Encode(w io.Writer, pins []models.Pin) error {
	if pins == nil {
		pins = []models.Pin{}
	}
	return EncodeValue(w, pins)
}

// EncodeValue writes any value with the same formatting as Encode.
func EncodeValue(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// Marshal returns the encoded document.
func Marshal(pins []models.Pin) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, pins); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile replaces path with the encoded pins. The document is written
// to a temporary file in the same directory and renamed into place, so a
// failed run never leaves a truncated file behind. The directory must exist.
func WriteFile(path string, pins []models.Pin) error {
	payload, err := Marshal(pins)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: output directory %s: %v", ErrFilesystem, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: output directory %s is not a directory", ErrFilesystem, dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", ErrFilesystem, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write %s: %v", ErrFilesystem, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync %s: %v", ErrFilesystem, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", ErrFilesystem, tmpName, err)
	}
	// CreateTemp uses 0600
	if err := os.Chmod(tmpName, fileMode(path)); err != nil {
		return fmt.Errorf("%w: failed to chmod %s: %v", ErrFilesystem, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: failed to replace %s: %v", ErrFilesystem, path, err)
	}
	committed = true
	return nil
}

// fileMode returns the permissions of an existing destination, or defaultMode.
func fileMode(path string) os.FileMode {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return defaultMode
	}
	return info.Mode().Perm()
}
