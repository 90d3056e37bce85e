package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// FileKind classifies an output file
type FileKind string

const (
	KindReport   FileKind = "report"
	KindTable    FileKind = "table"
	KindLog      FileKind = "log"
	KindWorkbook FileKind = "workbook"
	KindManifest FileKind = "manifest"
)

// OutputFile describes one written file
type OutputFile struct {
	Name  string   `json:"name"`
	Path  string   `json:"path"`
	Kind  FileKind `json:"kind"`
	Rows  int      `json:"rows"`
	Bytes int64    `json:"bytes"`
	Size  string   `json:"size"`
}

// Manifest lists the outputs of one run
type Manifest struct {
	RunID       string       `json:"run_id"`
	Source      string       `json:"source,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
	Files       []OutputFile `json:"files"`
}

// newOutputFile stats path to fill in the size fields
func newOutputFile(name, path string, kind FileKind, rows int) OutputFile {
	out := OutputFile{Name: name, Path: path, Kind: kind, Rows: rows}
	if info, err := os.Stat(path); err == nil {
		out.Bytes = info.Size()
		out.Size = humanize.Bytes(uint64(info.Size()))
	}
	return out
}

// WriteManifest writes m as indented JSON
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
