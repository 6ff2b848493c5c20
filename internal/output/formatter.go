// Package output provides formatting utilities for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format int

const (
	// FormatTable is a human-readable table.
	FormatTable Format = iota
	// FormatJSON is JSON output.
	FormatJSON
	// FormatYAML is YAML output.
	FormatYAML
)

// ParseFormat converts a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "table", "text":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatTable, fmt.Errorf("unknown output format %q — supported: table, json, yaml", s)
	}
}

// Writer handles formatted output to a destination.
type Writer struct {
	dest   io.Writer
	format Format
}

// NewWriter creates a writer for dest; a nil dest means stdout.
func NewWriter(dest io.Writer, format Format) *Writer {
	if dest == nil {
		dest = os.Stdout
	}
	return &Writer{dest: dest, format: format}
}

// Format returns the writer's format.
func (w *Writer) Format() Format {
	return w.format
}

// Dest returns the underlying writer.
func (w *Writer) Dest() io.Writer {
	return w.dest
}

// WriteJSON encodes a value as pretty-printed JSON.
func (w *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(w.dest)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML encodes a value as YAML.
func (w *Writer) WriteYAML(v any) error {
	enc := yaml.NewEncoder(w.dest)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// WriteStructured writes v as JSON or YAML according to the writer's format.
// It returns false for FormatTable, leaving rendering to the caller.
func (w *Writer) WriteStructured(v any) (bool, error) {
	switch w.format {
	case FormatJSON:
		return true, w.WriteJSON(v)
	case FormatYAML:
		return true, w.WriteYAML(v)
	default:
		return false, nil
	}
}

// WriteLn writes a line of text.
func (w *Writer) WriteLn(s string) error {
	_, err := fmt.Fprintln(w.dest, s)
	return err
}

// WriteError writes an error message to stderr.
func WriteError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
