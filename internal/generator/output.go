package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ffbind/pkg/models"
)

// Metadata formats accepted by WriteDirectives.
const (
	FormatLines = "lines"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
	// FormatLDFlags is a single line of linker flags for a #cgo LDFLAGS directive.
	FormatLDFlags = "ldflags"
)

// WriteArtifact replaces path with src. The content goes to a temporary file
// in the same directory first, so readers never see a partial artifact.
func WriteArtifact(path string, src []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// WriteDirectives prints the link directives in the requested format.
func WriteDirectives(w io.Writer, d models.LinkDirectives, format string) error {
	switch format {
	case "", FormatLines:
		for _, line := range d.Lines() {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatLDFlags:
		_, err := fmt.Fprintln(w, d.LDFlags())
		return err
	default:
		return fmt.Errorf("unknown metadata format %q", format)
	}
}
