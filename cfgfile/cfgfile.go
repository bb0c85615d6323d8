// Package cfgfile loads and saves configuration files in JSON or YAML.
package cfgfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a configuration file format.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath returns the format selected by the file extension.
// Files without a ".yaml" or ".yml" extension are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Open decodes the configuration file at path into v.
// Unknown fields are rejected.
func Open(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch FormatFromPath(path) {
	case FormatYAML:
		d := yaml.NewDecoder(f)
		d.KnownFields(true)
		err = d.Decode(v)
	default:
		d := json.NewDecoder(f)
		d.DisallowUnknownFields()
		err = d.Decode(v)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Save encodes v into the configuration file at path.
func Save(path string, v any) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	switch FormatFromPath(path) {
	case FormatYAML:
		e := yaml.NewEncoder(f)
		e.SetIndent(2)
		if err = e.Encode(v); err != nil {
			return err
		}
		return e.Close()
	default:
		e := json.NewEncoder(f)
		e.SetIndent("", "    ")
		return e.Encode(v)
	}
}
