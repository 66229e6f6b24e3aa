package overrides

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileLoader is implemented by configurations that know how to read
// themselves from a file.
type FileLoader interface {
	Load(path string) error
}

// DecodeFile reads a YAML (.yaml, .yml) or TOML (.toml) file into target.
// Only keys present in the file change target. Unknown keys are an error.
func DecodeFile(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), target)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parsing %s: unknown keys %v", filepath.Base(path), undecoded)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
	return nil
}
