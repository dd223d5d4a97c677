package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Loader retrieves and parses the configuration document from some
// underlying source. Grounded on the teacher's pkg/config.Loader interface,
// generalized from a single file format to viper's config-format detection
// (YAML/TOML/JSON, per spec §6 "hierarchical key-value document (text)").
type Loader interface {
	Load(ctx context.Context) (*Document, error)
}

// FileLoader loads the configuration document from a file on disk (or an
// injected afero.Fs for tests), letting viper infer the format from the
// file's extension.
type FileLoader struct {
	path string
	fs   afero.Fs
}

// NewFileLoader builds a FileLoader reading path through fs. A nil fs uses
// the real OS filesystem.
func NewFileLoader(path string, fs afero.Fs) *FileLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileLoader{path: path, fs: fs}
}

// Load reads and parses the file at l.path. A missing file is not an error:
// it yields an empty Document so every accessor falls back to its default,
// matching the plugin engine's tolerance for absent per-plugin sections.
func (l *FileLoader) Load(ctx context.Context) (*Document, error) {
	v := viper.New()
	v.SetFs(l.fs)
	v.SetConfigFile(l.path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || errors.Is(err, fs.ErrNotExist) {
			return &Document{v: viper.New()}, nil
		}
		return nil, fmt.Errorf("config: read %q: %w", l.path, err)
	}

	return &Document{v: v}, nil
}
