package plugin

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// BaseAPIVersion is the host's ABI version (spec §6 "Plugin ABI"). A
// dynamic plugin is rejected unless its plugin_api_version() call returns
// exactly this value.
const BaseAPIVersion uint32 = 20260101

// Manifest is the external-plugin descriptor file (spec §6 "Plugin
// manifest").
type Manifest struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	APIVersion  uint32 `yaml:"api_version"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Library     struct {
		Name string `yaml:"name"`
	} `yaml:"library"`
	Commands     []string `yaml:"commands"`
	Dependencies struct {
		MinToolVersion string `yaml:"min_tool_version"`
	} `yaml:"dependencies"`
}

// LibraryPath returns the manifest's library base filename with the
// platform-appropriate shared-library suffix appended.
func (m Manifest) LibraryPath(dir string) string {
	suffix := ".so"
	switch runtime.GOOS {
	case "darwin":
		suffix = ".dylib"
	case "windows":
		suffix = ".dll"
	}
	return filepath.Join(dir, m.Library.Name+suffix)
}

// DiscoverManifests walks dir (via fs, so tests can use an in-memory
// filesystem) for every `*.yaml` file and parses each one as a manifest. A
// malformed manifest is skipped with its error recorded rather than
// aborting discovery of the rest, matching spec §4.3's
// discovery-is-best-effort framing ("skip with a warning, not a fatal
// error").
func DiscoverManifests(fs afero.Fs, dir string) ([]Manifest, []error) {
	var manifests []Manifest
	var warnings []error

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, []error{fmt.Errorf("%w: read manifest directory %q: %v", ErrDiscoveryFailed, dir, err)}
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		body, err := afero.ReadFile(fs, path)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("plugin: read manifest %q: %w", path, err))
			continue
		}
		var m Manifest
		if err := yaml.Unmarshal(body, &m); err != nil {
			warnings = append(warnings, fmt.Errorf("plugin: parse manifest %q: %w", path, err))
			continue
		}
		manifests = append(manifests, m)
	}

	return manifests, warnings
}
