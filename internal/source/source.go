// Package source loads host documents from files: Ragnarok Online RSM
// models and RSW worlds, on disk or inside GRF archives, and YAML or TOML
// scene descriptions.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/dawn-toolbox/internal/assets"
	"github.com/Faultbox/dawn-toolbox/pkg/grf"
	"github.com/Faultbox/dawn-toolbox/pkg/host"
)

// ErrUnknownFormat is returned for inputs whose extension has no loader.
var ErrUnknownFormat = errors.New("unknown input format")

// Options controls how inputs are turned into host documents.
type Options struct {
	// Archives are searched for inputs given as archive paths
	// ("data\model\...").
	Archives grf.Set
	// SmoothNormals forces smooth split normals on RSM meshes. Meshes of
	// smooth-shaded models are always smooth.
	SmoothNormals bool
}

// Extensions lists the input extensions Load understands.
var Extensions = []string{".rsm", ".rsw", ".yaml", ".yml", ".toml"}

// Supported reports whether Load has a loader for name's extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads the input at name and converts it into a host document.
func Load(name string, opts Options) (*host.Document, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".rsm":
		data, err := readInput(name, opts.Archives)
		if err != nil {
			return nil, err
		}
		return ParseRSM(data, opts.SmoothNormals)
	case ".rsw":
		data, err := readInput(name, opts.Archives)
		if err != nil {
			return nil, err
		}
		return ParseRSW(data, assets.NewManager(dataRoot(name), opts.Archives), opts.SmoothNormals)
	case ".yaml", ".yml":
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading scene description: %w", err)
		}
		return ParseYAML(data)
	case ".toml":
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading scene description: %w", err)
		}
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
}

// readInput prefers a file on disk and falls back to the archives for
// archive-style paths.
func readInput(name string, archives grf.Set) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) || len(archives) == 0 || !grf.IsArchivePath(name) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return archives.Read(name)
}

// dataRoot is the directory a world on disk resolves its models against:
// the one holding the .rsw, as in the client's data directory. Worlds read
// from archives resolve models in the archives only.
func dataRoot(name string) string {
	if _, err := os.Stat(name); err != nil {
		return ""
	}
	return filepath.Dir(name)
}
