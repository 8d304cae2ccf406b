package endpoints

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"nebula/internal/plugins"
)

// BuiltinLocation names the location of units compiled into the server.
const BuiltinLocation = "api"

// EntryFileBase is the base name of the entry file that makes a
// subdirectory a unit: unit.so, unit.yaml, unit.yml.
const EntryFileBase = "unit"

// Candidate is one unit to load.
type Candidate struct {
	Name   string
	Path   string
	Loader plugins.Loader
}

// Source lists the candidates of one location. Candidates returns an error
// wrapping fs.ErrNotExist when the location is absent.
type Source interface {
	Name() string
	Candidates() ([]Candidate, error)
}

// BuiltinSource lists the compiled-in units in name order.
type BuiltinSource struct {
	builtins *plugins.Builtins
}

// NewBuiltinSource creates the built-in "api" location.
func NewBuiltinSource(b *plugins.Builtins) *BuiltinSource {
	return &BuiltinSource{builtins: b}
}

func (s *BuiltinSource) Name() string { return BuiltinLocation }

func (s *BuiltinSource) Candidates() ([]Candidate, error) {
	names := s.builtins.Names()
	out := make([]Candidate, 0, len(names))
	for _, n := range names {
		out = append(out, Candidate{Name: n, Path: BuiltinLocation + "/" + n, Loader: s.builtins})
	}
	return out, nil
}

// DirSource lists units in a directory. Files count when their extension has
// a loader; subdirectories count when they hold an entry file. Hidden
// entries are ignored and the listing is sorted by name.
type DirSource struct {
	name    string
	dir     string
	loaders map[string]plugins.Loader
}

// NewDirSource maps file extensions (".so", ".yaml") to loaders.
func NewDirSource(name, dir string, loaders map[string]plugins.Loader) *DirSource {
	return &DirSource{name: name, dir: dir, loaders: maps.Clone(loaders)}
}

func (s *DirSource) Name() string { return s.name }

// Dir returns the directory the source lists.
func (s *DirSource) Dir() string { return s.dir }

// Candidates lists the loadable entries of the directory in name order.
func (s *DirSource) Candidates() ([]Candidate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	slices.SortFunc(entries, func(a, b os.DirEntry) int { return strings.Compare(a.Name(), b.Name()) })

	var out []Candidate
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		path := filepath.Join(s.dir, name)
		if e.IsDir() {
			if entry, loader, ok := s.entryFile(path); ok {
				out = append(out, Candidate{Name: name, Path: entry, Loader: loader})
			}
			continue
		}
		ext := filepath.Ext(name)
		loader, ok := s.loaders[ext]
		if !ok {
			continue
		}
		out = append(out, Candidate{Name: strings.TrimSuffix(name, ext), Path: path, Loader: loader})
	}
	return out, nil
}

func (s *DirSource) entryFile(dir string) (string, plugins.Loader, bool) {
	for _, ext := range slices.Sorted(maps.Keys(s.loaders)) {
		path := filepath.Join(dir, EntryFileBase+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, s.loaders[ext], true
		}
	}
	return "", nil, false
}
