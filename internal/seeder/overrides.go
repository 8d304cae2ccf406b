package seeder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/goccy/go-yaml"
)

// overrideFile mirrors Template with pointers so absent sections are
// distinguishable from empty ones.
type overrideFile struct {
	Actions   *[]Action            `yaml:"actions"`
	Channels  *[]Document          `yaml:"channels"`
	Folders   *[]Document          `yaml:"folders"`
	Services  *[]Service           `yaml:"services"`
	Views     *[]Document          `yaml:"views"`
	MetaTypes *map[string]Document `yaml:"meta_types"`
	Storages  *[]Document          `yaml:"storages"`
}

// LoadOverrides applies every *.yml and *.yaml file in dir to t, in file
// name order. A section present in a file replaces the whole section. A
// missing directory is not an error.
func LoadOverrides(t *Template, dir string, logger *slog.Logger) error {
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yml" || ext == ".yaml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		var o overrideFile
		if err := yaml.UnmarshalWithOptions(data, &o, yaml.Strict()); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		logger.Info("Using settings overrides", "file", path)
		o.applyTo(t)
	}
	return nil
}

func (o *overrideFile) applyTo(t *Template) {
	if o.Actions != nil {
		t.Actions = *o.Actions
	}
	if o.Channels != nil {
		t.Channels = *o.Channels
	}
	if o.Folders != nil {
		t.Folders = *o.Folders
	}
	if o.Services != nil {
		t.Services = *o.Services
	}
	if o.Views != nil {
		t.Views = *o.Views
	}
	if o.MetaTypes != nil {
		t.MetaTypes = *o.MetaTypes
	}
	if o.Storages != nil {
		t.Storages = *o.Storages
	}
}
