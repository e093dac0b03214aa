package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedFormat is returned for plugin files that are neither JSON nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported plugin file format")

type pluginFile struct {
	Process string      `json:"process" toml:"process"`
	Regex   pluginRegex `json:"regex" toml:"regex"`
}

type pluginRegex struct {
	Pattern     string `json:"pattern" toml:"pattern"`
	ArtistGroup int    `json:"artistGroup" toml:"artist_group"`
	TitleGroup  int    `json:"titleGroup" toml:"title_group"`
}

type pluginBundle struct {
	Plugins []pluginFile `toml:"plugin"`
}

func (p pluginFile) definition() Definition {
	return Definition{
		ProcessName: p.Process,
		Pattern:     p.Regex.Pattern,
		ArtistGroup: p.Regex.ArtistGroup,
		TitleGroup:  p.Regex.TitleGroup,
		Enabled:     true,
	}
}

// ParseJSON parses a JSON plugin: a single object or an array of objects.
func ParseJSON(data []byte) ([]Definition, error) {
	data = bytes.TrimSpace(data)
	var files []pluginFile
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &files); err != nil {
			return nil, fmt.Errorf("parse json plugin: %w", err)
		}
	} else {
		var f pluginFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse json plugin: %w", err)
		}
		files = []pluginFile{f}
	}
	return validate(files)
}

// ParseTOML parses a TOML plugin: either top-level process/regex keys or a
// list of [[plugin]] tables.
func ParseTOML(data []byte) ([]Definition, error) {
	var bundle pluginBundle
	if err := toml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse toml plugin: %w", err)
	}
	files := bundle.Plugins
	if len(files) == 0 {
		var f pluginFile
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse toml plugin: %w", err)
		}
		files = []pluginFile{f}
	}
	return validate(files)
}

func validate(files []pluginFile) ([]Definition, error) {
	defs := make([]Definition, 0, len(files))
	for _, f := range files {
		def := f.definition()
		if _, err := NewRule(def); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", f.Process, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ReadFile parses a plugin file by extension.
func ReadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadDir parses every .json and .toml file in dir, in name order.
func ReadDir(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read plugin dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".toml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var defs []Definition
	for _, name := range names {
		d, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defs = append(defs, d...)
	}
	return defs, nil
}

// ExportTOML renders definitions as a [[plugin]] TOML document.
func ExportTOML(defs []Definition) ([]byte, error) {
	bundle := pluginBundle{Plugins: make([]pluginFile, len(defs))}
	for i, d := range defs {
		bundle.Plugins[i] = pluginFile{
			Process: d.ProcessName,
			Regex: pluginRegex{
				Pattern:     d.Pattern,
				ArtistGroup: d.ArtistGroup,
				TitleGroup:  d.TitleGroup,
			},
		}
	}
	data, err := toml.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("export plugins: %w", err)
	}
	return data, nil
}
