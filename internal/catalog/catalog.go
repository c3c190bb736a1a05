// Package catalog supplies read-only item and region name lookups from a
// static YAML file. The catalog is plain data injected into whichever layer
// needs name resolution; the pipeline itself treats ids as opaque and lets
// the remote endpoints reject unknown ones.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownType   = errors.New("unknown item type")
	ErrUnknownRegion = errors.New("unknown region")
)

// Entry is one id↔name pair in the catalog file.
type Entry struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

type fileFormat struct {
	Regions []Entry `yaml:"regions"`
	Types   []Entry `yaml:"types"`
}

// Catalog resolves ids to names and names to ids, both directions built
// once at load time. Immutable after construction, safe for concurrent use.
type Catalog struct {
	typeNames   map[int32]string
	regionNames map[int32]string
	typeIDs     map[string]int32
	regionIDs   map[string]int32
}

// Load reads a catalog YAML file with top-level "regions" and "types" lists.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Regions, f.Types), nil
}

// New builds a catalog from explicit entry lists.
func New(regions, types []Entry) *Catalog {
	c := &Catalog{
		typeNames:   make(map[int32]string, len(types)),
		regionNames: make(map[int32]string, len(regions)),
		typeIDs:     make(map[string]int32, len(types)),
		regionIDs:   make(map[string]int32, len(regions)),
	}
	for _, e := range types {
		c.typeNames[e.ID] = e.Name
		c.typeIDs[strings.ToLower(e.Name)] = e.ID
	}
	for _, e := range regions {
		c.regionNames[e.ID] = e.Name
		c.regionIDs[strings.ToLower(e.Name)] = e.ID
	}
	return c
}

// TypeName resolves an item type id to its display name.
func (c *Catalog) TypeName(id int32) (string, error) {
	if name, ok := c.typeNames[id]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: id %d", ErrUnknownType, id)
}

// RegionName resolves a region id to its display name.
func (c *Catalog) RegionName(id int32) (string, error) {
	if name, ok := c.regionNames[id]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: id %d", ErrUnknownRegion, id)
}

// TypeID resolves an item name (case-insensitive) to its id.
func (c *Catalog) TypeID(name string) (int32, error) {
	if id, ok := c.typeIDs[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// RegionID resolves a region name (case-insensitive) to its id.
func (c *Catalog) RegionID(name string) (int32, error) {
	if id, ok := c.regionIDs[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
}

// Types returns all known item entries, for listing endpoints.
func (c *Catalog) Types() []Entry {
	out := make([]Entry, 0, len(c.typeNames))
	for id, name := range c.typeNames {
		out = append(out, Entry{ID: id, Name: name})
	}
	return out
}

// Regions returns all known region entries.
func (c *Catalog) Regions() []Entry {
	out := make([]Entry, 0, len(c.regionNames))
	for id, name := range c.regionNames {
		out = append(out, Entry{ID: id, Name: name})
	}
	return out
}
