package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/pooling/internal/pool"
	"gopkg.in/yaml.v3"
)

// PoolEntry configures the pool for one kind.
type PoolEntry struct {
	Kind         string   `yaml:"kind"`
	Preload      int      `yaml:"preload"`
	MaxCapacity  int      `yaml:"max_capacity"` // 0 = preload
	AllowRecycle bool     `yaml:"allow_recycle"`
	Notification string   `yaml:"notification"` // none, direct, broadcast
	Components   []string `yaml:"components"`
	Scope        string   `yaml:"scope"` // shared scope name, empty = one per kind
	Lazy         bool     `yaml:"lazy"`  // created on first allocation instead of at boot
	Note         string   `yaml:"note"`
}

type catalogFile struct {
	Pools []PoolEntry `yaml:"pools"`
}

// Catalog holds pool entries in file order, indexed by kind.
type Catalog struct {
	entries []PoolEntry
	byKind  map[string]int
}

// Get returns the entry for kind.
func (c *Catalog) Get(kind string) (*PoolEntry, bool) {
	i, ok := c.byKind[kind]
	if !ok {
		return nil, false
	}
	return &c.entries[i], true
}

// Entries returns a copy of every entry in file order.
func (c *Catalog) Entries() []PoolEntry {
	out := make([]PoolEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Eager returns the entries created at boot.
func (c *Catalog) Eager() []PoolEntry {
	out := make([]PoolEntry, 0, len(c.entries))
	for _, e := range c.entries {
		if !e.Lazy {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of pool kinds.
func (c *Catalog) Count() int {
	return len(c.entries)
}

// LoadCatalog loads pool_catalog.yaml.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pool catalog: %w", err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog parses and validates catalog YAML.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse pool catalog: %w", err)
	}
	c := &Catalog{
		entries: f.Pools,
		byKind:  make(map[string]int, len(f.Pools)),
	}
	for i, e := range c.entries {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("pool entry %d: %w", i, err)
		}
		if _, dup := c.byKind[e.Kind]; dup {
			return nil, fmt.Errorf("pool entry %d: kind %q: %w", i, e.Kind, pool.ErrDuplicateKind)
		}
		c.byKind[e.Kind] = i
	}
	return c, nil
}

func (e PoolEntry) validate() error {
	if e.Kind == "" {
		return fmt.Errorf("kind: %w", pool.ErrMissingPrototype)
	}
	if e.Preload < 0 {
		return fmt.Errorf("kind %q: negative preload %d", e.Kind, e.Preload)
	}
	if e.MaxCapacity < 0 {
		return fmt.Errorf("kind %q: negative max_capacity %d", e.Kind, e.MaxCapacity)
	}
	if _, err := pool.ParseNotificationMode(e.Notification); err != nil {
		return fmt.Errorf("kind %q: %w", e.Kind, err)
	}
	seen := make(map[string]bool, len(e.Components))
	for _, c := range e.Components {
		if c == "" || seen[c] {
			return fmt.Errorf("kind %q: empty or repeated component %q", e.Kind, c)
		}
		seen[c] = true
	}
	return nil
}
