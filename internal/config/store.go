package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store exposes the configuration document through dot-delimited paths,
// e.g. "monitoring.thresholds.cpu_usage". It is the read/write handle the
// health scorer and validation tests use; the agent loop never writes
// through it. File-backed stores persist every update.
type Store struct {
	mu   sync.RWMutex
	path string // "" means in-memory only
	tree map[string]interface{}
}

// NewStore builds a store seeded from a typed Config. If path is non-empty,
// updates are persisted there as YAML.
func NewStore(cfg *Config, path string) (*Store, error) {
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, tree: tree}, nil
}

// LoadStore reads a YAML document from disk into a file-backed store.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config store: %w", err)
	}
	tree := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing config store %s: %w", path, err)
	}
	return &Store{path: path, tree: tree}, nil
}

// Get returns the value at the dot-delimited path. An empty path returns
// the whole document.
func (s *Store) Get(path string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if path == "" {
		return deepCopy(s.tree), nil
	}

	var node interface{} = s.tree
	for _, key := range strings.Split(path, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("config path %q: %q is not a map", path, key)
		}
		node, ok = m[key]
		if !ok {
			return nil, fmt.Errorf("config path %q not found", path)
		}
	}
	return deepCopy(node), nil
}

// Update sets the value at the dot-delimited path, creating intermediate
// maps as needed, and persists the document if the store is file-backed.
func (s *Store) Update(path string, value interface{}) error {
	if path == "" {
		return fmt.Errorf("empty config path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := strings.Split(path, ".")
	node := s.tree
	for _, key := range keys[:len(keys)-1] {
		next, ok := node[key].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			node[key] = next
		}
		node = next
	}
	node[keys[len(keys)-1]] = value

	return s.persistLocked()
}

// Decode unmarshals the subtree at path into out (a pointer to a typed
// struct). An empty path decodes the whole document.
func (s *Store) Decode(path string, out interface{}) error {
	value, err := s.Get(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding config subtree %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding config subtree %q: %w", path, err)
	}
	return nil
}

// Config decodes the whole document into a typed Config, with defaults
// filling anything the document omits.
func (s *Store) Config() (*Config, error) {
	cfg := DefaultConfig()
	if err := s.Decode("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// persistLocked writes the document to disk. Must be called with s.mu held.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.tree)
	if err != nil {
		return fmt.Errorf("marshaling config store: %w", err)
	}
	return os.WriteFile(s.path, data, 0640)
}

// toTree converts a typed Config into a generic YAML map via a marshal
// round trip, so dot-path lookups see the same keys the file uses.
func toTree(cfg *Config) (map[string]interface{}, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	tree := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return tree, nil
}

// deepCopy copies maps and slices so callers cannot mutate store state.
func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
