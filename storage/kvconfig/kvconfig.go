package kvconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/kvregistry"
)

// Config describes how to open one or more KV backends via kvregistry.
//
// This provides config-driven runtime backend selection. Callers still
// need to link desired backend plugins via blank imports.
//
// WritePolicy values:
// - "first" (default): mutate only the first backend; reads fall back in order
// - "all": fan every mutation out to all backends (see storage.ReplicatingKV)
//
// Example:
//
//	{
//	  "write_policy": "all",
//	  "backends": [
//	    {"name":"fs", "config":{"fs-dir":"/var/lib/cairn/records"}},
//	    {"name":"sqlite", "config":{"sqlite-path":"/var/lib/cairn/records.db"}}
//	  ]
//	}
//
// Note: Config values are backend-specific; keys mirror the backend's
// CLI flag names.
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends"`
}

type BackendConfig struct {
	// Name is the kvregistry backend name to open (e.g. "fs", "sqlite", "grpc").
	Name string `json:"name"`
	// ID is an optional stable alias used for identification in errors
	// and reports. If empty, Name is used.
	ID     string            `json:"id,omitempty"`
	Config map[string]string `json:"config,omitempty"`
}

func LoadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("kvconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("kvconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("kvconfig: backend name is required")
		}
		id := b.Name
		if b.ID != "" {
			id = b.ID
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("kvconfig: duplicate backend id %q", id)
		}
		seen[id] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("kvconfig: invalid write_policy %q", c.WritePolicy)
	}
}

// Open opens a KV per config.
//
// If preferredBackend is non-empty, backends are reordered so
// preferredBackend is first (and thus takes mutations when
// WritePolicy=="first").
func (c Config) Open(usage kvregistry.Usage, preferredBackend string) (storage.KV, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferredBackend != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferredBackend || ordered[i].ID == preferredBackend {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("kvconfig: preferred backend %q not found in config", preferredBackend)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]storage.NamedKV, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	for _, b := range ordered {
		kv, closeFn, err := kvregistry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i]()
			}
			return nil, nil, err
		}
		name := b.Name
		if b.ID != "" {
			name = b.ID
		}
		named = append(named, storage.NamedKV{Name: name, KV: kv})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	if len(named) == 1 {
		return named[0].KV, closeAll, nil
	}

	switch c.WritePolicy {
	case "", "first":
		backends := make([]storage.KV, 0, len(named))
		for _, n := range named {
			backends = append(backends, n.KV)
		}
		return storage.MultiKV{Backends: backends}, closeAll, nil
	case "all":
		return storage.ReplicatingKV{Backends: named}, closeAll, nil
	default:
		return nil, nil, fmt.Errorf("kvconfig: invalid write_policy %q", c.WritePolicy)
	}
}
