package runlog

import (
	"fmt"

	"github.com/kilianp07/gridbalance/core/factory"
)

// Options are the settings shared by the built-in backends.
type Options struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var storeRegistry = factory.NewRegistry[Store]()

// RegisterStore adds a store factory identified by name.
func RegisterStore(name string, f factory.Factory[Store]) error {
	return storeRegistry.Register(name, f)
}

// NewStore creates a Store from cfg. An empty type yields a NopStore.
func NewStore(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		return NopStore{}, nil
	}
	s, err := storeRegistry.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("run log %q: %w", cfg.Type, err)
	}
	return s, nil
}

func decodeOptions(conf map[string]any) (Options, error) {
	var o Options
	if err := factory.Decode(conf, &o); err != nil {
		return o, err
	}
	if o.Path == "" {
		return o, fmt.Errorf("path is required")
	}
	return o, nil
}

func init() {
	_ = RegisterStore("nop", func(map[string]any) (Store, error) { return NopStore{}, nil })
	_ = RegisterStore("jsonl", func(conf map[string]any) (Store, error) {
		o, err := decodeOptions(conf)
		if err != nil {
			return nil, err
		}
		return NewJSONLStore(o.Path)
	})
	_ = RegisterStore("rotating", func(conf map[string]any) (Store, error) {
		o, err := decodeOptions(conf)
		if err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(o.Path, o.MaxSizeMB, o.MaxBackups, o.MaxAgeDays)
	})
	_ = RegisterStore("sqlite", func(conf map[string]any) (Store, error) {
		o, err := decodeOptions(conf)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(o.Path)
	})
}
