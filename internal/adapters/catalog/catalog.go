// Package catalog resolves dotted message keys such as "user.login.error"
// to display text.
package catalog

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/BurntSushi/toml"

	"flashbox/internal/application/flash"
)

// MapCatalog is a flat key-to-text catalog.
type MapCatalog map[string]string

var _ flash.Catalog = MapCatalog(nil)

// Lookup returns the text stored under key.
func (m MapCatalog) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the catalog keys in sorted order.
func (m MapCatalog) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TOMLCatalog holds messages decoded from nested TOML tables. The table path
// plus the leaf name form the lookup key:
//
//	[user.login]
//	error = "Wrong password for %s"
//
// is found under "user.login.error".
type TOMLCatalog struct {
	MapCatalog
}

// LoadFile decodes the TOML file at path.
func LoadFile(path string) (*TOMLCatalog, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return fromTables(raw)
}

// LoadFS decodes the TOML file name inside fsys.
func LoadFS(fsys fs.FS, name string) (*TOMLCatalog, error) {
	var raw map[string]any
	if _, err := toml.DecodeFS(fsys, name, &raw); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}
	return fromTables(raw)
}

// Parse decodes TOML source text.
func Parse(src string) (*TOMLCatalog, error) {
	var raw map[string]any
	if _, err := toml.Decode(src, &raw); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return fromTables(raw)
}

func fromTables(raw map[string]any) (*TOMLCatalog, error) {
	out := MapCatalog{}
	if err := flatten("", raw, out); err != nil {
		return nil, err
	}
	return &TOMLCatalog{MapCatalog: out}, nil
}

// flatten walks nested tables; every leaf must be a string.
func flatten(prefix string, table map[string]any, out MapCatalog) error {
	for k, v := range table {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			if err := flatten(key, val, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("catalog: %s: want string or table, got %T", key, v)
		}
	}
	return nil
}
