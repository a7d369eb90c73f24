package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/quantfabric/fincore/pkg/faults"
)

// Settings is a passive, read-only lookup over a hierarchical document.
// Paths are dot-separated ("storage.driver"); Section narrows the view to
// a subtree so components can share one document under their own
// namespace. Lookups report presence explicitly and never mutate state.
type Settings interface {
	GetString(path string) (string, bool)
	GetBool(path string) (bool, bool)
	GetInt(path string) (int, bool)
	Section(prefix string) Settings
}

// OpenSettings loads a settings document, choosing the backend by file
// extension: .json goes through gjson, .yaml/.yml through the YAML tree.
func OpenSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONSettings(data)
	case ".yaml", ".yml":
		return NewYAMLSettings(data)
	default:
		return nil, faults.Argumentf("unsupported settings extension %q", filepath.Ext(path))
	}
}

// yamlSettings walks a decoded YAML tree.
type yamlSettings struct {
	root map[string]any
}

var _ Settings = yamlSettings{}

// NewYAMLSettings parses a YAML document into a Settings view.
func NewYAMLSettings(data []byte) (Settings, error) {
	root := map[string]any{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return yamlSettings{root: root}, nil
}

func (s yamlSettings) lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var node any = s.root
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func (s yamlSettings) GetString(path string) (string, bool) {
	v, ok := s.lookup(path)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func (s yamlSettings) GetBool(path string) (bool, bool) {
	v, ok := s.lookup(path)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func (s yamlSettings) GetInt(path string) (int, bool) {
	v, ok := s.lookup(path)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		if t == float64(int(t)) {
			return int(t), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (s yamlSettings) Section(prefix string) Settings {
	return sectionSettings{base: s, prefix: prefix}
}

// jsonSettings answers lookups with gjson path queries.
type jsonSettings struct {
	data []byte
}

var _ Settings = jsonSettings{}

// NewJSONSettings wraps a JSON document in a Settings view.
func NewJSONSettings(data []byte) (Settings, error) {
	if !gjson.ValidBytes(data) {
		return nil, faults.Argumentf("settings document is not valid JSON")
	}
	return jsonSettings{data: data}, nil
}

func (s jsonSettings) GetString(path string) (string, bool) {
	r := gjson.GetBytes(s.data, path)
	switch r.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		return r.String(), true
	default:
		return "", false
	}
}

func (s jsonSettings) GetBool(path string) (bool, bool) {
	r := gjson.GetBytes(s.data, path)
	switch r.Type {
	case gjson.True, gjson.False:
		return r.Bool(), true
	case gjson.String:
		b, err := strconv.ParseBool(r.Str)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func (s jsonSettings) GetInt(path string) (int, bool) {
	r := gjson.GetBytes(s.data, path)
	switch r.Type {
	case gjson.Number:
		f := r.Float()
		if f != float64(int(f)) {
			return 0, false
		}
		return int(r.Int()), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (s jsonSettings) Section(prefix string) Settings {
	return sectionSettings{base: s, prefix: prefix}
}

// sectionSettings prefixes every lookup, narrowing any backend to a
// subtree.
type sectionSettings struct {
	base   Settings
	prefix string
}

var _ Settings = sectionSettings{}

func (s sectionSettings) path(p string) string {
	if s.prefix == "" {
		return p
	}
	return s.prefix + "." + p
}

func (s sectionSettings) GetString(path string) (string, bool) {
	return s.base.GetString(s.path(path))
}

func (s sectionSettings) GetBool(path string) (bool, bool) {
	return s.base.GetBool(s.path(path))
}

func (s sectionSettings) GetInt(path string) (int, bool) {
	return s.base.GetInt(s.path(path))
}

func (s sectionSettings) Section(prefix string) Settings {
	return sectionSettings{base: s.base, prefix: s.path(prefix)}
}
