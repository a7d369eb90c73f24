package config

import (
	"os"
	"path/filepath"
	"testing"
)

const settingsYAML = `
features:
  audit: true
  dry_run: "false"
ledger:
  digits: 2
  owner: treasury
  limits:
    daily: "250"
`

const settingsJSON = `{
  "features": {"audit": true, "dry_run": "false"},
  "ledger": {"digits": 2, "owner": "treasury", "limits": {"daily": "250"}}
}`

func backends(t *testing.T) map[string]Settings {
	t.Helper()
	y, err := NewYAMLSettings([]byte(settingsYAML))
	if err != nil {
		t.Fatalf("yaml settings: %v", err)
	}
	j, err := NewJSONSettings([]byte(settingsJSON))
	if err != nil {
		t.Fatalf("json settings: %v", err)
	}
	return map[string]Settings{"yaml": y, "json": j}
}

func TestSettingsLookups(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if v, ok := s.GetString("ledger.owner"); !ok || v != "treasury" {
				t.Errorf("GetString(ledger.owner) = %q, %v", v, ok)
			}
			if v, ok := s.GetBool("features.audit"); !ok || !v {
				t.Errorf("GetBool(features.audit) = %v, %v", v, ok)
			}
			// Booleans written as strings still parse.
			if v, ok := s.GetBool("features.dry_run"); !ok || v {
				t.Errorf("GetBool(features.dry_run) = %v, %v", v, ok)
			}
			if v, ok := s.GetInt("ledger.digits"); !ok || v != 2 {
				t.Errorf("GetInt(ledger.digits) = %d, %v", v, ok)
			}
			// Numbers written as strings still parse.
			if v, ok := s.GetInt("ledger.limits.daily"); !ok || v != 250 {
				t.Errorf("GetInt(ledger.limits.daily) = %d, %v", v, ok)
			}

			if _, ok := s.GetString("ledger.missing"); ok {
				t.Error("missing leaf reported present")
			}
			if _, ok := s.GetString("not.a.path"); ok {
				t.Error("missing tree reported present")
			}
			if _, ok := s.GetInt("ledger.owner"); ok {
				t.Error("non-numeric leaf converted to int")
			}
		})
	}
}

func TestSettingsSections(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ledger := s.Section("ledger")
			if v, ok := ledger.GetString("owner"); !ok || v != "treasury" {
				t.Errorf("section GetString(owner) = %q, %v", v, ok)
			}

			limits := ledger.Section("limits")
			if v, ok := limits.GetInt("daily"); !ok || v != 250 {
				t.Errorf("nested section GetInt(daily) = %d, %v", v, ok)
			}

			if _, ok := ledger.GetString("features.audit"); ok {
				t.Error("section escaped its subtree")
			}
		})
	}
}

func TestOpenSettingsByExtension(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "s.yaml")
	if err := os.WriteFile(yamlPath, []byte(settingsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "s.json")
	if err := os.WriteFile(jsonPath, []byte(settingsJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{yamlPath, jsonPath} {
		s, err := OpenSettings(path)
		if err != nil {
			t.Fatalf("OpenSettings(%s): %v", path, err)
		}
		if v, ok := s.GetInt("ledger.digits"); !ok || v != 2 {
			t.Errorf("%s: GetInt(ledger.digits) = %d, %v", path, v, ok)
		}
	}

	if _, err := OpenSettings(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}

	tomlPath := filepath.Join(dir, "s.toml")
	if err := os.WriteFile(tomlPath, []byte("a = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSettings(tomlPath); err == nil {
		t.Error("unsupported extension accepted")
	}
}

func TestNewJSONSettingsRejectsInvalid(t *testing.T) {
	if _, err := NewJSONSettings([]byte("{broken")); err == nil {
		t.Fatal("invalid JSON accepted")
	}
}
