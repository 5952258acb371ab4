package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Label string `yaml:"label"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpand(t *testing.T) {
	t.Setenv("CFG_SET", "value")
	t.Setenv("CFG_EMPTY", "")
	cases := map[string]string{
		"$CFG_SET":                 "value",
		"${CFG_SET}":               "value",
		"${CFG_SET:-other}":        "value",
		"${CFG_EMPTY:-fallback}":   "fallback",
		"${CFG_MISSING:-fallback}": "fallback",
		"${CFG_MISSING}":           "",
		"plain":                    "plain",
	}
	for in, want := range cases {
		if got := Expand(in); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	t.Setenv("CFG_PORT", "8081")
	path := writeFile(t, "port: ${CFG_PORT}\nname: ${CFG_NAME:-board}\n")

	s := sample{Label: "default"}
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Port != 8081 || s.Name != "board" || s.Label != "default" {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "name: x\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	s := sample{Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil || found {
		t.Fatalf("found = %v, err = %v", found, err)
	}

	var empty sample
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &empty); err == nil {
		t.Error("defaults were not validated")
	}
}
