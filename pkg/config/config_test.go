package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

// withHome points the home directory at a temporary directory for the
// duration of the test.
func withHome(t *testing.T) string {
	dir := t.TempDir()
	old, hadOld := os.LookupEnv("HOME")
	os.Setenv("HOME", dir)
	homedir.DisableCache = true
	t.Cleanup(func() {
		if hadOld {
			os.Setenv("HOME", old)
		} else {
			os.Unsetenv("HOME")
		}
		homedir.DisableCache = false
		homedir.Reset()
	})
	return dir
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	home := withHome(t)

	c := LoadConfig()
	if len(c.Aliases) != 0 || c.EntryFunction != "" || c.MaxStackDepth != 0 {
		t.Fatalf("default configuration is not empty: %#v", c)
	}
	if _, err := os.Stat(filepath.Join(home, ".tdb", "config.yml")); err != nil {
		t.Fatalf("default configuration not written: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, ".tdb")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	data := `
aliases:
  backtrace: ["where"]
entry-function: start
max-stack-depth: 16
source-list-line-color: 32
symbol-cache-size: 8
`
	if err := ioutil.WriteFile(filepath.Join(dir, "config.yml"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	c := LoadConfig()
	if len(c.Aliases["backtrace"]) != 1 || c.Aliases["backtrace"][0] != "where" {
		t.Errorf("unexpected aliases %v", c.Aliases)
	}
	if c.EntryFunction != "start" || c.MaxStackDepth != 16 || c.SourceListLineColor != 32 || c.SymbolCacheSize != 8 {
		t.Errorf("unexpected configuration %#v", c)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	home := withHome(t)
	dir := filepath.Join(home, ".tdb")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "config.yml"), []byte("aliases: [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	c := LoadConfig()
	if c == nil || len(c.Aliases) != 0 {
		t.Fatalf("expected empty configuration, got %#v", c)
	}
}

func TestGetConfigFilePath(t *testing.T) {
	home := withHome(t)
	path, err := GetConfigFilePath(HistoryFile)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(home, ".tdb", ".tdb_history") {
		t.Fatalf("unexpected path %s", path)
	}
}
