package cmds

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mitchellh/go-homedir"

	"github.com/go-delve/tdb/cmd/tdb/cmds/helphelpers"
	"github.com/go-delve/tdb/pkg/config"
)

func withHome(t *testing.T) {
	dir := t.TempDir()
	old := os.Getenv("HOME")
	os.Setenv("HOME", dir)
	homedir.DisableCache = true
	t.Cleanup(func() {
		os.Setenv("HOME", old)
		homedir.DisableCache = false
		homedir.Reset()
	})
}

func TestVersionCommand(t *testing.T) {
	withHome(t)
	root := New()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "tdb Debugger\nVersion: ") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRootRequiresExecutable(t *testing.T) {
	withHome(t)
	for _, args := range [][]string{{}, {"a.out", "b.out"}} {
		root := New()
		buf := new(bytes.Buffer)
		root.SetOut(buf)
		root.SetErr(buf)
		root.SetArgs(args)
		if err := root.Execute(); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestPrepareHidesDebuggingFlags(t *testing.T) {
	withHome(t)
	root := New()
	version, _, err := root.Find([]string{"version"})
	if err != nil {
		t.Fatal(err)
	}
	helphelpers.Prepare(version)
	for _, name := range []string{"log", "log-output", "log-dest", "init", "wd"} {
		if f := root.PersistentFlags().Lookup(name); f == nil || !f.Hidden {
			t.Errorf("flag %s not hidden", name)
		}
	}
	if f := version.Flags().Lookup("verbose"); f == nil || f.Hidden {
		t.Error("verbose flag should be visible")
	}
}

func TestExecuteOpenErrors(t *testing.T) {
	dir := t.TempDir()
	if status := execute(filepath.Join(dir, "nonesuch"), &config.Config{}); status != 1 {
		t.Errorf("missing file: status %d", status)
	}

	notELF := filepath.Join(dir, "script")
	if err := ioutil.WriteFile(notELF, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}
	if status := execute(notELF, &config.Config{}); status != 1 {
		t.Errorf("not an ELF file: status %d", status)
	}
}
