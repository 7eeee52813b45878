package test

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// Fixture is a test binary.
type Fixture struct {
	// Name is the short name of the fixture.
	Name string
	// Path is the absolute path to the test binary.
	Path string
	// Source is the absolute path of the test binary source.
	Source string
}

// Fixtures is a map of Fixture.Name to Fixture.
var Fixtures = make(map[string]Fixture)

var fixturesMu sync.Mutex

// CFlags are the compiler flags fixtures are built with: full debug
// information, no optimizations, frame pointers and a fixed load address.
var CFlags = []string{"-g", "-O0", "-fno-omit-frame-pointer", "-no-pie"}

// FindFixturesDir returns the path of the _fixtures directory, searching
// upwards from the current directory.
func FindFixturesDir() string {
	parent := ".."
	fixturesDir := "_fixtures"
	for depth := 0; depth < 10; depth++ {
		if _, err := os.Stat(fixturesDir); err == nil {
			break
		}
		fixturesDir = filepath.Join(parent, fixturesDir)
	}
	return fixturesDir
}

// MustSupportNative skips the test unless it runs on the platform the
// native backend is implemented for.
func MustSupportNative(t testing.TB) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skipf("native backend not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
	}
}

// BuildFixture compiles _fixtures/<name>.c, skipping the test if no C
// compiler is available. Fixtures are only built once per test binary.
func BuildFixture(t testing.TB, name string) Fixture {
	t.Helper()
	MustSupportNative(t)

	fixturesMu.Lock()
	defer fixturesMu.Unlock()
	if f, ok := Fixtures[name]; ok {
		return f
	}

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		t.Skipf("C compiler %q not found", cc)
	}

	source, err := filepath.Abs(filepath.Join(FindFixturesDir(), name+".c"))
	if err != nil {
		t.Fatal(err)
	}

	// Make a (good enough) random temporary file name
	r := make([]byte, 4)
	rand.Read(r)
	tmpfile := filepath.Join(os.TempDir(), fmt.Sprintf("%s.%s", name, hex.EncodeToString(r)))

	args := append(append([]string{}, CFlags...), "-o", tmpfile, source)
	cmd := exec.Command(cc, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Error compiling %s: %s\n%s", source, err, out)
	}

	Fixtures[name] = Fixture{Name: name, Path: tmpfile, Source: source}
	return Fixtures[name]
}

// FindLine returns the number of the first line of the fixture source that
// contains marker. Fixtures tag interesting lines with comments so that
// tests do not depend on line numbers.
func FindLine(t testing.TB, fixture Fixture, marker string) int {
	t.Helper()
	fh, err := os.Open(fixture.Source)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	s := bufio.NewScanner(fh)
	for lineno := 1; s.Scan(); lineno++ {
		if strings.Contains(s.Text(), marker) {
			return lineno
		}
	}
	t.Fatalf("marker %q not found in %s", marker, fixture.Source)
	return 0
}

// RunTestsWithFixtures will pre-compile test fixtures before running test
// methods. Test binaries are deleted before exiting.
func RunTestsWithFixtures(m *testing.M) int {
	status := m.Run()

	// Remove the fixtures.
	for _, f := range Fixtures {
		os.Remove(f.Path)
	}
	return status
}
