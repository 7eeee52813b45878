//go:build !linux || !amd64
// +build !linux !amd64

package native

import (
	"errors"

	"github.com/go-delve/tdb/pkg/proc"
)

// ErrNativeBackendDisabled is returned on platforms without a ptrace
// backend.
var ErrNativeBackendDisabled = errors.New("native backend disabled during compilation")

// Process is a placeholder on unsupported platforms.
type Process struct{}

var _ proc.Process = (*Process)(nil)

// Launch returns ErrNativeBackendDisabled.
func Launch(_ []string, _ string, _ *proc.BreakpointMap) (*Process, error) {
	return nil, ErrNativeBackendDisabled
}

func (*Process) Pid() int { return 0 }
func (*Process) Arch() *proc.Arch { return proc.AMD64Arch() }
func (*Process) PC() (uint64, error) { return 0, ErrNativeBackendDisabled }
func (*Process) BP() (uint64, error) { return 0, ErrNativeBackendDisabled }
func (*Process) SetPC(uint64) error { return ErrNativeBackendDisabled }
func (*Process) Resume(bool) error { return ErrNativeBackendDisabled }
func (*Process) Wait() (proc.State, error) { return nil, ErrNativeBackendDisabled }
func (*Process) Kill() error { return nil }
func (*Process) Exited() bool { return true }
func (*Process) ReadWord(uint64) (uint64, error) { return 0, ErrNativeBackendDisabled }
func (*Process) WriteWord(uint64, uint64) error { return ErrNativeBackendDisabled }
