//go:build !windows
// +build !windows

package debugger

import (
	"debug/elf"
	"os"
	"syscall"

	sys "golang.org/x/sys/unix"
)

func verifyBinaryFormat(exePath string) error {
	f, err := os.Open(exePath)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if (fi.Mode() & 0111) == 0 {
		return ErrNotExecutable
	}

	exe, err := elf.NewFile(f)
	if err != nil {
		return ErrNotExecutable
	}
	if exe.Machine != elf.EM_X86_64 {
		return ErrNotExecutable
	}
	return nil
}

// signalName returns the name of sig, as in SIGTRAP.
func signalName(sig syscall.Signal) string {
	if name := sys.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
