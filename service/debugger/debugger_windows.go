package debugger

import (
	"syscall"
)

func verifyBinaryFormat(exePath string) error {
	return ErrNotExecutable
}

func signalName(sig syscall.Signal) string {
	return sig.String()
}
