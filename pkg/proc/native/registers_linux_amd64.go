//go:build linux && amd64
// +build linux,amd64

package native

import (
	"github.com/pkg/errors"
	sys "golang.org/x/sys/unix"
)

func (dbp *Process) registers() (*sys.PtraceRegs, error) {
	if err := dbp.checkStopped(); err != nil {
		return nil, err
	}
	var (
		regs sys.PtraceRegs
		err  error
	)
	dbp.execPtraceFunc(func() { err = sys.PtraceGetRegs(dbp.pid, &regs) })
	if err != nil {
		return nil, errors.Wrapf(err, "could not read registers of %d", dbp.pid)
	}
	return &regs, nil
}

// PC returns the current value of RIP.
func (dbp *Process) PC() (uint64, error) {
	regs, err := dbp.registers()
	if err != nil {
		return 0, err
	}
	return regs.Rip, nil
}

// BP returns the current value of RBP.
func (dbp *Process) BP() (uint64, error) {
	regs, err := dbp.registers()
	if err != nil {
		return 0, err
	}
	return regs.Rbp, nil
}

// SetPC sets RIP to the value specified by 'pc'.
func (dbp *Process) SetPC(pc uint64) error {
	regs, err := dbp.registers()
	if err != nil {
		return err
	}
	regs.Rip = pc
	dbp.execPtraceFunc(func() { err = sys.PtraceSetRegs(dbp.pid, regs) })
	if err != nil {
		return errors.Wrapf(err, "could not set registers of %d", dbp.pid)
	}
	return nil
}
