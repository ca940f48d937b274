package units

import (
	"github.com/pkg/errors"
)

// ErrSlave is returned when a transaction ends with pslverr_o raised.
var ErrSlave = errors.New("apb: slave error")

// maxReadyWait bounds the pready poll so a broken slave cannot hang the
// caller. The controller is zero-wait-state, so the loop normally never
// runs.
const maxReadyWait = 16

// APBMaster drives whole-cycle APB transactions on the bench pins: a setup
// cycle, an access cycle, a ready poll, then bus release. The owner supplies
// Cycle, which advances the simulation exactly one clock cycle, so the
// master composes with whatever tracing or bookkeeping the owner does per
// cycle.
type APBMaster struct {
	TB    *Testbench
	Cycle func()
}

// Write runs one write transaction.
func (m *APBMaster) Write(addr, data uint32) error {
	tb := m.TB
	tb.PselI = 1
	tb.PenableI = 0
	tb.PwriteI = 1
	tb.PaddrI = addr
	tb.PwdataI = data
	m.Cycle()
	tb.PenableI = 1
	m.Cycle()
	if err := m.awaitReady(addr); err != nil {
		return err
	}
	slverr := tb.PslverrO != 0
	m.release()
	if slverr {
		return errors.Wrapf(ErrSlave, "write %#x", addr)
	}
	return nil
}

// Read runs one read transaction and returns the data the slave presented.
func (m *APBMaster) Read(addr uint32) (uint32, error) {
	tb := m.TB
	tb.PselI = 1
	tb.PenableI = 0
	tb.PwriteI = 0
	tb.PaddrI = addr
	m.Cycle()
	tb.PenableI = 1
	m.Cycle()
	if err := m.awaitReady(addr); err != nil {
		return 0, err
	}
	data := tb.PrdataO
	slverr := tb.PslverrO != 0
	m.release()
	if slverr {
		return 0, errors.Wrapf(ErrSlave, "read %#x", addr)
	}
	return data, nil
}

func (m *APBMaster) awaitReady(addr uint32) error {
	for i := 0; m.TB.PreadyO == 0; i++ {
		if i >= maxReadyWait {
			return errors.Errorf("apb: no pready within %d cycles at %#x", maxReadyWait, addr)
		}
		m.Cycle()
	}
	return nil
}

func (m *APBMaster) release() {
	tb := m.TB
	tb.PselI = 0
	tb.PenableI = 0
	tb.PwriteI = 0
	tb.PaddrI = 0
	tb.PwdataI = 0
	m.Cycle()
}
