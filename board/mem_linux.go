//go:build linux && !tinygo

package board

import (
	"io"

	"github.com/antongulenko/gpioport/regs"
)

const DefaultMemDevice = regs.DefaultMemDevice

func openMemBus(path string) (regs.Bus, io.Closer, error) {
	mem, err := regs.OpenDevMem(path)
	if err != nil {
		return nil, nil, err
	}
	return mem, mem, nil
}
