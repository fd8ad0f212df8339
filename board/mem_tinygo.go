//go:build tinygo

package board

import (
	"io"

	"github.com/antongulenko/gpioport/regs"
)

// On the target the registers are accessed directly, the path is ignored.
const DefaultMemDevice = ""

func openMemBus(string) (regs.Bus, io.Closer, error) {
	return regs.Volatile{}, nil, nil
}
