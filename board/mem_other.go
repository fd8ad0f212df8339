//go:build !linux && !tinygo

package board

import (
	"errors"
	"io"

	"github.com/antongulenko/gpioport/regs"
)

const DefaultMemDevice = ""

func openMemBus(string) (regs.Bus, io.Closer, error) {
	return nil, nil, errors.New("Memory mapped register access is only supported on linux, use -dummy or -serial")
}
