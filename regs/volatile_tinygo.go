//go:build tinygo

package regs

import (
	"runtime/volatile"
	"unsafe"
)

// Volatile accesses the registers of the MCU the program runs on.
type Volatile struct{}

func (Volatile) reg(addr uint32) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(addr)))
}

func (v Volatile) Load32(addr uint32) uint32 {
	return v.reg(addr).Get()
}

func (v Volatile) Store32(addr uint32, value uint32) {
	v.reg(addr).Set(value)
}
