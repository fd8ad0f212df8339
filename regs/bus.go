// Package regs provides 32-bit register access for the port driver: the Bus
// interface, per-pin field packing and the concrete buses (memory mapped
// /dev/mem, tinygo volatile registers, and a sequencer for buses shared by
// several goroutines).
package regs

import (
	log "github.com/sirupsen/logrus"
)

// Bus is a 32-bit register space. Accesses do not fail on real hardware; buses
// that can fail (remote links, mapped files) implement ErrorBus and keep the
// first error.
type Bus interface {
	Load32(addr uint32) uint32
	Store32(addr uint32, value uint32)
}

type ErrorBus interface {
	Bus
	Err() error
}

// Err returns the sticky error of bus, or nil if the bus cannot fail.
func Err(bus Bus) error {
	if e, ok := bus.(ErrorBus); ok {
		return e.Err()
	}
	return nil
}

// Modify clears and sets bits of a register with one read and one write.
// It is not atomic with respect to other users of the register.
func Modify(bus Bus, addr uint32, clear, set uint32) {
	val := bus.Load32(addr)
	bus.Store32(addr, val&^clear|set)
}

func SetBits(bus Bus, addr uint32, bits uint32) {
	Modify(bus, addr, 0, bits)
}

func ClearBits(bus Bus, addr uint32, bits uint32) {
	Modify(bus, addr, bits, 0)
}

// Logged writes every store (and, at trace level, every load) to the log.
type Logged struct {
	Bus
	Name func(addr uint32) string
}

func (l *Logged) name(addr uint32) string {
	if l.Name != nil {
		return l.Name(addr)
	}
	return ""
}

func (l *Logged) Load32(addr uint32) uint32 {
	val := l.Bus.Load32(addr)
	log.Tracef("%08X %-12v -> %08X", addr, l.name(addr), val)
	return val
}

func (l *Logged) Store32(addr uint32, value uint32) {
	log.Debugf("%08X %-12v <- %08X", addr, l.name(addr), value)
	l.Bus.Store32(addr, value)
}

func (l *Logged) Err() error {
	return Err(l.Bus)
}
