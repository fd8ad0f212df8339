// Package stm32 describes the memory-mapped GPIO, EXTI, RCC and NVIC registers of
// the supported STM32 families. It contains layouts and address arithmetic only:
// nothing here validates a port or pin, the port driver does that before
// computing an address.
package stm32

import (
	"fmt"
	"strings"
)

// Family is the register layout of one MCU family.
type Family struct {
	Name     string
	NumPorts int

	GPIOBase   uint32
	GPIOStride uint32

	// One clock enable bit per port, bit N = port N.
	PortClock uint32

	// Clock of the block holding the EXTI line router, if it is gated (SYSCFG on F4/F7).
	RouterClock    uint32
	RouterClockBit uint32

	EXTI EXTI
	NVIC NVIC

	// Pins reserved for the debug interface, indexed by port.
	DebugPins []uint16

	// Offset of a 2-bit-per-pin drive strength register in the port block,
	// 0 if the family controls drive strength only through OSPEEDR.
	DriveCurrent uint32
}

// GPIO returns the base address of a port's register block.
func (f *Family) GPIO(port uint8) uint32 {
	return f.GPIOBase + uint32(port)*f.GPIOStride
}

// Reg returns the address of a register inside a port's block.
func (f *Family) Reg(port uint8, offset uint32) uint32 {
	return f.GPIO(port) + offset
}

// HasRouterClock reports whether the EXTI router must be clocked before use.
func (f *Family) HasRouterClock() bool {
	return f.RouterClock != 0
}

func (f *Family) HasDriveCurrent() bool {
	return f.DriveCurrent != 0
}

// DebugPinMask returns the debug pins of a port, 0 if it has none.
func (f *Family) DebugPinMask(port uint8) uint16 {
	if int(port) < len(f.DebugPins) {
		return f.DebugPins[port]
	}
	return 0
}

// PortOf maps an address inside the GPIO range back to a port and register offset.
func (f *Family) PortOf(addr uint32) (port uint8, offset uint32, ok bool) {
	if addr < f.GPIOBase {
		return 0, 0, false
	}
	rel := addr - f.GPIOBase
	p := rel / f.GPIOStride
	if p >= uint32(f.NumPorts) {
		return 0, 0, false
	}
	return uint8(p), rel % f.GPIOStride, true
}

func (f *Family) String() string {
	return f.Name
}

const (
	f4f7RCC      = uint32(0x40023800)
	f4f7AHB1ENR  = f4f7RCC + 0x30
	f4f7APB2ENR  = f4f7RCC + 0x44
	f4f7SYSCFGEN = 14
	f4f7SYSCFG   = uint32(0x40013800)

	g0RCC    = uint32(0x40021000)
	g0IOPENR = g0RCC + 0x34
)

// SWDIO=PA13, SWCLK=PA14, JTDI=PA15, JTDO/SWO=PB3, NJTRST=PB4
var jtagPins = []uint16{1<<13 | 1<<14 | 1<<15, 1<<3 | 1<<4}

// SWD only
var swdPins = []uint16{1<<13 | 1<<14}

var F4 = &Family{
	Name:           "stm32f4",
	NumPorts:       9, // A..I
	GPIOBase:       0x40020000,
	GPIOStride:     0x400,
	PortClock:      f4f7AHB1ENR,
	RouterClock:    f4f7APB2ENR,
	RouterClockBit: f4f7SYSCFGEN,
	EXTI:           f4f7EXTI,
	NVIC:           f4f7NVIC,
	DebugPins:      jtagPins,
}

var F7 = &Family{
	Name:           "stm32f7",
	NumPorts:       11, // A..K
	GPIOBase:       0x40020000,
	GPIOStride:     0x400,
	PortClock:      f4f7AHB1ENR,
	RouterClock:    f4f7APB2ENR,
	RouterClockBit: f4f7SYSCFGEN,
	EXTI:           f4f7EXTI,
	NVIC:           f4f7NVIC,
	DebugPins:      jtagPins,
}

var G0 = &Family{
	Name:       "stm32g0",
	NumPorts:   6, // A..F
	GPIOBase:   0x50000000,
	GPIOStride: 0x400,
	PortClock:  g0IOPENR,
	EXTI:       g0EXTI,
	NVIC:       g0NVIC,
	DebugPins:  swdPins,
}

var Families = []*Family{F4, F7, G0}

func ByName(name string) (*Family, error) {
	for _, f := range Families {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("Unknown STM32 family %q", name)
}
