// Package sim simulates the GPIO related peripherals of an STM32 family on top
// of a plain register map. It implements regs.Bus and behaves like the hardware
// where the port driver depends on it: clock gating, the BSRR set/reset
// register, the LCKR lock sequence, EXTI edge detection with write-1-to-clear
// pending bits and the NVIC enable registers.
//
// All stores are recorded so tests can check the order and number of register
// writes.
package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

// Write is one recorded register store.
type Write struct {
	Addr  uint32
	Value uint32
}

type simPort struct {
	driven uint16 // pins with an external driver
	level  uint16 // levels of the external drivers
	locked uint16
	idr    uint16 // last computed input levels, for edge detection

	lockPhase int
	lockPins  uint16
}

type MCU struct {
	Family *stm32.Family

	// OnInterrupt is called with the EXTI lines that became pending while their
	// IRQ is enabled in the NVIC. It is called without holding the MCU lock, like
	// an interrupt preempting the code that caused the edge.
	OnInterrupt func(lines uint16)

	// BrokenLock makes the lock sequence fail silently, like a sequence that was
	// interrupted by another write.
	BrokenLock bool

	lock   sync.Mutex
	mem    map[uint32]uint32
	ports  []simPort
	nvic   [8]uint32
	writes []Write
}

var _ regs.Bus = new(MCU)

func New(family *stm32.Family) *MCU {
	m := &MCU{Family: family}
	m.Reset()
	return m
}

// Reset clears all registers, locks and external drivers. The recorded writes
// and the interrupt callback are kept.
func (m *MCU) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.mem = make(map[uint32]uint32)
	m.ports = make([]simPort, m.Family.NumPorts)
	m.nvic = [8]uint32{}
	for i := range m.ports {
		m.resetPort(uint8(i))
	}
}

// Debug pins come out of reset in alternate function mode
func (m *MCU) resetPort(port uint8) {
	debug := m.Family.DebugPinMask(port)
	m.mem[m.Family.Reg(port, stm32.MODER)] = regs.FieldValue(debug, 2, stm32.MODER_AF)
	m.ports[port].idr = m.inputLevels(port)
}

func (m *MCU) Load32(addr uint32) uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.load(addr)
}

func (m *MCU) Store32(addr uint32, value uint32) {
	m.lock.Lock()
	m.writes = append(m.writes, Write{Addr: addr, Value: value})
	lines := m.store(addr, value)
	m.lock.Unlock()
	m.raise(lines)
}

func (m *MCU) load(addr uint32) uint32 {
	f := m.Family
	if port, offset, ok := f.PortOf(addr); ok {
		if !m.clocked(port) {
			return 0
		}
		switch offset {
		case stm32.IDR:
			return uint32(m.inputLevels(port))
		case stm32.BSRR:
			return 0
		}
		return m.mem[addr]
	}
	if m.isRouter(addr) && !m.routerClocked() {
		return 0
	}
	if irqReg, ok := m.nvicReg(addr); ok {
		return m.nvic[irqReg]
	}
	return m.mem[addr]
}

func (m *MCU) store(addr uint32, value uint32) (lines uint16) {
	f := m.Family
	if port, offset, ok := f.PortOf(addr); ok {
		if !m.clocked(port) {
			log.Debugf("sim: ignoring write to unclocked %v", f.RegName(addr))
			return 0
		}
		return m.storeGPIO(port, offset, addr, value)
	}
	if m.isRouter(addr) {
		if !m.routerClocked() {
			log.Debugf("sim: ignoring write to unclocked %v", f.RegName(addr))
			return 0
		}
		m.mem[addr] = value
		return 0
	}
	if irqReg, ok := m.nvicReg(addr); ok {
		if addr >= stm32.NVIC_ICER {
			m.nvic[irqReg] &^= value
		} else {
			m.nvic[irqReg] |= value
			// Lines that were pending while the IRQ was disabled fire now
			return m.pendingLines()
		}
		return 0
	}
	e := &f.EXTI
	for _, pr := range e.PendingRegs() {
		if addr == pr {
			m.mem[addr] &^= value
			return 0
		}
	}
	if addr == e.Reg(e.SWIER) {
		lines := uint16(value & m.mem[e.Reg(e.IMR)])
		m.setPending(lines, true)
		return m.pendingLines() & lines
	}
	m.mem[addr] = value
	return 0
}

func (m *MCU) storeGPIO(port uint8, offset uint32, addr uint32, value uint32) uint16 {
	p := &m.ports[port]
	switch offset {
	case stm32.IDR:
		return 0
	case stm32.BSRR:
		odr := m.mem[m.Family.Reg(port, stm32.ODR)]
		odr &^= value >> stm32.BSRR_RESET_SHIFT
		odr |= value & 0xFFFF
		m.mem[m.Family.Reg(port, stm32.ODR)] = odr
	case stm32.LCKR:
		m.storeLock(port, value)
		return 0
	case stm32.MODER, stm32.OSPEEDR, stm32.PUPDR:
		value = keepLocked(m.mem[addr], value, regs.FieldMask(p.locked, 2))
		m.mem[addr] = value
	case stm32.OTYPER:
		value = keepLocked(m.mem[addr], value, regs.FieldMask(p.locked, 1))
		m.mem[addr] = value
	case stm32.AFRL:
		value = keepLocked(m.mem[addr], value, regs.FieldMask(p.locked&0xFF, 4))
		m.mem[addr] = value
	case stm32.AFRH:
		value = keepLocked(m.mem[addr], value, regs.FieldMask(p.locked>>8, 4))
		m.mem[addr] = value
	default:
		m.mem[addr] = value
	}
	return m.detectEdges(port)
}

func keepLocked(old, value, lockedBits uint32) uint32 {
	return value&^lockedBits | old&lockedBits
}

// Lock key sequence: LCKK=1, LCKK=0, LCKK=1, each time with the same pin bits.
// Any other write restarts the sequence. Once LCKK is set, LCKR is frozen.
func (m *MCU) storeLock(port uint8, value uint32) {
	addr := m.Family.Reg(port, stm32.LCKR)
	p := &m.ports[port]
	if m.mem[addr]&stm32.LCKR_LCKK != 0 {
		return
	}
	pins := uint16(value)
	key := value&stm32.LCKR_LCKK != 0
	switch {
	case p.lockPhase == 1 && !key && pins == p.lockPins:
		p.lockPhase = 2
	case p.lockPhase == 2 && key && pins == p.lockPins:
		p.lockPhase = 0
		if m.BrokenLock {
			m.mem[addr] = uint32(pins)
			return
		}
		p.locked = pins
		m.mem[addr] = stm32.LCKR_LCKK | uint32(pins)
		return
	case key:
		p.lockPhase = 1
		p.lockPins = pins
	default:
		p.lockPhase = 0
	}
	m.mem[addr] = uint32(pins)
}

func (m *MCU) clocked(port uint8) bool {
	return m.mem[m.Family.PortClock]&(1<<port) != 0
}

func (m *MCU) routerClocked() bool {
	f := m.Family
	return !f.HasRouterClock() || m.mem[f.RouterClock]&(1<<f.RouterClockBit) != 0
}

func (m *MCU) isRouter(addr uint32) bool {
	for _, reg := range m.Family.EXTI.Router.Registers() {
		if addr == reg {
			return true
		}
	}
	return false
}

func (m *MCU) nvicReg(addr uint32) (int, bool) {
	switch {
	case addr >= stm32.NVIC_ISER && addr < stm32.NVIC_ISER+0x20:
		return int(addr-stm32.NVIC_ISER) / 4, true
	case addr >= stm32.NVIC_ICER && addr < stm32.NVIC_ICER+0x20:
		return int(addr-stm32.NVIC_ICER) / 4, true
	}
	return 0, false
}

// inputLevels computes IDR from the pin configuration, the output latches and
// the external drivers.
func (m *MCU) inputLevels(port uint8) (idr uint16) {
	f := m.Family
	p := &m.ports[port]
	moder := m.mem[f.Reg(port, stm32.MODER)]
	otyper := m.mem[f.Reg(port, stm32.OTYPER)]
	pupdr := m.mem[f.Reg(port, stm32.PUPDR)]
	odr := m.mem[f.Reg(port, stm32.ODR)]
	for pin := uint8(0); pin < gpio.PinsPerPort; pin++ {
		bit := uint16(1) << pin
		external := p.level&bit != 0
		if p.driven&bit == 0 {
			external = regs.Field(pupdr, pin, 2) == stm32.PUPDR_UP
		}
		high := external
		switch regs.Field(moder, pin, 2) {
		case stm32.MODER_OUTPUT:
			latch := odr&uint32(bit) != 0
			if regs.Field(otyper, pin, 1) == stm32.OTYPER_OD {
				high = latch && external
			} else {
				high = latch
			}
		case stm32.MODER_ANALOG:
			high = false
		}
		if high {
			idr |= bit
		}
	}
	return
}

// detectEdges compares the input levels with the last known levels and sets the
// pending bits of lines routed to this port.
func (m *MCU) detectEdges(port uint8) (fire uint16) {
	p := &m.ports[port]
	idr := m.inputLevels(port)
	changed := idr ^ p.idr
	p.idr = idr
	if changed == 0 || !m.clocked(port) {
		return 0
	}
	e := &m.Family.EXTI
	imr := m.mem[e.Reg(e.IMR)]
	rtsr := m.mem[e.Reg(e.RTSR)]
	ftsr := m.mem[e.Reg(e.FTSR)]
	for line := uint8(0); line < gpio.PinsPerPort; line++ {
		bit := uint16(1) << line
		if changed&bit == 0 || imr&uint32(bit) == 0 || m.routedPort(line) != port {
			continue
		}
		rising := idr&bit != 0
		if rising && rtsr&uint32(bit) != 0 || !rising && ftsr&uint32(bit) != 0 {
			m.setPending(bit, rising)
			if m.irqEnabled(line) {
				fire |= bit
			}
		}
	}
	return
}

func (m *MCU) setPending(lines uint16, rising bool) {
	e := &m.Family.EXTI
	addr := e.Reg(e.PR)
	if e.SplitPending {
		addr = e.Reg(e.FPR)
		if rising {
			addr = e.Reg(e.RPR)
		}
	}
	m.mem[addr] |= uint32(lines)
}

func (m *MCU) pendingLines() (lines uint16) {
	for _, reg := range m.Family.EXTI.PendingRegs() {
		lines |= uint16(m.mem[reg])
	}
	var fire uint16
	for line := uint8(0); line < gpio.PinsPerPort; line++ {
		if lines&(1<<line) != 0 && m.irqEnabled(line) {
			fire |= 1 << line
		}
	}
	return fire
}

func (m *MCU) routedPort(line uint8) uint8 {
	addr, shift, mask := m.Family.EXTI.Router.Locate(line)
	return uint8((m.mem[addr] & mask) >> shift)
}

func (m *MCU) irqEnabled(line uint8) bool {
	irq := m.Family.NVIC.LineIRQ[line]
	return m.nvic[irq/32]&(1<<(irq%32)) != 0
}

func (m *MCU) raise(lines uint16) {
	if lines != 0 && m.OnInterrupt != nil {
		m.OnInterrupt(lines)
	}
}

// Drive connects an external driver to pins, forcing their input level.
func (m *MCU) Drive(port gpio.Port, pins gpio.PinMask, high bool) {
	m.lock.Lock()
	p := &m.ports[port]
	p.driven |= uint16(pins)
	if high {
		p.level |= uint16(pins)
	} else {
		p.level &^= uint16(pins)
	}
	lines := m.detectEdges(uint8(port))
	m.lock.Unlock()
	m.raise(lines)
}

// Release disconnects the external drivers of pins.
func (m *MCU) Release(port gpio.Port, pins gpio.PinMask) {
	m.lock.Lock()
	m.ports[port].driven &^= uint16(pins)
	lines := m.detectEdges(uint8(port))
	m.lock.Unlock()
	m.raise(lines)
}

// Peek reads a register without side effects and without clock gating.
func (m *MCU) Peek(addr uint32) uint32 {
	m.lock.Lock()
	defer m.lock.Unlock()
	if port, offset, ok := m.Family.PortOf(addr); ok && offset == stm32.IDR {
		return uint32(m.inputLevels(port))
	}
	if irqReg, ok := m.nvicReg(addr); ok {
		return m.nvic[irqReg]
	}
	return m.mem[addr]
}

// Locked returns the pins of a port frozen by a completed lock sequence.
func (m *MCU) Locked(port gpio.Port) gpio.PinMask {
	m.lock.Lock()
	defer m.lock.Unlock()
	return gpio.PinMask(m.ports[port].locked)
}

// Writes returns the recorded stores, oldest first.
func (m *MCU) Writes() []Write {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]Write(nil), m.writes...)
}

// WritesTo returns the values stored to addr, oldest first.
func (m *MCU) WritesTo(addr uint32) (values []uint32) {
	for _, w := range m.Writes() {
		if w.Addr == addr {
			values = append(values, w.Value)
		}
	}
	return
}

func (m *MCU) ClearWrites() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.writes = nil
}

func (m *MCU) FormatWrites() string {
	var b strings.Builder
	for _, w := range m.Writes() {
		fmt.Fprintf(&b, "%-12v <- %08X\n", m.Family.RegName(w.Addr), w.Value)
	}
	return b.String()
}
