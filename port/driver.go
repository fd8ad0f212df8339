// Package port implements gpio.PortDriver for the STM32 register layouts in
// package stm32. One Driver serves any family; the family is selected when the
// driver is created (see package board for the build time selection).
//
// The driver does no locking. Configuration calls are read-modify-write
// sequences and must come from a single thread of control. WriteData,
// SetPinsState and TogglePinsState issue a single BSRR store and may be called
// from interrupt handlers.
package port

import (
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

type Driver struct {
	Family *stm32.Family

	bus   regs.Bus
	state *State
}

var _ gpio.PortDriver = new(Driver)

// New creates a driver for family on bus. If state is nil, the driver gets its own.
func New(family *stm32.Family, bus regs.Bus, state *State) *Driver {
	if state == nil {
		state = new(State)
	}
	return &Driver{
		Family: family,
		bus:    bus,
		state:  state,
	}
}

func (d *Driver) State() *State {
	return d.state
}

func (d *Driver) Bus() regs.Bus {
	return d.bus
}

func (d *Driver) NumPorts() int {
	return d.Family.NumPorts
}

func (d *Driver) Init() {
	log.Debugf("Initializing %v GPIO driver (%v ports)", d.Family, d.Family.NumPorts)
	d.state.Clear()
}

func (d *Driver) Deinit() {
	log.Debugf("Deinitializing %v GPIO driver", d.Family)
	d.state.Clear()
}

func (d *Driver) checkPort(port gpio.Port) error {
	if int(port) >= d.Family.NumPorts {
		return fmt.Errorf("%w: %v (%v has %v ports)", gpio.ErrInvalidPort, port, d.Family, d.Family.NumPorts)
	}
	return nil
}

func (d *Driver) check(port gpio.Port, pins gpio.PinMask) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if pins == 0 {
		return fmt.Errorf("%w: empty mask for port %v", gpio.ErrInvalidPins, port)
	}
	return nil
}

// checkSession validates an attribute change: the pins must be covered by the
// open configuration session, and debug pins need their protection bypassed.
func (d *Driver) checkSession(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	if !d.state.covers(port, pins) {
		return fmt.Errorf("%w: port %v pins %v", gpio.ErrNoSession, port, pins)
	}
	if debug := d.protectedPins(port) & pins; debug != 0 {
		return fmt.Errorf("%w: debug pins %v of port %v", gpio.ErrPinsProtected, debug, port)
	}
	return nil
}

// checkConfigurable additionally rejects pins frozen by the lock register.
func (d *Driver) checkConfigurable(port gpio.Port, pins gpio.PinMask) error {
	if err := d.checkSession(port, pins); err != nil {
		return err
	}
	if locked := d.lockedPins(port) & pins; locked != 0 {
		return fmt.Errorf("%w: port %v pins %v", gpio.ErrPinsLocked, port, locked)
	}
	return nil
}

func (d *Driver) reg(port gpio.Port, offset uint32) uint32 {
	return d.Family.Reg(uint8(port), offset)
}

func (d *Driver) SetPower(port gpio.Port, on bool) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	bit := uint32(1) << port
	if on {
		regs.SetBits(d.bus, d.Family.PortClock, bit)
	} else {
		regs.ClearBits(d.bus, d.Family.PortClock, bit)
	}
	log.Debugf("GPIO%v clock on: %v", port, on)
	return regs.Err(d.bus)
}

func (d *Driver) BeginConfiguration(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	if d.state.open[port] {
		return fmt.Errorf("%w: port %v pins %v", gpio.ErrSessionActive, port, d.state.session[port])
	}
	if f := d.Family; f.HasRouterClock() {
		// The EXTI line router lives in SYSCFG
		bit := uint32(1) << f.RouterClockBit
		if d.bus.Load32(f.RouterClock)&bit == 0 {
			regs.SetBits(d.bus, f.RouterClock, bit)
		}
	}
	d.state.open[port] = true
	d.state.session[port] = pins
	log.Debugf("GPIO%v pins %v: configuration started", port, pins)
	return regs.Err(d.bus)
}

func (d *Driver) FinishConfiguration(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	if !d.state.open[port] || d.state.session[port] != pins {
		return fmt.Errorf("%w: port %v pins %v", gpio.ErrNoSession, port, pins)
	}
	d.state.open[port] = false
	d.state.session[port] = 0
	log.Debugf("GPIO%v pins %v: configuration finished", port, pins)
	return nil
}

func (d *Driver) SetPinsUsed(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	d.state.used[port] |= pins
	return nil
}

func (d *Driver) SetPinsUnused(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	d.state.used[port] &^= pins
	return nil
}

// IsPinUsed reports whether any of pins is in use.
func (d *Driver) IsPinUsed(port gpio.Port, pins gpio.PinMask) (bool, error) {
	if err := d.check(port, pins); err != nil {
		return false, err
	}
	return d.state.used[port]&pins != 0, nil
}
