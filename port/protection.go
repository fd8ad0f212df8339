package port

import (
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

// lockSequence runs the LCKR key sequence for pins: LCKK|pins, pins, LCKK|pins,
// then a read that completes the sequence and a read that confirms it. The lock
// holds until the next reset.
func lockSequence(bus regs.Bus, addr uint32, pins gpio.PinMask) error {
	key := stm32.LCKR_LCKK | uint32(pins)
	bus.Store32(addr, key)
	bus.Store32(addr, uint32(pins))
	bus.Store32(addr, key)
	bus.Load32(addr)
	confirm := bus.Load32(addr)
	if err := regs.Err(bus); err != nil {
		return err
	}
	if confirm&stm32.LCKR_LCKK == 0 || confirm&uint32(pins) != uint32(pins) {
		return fmt.Errorf("%w: LCKR reads %08X after locking %v", gpio.ErrLockFailed, confirm, pins)
	}
	return nil
}

// lockedPins returns the pins frozen by a completed lock sequence.
func (d *Driver) lockedPins(port gpio.Port) gpio.PinMask {
	lckr := d.bus.Load32(d.reg(port, stm32.LCKR))
	if lckr&stm32.LCKR_LCKK == 0 {
		return 0
	}
	return gpio.PinMask(lckr)
}

// protectedPins returns the debug pins of port that have not been unlocked.
func (d *Driver) protectedPins(port gpio.Port) gpio.PinMask {
	return gpio.PinMask(d.Family.DebugPinMask(uint8(port))) &^ d.state.unlocked[port]
}

// LockProtection freezes the configuration of pins until the next reset.
func (d *Driver) LockProtection(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	if err := lockSequence(d.bus, d.reg(port, stm32.LCKR), pins); err != nil {
		return fmt.Errorf("GPIO%v: %w", port, err)
	}
	log.Debugf("GPIO%v pins %v: locked until reset", port, pins)
	return nil
}

// UnlockProtection sets the policy for the debug pins among pins. It is a
// software bypass and cannot undo a hardware lock: pins locked through
// LockProtection stay locked until reset and fail with ErrPinsLocked.
func (d *Driver) UnlockProtection(port gpio.Port, pins gpio.PinMask, protection gpio.Protection) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	switch protection {
	case gpio.UnlockProtected:
		if locked := d.lockedPins(port) & pins; locked != 0 {
			return fmt.Errorf("%w: port %v pins %v cannot be unlocked", gpio.ErrPinsLocked, port, locked)
		}
		if debug := gpio.PinMask(d.Family.DebugPinMask(uint8(port))) & pins; debug != 0 {
			log.Warnf("GPIO%v: releasing debug pins %v, the debug connection will be lost once they are reconfigured", port, debug)
		}
		d.state.unlocked[port] |= pins
	case gpio.DontUnlockProtected:
		d.state.unlocked[port] &^= pins
	default:
		return invalidValue("protection", protection)
	}
	return regs.Err(d.bus)
}

// ArePinsProtected reports whether the lock is applied and covers any of pins.
func (d *Driver) ArePinsProtected(port gpio.Port, pins gpio.PinMask) (bool, error) {
	if err := d.check(port, pins); err != nil {
		return false, err
	}
	return d.lockedPins(port)&pins != 0, regs.Err(d.bus)
}
