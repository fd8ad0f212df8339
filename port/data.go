package port

import (
	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/stm32"
)

// bsrr builds a BSRR value: low half sets, high half resets.
func bsrr(set, reset gpio.PinMask) uint32 {
	return uint32(set) | uint32(reset)<<stm32.BSRR_RESET_SHIFT
}

// WriteData drives the selected pins to the levels in data with one store.
func (d *Driver) WriteData(port gpio.Port, pins gpio.PinMask, data gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	d.bus.Store32(d.reg(port, stm32.BSRR), bsrr(pins&data, pins&^data))
	return regs.Err(d.bus)
}

func (d *Driver) ReadData(port gpio.Port, pins gpio.PinMask) (gpio.PinMask, error) {
	return d.HighStatePins(port, pins)
}

func (d *Driver) HighStatePins(port gpio.Port, pins gpio.PinMask) (gpio.PinMask, error) {
	if err := d.check(port, pins); err != nil {
		return 0, err
	}
	idr := gpio.PinMask(d.bus.Load32(d.reg(port, stm32.IDR)))
	return idr & pins, regs.Err(d.bus)
}

func (d *Driver) LowStatePins(port gpio.Port, pins gpio.PinMask) (gpio.PinMask, error) {
	if err := d.check(port, pins); err != nil {
		return 0, err
	}
	idr := gpio.PinMask(d.bus.Load32(d.reg(port, stm32.IDR)))
	return ^idr & pins, regs.Err(d.bus)
}

func (d *Driver) SetPinsState(port gpio.Port, pins gpio.PinMask, state gpio.State) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	var val uint32
	switch state {
	case gpio.AllHigh:
		val = bsrr(pins, 0)
	case gpio.AllLow:
		val = bsrr(0, pins)
	default:
		return invalidValue("state", state)
	}
	d.bus.Store32(d.reg(port, stm32.BSRR), val)
	return regs.Err(d.bus)
}

// TogglePinsState inverts the output latches of pins. The current state comes
// from ODR, an open-drain pin reading low on IDR may still be latched high.
func (d *Driver) TogglePinsState(port gpio.Port, pins gpio.PinMask) error {
	if err := d.check(port, pins); err != nil {
		return err
	}
	high := gpio.PinMask(d.bus.Load32(d.reg(port, stm32.ODR))) & pins
	d.bus.Store32(d.reg(port, stm32.BSRR), bsrr(pins&^high, high))
	return regs.Err(d.bus)
}
