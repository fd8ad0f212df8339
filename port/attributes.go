package port

import (
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

// Register encodings, indexed by the gpio attribute value. Index 0 (Default) is unused.
var (
	modeBits    = [...]uint32{gpio.ModeInput: stm32.MODER_INPUT, gpio.ModeOutput: stm32.MODER_OUTPUT, gpio.ModeAlternate: stm32.MODER_AF, gpio.ModeAnalog: stm32.MODER_ANALOG}
	pullBits    = [...]uint32{gpio.PullNone: stm32.PUPDR_NONE, gpio.PullUp: stm32.PUPDR_UP, gpio.PullDown: stm32.PUPDR_DOWN}
	speedBits   = [...]uint32{gpio.SpeedLow: stm32.OSPEEDR_LOW, gpio.SpeedMedium: stm32.OSPEEDR_MEDIUM, gpio.SpeedHigh: stm32.OSPEEDR_HIGH, gpio.SpeedVeryHigh: stm32.OSPEEDR_VERY_HIGH}
	circuitBits = [...]uint32{gpio.PushPull: stm32.OTYPER_PP, gpio.OpenDrain: stm32.OTYPER_OD}
)

// Decodings, indexed by the register field. The reserved PUPDR value 11 reads as PullDefault.
var (
	modeValues    = [...]gpio.Mode{stm32.MODER_INPUT: gpio.ModeInput, stm32.MODER_OUTPUT: gpio.ModeOutput, stm32.MODER_AF: gpio.ModeAlternate, stm32.MODER_ANALOG: gpio.ModeAnalog}
	pullValues    = [...]gpio.Pull{stm32.PUPDR_NONE: gpio.PullNone, stm32.PUPDR_UP: gpio.PullUp, stm32.PUPDR_DOWN: gpio.PullDown, 3: gpio.PullDefault}
	speedValues   = [...]gpio.Speed{stm32.OSPEEDR_LOW: gpio.SpeedLow, stm32.OSPEEDR_MEDIUM: gpio.SpeedMedium, stm32.OSPEEDR_HIGH: gpio.SpeedHigh, stm32.OSPEEDR_VERY_HIGH: gpio.SpeedVeryHigh}
	circuitValues = [...]gpio.OutputCircuit{stm32.OTYPER_PP: gpio.PushPull, stm32.OTYPER_OD: gpio.OpenDrain}
)

// setField packs value into the field of every selected pin with one register write.
func (d *Driver) setField(port gpio.Port, pins gpio.PinMask, offset uint32, width uint32, value uint32) error {
	addr := d.reg(port, offset)
	reg := d.bus.Load32(addr)
	d.bus.Store32(addr, regs.PackField(reg, uint16(pins), width, value))
	return regs.Err(d.bus)
}

// readField reports the field of the lowest selected pin.
func (d *Driver) readField(port gpio.Port, pins gpio.PinMask, offset uint32, width uint32) (uint32, error) {
	if err := d.check(port, pins); err != nil {
		return 0, err
	}
	pin, _ := pins.Lowest()
	val := regs.Field(d.bus.Load32(d.reg(port, offset)), uint8(pin), width)
	return val, regs.Err(d.bus)
}

func invalidValue(what string, value interface{}) error {
	return fmt.Errorf("%w: %v %v", gpio.ErrInvalidValue, what, value)
}

func (d *Driver) SetMode(port gpio.Port, pins gpio.PinMask, mode gpio.Mode) error {
	if err := d.checkConfigurable(port, pins); err != nil {
		return err
	}
	if !mode.Valid() {
		return invalidValue("mode", mode)
	}
	if mode == gpio.ModeDefault {
		return nil
	}
	log.Debugf("GPIO%v pins %v: mode %v", port, pins, mode)
	return d.setField(port, pins, stm32.MODER, stm32.ModeFieldWidth, modeBits[mode])
}

func (d *Driver) ReadMode(port gpio.Port, pins gpio.PinMask) (gpio.Mode, error) {
	val, err := d.readField(port, pins, stm32.MODER, stm32.ModeFieldWidth)
	if err != nil {
		return gpio.ModeDefault, err
	}
	return modeValues[val], nil
}

func (d *Driver) SetPull(port gpio.Port, pins gpio.PinMask, pull gpio.Pull) error {
	if err := d.checkConfigurable(port, pins); err != nil {
		return err
	}
	if !pull.Valid() {
		return invalidValue("pull", pull)
	}
	if pull == gpio.PullDefault {
		return nil
	}
	log.Debugf("GPIO%v pins %v: pull %v", port, pins, pull)
	return d.setField(port, pins, stm32.PUPDR, stm32.PullFieldWidth, pullBits[pull])
}

func (d *Driver) ReadPull(port gpio.Port, pins gpio.PinMask) (gpio.Pull, error) {
	val, err := d.readField(port, pins, stm32.PUPDR, stm32.PullFieldWidth)
	if err != nil {
		return gpio.PullDefault, err
	}
	return pullValues[val], nil
}

func (d *Driver) SetSpeed(port gpio.Port, pins gpio.PinMask, speed gpio.Speed) error {
	if err := d.checkConfigurable(port, pins); err != nil {
		return err
	}
	if !speed.Valid() {
		return invalidValue("speed", speed)
	}
	if speed == gpio.SpeedDefault {
		return nil
	}
	log.Debugf("GPIO%v pins %v: speed %v", port, pins, speed)
	return d.setField(port, pins, stm32.OSPEEDR, stm32.SpeedFieldWidth, speedBits[speed])
}

func (d *Driver) ReadSpeed(port gpio.Port, pins gpio.PinMask) (gpio.Speed, error) {
	val, err := d.readField(port, pins, stm32.OSPEEDR, stm32.SpeedFieldWidth)
	if err != nil {
		return gpio.SpeedDefault, err
	}
	return speedValues[val], nil
}

func (d *Driver) SetOutputCircuit(port gpio.Port, pins gpio.PinMask, oc gpio.OutputCircuit) error {
	if err := d.checkConfigurable(port, pins); err != nil {
		return err
	}
	if !oc.Valid() {
		return invalidValue("output circuit", oc)
	}
	if oc == gpio.OutputCircuitDefault {
		return nil
	}
	log.Debugf("GPIO%v pins %v: output circuit %v", port, pins, oc)
	return d.setField(port, pins, stm32.OTYPER, stm32.CircuitFieldWidth, circuitBits[oc])
}

func (d *Driver) ReadOutputCircuit(port gpio.Port, pins gpio.PinMask) (gpio.OutputCircuit, error) {
	val, err := d.readField(port, pins, stm32.OTYPER, stm32.CircuitFieldWidth)
	if err != nil {
		return gpio.OutputCircuitDefault, err
	}
	return circuitValues[val], nil
}

// SetCurrent succeeds without any register access on families without a drive
// strength register.
func (d *Driver) SetCurrent(port gpio.Port, pins gpio.PinMask, current gpio.Current) error {
	if err := d.checkConfigurable(port, pins); err != nil {
		return err
	}
	if !current.Valid() {
		return invalidValue("current", current)
	}
	if current == gpio.CurrentDefault || !d.Family.HasDriveCurrent() {
		return nil
	}
	log.Debugf("GPIO%v pins %v: current %v", port, pins, current)
	return d.setField(port, pins, d.Family.DriveCurrent, 2, uint32(current-gpio.CurrentMinimum))
}

func (d *Driver) ReadCurrent(port gpio.Port, pins gpio.PinMask) (gpio.Current, error) {
	if err := d.check(port, pins); err != nil {
		return gpio.CurrentDefault, err
	}
	if !d.Family.HasDriveCurrent() {
		return gpio.CurrentDefault, nil
	}
	val, err := d.readField(port, pins, d.Family.DriveCurrent, 2)
	current := gpio.CurrentMinimum + gpio.Current(val)
	if !current.Valid() {
		current = gpio.CurrentDefault
	}
	return current, err
}

func (d *Driver) SetAlternateFunction(port gpio.Port, pins gpio.PinMask, af gpio.AlternateFunction) error {
	if err := d.checkConfigurable(port, pins); err != nil {
		return err
	}
	if !af.Valid() {
		return invalidValue("alternate function", af)
	}
	log.Debugf("GPIO%v pins %v: alternate function AF%v", port, pins, af)
	if low := uint16(pins) & 0xFF; low != 0 {
		if err := d.setField(port, gpio.PinMask(low), stm32.AFRL, stm32.AlternateFieldWidth, uint32(af)); err != nil {
			return err
		}
	}
	if high := uint16(pins) >> 8; high != 0 {
		return d.setField(port, gpio.PinMask(high), stm32.AFRH, stm32.AlternateFieldWidth, uint32(af))
	}
	return nil
}

func (d *Driver) ReadAlternateFunction(port gpio.Port, pins gpio.PinMask) (gpio.AlternateFunction, error) {
	if err := d.check(port, pins); err != nil {
		return 0, err
	}
	pin, _ := pins.Lowest()
	offset, shift := stm32.AFR(uint8(pin))
	val := d.bus.Load32(d.reg(port, offset)) >> shift & (1<<stm32.AlternateFieldWidth - 1)
	return gpio.AlternateFunction(val), regs.Err(d.bus)
}
