package device

import (
	"errors"
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/irq"
	log "github.com/sirupsen/logrus"
)

var ErrUnknownCommand = errors.New("device: unknown command")

// Command selects an Ioctl operation.
type Command uint8

const (
	CmdToggle Command = iota
	CmdSetState
	CmdGetHigh
	CmdGetLow
	CmdAddInterruptHandler
)

var commandNames = []string{"toggle", "set_state", "get_high", "get_low", "add_handler"}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("Command(%d)", uint8(c))
}

func ParseCommand(s string) (Command, error) {
	for i, name := range commandNames {
		if name == s {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Device owns a group of pins of one port from creation until Halt.
type Device struct {
	manager *Manager
	owner   irq.Owner
	cfg     Config
	halted  bool
}

func (d *Device) Config() Config {
	return d.cfg
}

func (d *Device) String() string {
	return d.cfg.Name()
}

func (d *Device) driver() gpio.PortDriver {
	return d.manager.driver
}

func (d *Device) check() error {
	if d.halted {
		return fmt.Errorf("%w: %v", ErrClosed, d.cfg.Name())
	}
	return nil
}

// configure powers the port and applies every attribute of the configuration in
// one session. The session is closed even if a setter fails.
func (d *Device) configure() (err error) {
	drv := d.driver()
	c := &d.cfg
	if err = drv.SetPower(c.Port, true); err != nil {
		return err
	}
	if err = drv.UnlockProtection(c.Port, c.Pins, c.Protection); err != nil {
		return err
	}
	if err = drv.BeginConfiguration(c.Port, c.Pins); err != nil {
		return err
	}
	defer func() {
		if finishErr := drv.FinishConfiguration(c.Port, c.Pins); err == nil {
			err = finishErr
		}
	}()

	steps := []func() error{
		func() error { return drv.SetMode(c.Port, c.Pins, c.Mode) },
		func() error { return drv.SetPull(c.Port, c.Pins, c.Pull) },
		func() error { return drv.SetSpeed(c.Port, c.Pins, c.Speed) },
		func() error { return drv.SetOutputCircuit(c.Port, c.Pins, c.OutputCircuit) },
		func() error { return drv.SetCurrent(c.Port, c.Pins, c.Current) },
	}
	if c.Mode == gpio.ModeAlternate {
		steps = append(steps, func() error { return drv.SetAlternateFunction(c.Port, c.Pins, c.Alternate) })
	}
	if c.Trigger != gpio.TriggerOff {
		steps = append(steps, func() error { return drv.SetInterruptTrigger(c.Port, c.Pins, c.Trigger) })
	}
	for _, step := range steps {
		if err = step(); err != nil {
			return err
		}
	}
	if err = drv.SetPinsUsed(c.Port, c.Pins); err != nil {
		return err
	}
	if c.Trigger != gpio.TriggerOff {
		if err = d.manager.irq.Register(c.Port, d.owner, c.Pins); err != nil {
			return err
		}
		if c.Handler != nil {
			err = d.manager.irq.AddHandler(c.Port, d.owner, c.Handler)
		}
	}
	return err
}

// release undoes configure as far as it got: it disables the interrupt trigger,
// drops the interrupt owner and frees the pins. Pin attributes are left as they are.
func (d *Device) release() error {
	drv := d.driver()
	c := &d.cfg
	var errs []error
	if c.Trigger != gpio.TriggerOff {
		if err := drv.BeginConfiguration(c.Port, c.Pins); err == nil {
			errs = append(errs, drv.SetInterruptTrigger(c.Port, c.Pins, gpio.TriggerOff))
			errs = append(errs, drv.FinishConfiguration(c.Port, c.Pins))
		} else {
			errs = append(errs, err)
		}
		if err := d.manager.irq.Release(c.Port, d.owner); err != nil && !errors.Is(err, irq.ErrUnknownOwner) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, drv.SetPinsUnused(c.Port, c.Pins))
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Reconfigure releases the current configuration and applies cfg. The new pins
// may overlap the device's current pins but no pins of other devices.
// If applying cfg fails, the device is left without pins and should be halted.
func (d *Device) Reconfigure(cfg Config) error {
	if err := d.check(); err != nil {
		return err
	}
	m := d.manager
	if err := m.validate(&cfg); err != nil {
		return err
	}
	own := gpio.PinMask(0)
	if cfg.Port == d.cfg.Port {
		own = d.cfg.Pins
	}
	if err := m.checkFree(&cfg, own); err != nil {
		return err
	}
	if err := d.release(); err != nil {
		return fmt.Errorf("Failed to release %v: %w", d.cfg.Name(), err)
	}
	d.cfg = cfg
	if err := d.configure(); err != nil {
		d.release()
		return fmt.Errorf("Failed to reconfigure %v: %w", cfg.Name(), err)
	}
	log.Infof("GPIO device reconfigured: %v", &d.cfg)
	return nil
}

// Halt releases the pins of the device. The driver is turned off with the last
// device. Halting twice is a no-op.
func (d *Device) Halt() error {
	if d.halted {
		return nil
	}
	d.halted = true
	err := d.release()
	d.manager.releaseDriver()
	log.Infof("GPIO device %v halted", d.cfg.Name())
	return err
}

// Status formats the port, the pins and the pins currently reading high.
func (d *Device) Status() (string, error) {
	high, err := d.High()
	if err != nil {
		return "", err
	}
	var pins string
	if d.cfg.Pins.Count() == 1 {
		pin, _ := d.cfg.Pins.Lowest()
		pins = fmt.Sprintf("pin=%d", pin)
	} else {
		pins = fmt.Sprintf("pins=%v", d.cfg.Pins)
	}
	return fmt.Sprintf("port=%v;%v;high_pins=%v", d.cfg.Port, pins, high), nil
}

// Write drives all pins low if p starts with '0' and high otherwise.
// An empty write changes nothing.
func (d *Device) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, d.check()
	}
	state := gpio.AllHigh
	if p[0] == '0' {
		state = gpio.AllLow
	}
	if err := d.SetState(state); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (d *Device) Toggle() error {
	if err := d.check(); err != nil {
		return err
	}
	return d.driver().TogglePinsState(d.cfg.Port, d.cfg.Pins)
}

func (d *Device) SetState(state gpio.State) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.driver().SetPinsState(d.cfg.Port, d.cfg.Pins, state)
}

func (d *Device) High() (gpio.PinMask, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	return d.driver().HighStatePins(d.cfg.Port, d.cfg.Pins)
}

func (d *Device) Low() (gpio.PinMask, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	return d.driver().LowStatePins(d.cfg.Port, d.cfg.Pins)
}

// AddInterruptHandler registers another handler for the device's pins.
// The device must have been configured with an interrupt trigger.
func (d *Device) AddInterruptHandler(handler gpio.InterruptHandler) error {
	if err := d.check(); err != nil {
		return err
	}
	if d.cfg.Trigger == gpio.TriggerOff {
		return fmt.Errorf("%w: %v has no interrupt trigger", gpio.ErrInvalidValue, d.cfg.Name())
	}
	return d.manager.irq.AddHandler(d.cfg.Port, d.owner, handler)
}

// Ioctl runs cmd. CmdSetState takes a gpio.State, CmdAddInterruptHandler a
// gpio.InterruptHandler. CmdGetHigh and CmdGetLow return a pin mask.
func (d *Device) Ioctl(cmd Command, arg interface{}) (gpio.PinMask, error) {
	switch cmd {
	case CmdToggle:
		return 0, d.Toggle()
	case CmdSetState:
		state, ok := arg.(gpio.State)
		if !ok {
			return 0, fmt.Errorf("%w: %v expects a gpio.State, got %T", gpio.ErrInvalidValue, cmd, arg)
		}
		return 0, d.SetState(state)
	case CmdGetHigh:
		return d.High()
	case CmdGetLow:
		return d.Low()
	case CmdAddInterruptHandler:
		switch handler := arg.(type) {
		case gpio.InterruptHandler:
			return 0, d.AddInterruptHandler(handler)
		case func(gpio.Port, gpio.PinMask):
			return 0, d.AddInterruptHandler(handler)
		}
		return 0, fmt.Errorf("%w: %v expects a gpio.InterruptHandler, got %T", gpio.ErrInvalidValue, cmd, arg)
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownCommand, cmd)
}
