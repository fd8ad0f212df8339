package device

import (
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"periph.io/x/conn/v3"
	pgpio "periph.io/x/conn/v3/gpio"
)

var _ conn.Resource = new(Device)

// Out drives all pins of the device to l.
func (d *Device) Out(l pgpio.Level) error {
	if l == pgpio.High {
		return d.SetState(gpio.AllHigh)
	}
	return d.SetState(gpio.AllLow)
}

// Level returns High if every pin of the device reads high.
func (d *Device) Level() (pgpio.Level, error) {
	high, err := d.High()
	if err != nil {
		return pgpio.Low, err
	}
	return pgpio.Level(high == d.cfg.Pins), nil
}

func PullFromPeriph(p pgpio.Pull) gpio.Pull {
	switch p {
	case pgpio.Float:
		return gpio.PullNone
	case pgpio.PullUp:
		return gpio.PullUp
	case pgpio.PullDown:
		return gpio.PullDown
	}
	return gpio.PullDefault
}

func PullToPeriph(p gpio.Pull) pgpio.Pull {
	switch p {
	case gpio.PullNone:
		return pgpio.Float
	case gpio.PullUp:
		return pgpio.PullUp
	case gpio.PullDown:
		return pgpio.PullDown
	}
	return pgpio.PullNoChange
}

func TriggerFromEdge(e pgpio.Edge) gpio.Trigger {
	switch e {
	case pgpio.RisingEdge:
		return gpio.TriggerRisingEdge
	case pgpio.FallingEdge:
		return gpio.TriggerFallingEdge
	case pgpio.BothEdges:
		return gpio.TriggerBothEdges
	}
	return gpio.TriggerOff
}

// EdgeFromTrigger fails for level triggers, periph has no equivalent.
func EdgeFromTrigger(t gpio.Trigger) (pgpio.Edge, error) {
	if t.Levels() != 0 {
		return pgpio.NoEdge, fmt.Errorf("%w: %v", gpio.ErrUnsupportedTrigger, t)
	}
	switch t {
	case gpio.TriggerRisingEdge:
		return pgpio.RisingEdge, nil
	case gpio.TriggerFallingEdge:
		return pgpio.FallingEdge, nil
	case gpio.TriggerBothEdges:
		return pgpio.BothEdges, nil
	}
	return pgpio.NoEdge, nil
}

// Input returns the configuration for an input with the given periph pull and edge.
func Input(port gpio.Port, pins gpio.PinMask, pull pgpio.Pull, edge pgpio.Edge) Config {
	cfg := DefaultConfig
	cfg.Port = port
	cfg.Pins = pins
	cfg.Mode = gpio.ModeInput
	cfg.Pull = PullFromPeriph(pull)
	cfg.Trigger = TriggerFromEdge(edge)
	return cfg
}

// Output returns the configuration for a push-pull output.
func Output(port gpio.Port, pins gpio.PinMask) Config {
	cfg := DefaultConfig
	cfg.Port = port
	cfg.Pins = pins
	cfg.Mode = gpio.ModeOutput
	cfg.Pull = gpio.PullNone
	return cfg
}
