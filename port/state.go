package port

import "github.com/antongulenko/gpioport/gpio"

// State is the software side of the driver: pin usage, open configuration
// sessions, protection bypasses and the per-port interrupt handlers. It is set up
// by Init and cleared by Deinit and, like the driver, not synchronized.
type State struct {
	used     [gpio.MaxPorts]gpio.PinMask
	open     [gpio.MaxPorts]bool
	session  [gpio.MaxPorts]gpio.PinMask
	unlocked [gpio.MaxPorts]gpio.PinMask
	handlers [gpio.MaxPorts]gpio.InterruptHandler
}

func (s *State) Clear() {
	*s = State{}
}

func (s *State) covers(port gpio.Port, pins gpio.PinMask) bool {
	return s.open[port] && pins&^s.session[port] == 0
}

func (s *State) Used(port gpio.Port) gpio.PinMask {
	if port >= gpio.MaxPorts {
		return 0
	}
	return s.used[port]
}

// Session returns the pins of the open configuration session of port.
func (s *State) Session(port gpio.Port) (gpio.PinMask, bool) {
	if port >= gpio.MaxPorts {
		return 0, false
	}
	return s.session[port], s.open[port]
}
