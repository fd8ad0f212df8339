// Package irq fans the per-port interrupt callback of a port driver out to
// several owners. Every owner registers the pins it configured and up to
// MaxHandlers handlers; an interrupt reaches an owner's handlers only for its
// own pins.
//
// Registration follows the driver's rules: it is not synchronized and belongs
// to initialization or teardown. Dispatch runs in interrupt context and does
// not allocate.
package irq

import (
	"errors"
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	log "github.com/sirupsen/logrus"
)

// MaxHandlers is the number of handlers one owner can register on a port.
const MaxHandlers = 4

var ErrUnknownOwner = errors.New("irq: owner not registered on port")

// Owner identifies a logical user of a port, e.g. one device.
type Owner uint32

type context struct {
	owner    Owner
	pins     gpio.PinMask
	handlers [MaxHandlers]gpio.InterruptHandler
	num      int
}

type Table struct {
	driver   gpio.PortDriver
	contexts [gpio.MaxPorts][]*context
}

func NewTable(driver gpio.PortDriver) *Table {
	return &Table{driver: driver}
}

func (t *Table) checkPort(port gpio.Port) error {
	if int(port) >= t.driver.NumPorts() {
		return fmt.Errorf("%w: %v", gpio.ErrInvalidPort, port)
	}
	return nil
}

func (t *Table) find(port gpio.Port, owner Owner) *context {
	for _, c := range t.contexts[port] {
		if c.owner == owner {
			return c
		}
	}
	return nil
}

// Register records the pins of owner on port. The first owner of a port installs
// the table as the driver's interrupt handler. Registering an owner again
// replaces its pins and keeps its handlers.
func (t *Table) Register(port gpio.Port, owner Owner, pins gpio.PinMask) error {
	if err := t.checkPort(port); err != nil {
		return err
	}
	if pins == 0 {
		return fmt.Errorf("%w: empty mask for owner %v", gpio.ErrInvalidPins, owner)
	}
	if c := t.find(port, owner); c != nil {
		c.pins = pins
		return nil
	}
	if len(t.contexts[port]) == 0 {
		if err := t.driver.SetDriverInterruptHandler(port, t.dispatch); err != nil {
			return err
		}
	}
	t.contexts[port] = append(t.contexts[port], &context{owner: owner, pins: pins})
	log.Debugf("GPIO%v: interrupt owner %v registered for pins %v", port, owner, pins)
	return nil
}

// AddHandler appends a handler to the owner's list. Handlers run in the order
// they were added.
func (t *Table) AddHandler(port gpio.Port, owner Owner, handler gpio.InterruptHandler) error {
	if err := t.checkPort(port); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil interrupt handler", gpio.ErrInvalidValue)
	}
	c := t.find(port, owner)
	if c == nil {
		return fmt.Errorf("%w: owner %v, port %v", ErrUnknownOwner, owner, port)
	}
	if c.num >= MaxHandlers {
		return fmt.Errorf("%w: owner %v on port %v has %v handlers", gpio.ErrHandlerTableFull, owner, port, c.num)
	}
	c.handlers[c.num] = handler
	c.num++
	return nil
}

// Release removes owner and its handlers. The last owner of a port removes the
// driver's interrupt handler.
func (t *Table) Release(port gpio.Port, owner Owner) error {
	if err := t.checkPort(port); err != nil {
		return err
	}
	contexts := t.contexts[port]
	for i, c := range contexts {
		if c.owner != owner {
			continue
		}
		t.contexts[port] = append(contexts[:i], contexts[i+1:]...)
		log.Debugf("GPIO%v: interrupt owner %v released", port, owner)
		if len(t.contexts[port]) == 0 {
			return t.driver.ClearDriverInterruptHandler(port)
		}
		return nil
	}
	return fmt.Errorf("%w: owner %v, port %v", ErrUnknownOwner, owner, port)
}

// Owners returns the number of owners registered on port.
func (t *Table) Owners(port gpio.Port) int {
	if port >= gpio.MaxPorts {
		return 0
	}
	return len(t.contexts[port])
}

func (t *Table) dispatch(port gpio.Port, pins gpio.PinMask) {
	for _, c := range t.contexts[port] {
		own := pins & c.pins
		if own == 0 {
			continue
		}
		for i := 0; i < c.num; i++ {
			c.handlers[i](port, own)
		}
	}
}
