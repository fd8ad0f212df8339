package port

import (
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

// routedPort returns the port an EXTI line is bound to.
func (d *Driver) routedPort(line gpio.Pin) gpio.Port {
	addr, shift, mask := d.Family.EXTI.Router.Locate(uint8(line))
	return gpio.Port((d.bus.Load32(addr) & mask) >> shift)
}

// routedLines filters pins to the lines currently bound to port.
func (d *Driver) routedLines(port gpio.Port, pins gpio.PinMask) (lines gpio.PinMask) {
	pins.Each(func(p gpio.Pin) {
		if d.routedPort(p) == port {
			lines |= p.Mask()
		}
	})
	return
}

// route binds the lines of pins to port, one write per EXTICR register.
func (d *Driver) route(port gpio.Port, pins gpio.PinMask) {
	router := d.Family.EXTI.Router
	var clear, set [gpio.PinsPerPort / stm32.LinesPerRouterReg]uint32
	pins.Each(func(p gpio.Pin) {
		_, shift, mask := router.Locate(uint8(p))
		i := int(p) / stm32.LinesPerRouterReg
		clear[i] |= mask
		set[i] |= uint32(port) << shift & mask
	})
	for i, reg := range router.Registers() {
		if clear[i] != 0 {
			regs.Modify(d.bus, reg, clear[i], set[i])
		}
	}
}

// SetInterruptTrigger programs the EXTI lines of pins. The whole trigger is
// validated before any register is written. Off masks the lines first and
// disables the NVIC interrupts no other line still needs. Otherwise the lines
// are routed to port and their edges selected before they are unmasked.
func (d *Driver) SetInterruptTrigger(port gpio.Port, pins gpio.PinMask, trigger gpio.Trigger) error {
	if err := d.checkSession(port, pins); err != nil {
		return err
	}
	if !trigger.Valid() {
		return invalidValue("interrupt trigger", trigger)
	}
	if levels := trigger.Levels(); levels != 0 {
		return fmt.Errorf("%w: %v on %v, EXTI detects edges only", gpio.ErrUnsupportedTrigger, levels, d.Family)
	}
	e := &d.Family.EXTI
	nvic := &d.Family.NVIC

	if trigger == gpio.TriggerOff {
		// Lines routed to another port belong to that port
		lines := uint32(d.routedLines(port, pins))
		if lines == 0 {
			return regs.Err(d.bus)
		}
		regs.ClearBits(d.bus, e.Reg(e.IMR), lines)
		regs.ClearBits(d.bus, e.Reg(e.RTSR), lines)
		regs.ClearBits(d.bus, e.Reg(e.FTSR), lines)
		imr := d.bus.Load32(e.Reg(e.IMR))
		disabled := make(map[uint32]bool)
		gpio.PinMask(lines).Each(func(p gpio.Pin) {
			irq := nvic.LineIRQ[p]
			if disabled[irq] || imr&uint32(nvic.SharedLines(uint8(p))) != 0 {
				return
			}
			addr, bit := nvic.Disable(irq)
			d.bus.Store32(addr, bit)
			disabled[irq] = true
		})
		log.Debugf("GPIO%v pins %v: interrupt off", port, gpio.PinMask(lines))
		return regs.Err(d.bus)
	}

	lines := uint32(pins)
	d.route(port, pins)
	rising, falling := uint32(0), uint32(0)
	if trigger&gpio.TriggerRisingEdge != 0 {
		rising = lines
	}
	if trigger&gpio.TriggerFallingEdge != 0 {
		falling = lines
	}
	regs.Modify(d.bus, e.Reg(e.RTSR), lines, rising)
	regs.Modify(d.bus, e.Reg(e.FTSR), lines, falling)
	regs.SetBits(d.bus, e.Reg(e.IMR), lines)
	enabled := make(map[uint32]bool)
	pins.Each(func(p gpio.Pin) {
		irq := nvic.LineIRQ[p]
		if !enabled[irq] {
			addr, bit := nvic.Enable(irq)
			d.bus.Store32(addr, bit)
			enabled[irq] = true
		}
	})
	log.Debugf("GPIO%v pins %v: interrupt on %v", port, pins, trigger)
	return regs.Err(d.bus)
}

// ReadInterruptTrigger reports the trigger of the lowest selected pin, Off if its
// line is masked or bound to another port.
func (d *Driver) ReadInterruptTrigger(port gpio.Port, pins gpio.PinMask) (gpio.Trigger, error) {
	if err := d.check(port, pins); err != nil {
		return gpio.TriggerOff, err
	}
	pin, _ := pins.Lowest()
	bit := uint32(pin.Mask())
	e := &d.Family.EXTI
	if d.bus.Load32(e.Reg(e.IMR))&bit == 0 || d.routedPort(pin) != port {
		return gpio.TriggerOff, regs.Err(d.bus)
	}
	trigger := gpio.TriggerOff
	if d.bus.Load32(e.Reg(e.RTSR))&bit != 0 {
		trigger |= gpio.TriggerRisingEdge
	}
	if d.bus.Load32(e.Reg(e.FTSR))&bit != 0 {
		trigger |= gpio.TriggerFallingEdge
	}
	return trigger, regs.Err(d.bus)
}

func (d *Driver) SetDriverInterruptHandler(port gpio.Port, handler gpio.InterruptHandler) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	if handler == nil {
		return invalidValue("interrupt handler", nil)
	}
	if d.state.handlers[port] != nil {
		return fmt.Errorf("%w: port %v", gpio.ErrHandlerAlreadySet, port)
	}
	d.state.handlers[port] = handler
	return nil
}

func (d *Driver) ClearDriverInterruptHandler(port gpio.Port) error {
	if err := d.checkPort(port); err != nil {
		return err
	}
	d.state.handlers[port] = nil
	return nil
}

// HandleInterrupt is the EXTI interrupt entry point for the given lines, usually
// the lines sharing the IRQ that fired. The pending bits are cleared by writing
// back exactly the value read, so lines becoming pending meanwhile are kept.
// Every port handler is called once with all of its pending pins. Nothing here
// allocates.
func (d *Driver) HandleInterrupt(lines gpio.PinMask) {
	e := &d.Family.EXTI
	var pending gpio.PinMask
	if e.SplitPending {
		pending = d.clearPending(e.Reg(e.RPR), lines) | d.clearPending(e.Reg(e.FPR), lines)
	} else {
		pending = d.clearPending(e.Reg(e.PR), lines)
	}
	var perPort [gpio.MaxPorts]gpio.PinMask
	for line := gpio.Pin(0); line < gpio.PinsPerPort; line++ {
		if pending.Has(line) {
			if port := d.routedPort(line); port < gpio.MaxPorts {
				perPort[port] |= line.Mask()
			}
		}
	}
	for port, pins := range perPort {
		if pins == 0 {
			continue
		}
		if handler := d.state.handlers[port]; handler != nil {
			handler(gpio.Port(port), pins)
		}
	}
}

func (d *Driver) clearPending(reg uint32, lines gpio.PinMask) gpio.PinMask {
	p := d.bus.Load32(reg) & uint32(lines)
	if p != 0 {
		d.bus.Store32(reg, p)
	}
	return gpio.PinMask(p)
}
