// Package board selects how the GPIO registers are reached (simulation,
// memory mapped, or through a serial link) and wires the port driver and the
// device manager on top.
package board

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/gpioport/device"
	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/port"
	"github.com/antongulenko/gpioport/regs"
	"github.com/antongulenko/gpioport/serialbus"
	"github.com/antongulenko/gpioport/sim"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

var DefaultBoard = Board{
	MemDevice:     DefaultMemDevice,
	Baud:          serialbus.DefaultBaud,
	SerialTimeout: 2 * time.Second,
	RequestQueue:  20,
}

type Board struct {
	FamilyName    string // Overrides the Family selected at build time
	MemDevice     string
	SerialDevice  string
	Baud          int
	SerialTimeout time.Duration
	RequestQueue  int
	NoSequencer   bool
	Dummy         bool
	TraceRegs     bool

	family    *stm32.Family
	bus       regs.Bus
	closer    io.Closer
	sequencer *regs.Sequencer
	mcu       *sim.MCU
	driver    *port.Driver
	devices   *device.Manager
}

func (b *Board) RegisterFlags() {
	flag.StringVar(&b.FamilyName, "family", b.FamilyName, fmt.Sprintf("MCU family, one of %v (default %v)", familyNames(), Family))
	flag.StringVar(&b.MemDevice, "mem", b.MemDevice, "Memory device for mapping the peripheral registers")
	flag.StringVar(&b.SerialDevice, "serial", b.SerialDevice, "Reach the registers through a serial link on this device instead of -mem")
	flag.IntVar(&b.Baud, "baud", b.Baud, "Baud rate for -serial")
	flag.DurationVar(&b.SerialTimeout, "serial-timeout", b.SerialTimeout, "Read timeout for -serial")
	flag.BoolVar(&b.NoSequencer, "no-sequencer", b.NoSequencer, "Disable the extra goroutine for sequencing serial register requests")
	flag.BoolVar(&b.Dummy, "dummy", b.Dummy, "Simulate the GPIO peripherals instead of accessing hardware")
	flag.BoolVar(&b.TraceRegs, "trace-regs", b.TraceRegs, "Log every register write (and, at trace level, every read)")
}

func familyNames() []string {
	names := make([]string, len(stm32.Families))
	for i, f := range stm32.Families {
		names[i] = f.Name
	}
	return names
}

func (b *Board) Setup() error {
	b.family = Family
	if b.FamilyName != "" {
		f, err := stm32.ByName(b.FamilyName)
		if err != nil {
			return err
		}
		b.family = f
	}

	switch {
	case b.Dummy:
		log.Printf("Dummy board: simulating %v GPIO peripherals", b.family)
		b.mcu = sim.New(b.family)
		b.bus = b.mcu
	case b.SerialDevice != "":
		client, err := serialbus.Open(b.SerialDevice, b.Baud, b.SerialTimeout)
		if err != nil {
			return err
		}
		b.closer = client
		b.bus = client
		if !b.NoSequencer {
			b.sequencer = regs.NewSequencer(client, b.RequestQueue)
			b.bus = b.sequencer
		}
	default:
		bus, closer, err := openMemBus(b.MemDevice)
		if err != nil {
			return err
		}
		b.bus, b.closer = bus, closer
	}
	if b.TraceRegs {
		b.bus = &regs.Logged{Bus: b.bus, Name: b.family.RegName}
	}

	b.driver = port.New(b.family, b.bus, nil)
	if b.mcu != nil {
		b.mcu.OnInterrupt = func(lines uint16) {
			b.driver.HandleInterrupt(gpio.PinMask(lines))
		}
	}
	b.devices = device.NewManager(b.driver)
	log.Printf("Successfully initialized %v GPIO driver (%v ports)", b.family, b.family.NumPorts)
	return nil
}

func (b *Board) Family() *stm32.Family {
	return b.family
}

func (b *Board) Bus() regs.Bus {
	return b.bus
}

func (b *Board) Driver() *port.Driver {
	return b.driver
}

func (b *Board) Devices() *device.Manager {
	return b.devices
}

// Sim returns the simulated peripherals of a dummy board, or nil.
func (b *Board) Sim() *sim.MCU {
	return b.mcu
}

// PollInterrupts delivers pending EXTI lines to the driver until stop is closed.
// Register access from user space has no interrupt entry, so the pending
// registers are polled instead. The simulation raises interrupts by itself.
func (b *Board) PollInterrupts(interval time.Duration, stop <-chan struct{}) {
	if b.mcu != nil {
		<-stop
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.driver.HandleInterrupt(gpio.AllPins)
		}
	}
}

func (b *Board) Cleanup() {
	if b.sequencer != nil {
		b.sequencer.Close()
	}
	if b.closer != nil {
		golib.Printerr(b.closer.Close())
	}
}
