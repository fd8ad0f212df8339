// Package device binds configuration records to the port driver. A Manager
// creates devices, each owning a group of pins of one port, and turns the
// driver on with the first device and off with the last one.
//
// Like the driver, the manager is not synchronized: create, reconfigure and
// halt devices from one goroutine.
package device

import (
	"errors"
	"fmt"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/irq"
	log "github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("device: already halted")

type Manager struct {
	driver gpio.PortDriver
	irq    *irq.Table

	refs      int
	nextOwner irq.Owner
}

func NewManager(driver gpio.PortDriver) *Manager {
	return &Manager{
		driver: driver,
		irq:    irq.NewTable(driver),
	}
}

func (m *Manager) Driver() gpio.PortDriver {
	return m.driver
}

// Devices returns the number of devices that have not been halted.
func (m *Manager) Devices() int {
	return m.refs
}

func (m *Manager) acquireDriver() {
	if m.refs == 0 {
		log.Debugln("Turning on GPIO driver")
		m.driver.Init()
	}
	m.refs++
}

func (m *Manager) releaseDriver() {
	if m.refs == 0 {
		return
	}
	m.refs--
	if m.refs == 0 {
		log.Debugln("Turning off GPIO driver")
		m.driver.Deinit()
	}
}

func (m *Manager) validate(cfg *Config) error {
	if int(cfg.Port) >= m.driver.NumPorts() {
		return fmt.Errorf("%w: %v", gpio.ErrInvalidPort, cfg.Port)
	}
	if cfg.Pins == 0 {
		return fmt.Errorf("%w: no pins configured", gpio.ErrInvalidPins)
	}
	if cfg.Handler != nil && cfg.Trigger == gpio.TriggerOff {
		return fmt.Errorf("%w: %v has an interrupt handler but no trigger", gpio.ErrInvalidValue, cfg.Name())
	}
	return nil
}

// checkFree fails if any of cfg's pins is used, except for the pins in own.
func (m *Manager) checkFree(cfg *Config, own gpio.PinMask) error {
	other := cfg.Pins &^ own
	if other == 0 {
		return nil
	}
	used, err := m.driver.IsPinUsed(cfg.Port, other)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: %v", gpio.ErrPinsInUse, cfg.Name())
	}
	return nil
}

// Create configures the pins of cfg and claims them for the new device.
func (m *Manager) Create(cfg Config) (*Device, error) {
	if err := m.validate(&cfg); err != nil {
		return nil, err
	}
	m.acquireDriver()
	if err := m.checkFree(&cfg, 0); err != nil {
		m.releaseDriver()
		return nil, err
	}
	m.nextOwner++
	dev := &Device{
		manager: m,
		owner:   m.nextOwner,
		cfg:     cfg,
	}
	if err := dev.configure(); err != nil {
		dev.release()
		m.releaseDriver()
		return nil, fmt.Errorf("Failed to configure %v: %w", cfg.Name(), err)
	}
	log.Infof("GPIO device created: %v", &dev.cfg)
	return dev, nil
}
