package port

import (
	"errors"
	"testing"

	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/sim"
	"github.com/antongulenko/gpioport/stm32"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	portA = gpio.Port(0)
	portB = gpio.Port(1)
	portC = gpio.Port(2)
)

type testSuite struct {
	t *testing.T
	*require.Assertions

	mcu *sim.MCU
	drv *Driver
}

func (suite *testSuite) T() *testing.T {
	return suite.t
}

func (suite *testSuite) SetT(t *testing.T) {
	suite.t = t
	suite.Assertions = require.New(t)
}

func (s *testSuite) SetupTest() {
	s.setup(stm32.F7)
}

func TestAll(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (s *testSuite) setup(family *stm32.Family) {
	s.mcu = sim.New(family)
	s.drv = New(family, s.mcu, nil)
	s.mcu.OnInterrupt = func(lines uint16) {
		s.drv.HandleInterrupt(gpio.PinMask(lines))
	}
	s.drv.Init()
}

func (s *testSuite) isErr(err error, target error) {
	s.Error(err)
	s.True(errors.Is(err, target), "expected %v, got %v", target, err)
}

func (s *testSuite) configure(port gpio.Port, pins gpio.PinMask, mode gpio.Mode, pull gpio.Pull, oc gpio.OutputCircuit) {
	s.NoError(s.drv.SetPower(port, true))
	s.NoError(s.drv.BeginConfiguration(port, pins))
	s.NoError(s.drv.SetMode(port, pins, mode))
	s.NoError(s.drv.SetPull(port, pins, pull))
	s.NoError(s.drv.SetOutputCircuit(port, pins, oc))
	s.NoError(s.drv.FinishConfiguration(port, pins))
}

func (s *testSuite) reg(port gpio.Port, offset uint32) uint32 {
	return s.mcu.Peek(s.drv.Family.Reg(uint8(port), offset))
}

func (s *testSuite) TestPortBPin5() {
	pins := gpio.PinMask(0x0020)
	s.NoError(s.drv.SetPower(portB, true))
	s.NoError(s.drv.BeginConfiguration(portB, pins))
	s.NoError(s.drv.SetMode(portB, pins, gpio.ModeOutput))
	s.NoError(s.drv.SetPull(portB, pins, gpio.PullNone))
	s.NoError(s.drv.SetSpeed(portB, pins, gpio.SpeedMedium))
	s.NoError(s.drv.SetOutputCircuit(portB, pins, gpio.PushPull))
	s.NoError(s.drv.FinishConfiguration(portB, pins))

	mode, err := s.drv.ReadMode(portB, pins)
	s.NoError(err)
	s.Equal(gpio.ModeOutput, mode)
	speed, err := s.drv.ReadSpeed(portB, pins)
	s.NoError(err)
	s.Equal(gpio.SpeedMedium, speed)

	s.NoError(s.drv.SetPinsState(portB, pins, gpio.AllHigh))
	high, err := s.drv.HighStatePins(portB, pins)
	s.NoError(err)
	s.Equal(gpio.PinMask(0x0020), high)
	low, err := s.drv.LowStatePins(portB, pins)
	s.NoError(err)
	s.Equal(gpio.PinMask(0), low)

	// The JTAG pins PB3/PB4 keep their reset configuration
	s.Equal(uint32(0x00000680), s.reg(portB, stm32.MODER))
	s.Equal(uint32(0x00000400), s.reg(portB, stm32.OSPEEDR))
}

func (s *testSuite) TestSpeedRoundTrip() {
	speeds := []gpio.Speed{gpio.SpeedLow, gpio.SpeedMedium, gpio.SpeedHigh, gpio.SpeedVeryHigh}
	masks := []gpio.PinMask{0x0001, 0x8000, 0x0F0F, 0xAAAA, 0xFFFF}
	s.NoError(s.drv.SetPower(portC, true))
	for _, mask := range masks {
		for _, speed := range speeds {
			s.NoError(s.drv.BeginConfiguration(portC, mask))
			s.NoError(s.drv.SetSpeed(portC, mask, speed))
			s.NoError(s.drv.FinishConfiguration(portC, mask))
			mask.Each(func(p gpio.Pin) {
				read, err := s.drv.ReadSpeed(portC, p.Mask())
				s.NoError(err)
				s.Equal(speed, read, "pin %v of mask %v", p, mask)
			})
		}
	}
}

func (s *testSuite) TestSetterWritesOnce() {
	pins := gpio.PinMask(0x00F0)
	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.mcu.ClearWrites()
	s.NoError(s.drv.SetMode(portC, pins, gpio.ModeAnalog))
	s.Equal([]uint32{0x0000FF00}, s.mcu.WritesTo(s.drv.Family.Reg(2, stm32.MODER)))
	s.Len(s.mcu.Writes(), 1)

	s.NoError(s.drv.SetMode(portC, pins, gpio.ModeDefault))
	s.NoError(s.drv.SetPull(portC, pins, gpio.PullDefault))
	s.NoError(s.drv.SetSpeed(portC, pins, gpio.SpeedDefault))
	s.NoError(s.drv.SetOutputCircuit(portC, pins, gpio.OutputCircuitDefault))
	s.Len(s.mcu.Writes(), 1, "Default must not touch the hardware")
}

func (s *testSuite) TestSessionOrdering() {
	pins := gpio.PinMask(0x0003)
	s.NoError(s.drv.SetPower(portC, true))
	s.isErr(s.drv.SetMode(portC, pins, gpio.ModeOutput), gpio.ErrNoSession)
	s.isErr(s.drv.SetInterruptTrigger(portC, pins, gpio.TriggerRisingEdge), gpio.ErrNoSession)
	s.isErr(s.drv.FinishConfiguration(portC, pins), gpio.ErrNoSession)

	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.isErr(s.drv.BeginConfiguration(portC, pins), gpio.ErrSessionActive)
	s.isErr(s.drv.SetPull(portC, 0x0004, gpio.PullUp), gpio.ErrNoSession)
	s.NoError(s.drv.SetPull(portC, 0x0001, gpio.PullUp))
	s.isErr(s.drv.FinishConfiguration(portC, 0x0001), gpio.ErrNoSession)
	s.NoError(s.drv.FinishConfiguration(portC, pins))

	s.isErr(s.drv.SetMode(portC, pins, gpio.ModeOutput), gpio.ErrNoSession)
	s.isErr(s.drv.SetSpeed(portC, pins, gpio.SpeedHigh), gpio.ErrNoSession)
	s.isErr(s.drv.SetCurrent(portC, pins, gpio.CurrentMaximum), gpio.ErrNoSession)

	// Sessions on different ports are independent
	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.NoError(s.drv.BeginConfiguration(portB, pins))
	s.NoError(s.drv.FinishConfiguration(portB, pins))
	s.NoError(s.drv.FinishConfiguration(portC, pins))
}

func (s *testSuite) TestBeginEnablesRouterClock() {
	s.Zero(s.mcu.Peek(s.drv.Family.RouterClock))
	s.NoError(s.drv.BeginConfiguration(portC, 1))
	s.Equal(uint32(1<<14), s.mcu.Peek(s.drv.Family.RouterClock))
	s.NoError(s.drv.FinishConfiguration(portC, 1))

	s.mcu.ClearWrites()
	s.NoError(s.drv.BeginConfiguration(portC, 1))
	s.Empty(s.mcu.Writes(), "clock already on")
}

func (s *testSuite) TestValidation() {
	s.isErr(s.drv.SetPower(11, true), gpio.ErrInvalidPort)
	s.isErr(s.drv.BeginConfiguration(gpio.Port(11), 1), gpio.ErrInvalidPort)
	s.isErr(s.drv.BeginConfiguration(portC, 0), gpio.ErrInvalidPins)
	s.isErr(s.drv.WriteData(portC, 0, 0), gpio.ErrInvalidPins)
	_, err := s.drv.ReadMode(portC, 0)
	s.isErr(err, gpio.ErrInvalidPins)
	_, err = s.drv.IsPinUsed(20, 1)
	s.isErr(err, gpio.ErrInvalidPort)
	s.isErr(s.drv.SetDriverInterruptHandler(11, func(gpio.Port, gpio.PinMask) {}), gpio.ErrInvalidPort)
	s.Empty(s.mcu.Writes())

	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.BeginConfiguration(portC, 1))
	s.isErr(s.drv.SetMode(portC, 1, gpio.Mode(9)), gpio.ErrInvalidValue)
	s.isErr(s.drv.SetPull(portC, 1, gpio.Pull(9)), gpio.ErrInvalidValue)
	s.isErr(s.drv.SetAlternateFunction(portC, 1, 16), gpio.ErrInvalidValue)
	s.isErr(s.drv.SetInterruptTrigger(portC, 1, gpio.Trigger(0x30)), gpio.ErrInvalidValue)
	s.isErr(s.drv.SetPinsState(portC, 1, gpio.State(3)), gpio.ErrInvalidValue)

	s.setup(stm32.F4)
	s.isErr(s.drv.SetPower(9, true), gpio.ErrInvalidPort)
	s.NoError(s.drv.SetPower(8, true))
	s.Equal(9, s.drv.NumPorts())
}

func (s *testSuite) TestClockGating() {
	s.NoError(s.drv.BeginConfiguration(portC, 1))
	s.NoError(s.drv.SetMode(portC, 1, gpio.ModeOutput))
	mode, err := s.drv.ReadMode(portC, 1)
	s.NoError(err)
	s.Equal(gpio.ModeInput, mode, "writes to an unclocked port are lost")

	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.SetMode(portC, 1, gpio.ModeOutput))
	mode, _ = s.drv.ReadMode(portC, 1)
	s.Equal(gpio.ModeOutput, mode)

	s.NoError(s.drv.SetPower(portC, false))
	s.Zero(s.mcu.Peek(s.drv.Family.PortClock) & (1 << portC))
}

func (s *testSuite) TestWriteReadData() {
	all := gpio.PinMask(0xFFFF)
	s.configure(portC, all, gpio.ModeOutput, gpio.PullNone, gpio.PushPull)
	cases := []struct{ mask, data gpio.PinMask }{
		{0x00FF, 0x0F0F},
		{0xFFFF, 0xA5A5},
		{0x0100, 0x0000},
		{0x8001, 0xFFFF},
	}
	for _, c := range cases {
		s.NoError(s.drv.WriteData(portC, c.mask, c.data))
		read, err := s.drv.ReadData(portC, c.mask)
		s.NoError(err)
		s.Equal(c.data&c.mask, read, "mask %v data %v", c.mask, c.data)
	}

	s.mcu.ClearWrites()
	s.NoError(s.drv.WriteData(portC, 0x0003, 0x0001))
	s.Equal([]uint32{0x00020001}, s.mcu.WritesTo(s.drv.Family.Reg(2, stm32.BSRR)))
	s.Len(s.mcu.Writes(), 1)
}

func (s *testSuite) TestToggle() {
	pins := gpio.PinMask(0x0F0F)
	s.configure(portC, pins, gpio.ModeOutput, gpio.PullNone, gpio.PushPull)
	s.NoError(s.drv.WriteData(portC, pins, 0x0A05))
	before, err := s.drv.ReadData(portC, pins)
	s.NoError(err)

	s.NoError(s.drv.TogglePinsState(portC, pins))
	toggled, _ := s.drv.ReadData(portC, pins)
	s.Equal(pins&^before, toggled)

	s.NoError(s.drv.TogglePinsState(portC, pins))
	after, _ := s.drv.ReadData(portC, pins)
	s.Equal(before, after)
}

func (s *testSuite) TestToggleUsesOutputLatch() {
	pin := gpio.PinMask(0x0001)
	s.configure(portC, pin, gpio.ModeOutput, gpio.PullNone, gpio.OpenDrain)
	s.NoError(s.drv.SetPinsState(portC, pin, gpio.AllHigh))
	s.mcu.Drive(portC, pin, false)
	high, _ := s.drv.HighStatePins(portC, pin)
	s.Zero(high, "open drain line held low externally")

	s.mcu.ClearWrites()
	s.NoError(s.drv.TogglePinsState(portC, pin))
	s.Equal([]uint32{0x00010000}, s.mcu.WritesTo(s.drv.Family.Reg(2, stm32.BSRR)), "latch was high, toggle resets it")
}

func (s *testSuite) TestAlternateFunction() {
	pins := gpio.Pins(5, 9)
	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.NoError(s.drv.SetMode(portC, pins, gpio.ModeAlternate))
	s.NoError(s.drv.SetAlternateFunction(portC, pins, 7))
	s.NoError(s.drv.FinishConfiguration(portC, pins))

	s.Equal(uint32(0x00700000), s.reg(portC, stm32.AFRL))
	s.Equal(uint32(0x00000070), s.reg(portC, stm32.AFRH))
	af, err := s.drv.ReadAlternateFunction(portC, gpio.Pins(9))
	s.NoError(err)
	s.Equal(gpio.AlternateFunction(7), af)
	mode, _ := s.drv.ReadMode(portC, pins)
	s.Equal(gpio.ModeAlternate, mode)
}

func (s *testSuite) TestCurrentUnsupported() {
	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.BeginConfiguration(portC, 1))
	s.mcu.ClearWrites()
	s.NoError(s.drv.SetCurrent(portC, 1, gpio.CurrentMaximum))
	s.Empty(s.mcu.Writes())
	s.isErr(s.drv.SetCurrent(portC, 1, gpio.Current(7)), gpio.ErrInvalidValue)
	cur, err := s.drv.ReadCurrent(portC, 1)
	s.NoError(err)
	s.Equal(gpio.CurrentDefault, cur)
}

func (s *testSuite) TestCurrentRegister() {
	family := *stm32.F7
	family.Name = "f7-with-drive-strength"
	family.DriveCurrent = 0x2C
	s.setup(&family)

	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.BeginConfiguration(portC, 0x0006))
	s.NoError(s.drv.SetCurrent(portC, 0x0006, gpio.CurrentMaximum))
	s.Equal(uint32(0x00000028), s.reg(portC, 0x2C))
	cur, err := s.drv.ReadCurrent(portC, 0x0004)
	s.NoError(err)
	s.Equal(gpio.CurrentMaximum, cur)
}

func (s *testSuite) TestLock() {
	pins := gpio.PinMask(0x0003)
	s.configure(portC, pins, gpio.ModeOutput, gpio.PullNone, gpio.PushPull)
	protected, err := s.drv.ArePinsProtected(portC, pins)
	s.NoError(err)
	s.False(protected)

	s.mcu.ClearWrites()
	s.NoError(s.drv.LockProtection(portC, pins))
	s.Equal([]uint32{0x00010003, 0x00000003, 0x00010003}, s.mcu.WritesTo(s.drv.Family.Reg(2, stm32.LCKR)))
	s.Equal(pins, s.mcu.Locked(portC))

	protected, err = s.drv.ArePinsProtected(portC, pins)
	s.NoError(err)
	s.True(protected)
	protected, _ = s.drv.ArePinsProtected(portC, 0x0002)
	s.True(protected)
	protected, _ = s.drv.ArePinsProtected(portC, 0x0004)
	s.False(protected)

	s.NoError(s.drv.BeginConfiguration(portC, 0x0007))
	s.isErr(s.drv.SetMode(portC, pins, gpio.ModeInput), gpio.ErrPinsLocked)
	s.isErr(s.drv.SetPull(portC, 0x0002, gpio.PullUp), gpio.ErrPinsLocked)
	s.isErr(s.drv.SetSpeed(portC, pins, gpio.SpeedHigh), gpio.ErrPinsLocked)
	s.isErr(s.drv.SetOutputCircuit(portC, pins, gpio.OpenDrain), gpio.ErrPinsLocked)
	s.NoError(s.drv.SetMode(portC, 0x0004, gpio.ModeOutput), "pin 2 is not locked")
	mode, _ := s.drv.ReadMode(portC, 0x0001)
	s.Equal(gpio.ModeOutput, mode)

	s.isErr(s.drv.UnlockProtection(portC, pins, gpio.UnlockProtected), gpio.ErrPinsLocked)
	s.isErr(s.drv.LockProtection(portC, 0x0004), gpio.ErrLockFailed)

	// Data output still works on locked pins
	s.NoError(s.drv.SetPinsState(portC, pins, gpio.AllHigh))
	high, _ := s.drv.HighStatePins(portC, pins)
	s.Equal(pins, high)
}

func (s *testSuite) TestLockFailure() {
	s.mcu.BrokenLock = true
	s.NoError(s.drv.SetPower(portC, true))
	s.isErr(s.drv.LockProtection(portC, 0x0001), gpio.ErrLockFailed)
	protected, _ := s.drv.ArePinsProtected(portC, 0x0001)
	s.False(protected)
}

func (s *testSuite) TestDebugPinProtection() {
	swdio := gpio.Pins(13)
	s.NoError(s.drv.SetPower(portA, true))
	s.NoError(s.drv.BeginConfiguration(portA, swdio|1))
	s.isErr(s.drv.SetMode(portA, swdio|1, gpio.ModeOutput), gpio.ErrPinsProtected)
	s.NoError(s.drv.SetMode(portA, 1, gpio.ModeOutput))

	s.NoError(s.drv.UnlockProtection(portA, swdio, gpio.UnlockProtected))
	s.NoError(s.drv.SetMode(portA, swdio, gpio.ModeOutput))
	mode, _ := s.drv.ReadMode(portA, swdio)
	s.Equal(gpio.ModeOutput, mode)

	s.NoError(s.drv.UnlockProtection(portA, swdio, gpio.DontUnlockProtected))
	s.isErr(s.drv.SetPull(portA, swdio, gpio.PullUp), gpio.ErrPinsProtected)
	s.isErr(s.drv.UnlockProtection(portA, swdio, gpio.Protection(5)), gpio.ErrInvalidValue)
}

func (s *testSuite) TestUsage() {
	used, err := s.drv.IsPinUsed(portC, 0x0010)
	s.NoError(err)
	s.False(used)
	s.NoError(s.drv.SetPinsUsed(portC, 0x0030))
	used, _ = s.drv.IsPinUsed(portC, 0x0010)
	s.True(used)
	s.NoError(s.drv.SetPinsUnused(portC, 0x0010))
	used, _ = s.drv.IsPinUsed(portC, 0x0010)
	s.False(used)
	s.Equal(gpio.PinMask(0x0020), s.drv.State().Used(portC))
	s.Empty(s.mcu.Writes(), "usage is software only")

	s.drv.Deinit()
	s.Zero(s.drv.State().Used(portC))
}

func (s *testSuite) TestLevelTriggerRejected() {
	pins := gpio.PinMask(0x0020)
	s.configure(portC, pins, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.NoError(s.drv.SetInterruptTrigger(portC, pins, gpio.TriggerFallingEdge))
	e := &s.drv.Family.EXTI
	imr, rtsr, ftsr := s.mcu.Peek(e.Reg(e.IMR)), s.mcu.Peek(e.Reg(e.RTSR)), s.mcu.Peek(e.Reg(e.FTSR))

	s.mcu.ClearWrites()
	for _, trigger := range []gpio.Trigger{gpio.TriggerHighLevel, gpio.TriggerLowLevel, gpio.TriggerRisingEdge | gpio.TriggerHighLevel} {
		s.isErr(s.drv.SetInterruptTrigger(portC, pins, trigger), gpio.ErrUnsupportedTrigger)
	}
	s.Empty(s.mcu.Writes())
	s.Equal(imr, s.mcu.Peek(e.Reg(e.IMR)))
	s.Equal(rtsr, s.mcu.Peek(e.Reg(e.RTSR)))
	s.Equal(ftsr, s.mcu.Peek(e.Reg(e.FTSR)))

	trigger, err := s.drv.ReadInterruptTrigger(portC, pins)
	s.NoError(err)
	s.Equal(gpio.TriggerFallingEdge, trigger)
}

func (s *testSuite) TestInterruptDispatch() {
	pins := gpio.PinMask(0x0020)
	s.configure(portC, pins, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)

	var calls []gpio.PinMask
	s.NoError(s.drv.SetDriverInterruptHandler(portC, func(port gpio.Port, pending gpio.PinMask) {
		s.Equal(portC, port)
		calls = append(calls, pending)
	}))
	s.isErr(s.drv.SetDriverInterruptHandler(portC, func(gpio.Port, gpio.PinMask) {}), gpio.ErrHandlerAlreadySet)

	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.NoError(s.drv.SetInterruptTrigger(portC, pins, gpio.TriggerRisingEdge))
	s.NoError(s.drv.FinishConfiguration(portC, pins))

	e := &s.drv.Family.EXTI
	s.Equal(uint32(0x20), s.mcu.Peek(e.Reg(e.IMR)))
	s.Equal(uint32(0x20), s.mcu.Peek(e.Reg(e.RTSR)))
	s.Equal(uint32(0x0020), s.mcu.Peek(e.Router.Base+4), "EXTICR2 routes line 5 to port C")
	s.Equal(uint32(1<<23), s.mcu.Peek(stm32.NVIC_ISER), "EXTI9_5")

	s.mcu.Drive(portC, pins, true)
	s.Equal([]gpio.PinMask{0x0020}, calls)
	s.Zero(s.mcu.Peek(e.Reg(e.PR)), "pending bit cleared")

	s.mcu.Drive(portC, pins, false)
	s.Len(calls, 1, "falling edge not selected")

	// The same line on another port does not fire
	s.configure(portB, pins, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.mcu.Drive(portB, pins, true)
	s.Len(calls, 1)

	s.NoError(s.drv.ClearDriverInterruptHandler(portC))
	s.mcu.Drive(portC, pins, true)
	s.Len(calls, 1)
	s.Zero(s.mcu.Peek(e.Reg(e.PR)))
	s.NoError(s.drv.SetDriverInterruptHandler(portC, func(gpio.Port, gpio.PinMask) {}))
}

func (s *testSuite) TestInterruptGroupsPorts() {
	s.configure(portB, 0x0040, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.configure(portC, 0x0180, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	for _, cfg := range []struct {
		port gpio.Port
		pins gpio.PinMask
	}{{portB, 0x0040}, {portC, 0x0180}} {
		s.NoError(s.drv.BeginConfiguration(cfg.port, cfg.pins))
		s.NoError(s.drv.SetInterruptTrigger(cfg.port, cfg.pins, gpio.TriggerBothEdges))
		s.NoError(s.drv.FinishConfiguration(cfg.port, cfg.pins))
	}
	calls := make(map[gpio.Port][]gpio.PinMask)
	handler := func(port gpio.Port, pins gpio.PinMask) {
		calls[port] = append(calls[port], pins)
	}
	s.NoError(s.drv.SetDriverInterruptHandler(portB, handler))
	s.NoError(s.drv.SetDriverInterruptHandler(portC, handler))

	// Set pending bits on all three lines without delivering, then run the IRQ once
	s.mcu.OnInterrupt = nil
	s.mcu.Drive(portB, 0x0040, true)
	s.mcu.Drive(portC, 0x0180, true)
	e := &s.drv.Family.EXTI
	s.Equal(uint32(0x01C0), s.mcu.Peek(e.Reg(e.PR)))

	s.drv.HandleInterrupt(gpio.PinMask(s.drv.Family.NVIC.SharedLines(5)))
	s.Equal([]gpio.PinMask{0x0040}, calls[portB])
	s.Equal([]gpio.PinMask{0x0180}, calls[portC])
	s.Zero(s.mcu.Peek(e.Reg(e.PR)))
	s.Equal([]uint32{0x01C0}, s.mcu.WritesTo(e.Reg(e.PR)))
}

func (s *testSuite) TestHandleInterruptKeepsOtherLines() {
	e := &s.drv.Family.EXTI
	s.configure(portC, 0x0401, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.NoError(s.drv.BeginConfiguration(portC, 0x0401))
	s.NoError(s.drv.SetInterruptTrigger(portC, 0x0401, gpio.TriggerRisingEdge))
	s.NoError(s.drv.FinishConfiguration(portC, 0x0401))
	s.mcu.OnInterrupt = nil
	s.mcu.Drive(portC, 0x0401, true)
	s.Equal(uint32(0x0401), s.mcu.Peek(e.Reg(e.PR)))

	var got gpio.PinMask
	s.NoError(s.drv.SetDriverInterruptHandler(portC, func(_ gpio.Port, pins gpio.PinMask) { got = pins }))
	s.drv.HandleInterrupt(gpio.PinMask(s.drv.Family.NVIC.SharedLines(0)))
	s.Equal(gpio.PinMask(0x0001), got)
	s.Equal(uint32(0x0400), s.mcu.Peek(e.Reg(e.PR)), "line 10 belongs to another IRQ")
}

func (s *testSuite) TestTriggerOff() {
	pins := gpio.PinMask(0x0060)
	s.configure(portC, pins, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.NoError(s.drv.SetInterruptTrigger(portC, pins, gpio.TriggerBothEdges))
	trigger, err := s.drv.ReadInterruptTrigger(portC, 0x0040)
	s.NoError(err)
	s.Equal(gpio.TriggerBothEdges, trigger)

	s.mcu.ClearWrites()
	s.NoError(s.drv.SetInterruptTrigger(portC, 0x0020, gpio.TriggerOff))
	s.Empty(s.mcu.WritesTo(stm32.NVIC_ICER), "line 6 still uses EXTI9_5")
	imrWrites := s.mcu.WritesTo(s.drv.Family.EXTI.Reg(s.drv.Family.EXTI.IMR))
	s.Equal([]uint32{0x0040}, imrWrites)
	trigger, _ = s.drv.ReadInterruptTrigger(portC, 0x0020)
	s.Equal(gpio.TriggerOff, trigger)

	s.NoError(s.drv.SetInterruptTrigger(portC, 0x0040, gpio.TriggerOff))
	s.Equal([]uint32{1 << 23}, s.mcu.WritesTo(stm32.NVIC_ICER))
	s.Zero(s.mcu.Peek(stm32.NVIC_ISER))

	// Mask comes first
	writes := s.mcu.Writes()
	e := &s.drv.Family.EXTI
	s.Equal(e.Reg(e.IMR), writes[len(writes)-4].Addr)
}

func (s *testSuite) TestTriggerOffOtherPort() {
	pins := gpio.PinMask(0x0020)
	s.configure(portB, pins, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.NoError(s.drv.BeginConfiguration(portB, pins))
	s.NoError(s.drv.SetInterruptTrigger(portB, pins, gpio.TriggerRisingEdge))
	s.NoError(s.drv.FinishConfiguration(portB, pins))

	s.NoError(s.drv.SetPower(portC, true))
	s.NoError(s.drv.BeginConfiguration(portC, pins))
	s.mcu.ClearWrites()
	s.NoError(s.drv.SetInterruptTrigger(portC, pins, gpio.TriggerOff))
	s.Empty(s.mcu.Writes(), "line 5 is routed to port B")
	trigger, _ := s.drv.ReadInterruptTrigger(portC, pins)
	s.Equal(gpio.TriggerOff, trigger)
	trigger, _ = s.drv.ReadInterruptTrigger(portB, pins)
	s.Equal(gpio.TriggerRisingEdge, trigger)
}

func (s *testSuite) TestG0SplitPending() {
	s.setup(stm32.G0)
	pins := gpio.PinMask(0x0008)
	s.configure(portB, pins, gpio.ModeInput, gpio.PullDown, gpio.OutputCircuitDefault)
	s.NoError(s.drv.BeginConfiguration(portB, pins))
	s.NoError(s.drv.SetInterruptTrigger(portB, pins, gpio.TriggerBothEdges))
	s.NoError(s.drv.FinishConfiguration(portB, pins))
	s.Zero(s.mcu.Peek(stm32.F7.RouterClock), "G0 has no SYSCFG clock gate")

	e := &s.drv.Family.EXTI
	s.Equal(uint32(0x01000000), s.mcu.Peek(e.Router.Base), "EXTICR1 line 3 = port B")
	s.Equal(uint32(1<<6), s.mcu.Peek(stm32.NVIC_ISER), "EXTI2_3")

	var calls int
	s.NoError(s.drv.SetDriverInterruptHandler(portB, func(port gpio.Port, pending gpio.PinMask) {
		s.Equal(portB, port)
		s.Equal(pins, pending)
		calls++
	}))
	s.mcu.Drive(portB, pins, true)
	s.mcu.Drive(portB, pins, false)
	s.Equal(2, calls)
	s.Equal([]uint32{0x8}, s.mcu.WritesTo(e.Reg(e.RPR)))
	s.Equal([]uint32{0x8}, s.mcu.WritesTo(e.Reg(e.FPR)))
	s.Zero(s.mcu.Peek(e.Reg(e.RPR)) | s.mcu.Peek(e.Reg(e.FPR)))
}
