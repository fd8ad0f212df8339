package gpio

// InterruptHandler is called from interrupt context with the pins of one port
// that have a pending interrupt. It must not reconfigure pins; only the
// atomic state operations (WriteData, SetPinsState, TogglePinsState) are safe.
type InterruptHandler func(port Port, pins PinMask)

// PortDriver is the contract every MCU family implements.
//
// Configuration calls (power, sessions, attribute setters, usage bookkeeping,
// handler registration) perform read-modify-write sequences that are not
// atomic with respect to interrupts. Callers must issue them from a single
// thread of control during initialization or teardown. WriteData, SetPinsState
// and TogglePinsState are single bus writes and may be used from interrupt
// handlers.
type PortDriver interface {
	NumPorts() int

	SetPower(port Port, on bool) error

	BeginConfiguration(port Port, pins PinMask) error
	FinishConfiguration(port Port, pins PinMask) error

	SetMode(port Port, pins PinMask, mode Mode) error
	ReadMode(port Port, pins PinMask) (Mode, error)
	SetPull(port Port, pins PinMask, pull Pull) error
	ReadPull(port Port, pins PinMask) (Pull, error)
	SetSpeed(port Port, pins PinMask, speed Speed) error
	ReadSpeed(port Port, pins PinMask) (Speed, error)
	SetOutputCircuit(port Port, pins PinMask, oc OutputCircuit) error
	ReadOutputCircuit(port Port, pins PinMask) (OutputCircuit, error)
	SetCurrent(port Port, pins PinMask, current Current) error
	ReadCurrent(port Port, pins PinMask) (Current, error)
	SetAlternateFunction(port Port, pins PinMask, af AlternateFunction) error
	ReadAlternateFunction(port Port, pins PinMask) (AlternateFunction, error)
	SetInterruptTrigger(port Port, pins PinMask, trigger Trigger) error
	ReadInterruptTrigger(port Port, pins PinMask) (Trigger, error)

	UnlockProtection(port Port, pins PinMask, protection Protection) error
	LockProtection(port Port, pins PinMask) error
	ArePinsProtected(port Port, pins PinMask) (bool, error)

	SetPinsUsed(port Port, pins PinMask) error
	SetPinsUnused(port Port, pins PinMask) error
	IsPinUsed(port Port, pins PinMask) (bool, error)

	WriteData(port Port, pins PinMask, data PinMask) error
	ReadData(port Port, pins PinMask) (PinMask, error)
	HighStatePins(port Port, pins PinMask) (PinMask, error)
	LowStatePins(port Port, pins PinMask) (PinMask, error)
	SetPinsState(port Port, pins PinMask, state State) error
	TogglePinsState(port Port, pins PinMask) error

	SetDriverInterruptHandler(port Port, handler InterruptHandler) error
	ClearDriverInterruptHandler(port Port) error

	Init()
	Deinit()
}
