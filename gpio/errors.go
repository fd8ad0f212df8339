package gpio

import "errors"

// Caller validation errors
var (
	ErrInvalidPort   = errors.New("gpio: invalid port")
	ErrInvalidPins   = errors.New("gpio: invalid or empty pin mask")
	ErrInvalidValue  = errors.New("gpio: invalid attribute value")
	ErrNoSession     = errors.New("gpio: no configuration session open for these pins")
	ErrSessionActive = errors.New("gpio: configuration session already open on port")
	ErrPinsInUse     = errors.New("gpio: pins already in use")
)

// Hardware contract errors
var (
	ErrPinsLocked         = errors.New("gpio: pins are locked until reset")
	ErrPinsProtected      = errors.New("gpio: pins are protected")
	ErrUnsupportedTrigger = errors.New("gpio: interrupt trigger not supported by this family")
	ErrLockFailed         = errors.New("gpio: lock sequence was not confirmed by hardware")
)

// Resource errors
var (
	ErrHandlerAlreadySet = errors.New("gpio: interrupt handler already registered for port")
	ErrHandlerTableFull  = errors.New("gpio: interrupt handler table full")
)
