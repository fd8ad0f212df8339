// Package gpio holds the vocabulary shared by all GPIO port drivers: port and
// pin identifiers, pin masks, the electrical attributes of a pin and the
// PortDriver contract that every MCU family implements.
//
// Every attribute type has a Default value. Passing Default to a setter means
// "leave the hardware unchanged" and is never an error.
package gpio

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

const (
	// MaxPorts is the largest number of ports any supported family exposes (A..K).
	MaxPorts = 11

	// PinsPerPort is fixed by the hardware.
	PinsPerPort = 16

	AllPins = PinMask(0xFFFF)
)

// Port selects one GPIO bank, 0 = A, 1 = B, ...
type Port uint8

func (p Port) String() string {
	if p < MaxPorts {
		return string(rune('A' + p))
	}
	return fmt.Sprintf("Port(%d)", uint8(p))
}

func ParsePort(s string) (Port, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "GPIO")
	if len(s) == 1 && s[0] >= 'A' && s[0] < 'A'+MaxPorts {
		return Port(s[0] - 'A'), nil
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && n < MaxPorts {
		return Port(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
}

// Pin is a pin number inside a port, 0..15.
type Pin uint8

func (p Pin) Valid() bool {
	return p < PinsPerPort
}

// Mask returns the single-pin mask, or 0 for an invalid pin.
func (p Pin) Mask() PinMask {
	if !p.Valid() {
		return 0
	}
	return PinMask(1) << p
}

// PinMask selects pins of one port: bit i set <=> pin i selected.
type PinMask uint16

func Pins(pins ...Pin) (m PinMask) {
	for _, p := range pins {
		m |= p.Mask()
	}
	return
}

func (m PinMask) Has(p Pin) bool {
	return p.Valid() && m&(1<<p) != 0
}

func (m PinMask) Count() int {
	return bits.OnesCount16(uint16(m))
}

// Lowest returns the lowest selected pin. ok is false for an empty mask.
func (m PinMask) Lowest() (p Pin, ok bool) {
	if m == 0 {
		return 0, false
	}
	return Pin(bits.TrailingZeros16(uint16(m))), true
}

// Each calls f for every selected pin, lowest first.
func (m PinMask) Each(f func(p Pin)) {
	for v := uint16(m); v != 0; v &= v - 1 {
		f(Pin(bits.TrailingZeros16(v)))
	}
}

func (m PinMask) String() string {
	return fmt.Sprintf("0x%04X", uint16(m))
}

// ParsePinMask accepts a single pin number ("5") or a mask ("0x0020").
func ParsePinMask(s string) (PinMask, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 16)
		if err != nil || v == 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPins, s)
		}
		return PinMask(v), nil
	}
	var m PinMask
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil || !Pin(n).Valid() {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPins, s)
		}
		m |= Pin(n).Mask()
	}
	return m, nil
}

// PinName formats a pin the way datasheets do, e.g. PB5.
func PinName(port Port, pin Pin) string {
	return fmt.Sprintf("P%v%d", port, pin)
}

type Mode uint8

const (
	ModeDefault Mode = iota
	ModeInput
	ModeOutput
	ModeAlternate
	ModeAnalog
)

var modeNames = []string{"default", "input", "output", "alternate", "analog"}

func (m Mode) String() string { return enumName(modeNames, uint8(m)) }
func (m Mode) Valid() bool    { return int(m) < len(modeNames) }

func ParseMode(s string) (Mode, error) {
	v, err := parseEnum("mode", modeNames, s, nil)
	return Mode(v), err
}

type Pull uint8

const (
	PullDefault Pull = iota
	PullNone
	PullUp
	PullDown
)

var pullNames = []string{"default", "none", "up", "down"}

func (p Pull) String() string { return enumName(pullNames, uint8(p)) }
func (p Pull) Valid() bool    { return int(p) < len(pullNames) }

func ParsePull(s string) (Pull, error) {
	v, err := parseEnum("pull", pullNames, s, map[string]uint8{"float": uint8(PullNone)})
	return Pull(v), err
}

// Speed is ordered: Low < Medium < High < VeryHigh.
type Speed uint8

const (
	SpeedDefault Speed = iota
	SpeedLow
	SpeedMedium
	SpeedHigh
	SpeedVeryHigh
)

var speedNames = []string{"default", "low", "medium", "high", "very_high"}

func (s Speed) String() string { return enumName(speedNames, uint8(s)) }
func (s Speed) Valid() bool    { return int(s) < len(speedNames) }

func ParseSpeed(s string) (Speed, error) {
	v, err := parseEnum("speed", speedNames, s, map[string]uint8{
		"minimum": uint8(SpeedLow),
		"maximum": uint8(SpeedVeryHigh),
	})
	return Speed(v), err
}

type OutputCircuit uint8

const (
	OutputCircuitDefault OutputCircuit = iota
	PushPull
	OpenDrain
)

var circuitNames = []string{"default", "push_pull", "open_drain"}

func (c OutputCircuit) String() string { return enumName(circuitNames, uint8(c)) }
func (c OutputCircuit) Valid() bool    { return int(c) < len(circuitNames) }

func ParseOutputCircuit(s string) (OutputCircuit, error) {
	v, err := parseEnum("output circuit", circuitNames, s, nil)
	return OutputCircuit(v), err
}

// Current is the output drive strength. Families without a drive strength
// register accept every value and report CurrentDefault.
type Current uint8

const (
	CurrentDefault Current = iota
	CurrentMinimum
	CurrentMedium
	CurrentMaximum
)

var currentNames = []string{"default", "minimum", "medium", "maximum"}

func (c Current) String() string { return enumName(currentNames, uint8(c)) }
func (c Current) Valid() bool    { return int(c) < len(currentNames) }

func ParseCurrent(s string) (Current, error) {
	v, err := parseEnum("current", currentNames, s, nil)
	return Current(v), err
}

// AlternateFunction selects one of the 16 peripheral functions of a pin.
type AlternateFunction uint8

func (af AlternateFunction) Valid() bool {
	return af < 16
}

// Trigger is a set of interrupt conditions. Edge bits combine freely; level
// bits are only accepted by controllers that support level detection.
type Trigger uint8

const (
	TriggerOff         Trigger = 0
	TriggerRisingEdge  Trigger = 1 << 0
	TriggerFallingEdge Trigger = 1 << 1
	TriggerHighLevel   Trigger = 1 << 2
	TriggerLowLevel    Trigger = 1 << 3

	TriggerBothEdges  = TriggerRisingEdge | TriggerFallingEdge
	TriggerBothLevels = TriggerHighLevel | TriggerLowLevel

	triggerAll = TriggerBothEdges | TriggerBothLevels
)

func (t Trigger) Edges() Trigger  { return t & TriggerBothEdges }
func (t Trigger) Levels() Trigger { return t & TriggerBothLevels }
func (t Trigger) Valid() bool     { return t&^triggerAll == 0 }

var triggerNames = []struct {
	t    Trigger
	name string
}{
	{TriggerBothEdges, "both_edges"},
	{TriggerBothLevels, "both_levels"},
	{TriggerRisingEdge, "rising"},
	{TriggerFallingEdge, "falling"},
	{TriggerHighLevel, "high"},
	{TriggerLowLevel, "low"},
}

func (t Trigger) String() string {
	if t == TriggerOff {
		return "off"
	}
	var parts []string
	rest := t
	for _, n := range triggerNames {
		if rest&n.t == n.t {
			parts = append(parts, n.name)
			rest &^= n.t
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseTrigger accepts names joined by '|', e.g. "rising|falling".
func ParseTrigger(s string) (Trigger, error) {
	var t Trigger
	for _, part := range strings.Split(strings.ToLower(s), "|") {
		part = strings.TrimSpace(part)
		if part == "off" || part == "default" || part == "" {
			continue
		}
		found := false
		for _, n := range triggerNames {
			if n.name == part {
				t |= n.t
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown interrupt trigger %q", ErrInvalidValue, part)
		}
	}
	return t, nil
}

// Protection is the policy for pins the family reserves for debugging (SWD/JTAG).
// It never reverses a hardware lock.
type Protection uint8

const (
	DontUnlockProtected Protection = iota
	UnlockProtected
)

func (p Protection) String() string {
	if p == UnlockProtected {
		return "unlock"
	}
	return "dont_unlock"
}

func ParseProtection(s string) (Protection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dont_unlock", "locked", "keep":
		return DontUnlockProtected, nil
	case "unlock", "unlocked":
		return UnlockProtected, nil
	}
	return 0, fmt.Errorf("%w: unknown protection %q", ErrInvalidValue, s)
}

// State is the target level of SetPinsState.
type State uint8

const (
	AllLow State = iota
	AllHigh
)

func (s State) String() string {
	if s == AllHigh {
		return "high"
	}
	return "low"
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return strconv.Itoa(int(v))
}

func parseEnum(what string, names []string, s string, aliases map[string]uint8) (uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	if v, ok := aliases[s]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: unknown %v %q", ErrInvalidValue, what, s)
}
