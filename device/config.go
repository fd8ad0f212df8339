package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/antongulenko/gpioport/gpio"
)

// Config describes one device: a group of pins of one port and the attributes
// they are configured with at creation.
type Config struct {
	Port          gpio.Port
	Pins          gpio.PinMask
	Mode          gpio.Mode
	Pull          gpio.Pull
	Speed         gpio.Speed
	OutputCircuit gpio.OutputCircuit
	Current       gpio.Current
	Alternate     gpio.AlternateFunction // Only used with ModeAlternate
	Protection    gpio.Protection
	Trigger       gpio.Trigger

	// Handler is registered for the device's pins when set. It requires a Trigger.
	Handler gpio.InterruptHandler
}

var DefaultConfig = Config{
	Port:          0,
	Pins:          gpio.Pins(0),
	Mode:          gpio.ModeInput,
	Pull:          gpio.PullDefault,
	Speed:         gpio.SpeedLow,
	OutputCircuit: gpio.PushPull,
	Current:       gpio.CurrentDefault,
	Protection:    gpio.DontUnlockProtected,
	Trigger:       gpio.TriggerOff,
}

// Name formats the pins like a datasheet: PB5 for one pin, PB[0x0030] for several.
func (c *Config) Name() string {
	if c.Pins.Count() == 1 {
		pin, _ := c.Pins.Lowest()
		return gpio.PinName(c.Port, pin)
	}
	return fmt.Sprintf("P%v[%v]", c.Port, c.Pins)
}

func (c *Config) String() string {
	s := fmt.Sprintf("%v mode=%v pull=%v speed=%v output_circuit=%v", c.Name(), c.Mode, c.Pull, c.Speed, c.OutputCircuit)
	if c.Current != gpio.CurrentDefault {
		s += fmt.Sprintf(" current=%v", c.Current)
	}
	if c.Mode == gpio.ModeAlternate {
		s += fmt.Sprintf(" alternate=%v", c.Alternate)
	}
	if c.Trigger != gpio.TriggerOff {
		s += fmt.Sprintf(" interrupt_trigger=%v", c.Trigger)
	}
	if c.Protection != gpio.DontUnlockProtected {
		s += fmt.Sprintf(" protection=%v", c.Protection)
	}
	return s
}

// ParseConfig builds a Config from key/value pairs, starting from DefaultConfig.
// Keys: port, pin, pins, mode, pull, speed, output_circuit, current, alternate,
// protection, interrupt_trigger.
func ParseConfig(values map[string]string) (Config, error) {
	cfg := DefaultConfig
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var err error
	for _, key := range keys {
		val := values[key]
		switch strings.ToLower(key) {
		case "port":
			cfg.Port, err = gpio.ParsePort(val)
		case "pin", "pins":
			cfg.Pins, err = gpio.ParsePinMask(val)
		case "mode":
			cfg.Mode, err = gpio.ParseMode(val)
		case "pull":
			cfg.Pull, err = gpio.ParsePull(val)
		case "speed":
			cfg.Speed, err = gpio.ParseSpeed(val)
		case "output_circuit", "circuit":
			cfg.OutputCircuit, err = gpio.ParseOutputCircuit(val)
		case "current":
			cfg.Current, err = gpio.ParseCurrent(val)
		case "alternate", "af":
			var af uint64
			af, err = strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(val), "AF"), 10, 8)
			if err == nil && !gpio.AlternateFunction(af).Valid() {
				err = fmt.Errorf("%w: alternate function %v", gpio.ErrInvalidValue, af)
			}
			cfg.Alternate = gpio.AlternateFunction(af)
		case "protection":
			cfg.Protection, err = gpio.ParseProtection(val)
		case "interrupt_trigger", "trigger":
			cfg.Trigger, err = gpio.ParseTrigger(val)
		default:
			err = fmt.Errorf("Unknown GPIO configuration key %q", key)
		}
		if err != nil {
			return cfg, fmt.Errorf("%v=%v: %w", key, val, err)
		}
	}
	return cfg, nil
}

// ParseArgs parses "key=value" strings, e.g. command line arguments.
func ParseArgs(args []string) (Config, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		for _, field := range strings.FieldsFunc(arg, func(r rune) bool { return r == ';' || r == ' ' }) {
			parts := strings.SplitN(field, "=", 2)
			if len(parts) != 2 {
				return DefaultConfig, fmt.Errorf("Expected key=value, got %q", field)
			}
			values[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return ParseConfig(values)
}
