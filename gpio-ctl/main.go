package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/antongulenko/golib"
	"github.com/antongulenko/gpioport/board"
	"github.com/antongulenko/gpioport/device"
	"github.com/antongulenko/gpioport/gpio"
	"github.com/antongulenko/gpioport/serialbus"
	"github.com/antongulenko/gpioport/stm32"
	log "github.com/sirupsen/logrus"
)

type commandFunc func() error

var (
	b         = board.DefaultBoard
	sleepTime = 400 * time.Millisecond
	benchTime = 3 * time.Second
	pollTime  = 10 * time.Millisecond
	command   = "dump"
	state     = "high"
	listen    = ""
	commands  = map[string]commandFunc{
		"none":      func() error { return nil },
		"dump":      dump,
		"configure": configure,
		"set":       setState,
		"toggle":    toggle,
		"read":      read,
		"lock":      lock,
		"watch":     watch,
		"bench":     benchToggle,
		"serve":     serve,
	}
)

func main() {
	b.RegisterFlags()
	flag.DurationVar(&sleepTime, "sleep", sleepTime, "Sleep time between simulated input changes (watch command with -dummy)")
	flag.DurationVar(&benchTime, "benchTime", benchTime, "Benchmark time (bench command)")
	flag.DurationVar(&pollTime, "poll", pollTime, "Interval for polling pending interrupts (watch command)")
	flag.StringVar(&command, "c", command, fmt.Sprintf("Command to execute, one of: %v", commandNames()))
	flag.StringVar(&state, "state", state, "Pin state for the set command (high or low)")
	flag.StringVar(&listen, "listen", listen, "Serial device to serve register requests on (serve command)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %v [flags] [key=value ...]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Pins are selected with port=B pin=5 or port=B pins=0x0030; configure accepts")
		fmt.Fprintln(os.Stderr, "mode, pull, speed, output_circuit, current, alternate, protection and interrupt_trigger.")
		flag.PrintDefaults()
	}
	golib.RegisterLogFlags()
	flag.Parse()
	golib.ConfigureLogging()
	golib.Checkerr(doMain())
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func doMain() error {
	commandFunc, ok := commands[command]
	if !ok {
		return fmt.Errorf("Unknown command %v, available commands: %v", command, commandNames())
	}
	if err := b.Setup(); err != nil {
		return err
	}
	defer b.Cleanup()
	return commandFunc()
}

func args() (device.Config, error) {
	return device.ParseArgs(flag.Args())
}

// stopChan is closed on SIGINT or SIGTERM.
func stopChan() <-chan struct{} {
	stop := make(chan struct{})
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Interrupted, stopping...")
		close(stop)
	}()
	return stop
}

func dump() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	f := b.Family()
	bus := b.Bus()
	var out strings.Builder
	dumpReg := func(addr uint32) {
		fmt.Fprintf(&out, "%-14v %08X = %08X\n", f.RegName(addr), addr, bus.Load32(addr))
	}
	for _, offset := range stm32.GPIORegisters() {
		if offset == stm32.BSRR {
			continue // Write-only
		}
		dumpReg(f.Reg(uint8(cfg.Port), offset))
	}
	dumpReg(f.PortClock)
	e := &f.EXTI
	dumpReg(e.Reg(e.IMR))
	dumpReg(e.Reg(e.RTSR))
	dumpReg(e.Reg(e.FTSR))
	if e.SplitPending {
		dumpReg(e.Reg(e.RPR))
		dumpReg(e.Reg(e.FPR))
	} else {
		dumpReg(e.Reg(e.PR))
	}
	for _, addr := range e.Router.Registers() {
		dumpReg(addr)
	}
	fmt.Print(out.String())

	protected, err := b.Driver().ArePinsProtected(cfg.Port, gpio.AllPins)
	if err != nil {
		return err
	}
	log.Printf("Port %v: lock applied: %v, debug pins: %v", cfg.Port, protected, gpio.PinMask(f.DebugPinMask(uint8(cfg.Port))))
	return nil
}

func configure() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	dev, err := b.Devices().Create(cfg)
	if err != nil {
		return err
	}
	status, err := dev.Status()
	if err != nil {
		return err
	}
	log.Println(status)
	if sim := b.Sim(); sim != nil {
		log.Printf("Register writes:\n%v", sim.FormatWrites())
	}
	return nil
}

func setState() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	level := gpio.AllLow
	switch strings.ToLower(state) {
	case "high", "1":
		level = gpio.AllHigh
	case "low", "0":
	default:
		return fmt.Errorf("Invalid -state %q, expected high or low", state)
	}
	return b.Driver().SetPinsState(cfg.Port, cfg.Pins, level)
}

func toggle() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	return b.Driver().TogglePinsState(cfg.Port, cfg.Pins)
}

func read() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	high, err := b.Driver().HighStatePins(cfg.Port, cfg.Pins)
	if err != nil {
		return err
	}
	fmt.Printf("port=%v;pins=%v;high_pins=%v\n", cfg.Port, cfg.Pins, high)
	return nil
}

func lock() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	if err := b.Driver().LockProtection(cfg.Port, cfg.Pins); err != nil {
		return err
	}
	log.Printf("Locked %v until the next reset", cfg.Name())
	return nil
}

func watch() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	cfg.Mode = gpio.ModeInput
	if cfg.Trigger == gpio.TriggerOff {
		cfg.Trigger = gpio.TriggerBothEdges
	}
	cfg.Handler = func(port gpio.Port, pins gpio.PinMask) {
		log.Printf("Interrupt on port %v: %v", port, pins)
	}
	dev, err := b.Devices().Create(cfg)
	if err != nil {
		return err
	}
	defer func() {
		golib.Printerr(dev.Halt())
	}()
	log.Printf("Watching %v, press Ctrl-C to stop", &cfg)

	stop := stopChan()
	if sim := b.Sim(); sim != nil {
		go func() {
			high := true
			for {
				select {
				case <-stop:
					return
				case <-time.After(sleepTime):
					sim.Drive(cfg.Port, cfg.Pins, high)
					high = !high
				}
			}
		}()
	}
	b.PollInterrupts(pollTime, stop)
	return nil
}

func benchToggle() error {
	cfg, err := args()
	if err != nil {
		return err
	}
	cfg.Mode = gpio.ModeOutput
	dev, err := b.Devices().Create(cfg)
	if err != nil {
		return err
	}
	defer func() {
		golib.Printerr(dev.Halt())
	}()
	log.Printf("Measuring toggle rate of %v...", cfg.Name())
	return bench(dev.Toggle)
}

func bench(benchFunc func() error) error {
	start := time.Now()
	for i := 1; ; i++ {
		if err := benchFunc(); err != nil {
			return err
		}
		if i%20 == 0 {
			if duration := time.Now().Sub(start); duration > benchTime {
				log.Printf("%v operations in %v -> %.0f/s", i, duration, float64(i)/duration.Seconds())
				return nil
			}
		}
	}
}

func serve() error {
	if listen == "" {
		return fmt.Errorf("The serve command requires -listen")
	}
	port, err := serialbus.OpenPort(listen, b.Baud, 0)
	if err != nil {
		return err
	}
	stop := stopChan()
	go func() {
		<-stop
		golib.Printerr(port.Close())
	}()
	log.Printf("Serving %v registers on %v", b.Family(), listen)
	return serialbus.Serve(port, b.Bus())
}
