// Package serialbus reaches the GPIO registers of a target board over a serial
// link. The host side is a regs.Bus that sends one peek or poke report per
// access and waits for the reply; the target side is Serve, which executes the
// reports on its local bus.
package serialbus

import (
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

const DefaultBaud = 115200

var ErrRemoteBus = errors.New("serialbus: target reported a bus error")

// Client is not safe for concurrent use. Wrap it in a regs.Sequencer to share it.
type Client struct {
	port io.ReadWriteCloser
	err  error
}

// OpenPort opens a serial device for either side of the link.
func OpenPort(device string, baud int, timeout time.Duration) (io.ReadWriteCloser, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to open serial port %s: %w", device, err)
	}
	log.Printf("Opened serial port %v (%v baud)", device, baud)
	return port, nil
}

// Open opens the serial device and returns a client for it.
func Open(device string, baud int, timeout time.Duration) (*Client, error) {
	port, err := OpenPort(device, baud, timeout)
	if err != nil {
		return nil, err
	}
	return NewClient(port), nil
}

func NewClient(port io.ReadWriteCloser) *Client {
	return &Client{port: port}
}

// Err returns the first error of the link. After an error every load returns 0
// and every store is dropped.
func (c *Client) Err() error {
	return c.err
}

func (c *Client) fail(err error) {
	if c.err == nil {
		c.err = err
		log.Errorf("Serial register bus failed: %v", err)
	}
}

func (c *Client) Load32(addr uint32) uint32 {
	if c.err != nil {
		return 0
	}
	if err := WriteReport(c.port, &ReportReadRequest{Addr: addr}); err != nil {
		c.fail(err)
		return 0
	}
	var reply ReportReadReply
	if err := ReadReport(c.port, &reply); err != nil {
		c.fail(err)
		return 0
	}
	if err := checkReply(addr, reply.Addr, reply.Status); err != nil {
		c.fail(err)
		return 0
	}
	return reply.Value
}

func (c *Client) Store32(addr uint32, value uint32) {
	if c.err != nil {
		return
	}
	if err := WriteReport(c.port, &ReportWriteRequest{Addr: addr, Value: value}); err != nil {
		c.fail(err)
		return
	}
	var ack ReportWriteAck
	if err := ReadReport(c.port, &ack); err != nil {
		c.fail(err)
		return
	}
	if err := checkReply(addr, ack.Addr, ack.Status); err != nil {
		c.fail(err)
	}
}

func checkReply(requested, replied uint32, status byte) error {
	if replied != requested {
		return fmt.Errorf("serialbus: reply for %08X, expected %08X", replied, requested)
	}
	if status != Status_OK {
		return fmt.Errorf("%w at %08X (status %v)", ErrRemoteBus, requested, status)
	}
	return nil
}

func (c *Client) Close() error {
	return c.port.Close()
}
