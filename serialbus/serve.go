package serialbus

import (
	"errors"
	"io"

	"github.com/antongulenko/gpioport/regs"
	log "github.com/sirupsen/logrus"
)

// Serve executes the requests arriving on rw against bus and replies to each of
// them, until rw reaches EOF or fails. An error of bus is reported to the host
// in the status byte and does not end the loop.
func Serve(rw io.ReadWriter, bus regs.Bus) error {
	for {
		request, err := readRequest(rw)
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}

		var reply ReportOut
		switch r := request.(type) {
		case *ReportReadRequest:
			value := bus.Load32(r.Addr)
			reply = &ReportReadReply{Addr: r.Addr, Value: value, Status: status(bus)}
			log.Debugf("serialbus: load %08X = %08X", r.Addr, value)
		case *ReportWriteRequest:
			bus.Store32(r.Addr, r.Value)
			reply = &ReportWriteAck{Addr: r.Addr, Status: status(bus)}
			log.Debugf("serialbus: store %08X = %08X", r.Addr, r.Value)
		}
		if err := WriteReport(rw, reply); err != nil {
			return err
		}
	}
}

func status(bus regs.Bus) byte {
	if err := regs.Err(bus); err != nil {
		return Status_BusError
	}
	return Status_OK
}
