package serialbus

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	ReportID_Read      = 0xA0 // Host -> target
	ReportID_ReadReply = 0xA1 // Target -> host
	ReportID_Write     = 0xB0 // Host -> target
	ReportID_WriteAck  = 0xB1 // Target -> host
)

const (
	Status_OK = byte(iota)
	Status_BusError
)

// Every report starts with its ID byte. Multi-byte fields are little endian.

type ReportIn interface {
	Unmarshall(data []byte) error
	ReportID() byte
	ReportLen() int
}

type ReportOut interface {
	Marshall(data []byte) error
	ReportID() byte
	ReportLen() int
}

type ReportReadRequest struct {
	Addr uint32
}

func (r *ReportReadRequest) ReportID() byte { return ReportID_Read }
func (r *ReportReadRequest) ReportLen() int { return 5 }

func (r *ReportReadRequest) Marshall(b []byte) error {
	binary.LittleEndian.PutUint32(b[1:], r.Addr)
	return nil
}

func (r *ReportReadRequest) Unmarshall(b []byte) error {
	r.Addr = binary.LittleEndian.Uint32(b[1:])
	return nil
}

type ReportReadReply struct {
	Addr   uint32
	Value  uint32
	Status byte
}

func (r *ReportReadReply) ReportID() byte { return ReportID_ReadReply }
func (r *ReportReadReply) ReportLen() int { return 10 }

func (r *ReportReadReply) Marshall(b []byte) error {
	binary.LittleEndian.PutUint32(b[1:], r.Addr)
	binary.LittleEndian.PutUint32(b[5:], r.Value)
	b[9] = r.Status
	return nil
}

func (r *ReportReadReply) Unmarshall(b []byte) error {
	r.Addr = binary.LittleEndian.Uint32(b[1:])
	r.Value = binary.LittleEndian.Uint32(b[5:])
	r.Status = b[9]
	return nil
}

type ReportWriteRequest struct {
	Addr  uint32
	Value uint32
}

func (r *ReportWriteRequest) ReportID() byte { return ReportID_Write }
func (r *ReportWriteRequest) ReportLen() int { return 9 }

func (r *ReportWriteRequest) Marshall(b []byte) error {
	binary.LittleEndian.PutUint32(b[1:], r.Addr)
	binary.LittleEndian.PutUint32(b[5:], r.Value)
	return nil
}

func (r *ReportWriteRequest) Unmarshall(b []byte) error {
	r.Addr = binary.LittleEndian.Uint32(b[1:])
	r.Value = binary.LittleEndian.Uint32(b[5:])
	return nil
}

type ReportWriteAck struct {
	Addr   uint32
	Status byte
}

func (r *ReportWriteAck) ReportID() byte { return ReportID_WriteAck }
func (r *ReportWriteAck) ReportLen() int { return 6 }

func (r *ReportWriteAck) Marshall(b []byte) error {
	binary.LittleEndian.PutUint32(b[1:], r.Addr)
	b[5] = r.Status
	return nil
}

func (r *ReportWriteAck) Unmarshall(b []byte) error {
	r.Addr = binary.LittleEndian.Uint32(b[1:])
	r.Status = b[5]
	return nil
}

func WriteReport(w io.Writer, report ReportOut) error {
	data := make([]byte, report.ReportLen())
	data[0] = report.ReportID()
	if err := report.Marshall(data); err != nil {
		return err
	}
	n, err := w.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("serialbus: wrong write len (%v instead of %v)", n, len(data))
	}
	return err
}

// ReadReport reads one complete report and fails if its ID is not the expected one.
func ReadReport(r io.Reader, report ReportIn) error {
	data := make([]byte, report.ReportLen())
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	if data[0] != report.ReportID() {
		return fmt.Errorf("Unexpected report id (expected %02X, received %02X)", report.ReportID(), data[0])
	}
	return report.Unmarshall(data)
}

// readRequest reads the ID byte and the rest of whichever request it announces.
func readRequest(r io.Reader) (ReportIn, error) {
	var id [1]byte
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, err
	}
	var report ReportIn
	switch id[0] {
	case ReportID_Read:
		report = new(ReportReadRequest)
	case ReportID_Write:
		report = new(ReportWriteRequest)
	default:
		return nil, fmt.Errorf("Unexpected request report id %02X", id[0])
	}
	data := make([]byte, report.ReportLen())
	data[0] = id[0]
	if _, err := io.ReadFull(r, data[1:]); err != nil {
		return nil, err
	}
	return report, report.Unmarshall(data)
}
