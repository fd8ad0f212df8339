package regs

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	OpLoad = iota + 1
	OpStore
)

type Request struct {
	Op    int
	Addr  uint32
	Value uint32 // Written for OpStore, result of OpLoad

	done bool
	wait *sync.Cond
}

func (r *Request) init() {
	r.wait = &sync.Cond{L: new(sync.Mutex)}
}

func (r *Request) Wait() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	for !r.done {
		r.wait.Wait()
	}
}

func (r *Request) notifyDone() {
	r.wait.L.Lock()
	defer r.wait.L.Unlock()
	r.done = true
	r.wait.Broadcast()
}

// Sequencer serializes the accesses of several goroutines to a bus that cannot
// handle concurrent transactions, like a serial link. One goroutine executes all
// requests in queue order.
type Sequencer struct {
	bus   Bus
	queue chan *Request
	close sync.Once
}

func NewSequencer(bus Bus, queueLen int) *Sequencer {
	s := &Sequencer{
		bus:   bus,
		queue: make(chan *Request, queueLen),
	}
	go s.handleRequests()
	return s
}

func (s *Sequencer) handleRequests() {
	for req := range s.queue {
		switch req.Op {
		case OpLoad:
			req.Value = s.bus.Load32(req.Addr)
		case OpStore:
			s.bus.Store32(req.Addr, req.Value)
		default:
			log.Errorln("Ignoring invalid register request with type", req.Op)
		}
		req.notifyDone()
	}
}

// Queue submits a request without waiting for it.
func (s *Sequencer) Queue(req *Request) {
	req.init()
	s.queue <- req
}

func (s *Sequencer) Request(req *Request) {
	s.Queue(req)
	req.Wait()
}

func (s *Sequencer) Load32(addr uint32) uint32 {
	req := &Request{
		Op:   OpLoad,
		Addr: addr,
	}
	s.Request(req)
	return req.Value
}

func (s *Sequencer) Store32(addr uint32, value uint32) {
	s.Request(&Request{
		Op:    OpStore,
		Addr:  addr,
		Value: value,
	})
}

func (s *Sequencer) Err() error {
	return Err(s.bus)
}

// Close stops the sequencer goroutine after the queued requests are done.
func (s *Sequencer) Close() {
	s.close.Do(func() {
		close(s.queue)
	})
}
