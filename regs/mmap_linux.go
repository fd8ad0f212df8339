//go:build linux && !tinygo

package regs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const DefaultMemDevice = "/dev/mem"

// DevMem maps physical register pages through /dev/mem (or a UIO device) on
// first access. Every access is a single aligned 32-bit load or store.
type DevMem struct {
	path     string
	fd       int
	pageSize uint32

	lock  sync.Mutex
	pages map[uint32][]byte
	err   error
}

func OpenDevMem(path string) (*DevMem, error) {
	if path == "" {
		path = DefaultMemDevice
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open %v: %w", path, err)
	}
	return &DevMem{
		path:     path,
		fd:       fd,
		pageSize: uint32(unix.Getpagesize()),
		pages:    make(map[uint32][]byte),
	}, nil
}

func (m *DevMem) word(addr uint32) *uint32 {
	if addr%4 != 0 {
		m.setErr(fmt.Errorf("Unaligned register address %08X", addr))
		return nil
	}
	base := addr &^ (m.pageSize - 1)
	m.lock.Lock()
	defer m.lock.Unlock()
	page, ok := m.pages[base]
	if !ok {
		var err error
		page, err = unix.Mmap(m.fd, int64(base), int(m.pageSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			if m.err == nil {
				m.err = fmt.Errorf("Failed to map %v at %08X: %w", m.path, base, err)
			}
			return nil
		}
		log.Debugf("Mapped %v page %08X", m.path, base)
		m.pages[base] = page
	}
	return (*uint32)(unsafe.Pointer(&page[addr-base]))
}

func (m *DevMem) setErr(err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.err == nil {
		m.err = err
	}
}

func (m *DevMem) Load32(addr uint32) uint32 {
	if w := m.word(addr); w != nil {
		return atomic.LoadUint32(w)
	}
	return 0
}

func (m *DevMem) Store32(addr uint32, value uint32) {
	if w := m.word(addr); w != nil {
		atomic.StoreUint32(w, value)
	}
}

func (m *DevMem) Err() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.err
}

func (m *DevMem) Close() (err error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for base, page := range m.pages {
		if unmapErr := unix.Munmap(page); unmapErr != nil && err == nil {
			err = unmapErr
		}
		delete(m.pages, base)
	}
	if closeErr := unix.Close(m.fd); err == nil {
		err = closeErr
	}
	return
}
