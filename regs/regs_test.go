package regs

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type memBus struct {
	lock   sync.Mutex
	mem    map[uint32]uint32
	stores int
	err    error
}

func newMemBus() *memBus {
	return &memBus{mem: make(map[uint32]uint32)}
}

func (b *memBus) Load32(addr uint32) uint32 {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.mem[addr]
}

func (b *memBus) Store32(addr uint32, value uint32) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.stores++
	b.mem[addr] = value
}

func (b *memBus) Err() error {
	return b.err
}

func TestFields(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint32(0x00000C00), FieldMask(0x0020, 2))
	assert.Equal(uint32(0xC0000003), FieldMask(0x8001, 2))
	assert.Equal(uint32(0x00000021), FieldMask(0x0021, 1))
	assert.Equal(uint32(0x00F0000F), FieldMask(0x21, 4))

	assert.Equal(uint32(0x00000400), FieldValue(0x0020, 2, 1))
	assert.Equal(uint32(0x00005050), FieldValue(0x00CC, 2, 1))
	assert.Equal(uint32(0x00000400), FieldValue(0x0020, 2, 5), "value is truncated to the field width")

	assert.Equal(uint32(2), Field(0x00000800, 5, 2))
	assert.Equal(uint32(0xA), Field(0xA0000000, 7, 4))

	reg := uint32(0xFFFFFFFF)
	reg = PackField(reg, 0x0030, 2, 1)
	assert.Equal(uint32(0xFFFFF5FF), reg)
}

func TestModify(t *testing.T) {
	assert := assert.New(t)
	bus := newMemBus()
	bus.mem[0x10] = 0xF0F0
	Modify(bus, 0x10, 0xF000, 0x000F)
	assert.Equal(uint32(0x00FF), bus.mem[0x10])
	assert.Equal(1, bus.stores)

	SetBits(bus, 0x10, 0x100)
	ClearBits(bus, 0x10, 0x1)
	assert.Equal(uint32(0x01FE), bus.mem[0x10])
}

func TestErr(t *testing.T) {
	assert := assert.New(t)
	bus := newMemBus()
	assert.NoError(Err(bus))
	bus.err = errors.New("link down")
	assert.Equal(bus.err, Err(bus))
	assert.Equal(bus.err, Err(&Logged{Bus: bus}))
}

func TestLogged(t *testing.T) {
	assert := assert.New(t)
	bus := newMemBus()
	var named []uint32
	l := &Logged{Bus: bus, Name: func(addr uint32) string {
		named = append(named, addr)
		return "REG"
	}}
	l.Store32(4, 42)
	assert.Equal(uint32(42), l.Load32(4))
	assert.Equal([]uint32{4, 4}, named)
}

func TestSequencer(t *testing.T) {
	assert := assert.New(t)
	bus := newMemBus()
	s := NewSequencer(bus, 4)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := uint32(i * 4)
			s.Store32(addr, uint32(i))
			assert.Equal(uint32(i), s.Load32(addr))
		}(i)
	}
	wg.Wait()
	assert.Equal(8, bus.stores)

	req := &Request{Op: OpStore, Addr: 0x40, Value: 7}
	s.Queue(req)
	req.Wait()
	assert.Equal(uint32(7), bus.Load32(0x40))

	bad := &Request{Op: 99}
	s.Request(bad)
	assert.True(bad.done)
	s.Close()
}
