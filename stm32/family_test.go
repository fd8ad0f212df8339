package stm32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGPIOAddresses(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint32(0x40020000), F7.GPIO(0))
	assert.Equal(uint32(0x40020400), F7.GPIO(1))
	assert.Equal(uint32(0x40022818), F7.Reg(10, BSRR))
	assert.Equal(uint32(0x50000414), G0.Reg(1, ODR))
	assert.Equal(uint32(0x28), GPIOBlockSize)

	port, offset, ok := F4.PortOf(0x40020C1C)
	assert.True(ok)
	assert.Equal(uint8(3), port)
	assert.Equal(LCKR, offset)

	_, _, ok = F4.PortOf(F4.GPIO(9))
	assert.False(ok, "F4 has no port J")
	_, _, ok = G0.PortOf(0x40020000)
	assert.False(ok)
}

func TestAFR(t *testing.T) {
	assert := assert.New(t)
	off, shift := AFR(5)
	assert.Equal(AFRL, off)
	assert.Equal(uint32(20), shift)
	off, shift = AFR(9)
	assert.Equal(AFRH, off)
	assert.Equal(uint32(4), shift)
}

func TestRouterLocate(t *testing.T) {
	assert := assert.New(t)

	addr, shift, mask := F7.EXTI.Router.Locate(5)
	assert.Equal(uint32(0x4001380C), addr, "EXTICR2")
	assert.Equal(uint32(4), shift)
	assert.Equal(uint32(0xF0), mask)

	addr, shift, mask = G0.EXTI.Router.Locate(5)
	assert.Equal(uint32(0x40021864), addr, "EXTICR2")
	assert.Equal(uint32(8), shift)
	assert.Equal(uint32(0xFF00), mask)

	assert.Len(F4.EXTI.Router.Registers(), 4)
	assert.Len(G0.EXTI.Router.Registers(), 4)
}

func TestNVIC(t *testing.T) {
	assert := assert.New(t)
	n := &F7.NVIC
	assert.Equal(uint32(23), n.LineIRQ[7])
	assert.Equal(uint16(0x03E0), n.SharedLines(5))
	assert.Equal(uint16(0xFC00), n.SharedLines(12))
	assert.Equal(uint16(0x0001), n.SharedLines(0))

	addr, bit := n.Enable(40)
	assert.Equal(uint32(0xE000E104), addr)
	assert.Equal(uint32(1<<8), bit)
	addr, bit = n.Disable(6)
	assert.Equal(NVIC_ICER, addr)
	assert.Equal(uint32(1<<6), bit)

	assert.Equal(uint16(0xFFF0), G0.NVIC.SharedLines(4))
}

func TestFamilies(t *testing.T) {
	assert := assert.New(t)
	f, err := ByName("STM32F4")
	assert.NoError(err)
	assert.Equal(F4, f)
	_, err = ByName("stm32h7")
	assert.Error(err)

	assert.True(F7.HasRouterClock())
	assert.False(G0.HasRouterClock())
	assert.Equal(uint16(0xE000), F7.DebugPinMask(0))
	assert.Equal(uint16(0x0018), F7.DebugPinMask(1))
	assert.Equal(uint16(0), G0.DebugPinMask(1))
}

func TestRegName(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("GPIOB_MODER", F7.RegName(F7.GPIO(1)))
	assert.Equal("GPIOA_LCKR", F7.RegName(F7.Reg(0, LCKR)))
	assert.Equal("EXTI_PR", F7.RegName(0x40013C14))
	assert.Equal("EXTI_FPR", G0.RegName(0x40021810))
	assert.Equal("EXTICR3", F4.RegName(0x40013810))
	assert.Equal("RCC_APB2ENR", F4.RegName(f4f7APB2ENR))
	assert.Equal("RCC_PORTEN", G0.RegName(g0IOPENR))
	assert.Equal("NVIC_ISER1", F7.RegName(0xE000E104))
	assert.Equal("0x12345678", F7.RegName(0x12345678))
}
