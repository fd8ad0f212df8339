package stm32

import "fmt"

var gpioRegNames = []string{"MODER", "OTYPER", "OSPEEDR", "PUPDR", "IDR", "ODR", "BSRR", "LCKR", "AFRL", "AFRH"}

// GPIORegisters lists the offsets of a port block in address order.
func GPIORegisters() []uint32 {
	offsets := make([]uint32, len(gpioRegNames))
	for i := range offsets {
		offsets[i] = uint32(i * 4)
	}
	return offsets
}

// RegName returns a readable name for an address, e.g. "GPIOB_MODER" or "EXTI_PR".
// Unknown addresses are formatted in hex.
func (f *Family) RegName(addr uint32) string {
	if port, offset, ok := f.PortOf(addr); ok && offset < GPIOBlockSize {
		return fmt.Sprintf("GPIO%c_%s", 'A'+port, gpioRegNames[offset/4])
	}
	switch addr {
	case f.PortClock:
		return "RCC_PORTEN"
	case f.RouterClock:
		if f.HasRouterClock() {
			return "RCC_APB2ENR"
		}
	}
	e := &f.EXTI
	names := map[uint32]string{
		e.Reg(e.IMR):   "EXTI_IMR",
		e.Reg(e.EMR):   "EXTI_EMR",
		e.Reg(e.RTSR):  "EXTI_RTSR",
		e.Reg(e.FTSR):  "EXTI_FTSR",
		e.Reg(e.SWIER): "EXTI_SWIER",
	}
	if e.SplitPending {
		names[e.Reg(e.RPR)] = "EXTI_RPR"
		names[e.Reg(e.FPR)] = "EXTI_FPR"
	} else {
		names[e.Reg(e.PR)] = "EXTI_PR"
	}
	for i, reg := range e.Router.Registers() {
		names[reg] = fmt.Sprintf("EXTICR%d", i+1)
	}
	if name, ok := names[addr]; ok {
		return name
	}
	if addr >= NVIC_ISER && addr < NVIC_ISER+0x20 {
		return fmt.Sprintf("NVIC_ISER%d", (addr-NVIC_ISER)/4)
	}
	if addr >= NVIC_ICER && addr < NVIC_ICER+0x20 {
		return fmt.Sprintf("NVIC_ICER%d", (addr-NVIC_ICER)/4)
	}
	return fmt.Sprintf("0x%08X", addr)
}
