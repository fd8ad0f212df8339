package stm32

// ============== EXTI controller
// IMR: 1: interrupt request of the line is not masked
// RTSR/FTSR: 1: rising/falling edge sets the pending bit of the line
// SWIER: writing 1 sets the pending bit of a line (software interrupt)
// PR: pending bits, cleared by writing 1. Writing back the value just read clears
//     exactly those lines and leaves lines that became pending meanwhile untouched.
// G0 splits PR into RPR (rising) and FPR (falling), both cleared by writing 1.
//
// The EXTI of every family detects edges only, there is no level trigger.
//
// EXTI line N is shared by pin N of every port. The router (EXTICR registers)
// selects which port drives the line.

// EXTI is the layout of the external interrupt controller. Offsets are relative to Base.
type EXTI struct {
	Base  uint32
	IMR   uint32
	EMR   uint32
	RTSR  uint32
	FTSR  uint32
	SWIER uint32

	// Single pending register, used when SplitPending is false.
	PR uint32

	// Separate rising/falling pending registers.
	SplitPending bool
	RPR          uint32
	FPR          uint32

	Router Router
}

func (e *EXTI) Reg(offset uint32) uint32 {
	return e.Base + offset
}

// PendingRegs returns the addresses of all pending registers.
func (e *EXTI) PendingRegs() []uint32 {
	if e.SplitPending {
		return []uint32{e.Reg(e.RPR), e.Reg(e.FPR)}
	}
	return []uint32{e.Reg(e.PR)}
}

// Every EXTICR register routes 4 lines, the unused upper bits are reserved on F4/F7.
const LinesPerRouterReg = 4

// Router is the layout of the EXTICR registers mapping EXTI lines to ports.
type Router struct {
	Base        uint32 // address of EXTICR1
	BitsPerLine uint32 // 4 on F4/F7, 8 on G0
}

// Locate returns the EXTICR register address, bit position and field mask of a line.
func (r Router) Locate(line uint8) (addr uint32, shift uint32, mask uint32) {
	addr = r.Base + (uint32(line)/LinesPerRouterReg)*4
	shift = (uint32(line) % LinesPerRouterReg) * r.BitsPerLine
	mask = (uint32(1)<<r.BitsPerLine - 1) << shift
	return
}

// Registers returns the addresses of all EXTICR registers covering 16 lines.
func (r Router) Registers() []uint32 {
	regs := make([]uint32, 16/LinesPerRouterReg)
	for i := range regs {
		regs[i] = r.Base + uint32(i)*4
	}
	return regs
}

var f4f7EXTI = EXTI{
	Base:  0x40013C00,
	IMR:   0x00,
	EMR:   0x04,
	RTSR:  0x08,
	FTSR:  0x0C,
	SWIER: 0x10,
	PR:    0x14,
	Router: Router{
		Base:        f4f7SYSCFG + 0x08,
		BitsPerLine: 4,
	},
}

var g0EXTI = EXTI{
	Base:         0x40021800,
	RTSR:         0x00,
	FTSR:         0x04,
	SWIER:        0x08,
	SplitPending: true,
	RPR:          0x0C,
	FPR:          0x10,
	IMR:          0x80,
	EMR:          0x84,
	Router: Router{
		Base:        0x40021800 + 0x60,
		BitsPerLine: 8,
	},
}

// ============== NVIC
// ISER: writing 1 enables an IRQ, ICER: writing 1 disables it. Both read the enabled IRQs.
// Several EXTI lines share one IRQ on every family.

const (
	NVIC_ISER = uint32(0xE000E100)
	NVIC_ICER = uint32(0xE000E180)
)

// NVIC maps EXTI lines to IRQ numbers.
type NVIC struct {
	LineIRQ [16]uint32
}

// Enable returns the ISER address and bit for an IRQ.
func (n *NVIC) Enable(irq uint32) (addr uint32, bit uint32) {
	return NVIC_ISER + (irq/32)*4, 1 << (irq % 32)
}

// Disable returns the ICER address and bit for an IRQ.
func (n *NVIC) Disable(irq uint32) (addr uint32, bit uint32) {
	return NVIC_ICER + (irq/32)*4, 1 << (irq % 32)
}

// SharedLines returns all lines that raise the same IRQ as line.
func (n *NVIC) SharedLines(line uint8) (lines uint16) {
	irq := n.LineIRQ[line]
	for l, other := range n.LineIRQ {
		if other == irq {
			lines |= 1 << uint(l)
		}
	}
	return
}

// EXTI0..4 have their own IRQ (6..10), EXTI9_5 = 23, EXTI15_10 = 40
var f4f7NVIC = NVIC{
	LineIRQ: [16]uint32{6, 7, 8, 9, 10, 23, 23, 23, 23, 23, 40, 40, 40, 40, 40, 40},
}

// EXTI0_1 = 5, EXTI2_3 = 6, EXTI4_15 = 7
var g0NVIC = NVIC{
	LineIRQ: [16]uint32{5, 5, 6, 6, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7, 7},
}
