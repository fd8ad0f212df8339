package stm32

// ============== GPIO port block
// MODER: 2 bits per pin. 00: input 01: output 10: alternate function 11: analog
// OTYPER: 1 bit per pin. 0: push-pull 1: open-drain
// OSPEEDR: 2 bits per pin. 00: low 01: medium 10: high 11: very high
// PUPDR: 2 bits per pin. 00: none 01: pull-up 10: pull-down 11: reserved
// IDR: (read only) input levels of the pins
// ODR: output latches. Read-modify-write is not atomic, use BSRR.
// BSRR: (write only) bits 0-15 set ODR bits, bits 16-31 reset ODR bits. Set wins over reset.
// LCKR: bits 0-15 lock the configuration of a pin, bit 16 (LCKK) is the lock key.
//       Written in the sequence LCKK=1, LCKK=0, LCKK=1 with unchanged bits 0-15, the
//       configuration is frozen until the next reset.
// AFRL/AFRH: 4 bits per pin, alternate function 0-15. AFRL: pins 0-7, AFRH: pins 8-15.

// Register offsets inside a GPIO port block
const (
	MODER = uint32(iota * 4)
	OTYPER
	OSPEEDR
	PUPDR
	IDR
	ODR
	BSRR
	LCKR
	AFRL
	AFRH

	GPIOBlockSize = AFRH + 4
)

const (
	MODER_INPUT = uint32(iota)
	MODER_OUTPUT
	MODER_AF
	MODER_ANALOG
)

const (
	OTYPER_PP = uint32(iota)
	OTYPER_OD
)

const (
	OSPEEDR_LOW = uint32(iota)
	OSPEEDR_MEDIUM
	OSPEEDR_HIGH
	OSPEEDR_VERY_HIGH
)

const (
	PUPDR_NONE = uint32(iota)
	PUPDR_UP
	PUPDR_DOWN
)

const (
	LCKR_LCKK = uint32(1 << 16)

	BSRR_RESET_SHIFT = 16
)

// Field widths of the per-pin register encodings
const (
	ModeFieldWidth      = 2
	SpeedFieldWidth     = 2
	PullFieldWidth      = 2
	CircuitFieldWidth   = 1
	AlternateFieldWidth = 4
)

// AFR returns the alternate function register offset and the bit position of a pin's field.
func AFR(pin uint8) (offset uint32, shift uint32) {
	if pin < 8 {
		return AFRL, uint32(pin) * AlternateFieldWidth
	}
	return AFRH, uint32(pin-8) * AlternateFieldWidth
}
