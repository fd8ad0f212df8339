package regs

// Per-pin register fields: pin i occupies bits [i*width, (i+1)*width).

// FieldMask returns the register bits covered by the fields of pins.
func FieldMask(pins uint16, width uint32) uint32 {
	return FieldValue(pins, width, 1<<width-1)
}

// FieldValue replicates value into the field of every selected pin.
func FieldValue(pins uint16, width uint32, value uint32) (res uint32) {
	value &= 1<<width - 1
	for i := uint32(0); pins != 0; i++ {
		if pins&1 != 0 {
			res |= value << (i * width)
		}
		pins >>= 1
	}
	return
}

// Field extracts the field of one pin.
func Field(reg uint32, pin uint8, width uint32) uint32 {
	return reg >> (uint32(pin) * width) & (1<<width - 1)
}

// PackField replaces the fields of pins in reg with value.
func PackField(reg uint32, pins uint16, width uint32, value uint32) uint32 {
	return reg&^FieldMask(pins, width) | FieldValue(pins, width, value)
}
