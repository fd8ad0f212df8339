//go:build !stm32f4 && !stm32g0

package board

import "github.com/antongulenko/gpioport/stm32"

// Family is the register layout the binary is built for. Select another one
// with the stm32f4 or stm32g0 build tag.
var Family = stm32.F7
