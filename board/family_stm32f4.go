//go:build stm32f4

package board

import "github.com/antongulenko/gpioport/stm32"

var Family = stm32.F4
