package combinator

import (
	"fmt"
	"math/bits"
	"strings"
)

const (
	MaskWords = 4              // 64-bit words per mask, raise in steps of one word to grow Capacity
	Capacity  = MaskWords * 64 // Maximum amount of distinct weekly patterns (slots) a combinator can hold
)

type slot = uint16

// Mask is a fixed-width set of slots, one bit per slot
type Mask [MaskWords]uint64

func (mask *Mask) Set(index slot) {
	mask[index>>6] |= 1 << (index & 63)
}

func (mask Mask) Has(index slot) bool {
	return (mask[index>>6]>>(index&63))&1 != 0
}

// Disjoint reports whether both masks share no slot: (a|b) == (a^b) holds word-wise exactly when a&b == 0
func (mask Mask) Disjoint(other Mask) bool {
	for i := range MaskWords {
		if mask[i]|other[i] != mask[i]^other[i] {
			return false
		}
	}
	return true
}

func (mask Mask) Count() int {
	count := 0
	for _, word := range mask {
		count += bits.OnesCount64(word)
	}
	return count
}

func (mask Mask) String() string {
	var builder strings.Builder
	for i := MaskWords - 1; i >= 0; i-- {
		fmt.Fprintf(&builder, "%064b", mask[i])
		if i > 0 {
			builder.WriteByte('|')
		}
	}
	return builder.String()
}
