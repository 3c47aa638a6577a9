package direwolf

import (
	"fmt"
	"runtime"
)

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// Can't be "assert" because of conflicts with stretchr/testify/assert, but otherwise, it's compatible enough
func Assert(t bool) {
	if !t {
		_, file, line, _ := runtime.Caller(1)
		panic(fmt.Sprintf("Assertion failed at %s:%d", file, line))
	}
}

/* Own copy of random number generator so we can get */
/* same predictable results on different operating systems. */

const recvRandMax int32 = 0x7fffffff

type recvRand struct {
	seed int32
}

func (r *recvRand) next() int32 {
	r.seed = int32((uint32(r.seed)*1103515245)+12345) & recvRandMax
	return r.seed
}
