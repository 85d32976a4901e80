package memoize

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// maxKeyLen bounds derived key length; longer argument reprs collapse to a
// digest so backends with key-size limits stay happy.
const maxKeyLen = 256

// Key derives an argument-sensitive cache key for a function call:
// "{fn}-{repr of args}". The repr uses the default Go formatting of each
// argument, so two calls with equal (printable) arguments map to the same
// key. Keys exceeding maxKeyLen are collapsed to "{fn}-x{digest}".
func Key(fn string, args ...any) string {
	if len(args) == 0 {
		return fn
	}
	reprs := make([]string, len(args))
	for i, arg := range args {
		reprs[i] = fmt.Sprintf("%v", arg)
	}
	key := fn + "-(" + strings.Join(reprs, ",") + ")"
	if len(key) > maxKeyLen {
		return fmt.Sprintf("%s-x%016x", fn, xxhash.Sum64String(key))
	}
	return key
}

// CompileTimeKey derives an argument-insensitive cache key from the
// function's identity alone: "{modulePath}-ct-{fn}". All calls to the
// function share one cache entry regardless of arguments.
func CompileTimeKey(modulePath, fn string) string {
	return modulePath + "-ct-" + fn
}

// Digest returns a stable 16-hex-character digest of s. Useful for keying
// on values that are large or unprintable.
func Digest(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}
