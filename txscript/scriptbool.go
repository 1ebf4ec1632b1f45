// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// AsBool gets the boolean value of the byte array.  A value is false when it
// is empty, consists only of zero bytes, or consists of zero bytes followed by
// a single trailing 0x80 (negative zero).  Any other value is true.
func AsBool(t []byte) bool {
	for i := range t {
		if t[i] != 0 {
			// Negative 0 is also considered false.
			if i == len(t)-1 && t[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// FromBool converts a boolean into the appropriate byte array.
func FromBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return nil
}

// checkMinimalIf returns an error unless the passed conditional operand is
// either the empty vector or exactly [0x01].
func checkMinimalIf(v []byte) error {
	if len(v) > 1 || (len(v) == 1 && v[0] != 1) {
		str := fmt.Sprintf("conditional operand %x is not an empty "+
			"vector or [0x01]", v)
		return scriptError(ErrMinimalIf, str)
	}
	return nil
}
