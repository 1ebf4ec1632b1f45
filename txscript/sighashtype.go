// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strconv"
	"strings"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashDefault      SigHashType = 0x00
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask defines the number of bits of the hash type which is used
	// to identify which outputs are signed.
	sigHashMask = 0x1f
)

// Base returns the output selection part of the hash type, ignoring the
// ANYONECANPAY bit.
func (h SigHashType) Base() SigHashType {
	return h & sigHashMask
}

// AnyOneCanPay returns whether the ANYONECANPAY bit is set.
func (h SigHashType) AnyOneCanPay() bool {
	return h&SigHashAnyOneCanPay == SigHashAnyOneCanPay
}

// IsDefined returns whether the hash type is one of the standard types
// recognized by the strict encoding rules: ALL, NONE or SINGLE with or
// without ANYONECANPAY.  Only the low byte of the type is considered.
func (h SigHashType) IsDefined() bool {
	base := h & ^SigHashAnyOneCanPay & 0xff
	return base >= SigHashAll && base <= SigHashSingle
}

// isValidTaprootSigHash returns true if the passed sighash type is valid for a
// taproot input: SIGHASH_DEFAULT or any defined type.
func isValidTaprootSigHash(hashType SigHashType) bool {
	switch hashType {
	case SigHashDefault, SigHashAll, SigHashNone, SigHashSingle:
		return true
	case 0x81, 0x82, 0x83:
		return true
	default:
		return false
	}
}

// String returns the hash type in the notation used by the reference
// implementation, for example "ALL|ANYONECANPAY".
func (h SigHashType) String() string {
	if h == SigHashDefault {
		return "DEFAULT"
	}

	var base string
	switch h & ^SigHashAnyOneCanPay {
	case SigHashAll:
		base = "ALL"
	case SigHashNone:
		base = "NONE"
	case SigHashSingle:
		base = "SINGLE"
	default:
		return fmt.Sprintf("0x%x", uint32(h))
	}
	if h.AnyOneCanPay() {
		base += "|ANYONECANPAY"
	}
	return base
}

// ParseSigHashType parses a hash type written either as a number or in the
// notation produced by SigHashType.String.
func ParseSigHashType(s string) (SigHashType, error) {
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return SigHashType(n), nil
	}

	if strings.ToUpper(s) == "DEFAULT" {
		return SigHashDefault, nil
	}

	var h SigHashType
	for i, part := range strings.Split(strings.ToUpper(s), "|") {
		switch {
		case i == 0 && part == "ALL":
			h = SigHashAll
		case i == 0 && part == "NONE":
			h = SigHashNone
		case i == 0 && part == "SINGLE":
			h = SigHashSingle
		case i == 1 && part == "ANYONECANPAY":
			h |= SigHashAnyOneCanPay
		default:
			return 0, fmt.Errorf("invalid sighash type %q", s)
		}
	}
	return h, nil
}
