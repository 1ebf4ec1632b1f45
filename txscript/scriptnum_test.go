// Copyright (c) 2015-2017 The btcsuite developers
// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// hexToBytes converts the passed hex string into bytes and will panic if there
// is an error.  This is only provided for the hard-coded constants so errors in
// the source code can be detected. It will only (and must only) be called with
// hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// TestScriptNumBytes ensures that converting from integral script numbers to
// byte representations works as expected.
func TestScriptNumBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		num        ScriptNum
		serialized []byte
	}{
		{0, nil},
		{1, hexToBytes("01")},
		{-1, hexToBytes("81")},
		{127, hexToBytes("7f")},
		{-127, hexToBytes("ff")},
		{128, hexToBytes("8000")},
		{-128, hexToBytes("8080")},
		{129, hexToBytes("8100")},
		{-129, hexToBytes("8180")},
		{256, hexToBytes("0001")},
		{-256, hexToBytes("0081")},
		{32767, hexToBytes("ff7f")},
		{-32767, hexToBytes("ffff")},
		{32768, hexToBytes("008000")},
		{-32768, hexToBytes("008080")},
		{65535, hexToBytes("ffff00")},
		{-65535, hexToBytes("ffff80")},
		{8388608, hexToBytes("00008000")},
		{-8388608, hexToBytes("00008080")},
		{2147483647, hexToBytes("ffffff7f")},
		{-2147483647, hexToBytes("ffffffff")},

		// Values that are out of range for data that is interpreted as
		// numbers, but are allowed as the result of numeric operations.
		{2147483648, hexToBytes("0000008000")},
		{-2147483648, hexToBytes("0000008080")},
		{4294967294, hexToBytes("feffffff00")},
		{549755813887, hexToBytes("ffffffff7f")},
		{-549755813887, hexToBytes("ffffffffff")},
	}

	for _, test := range tests {
		require.Equalf(t, test.serialized, test.num.Bytes(),
			"Bytes of %d", int64(test.num))
	}
}

// TestMakeScriptNum ensures that converting from byte representations to
// integral script numbers works as expected.
func TestMakeScriptNum(t *testing.T) {
	t.Parallel()

	// Errors used in the tests below defined here for convenience and to
	// keep the horizontal test size shorter.
	errNumTooBig := scriptError(ErrNumberTooBig, "")
	errZeroPadded := scriptError(ErrZeroPaddedNumber, "")
	errNegZero := scriptError(ErrNegativeZero, "")

	tests := []struct {
		serialized      []byte
		num             ScriptNum
		numLen          int
		minimalEncoding bool
		err             error
	}{
		// Minimal encoding must reject negative 0.
		{hexToBytes("80"), 0, MaxScriptNumLen, true, errNegZero},
		{hexToBytes("0080"), 0, MaxScriptNumLen, true, errNegZero},

		// Minimally encoded valid values with minimal encoding flag.
		{nil, 0, MaxScriptNumLen, true, nil},
		{hexToBytes("01"), 1, MaxScriptNumLen, true, nil},
		{hexToBytes("81"), -1, MaxScriptNumLen, true, nil},
		{hexToBytes("7f"), 127, MaxScriptNumLen, true, nil},
		{hexToBytes("ff"), -127, MaxScriptNumLen, true, nil},
		{hexToBytes("8000"), 128, MaxScriptNumLen, true, nil},
		{hexToBytes("8080"), -128, MaxScriptNumLen, true, nil},
		{hexToBytes("ff00"), 255, MaxScriptNumLen, true, nil},
		{hexToBytes("ff80"), -255, MaxScriptNumLen, true, nil},
		{hexToBytes("ffffff7f"), 2147483647, MaxScriptNumLen, true, nil},
		{hexToBytes("ffffffff"), -2147483647, MaxScriptNumLen, true, nil},
		{hexToBytes("ffffffff7f"), 549755813887, ExtendedScriptNumLen, true, nil},
		{hexToBytes("ffffffffff"), -549755813887, ExtendedScriptNumLen, true, nil},

		// Out of range values for the passed length.
		{hexToBytes("0000008000"), 0, MaxScriptNumLen, true, errNumTooBig},
		{hexToBytes("0000008080"), 0, MaxScriptNumLen, true, errNumTooBig},
		{hexToBytes("0000008000"), 2147483648, ExtendedScriptNumLen, true, nil},
		{hexToBytes("000000008000"), 0, ExtendedScriptNumLen, true, errNumTooBig},

		// Non-minimally encoded, but otherwise valid values with
		// minimal encoding flag.  Should error and return 0.
		{hexToBytes("00"), 0, MaxScriptNumLen, true, errZeroPadded},
		{hexToBytes("0100"), 0, MaxScriptNumLen, true, errZeroPadded},
		{hexToBytes("7f00"), 0, MaxScriptNumLen, true, errZeroPadded},
		{hexToBytes("0180"), 0, MaxScriptNumLen, true, errZeroPadded},
		{hexToBytes("00000000"), 0, MaxScriptNumLen, true, errZeroPadded},

		// Non-minimally encoded, but otherwise valid values without
		// minimal encoding flag.  Should not error and return expected
		// integral number.
		{hexToBytes("00"), 0, MaxScriptNumLen, false, nil},
		{hexToBytes("80"), 0, MaxScriptNumLen, false, nil},
		{hexToBytes("0100"), 1, MaxScriptNumLen, false, nil},
		{hexToBytes("0180"), -1, MaxScriptNumLen, false, nil},
		{hexToBytes("7f00"), 127, MaxScriptNumLen, false, nil},
		{hexToBytes("00000000"), 0, MaxScriptNumLen, false, nil},
	}

	for _, test := range tests {
		// Ensure the error code is of the expected type and the error
		// code matches the value specified in the test instance.
		gotNum, err := MakeScriptNum(test.serialized, test.minimalEncoding,
			test.numLen)
		if test.err != nil {
			require.Truef(t, IsErrorCode(err, test.err.(Error).ErrorCode),
				"MakeScriptNum(%x): got %v, want %v",
				test.serialized, err, test.err)
			continue
		}
		require.NoErrorf(t, err, "MakeScriptNum(%x)", test.serialized)
		require.Equalf(t, test.num, gotNum, "MakeScriptNum(%x)",
			test.serialized)
	}
}

// TestScriptNumInt32 ensures that the Int32 function on script number behaves
// as expected.
func TestScriptNumInt32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   ScriptNum
		want int32
	}{
		{0, 0},
		{1, 1},
		{-1, -1},
		{2147483647, 2147483647},
		{-2147483647, -2147483647},
		{-2147483648, -2147483648},

		// Values clamped to the int32 range.
		{2147483648, 2147483647},
		{-2147483649, -2147483648},
		{1152921504606846975, 2147483647},
		{-1152921504606846975, -2147483648},
	}

	for _, test := range tests {
		require.Equalf(t, test.want, test.in.Int32(), "Int32 of %d",
			int64(test.in))
	}
}

// TestScriptNumAdd ensures sums may use one byte more than their operands.
func TestScriptNumAdd(t *testing.T) {
	t.Parallel()

	sum, err := ScriptNum(2147483647).Add(2147483647, MaxScriptNumLen)
	require.NoError(t, err)
	require.Equal(t, ScriptNum(4294967294), sum)
	require.Len(t, sum.Bytes(), MaxScriptNumLen+1)

	// Feeding the overflowed sum back in is rejected.
	_, err = sum.Add(1, MaxScriptNumLen)
	require.True(t, IsErrorCode(err, ErrNumberTooBig))

	_, err = ScriptNum(-5).Add(3, MaxScriptNumLen)
	require.NoError(t, err)
}

// TestAsBool tests the boolean interpretation of stack elements.
func TestAsBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []byte
		want bool
	}{
		{nil, false},
		{[]byte{}, false},
		{hexToBytes("00"), false},
		{hexToBytes("0000"), false},
		{hexToBytes("80"), false},
		{hexToBytes("000080"), false},
		{hexToBytes("01"), true},
		{hexToBytes("8000"), true},
		{hexToBytes("0001"), true},
		{hexToBytes("008001"), true},
	}

	for _, test := range tests {
		require.Equalf(t, test.want, AsBool(test.in), "AsBool(%x)",
			test.in)
	}

	require.Equal(t, []byte{1}, FromBool(true))
	require.Empty(t, FromBool(false))
}

// TestCheckMinimalIf tests the operand rule of minimal conditionals.
func TestCheckMinimalIf(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkMinimalIf(nil))
	require.NoError(t, checkMinimalIf([]byte{0x01}))
	for _, operand := range [][]byte{{0x00}, {0x02}, {0x01, 0x00}, {0x80}} {
		err := checkMinimalIf(operand)
		require.Truef(t, IsErrorCode(err, ErrMinimalIf), "operand %x",
			operand)
	}
}
