// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScriptTokenizer ensures a wide variety of behavior provided by the script
// tokenizer performs as expected.
func TestScriptTokenizer(t *testing.T) {
	t.Parallel()

	type expectedResult struct {
		op    byte
		data  []byte
		index int
	}
	tests := []struct {
		name     string
		script   []byte
		expected []expectedResult
		finalIdx int
		err      ErrorCode
		hasErr   bool
	}{
		{
			name:     "empty",
			script:   nil,
			expected: nil,
		},
		{
			name:   "small ints and data",
			script: hexToBytes("0051600102"),
			expected: []expectedResult{
				{OP_0, nil, 1},
				{OP_1, nil, 2},
				{OP_16, nil, 3},
				{OP_DATA_1, []byte{0x02}, 5},
			},
			finalIdx: 5,
		},
		{
			name:   "pushdata1 pushdata2 pushdata4",
			script: hexToBytes("4c01aa4d0200bbbb4e01000000cc"),
			expected: []expectedResult{
				{OP_PUSHDATA1, []byte{0xaa}, 3},
				{OP_PUSHDATA2, []byte{0xbb, 0xbb}, 8},
				{OP_PUSHDATA4, []byte{0xcc}, 14},
			},
			finalIdx: 14,
		},
		{
			name:   "short OP_DATA_2",
			script: hexToBytes("5102ff"),
			expected: []expectedResult{
				{OP_1, nil, 1},
			},
			finalIdx: 1,
			err:      ErrMalformedPush,
			hasErr:   true,
		},
		{
			name:     "OP_PUSHDATA1 missing length",
			script:   hexToBytes("4c"),
			finalIdx: 0,
			err:      ErrMalformedPush,
			hasErr:   true,
		},
		{
			name:   "empty OP_PUSHDATA1",
			script: hexToBytes("4c0051"),
			expected: []expectedResult{
				{OP_PUSHDATA1, []byte{}, 2},
				{OP_1, nil, 3},
			},
			finalIdx: 3,
		},
		{
			name:     "OP_PUSHDATA4 short length",
			script:   hexToBytes("4e0100"),
			finalIdx: 0,
			err:      ErrMalformedPush,
			hasErr:   true,
		},
		{
			name:     "OP_PUSHDATA2 length past end",
			script:   hexToBytes("4d0500aabb"),
			finalIdx: 0,
			err:      ErrMalformedPush,
			hasErr:   true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			tokenizer := MakeScriptTokenizer(test.script)
			var opcodeNum int
			for tokenizer.Next() {
				require.Less(t, opcodeNum, len(test.expected))

				want := test.expected[opcodeNum]
				require.Equal(t, want.op, tokenizer.Opcode())
				require.Equal(t, want.data, tokenizer.Data())
				require.Equal(t, want.index, tokenizer.ByteIndex())
				opcodeNum++
				require.Equal(t, opcodeNum, tokenizer.OpcodePosition())
			}

			require.Len(t, test.expected, opcodeNum)
			require.Equal(t, test.finalIdx, tokenizer.ByteIndex())
			require.True(t, tokenizer.Done())
			if test.hasErr {
				require.True(t, IsErrorCode(tokenizer.Err(), test.err))
			} else {
				require.NoError(t, tokenizer.Err())
			}
		})
	}
}

// TestParseScriptRoundTrip ensures parsed scripts serialize back to the exact
// bytes they were parsed from, including non-minimal pushes and undecodable
// trailing bytes.
func TestParseScriptRoundTrip(t *testing.T) {
	t.Parallel()

	scripts := [][]byte{
		nil,
		hexToBytes("76a914" + "0102030405060708090a0b0c0d0e0f1011121314" +
			"88ac"),
		hexToBytes("4c0102"),
		hexToBytes("4d01000a"),
		hexToBytes("4e0100000002"),
		hexToBytes("51024c"),
	}

	for _, script := range scripts {
		parsed := ParseScript(script)
		require.Equalf(t, len(script), parsed.Size(), "script %x", script)
		require.Truef(t, bytes.Equal(script, parsed.Bytes()),
			"script %x round tripped to %x", script, parsed.Bytes())
	}

	parsed := ParseScript(hexToBytes("51024c"))
	require.Len(t, parsed.Ops, 1)
	require.Equal(t, hexToBytes("024c"), parsed.Trailing)
	require.Equal(t, "1 [error]", parsed.String())
}

// TestPushOpcode ensures the smallest push opcode is selected for each length.
func TestPushOpcode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dataLen int
		want    byte
		size    int
	}{
		{0, OP_0, 1},
		{1, OP_DATA_1, 2},
		{75, OP_DATA_75, 76},
		{76, OP_PUSHDATA1, 78},
		{255, OP_PUSHDATA1, 257},
		{256, OP_PUSHDATA2, 259},
		{65536, OP_PUSHDATA4, 65541},
	}

	for _, test := range tests {
		op := PushOpcode(make([]byte, test.dataLen))
		require.Equalf(t, test.want, op.Value, "length %d", test.dataLen)
		require.Equalf(t, test.size, op.SerializeSize(), "length %d",
			test.dataLen)
		require.Lenf(t, op.AppendBytes(nil), test.size, "length %d",
			test.dataLen)
	}

	// Single byte values are pushed as data, never as small integers.
	require.Equal(t, []byte{OP_DATA_1, 0x05}, PushOpcode([]byte{5}).AppendBytes(nil))
}

// TestDisasm ensures the one line and full disassembly of scripts.
func TestDisasm(t *testing.T) {
	t.Parallel()

	p2pkh := hexToBytes("76a914" + "0102030405060708090a0b0c0d0e0f1011121314" +
		"88ac")
	str, err := DisasmString(p2pkh)
	require.NoError(t, err)
	require.Equal(t, "OP_DUP OP_HASH160 "+
		"0102030405060708090a0b0c0d0e0f1011121314 OP_EQUALVERIFY "+
		"OP_CHECKSIG", str)

	str, err = DisasmString(hexToBytes("004f6051"))
	require.NoError(t, err)
	require.Equal(t, "0 -1 16 1", str)

	str, err = DisasmString(hexToBytes("00514c0501"))
	require.True(t, IsErrorCode(err, ErrMalformedPush))
	require.Equal(t, "0 1 [error]", str)

	str, err = DisasmString(hexToBytes("4c"))
	require.True(t, IsErrorCode(err, ErrMalformedPush))
	require.Equal(t, "[error]", str)

	full, err := DisasmFull(hexToBytes("52020102"))
	require.NoError(t, err)
	require.Equal(t, "0000:\tOP_2\t(next offset 1)\n"+
		"0001:\tOP_DATA_2 0x0102\t(next offset 4)\n", full)
}

// TestIsPushOnlyScript ensures the push only detection follows the consensus
// definition, which counts OP_RESERVED as a push.
func TestIsPushOnlyScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		script []byte
		want   bool
	}{
		{nil, true},
		{hexToBytes("00"), true},
		{hexToBytes("4f5060"), true},
		{hexToBytes("4c0101"), true},
		{hexToBytes("0061"), false},
		{hexToBytes("51ac"), false},
		{hexToBytes("4c"), false},
	}

	for _, test := range tests {
		require.Equalf(t, test.want, IsPushOnlyScript(test.script),
			"script %x", test.script)
	}
}

// TestWitnessProgramDetection ensures witness programs are only recognized in
// their exact form.
func TestWitnessProgramDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  []byte
		isProg  bool
		version int
	}{
		{"p2wpkh", append([]byte{OP_0, OP_DATA_20}, make([]byte, 20)...), true, 0},
		{"p2wsh", append([]byte{OP_0, OP_DATA_32}, make([]byte, 32)...), true, 0},
		{"p2tr", append([]byte{OP_1, OP_DATA_32}, make([]byte, 32)...), true, 1},
		{"anchor", hexToBytes("51024e73"), true, 1},
		{"v16 40 bytes", append([]byte{OP_16, 40}, make([]byte, 40)...), true, 16},
		{"one byte program", hexToBytes("510101"), false, 0},
		{"41 byte program", append([]byte{OP_1, 41}, make([]byte, 41)...), false, 0},
		{"pushdata1 program", append([]byte{OP_1, OP_PUSHDATA1, 2}, 0, 0), false, 0},
		{"1negate version", hexToBytes("4f020000"), false, 0},
		{"trailing byte", hexToBytes("0002000000"), false, 0},
	}

	for _, test := range tests {
		require.Equal(t, test.isProg, IsWitnessProgram(test.script),
			test.name)

		version, program, err := ExtractWitnessProgramInfo(test.script)
		if !test.isProg {
			require.True(t, IsErrorCode(err, ErrWitnessProgramWrongLength),
				test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.version, version, test.name)
		require.Equal(t, test.script[2:], program, test.name)
	}
}

// TestFindAndDelete ensures removal of a pattern only happens on opcode
// boundaries and covers consecutive matches.
func TestFindAndDelete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  string
		pattern string
		want    string
	}{
		{"empty pattern", "5152", "", "5152"},
		{"single opcode", "515253", "52", "5153"},
		{"repeated opcode", "535153535453", "53", "5154"},
		{"entire push", "0302ff03", "0302ff03", ""},
		{"consecutive pushes", "0302ff030302ff03", "0302ff03", ""},
		{"inside push data", "0302ff030302ff03", "02", "0302ff030302ff03"},
		{"inside push data 2", "0302ff030302ff03", "ff", "0302ff030302ff03"},
		{"push prefix", "0302ff030302ff03", "03", "02ff0302ff03"},
		{"before malformed push", "0003feed", "03feed", "00"},
		{"malformed tail", "0003feed", "00", "03feed"},
		{"no match", "0102", "0103", "0102"},
	}

	for _, test := range tests {
		got := findAndDelete(hexToBytes(test.script),
			hexToBytes(test.pattern))
		require.Equal(t, hexToBytes(test.want), got, test.name)
	}
}

// TestRemoveCodeSeparators ensures only executable OP_CODESEPARATORs are
// removed.
func TestRemoveCodeSeparators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		script string
		want   string
	}{
		{"", ""},
		{"ab", ""},
		{"51ab52abac", "5152ac"},
		{"01ab", "01ab"},
		{"ab4c", "4c"},
	}

	for _, test := range tests {
		got := removeCodeSeparators(hexToBytes(test.script))
		require.Equalf(t, hexToBytes(test.want), got, "script %s",
			test.script)
	}
}

// TestScriptBuilder tests that pushing opcodes, integers and data to the
// builder produces canonical scripts.
func TestScriptBuilder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		build    func(*ScriptBuilder)
		expected []byte
	}{
		{
			name: "ops",
			build: func(b *ScriptBuilder) {
				b.AddOp(OP_DUP).AddOps([]byte{OP_HASH160, OP_EQUAL})
			},
			expected: []byte{OP_DUP, OP_HASH160, OP_EQUAL},
		},
		{
			name: "small ints",
			build: func(b *ScriptBuilder) {
				b.AddInt64(0).AddInt64(-1).AddInt64(1).AddInt64(16)
			},
			expected: []byte{OP_0, OP_1NEGATE, OP_1, OP_16},
		},
		{
			name: "larger ints",
			build: func(b *ScriptBuilder) {
				b.AddInt64(17).AddInt64(-2).AddInt64(128)
			},
			expected: hexToBytes("011101820280" + "00"),
		},
		{
			name: "data as small ints",
			build: func(b *ScriptBuilder) {
				b.AddData(nil).AddData([]byte{1}).AddData([]byte{16}).
					AddData([]byte{0x81})
			},
			expected: []byte{OP_0, OP_1, OP_16, OP_1NEGATE},
		},
		{
			name: "zero byte keeps its push",
			build: func(b *ScriptBuilder) {
				b.AddData([]byte{0})
			},
			expected: []byte{OP_DATA_1, 0x00},
		},
		{
			name: "pushdata1",
			build: func(b *ScriptBuilder) {
				b.AddData(bytes.Repeat([]byte{0x49}, 76))
			},
			expected: append([]byte{OP_PUSHDATA1, 76},
				bytes.Repeat([]byte{0x49}, 76)...),
		},
		{
			name: "pushdata2",
			build: func(b *ScriptBuilder) {
				b.AddData(bytes.Repeat([]byte{0x49}, 256))
			},
			expected: append([]byte{OP_PUSHDATA2, 0x00, 0x01},
				bytes.Repeat([]byte{0x49}, 256)...),
		},
	}

	for _, test := range tests {
		builder := NewScriptBuilder()
		test.build(builder)
		script, err := builder.Script()
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, script, test.name)

		// Every canonical push passes the minimal data check.
		tokenizer := MakeScriptTokenizer(script)
		for tokenizer.Next() {
			op := &opcodeArray[tokenizer.Opcode()]
			if op.value <= OP_PUSHDATA4 {
				require.NoError(t, checkMinimalDataPush(op,
					tokenizer.Data()), test.name)
			}
		}
	}
}

// TestScriptBuilderLimits ensures the builder refuses pushes that could never
// be executed and keeps the first error.
func TestScriptBuilderLimits(t *testing.T) {
	t.Parallel()

	builder := NewScriptBuilder().AddData(make([]byte, MaxScriptElementSize+1))
	script, err := builder.Script()
	require.Error(t, err)
	require.IsType(t, ErrScriptNotCanonical(""), err)
	require.Empty(t, script)

	// AddFullData bypasses the element limit.
	script, err = NewScriptBuilder().
		AddFullData(make([]byte, MaxScriptElementSize+1)).Script()
	require.NoError(t, err)
	require.Len(t, script, MaxScriptElementSize+4)

	// Filling the script up to the size limit works and one more opcode
	// fails.
	builder = NewScriptBuilder()
	for i := 0; i < MaxScriptSize; i++ {
		builder.AddOp(OP_NOP)
	}
	_, err = builder.Script()
	require.NoError(t, err)
	_, err = builder.AddOp(OP_NOP).Script()
	require.Error(t, err)

	// Reset clears the error.
	script, err = builder.Reset().AddOp(OP_TRUE).Script()
	require.NoError(t, err)
	require.Equal(t, []byte{OP_TRUE}, script)
}
