// Copyright (c) 2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"fmt"
)

// ScriptTokenizer walks a script one opcode at a time without allocating.
// Call Next until it returns false, then check Err to tell the end of the
// script from a malformed push.  After a successful Next, Opcode and Data
// describe the opcode just read and ByteIndex is the offset of the one after
// it.
type ScriptTokenizer struct {
	script []byte
	offset int
	opIdx  int
	op     *opcode
	data   []byte
	err    error
}

// MakeScriptTokenizer returns a tokenizer positioned at the start of script.
func MakeScriptTokenizer(script []byte) ScriptTokenizer {
	return ScriptTokenizer{script: script}
}

// Done reports whether the script is exhausted or a parse error was hit.
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= len(t.script)
}

// pushSize returns the number of bytes taken by op at the start of rest,
// opcode byte included, and the number of those bytes that are pushed data.
func pushSize(op *opcode, rest []byte) (int, int, error) {
	switch {
	// OP_0, OP_1NEGATE, OP_1 through OP_16 and every non push opcode.
	case op.length == 1:
		return 1, 0, nil

	// OP_DATA_1 through OP_DATA_75 carry their size in the opcode.
	case op.length > 1:
		if len(rest) < op.length {
			return 0, 0, scriptError(ErrMalformedPush, fmt.Sprintf(
				"opcode %s requires %d bytes, but script only has "+
					"%d remaining", op.name, op.length, len(rest)))
		}
		return op.length, op.length - 1, nil
	}

	// OP_PUSHDATA1, 2 and 4 are followed by a little endian size of
	// -op.length bytes.
	sizeLen := -op.length
	header := 1 + sizeLen
	if len(rest) < header {
		return 0, 0, scriptError(ErrMalformedPush, fmt.Sprintf(
			"opcode %s requires %d bytes, but script only has %d "+
				"remaining", op.name, sizeLen, len(rest)-1))
	}

	var size uint64
	switch sizeLen {
	case 1:
		size = uint64(rest[1])
	case 2:
		size = uint64(binary.LittleEndian.Uint16(rest[1:3]))
	default:
		size = uint64(binary.LittleEndian.Uint32(rest[1:5]))
	}
	if avail := uint64(len(rest) - header); size > avail {
		return 0, 0, scriptError(ErrMalformedPush, fmt.Sprintf(
			"opcode %s pushes %d bytes, but script only has %d "+
				"remaining", op.name, size, avail))
	}
	return header + int(size), int(size), nil
}

// Next reads the next opcode and reports whether one was read.  It returns
// false at the end of the script and on a malformed push, which also sets
// Err.  A failed call leaves Opcode, Data and ByteIndex at the last opcode
// read.
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	rest := t.script[t.offset:]
	op := &opcodeArray[rest[0]]
	total, dataLen, err := pushSize(op, rest)
	if err != nil {
		t.err = err
		return false
	}

	t.op = op
	t.data = nil
	if op.length != 1 {
		t.data = rest[total-dataLen : total]
	}
	t.offset += total
	t.opIdx++
	return true
}

// Script returns the script being tokenized.
func (t *ScriptTokenizer) Script() []byte {
	return t.script
}

// ByteIndex returns the offset of the next opcode to be read.
func (t *ScriptTokenizer) ByteIndex() int {
	return t.offset
}

// OpcodePosition returns the number of opcodes read so far, so the opcode
// last returned by Next sits at OpcodePosition()-1.
func (t *ScriptTokenizer) OpcodePosition() int {
	return t.opIdx
}

// Opcode returns the value of the opcode last read.
func (t *ScriptTokenizer) Opcode() byte {
	return t.op.value
}

// Data returns the bytes pushed by the opcode last read, nil for opcodes
// that push nothing or a small integer.
func (t *ScriptTokenizer) Data() []byte {
	return t.data
}

// Err returns the parse error that stopped the tokenizer, if any.
func (t *ScriptTokenizer) Err() error {
	return t.err
}
