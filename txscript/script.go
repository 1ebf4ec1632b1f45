// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	// MaxOpsPerScript is the maximum number of non-push operations a
	// script may execute outside of tapscript.
	MaxOpsPerScript = 201

	// MaxPubKeysPerMultiSig is the maximum number of public keys allowed
	// in a multi-signature transaction output script.
	MaxPubKeysPerMultiSig = 20

	// MaxScriptElementSize is the max number of bytes allowed in a single
	// pushed data element.
	MaxScriptElementSize = 520

	// MaxScriptSize is the maximum allowed length of a raw script.
	MaxScriptSize = 10000

	// MaxStackSize is the maximum combined height of the data and
	// alternate stacks during execution.
	MaxStackSize = 1000

	// LockTimeThreshold is the number below which a lock time is
	// interpreted to be a block number.  Since an average of one block
	// is generated per 10 minutes, this allows blocks for about 9,512
	// years.
	LockTimeThreshold = 5e8 // Tue Nov 5 00:53:20 1985 UTC
)

// Opcode is a single parsed script instruction.  Value is the opcode byte and
// Data holds the bytes pushed by data-carrying opcodes.  The encoding of a push
// is taken from Value, so a parsed non-minimal push serializes back to the
// exact same bytes.
type Opcode struct {
	Value byte
	Data  []byte
}

// Name returns the human-readable name of the opcode.
func (o Opcode) Name() string {
	return opcodeArray[o.Value].name
}

// IsPush returns whether the opcode only pushes a value onto the stack.  This
// covers OP_0, all data pushes, OP_1NEGATE, OP_RESERVED and OP_1 through OP_16.
func (o Opcode) IsPush() bool {
	return o.Value <= OP_16
}

// SerializeSize returns the number of bytes the opcode takes when serialized.
func (o Opcode) SerializeSize() int {
	op := &opcodeArray[o.Value]
	switch {
	case op.length >= 1:
		return op.length
	default:
		return 1 - op.length + len(o.Data)
	}
}

// AppendBytes appends the serialized opcode to the passed slice and returns the
// result.
func (o Opcode) AppendBytes(b []byte) []byte {
	b = append(b, o.Value)
	switch opcodeArray[o.Value].length {
	case 1:
		return b
	case -1:
		b = append(b, byte(len(o.Data)))
	case -2:
		b = binary.LittleEndian.AppendUint16(b, uint16(len(o.Data)))
	case -4:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(o.Data)))
	}
	return append(b, o.Data...)
}

// PushOpcode returns the push of data using the smallest push opcode for its
// length.  Unlike the canonical pushes produced by ScriptBuilder.AddData,
// single byte values are never replaced by the small integer opcodes.
func PushOpcode(data []byte) Opcode {
	dataLen := len(data)
	switch {
	case dataLen == 0:
		return Opcode{Value: OP_0}
	case dataLen <= OP_DATA_75:
		return Opcode{Value: byte(dataLen), Data: data}
	case dataLen <= 0xff:
		return Opcode{Value: OP_PUSHDATA1, Data: data}
	case dataLen <= 0xffff:
		return Opcode{Value: OP_PUSHDATA2, Data: data}
	default:
		return Opcode{Value: OP_PUSHDATA4, Data: data}
	}
}

// Script is a parsed script: the successfully decoded opcodes followed by any
// bytes that could not be decoded.  Serializing a parsed script always yields
// the bytes it was parsed from.
type Script struct {
	Ops      []Opcode
	Trailing []byte
}

// ParseScript decodes the passed raw script.  It never fails: decoding stops at
// the first malformed push and the remaining bytes are kept in Trailing.  The
// returned opcodes reference the passed slice.
func ParseScript(script []byte) Script {
	var s Script
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		s.Ops = append(s.Ops, Opcode{
			Value: tokenizer.Opcode(),
			Data:  tokenizer.Data(),
		})
	}
	if tokenizer.Err() != nil {
		s.Trailing = script[tokenizer.ByteIndex():]
	}
	return s
}

// Bytes returns the serialized script.
func (s Script) Bytes() []byte {
	b := make([]byte, 0, s.Size())
	for _, op := range s.Ops {
		b = op.AppendBytes(b)
	}
	return append(b, s.Trailing...)
}

// Size returns the serialized length of the script.
func (s Script) Size() int {
	size := len(s.Trailing)
	for _, op := range s.Ops {
		size += op.SerializeSize()
	}
	return size
}

// CheckPushOnly returns ErrNotPushOnly unless every opcode in the script is a
// push and there are no trailing bytes.
func (s Script) CheckPushOnly() error {
	if len(s.Trailing) != 0 {
		str := fmt.Sprintf("script has %d undecodable trailing bytes",
			len(s.Trailing))
		return scriptError(ErrNotPushOnly, str)
	}
	for _, op := range s.Ops {
		if !op.IsPush() {
			str := fmt.Sprintf("script contains non-push opcode %s",
				op.Name())
			return scriptError(ErrNotPushOnly, str)
		}
	}
	return nil
}

// String returns the one-line disassembly of the script.  Undecodable
// trailing bytes are appended as "[error]".
func (s Script) String() string {
	var buf strings.Builder
	for i, op := range s.Ops {
		if i > 0 {
			buf.WriteByte(' ')
		}
		disasmOpcode(&buf, &opcodeArray[op.Value], op.Data, true)
	}
	if len(s.Trailing) != 0 {
		if len(s.Ops) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString("[error]")
	}
	return buf.String()
}

// IsPushOnlyScript returns whether or not the passed script only pushes data
// according to the consensus definition of pushing data.
func IsPushOnlyScript(script []byte) bool {
	return ParseScript(script).CheckPushOnly() == nil
}

// DisasmString formats a disassembled script for one line printing.  When the
// script fails to parse, the returned string will contain the disassembled
// script up to the point the failure occurred along with the string '[error]'
// appended.  In addition, the reason the script failed to parse is returned
// if the caller wants more information about the failure.
func DisasmString(script []byte) (string, error) {
	var disbuf strings.Builder
	tokenizer := MakeScriptTokenizer(script)
	if tokenizer.Next() {
		disasmOpcode(&disbuf, tokenizer.op, tokenizer.Data(), true)
	}
	for tokenizer.Next() {
		disbuf.WriteByte(' ')
		disasmOpcode(&disbuf, tokenizer.op, tokenizer.Data(), true)
	}
	if tokenizer.Err() != nil {
		if tokenizer.ByteIndex() != 0 {
			disbuf.WriteByte(' ')
		}
		disbuf.WriteString("[error]")
	}
	return disbuf.String(), tokenizer.Err()
}

// DisasmFull returns a multi-line disassembly of the script with one opcode per
// line and the full opcode names, including the push opcodes.
func DisasmFull(script []byte) (string, error) {
	var disbuf strings.Builder
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		offset := tokenizer.ByteIndex()
		disbuf.WriteString(fmt.Sprintf("%04d:\t", tokenizer.OpcodePosition()-1))
		disasmOpcode(&disbuf, tokenizer.op, tokenizer.Data(), false)
		disbuf.WriteString(fmt.Sprintf("\t(next offset %d)\n", offset))
	}
	if err := tokenizer.Err(); err != nil {
		disbuf.WriteString(fmt.Sprintf("[error] %s: %x\n", err,
			script[tokenizer.ByteIndex():]))
		return disbuf.String(), err
	}
	return disbuf.String(), nil
}

// isSmallInt returns whether or not the opcode is considered a small integer,
// which is an OP_0, or OP_1 through OP_16.
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// AsSmallInt returns the passed opcode, which must be true according to
// isSmallInt(), as an integer.
func AsSmallInt(op byte) int {
	if op == OP_0 {
		return 0
	}

	return int(op - (OP_1 - 1))
}

// isScriptHashScript returns whether or not the passed script is a standard
// pay-to-script-hash script: OP_HASH160 <20-byte hash> OP_EQUAL.
func isScriptHashScript(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL
}

// IsPayToScriptHash returns true if the script is in the standard
// pay-to-script-hash (P2SH) format, false otherwise.
func IsPayToScriptHash(script []byte) bool {
	return isScriptHashScript(script)
}

// isWitnessProgramScript returns true if the passed script is a witness
// program: a version push of OP_0 or OP_1 through OP_16 followed by a single
// direct data push of 2 to 40 bytes and nothing else.
func isWitnessProgramScript(script []byte) bool {
	if len(script) < 4 || len(script) > 42 {
		return false
	}

	if !isSmallInt(script[0]) {
		return false
	}

	return int(script[1])+2 == len(script)
}

// IsWitnessProgram returns true if the passed script is a valid witness
// program which is encoded according to the passed witness program version.
// A witness program must be a small integer (from 0-16), followed by 2-40
// bytes of pushed data.
func IsWitnessProgram(script []byte) bool {
	return isWitnessProgramScript(script)
}

// ExtractWitnessProgramInfo attempts to extract the witness program version,
// as well as the witness program itself from the passed script.
func ExtractWitnessProgramInfo(script []byte) (int, []byte, error) {
	if !isWitnessProgramScript(script) {
		return 0, nil, scriptError(ErrWitnessProgramWrongLength,
			"script is not a witness program, unable to extract version "+
				"or witness program")
	}

	return AsSmallInt(script[0]), script[2:], nil
}

// IsPayToWitnessPubKeyHash returns true if the script is in the standard
// pay-to-witness-pubkey-hash (P2WPKH) format, false otherwise.
func IsPayToWitnessPubKeyHash(script []byte) bool {
	return len(script) == 22 &&
		script[0] == OP_0 &&
		script[1] == OP_DATA_20
}

// IsPayToWitnessScriptHash returns true if the script is in the standard
// pay-to-witness-script-hash (P2WSH) format, false otherwise.
func IsPayToWitnessScriptHash(script []byte) bool {
	return len(script) == 34 &&
		script[0] == OP_0 &&
		script[1] == OP_DATA_32
}

// IsPayToTaproot returns true if the passed script is a standard
// pay-to-taproot (PTTR) scripts, false otherwise.
func IsPayToTaproot(script []byte) bool {
	return len(script) == 34 &&
		script[0] == OP_1 &&
		script[1] == OP_DATA_32
}

// IsNullData returns whether or not the passed script is a standard null data
// script: OP_RETURN followed by nothing but pushes.
func IsNullData(script []byte) bool {
	if len(script) == 0 || script[0] != OP_RETURN {
		return false
	}
	return IsPushOnlyScript(script[1:])
}

// findAndDelete returns the script with every occurrence of pattern that
// starts on an opcode boundary removed.  Consecutive occurrences are all
// removed.  A script without occurrences is returned unchanged.
func findAndDelete(script, pattern []byte) []byte {
	if len(pattern) == 0 {
		return script
	}

	var (
		result  = make([]byte, 0, len(script))
		pc, pc2 int
		found   bool
	)
	for {
		result = append(result, script[pc2:pc]...)
		for len(script)-pc >= len(pattern) &&
			bytes.Equal(script[pc:pc+len(pattern)], pattern) {

			pc += len(pattern)
			found = true
		}
		pc2 = pc

		tokenizer := MakeScriptTokenizer(script[pc:])
		if !tokenizer.Next() {
			break
		}
		pc += tokenizer.ByteIndex()
	}
	if !found {
		return script
	}
	return append(result, script[pc2:]...)
}

// removeCodeSeparators returns the script with every OP_CODESEPARATOR opcode
// removed.  Bytes that fail to parse are kept as they are.
func removeCodeSeparators(script []byte) []byte {
	parsed := ParseScript(script)
	ops := parsed.Ops[:0:0]
	for _, op := range parsed.Ops {
		if op.Value != OP_CODESEPARATOR {
			ops = append(ops, op)
		}
	}
	if len(ops) == len(parsed.Ops) {
		return script
	}
	return Script{Ops: ops, Trailing: parsed.Trailing}.Bytes()
}
