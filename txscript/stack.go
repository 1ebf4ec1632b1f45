// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// stack is the data or alt stack of a running script.  Items are never
// modified in place since the same slice may sit at several depths after a
// DUP or PICK.  The top of the stack is the end of stk.
type stack struct {
	stk [][]byte

	// verifyMinimalData makes numeric pops and peeks reject numbers that
	// are not minimally encoded.
	verifyMinimalData bool
}

// stackErr returns the error for an operation that needs more items than the
// stack holds.
func stackErr(format string, args ...interface{}) error {
	return scriptError(ErrInvalidStackOperation, fmt.Sprintf(format, args...))
}

// pos converts a depth counted from the top, 0 being the top item, to an
// index into stk.
func (s *stack) pos(depth int32) (int, error) {
	n := int32(len(s.stk))
	if depth < 0 || depth >= n {
		return 0, stackErr("index %d is invalid for stack size %d",
			depth, n)
	}
	return int(n - depth - 1), nil
}

// need fails unless the stack holds at least n items.
func (s *stack) need(n int32, op string) error {
	if n > int32(len(s.stk)) {
		return stackErr("%s needs %d items, stack has %d", op, n,
			len(s.stk))
	}
	return nil
}

// Depth returns the number of items on the stack.
func (s *stack) Depth() int32 {
	return int32(len(s.stk))
}

// PushByteArray pushes data.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 data]
func (s *stack) PushByteArray(data []byte) {
	s.stk = append(s.stk, data)
}

// PushInt pushes the minimal encoding of val.
func (s *stack) PushInt(val ScriptNum) {
	s.PushByteArray(val.Bytes())
}

// PushBool pushes 1 for true and the empty item for false.
func (s *stack) PushBool(val bool) {
	s.PushByteArray(FromBool(val))
}

// PopByteArray removes the top item and returns it.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *stack) PopByteArray() ([]byte, error) {
	return s.nipN(0)
}

// PopInt pops the top item as a number of at most MaxScriptNumLen bytes.
func (s *stack) PopInt() (ScriptNum, error) {
	data, err := s.PopByteArray()
	if err != nil {
		return 0, err
	}
	return MakeScriptNum(data, s.verifyMinimalData, MaxScriptNumLen)
}

// PopBool pops the top item as a boolean.
func (s *stack) PopBool() (bool, error) {
	data, err := s.PopByteArray()
	if err != nil {
		return false, err
	}
	return AsBool(data), nil
}

// PeekByteArray returns the item depth places below the top without removing
// it.
func (s *stack) PeekByteArray(depth int32) ([]byte, error) {
	i, err := s.pos(depth)
	if err != nil {
		return nil, err
	}
	return s.stk[i], nil
}

// PeekInt is PeekByteArray for a number of at most MaxScriptNumLen bytes.
func (s *stack) PeekInt(depth int32) (ScriptNum, error) {
	data, err := s.PeekByteArray(depth)
	if err != nil {
		return 0, err
	}
	return MakeScriptNum(data, s.verifyMinimalData, MaxScriptNumLen)
}

// PeekBool is PeekByteArray for a boolean.
func (s *stack) PeekBool(depth int32) (bool, error) {
	data, err := s.PeekByteArray(depth)
	if err != nil {
		return false, err
	}
	return AsBool(data), nil
}

// nipN removes the item depth places below the top and returns it.
//
// Stack transformation:
// nipN(0): [... x1 x2 x3] -> [... x1 x2]
// nipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s *stack) nipN(depth int32) ([]byte, error) {
	i, err := s.pos(depth)
	if err != nil {
		return nil, err
	}
	data := s.stk[i]
	s.stk = slices.Delete(s.stk, i, i+1)
	return data, nil
}

// NipN removes the item depth places below the top.
//
// Stack transformation: NipN(1): [... x1 x2 x3] -> [... x1 x3]
func (s *stack) NipN(depth int32) error {
	_, err := s.nipN(depth)
	return err
}

// Tuck copies the top item below the second one.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func (s *stack) Tuck() error {
	if err := s.need(2, "tuck"); err != nil {
		return err
	}
	top := len(s.stk) - 1
	s.stk = slices.Insert(s.stk, top-1, s.stk[top])
	return nil
}

// DropN removes the top n items.
//
// Stack transformation: DropN(2): [... x1 x2] -> [...]
func (s *stack) DropN(n int32) error {
	if n < 1 {
		return stackErr("attempt to drop %d items from stack", n)
	}
	if err := s.need(n, "drop"); err != nil {
		return err
	}
	s.stk = s.stk[:len(s.stk)-int(n)]
	return nil
}

// DupN pushes a copy of the top n items, keeping their order.
//
// Stack transformation: DupN(2): [... x1 x2] -> [... x1 x2 x1 x2]
func (s *stack) DupN(n int32) error {
	if n < 1 {
		return stackErr("attempt to dup %d stack items", n)
	}
	if err := s.need(n, "dup"); err != nil {
		return err
	}
	top := s.stk[len(s.stk)-int(n):]
	s.stk = append(s.stk, top...)
	return nil
}

// RotN moves the n items lying under the top 2n up to the top.
//
// Stack transformation:
// RotN(1): [... x1 x2 x3] -> [... x2 x3 x1]
// RotN(2): [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func (s *stack) RotN(n int32) error {
	if n < 1 {
		return stackErr("attempt to rotate %d stack items", n)
	}
	return s.raise(n, 3*n, "rotate")
}

// SwapN exchanges the top n items with the n below them.
//
// Stack transformation:
// SwapN(1): [... x1 x2] -> [... x2 x1]
// SwapN(2): [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func (s *stack) SwapN(n int32) error {
	if n < 1 {
		return stackErr("attempt to swap %d stack items", n)
	}
	return s.raise(n, 2*n, "swap")
}

// raise moves the n items starting span items below the top up to the top,
// keeping their order.
func (s *stack) raise(n, span int32, op string) error {
	if err := s.need(span, op); err != nil {
		return err
	}
	start := len(s.stk) - int(span)
	moved := slices.Clone(s.stk[start : start+int(n)])
	s.stk = append(slices.Delete(s.stk, start, start+int(n)), moved...)
	return nil
}

// OverN pushes a copy of the n items found n below the top.
//
// Stack transformation:
// OverN(1): [... x1 x2 x3] -> [... x1 x2 x3 x2]
// OverN(2): [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func (s *stack) OverN(n int32) error {
	if n < 1 {
		return stackErr("attempt to perform over on %d stack items", n)
	}
	if err := s.need(2*n, "over"); err != nil {
		return err
	}
	start := len(s.stk) - int(2*n)
	s.stk = append(s.stk, s.stk[start:start+int(n)]...)
	return nil
}

// PickN pushes a copy of the item depth places below the top.
//
// Stack transformation: PickN(2): [x1 x2 x3] -> [x1 x2 x3 x1]
func (s *stack) PickN(depth int32) error {
	data, err := s.PeekByteArray(depth)
	if err != nil {
		return err
	}
	s.PushByteArray(data)
	return nil
}

// RollN moves the item depth places below the top to the top.
//
// Stack transformation: RollN(2): [x1 x2 x3] -> [x2 x3 x1]
func (s *stack) RollN(depth int32) error {
	data, err := s.nipN(depth)
	if err != nil {
		return err
	}
	s.PushByteArray(data)
	return nil
}

// String returns a hex dump of the items from the bottom up.
func (s *stack) String() string {
	var b strings.Builder
	for _, item := range s.stk {
		if len(item) == 0 {
			b.WriteString("00000000  <empty>\n")
		}
		b.WriteString(hex.Dump(item))
	}
	return b.String()
}
