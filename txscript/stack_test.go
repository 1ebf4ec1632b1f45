// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStack tests that all of the stack operations work as expected.
func TestStack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		before    [][]byte
		operation func(*stack) error
		errCode   ErrorCode
		after     [][]byte
	}{
		{
			name:   "noop",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return nil
			},
			after: [][]byte{{1}, {2}, {3}},
		},
		{
			name:   "peek underflow (byte)",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				_, err := s.PeekByteArray(5)
				return err
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "pop",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				val, err := s.PopByteArray()
				if err != nil {
					return err
				}
				require.Equal(t, []byte{3}, val)
				return nil
			},
			after: [][]byte{{1}, {2}},
		},
		{
			name:   "pop everything",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				for i := 0; i < 3; i++ {
					if _, err := s.PopByteArray(); err != nil {
						return err
					}
				}
				return nil
			},
			after: [][]byte{},
		},
		{
			name:   "pop underflow",
			before: [][]byte{{1}},
			operation: func(s *stack) error {
				for i := 0; i < 2; i++ {
					if _, err := s.PopByteArray(); err != nil {
						return err
					}
				}
				return nil
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "pop int minimal",
			before: [][]byte{{0x01, 0x00}},
			operation: func(s *stack) error {
				s.verifyMinimalData = true
				_, err := s.PopInt()
				return err
			},
			errCode: ErrZeroPaddedNumber,
		},
		{
			name:   "pop int too big",
			before: [][]byte{{0x01, 0x00, 0x00, 0x00, 0x00}},
			operation: func(s *stack) error {
				_, err := s.PopInt()
				return err
			},
			errCode: ErrNumberTooBig,
		},
		{
			name:   "push int and bool",
			before: nil,
			operation: func(s *stack) error {
				s.PushInt(-1)
				s.PushInt(0)
				s.PushBool(true)
				s.PushBool(false)
				return nil
			},
			after: [][]byte{{0x81}, nil, {1}, nil},
		},
		{
			name:   "peek bool negative zero",
			before: [][]byte{{0x00, 0x80}},
			operation: func(s *stack) error {
				ok, err := s.PeekBool(0)
				if err != nil {
					return err
				}
				require.False(t, ok)
				return nil
			},
			after: [][]byte{{0x00, 0x80}},
		},
		{
			name:   "nip top",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.NipN(0)
			},
			after: [][]byte{{1}, {2}},
		},
		{
			name:   "nip middle",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.NipN(1)
			},
			after: [][]byte{{1}, {3}},
		},
		{
			name:   "nip bottom",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.NipN(2)
			},
			after: [][]byte{{2}, {3}},
		},
		{
			name:   "nip too much",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.NipN(3)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "tuck",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.Tuck()
			},
			after: [][]byte{{1}, {3}, {2}, {3}},
		},
		{
			name:   "tuck underflow",
			before: [][]byte{{1}},
			operation: func(s *stack) error {
				return s.Tuck()
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "drop 2",
			before: [][]byte{{1}, {2}, {3}, {4}},
			operation: func(s *stack) error {
				return s.DropN(2)
			},
			after: [][]byte{{1}, {2}},
		},
		{
			name:   "drop 0",
			before: [][]byte{{1}},
			operation: func(s *stack) error {
				return s.DropN(0)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "dup 2",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.DupN(2)
			},
			after: [][]byte{{1}, {2}, {3}, {2}, {3}},
		},
		{
			name:   "dup 3 underflow",
			before: [][]byte{{1}, {2}},
			operation: func(s *stack) error {
				return s.DupN(3)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "rot 1",
			before: [][]byte{{1}, {2}, {3}, {4}},
			operation: func(s *stack) error {
				return s.RotN(1)
			},
			after: [][]byte{{1}, {3}, {4}, {2}},
		},
		{
			name:   "rot 2",
			before: [][]byte{{1}, {2}, {3}, {4}, {5}, {6}},
			operation: func(s *stack) error {
				return s.RotN(2)
			},
			after: [][]byte{{3}, {4}, {5}, {6}, {1}, {2}},
		},
		{
			name:   "rot too little",
			before: [][]byte{{1}, {2}},
			operation: func(s *stack) error {
				return s.RotN(1)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "swap 1",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.SwapN(1)
			},
			after: [][]byte{{1}, {3}, {2}},
		},
		{
			name:   "swap 2",
			before: [][]byte{{1}, {2}, {3}, {4}},
			operation: func(s *stack) error {
				return s.SwapN(2)
			},
			after: [][]byte{{3}, {4}, {1}, {2}},
		},
		{
			name:   "over 1",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.OverN(1)
			},
			after: [][]byte{{1}, {2}, {3}, {2}},
		},
		{
			name:   "over 2",
			before: [][]byte{{1}, {2}, {3}, {4}},
			operation: func(s *stack) error {
				return s.OverN(2)
			},
			after: [][]byte{{1}, {2}, {3}, {4}, {1}, {2}},
		},
		{
			name:   "pick 2",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.PickN(2)
			},
			after: [][]byte{{1}, {2}, {3}, {1}},
		},
		{
			name:   "drop too many",
			before: [][]byte{{1}, {2}},
			operation: func(s *stack) error {
				return s.DropN(3)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "swap 2 underflow",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.SwapN(2)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "over 2 underflow",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.OverN(2)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "dup then pop keeps copy",
			before: [][]byte{{1}, {2}},
			operation: func(s *stack) error {
				if err := s.DupN(2); err != nil {
					return err
				}
				return s.DropN(1)
			},
			after: [][]byte{{1}, {2}, {1}},
		},
		{
			name:   "pick too far",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.PickN(3)
			},
			errCode: ErrInvalidStackOperation,
		},
		{
			name:   "roll 2",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.RollN(2)
			},
			after: [][]byte{{2}, {3}, {1}},
		},
		{
			name:   "roll 0",
			before: [][]byte{{1}, {2}, {3}},
			operation: func(s *stack) error {
				return s.RollN(0)
			},
			after: [][]byte{{1}, {2}, {3}},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var s stack
			for _, item := range test.before {
				s.PushByteArray(item)
			}

			err := test.operation(&s)
			if test.errCode != 0 {
				require.Truef(t, IsErrorCode(err, test.errCode),
					"got %v, want %v", err, test.errCode)
				return
			}
			require.NoError(t, err)

			require.Len(t, s.stk, len(test.after))
			for i := range test.after {
				require.Equalf(t, test.after[i], s.stk[i],
					"item %d", i)
			}
		})
	}
}
