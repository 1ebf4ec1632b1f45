// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestErrorCodeStringer tests the stringized output for the ErrorCode type.
func TestErrorCodeStringer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrInternal, "ErrInternal"},
		{ErrUnbalancedConditional, "ErrUnbalancedConditional"},
		{ErrTooManyOperations, "ErrTooManyOperations"},
		{ErrZeroPaddedNumber, "ErrZeroPaddedNumber"},
		{ErrNegativeZero, "ErrNegativeZero"},
		{ErrNullFail, "ErrNullFail"},
		{ErrCodeSeparator, "ErrCodeSeparator"},
		{ErrInvalidCheckSigAddArgument, "ErrInvalidCheckSigAddArgument"},
		{ErrTaprootPubkeyIsEmpty, "ErrTaprootPubkeyIsEmpty"},
		{ErrTaprootMaxSigOps, "ErrTaprootMaxSigOps"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	for i, test := range tests {
		result := test.in.String()
		require.Equalf(t, test.want, result, "String #%d", i)
	}

	// Every defined code must have a name so that errors never print as
	// unknown.
	require.Len(t, errorCodeStrings, int(numErrorCodes))
	for c := ErrInternal; c < numErrorCodes; c++ {
		require.NotContains(t, c.String(), "Unknown", "code %d", int(c))
	}
}

// TestError tests the error output for the Error type.
func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   Error
		want string
	}{
		{
			Error{Description: "some error"},
			"some error",
		},
		{
			Error{Description: "human-readable error"},
			"human-readable error",
		},
	}

	for i, test := range tests {
		result := test.in.Error()
		require.Equalf(t, test.want, result, "Error #%d", i)
	}
}

// TestIsErrorCode ensures IsErrorCode matches script errors by code, also
// when they have been wrapped.
func TestIsErrorCode(t *testing.T) {
	t.Parallel()

	err := scriptError(ErrNullFail, "not all signatures empty")
	wrapped := fmt.Errorf("input 3: %w", err)

	require.True(t, IsErrorCode(err, ErrNullFail))
	require.True(t, IsErrorCode(wrapped, ErrVerify, ErrNullFail))
	require.False(t, IsErrorCode(wrapped, ErrVerify))
	require.False(t, IsErrorCode(fmt.Errorf("plain"), ErrNullFail))
	require.False(t, IsErrorCode(nil, ErrNullFail))
}
