// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScriptFlagsString tests the textual form of flag sets.
func TestScriptFlagsString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flags ScriptFlags
		str   string
	}{
		{0, "NONE"},
		{ScriptBip16, "P2SH"},
		{ScriptBip16 | ScriptVerifyWitness, "P2SH,WITNESS"},
		{ScriptStrictMultiSig | ScriptVerifyNullFail, "NULLDUMMY,NULLFAIL"},
		{ScriptVerifyConstScriptCode, "CONST_SCRIPTCODE"},
		{ScriptVerifyTaproot | 1<<30, "TAPROOT,0x40000000"},
	}

	for _, test := range tests {
		require.Equal(t, test.str, test.flags.String())
	}
}

// TestParseScriptFlags tests parsing flag sets.
func TestParseScriptFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		str     string
		flags   ScriptFlags
		invalid bool
	}{
		{str: "", flags: 0},
		{str: "NONE", flags: 0},
		{str: "P2SH,WITNESS", flags: ScriptBip16 | ScriptVerifyWitness},
		{str: " p2sh , cleanstack ", flags: ScriptBip16 |
			ScriptVerifyCleanStack},
		{str: "STANDARD", flags: StandardVerifyFlags},
		{str: "CONSENSUS,MINIMALIF", flags: ConsensusVerifyFlags |
			ScriptVerifyMinimalIf},
		{str: "P2SH,BOGUS", invalid: true},
	}

	for _, test := range tests {
		flags, err := ParseScriptFlags(test.str)
		if test.invalid {
			require.True(t, IsErrorCode(err, ErrInvalidFlags), test.str)
			continue
		}
		require.NoError(t, err, test.str)
		require.Equal(t, test.flags, flags, test.str)
	}
}

// TestScriptFlagsRoundTrip ensures every single flag and the predefined sets
// parse back from their names.
func TestScriptFlagsRoundTrip(t *testing.T) {
	t.Parallel()

	sets := []ScriptFlags{StandardVerifyFlags, ConsensusVerifyFlags}
	for i := 0; i < numScriptFlags; i++ {
		sets = append(sets, 1<<i)
	}

	for _, flags := range sets {
		parsed, err := ParseScriptFlags(flags.String())
		require.NoError(t, err)
		require.Equal(t, flags, parsed)
	}

	// Consensus rules are a subset of the standard ones.
	require.Equal(t, ConsensusVerifyFlags,
		StandardVerifyFlags&ConsensusVerifyFlags)
}
