// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// testKey returns a deterministic private key derived from the passed seed
// byte.
func testKey(seed byte) *btcec.PrivateKey {
	keyBytes := bytes.Repeat([]byte{seed}, 32)
	key, _ := btcec.PrivKeyFromBytes(keyBytes)
	return key
}

// mustScript builds the passed script, panicking on error.  It is only used
// with hard-coded scripts.
func mustScript(script []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return script
}

// TestGetScriptClass ensures every standard form is recognized.
func TestGetScriptClass(t *testing.T) {
	t.Parallel()

	key := testKey(1)
	compressed := key.PubKey().SerializeCompressed()
	uncompressed := key.PubKey().SerializeUncompressed()
	hash20 := bytes.Repeat([]byte{0x11}, 20)
	hash32 := bytes.Repeat([]byte{0x22}, 32)

	tests := []struct {
		name   string
		script []byte
		class  ScriptClass
	}{{
		name:   "pay to pubkey compressed",
		script: mustScript(PayToPubKeyScript(compressed)),
		class:  PubKeyTy,
	}, {
		name:   "pay to pubkey uncompressed",
		script: mustScript(PayToPubKeyScript(uncompressed)),
		class:  PubKeyTy,
	}, {
		name:   "pay to pubkey hash",
		script: mustScript(PayToPubKeyHashScript(hash20)),
		class:  PubKeyHashTy,
	}, {
		name:   "pay to script hash",
		script: mustScript(PayToScriptHashScript(hash20)),
		class:  ScriptHashTy,
	}, {
		name:   "witness v0 pubkey hash",
		script: mustScript(PayToWitnessPubKeyHashScript(hash20)),
		class:  WitnessV0PubKeyHashTy,
	}, {
		name:   "witness v0 script hash",
		script: mustScript(PayToWitnessScriptHashScript(hash32)),
		class:  WitnessV0ScriptHashTy,
	}, {
		name:   "taproot",
		script: mustScript(PayToTaprootScript(key.PubKey())),
		class:  WitnessV1TaprootTy,
	}, {
		name:   "pay to anchor",
		script: hexToBytes("51024e73"),
		class:  PayToAnchorTy,
	}, {
		name:   "witness v1 two byte program",
		script: hexToBytes("51024e74"),
		class:  WitnessUnknownTy,
	}, {
		name: "multisig 1 of 2",
		script: mustScript(MultiSigScript(
			[][]byte{compressed, uncompressed}, 1,
		)),
		class: MultiSigTy,
	}, {
		name:   "null data",
		script: mustScript(NullDataScript([]byte("hello"))),
		class:  NullDataTy,
	}, {
		name:   "bare op return",
		script: []byte{OP_RETURN},
		class:  NullDataTy,
	}, {
		name:   "null data too big",
		script: append([]byte{OP_RETURN, OP_PUSHDATA1, 81}, make([]byte, 81)...),
		class:  NonStandardTy,
	}, {
		name:   "pubkey with bad prefix",
		script: append(append([]byte{OP_DATA_33, 0x05}, make([]byte, 32)...), OP_CHECKSIG),
		class:  NonStandardTy,
	}, {
		name:   "multisig with m greater than n",
		script: append(append([]byte{OP_2, OP_DATA_33}, compressed...), OP_1, OP_CHECKMULTISIG),
		class:  NonStandardTy,
	}, {
		name:   "truncated push",
		script: []byte{0x05, 0x01},
		class:  NonStandardTy,
	}, {
		name:   "empty",
		script: nil,
		class:  NonStandardTy,
	}}

	for _, test := range tests {
		require.Equal(t, test.class, GetScriptClass(test.script), test.name)
	}
}

// TestScriptClassString checks the names of the script classes.
func TestScriptClassString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pubkeyhash", PubKeyHashTy.String())
	require.Equal(t, "witness_v1_taproot", WitnessV1TaprootTy.String())
	require.Equal(t, "anchor", PayToAnchorTy.String())
	require.Equal(t, "Invalid", ScriptClass(200).String())
}

// TestCalcMultiSigStats ensures the key and signature counts of multisig
// scripts are reported.
func TestCalcMultiSigStats(t *testing.T) {
	t.Parallel()

	keys := [][]byte{
		testKey(1).PubKey().SerializeCompressed(),
		testKey(2).PubKey().SerializeCompressed(),
		testKey(3).PubKey().SerializeCompressed(),
	}
	script, err := MultiSigScript(keys, 2)
	require.NoError(t, err)

	numKeys, required, err := CalcMultiSigStats(script)
	require.NoError(t, err)
	require.Equal(t, 3, numKeys)
	require.Equal(t, 2, required)

	_, _, err = CalcMultiSigStats(hexToBytes("51"))
	require.True(t, IsErrorCode(err, ErrNotMultisigScript))
}

// TestMultiSigScriptErrors ensures invalid multisig parameters are rejected.
func TestMultiSigScriptErrors(t *testing.T) {
	t.Parallel()

	key := testKey(1).PubKey().SerializeCompressed()

	_, err := MultiSigScript([][]byte{key}, 2)
	require.True(t, IsErrorCode(err, ErrInvalidSignatureCount))

	tooMany := make([][]byte, MaxPubKeysPerMultiSig+1)
	for i := range tooMany {
		tooMany[i] = key
	}
	_, err = MultiSigScript(tooMany, 1)
	require.True(t, IsErrorCode(err, ErrInvalidPubKeyCount))
}

// TestNullDataScript tests the data carrier script builder.
func TestNullDataScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		expected []byte
		errCode  ErrorCode
	}{{
		name:     "empty",
		data:     nil,
		expected: []byte{OP_RETURN, OP_0},
	}, {
		name:     "small int",
		data:     []byte{0x04},
		expected: []byte{OP_RETURN, OP_4},
	}, {
		name:     "max size",
		data:     bytes.Repeat([]byte{0xab}, MaxDataCarrierSize),
		expected: append([]byte{OP_RETURN, OP_PUSHDATA1, MaxDataCarrierSize}, bytes.Repeat([]byte{0xab}, MaxDataCarrierSize)...),
	}, {
		name:    "too big",
		data:    make([]byte, MaxDataCarrierSize+1),
		errCode: ErrElementTooBig,
	}}

	for _, test := range tests {
		script, err := NullDataScript(test.data)
		if test.errCode != 0 {
			require.True(t, IsErrorCode(err, test.errCode), test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.expected, script, test.name)
		require.Equal(t, NullDataTy, GetScriptClass(script), test.name)
	}
}

// TestPushedData ensures the data pushed by a script is extracted.
func TestPushedData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script []byte
		want   [][]byte
		valid  bool
	}{{
		name:   "zero and data",
		script: hexToBytes("0002aabb"),
		want:   [][]byte{nil, {0xaa, 0xbb}},
		valid:  true,
	}, {
		name:   "opcodes are skipped",
		script: hexToBytes("76a90101"),
		want:   [][]byte{{0x01}},
		valid:  true,
	}, {
		name:   "pushdata1",
		script: hexToBytes("4c03010203"),
		want:   [][]byte{{0x01, 0x02, 0x03}},
		valid:  true,
	}, {
		name:   "truncated",
		script: hexToBytes("4c05"),
		valid:  false,
	}}

	for _, test := range tests {
		data, err := PushedData(test.script)
		if !test.valid {
			require.Error(t, err, test.name)
			continue
		}
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, data, test.name)
	}
}
