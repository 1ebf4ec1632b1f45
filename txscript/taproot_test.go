// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

var (
	// bip86PrivKeys are the first keys of the BIP 86 test wallet.
	bip86PrivKeys = [][]byte{
		// m/86'/0'/0'/0/0
		hexToBytes("41f41d69260df4cf277826a9b65a3717e4eeddbeedf637f212ca" +
			"096576479361"),
		// m/86'/0'/0'/0/1
		hexToBytes("86c68ac0ed7df88cbdd08a847c6d639f87d1234d40503abf3ac1" +
			"78ef7ddc05dd"),
		// m/86'/0'/0'/1/0
		hexToBytes("6ccbca4a02ac648702dde463d9c1b0d328a4df1e068ef9dc2bc7" +
			"88b33a4f0412"),
	}

	bip86Addresses = []string{
		"bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr",
		"bc1p4qhjn9zdvkux4e44uhx8tc55attvtyu358kutcqkudyccelu0was9fqzwh",
		"bc1p3qkhfews2uk44qtvauqyr2ttdsw7svhkl9nkm9s9c3x4ax5h60wqwruhk7",
	}
)

// TestTaprootKeyNoScript checks key path only output keys against the BIP 86
// addresses.
func TestTaprootKeyNoScript(t *testing.T) {
	t.Parallel()

	for i, keyBytes := range bip86PrivKeys {
		_, pubKey := btcec.PrivKeyFromBytes(keyBytes)
		outputKey := ComputeTaprootKeyNoScript(pubKey)

		addr, err := btcutil.NewAddressTaproot(
			schnorr.SerializePubKey(outputKey), &chaincfg.MainNetParams,
		)
		require.NoError(t, err)
		require.Equal(t, bip86Addresses[i], addr.EncodeAddress())

		// The output script must extract to the same address.
		pkScript, err := PayToTaprootScript(outputKey)
		require.NoError(t, err)
		extracted, err := ExtractAddress(pkScript, &chaincfg.MainNetParams)
		require.NoError(t, err)
		require.Equal(t, bip86Addresses[i], extracted.EncodeAddress())
	}
}

// TestTaprootTweakMatchesPubKey checks that tweaking a private key gives the
// key of the tweaked public key, for arbitrary script roots.
func TestTaprootTweakMatchesPubKey(t *testing.T) {
	t.Parallel()

	f := func(privBytes, root [32]byte) bool {
		privKey, _ := btcec.PrivKeyFromBytes(privBytes[:])
		original := privKey.Serialize()

		tweakedPub := ComputeTaprootOutputKey(privKey.PubKey(), root[:])
		tweakedPriv := TweakTaprootPrivKey(privKey, root[:])

		// The passed key is left untouched.
		if !bytes.Equal(original, privKey.Serialize()) {
			return false
		}

		return bytes.Equal(
			schnorr.SerializePubKey(tweakedPub),
			schnorr.SerializePubKey(tweakedPriv.PubKey()),
		)
	}
	require.NoError(t, quick.Check(f, nil))
}

// TestTapBranchOrdering ensures branch hashes do not depend on the order of
// their children.
func TestTapBranchOrdering(t *testing.T) {
	t.Parallel()

	a := NewBaseTapLeaf([]byte{OP_1})
	b := NewBaseTapLeaf([]byte{OP_2})

	require.Equal(t, NewTapBranch(a, b).TapHash(), NewTapBranch(b, a).TapHash())
	require.NotEqual(t, a.TapHash(), NewTapLeaf(0xc2, a.Script).TapHash())
	require.Nil(t, a.Left())
	require.Nil(t, a.Right())
}

// threeLeafTree builds the tree ((A, B), C) and returns the leaves with their
// inclusion proofs along with the root hash.
func threeLeafTree() ([]TapscriptProof, []byte) {
	a := NewBaseTapLeaf([]byte{OP_1})
	b := NewBaseTapLeaf([]byte{OP_2, OP_DROP, OP_1})
	c := NewBaseTapLeaf([]byte{OP_3, OP_DROP, OP_1})

	ab := NewTapBranch(a, b)
	root := NewTapBranch(ab, c).TapHash()

	aHash, bHash, cHash, abHash := a.TapHash(), b.TapHash(), c.TapHash(),
		ab.TapHash()

	proofs := []TapscriptProof{{
		TapLeaf:        a,
		InclusionProof: append(append([]byte{}, bHash[:]...), cHash[:]...),
	}, {
		TapLeaf:        b,
		InclusionProof: append(append([]byte{}, aHash[:]...), cHash[:]...),
	}, {
		TapLeaf:        c,
		InclusionProof: append([]byte{}, abHash[:]...),
	}}
	return proofs, root[:]
}

// TestTapscriptCommitmentVerification ensures leaf inclusion proofs are
// checked against the output key.
func TestTapscriptCommitmentVerification(t *testing.T) {
	t.Parallel()

	proofs, root := threeLeafTree()
	internalKey := testKey(9).PubKey()
	outputKey := schnorr.SerializePubKey(
		ComputeTaprootOutputKey(internalKey, root),
	)

	tests := []struct {
		name        string
		mutate      func(*ControlBlock)
		script      func([]byte) []byte
		expectedErr ErrorCode
	}{{
		name: "valid",
	}, {
		name: "flipped proof bit",
		mutate: func(c *ControlBlock) {
			proof := append([]byte{}, c.InclusionProof...)
			proof[len(proof)-1] ^= 1
			c.InclusionProof = proof
		},
		expectedErr: ErrTaprootMerkleProofInvalid,
	}, {
		name: "wrong parity",
		mutate: func(c *ControlBlock) {
			c.OutputKeyYIsOdd = !c.OutputKeyYIsOdd
		},
		expectedErr: ErrTaprootOutputKeyParityMismatch,
	}, {
		name: "other script",
		script: func(s []byte) []byte {
			return append(append([]byte{}, s...), OP_NOP)
		},
		expectedErr: ErrTaprootMerkleProofInvalid,
	}}

	for _, test := range tests {
		for i, proof := range proofs {
			proof := proof
			ctrlBlock := proof.ToControlBlock(internalKey)
			require.Equal(t, root, ctrlBlock.RootHash(proof.Script))

			if test.mutate != nil {
				test.mutate(&ctrlBlock)
			}
			script := proof.Script
			if test.script != nil {
				script = test.script(script)
			}

			err := VerifyTaprootLeafCommitment(
				&ctrlBlock, outputKey, script,
			)
			if test.expectedErr == 0 {
				require.NoError(t, err, "%s leaf %d", test.name, i)
				continue
			}
			require.True(t, IsErrorCode(err, test.expectedErr),
				"%s leaf %d: %v", test.name, i, err)
		}
	}
}

// TestControlBlockParsing tests serializing and parsing control blocks.
func TestControlBlockParsing(t *testing.T) {
	t.Parallel()

	proofs, _ := threeLeafTree()
	internalKey := testKey(9).PubKey()

	for _, proof := range proofs {
		proof := proof
		ctrlBlock := proof.ToControlBlock(internalKey)
		raw, err := ctrlBlock.ToBytes()
		require.NoError(t, err)
		require.Len(t, raw, ControlBlockBaseSize+len(proof.InclusionProof))

		parsed, err := ParseControlBlock(raw)
		require.NoError(t, err)
		require.Equal(t, ctrlBlock.LeafVersion, parsed.LeafVersion)
		require.Equal(t, ctrlBlock.OutputKeyYIsOdd, parsed.OutputKeyYIsOdd)
		require.Equal(t, ctrlBlock.InclusionProof, parsed.InclusionProof)
		require.Equal(t, schnorr.SerializePubKey(internalKey),
			schnorr.SerializePubKey(parsed.InternalKey))
	}

	validKey := schnorr.SerializePubKey(internalKey)
	tests := []struct {
		name    string
		raw     []byte
		errCode ErrorCode
	}{{
		name:    "too small",
		raw:     make([]byte, ControlBlockBaseSize-1),
		errCode: ErrControlBlockTooSmall,
	}, {
		name: "too large",
		raw: append(append([]byte{0xc0}, validKey...),
			make([]byte, ControlBlockNodeSize*(ControlBlockMaxNodeCount+1))...),
		errCode: ErrControlBlockTooLarge,
	}, {
		name: "partial node",
		raw: append(append([]byte{0xc0}, validKey...),
			make([]byte, ControlBlockNodeSize-1)...),
		errCode: ErrControlBlockInvalidLength,
	}}

	for _, test := range tests {
		_, err := ParseControlBlock(test.raw)
		require.True(t, IsErrorCode(err, test.errCode), test.name)
	}

	bad := ControlBlock{
		InternalKey:    internalKey,
		LeafVersion:    BaseLeafVersion,
		InclusionProof: make([]byte, 5),
	}
	_, err := bad.ToBytes()
	require.True(t, IsErrorCode(err, ErrControlBlockInvalidLength))
}

// TestAnnexDetection tests recognition of the taproot annex.
func TestAnnexDetection(t *testing.T) {
	t.Parallel()

	require.False(t, isAnnexedWitness([][]byte{{TaprootAnnexTag}}))
	require.False(t, isAnnexedWitness([][]byte{{0x01}, {}}))
	require.True(t, isAnnexedWitness([][]byte{{0x01}, {TaprootAnnexTag, 0x02}}))

	annex, err := extractAnnex([][]byte{{0x01}, {TaprootAnnexTag, 0x02}})
	require.NoError(t, err)
	require.Equal(t, []byte{TaprootAnnexTag, 0x02}, annex)

	_, err = extractAnnex([][]byte{{0x01}})
	require.True(t, IsErrorCode(err, ErrWitnessHasNoAnnex))
}
