// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// TapscriptLeafVersion is the version byte committed to by a tapscript leaf.
// It selects the rules the leaf script runs under.
type TapscriptLeafVersion uint8

// BaseLeafVersion is the leaf version of BIP 342 tapscript.
const BaseLeafVersion TapscriptLeafVersion = 0xc0

const (
	// TaprootLeafMask keeps the leaf version bits of the first control
	// block byte.  The remaining low bit is the output key parity.
	TaprootLeafMask = 0xfe

	// TaprootAnnexTag marks the last witness item of a taproot spend as
	// an annex.
	TaprootAnnexTag = 0x50

	// TaprootWitnessVersion is the witness version of a taproot output.
	TaprootWitnessVersion = 1

	// ControlBlockBaseSize is the size of a control block without path
	// nodes: the version byte and the x-only internal key.
	ControlBlockBaseSize = 33

	// ControlBlockNodeSize is the size of one path node.
	ControlBlockNodeSize = 32

	// ControlBlockMaxNodeCount is the depth limit of a script tree.
	ControlBlockMaxNodeCount = 128

	// ControlBlockMaxSize is the size of a control block for a leaf at
	// the maximum depth.
	ControlBlockMaxSize = ControlBlockBaseSize +
		ControlBlockNodeSize*ControlBlockMaxNodeCount
)

// isAnnexedWitness reports whether the last item of a witness with at least
// two items starts with the annex tag.
func isAnnexedWitness(witness wire.TxWitness) bool {
	n := len(witness)
	return n >= 2 && len(witness[n-1]) > 0 &&
		witness[n-1][0] == TaprootAnnexTag
}

// extractAnnex returns the annex of the witness, tag included.
func extractAnnex(witness [][]byte) ([]byte, error) {
	if !isAnnexedWitness(witness) {
		return nil, scriptError(ErrWitnessHasNoAnnex,
			"witness has no annex")
	}
	return witness[len(witness)-1], nil
}

// hasOddY reports whether the full encoding of key has an odd y coordinate.
func hasOddY(key *btcec.PublicKey) bool {
	return key.SerializeCompressed()[0] == secp256k1.PubKeyFormatCompressedOdd
}

// tapTweak returns the scalar committing an x-only internal key to a script
// tree root, empty when there is no tree.
func tapTweak(xOnlyKey, scriptRoot []byte) *btcec.ModNScalar {
	h := chainhash.TaggedHash(chainhash.TagTapTweak, xOnlyKey, scriptRoot)

	var tweak btcec.ModNScalar
	tweak.SetBytes((*[32]byte)(h))
	return &tweak
}

// ControlBlock is the last witness item of a script path spend.  It reveals
// the internal key and the path from the executed leaf to the tree root.
type ControlBlock struct {
	// InternalKey is the untweaked key of the output.
	InternalKey *btcec.PublicKey

	// OutputKeyYIsOdd is the parity of the tweaked output key.
	OutputKeyYIsOdd bool

	// LeafVersion is the version of the executed leaf.
	LeafVersion TapscriptLeafVersion

	// InclusionProof holds the sibling hashes from the leaf up to the
	// root, 32 bytes each.
	InclusionProof []byte
}

// ToBytes serializes the control block for use in a witness.
func (c *ControlBlock) ToBytes() ([]byte, error) {
	if len(c.InclusionProof)%ControlBlockNodeSize != 0 {
		return nil, scriptError(ErrControlBlockInvalidLength,
			"inclusion proof is not a multiple of the node size")
	}

	first := byte(c.LeafVersion) & TaprootLeafMask
	if c.OutputKeyYIsOdd {
		first |= 1
	}

	raw := make([]byte, 0, ControlBlockBaseSize+len(c.InclusionProof))
	raw = append(raw, first)
	raw = append(raw, schnorr.SerializePubKey(c.InternalKey)...)
	return append(raw, c.InclusionProof...), nil
}

// RootHash returns the root of the script tree the proof commits script to.
func (c *ControlBlock) RootHash(script []byte) []byte {
	h := NewTapLeaf(c.LeafVersion, script).TapHash()
	for proof := c.InclusionProof; len(proof) >= ControlBlockNodeSize; {
		h = tapBranchHash(h[:], proof[:ControlBlockNodeSize])
		proof = proof[ControlBlockNodeSize:]
	}
	return h[:]
}

// ParseControlBlock decodes a serialized control block.
func ParseControlBlock(ctrlBlock []byte) (*ControlBlock, error) {
	size := len(ctrlBlock)
	if size < ControlBlockBaseSize {
		return nil, scriptError(ErrControlBlockTooSmall, fmt.Sprintf(
			"min size is %v bytes, control block is %v bytes",
			ControlBlockBaseSize, size))
	}
	if size > ControlBlockMaxSize {
		return nil, scriptError(ErrControlBlockTooLarge, fmt.Sprintf(
			"max size is %v, control block is %v bytes",
			ControlBlockMaxSize, size))
	}
	if proofLen := size - ControlBlockBaseSize; proofLen%ControlBlockNodeSize != 0 {
		return nil, scriptError(ErrControlBlockInvalidLength, fmt.Sprintf(
			"control block proof is not a multiple of 32: %v",
			proofLen))
	}

	internalKey, err := schnorr.ParsePubKey(ctrlBlock[1:ControlBlockBaseSize])
	if err != nil {
		return nil, scriptError(ErrTaprootMerkleProofInvalid,
			fmt.Sprintf("invalid internal key: %v", err))
	}

	return &ControlBlock{
		InternalKey:     internalKey,
		OutputKeyYIsOdd: ctrlBlock[0]&1 == 1,
		LeafVersion:     TapscriptLeafVersion(ctrlBlock[0] & TaprootLeafMask),
		InclusionProof:  ctrlBlock[ControlBlockBaseSize:],
	}, nil
}

// ComputeTaprootOutputKey returns the output key committing pubKey to the
// script tree with the given root:
// Q = P + h_tapTweak(x(P) || root)*G, with P the even y lift of pubKey.
func ComputeTaprootOutputKey(pubKey *btcec.PublicKey,
	scriptRoot []byte) *btcec.PublicKey {

	xOnly := schnorr.SerializePubKey(pubKey)
	internalKey, _ := schnorr.ParsePubKey(xOnly)

	var p, t, q btcec.JacobianPoint
	internalKey.AsJacobian(&p)
	btcec.ScalarBaseMultNonConst(tapTweak(xOnly, scriptRoot), &t)
	btcec.AddNonConst(&p, &t, &q)
	q.ToAffine()

	return btcec.NewPublicKey(&q.X, &q.Y)
}

// ComputeTaprootKeyNoScript returns the output key for an internal key with no
// script tree, spendable only by the key path.
func ComputeTaprootKeyNoScript(internalKey *btcec.PublicKey) *btcec.PublicKey {
	return ComputeTaprootOutputKey(internalKey, []byte{})
}

// TweakTaprootPrivKey returns the private key of the output key computed by
// ComputeTaprootOutputKey for the public key of privKey.  privKey is left
// untouched.
func TweakTaprootPrivKey(privKey *btcec.PrivateKey,
	scriptRoot []byte) *btcec.PrivateKey {

	pubKey := privKey.PubKey()

	// The internal key is used with an even y, so the secret of an odd y
	// key is negated first.
	var d btcec.ModNScalar
	d.Set(&privKey.Key)
	if hasOddY(pubKey) {
		d.Negate()
	}
	d.Add(tapTweak(schnorr.SerializePubKey(pubKey), scriptRoot))

	return btcec.PrivKeyFromScalar(&d)
}

// VerifyTaprootLeafCommitment checks that the control block commits script to
// the x-only output key program, parity included.
func VerifyTaprootLeafCommitment(controlBlock *ControlBlock,
	taprootWitnessProgram []byte, revealedScript []byte) error {

	outputKey := ComputeTaprootOutputKey(
		controlBlock.InternalKey, controlBlock.RootHash(revealedScript),
	)

	derived := schnorr.SerializePubKey(outputKey)
	if !bytes.Equal(derived, taprootWitnessProgram) {
		return scriptError(ErrTaprootMerkleProofInvalid, fmt.Sprintf(
			"derived witness program %x doesn't match %x", derived,
			taprootWitnessProgram))
	}

	if oddY := hasOddY(outputKey); oddY != controlBlock.OutputKeyYIsOdd {
		return scriptError(ErrTaprootOutputKeyParityMismatch, fmt.Sprintf(
			"control block y is odd: %v, derived parity is odd: %v",
			controlBlock.OutputKeyYIsOdd, oddY))
	}

	return nil
}

// TapNode is a leaf or branch of a script tree.
type TapNode interface {
	// TapHash returns the tagged hash of the node.
	TapHash() chainhash.Hash

	// Left returns the left child, nil for a leaf.
	Left() TapNode

	// Right returns the right child, nil for a leaf.
	Right() TapNode
}

// TapLeaf is a script of a script tree with its leaf version.
type TapLeaf struct {
	LeafVersion TapscriptLeafVersion
	Script      []byte
}

// NewTapLeaf returns a leaf for script under the given version.
func NewTapLeaf(leafVersion TapscriptLeafVersion, script []byte) TapLeaf {
	return TapLeaf{LeafVersion: leafVersion, Script: script}
}

// NewBaseTapLeaf returns a BIP 342 leaf for script.
func NewBaseTapLeaf(script []byte) TapLeaf {
	return NewTapLeaf(BaseLeafVersion, script)
}

func (t TapLeaf) Left() TapNode  { return nil }
func (t TapLeaf) Right() TapNode { return nil }

// TapHash returns h_tapleaf(version || compact size of script || script).
func (t TapLeaf) TapHash() chainhash.Hash {
	var msg bytes.Buffer
	msg.WriteByte(byte(t.LeafVersion))
	_ = wire.WriteVarBytes(&msg, 0, t.Script)

	return *chainhash.TaggedHash(chainhash.TagTapLeaf, msg.Bytes())
}

// TapBranch joins two nodes of a script tree.
type TapBranch struct {
	leftNode  TapNode
	rightNode TapNode
}

// NewTapBranch returns the branch joining l and r.
func NewTapBranch(l, r TapNode) TapBranch {
	return TapBranch{leftNode: l, rightNode: r}
}

func (t TapBranch) Left() TapNode  { return t.leftNode }
func (t TapBranch) Right() TapNode { return t.rightNode }

// TapHash returns the branch hash of the children, which does not depend on
// their order.
func (t TapBranch) TapHash() chainhash.Hash {
	l, r := t.leftNode.TapHash(), t.rightNode.TapHash()
	return tapBranchHash(l[:], r[:])
}

// tapBranchHash returns h_tapbranch of the two child hashes, smaller first.
func tapBranchHash(a, b []byte) chainhash.Hash {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return *chainhash.TaggedHash(chainhash.TagTapBranch, a, b)
}

// TapscriptProof is a leaf along with the sibling hashes proving it is part
// of a script tree.
type TapscriptProof struct {
	TapLeaf

	// InclusionProof is the path of sibling hashes from the leaf to the
	// root, in control block order.
	InclusionProof []byte
}

// ToControlBlock returns the control block spending the proven leaf of the
// output committing internalKey to the tree.
func (t *TapscriptProof) ToControlBlock(internalKey *btcec.PublicKey) ControlBlock {
	cb := ControlBlock{
		InternalKey:    internalKey,
		LeafVersion:    t.LeafVersion,
		InclusionProof: t.InclusionProof,
	}
	outputKey := ComputeTaprootOutputKey(internalKey, cb.RootHash(t.Script))
	cb.OutputKeyYIsOdd = hasOddY(outputKey)
	return cb
}
