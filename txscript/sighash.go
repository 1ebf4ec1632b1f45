// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SigVersion identifies the rule set a script is executed and a signature is
// checked under.
type SigVersion uint8

const (
	// SigVersionBase is the original script rule set along with the
	// legacy signature hash.
	SigVersionBase SigVersion = iota

	// SigVersionWitnessV0 is used for version 0 witness programs and the
	// BIP 143 signature hash.
	SigVersionWitnessV0

	// SigVersionTaproot is used for taproot key path spends (BIP 341).
	SigVersionTaproot

	// SigVersionTapscript is used for taproot script path spends of
	// base leaf version scripts (BIP 342).
	SigVersionTapscript
)

// String returns a short human-readable name for the signature version.
func (v SigVersion) String() string {
	switch v {
	case SigVersionBase:
		return "base"
	case SigVersionWitnessV0:
		return "witnessv0"
	case SigVersionTaproot:
		return "taproot"
	case SigVersionTapscript:
		return "tapscript"
	}
	return fmt.Sprintf("SigVersion(%d)", uint8(v))
}

// ParseSigVersion is the inverse of SigVersion.String.
func ParseSigVersion(s string) (SigVersion, error) {
	for v := SigVersionBase; v <= SigVersionTapscript; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown signature version %q", s)
}

// sigHashExtFlag is the spend type bit set when a tapscript extension is
// committed to.
const sigHashExtFlag = 1

// TapscriptExtension is the script path data committed to by tapscript
// signatures: the hash of the executed leaf, the key version and the opcode
// position of the last executed OP_CODESEPARATOR.
type TapscriptExtension struct {
	TapLeafHash chainhash.Hash
	KeyVersion  byte
	CodeSepPos  uint32
}

// blankCodeSepValue is the code separator position committed to when no
// OP_CODESEPARATOR has been executed.
const blankCodeSepValue = ^uint32(0)

// SigHashParams collects everything a signature hash may commit to.  Which
// fields are used depends on Version.
type SigHashParams struct {
	// Version selects the signature hash algorithm.  Taproot and
	// tapscript both use the BIP 341 algorithm.
	Version SigVersion

	// Tx is the spending transaction and InputIndex the signed input.
	Tx         *wire.MsgTx
	InputIndex int

	// PrevOuts supplies the spent outputs.  Witness v0 needs the signed
	// input's output and taproot needs all of them.
	PrevOuts PrevOutputFetcher

	// ScriptCode is the executed script for legacy and witness v0
	// signatures.
	ScriptCode []byte

	// Tapscript is the script path extension of a tapscript signature.
	Tapscript fn.Option[TapscriptExtension]

	// Annex is the annex of the signed input, without its length prefix.
	Annex fn.Option[[]byte]

	HashType SigHashType

	// Cache is reused across calls when set.
	Cache *SigHashCache
}

// CalcSigHash returns the 32-byte digest a signature of the passed kind commits
// to.
func CalcSigHash(p SigHashParams) ([]byte, error) {
	cache := p.Cache
	if cache == nil {
		cache = NewSigHashCache(p.Tx, p.PrevOuts)
	}

	switch p.Version {
	case SigVersionBase:
		return CalcSignatureHash(p.ScriptCode, p.HashType, p.Tx,
			p.InputIndex)

	case SigVersionWitnessV0:
		if err := checkInputIndex(p.Tx, p.InputIndex); err != nil {
			return nil, err
		}
		outPoint := p.Tx.TxIn[p.InputIndex].PreviousOutPoint
		prevOut := cache.fetchPrevOut(outPoint)
		if p.PrevOuts != nil {
			prevOut = p.PrevOuts.FetchPrevOutput(outPoint)
		}
		if prevOut == nil {
			return nil, scriptError(ErrMissingPrevOut,
				"unknown previous output "+outPoint.String())
		}
		return CalcWitnessSigHash(p.ScriptCode, cache, p.HashType,
			p.Tx, p.InputIndex, prevOut.Value)

	default:
		return CalcTaprootSignatureHash(cache, p.HashType, p.Tx,
			p.InputIndex, p.Tapscript, p.Annex)
	}
}

// checkInputIndex returns ErrInvalidIndex unless idx refers to an input of the
// transaction.
func checkInputIndex(tx *wire.MsgTx, idx int) error {
	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is negative or "+
			">= %d", idx, len(tx.TxIn))
		return scriptError(ErrInvalidIndex, str)
	}
	return nil
}

// shallowCopyTx creates a shallow copy of the transaction for use when
// calculating the signature hash.  It is used over the Copy method on the
// transaction itself since that is a deep copy and therefore does more work and
// allocates much more space than needed.
func shallowCopyTx(tx *wire.MsgTx) wire.MsgTx {
	// As an additional memory optimization, use contiguous backing arrays
	// for the copied inputs and outputs and point the final slice of
	// pointers into the contiguous arrays.  This avoids a lot of small
	// allocations.
	txCopy := wire.MsgTx{
		Version:  tx.Version,
		TxIn:     make([]*wire.TxIn, len(tx.TxIn)),
		TxOut:    make([]*wire.TxOut, len(tx.TxOut)),
		LockTime: tx.LockTime,
	}
	txIns := make([]wire.TxIn, len(tx.TxIn))
	for i, oldTxIn := range tx.TxIn {
		txIns[i] = *oldTxIn
		txCopy.TxIn[i] = &txIns[i]
	}
	txOuts := make([]wire.TxOut, len(tx.TxOut))
	for i, oldTxOut := range tx.TxOut {
		txOuts[i] = *oldTxOut
		txCopy.TxOut[i] = &txOuts[i]
	}
	return txCopy
}

// CalcSignatureHash computes the legacy signature hash of the passed input for
// the given script code and hash type.  Any OP_CODESEPARATOR in the script
// code is not committed to.  Removing pushes of the signature itself from the
// script code is up to the caller.
//
// A SIGHASH_SINGLE signature of an input without a matching output commits to
// the value 1 instead of the transaction.  This quirk is part of consensus.
func CalcSignatureHash(scriptCode []byte, hashType SigHashType,
	tx *wire.MsgTx, idx int) ([]byte, error) {

	if err := checkInputIndex(tx, idx); err != nil {
		return nil, err
	}

	if hashType&sigHashMask == SigHashSingle && idx >= len(tx.TxOut) {
		var hash chainhash.Hash
		hash[0] = 0x01
		return hash[:], nil
	}

	// Make a shallow copy of the transaction, zeroing out the script for
	// all inputs that are not currently being processed.
	txCopy := shallowCopyTx(tx)
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[idx].SignatureScript = removeCodeSeparators(
				scriptCode,
			)
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
		txCopy.TxIn[i].Witness = nil
	}

	switch hashType & sigHashMask {
	case SigHashNone:
		txCopy.TxOut = txCopy.TxOut[0:0] // Empty slice.
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}

	case SigHashSingle:
		// Resize output array to up to and including requested index.
		txCopy.TxOut = txCopy.TxOut[:idx+1]

		// All but current output get zeroed out.
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i].Value = -1
			txCopy.TxOut[i].PkScript = nil
		}

		// Sequence on all other inputs is 0, too.
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}

	default:
		// Consensus treats undefined hash types like SigHashAll for
		// purposes of hash generation.
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = txCopy.TxIn[idx : idx+1]
	}

	// The final hash is the double sha256 of both the serialized modified
	// transaction and the hash type (encoded as a 4-byte little-endian
	// value) appended.
	wbuf := bytes.NewBuffer(make([]byte, 0, txCopy.SerializeSizeStripped()+4))
	if err := txCopy.SerializeNoWitness(wbuf); err != nil {
		return nil, err
	}
	var typeBuf [4]byte
	binary.LittleEndian.PutUint32(typeBuf[:], uint32(hashType))
	wbuf.Write(typeBuf[:])

	return chainhash.DoubleHashB(wbuf.Bytes()), nil
}

// CalcWitnessSigHash computes the BIP 143 signature hash of the passed input
// spending amount satoshis.  The sub-hashes are taken from the passed cache,
// which must belong to tx.
func CalcWitnessSigHash(scriptCode []byte, sigHashes *SigHashCache,
	hashType SigHashType, tx *wire.MsgTx, idx int,
	amount int64) ([]byte, error) {

	if err := checkInputIndex(tx, idx); err != nil {
		return nil, err
	}
	if sigHashes == nil {
		sigHashes = NewSigHashCache(tx, nil)
	}

	var (
		sigHash      bytes.Buffer
		zeroHash     chainhash.Hash
		base         = hashType & sigHashMask
		anyoneCanPay = hashType&SigHashAnyOneCanPay != 0
		scratch      [8]byte
	)

	// First write out, then encode the transaction's version number.
	binary.LittleEndian.PutUint32(scratch[:4], uint32(tx.Version))
	sigHash.Write(scratch[:4])

	// Next write out the possibly pre-calculated hashes for the sequence
	// numbers of all inputs, and the hashes of the previous outs for all
	// outputs.
	if !anyoneCanPay {
		h := sigHashes.hashPrevOutsV0()
		sigHash.Write(h[:])
	} else {
		sigHash.Write(zeroHash[:])
	}

	// If the sighash isn't anyone can pay, single, or none, the use the
	// cached hash sequences, otherwise write all zeroes for the
	// hashSequence.
	if !anyoneCanPay && base != SigHashSingle && base != SigHashNone {
		h := sigHashes.hashSequenceV0()
		sigHash.Write(h[:])
	} else {
		sigHash.Write(zeroHash[:])
	}

	txIn := tx.TxIn[idx]

	// Next, write the outpoint being spent.
	sigHash.Write(txIn.PreviousOutPoint.Hash[:])
	binary.LittleEndian.PutUint32(scratch[:4], txIn.PreviousOutPoint.Index)
	sigHash.Write(scratch[:4])

	// The script code is written with its length prefix.  For P2WPKH the
	// caller passes the implied pay-to-pubkey-hash script.
	if err := wire.WriteVarBytes(&sigHash, 0, scriptCode); err != nil {
		return nil, err
	}

	// Next, add the input amount, and sequence number of the input being
	// signed.
	binary.LittleEndian.PutUint64(scratch[:], uint64(amount))
	sigHash.Write(scratch[:])
	binary.LittleEndian.PutUint32(scratch[:4], txIn.Sequence)
	sigHash.Write(scratch[:4])

	// If the current signature mode isn't single, or none, then we can
	// re-use the pre-generated hashoutputs sighash fragment. Otherwise,
	// we'll serialize and add only the target output index to the signature
	// pre-image.
	switch {
	case base != SigHashSingle && base != SigHashNone:
		h := sigHashes.hashOutputsV0()
		sigHash.Write(h[:])

	case base == SigHashSingle && idx < len(tx.TxOut):
		var b bytes.Buffer
		if err := wire.WriteTxOut(&b, 0, 0, tx.TxOut[idx]); err != nil {
			return nil, err
		}
		sigHash.Write(chainhash.DoubleHashB(b.Bytes()))

	default:
		sigHash.Write(zeroHash[:])
	}

	// Finally, write out the transaction's locktime, and the sig hash
	// type.
	binary.LittleEndian.PutUint32(scratch[:4], tx.LockTime)
	sigHash.Write(scratch[:4])
	binary.LittleEndian.PutUint32(scratch[:4], uint32(hashType))
	sigHash.Write(scratch[:4])

	return chainhash.DoubleHashB(sigHash.Bytes()), nil
}

// TaprootSigMessage returns the BIP 341 signature message of the passed input,
// starting with the epoch byte.  The message is what the TapSighash tagged
// hash is taken over.
func TaprootSigMessage(sigHashes *SigHashCache, hashType SigHashType,
	tx *wire.MsgTx, idx int, ext fn.Option[TapscriptExtension],
	annex fn.Option[[]byte]) ([]byte, error) {

	if err := checkInputIndex(tx, idx); err != nil {
		return nil, err
	}
	if !isValidTaprootSigHash(hashType) {
		str := fmt.Sprintf("invalid taproot sighash type: %v", hashType)
		return nil, scriptError(ErrInvalidSigHashType, str)
	}
	if sigHashes == nil {
		return nil, scriptError(ErrMissingPrevOut,
			"taproot signature hash requires a sighash cache with "+
				"previous outputs")
	}

	var (
		sigMsg       bytes.Buffer
		scratch      [8]byte
		anyoneCanPay = hashType&SigHashAnyOneCanPay != 0
		outputType   = hashType & 0x03
	)
	if hashType == SigHashDefault {
		outputType = SigHashAll
	}

	// The message starts with the sighash epoch and the hash type.
	sigMsg.WriteByte(0x00)
	sigMsg.WriteByte(byte(hashType))

	// Transaction data.
	binary.LittleEndian.PutUint32(scratch[:4], uint32(tx.Version))
	sigMsg.Write(scratch[:4])
	binary.LittleEndian.PutUint32(scratch[:4], tx.LockTime)
	sigMsg.Write(scratch[:4])

	if !anyoneCanPay {
		shaPrevOuts := sigHashes.ShaPrevOuts()
		shaAmounts, err := sigHashes.ShaAmounts()
		if err != nil {
			return nil, err
		}
		shaScriptPubKeys, err := sigHashes.ShaScriptPubKeys()
		if err != nil {
			return nil, err
		}
		shaSequences := sigHashes.ShaSequences()

		sigMsg.Write(shaPrevOuts[:])
		sigMsg.Write(shaAmounts[:])
		sigMsg.Write(shaScriptPubKeys[:])
		sigMsg.Write(shaSequences[:])
	}
	if outputType != SigHashNone && outputType != SigHashSingle {
		shaOutputs := sigHashes.ShaOutputs()
		sigMsg.Write(shaOutputs[:])
	}

	// Data about this input.
	var spendType byte
	if ext.IsSome() {
		spendType |= sigHashExtFlag << 1
	}
	if annex.IsSome() {
		spendType |= 1
	}
	sigMsg.WriteByte(spendType)

	if anyoneCanPay {
		txIn := tx.TxIn[idx]
		prevOut := sigHashes.fetchPrevOut(txIn.PreviousOutPoint)
		if prevOut == nil {
			return nil, scriptError(ErrMissingPrevOut,
				"unknown previous output "+
					txIn.PreviousOutPoint.String())
		}

		sigMsg.Write(txIn.PreviousOutPoint.Hash[:])
		binary.LittleEndian.PutUint32(scratch[:4],
			txIn.PreviousOutPoint.Index)
		sigMsg.Write(scratch[:4])

		binary.LittleEndian.PutUint64(scratch[:], uint64(prevOut.Value))
		sigMsg.Write(scratch[:])
		if err := wire.WriteVarBytes(&sigMsg, 0, prevOut.PkScript); err != nil {
			return nil, err
		}

		binary.LittleEndian.PutUint32(scratch[:4], txIn.Sequence)
		sigMsg.Write(scratch[:4])
	} else {
		binary.LittleEndian.PutUint32(scratch[:4], uint32(idx))
		sigMsg.Write(scratch[:4])
	}

	var annexErr error
	annex.WhenSome(func(a []byte) {
		var b bytes.Buffer
		annexErr = wire.WriteVarBytes(&b, 0, a)
		sigMsg.Write(chainhash.HashB(b.Bytes()))
	})
	if annexErr != nil {
		return nil, annexErr
	}

	// Data about this output.
	if outputType == SigHashSingle {
		if idx >= len(tx.TxOut) {
			str := fmt.Sprintf("sighash single input index %d has no "+
				"matching output, only %d outputs", idx,
				len(tx.TxOut))
			return nil, scriptError(ErrSighashSingleIdx, str)
		}

		var b bytes.Buffer
		if err := wire.WriteTxOut(&b, 0, 0, tx.TxOut[idx]); err != nil {
			return nil, err
		}
		sigMsg.Write(chainhash.HashB(b.Bytes()))
	}

	// Script path extension.
	ext.WhenSome(func(e TapscriptExtension) {
		sigMsg.Write(e.TapLeafHash[:])
		sigMsg.WriteByte(e.KeyVersion)
		binary.LittleEndian.PutUint32(scratch[:4], e.CodeSepPos)
		sigMsg.Write(scratch[:4])
	})

	return sigMsg.Bytes(), nil
}

// CalcTaprootSignatureHash computes the BIP 341 signature hash of the passed
// input: the TapSighash tagged hash of its signature message.
func CalcTaprootSignatureHash(sigHashes *SigHashCache, hashType SigHashType,
	tx *wire.MsgTx, idx int, ext fn.Option[TapscriptExtension],
	annex fn.Option[[]byte]) ([]byte, error) {

	sigMsg, err := TaprootSigMessage(sigHashes, hashType, tx, idx, ext, annex)
	if err != nil {
		return nil, err
	}

	return chainhash.TaggedHash(chainhash.TagTapSighash, sigMsg)[:], nil
}
