// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// serializePubKey returns the compressed or uncompressed serialization of the
// key.
func serializePubKey(key *btcec.PrivateKey, compress bool) []byte {
	if compress {
		return key.PubKey().SerializeCompressed()
	}
	return key.PubKey().SerializeUncompressed()
}

// RawTxInSignature returns the serialized ECDSA signature for the input idx of
// the given transaction, with hashType appended to it.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcSignatureHash(subScript, hashType, tx, idx)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, hash)

	return append(signature.Serialize(), byte(hashType)), nil
}

// SignatureScript creates an input signature script for tx to spend BTC sent
// from a previous output to the owner of privKey. tx must include all
// transaction inputs and outputs, however txin scripts are allowed to be filled
// or empty. The returned script is calculated to be used as the idx'th txin
// sigscript for tx. subscript is the PkScript of the previous output being used
// as the idx'th input. privKey is serialized in either a compressed or
// uncompressed format based on compress. This format must match the same format
// used to generate the payment address, or the script validation will fail.
func SignatureScript(tx *wire.MsgTx, idx int, subscript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey,
	compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := serializePubKey(privKey, compress)
	return NewScriptBuilder().AddData(sig).AddData(pk).Script()
}

// MultiSigSignatureScript creates a signature script spending a bare or
// pay-to-script-hash multisig script with the passed keys, which must be
// given in the order their public keys appear in the script.  The redeem
// script is appended when redeemScript is set.
func MultiSigSignatureScript(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, keys []*btcec.PrivateKey,
	redeemScript []byte) ([]byte, error) {

	// The extra item consumed by CHECKMULTISIG must be empty for the
	// script to be standard.
	builder := NewScriptBuilder().AddOp(OP_0)
	for _, key := range keys {
		sig, err := RawTxInSignature(tx, idx, subScript, hashType, key)
		if err != nil {
			return nil, err
		}
		builder.AddData(sig)
	}
	if redeemScript != nil {
		builder.AddData(redeemScript)
	}

	return builder.Script()
}

// RawTxInWitnessSignature returns the serialized ECDSA signature for the input
// idx of the given transaction, with the hashType appended to it. This
// function is identical to RawTxInSignature, however the signature generated
// signs a new sighash digest defined in BIP0143.
func RawTxInWitnessSignature(tx *wire.MsgTx, sigHashes *SigHashCache, idx int,
	amt int64, subScript []byte, hashType SigHashType,
	key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcWitnessSigHash(subScript, sigHashes, hashType, tx,
		idx, amt)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, hash)

	return append(signature.Serialize(), byte(hashType)), nil
}

// WitnessSignature creates an input witness stack for tx to spend BTC sent
// from a previous pay-to-witness-pubkey-hash output to the owner of privKey
// using the p2wkh script template. The passed transaction must contain all the
// inputs and outputs as dictated by the passed hashType.
func WitnessSignature(tx *wire.MsgTx, sigHashes *SigHashCache, idx int,
	amt int64, privKey *btcec.PrivateKey, hashType SigHashType,
	compress bool) (wire.TxWitness, error) {

	pk := serializePubKey(privKey, compress)

	// The script code of a P2WPKH spend is the classic P2PKH script of the
	// key's hash.
	scriptCode, err := PayToPubKeyHashScript(btcutil.Hash160(pk))
	if err != nil {
		return nil, err
	}

	sig, err := RawTxInWitnessSignature(tx, sigHashes, idx, amt,
		scriptCode, hashType, privKey)
	if err != nil {
		return nil, err
	}

	// A witness script is actually a stack, so we return an array of byte
	// slices here, rather than a single byte slice.
	return wire.TxWitness{sig, pk}, nil
}

// schnorrSign signs the passed BIP 341 digest, appending the hash type unless
// it is SigHashDefault.
func schnorrSign(key *btcec.PrivateKey, sigHash []byte,
	hashType SigHashType) ([]byte, error) {

	signature, err := schnorr.Sign(key, sigHash)
	if err != nil {
		return nil, fmt.Errorf("cannot sign tx input: %w", err)
	}

	sig := signature.Serialize()
	if hashType != SigHashDefault {
		sig = append(sig, byte(hashType))
	}
	return sig, nil
}

// RawTxInTaprootSignature returns a valid schnorr signature required to
// perform a taproot key-spend of the specified input. If SigHashDefault was
// specified, then the returned signature is 64-byte in length, as it omits the
// additional byte to denote the sighash type.  The private key is tweaked by
// the passed tapscript root, which is empty for an output without scripts.
// sigHashes must have been created with the previous outputs of every input.
func RawTxInTaprootSignature(tx *wire.MsgTx, sigHashes *SigHashCache, idx int,
	tapScriptRootHash []byte, hashType SigHashType,
	key *btcec.PrivateKey) ([]byte, error) {

	sigHash, err := CalcTaprootSignatureHash(sigHashes, hashType, tx, idx,
		fn.None[TapscriptExtension](), fn.None[[]byte]())
	if err != nil {
		return nil, err
	}

	return schnorrSign(
		TweakTaprootPrivKey(key, tapScriptRootHash), sigHash, hashType,
	)
}

// TaprootWitnessSignature returns a valid witness stack that can be used to
// spend the key-spend path of a taproot output with no script commitment.
func TaprootWitnessSignature(tx *wire.MsgTx, sigHashes *SigHashCache, idx int,
	hashType SigHashType, key *btcec.PrivateKey) (wire.TxWitness, error) {

	sig, err := RawTxInTaprootSignature(tx, sigHashes, idx, []byte{},
		hashType, key)
	if err != nil {
		return nil, err
	}

	return wire.TxWitness{sig}, nil
}

// RawTxInTapscriptSignature computes a raw schnorr signature for a signature
// generated from a tapscript leaf. This differs from the
// RawTxInTaprootSignature which is used to generate signatures for top-level
// taproot key spends.  The signature commits to no OP_CODESEPARATOR having
// been executed.
func RawTxInTapscriptSignature(tx *wire.MsgTx, sigHashes *SigHashCache,
	idx int, tapLeaf TapLeaf, hashType SigHashType,
	privKey *btcec.PrivateKey) ([]byte, error) {

	ext := TapscriptExtension{
		TapLeafHash: tapLeaf.TapHash(),
		CodeSepPos:  blankCodeSepValue,
	}
	sigHash, err := CalcTaprootSignatureHash(sigHashes, hashType, tx, idx,
		fn.Some(ext), fn.None[[]byte]())
	if err != nil {
		return nil, err
	}

	// The key is not tweaked since script path signatures are checked
	// against the key named in the leaf script.
	return schnorrSign(privKey, sigHash, hashType)
}
