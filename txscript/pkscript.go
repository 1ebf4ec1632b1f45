// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

const (
	// pubKeyHashSigScriptLen is the length of a signature script attempting
	// to spend a P2PKH script with a compressed key and a 71 byte
	// signature.  The only other possible length is 107 bytes.
	//   0x47 or 0x48 (71 or 72 byte data push) | <71 or 72 byte sig> |
	//   0x21 (33 byte data push) | <33 byte compressed pubkey>
	pubKeyHashSigScriptLen = 106

	// pubKeyHashLen is the length of a P2PKH script.
	pubKeyHashLen = 25

	// witnessV0PubKeyHashLen is the length of a P2WPKH script.
	witnessV0PubKeyHashLen = 22

	// scriptHashLen is the length of a P2SH script.
	scriptHashLen = 23

	// witnessV0ScriptHashLen is the length of a P2WSH script.
	witnessV0ScriptHashLen = 34

	// witnessV1TaprootLen is the length of a P2TR script.
	witnessV1TaprootLen = 34

	// maxLen is the maximum script length supported by ParsePkScript.
	maxLen = witnessV0ScriptHashLen
)

var (
	// ErrUnsupportedScriptType is an error returned when we attempt to
	// parse/re-compute an output script into a PkScript struct.
	ErrUnsupportedScriptType = errors.New("unsupported script type")
)

// PkScript is a wrapper struct around a byte array, allowing it to be used
// as a map index.
type PkScript struct {
	// class is the type of the script encoded within the byte array. This
	// is used to determine the correct length of the script within the byte
	// array.
	class ScriptClass

	// script is the script contained within a byte array. If the script is
	// smaller than the length of the byte array, it will be padded with 0s
	// at the end.
	script [maxLen]byte
}

// ParsePkScript parses an output script into the PkScript struct.
// ErrUnsupportedScriptType is returned when attempting to parse an unsupported
// script type.
func ParsePkScript(pkScript []byte) (PkScript, error) {
	var outputScript PkScript
	scriptClass := GetScriptClass(pkScript)
	if !isSupportedScriptType(scriptClass) {
		return outputScript, ErrUnsupportedScriptType
	}

	outputScript.class = scriptClass
	copy(outputScript.script[:], pkScript)

	return outputScript, nil
}

// isSupportedScriptType determines whether the script type is supported by the
// PkScript struct.
func isSupportedScriptType(class ScriptClass) bool {
	switch class {
	case PubKeyHashTy, WitnessV0PubKeyHashTy, ScriptHashTy,
		WitnessV0ScriptHashTy, WitnessV1TaprootTy:
		return true
	default:
		return false
	}
}

// Class returns the script type.
func (s PkScript) Class() ScriptClass {
	return s.class
}

// Script returns the script as a byte slice without any padding.
func (s PkScript) Script() []byte {
	var length int
	switch s.class {
	case PubKeyHashTy:
		length = pubKeyHashLen
	case WitnessV0PubKeyHashTy:
		length = witnessV0PubKeyHashLen
	case ScriptHashTy:
		length = scriptHashLen
	case WitnessV0ScriptHashTy:
		length = witnessV0ScriptHashLen
	case WitnessV1TaprootTy:
		length = witnessV1TaprootLen
	default:
		return nil
	}

	script := make([]byte, length)
	copy(script, s.script[:length])
	return script
}

// Address encodes the script into an address for the given chain.
func (s PkScript) Address(chainParams *chaincfg.Params) (btcutil.Address, error) {
	return ExtractAddress(s.Script(), chainParams)
}

// String returns the disassembly of the script.
func (s PkScript) String() string {
	str, _ := DisasmString(s.Script())
	return str
}

// ExtractAddress returns the address an output script pays to.  Only scripts
// that encode to a single address are supported: pay-to-pubkey,
// pay-to-pubkey-hash, pay-to-script-hash and the witness version 0 and 1
// programs.
func ExtractAddress(pkScript []byte,
	chainParams *chaincfg.Params) (btcutil.Address, error) {

	switch GetScriptClass(pkScript) {
	case PubKeyHashTy:
		return btcutil.NewAddressPubKeyHash(pkScript[3:23], chainParams)

	case ScriptHashTy:
		return btcutil.NewAddressScriptHashFromHash(
			pkScript[2:22], chainParams,
		)

	case WitnessV0PubKeyHashTy:
		return btcutil.NewAddressWitnessPubKeyHash(
			pkScript[2:], chainParams,
		)

	case WitnessV0ScriptHashTy:
		return btcutil.NewAddressWitnessScriptHash(
			pkScript[2:], chainParams,
		)

	case WitnessV1TaprootTy:
		return btcutil.NewAddressTaproot(pkScript[2:], chainParams)

	case PubKeyTy:
		return btcutil.NewAddressPubKey(
			pkScript[1:len(pkScript)-1], chainParams,
		)
	}

	return nil, fmt.Errorf("unable to extract address: %w",
		ErrUnsupportedScriptType)
}

// ComputePkScript computes the pkScript of an transaction output by looking at
// the transaction input's signature script or witness.
//
// NOTE: Only P2PKH, P2SH, P2WSH, and P2WPKH redeem scripts are supported.
// Taproot spends do not reveal the output key and so cannot be recovered.
func ComputePkScript(sigScript []byte, witness wire.TxWitness) (PkScript, error) {
	var pkScript PkScript

	// Ensure that either an input's signature script or a witness was
	// provided.
	if len(sigScript) == 0 && len(witness) == 0 {
		return pkScript, ErrUnsupportedScriptType
	}

	// We'll start by checking the input's signature script, if provided.
	switch {
	// A signature script with the length of a P2PKH spend ending in a
	// compressed public key is assumed to be one.
	case len(sigScript) == pubKeyHashSigScriptLen ||
		len(sigScript) == pubKeyHashSigScriptLen+1:

		pubKey := sigScript[len(sigScript)-compressedPubKeyLen:]
		if isCompressedPubKey(pubKey) {
			script, err := PayToPubKeyHashScript(
				btcutil.Hash160(pubKey),
			)
			if err != nil {
				return pkScript, err
			}

			pkScript.class = PubKeyHashTy
			copy(pkScript.script[:], script)
			return pkScript, nil
		}

		// If it isn't, we'll assume it is a P2SH signature script.
		fallthrough

	// Any other push only signature script is assumed to spend a P2SH
	// output, with the redeem script as its last push.
	case len(sigScript) > 0 && IsPushOnlyScript(sigScript):
		pushes, err := PushedData(sigScript)
		if err != nil {
			return pkScript, err
		}
		if len(pushes) == 0 {
			return pkScript, ErrUnsupportedScriptType
		}
		redeemScript := pushes[len(pushes)-1]

		script, err := PayToScriptHashScript(btcutil.Hash160(redeemScript))
		if err != nil {
			return pkScript, err
		}

		pkScript.class = ScriptHashTy
		copy(pkScript.script[:], script)
		return pkScript, nil

	case len(sigScript) > 0:
		return pkScript, ErrUnsupportedScriptType
	}

	// If a witness was provided instead, we'll use the last item of the
	// witness stack to determine the proper witness type.
	lastWitnessItem := witness[len(witness)-1]

	switch {
	// If the witness stack has a size of 2 and its last item is a
	// compressed public key, then this is a P2WPKH witness.
	case len(witness) == 2 && len(lastWitnessItem) == compressedPubKeyLen:
		script, err := PayToWitnessPubKeyHashScript(
			btcutil.Hash160(lastWitnessItem),
		)
		if err != nil {
			return pkScript, err
		}

		pkScript.class = WitnessV0PubKeyHashTy
		copy(pkScript.script[:], script)
		return pkScript, nil

	// For any other witnesses, we'll assume it's a P2WSH witness.
	default:
		scriptHash := sha256.Sum256(lastWitnessItem)
		script, err := PayToWitnessScriptHashScript(scriptHash[:])
		if err != nil {
			return pkScript, err
		}

		pkScript.class = WitnessV0ScriptHashTy
		copy(pkScript.script[:], script)
		return pkScript, nil
	}
}
