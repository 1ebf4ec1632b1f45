// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// MaxDataCarrierSize is the maximum number of bytes allowed in pushed
// data to be considered a nulldata transaction.
const MaxDataCarrierSize = 80

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about in the blockchain.
const (
	NonStandardTy         ScriptClass = iota // None of the recognized forms.
	PubKeyTy                                 // Pay pubkey.
	PubKeyHashTy                             // Pay pubkey hash.
	WitnessV0PubKeyHashTy                    // Pay witness pubkey hash.
	ScriptHashTy                             // Pay to script hash.
	WitnessV0ScriptHashTy                    // Pay to witness script hash.
	MultiSigTy                               // Multi signature.
	NullDataTy                               // Empty data-only (provably prunable).
	WitnessV1TaprootTy                       // Taproot output
	WitnessUnknownTy                         // Witness unknown
	PayToAnchorTy                            // Pay to anchor
)

// scriptClassToName houses the human-readable strings which describe each
// script class.
var scriptClassToName = []string{
	NonStandardTy:         "nonstandard",
	PubKeyTy:              "pubkey",
	PubKeyHashTy:          "pubkeyhash",
	WitnessV0PubKeyHashTy: "witness_v0_keyhash",
	ScriptHashTy:          "scripthash",
	WitnessV0ScriptHashTy: "witness_v0_scripthash",
	MultiSigTy:            "multisig",
	NullDataTy:            "nulldata",
	WitnessV1TaprootTy:    "witness_v1_taproot",
	WitnessUnknownTy:      "witness_unknown",
	PayToAnchorTy:         "anchor",
}

// String implements the Stringer interface by returning the name of
// the enum script class.  If the enum is invalid then "Invalid" will be
// returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// isPubKeyScript returns whether or not the passed script is a standard
// pay-to-pubkey script: <33 or 65 byte pubkey> OP_CHECKSIG.
func isPubKeyScript(script Script) bool {
	if len(script.Trailing) != 0 || len(script.Ops) != 2 ||
		script.Ops[1].Value != OP_CHECKSIG {

		return false
	}

	op := script.Ops[0]
	switch {
	case op.Value == OP_DATA_33 && (op.Data[0] == 0x02 || op.Data[0] == 0x03):
		return true
	case op.Value == OP_DATA_65 && op.Data[0] == 0x04:
		return true
	}
	return false
}

// isPubKeyHashScript returns whether or not the passed script is a standard
// pay-to-pubkey-hash script:
// OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG.
func isPubKeyHashScript(script []byte) bool {
	return len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG
}

// multiSigDetails returns the number of required signatures and public keys of
// a standard multisig script, along with whether the script is one.  The form
// is OP_M <pubkey>... OP_N OP_CHECKMULTISIG with 1 <= M <= N.
func multiSigDetails(script Script) (int, int, bool) {
	ops := script.Ops
	if len(script.Trailing) != 0 || len(ops) < 4 {
		return 0, 0, false
	}
	if ops[len(ops)-1].Value != OP_CHECKMULTISIG {
		return 0, 0, false
	}

	first, last := ops[0].Value, ops[len(ops)-2].Value
	if !isSmallInt(first) || !isSmallInt(last) {
		return 0, 0, false
	}
	required, numKeys := AsSmallInt(first), AsSmallInt(last)
	if required < 1 || required > numKeys || numKeys != len(ops)-3 {
		return 0, 0, false
	}
	for _, op := range ops[1 : len(ops)-2] {
		if !isStrictPubKeyEncoding(op.Data) ||
			op.Value != byte(len(op.Data)) {

			return 0, 0, false
		}
	}
	return required, numKeys, true
}

// isNullDataScript returns whether or not the passed script is a standard
// null data script carrying at most MaxDataCarrierSize bytes.
func isNullDataScript(script Script) bool {
	ops := script.Ops
	if len(script.Trailing) != 0 || len(ops) == 0 || ops[0].Value != OP_RETURN {
		return false
	}
	if len(ops) == 1 {
		return true
	}
	return len(ops) == 2 && ops[1].IsPush() &&
		len(ops[1].Data) <= MaxDataCarrierSize
}

// PayToAnchorScript is the keyless witness version 1 output used to bump the
// fee of its transaction from a child.  It is spendable by anyone with an
// empty signature script.
var PayToAnchorScript = []byte{OP_1, 2, 0x4e, 0x73}

// IsPayToAnchorScript returns true if the script is the pay-to-anchor script.
func IsPayToAnchorScript(script []byte) bool {
	return bytes.Equal(script, PayToAnchorScript)
}

// GetScriptClass returns the class of the script passed.
//
// NonStandardTy will be returned when the script does not parse.
func GetScriptClass(script []byte) ScriptClass {
	switch {
	case isPubKeyHashScript(script):
		return PubKeyHashTy
	case IsPayToWitnessPubKeyHash(script):
		return WitnessV0PubKeyHashTy
	case isScriptHashScript(script):
		return ScriptHashTy
	case IsPayToWitnessScriptHash(script):
		return WitnessV0ScriptHashTy
	case IsPayToTaproot(script):
		return WitnessV1TaprootTy
	case IsPayToAnchorScript(script):
		return PayToAnchorTy
	case isWitnessProgramScript(script):
		return WitnessUnknownTy
	}

	parsed := ParseScript(script)
	switch {
	case isPubKeyScript(parsed):
		return PubKeyTy
	case isNullDataScript(parsed):
		return NullDataTy
	}
	if _, _, ok := multiSigDetails(parsed); ok {
		return MultiSigTy
	}
	return NonStandardTy
}

// CalcMultiSigStats returns the number of public keys and signatures from
// a multi-signature transaction script.  The passed script MUST already be
// known to be a multi-signature script.
func CalcMultiSigStats(script []byte) (int, int, error) {
	required, numKeys, ok := multiSigDetails(ParseScript(script))
	if !ok {
		return 0, 0, scriptError(ErrNotMultisigScript,
			"script is not a standard multisig script")
	}
	return numKeys, required, nil
}

// PayToPubKeyScript creates a new script to pay a transaction output to the
// passed serialized public key.
func PayToPubKeyScript(serializedPubKey []byte) ([]byte, error) {
	return NewScriptBuilder().AddData(serializedPubKey).
		AddOp(OP_CHECKSIG).Script()
}

// PayToPubKeyHashScript creates a new script to pay a transaction output to a
// 20-byte pubkey hash.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, fmt.Errorf("pubkey hash must be 20 bytes, got %d",
			len(pubKeyHash))
	}
	return NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
}

// PayToScriptHashScript creates a new script to pay a transaction output to a
// script hash.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != 20 {
		return nil, fmt.Errorf("script hash must be 20 bytes, got %d",
			len(scriptHash))
	}
	return NewScriptBuilder().AddOp(OP_HASH160).AddData(scriptHash).
		AddOp(OP_EQUAL).Script()
}

// payToWitnessScript creates a new witness program of the passed version.
func payToWitnessScript(version byte, program []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(version).AddData(program).Script()
}

// PayToWitnessPubKeyHashScript creates a new script to pay to a version 0
// pubkey hash witness program.  The passed hash is expected to be valid.
func PayToWitnessPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, fmt.Errorf("witness pubkey hash must be 20 bytes, "+
			"got %d", len(pubKeyHash))
	}
	return payToWitnessScript(OP_0, pubKeyHash)
}

// PayToWitnessScriptHashScript creates a new script to pay to a version 0
// script hash witness program.  The passed hash is expected to be valid.
func PayToWitnessScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != 32 {
		return nil, fmt.Errorf("witness script hash must be 32 bytes, "+
			"got %d", len(scriptHash))
	}
	return payToWitnessScript(OP_0, scriptHash)
}

// PayToTaprootScript creates a pk script for a pay-to-taproot output key.
func PayToTaprootScript(taprootKey *btcec.PublicKey) ([]byte, error) {
	return payToWitnessScript(OP_1, schnorr.SerializePubKey(taprootKey))
}

// MultiSigScript returns a valid script for a multisignature redemption where
// nrequired of the keys in pubkeys are required to have signed the transaction
// for success.  An Error with the error code ErrInvalidSignatureCount will be
// returned if nrequired is larger than the number of keys provided.
func MultiSigScript(pubKeys [][]byte, nrequired int) ([]byte, error) {
	if len(pubKeys) < nrequired {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d required signatures when there are only %d public "+
			"keys available", nrequired, len(pubKeys))
		return nil, scriptError(ErrInvalidSignatureCount, str)
	}
	if len(pubKeys) > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d public keys, the maximum is %d", len(pubKeys),
			MaxPubKeysPerMultiSig)
		return nil, scriptError(ErrInvalidPubKeyCount, str)
	}

	builder := NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubKeys {
		builder.AddData(key)
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(OP_CHECKMULTISIG)

	return builder.Script()
}

// NullDataScript creates a provably-prunable script containing OP_RETURN
// followed by the passed data.  An Error with the error code ErrElementTooBig
// will be returned if the length of the passed data exceeds MaxDataCarrierSize.
func NullDataScript(data []byte) ([]byte, error) {
	if len(data) > MaxDataCarrierSize {
		str := fmt.Sprintf("data size %d is larger than max "+
			"allowed size %d", len(data), MaxDataCarrierSize)
		return nil, scriptError(ErrElementTooBig, str)
	}

	return NewScriptBuilder().AddOp(OP_RETURN).AddData(data).Script()
}

// PushedData returns an array of byte slices containing all of the data that
// was pushed to the stack by the passed script.  An error is returned if the
// script does not fully parse.
func PushedData(script []byte) ([][]byte, error) {
	var data [][]byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if tokenizer.Data() != nil {
			data = append(data, tokenizer.Data())
		} else if tokenizer.Opcode() == OP_0 {
			data = append(data, nil)
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
