// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// sigOpsDelta is both the starting tapscript signature operation budget on
// top of the witness size, and the amount each executed signature check with
// a non-empty signature consumes from it.
const sigOpsDelta = 50

// subScript returns the script code since the last executed
// OP_CODESEPARATOR.
func (vm *Engine) subScript() []byte {
	return vm.script[vm.lastCodeSep:]
}

// tapscriptExtension returns the script path data signatures in the running
// tapscript commit to.
func (vm *Engine) tapscriptExtension() fn.Option[TapscriptExtension] {
	return fn.Some(TapscriptExtension{
		TapLeafHash: vm.taprootCtx.tapLeafHash,
		KeyVersion:  0,
		CodeSepPos:  vm.codeSepPos,
	})
}

// evalCheckSig checks an ECDSA signature under the legacy or witness v0 rules
// and returns whether it is valid.  An error is returned when the signature
// or public key break an enabled encoding rule, or when an invalid non-empty
// signature is used while null fail is enforced.
func (vm *Engine) evalCheckSig(sig, pubKey []byte) (bool, error) {
	if vm.sigVersion == SigVersionTapscript {
		return vm.evalCheckSigTapscript(sig, pubKey)
	}

	// An empty signature is always invalid, but the public key encoding
	// rules still apply.
	if len(sig) == 0 {
		if err := vm.checkPubKeyEncoding(pubKey); err != nil {
			return false, err
		}
		return false, nil
	}

	check, err := vm.newECDSACheck(sig, pubKey)
	if err != nil {
		return false, err
	}

	// Remove the signature from the legacy script code since there is no
	// way for a signature to sign itself.
	scriptCode := vm.subScript()
	if vm.sigVersion == SigVersionBase {
		scriptCode = findAndDelete(scriptCode,
			PushOpcode(sig).AppendBytes(nil))
	}

	valid := vm.verifyECDSA(check, scriptCode)
	if !valid && vm.hasFlag(ScriptVerifyNullFail) {
		str := "signature not empty on failed checksig"
		return false, scriptError(ErrNullFail, str)
	}
	return valid, nil
}

// evalCheckSigTapscript checks a signature under the BIP 342 rules.  Unlike
// the earlier rules, a non-empty signature that fails to verify ends
// execution, so the result is false only for an empty signature.
func (vm *Engine) evalCheckSigTapscript(sig, pubKey []byte) (bool, error) {
	success := len(sig) != 0
	if success {
		vm.taprootCtx.sigOpsBudget -= sigOpsDelta
		if vm.taprootCtx.sigOpsBudget < 0 {
			str := "tapscript signature operation budget exhausted"
			return false, scriptError(ErrTaprootMaxSigOps, str)
		}
	}

	switch len(pubKey) {
	case 0:
		str := "tapscript public key is empty"
		return false, scriptError(ErrTaprootPubkeyIsEmpty, str)

	case taprootXOnlyPubKeyLength:
		if success {
			err := vm.checkSchnorrSignature(sig, pubKey,
				vm.tapscriptExtension())
			if err != nil {
				return false, err
			}
		}

	// Unknown public key types are reserved for future soft forks and
	// treated as valid for any non-empty signature.
	default:
		if vm.hasFlag(ScriptVerifyDiscourageUpgradeablePubkeyType) {
			str := fmt.Sprintf("pubkey of length %d was used",
				len(pubKey))
			return false, scriptError(
				ErrDiscourageUpgradeableTaprootKeyType, str,
			)
		}
	}

	return success, nil
}

// opcodeCheckSig treats the top 2 items on the stack as a public key and a
// signature and replaces them with a bool which indicates if the signature was
// successfully verified.
//
// The signature commits to the script code from the most recently executed
// OP_CODESEPARATOR, or to the tapscript leaf once taproot is active.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, data []byte, vm *Engine) error {
	pkBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	sigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	valid, err := vm.evalCheckSig(sigBytes, pkBytes)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(valid)
	return nil
}

// opcodeCheckSigVerify is a combination of opcodeCheckSig and opcodeVerify.
// The opcodeCheckSig function is invoked followed by opcodeVerify.  See the
// documentation for each of those opcodes for more details.
//
// Stack transformation: [... signature pubkey] -> [... bool] -> [...]
func opcodeCheckSigVerify(op *opcode, data []byte, vm *Engine) error {
	if err := opcodeCheckSig(op, data, vm); err != nil {
		return err
	}
	return abstractVerify(op, vm, ErrCheckSigVerify)
}

// opcodeCheckMultiSig treats the top item on the stack as an integer number of
// public keys, followed by that many entries as raw data representing the
// public keys, followed by the integer number of signatures, followed by that
// many entries as raw data representing the signatures.
//
// Due to a bug in the original Satoshi client implementation, an additional
// dummy argument is also required by the consensus rules, although it is not
// used.  The dummy value SHOULD be an OP_0, although that is not required by
// the consensus rules.  When the ScriptStrictMultiSig flag is set, it must be
// OP_0.
//
// All of the aforementioned stack items are replaced with a bool which
// indicates if the requisite number of signatures were successfully verified.
//
// Signatures are matched to public keys in a single pass, so they must be
// provided in the same order as their public keys.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool]
func opcodeCheckMultiSig(op *opcode, data []byte, vm *Engine) error {
	if vm.sigVersion == SigVersionTapscript {
		str := fmt.Sprintf("%s is disabled in tapscript", op.name)
		return scriptError(ErrTapscriptCheckMultisig, str)
	}

	numKeys, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	numPubKeys := int(numKeys.Int32())
	if numPubKeys < 0 {
		str := fmt.Sprintf("number of pubkeys %d is negative",
			numPubKeys)
		return scriptError(ErrInvalidPubKeyCount, str)
	}
	if numPubKeys > MaxPubKeysPerMultiSig {
		str := fmt.Sprintf("too many pubkeys: %d > %d",
			numPubKeys, MaxPubKeysPerMultiSig)
		return scriptError(ErrInvalidPubKeyCount, str)
	}
	vm.numOps += numPubKeys
	if vm.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return scriptError(ErrTooManyOperations, str)
	}

	// The keys and signatures are popped top first, so both slices hold
	// them in reverse script order.  Matching from the start of each slice
	// therefore preserves the required relative ordering.
	pubKeys := make([][]byte, 0, numPubKeys)
	for i := 0; i < numPubKeys; i++ {
		pubKey, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		pubKeys = append(pubKeys, pubKey)
	}

	numSigs, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	numSignatures := int(numSigs.Int32())
	if numSignatures < 0 {
		str := fmt.Sprintf("number of signatures %d is negative",
			numSignatures)
		return scriptError(ErrInvalidSignatureCount, str)
	}
	if numSignatures > numPubKeys {
		str := fmt.Sprintf("more signatures than pubkeys: %d > %d",
			numSignatures, numPubKeys)
		return scriptError(ErrInvalidSignatureCount, str)
	}

	signatures := make([][]byte, 0, numSignatures)
	for i := 0; i < numSignatures; i++ {
		signature, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		signatures = append(signatures, signature)
	}

	// A bug in the original Satoshi client implementation means one more
	// stack value than should be used must be popped.
	dummy, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	// Remove the signatures from the legacy script code since there is no
	// way for a signature to sign itself.
	scriptCode := vm.subScript()
	if vm.sigVersion == SigVersionBase {
		for _, sig := range signatures {
			scriptCode = findAndDelete(scriptCode,
				PushOpcode(sig).AppendBytes(nil))
		}
	}

	success := true
	remainingSigs, remainingKeys := numSignatures, numPubKeys
	sigIdx, keyIdx := 0, 0
	for success && remainingSigs > 0 {
		sig, pubKey := signatures[sigIdx], pubKeys[keyIdx]

		var valid bool
		if len(sig) == 0 {
			if err := vm.checkPubKeyEncoding(pubKey); err != nil {
				return err
			}
		} else {
			check, err := vm.newECDSACheck(sig, pubKey)
			if err != nil {
				return err
			}
			valid = vm.verifyECDSA(check, scriptCode)
		}

		if valid {
			sigIdx++
			remainingSigs--
		}
		keyIdx++
		remainingKeys--

		// Fail early when the remaining keys can no longer cover the
		// remaining signatures.
		if remainingSigs > remainingKeys {
			success = false
		}
	}

	if !success && vm.hasFlag(ScriptVerifyNullFail) {
		for _, sig := range signatures {
			if len(sig) > 0 {
				str := "not all signatures empty on failed " +
					"checkmultisig"
				return scriptError(ErrNullFail, str)
			}
		}
	}

	if vm.hasFlag(ScriptStrictMultiSig) && len(dummy) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy))
		return scriptError(ErrSigNullDummy, str)
	}

	vm.dstack.PushBool(success)
	return nil
}

// opcodeCheckMultiSigVerify is a combination of opcodeCheckMultiSig and
// opcodeVerify.  The opcodeCheckMultiSig is invoked followed by opcodeVerify.
// See the documentation for each of those opcodes for more details.
//
// Stack transformation:
// [... dummy [sig ...] numsigs [pubkey ...] numpubkeys] -> [... bool] -> [...]
func opcodeCheckMultiSigVerify(op *opcode, data []byte, vm *Engine) error {
	if err := opcodeCheckMultiSig(op, data, vm); err != nil {
		return err
	}
	return abstractVerify(op, vm, ErrCheckMultiSigVerify)
}

// opcodeCheckSigAdd implements the OP_CHECKSIGADD operation defined in BIP
// 342.  It pops a public key, a number and a signature, and pushes the number
// incremented by one when the signature is valid.  An empty signature leaves
// the number unchanged, and any other failure ends execution.
//
// The opcode only exists in tapscript and is invalid elsewhere.
//
// Stack transformation: [... sig n pubkey] -> [... n+success]
func opcodeCheckSigAdd(op *opcode, data []byte, vm *Engine) error {
	if vm.sigVersion != SigVersionTapscript {
		return opcodeInvalid(op, data, vm)
	}

	pubKey, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	rawNum, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if len(rawNum) > MaxScriptNumLen {
		str := fmt.Sprintf("%s counter is %d bytes which exceeds the "+
			"max allowed of %d", op.name, len(rawNum), MaxScriptNumLen)
		return scriptError(ErrInvalidCheckSigAddArgument, str)
	}
	n, err := MakeScriptNum(rawNum, vm.dstack.verifyMinimalData,
		MaxScriptNumLen)
	if err != nil {
		return err
	}
	sig, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	valid, err := vm.evalCheckSigTapscript(sig, pubKey)
	if err != nil {
		return err
	}
	if !valid {
		vm.dstack.PushInt(n)
		return nil
	}

	sum, err := n.Add(1, MaxScriptNumLen)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(sum)
	return nil
}
