// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// payToWitnessPubKeyHashDataSize is the size of the witness program's
	// data push for a pay-to-witness-pub-key-hash output.
	payToWitnessPubKeyHashDataSize = 20

	// payToWitnessScriptHashDataSize is the size of the witness program's
	// data push for a pay-to-witness-script-hash output.
	payToWitnessScriptHashDataSize = 32

	// payToTaprootDataSize is the size of the witness program push for
	// taproot spends. This will be the serialized x-coordinate of the
	// top-level key.
	payToTaprootDataSize = 32
)

// taprootExecutionCtx houses the special context-specific information we need
// to validate a taproot script spend. This includes the annex, the running
// sig op budget, and the hash of the executed leaf.
type taprootExecutionCtx struct {
	annex []byte

	tapLeafHash chainhash.Hash

	sigOpsBudget int32
}

// newTaprootExecutionCtx returns a fresh instance of the taproot execution
// context for an input whose serialized witness is inputWitnessSize bytes.
func newTaprootExecutionCtx(inputWitnessSize int32) *taprootExecutionCtx {
	return &taprootExecutionCtx{
		sigOpsBudget: sigOpsDelta + inputWitnessSize,
	}
}

// Engine is the virtual machine that executes scripts.
type Engine struct {
	// The following fields are set when the engine is created and must not
	// be changed afterwards.  The entries of the signature cache are mutated
	// during execution, however, the cache pointer itself is not changed.
	//
	// flags specifies the additional flags which modify the execution
	// behavior of the engine.
	//
	// tx identifies the transaction that contains the input which in turn
	// contains the signature script being executed.
	//
	// txIdx identifies the input index within the transaction that contains
	// the signature script being executed.
	//
	// inputAmount is the amount of the output being spent.
	//
	// prevOuts provides the outputs spent by every input of tx.
	//
	// sigCache caches the results of signature verifications.  It is
	// optional and can be nil.
	//
	// hashCache memoizes the transaction wide signature hash midstates.
	flags        ScriptFlags
	tx           *wire.MsgTx
	txIdx        int
	inputAmount  int64
	prevOuts     PrevOutputFetcher
	sigCache     *SigCache
	hashCache    *SigHashCache
	scriptSig    []byte
	scriptPubKey []byte
	witness      wire.TxWitness

	// The following fields describe the script currently being executed.
	//
	// sigVersion is the rule set the script runs under.
	//
	// script is the script being executed, nextByteIdx the offset of the
	// opcode after the one being executed and opcodeIdx the position of the
	// executing opcode.
	//
	// lastCodeSep is the offset just past the most recently executed
	// OP_CODESEPARATOR and codeSepPos its opcode position, which tapscript
	// signatures commit to.
	//
	// condStack holds one OpCondTrue, OpCondFalse or OpCondSkip entry per
	// open IF/NOTIF block, OpCondSkip meaning an enclosing block is not
	// executing.  pendingElse counts the blocks still open to an OP_ELSE.
	// An OP_ELSE is only valid while every open block is.
	//
	// numOps tracks the total number of non-push operations executed and is
	// used to enforce MaxOpsPerScript.
	sigVersion  SigVersion
	script      []byte
	nextByteIdx int
	opcodeIdx   int
	lastCodeSep int
	codeSepPos  uint32
	dstack      stack
	astack      stack
	condStack   []int
	pendingElse int
	numOps      int
	taprootCtx  *taprootExecutionCtx
}

// hasFlag returns whether the script engine instance has the passed flag set.
func (vm *Engine) hasFlag(flag ScriptFlags) bool {
	return vm.flags&flag == flag
}

// isBranchExecuting returns whether or not the current conditional branch is
// actively executing.  For example, when the data stack has an OP_FALSE on it
// and an OP_IF is encountered, the branch is inactive until an OP_ELSE or
// OP_ENDIF is encountered.  It properly handles nested conditionals.
func (vm *Engine) isBranchExecuting() bool {
	if len(vm.condStack) == 0 {
		return true
	}
	return vm.condStack[len(vm.condStack)-1] == OpCondTrue
}

// executeOpcode performs execution on the passed opcode.  It takes into account
// whether or not it is hidden by conditionals, but some rules still must be
// tested in this case.
func (vm *Engine) executeOpcode(op *opcode, data []byte) error {
	// Always-illegal opcodes are fail on program counter.
	if isOpcodeAlwaysIllegal(op.value) {
		str := fmt.Sprintf("attempt to execute reserved opcode %s", op.name)
		return scriptError(ErrReservedOpcode, str)
	}

	if op.value == OP_CODESEPARATOR && vm.sigVersion == SigVersionBase &&
		vm.hasFlag(ScriptVerifyConstScriptCode) {

		str := "OP_CODESEPARATOR used in non-segwit script"
		return scriptError(ErrCodeSeparator, str)
	}

	// Nothing left to do when this is not a conditional opcode and it is
	// not in an executing branch.  Unexecuted branches neither count
	// towards the operation limit nor have their pushes checked.
	executing := vm.isBranchExecuting()
	if !executing && !isOpcodeConditional(op.value) {
		return nil
	}

	if executing {
		// Note that this excludes OP_RESERVED which counts as a push
		// operation.
		if op.value > OP_16 && vm.sigVersion != SigVersionTapscript {
			vm.numOps++
			if vm.numOps > MaxOpsPerScript {
				str := fmt.Sprintf("exceeded max operation limit "+
					"of %d", MaxOpsPerScript)
				return scriptError(ErrTooManyOperations, str)
			}
		} else if len(data) > MaxScriptElementSize {
			str := fmt.Sprintf("element size %d exceeds max allowed "+
				"size %d", len(data), MaxScriptElementSize)
			return scriptError(ErrElementTooBig, str)
		}

		// Ensure all executed data push opcodes use the minimal
		// encoding when the minimal data verification flag is set.
		if vm.dstack.verifyMinimalData && op.value <= OP_PUSHDATA4 {
			if err := checkMinimalDataPush(op, data); err != nil {
				return err
			}
		}
	}

	return op.opfunc(op, data, vm)
}

// executeScript runs the passed script on the current data stack under the
// current signature version.  The alt stack and all conditional state start
// out empty.
func (vm *Engine) executeScript(script []byte) error {
	if vm.sigVersion != SigVersionTapscript && len(script) > MaxScriptSize {
		str := fmt.Sprintf("script size %d is larger than max allowed "+
			"size %d", len(script), MaxScriptSize)
		return scriptError(ErrScriptTooBig, str)
	}

	vm.script = script
	vm.lastCodeSep = 0
	vm.codeSepPos = blankCodeSepValue
	vm.condStack = nil
	vm.pendingElse = 0
	vm.numOps = 0
	setStack(&vm.astack, nil)

	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		op := &opcodeArray[tokenizer.Opcode()]
		data := tokenizer.Data()
		vm.opcodeIdx = tokenizer.OpcodePosition() - 1
		vm.nextByteIdx = tokenizer.ByteIndex()

		if err := vm.executeOpcode(op, data); err != nil {
			return err
		}

		// The number of elements in the combination of the data and
		// alt stacks must not exceed the maximum number of stack
		// elements allowed.
		combinedStackSize := vm.dstack.Depth() + vm.astack.Depth()
		if combinedStackSize > MaxStackSize {
			str := fmt.Sprintf("combined stack size %d > max allowed %d",
				combinedStackSize, MaxStackSize)
			return scriptError(ErrStackOverflow, str)
		}

		log.Tracef("%v", newLogClosure(func() string {
			var buf strings.Builder
			disasmOpcode(&buf, op, data, false)
			return fmt.Sprintf("%v #%d: %s\nStack:\n%sAltStack:\n%s",
				vm.sigVersion, vm.opcodeIdx, buf.String(),
				vm.dstack.String(), vm.astack.String())
		}))
	}
	if err := tokenizer.Err(); err != nil {
		return err
	}

	if len(vm.condStack) != 0 {
		str := "end of script reached in conditional execution"
		return scriptError(ErrUnbalancedConditional, str)
	}
	return nil
}

// scriptHasOpSuccess returns whether the script contains an OP_SUCCESSx
// opcode before any parse failure.
func scriptHasOpSuccess(script []byte) (bool, error) {
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if isOpSuccess(tokenizer.Opcode()) {
			return true, nil
		}
	}
	return false, tokenizer.Err()
}

// executeWitnessScript runs a witness script on the passed witness stack
// under the current signature version.  Witness scripts must leave exactly
// one true element.
func (vm *Engine) executeWitnessScript(witnessStack [][]byte,
	script []byte) error {

	if vm.sigVersion == SigVersionTapscript {
		// A tapscript containing an OP_SUCCESSx succeeds without being
		// executed.
		hasOpSuccess, err := scriptHasOpSuccess(script)
		if err != nil {
			return err
		}
		if hasOpSuccess {
			if vm.hasFlag(ScriptVerifyDiscourageOpSuccess) {
				str := "script contains OP_SUCCESS op code"
				return scriptError(ErrDiscourageOpSuccess, str)
			}
			return nil
		}

		// Tapscript also bounds the starting stack size.
		if len(witnessStack) > MaxStackSize {
			str := fmt.Sprintf("tapscript stack size %d > max "+
				"allowed %d", len(witnessStack), MaxStackSize)
			return scriptError(ErrStackOverflow, str)
		}
	}

	// All elements within the witness stack must not be greater than the
	// maximum bytes which are allowed to be pushed onto the stack.
	for _, witElement := range witnessStack {
		if len(witElement) > MaxScriptElementSize {
			str := fmt.Sprintf("element size %d exceeds max allowed "+
				"size %d", len(witElement), MaxScriptElementSize)
			return scriptError(ErrElementTooBig, str)
		}
	}

	vm.SetStack(witnessStack)
	if err := vm.executeScript(script); err != nil {
		return err
	}

	if vm.dstack.Depth() != 1 {
		str := fmt.Sprintf("witness script left %d items on the stack",
			vm.dstack.Depth())
		return scriptError(ErrCleanStack, str)
	}
	if ok, _ := vm.dstack.PeekBool(0); !ok {
		return scriptError(ErrEvalFalse,
			"false stack entry at end of witness script execution")
	}
	return nil
}

// verifyWitnessProgram validates the passed witness against the witness
// program of the given version.  isP2SH is set when the program was the
// redeem script of a pay-to-script-hash output.
func (vm *Engine) verifyWitnessProgram(version int, program []byte,
	isP2SH bool) error {

	witness := vm.witness
	switch {
	// We're attempting to verify a base (witness version 0) segwit output,
	// so we'll be looking for either a p2wsh or a p2wkh spend.
	case version == 0:
		vm.sigVersion = SigVersionWitnessV0

		switch len(program) {
		case payToWitnessScriptHashDataSize:
			if len(witness) == 0 {
				return scriptError(ErrWitnessProgramEmpty, "witness "+
					"program empty passed empty witness")
			}

			// Ensure that the serialized script at the end of the
			// witness stack matches the witness program.
			witnessScript := witness[len(witness)-1]
			witnessHash := sha256.Sum256(witnessScript)
			if !bytes.Equal(witnessHash[:], program) {
				return scriptError(ErrWitnessProgramMismatch,
					"witness program hash mismatch")
			}

			return vm.executeWitnessScript(
				witness[:len(witness)-1], witnessScript,
			)

		case payToWitnessPubKeyHashDataSize:
			// The witness stack should consist of exactly two
			// items: the signature, and the pubkey.
			if len(witness) != 2 {
				str := fmt.Sprintf("should have exactly two items "+
					"in witness, instead have %v", len(witness))
				return scriptError(ErrWitnessProgramMismatch, str)
			}

			// Now we'll resume execution as if it were a regular
			// p2pkh transaction.
			pkScript, err := PayToPubKeyHashScript(program)
			if err != nil {
				return err
			}
			return vm.executeWitnessScript(witness, pkScript)

		default:
			str := fmt.Sprintf("length of witness program must "+
				"either be %v or %v bytes, instead is %v bytes",
				payToWitnessPubKeyHashDataSize,
				payToWitnessScriptHashDataSize, len(program))
			return scriptError(ErrWitnessProgramWrongLength, str)
		}

	// We're attempting to verify a taproot input, and the witness program
	// data push is of the expected size, so we'll be looking for a normal
	// key-path spend, or a merkle proof for a tapscript with execution
	// afterwards.
	case version == TaprootWitnessVersion &&
		len(program) == payToTaprootDataSize && !isP2SH:

		// Taproot rules only apply once the deployment is active.
		if !vm.hasFlag(ScriptVerifyTaproot) {
			return nil
		}

		if len(witness) == 0 {
			return scriptError(ErrWitnessProgramEmpty, "witness "+
				"program empty passed empty witness")
		}

		// The budget is computed over the full witness, annex
		// included.
		vm.taprootCtx = newTaprootExecutionCtx(
			int32(witness.SerializeSize()),
		)

		// If we can detect the annex, then drop that off the stack,
		// we'll only need it to compute the sighash later.
		if isAnnexedWitness(witness) {
			vm.taprootCtx.annex, _ = extractAnnex(witness)
			witness = witness[:len(witness)-1]
		}

		// If there's only a single element left on the stack (the
		// signature), then we'll apply the normal top-level schnorr
		// signature verification.
		if len(witness) == 1 {
			vm.sigVersion = SigVersionTaproot
			return vm.checkSchnorrSignature(witness[0], program,
				fn.None[TapscriptExtension]())
		}

		// Otherwise this is a script path spend: the control block
		// is the last element and the leaf script precedes it.
		controlBlock, err := ParseControlBlock(witness[len(witness)-1])
		if err != nil {
			return err
		}
		witnessScript := witness[len(witness)-2]
		err = VerifyTaprootLeafCommitment(
			controlBlock, program, witnessScript,
		)
		if err != nil {
			return err
		}

		if controlBlock.LeafVersion != BaseLeafVersion {
			// The rules of future leaf versions are unknown, so
			// such spends succeed unless discouraged.
			if vm.hasFlag(ScriptVerifyDiscourageUpgradeableTaprootVersion) {
				str := fmt.Sprintf("tapscript is attempting to "+
					"use version: %v", controlBlock.LeafVersion)
				return scriptError(
					ErrDiscourageUpgradeableTaprootVersion, str,
				)
			}
			return nil
		}

		vm.sigVersion = SigVersionTapscript
		vm.taprootCtx.tapLeafHash = NewBaseTapLeaf(witnessScript).TapHash()
		return vm.executeWitnessScript(
			witness[:len(witness)-2], witnessScript,
		)

	// Anchor outputs carry no program to verify and are not an upgrade
	// path.
	case version == 1 && !isP2SH &&
		bytes.Equal(program, PayToAnchorScript[2:]):

		return nil

	case vm.hasFlag(ScriptVerifyDiscourageUpgradeableWitnessProgram):
		str := fmt.Sprintf("new witness program versions invalid: "+
			"version %d, program %x", version, program)
		return scriptError(ErrDiscourageUpgradableWitnessProgram, str)
	}

	// Unknown witness program versions are reserved for future soft
	// forks.
	return nil
}

// checkFinalStack ensures the data stack is non-empty and its top element is
// true.
func (vm *Engine) checkFinalStack() error {
	if vm.dstack.Depth() < 1 {
		return scriptError(ErrEmptyStack,
			"stack empty at end of script execution")
	}
	if ok, _ := vm.dstack.PeekBool(0); !ok {
		// Log interesting data.
		log.Tracef("%v", newLogClosure(func() string {
			return fmt.Sprintf("scriptSig: %x\nscriptPubKey: %x\n"+
				"stack:\n%s", vm.scriptSig, vm.scriptPubKey,
				vm.dstack.String())
		}))

		return scriptError(ErrEvalFalse,
			"false stack entry at end of script execution")
	}
	return nil
}

// resetToFirstElement leaves only the bottom element of the data stack.  It is
// applied after a witness program has been verified so the clean stack rule
// does not reject the legacy stack it was verified from.
func (vm *Engine) resetToFirstElement(legacyStack [][]byte) {
	vm.SetStack(legacyStack[:1])
}

// Execute will execute all scripts of the input in the script engine and
// return either nil for successful validation or an error if one occurred.
func (vm *Engine) Execute() (err error) {
	defer func() {
		if err != nil {
			log.Debugf("Input %d of tx %v failed validation: %v",
				vm.txIdx, vm.tx.TxHash(), err)
		}
	}()

	if vm.hasFlag(ScriptVerifySigPushOnly) && !IsPushOnlyScript(vm.scriptSig) {
		return scriptError(ErrNotPushOnly,
			"signature script is not push only")
	}

	// The signature script and the public key script are evaluated
	// sequentially on the same stack rather than being concatenated.
	vm.sigVersion = SigVersionBase
	if err := vm.executeScript(vm.scriptSig); err != nil {
		return err
	}
	savedStack := vm.GetStack()
	if err := vm.executeScript(vm.scriptPubKey); err != nil {
		return err
	}
	if err := vm.checkFinalStack(); err != nil {
		return err
	}

	hadWitness := false
	if vm.hasFlag(ScriptVerifyWitness) && IsWitnessProgram(vm.scriptPubKey) {
		hadWitness = true

		// The signature script must be empty for native witness
		// spends, otherwise the input could be malleated.
		if len(vm.scriptSig) != 0 {
			return scriptError(ErrWitnessMalleated,
				"native witness program cannot also have a "+
					"signature script")
		}

		version, program, _ := ExtractWitnessProgramInfo(vm.scriptPubKey)
		legacyStack := vm.GetStack()
		if err := vm.verifyWitnessProgram(version, program, false); err != nil {
			return err
		}
		vm.resetToFirstElement(legacyStack)
	}

	if vm.hasFlag(ScriptBip16) && isScriptHashScript(vm.scriptPubKey) {
		// Only pushes are allowed in a signature script spending a
		// pay-to-script-hash output.
		if !IsPushOnlyScript(vm.scriptSig) {
			return scriptError(ErrNotPushOnly,
				"pay to script hash is not push only")
		}

		// The saved stack cannot be empty here, since the hash check
		// above would otherwise have failed.
		vm.SetStack(savedStack)
		redeemScript, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}

		vm.sigVersion = SigVersionBase
		if err := vm.executeScript(redeemScript); err != nil {
			return err
		}
		if err := vm.checkFinalStack(); err != nil {
			return err
		}

		if vm.hasFlag(ScriptVerifyWitness) && IsWitnessProgram(redeemScript) {
			hadWitness = true

			// The signature script must be exactly a single push
			// of the redeem script, otherwise the input could be
			// malleated.
			expected := PushOpcode(redeemScript).AppendBytes(nil)
			if !bytes.Equal(vm.scriptSig, expected) {
				str := fmt.Sprintf("signature script for witness "+
					"nested p2sh is not canonical: %x", vm.scriptSig)
				return scriptError(ErrWitnessMalleatedP2SH, str)
			}

			version, program, _ := ExtractWitnessProgramInfo(redeemScript)
			legacyStack := vm.GetStack()
			if err := vm.verifyWitnessProgram(version, program, true); err != nil {
				return err
			}
			vm.resetToFirstElement(legacyStack)
		}
	}

	// The clean stack rule requires exactly one element to be left.
	if vm.hasFlag(ScriptVerifyCleanStack) && vm.dstack.Depth() != 1 {
		str := fmt.Sprintf("stack must contain exactly one item (contains "+
			"%d)", vm.dstack.Depth())
		return scriptError(ErrCleanStack, str)
	}

	// A witness on an input that spends no witness program could be
	// stripped without invalidating it.
	if vm.hasFlag(ScriptVerifyWitness) && !hadWitness && len(vm.witness) != 0 {
		str := fmt.Sprintf("non-witness inputs cannot have a witness: %v",
			len(vm.witness))
		return scriptError(ErrWitnessUnexpected, str)
	}

	return nil
}

// getStack returns the contents of stack as a byte array bottom up
func getStack(stack *stack) [][]byte {
	array := make([][]byte, stack.Depth())
	for i := range array {
		// PeekByteArray can't fail due to overflow, already checked
		array[len(array)-i-1], _ = stack.PeekByteArray(int32(i))
	}
	return array
}

// setStack sets the stack to the contents of the array where the last item in
// the array is the top item in the stack.
func setStack(stack *stack, data [][]byte) {
	// This can not error. Only errors are for invalid arguments.
	_ = stack.DropN(stack.Depth())

	for i := range data {
		stack.PushByteArray(data[i])
	}
}

// GetStack returns the contents of the primary stack as an array. where the
// last item in the array is the top of the stack.
func (vm *Engine) GetStack() [][]byte {
	return getStack(&vm.dstack)
}

// SetStack sets the contents of the primary stack to the contents of the
// provided array where the last item in the array will be the top of the stack.
func (vm *Engine) SetStack(data [][]byte) {
	setStack(&vm.dstack, data)
}

// GetAltStack returns the contents of the alternate stack as an array where
// the last item in the array is the top of the stack.
func (vm *Engine) GetAltStack() [][]byte {
	return getStack(&vm.astack)
}

// SetAltStack sets the contents of the alternate stack to the contents of the
// provided array where the last item in the array will be the top of the stack.
func (vm *Engine) SetAltStack(data [][]byte) {
	setStack(&vm.astack, data)
}

// newEngine returns an engine for the passed input with empty stacks.
func newEngine(tx *wire.MsgTx, txIdx int, flags ScriptFlags,
	sigCache *SigCache, hashCache *SigHashCache, inputAmount int64,
	prevOuts PrevOutputFetcher) *Engine {

	if hashCache == nil {
		hashCache = NewSigHashCache(tx, prevOuts)
	}

	vm := &Engine{
		flags:       flags,
		tx:          tx,
		txIdx:       txIdx,
		inputAmount: inputAmount,
		prevOuts:    prevOuts,
		sigCache:    sigCache,
		hashCache:   hashCache,
		codeSepPos:  blankCodeSepValue,
	}
	if vm.hasFlag(ScriptVerifyMinimalData) {
		vm.dstack.verifyMinimalData = true
		vm.astack.verifyMinimalData = true
	}
	return vm
}

// NewEngine returns a new script engine for the provided public key script,
// transaction, and input index.  The flags modify the behavior of the script
// engine according to the description provided by each flag.
//
// The signature cache and the signature hash cache are optional.  A hash
// cache shared by every input of the transaction avoids recomputing the
// transaction wide midstates.  inputAmount is the value of the output being
// spent and prevOuts must provide every output spent by tx for taproot
// inputs to be verified.
func NewEngine(scriptPubKey []byte, tx *wire.MsgTx, txIdx int,
	flags ScriptFlags, sigCache *SigCache, hashCache *SigHashCache,
	inputAmount int64, prevOuts PrevOutputFetcher) (*Engine, error) {

	// The provided transaction input index must refer to a valid input.
	if err := checkInputIndex(tx, txIdx); err != nil {
		return nil, err
	}

	// The clean stack flag (ScriptVerifyCleanStack) is not allowed without
	// either the pay-to-script-hash (P2SH) evaluation (ScriptBip16)
	// flag or the Segregated Witness (ScriptVerifyWitness) flag.
	//
	// Recall that evaluating a P2SH script without the flag set results in
	// non-P2SH evaluation which leaves the P2SH inputs on the stack.
	// Thus, allowing the clean stack flag without the P2SH flag would make
	// it possible to have a situation where P2SH would not be a soft fork
	// when it should be. The same goes for segwit which will pull in
	// additional scripts for execution from the witness stack.
	if flags&ScriptVerifyCleanStack != 0 &&
		flags&(ScriptBip16|ScriptVerifyWitness) == 0 {

		return nil, scriptError(ErrInvalidFlags,
			"invalid flags combination: clean stack requires p2sh "+
				"or witness")
	}

	// Segregated witness requires pay-to-script-hash evaluation for
	// nested witness programs.
	if flags&ScriptVerifyWitness != 0 && flags&ScriptBip16 == 0 {
		return nil, scriptError(ErrInvalidFlags,
			"invalid flags combination: witness requires p2sh")
	}

	vm := newEngine(tx, txIdx, flags, sigCache, hashCache, inputAmount,
		prevOuts)
	vm.scriptSig = tx.TxIn[txIdx].SignatureScript
	vm.scriptPubKey = scriptPubKey
	vm.witness = tx.TxIn[txIdx].Witness
	return vm, nil
}

// VerifyInput runs the full spend check of input txIdx of tx.  The spent
// outputs are taken from prevOuts.
func VerifyInput(tx *wire.MsgTx, txIdx int, prevOuts PrevOutputFetcher,
	flags ScriptFlags, sigCache *SigCache, hashCache *SigHashCache) error {

	if err := checkInputIndex(tx, txIdx); err != nil {
		return err
	}
	outPoint := tx.TxIn[txIdx].PreviousOutPoint
	prevOut := prevOuts.FetchPrevOutput(outPoint)
	if prevOut == nil {
		return scriptError(ErrMissingPrevOut,
			"unknown previous output "+outPoint.String())
	}

	vm, err := NewEngine(prevOut.PkScript, tx, txIdx, flags, sigCache,
		hashCache, prevOut.Value, prevOuts)
	if err != nil {
		return err
	}
	return vm.Execute()
}

// Evaluate runs a single script on the passed initial stack and returns the
// final stack.  It performs no spend level checks: the caller decides what
// the final stack means.
//
// tx and txIdx identify the input signatures commit to and may be nil and 0
// for scripts without signature checks.  prevOuts provides the spent amounts
// for witness v0 signatures and every spent output for taproot signatures.
//
// SigVersionTaproot is treated as SigVersionTapscript: the script is taken
// to be a base version leaf and the signature operation budget is derived
// from the initial stack plus the script.
func Evaluate(script []byte, initialStack [][]byte, tx *wire.MsgTx, txIdx int,
	prevOuts PrevOutputFetcher, sigVersion SigVersion,
	flags ScriptFlags) ([][]byte, error) {

	if tx == nil {
		tx = wire.NewMsgTx(wire.TxVersion)
		tx.AddTxIn(&wire.TxIn{Sequence: wire.MaxTxInSequenceNum})
	}
	if err := checkInputIndex(tx, txIdx); err != nil {
		return nil, err
	}

	var inputAmount int64
	if prevOuts != nil {
		outPoint := tx.TxIn[txIdx].PreviousOutPoint
		if prevOut := prevOuts.FetchPrevOutput(outPoint); prevOut != nil {
			inputAmount = prevOut.Value
		}
	}

	vm := newEngine(tx, txIdx, flags, nil, nil, inputAmount, prevOuts)
	if sigVersion == SigVersionTaproot {
		sigVersion = SigVersionTapscript
	}
	vm.sigVersion = sigVersion
	if sigVersion == SigVersionTapscript {
		witness := make(wire.TxWitness, 0, len(initialStack)+1)
		witness = append(witness, initialStack...)
		witness = append(witness, script)
		vm.taprootCtx = newTaprootExecutionCtx(
			int32(witness.SerializeSize()),
		)
		vm.taprootCtx.tapLeafHash = NewBaseTapLeaf(script).TapHash()
	}

	vm.SetStack(initialStack)
	if err := vm.executeScript(script); err != nil {
		return nil, err
	}
	return vm.GetStack(), nil
}
