// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"runtime"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/pkg/errors"
)

// txValidateItem holds a transaction input to validate.  pos is the item's
// position in the batch, set by Validate.
type txValidateItem struct {
	pos       int
	txInIndex int
	txIn      *wire.TxIn
}

// inputResult is the outcome of validating one input.
type inputResult struct {
	pos int
	err error
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan inputResult
	tx           *wire.MsgTx
	prevOuts     txscript.PrevOutputFetcher
	flags        txscript.ScriptFlags
	sigCache     *txscript.SigCache
	hashCache    *txscript.SigHashCache
}

// sendResult sends the result of an input validation on the internal result
// channel while respecting the quit channel.
func (v *txValidator) sendResult(result inputResult) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// validateHandler consumes items to validate from the internal validate channel
// and returns the result of the validation on the internal result channel. It
// must be run as a goroutine.
func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			err := txscript.VerifyInput(v.tx, txVI.txInIndex,
				v.prevOuts, v.flags, v.sigCache, v.hashCache)
			if err != nil {
				prevOut := v.prevOuts.FetchPrevOutput(
					txVI.txIn.PreviousOutPoint)
				var pkScript []byte
				if prevOut != nil {
					pkScript = prevOut.PkScript
				}
				err = errors.Wrapf(err, "failed to validate input "+
					"%d which references output %s (input "+
					"script bytes %x, prev output script bytes "+
					"%x)", txVI.txInIndex,
					txVI.txIn.PreviousOutPoint, txVI.txIn.SignatureScript,
					pkScript)
				log.Debug(err)
			}
			v.sendResult(inputResult{pos: txVI.pos, err: err})

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts of the passed inputs using multiple
// goroutines.  Every input is validated and the returned errors are indexed
// like the passed items, nil for inputs that passed.
func (v *txValidator) Validate(items []*txValidateItem) []error {
	results := make([]error, len(items))
	if len(items) == 0 {
		return results
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This help ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	// Start up validation handlers that are used to asynchronously
	// validate each transaction input.
	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Results come back out of order, and the same input may be listed
	// more than once, so each item carries its own slot.
	for i, item := range items {
		item.pos = i
	}

	numInputs := len(items)
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to
		// be processed.  The select statement will never select a nil
		// channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case result := <-v.resultChan:
			processedItems++
			results[result.pos] = result.err
		}
	}

	close(v.quitChan)
	return results
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(tx *wire.MsgTx, prevOuts txscript.PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache) *txValidator {

	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan inputResult),
		tx:           tx,
		prevOuts:     prevOuts,
		flags:        flags,
		sigCache:     sigCache,
		hashCache:    txscript.NewSigHashCache(tx, prevOuts),
	}
}

// ValidateTransactionScripts validates the passed inputs of the transaction
// using multiple goroutines, all inputs when inputs is empty.  The sub-hashes
// shared by the inputs are computed once up front.
func ValidateTransactionScripts(tx *wire.MsgTx, prevOuts txscript.PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache,
	inputs ...int) ([]error, error) {

	if len(inputs) == 0 {
		inputs = make([]int, len(tx.TxIn))
		for i := range tx.TxIn {
			inputs[i] = i
		}
	}

	txValItems := make([]*txValidateItem, 0, len(inputs))
	for _, txInIdx := range inputs {
		if txInIdx < 0 || txInIdx >= len(tx.TxIn) {
			return nil, errors.Errorf("input %d out of range, "+
				"transaction has %d inputs", txInIdx, len(tx.TxIn))
		}
		txValItems = append(txValItems, &txValidateItem{
			txInIndex: txInIdx,
			txIn:      tx.TxIn[txInIdx],
		})
	}

	validator := newTxValidator(tx, prevOuts, flags, sigCache)
	if err := validator.hashCache.Precompute(); err != nil {
		return nil, err
	}
	return validator.Validate(txValItems), nil
}
