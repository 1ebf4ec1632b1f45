// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/pkg/errors"
)

// decodeHex decodes a hex string option, naming the option on failure.
func decodeHex(name, s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s hex", name)
	}
	return b, nil
}

// decodeTx decodes a serialized transaction in hex, with or without witness
// data.
func decodeTx(txHex string) (*wire.MsgTx, error) {
	serialized, err := decodeHex("transaction", txHex)
	if err != nil {
		return nil, err
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(serialized)); err != nil {
		return nil, errors.Wrap(err, "unable to decode transaction")
	}
	return &tx, nil
}

// parsePrevOut parses a spent output given as value:pkscript.
func parsePrevOut(s string) (*wire.TxOut, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, errors.Errorf("malformed previous output %q -- use "+
			"value:pkscript", s)
	}
	value, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid previous output value %q",
			parts[0])
	}
	pkScript, err := decodeHex("previous output script", parts[1])
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(value, pkScript), nil
}

// prevOutFetcher maps the spent outputs, given in input order, to the
// outpoints of the transaction inputs.
func prevOutFetcher(tx *wire.MsgTx,
	prevOuts []string) (*txscript.MultiPrevOutFetcher, error) {

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	if len(prevOuts) == 0 {
		return fetcher, nil
	}
	if len(prevOuts) != len(tx.TxIn) {
		return nil, errors.Errorf("got %d previous outputs for %d inputs",
			len(prevOuts), len(tx.TxIn))
	}
	for i, s := range prevOuts {
		txOut, err := parsePrevOut(s)
		if err != nil {
			return nil, err
		}
		fetcher.AddPrevOut(tx.TxIn[i].PreviousOutPoint, txOut)
	}
	return fetcher, nil
}

// parseHashType parses a hash type given either by name or as a number.
func parseHashType(s string) (txscript.SigHashType, error) {
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return txscript.SigHashType(n), nil
	}
	return txscript.ParseSigHashType(s)
}

// netParams returns the parameters of the named network.
func netParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	}
	return nil, errors.Errorf("unknown network %q", name)
}

// runDisasm writes the disassembly of the script along with its class and
// the address it pays to, if any.
func runDisasm(w io.Writer, cmd *disasmCmd) error {
	script, err := decodeHex("script", cmd.Args.Script)
	if err != nil {
		return err
	}
	params, err := netParams(cmd.Net)
	if err != nil {
		return err
	}

	if cmd.Full {
		disasm, err := txscript.DisasmFull(script)
		fmt.Fprint(w, disasm)
		if err != nil {
			log.Debugf("Script has undecodable trailing bytes: %v", err)
		}
	} else {
		parsed := txscript.ParseScript(script)
		fmt.Fprintln(w, parsed)
		if len(parsed.Trailing) != 0 {
			fmt.Fprintf(w, "trailing: %x\n", parsed.Trailing)
		}
	}

	class := txscript.GetScriptClass(script)
	fmt.Fprintf(w, "class: %v\n", class)
	if addr, err := txscript.ExtractAddress(script, params); err == nil {
		fmt.Fprintf(w, "address: %s\n", addr.EncodeAddress())
	}
	if txscript.IsWitnessProgram(script) {
		version, program, err := txscript.ExtractWitnessProgramInfo(script)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "witness program: version %d, %x\n", version,
			program)
	}
	if class == txscript.MultiSigTy {
		pubKeys, sigs, err := txscript.CalcMultiSigStats(script)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "multisig: %d of %d\n", sigs, pubKeys)
	}
	return nil
}

// runAsm writes the hex of the assembled textual script.
func runAsm(w io.Writer, cmd *asmCmd) error {
	script, err := txscript.AssembleScript(cmd.Args.Script)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%x\n", script)
	return nil
}

// runSigHash writes the signature hash of the selected input.
func runSigHash(w io.Writer, cmd *sigHashCmd) error {
	tx, err := decodeTx(cmd.Tx)
	if err != nil {
		return err
	}
	if cmd.Input < 0 || cmd.Input >= len(tx.TxIn) {
		return errors.Errorf("input %d out of range, transaction has %d "+
			"inputs", cmd.Input, len(tx.TxIn))
	}
	prevOuts, err := prevOutFetcher(tx, cmd.PrevOuts)
	if err != nil {
		return err
	}
	sigVersion, err := txscript.ParseSigVersion(cmd.SigVersion)
	if err != nil {
		return err
	}
	hashType, err := parseHashType(cmd.HashType)
	if err != nil {
		return err
	}

	params := txscript.SigHashParams{
		Version:    sigVersion,
		Tx:         tx,
		InputIndex: cmd.Input,
		PrevOuts:   prevOuts,
		HashType:   hashType,
	}

	switch sigVersion {
	case txscript.SigVersionBase, txscript.SigVersionWitnessV0:
		params.ScriptCode, err = scriptCode(cmd, tx, prevOuts, sigVersion)
		if err != nil {
			return err
		}

	case txscript.SigVersionTapscript:
		if cmd.Leaf == "" {
			return errors.New("tapscript signature hashes require " +
				"--leaf")
		}
		leaf, err := decodeHex("leaf", cmd.Leaf)
		if err != nil {
			return err
		}
		params.Tapscript = fn.Some(txscript.TapscriptExtension{
			TapLeafHash: txscript.NewBaseTapLeaf(leaf).TapHash(),
			CodeSepPos:  cmd.CodeSep,
		})
	}

	if cmd.Annex != "" {
		annex, err := decodeHex("annex", cmd.Annex)
		if err != nil {
			return err
		}
		params.Annex = fn.Some(annex)
	}

	sigHash, err := txscript.CalcSigHash(params)
	if err != nil {
		return err
	}
	log.Debugf("Computed %v signature hash of input %d with hash type %v",
		sigVersion, cmd.Input, hashType)

	// Signature hashes are shown in byte order rather than reversed like
	// transaction hashes.
	fmt.Fprintln(w, hex.EncodeToString(sigHash))
	return nil
}

// scriptCode returns the script code of a legacy or witness v0 signature hash:
// the --scriptcode option when given, otherwise the spent output script.  A
// P2WPKH output implies its pay-to-pubkey-hash script code.
func scriptCode(cmd *sigHashCmd, tx *wire.MsgTx,
	prevOuts txscript.PrevOutputFetcher,
	sigVersion txscript.SigVersion) ([]byte, error) {

	if cmd.ScriptCode != "" {
		return decodeHex("script code", cmd.ScriptCode)
	}

	prevOut := prevOuts.FetchPrevOutput(tx.TxIn[cmd.Input].PreviousOutPoint)
	if prevOut == nil {
		return nil, errors.New("either --scriptcode or --prevout is " +
			"required")
	}
	if sigVersion == txscript.SigVersionWitnessV0 {
		if !txscript.IsPayToWitnessPubKeyHash(prevOut.PkScript) {
			return nil, errors.New("--scriptcode is required unless " +
				"the input spends a P2WPKH output")
		}
		return txscript.PayToPubKeyHashScript(prevOut.PkScript[2:])
	}
	return prevOut.PkScript, nil
}

// runVerify verifies the transaction inputs and writes one line per input.
// It fails when any input fails.
func runVerify(w io.Writer, cmd *verifyCmd, sigCache *txscript.SigCache) error {
	tx, err := decodeTx(cmd.Tx)
	if err != nil {
		return err
	}
	prevOuts, err := prevOutFetcher(tx, cmd.PrevOuts)
	if err != nil {
		return err
	}
	flags, err := txscript.ParseScriptFlags(cmd.Flags)
	if err != nil {
		return err
	}

	var inputs []int
	if cmd.Input >= 0 {
		inputs = append(inputs, cmd.Input)
	}
	results, err := ValidateTransactionScripts(tx, prevOuts, flags,
		sigCache, inputs...)
	if err != nil {
		return err
	}

	txHash := tx.TxHash()
	var failed int
	for i, result := range results {
		txInIdx := i
		if len(inputs) != 0 {
			txInIdx = inputs[i]
		}
		if result != nil {
			failed++
			fmt.Fprintf(w, "input %d: FAIL %v\n", txInIdx,
				errors.Cause(result))
			continue
		}
		fmt.Fprintf(w, "input %d: OK\n", txInIdx)
	}

	log.Infof("Verified %d inputs of transaction %v with flags %v",
		len(results), txHash, flags)
	if failed != 0 {
		return errors.Errorf("%d of %d inputs of transaction %v failed "+
			"verification", failed, len(results), txHash)
	}
	return nil
}

// runSign signs one input of the transaction with a single key and writes the
// signed transaction.  The input must spend a P2PKH, P2WPKH or P2TR output,
// the latter by its key path with no script tree.  The signed input is
// verified with the standard flags before it is written.
func runSign(w io.Writer, cmd *signCmd) error {
	tx, err := decodeTx(cmd.Tx)
	if err != nil {
		return err
	}
	if cmd.Input < 0 || cmd.Input >= len(tx.TxIn) {
		return errors.Errorf("input %d out of range, transaction has %d "+
			"inputs", cmd.Input, len(tx.TxIn))
	}
	prevOuts, err := prevOutFetcher(tx, cmd.PrevOuts)
	if err != nil {
		return err
	}
	hashType, err := parseHashType(cmd.HashType)
	if err != nil {
		return err
	}
	wif, err := btcutil.DecodeWIF(cmd.Key)
	if err != nil {
		return errors.Wrap(err, "invalid private key")
	}

	txIn := tx.TxIn[cmd.Input]
	prevOut := prevOuts.FetchPrevOutput(txIn.PreviousOutPoint)
	if prevOut == nil {
		return errors.New("--prevout is required")
	}
	class := txscript.GetScriptClass(prevOut.PkScript)
	switch class {
	case txscript.PubKeyHashTy:
		txIn.SignatureScript, err = txscript.SignatureScript(tx,
			cmd.Input, prevOut.PkScript, hashType, wif.PrivKey,
			wif.CompressPubKey)

	case txscript.WitnessV0PubKeyHashTy:
		txIn.Witness, err = txscript.WitnessSignature(tx,
			txscript.NewSigHashCache(tx, prevOuts), cmd.Input,
			prevOut.Value, wif.PrivKey, hashType, wif.CompressPubKey)

	case txscript.WitnessV1TaprootTy:
		txIn.Witness, err = txscript.TaprootWitnessSignature(tx,
			txscript.NewSigHashCache(tx, prevOuts), cmd.Input,
			hashType, wif.PrivKey)

	default:
		return errors.Errorf("cannot sign input %d spending a %v output",
			cmd.Input, class)
	}
	if err != nil {
		return errors.Wrapf(err, "unable to sign input %d", cmd.Input)
	}

	// A key that does not own the output yields an invalid spend.
	err = txscript.VerifyInput(tx, cmd.Input, prevOuts,
		txscript.StandardVerifyFlags, nil, nil)
	if err != nil {
		return errors.Wrapf(err, "signed input %d does not verify", cmd.Input)
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return err
	}
	log.Infof("Signed input %d of transaction %v spending a %v output",
		cmd.Input, tx.TxHash(), class)
	_, err = fmt.Fprintln(w, hex.EncodeToString(buf.Bytes()))
	return err
}
