// Copyright (c) 2018-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// manyInputsBenchTx returns a transaction that contains a lot of inputs,
// which is useful for benchmarking signature hash calculation, along with
// the outputs it spends.
func manyInputsBenchTx() (*wire.MsgTx, *MultiPrevOutFetcher) {
	tx := wire.NewMsgTx(2)
	prevOuts := NewMultiPrevOutFetcher(nil)
	for i := 0; i < 200; i++ {
		outPoint := wire.OutPoint{
			Hash:  chainhash.Hash{byte(i), byte(i >> 8)},
			Index: uint32(i),
		}
		tx.AddTxIn(wire.NewTxIn(&outPoint, nil, nil))
		prevOuts.AddPrevOut(outPoint, wire.NewTxOut(
			int64(i)*1000, prevOutScript,
		))
	}
	for i := 0; i < 10; i++ {
		tx.AddTxOut(wire.NewTxOut(int64(i)*1000, prevOutScript))
	}
	return tx, prevOuts
}

// A mock previous output script to use in the signing benchmarks.
var prevOutScript = hexToBytes("a914f5916158e3e2c4551c1796708db8367207ed13bb87")

// BenchmarkCalcSigHash benchmarks how long it takes to calculate the signature
// hashes for all inputs of a transaction with many inputs.
func BenchmarkCalcSigHash(b *testing.B) {
	tx, _ := manyInputsBenchTx()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := range tx.TxIn {
			_, err := CalcSignatureHash(prevOutScript, SigHashAll, tx, j)
			if err != nil {
				b.Fatalf("failed to calc signature hash: %v", err)
			}
		}
	}
}

// BenchmarkCalcWitnessSigHash benchmarks how long it takes to calculate the
// witness signature hashes for all inputs of a transaction with many inputs.
func BenchmarkCalcWitnessSigHash(b *testing.B) {
	tx, prevOuts := manyInputsBenchTx()
	sigHashes := NewSigHashCache(tx, prevOuts)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := range tx.TxIn {
			_, err := CalcWitnessSigHash(
				prevOutScript, sigHashes, SigHashAll, tx, j, 5,
			)
			if err != nil {
				b.Fatalf("failed to calc signature hash: %v", err)
			}
		}
	}
}

// BenchmarkCalcTaprootSigHash benchmarks the BIP 341 signature hashes of all
// inputs of a transaction with many inputs.
func BenchmarkCalcTaprootSigHash(b *testing.B) {
	tx, prevOuts := manyInputsBenchTx()
	sigHashes := NewSigHashCache(tx, prevOuts)
	if err := sigHashes.Precompute(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := range tx.TxIn {
			_, err := CalcSigHash(SigHashParams{
				Version:    SigVersionTaproot,
				Tx:         tx,
				InputIndex: j,
				HashType:   SigHashDefault,
				Cache:      sigHashes,
			})
			if err != nil {
				b.Fatalf("failed to calc signature hash: %v", err)
			}
		}
	}
}

// genComplexScript returns a script comprised of half as many opcodes as the
// maximum allowed followed by as many max size data pushes fit without
// exceeding the max allowed script size.
func genComplexScript() ([]byte, error) {
	var scriptLen int
	builder := NewScriptBuilder()
	for i := 0; i < MaxOpsPerScript/2; i++ {
		builder.AddOp(OP_TRUE)
		scriptLen++
	}
	maxData := make([]byte, MaxScriptElementSize)
	for i := 0; i < (MaxScriptSize-scriptLen)/(MaxScriptElementSize+3); i++ {
		builder.AddData(maxData)
		scriptLen += MaxScriptElementSize + 3
	}

	return builder.Script()
}

// BenchmarkScriptParsing benchmarks how long it takes to parse a very large
// script.
func BenchmarkScriptParsing(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tokenizer := MakeScriptTokenizer(script)
		for tokenizer.Next() {
			_ = tokenizer.Opcode()
			_ = tokenizer.Data()
			_ = tokenizer.ByteIndex()
		}
		if err := tokenizer.Err(); err != nil {
			b.Fatalf("failed to parse script: %v", err)
		}
	}
}

// BenchmarkGetScriptClass benchmarks how long it takes to classify a very
// large script.
func BenchmarkGetScriptClass(b *testing.B) {
	script, err := genComplexScript()
	if err != nil {
		b.Fatalf("failed to create benchmark script: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = GetScriptClass(script)
	}
}

// BenchmarkVerifyWitnessPubKeyHash benchmarks the full verification of a
// P2WPKH input, with and without a signature cache.
func BenchmarkVerifyWitnessPubKeyHash(b *testing.B) {
	key := testKey(1)
	pk := key.PubKey().SerializeCompressed()
	pkScript, err := PayToWitnessPubKeyHashScript(btcutil.Hash160(pk))
	if err != nil {
		b.Fatal(err)
	}

	tx, prevOuts := spendOf(pkScript)
	sigHashes := NewSigHashCache(tx, prevOuts)
	witness, err := WitnessSignature(tx, sigHashes, 0, spendAmount, key,
		SigHashAll, true)
	if err != nil {
		b.Fatal(err)
	}
	tx.TxIn[0].Witness = witness

	for _, sigCache := range []*SigCache{nil, NewSigCache(10)} {
		name := "no cache"
		if sigCache != nil {
			name = "sig cache"
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				err := VerifyInput(tx, 0, prevOuts,
					StandardVerifyFlags, sigCache, sigHashes)
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
