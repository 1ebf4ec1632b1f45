// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestHashCacheBIP143Midstates checks the witness v0 sub-hashes against the
// values listed in BIP 143 for its native P2WPKH example.
func TestHashCacheBIP143Midstates(t *testing.T) {
	t.Parallel()

	cache := NewSigHashCache(bip143Tx(t), nil)

	hashPrevOuts := cache.hashPrevOutsV0()
	hashSequence := cache.hashSequenceV0()
	hashOutputs := cache.hashOutputsV0()

	require.Equal(t, hexToBytes("96b827c8483d4e9b96712b6713a7b68d6e8003a7"+
		"81feba36c31143470b4efd37"), hashPrevOuts[:])
	require.Equal(t, hexToBytes("52b0a642eea2fb7ae638c36f6252b6750293dbe5"+
		"74a806984b8e4d8548339a3b"), hashSequence[:])
	require.Equal(t, hexToBytes("863ef3e1a92afbfdb97f31ad0fc7683ee943e9ab"+
		"cf2501590ff8f6551f47e5e5"), hashOutputs[:])
}

// TestHashCacheHits ensures sub-hashes are computed once and every later
// lookup is counted as a hit.
func TestHashCacheHits(t *testing.T) {
	t.Parallel()

	tx, prevOuts := sigHashTestTx()
	cache := NewSigHashCache(tx, prevOuts)
	require.Zero(t, cache.Hits())

	first := cache.ShaPrevOuts()
	require.Zero(t, cache.Hits())
	require.Equal(t, first, cache.ShaPrevOuts())
	require.Equal(t, 1, cache.Hits())

	// Signing every input with the witness v0 algorithm uses three
	// midstates each.  Only the first input misses the sequence and
	// output hashes since the outpoint hash is already known.
	cache.ResetHits()
	for i := range tx.TxIn {
		_, err := CalcWitnessSigHash([]byte{OP_TRUE}, cache, SigHashAll,
			tx, i, 1000)
		require.NoError(t, err)
	}
	require.Equal(t, 3*len(tx.TxIn)-2, cache.Hits())

	cache.ResetHits()
	require.Zero(t, cache.Hits())
}

// TestHashCacheTaprootHits ensures repeated taproot signature hashes reuse the
// memoized sub-hashes.
func TestHashCacheTaprootHits(t *testing.T) {
	t.Parallel()

	tx, prevOuts := bip341VectorTx(t)
	cache := NewSigHashCache(tx, prevOuts)
	none := fn.None[TapscriptExtension]()
	noAnnex := fn.None[[]byte]()

	sigHash := func(idx int, hashType SigHashType) []byte {
		t.Helper()

		h, err := CalcTaprootSignatureHash(cache, hashType, tx, idx,
			none, noAnnex)
		require.NoError(t, err)
		return h
	}

	// SINGLE leaves out the outputs, so the first digest computes the
	// other four sub-hashes.
	sigHash(0, SigHashSingle)
	require.Zero(t, cache.Hits())

	// DEFAULT reuses those four and computes the outputs hash.
	first := sigHash(4, SigHashDefault)
	require.Equal(t, 4, cache.Hits())

	// Every later lookup is a hit, and the digest is unchanged.
	require.Equal(t, first, sigHash(4, SigHashDefault))
	require.Equal(t, 9, cache.Hits())
	sigHash(3, SigHashAll)
	require.Equal(t, 14, cache.Hits())

	// ANYONECANPAY|SINGLE commits to none of them.
	sigHash(1, SigHashSingle|SigHashAnyOneCanPay)
	require.Equal(t, 14, cache.Hits())

	// A fresh cache gives the same digest.
	fresh, err := CalcTaprootSignatureHash(NewSigHashCache(tx, prevOuts),
		SigHashDefault, tx, 4, none, noAnnex)
	require.NoError(t, err)
	require.Equal(t, first, fresh)
}

// TestHashCachePrecompute tests filling in a cache up front.
func TestHashCachePrecompute(t *testing.T) {
	t.Parallel()

	tx, prevOuts := sigHashTestTx()

	// Precomputing does not count as hits, but later lookups do.
	cache := NewSigHashCache(tx, prevOuts)
	require.NoError(t, cache.Precompute())
	require.Zero(t, cache.Hits())

	_, err := cache.ShaAmounts()
	require.NoError(t, err)
	_, err = cache.ShaScriptPubKeys()
	require.NoError(t, err)
	require.Equal(t, 2, cache.Hits())

	// Without a fetcher only the transaction sub-hashes are computed.
	noFetcher := NewSigHashCache(tx, nil)
	require.NoError(t, noFetcher.Precompute())
	_, err = noFetcher.ShaAmounts()
	require.True(t, IsErrorCode(err, ErrMissingPrevOut), err)

	// An unknown spent output is reported.
	partial := NewMultiPrevOutFetcher(map[wire.OutPoint]*wire.TxOut{
		tx.TxIn[0].PreviousOutPoint: prevOuts.FetchPrevOutput(
			tx.TxIn[0].PreviousOutPoint,
		),
	})
	err = NewSigHashCache(tx, partial).Precompute()
	require.True(t, IsErrorCode(err, ErrMissingPrevOut), err)
}

// TestHashCacheMatchesFreshCache ensures signature hashes computed with a
// shared cache match those computed with a new cache per input.
func TestHashCacheMatchesFreshCache(t *testing.T) {
	t.Parallel()

	tx, prevOuts := sigHashTestTx()
	shared := NewSigHashCache(tx, prevOuts)
	require.NoError(t, shared.Precompute())

	for i := range tx.TxIn {
		for _, version := range []SigVersion{
			SigVersionWitnessV0, SigVersionTaproot,
		} {
			params := SigHashParams{
				Version:    version,
				Tx:         tx,
				InputIndex: i,
				PrevOuts:   prevOuts,
				ScriptCode: []byte{OP_TRUE},
				HashType:   SigHashAll,
			}
			fresh, err := CalcSigHash(params)
			require.NoError(t, err)

			params.Cache = shared
			cached, err := CalcSigHash(params)
			require.NoError(t, err)
			require.Equal(t, fresh, cached)
		}
	}
}

// TestPrevOutputFetchers tests the canned and map backed fetchers.
func TestPrevOutputFetchers(t *testing.T) {
	t.Parallel()

	canned := NewCannedPrevOutputFetcher([]byte{OP_TRUE}, 42)
	for _, op := range []wire.OutPoint{{}, {Index: 7}} {
		out := canned.FetchPrevOutput(op)
		require.Equal(t, int64(42), out.Value)
		require.Equal(t, []byte{OP_TRUE}, out.PkScript)
	}

	op := wire.OutPoint{Index: 1}
	multi := NewMultiPrevOutFetcher(nil)
	require.Nil(t, multi.FetchPrevOutput(op))

	txOut := wire.NewTxOut(7, []byte{OP_2})
	multi.AddPrevOut(op, txOut)
	require.Equal(t, txOut, multi.FetchPrevOutput(op))
	require.Nil(t, multi.FetchPrevOutput(wire.OutPoint{}))
}
