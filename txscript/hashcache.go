// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// PrevOutputFetcher supplies the outputs spent by a transaction's inputs.
// Taproot signatures commit to every spent output, and witness v0 signatures
// commit to the amount of the input being signed.
type PrevOutputFetcher interface {
	// FetchPrevOutput returns the output referenced by the passed
	// outpoint, or nil when it is unknown.
	FetchPrevOutput(wire.OutPoint) *wire.TxOut
}

// CannedPrevOutputFetcher is an implementation of PrevOutputFetcher that
// returns the same output for every outpoint.  It only suits transactions
// with a single input or signature types that commit to one input.
type CannedPrevOutputFetcher struct {
	pkScript []byte
	amt      int64
}

// NewCannedPrevOutputFetcher returns an instance of a CannedPrevOutputFetcher
// that can only return the TxOut defined by the passed script and amount.
func NewCannedPrevOutputFetcher(script []byte, amt int64) *CannedPrevOutputFetcher {
	return &CannedPrevOutputFetcher{
		pkScript: script,
		amt:      amt,
	}
}

// FetchPrevOutput returns the canned output.
//
// NOTE: This is a part of the PrevOutputFetcher interface.
func (c *CannedPrevOutputFetcher) FetchPrevOutput(wire.OutPoint) *wire.TxOut {
	return &wire.TxOut{
		PkScript: c.pkScript,
		Value:    c.amt,
	}
}

// A compile-time assertion to ensure that CannedPrevOutputFetcher matches the
// PrevOutputFetcher interface.
var _ PrevOutputFetcher = (*CannedPrevOutputFetcher)(nil)

// MultiPrevOutFetcher is a PrevOutputFetcher backed by a map of outpoints to
// outputs.
type MultiPrevOutFetcher struct {
	prevOuts map[wire.OutPoint]*wire.TxOut
}

// NewMultiPrevOutFetcher returns a MultiPrevOutFetcher using the passed map,
// which may be nil.
func NewMultiPrevOutFetcher(prevOuts map[wire.OutPoint]*wire.TxOut) *MultiPrevOutFetcher {
	if prevOuts == nil {
		prevOuts = make(map[wire.OutPoint]*wire.TxOut)
	}

	return &MultiPrevOutFetcher{
		prevOuts: prevOuts,
	}
}

// FetchPrevOutput returns the output stored for the passed outpoint.
//
// NOTE: This is a part of the PrevOutputFetcher interface.
func (m *MultiPrevOutFetcher) FetchPrevOutput(op wire.OutPoint) *wire.TxOut {
	return m.prevOuts[op]
}

// AddPrevOut adds a new prev out, tx out pair to the backing map.
func (m *MultiPrevOutFetcher) AddPrevOut(op wire.OutPoint, txOut *wire.TxOut) {
	m.prevOuts[op] = txOut
}

// A compile-time assertion to ensure that MultiPrevOutFetcher matches the
// PrevOutputFetcher interface.
var _ PrevOutputFetcher = (*MultiPrevOutFetcher)(nil)

// fetchAllPrevOuts returns the spent output of every input of the passed
// transaction, failing with ErrMissingPrevOut when one is unknown.
func fetchAllPrevOuts(tx *wire.MsgTx,
	fetcher PrevOutputFetcher) ([]*wire.TxOut, error) {

	if fetcher == nil {
		return nil, scriptError(ErrMissingPrevOut,
			"no previous output fetcher provided")
	}

	prevOuts := make([]*wire.TxOut, len(tx.TxIn))
	for i, txIn := range tx.TxIn {
		prevOut := fetcher.FetchPrevOutput(txIn.PreviousOutPoint)
		if prevOut == nil {
			return nil, scriptError(ErrMissingPrevOut,
				"unknown previous output "+
					txIn.PreviousOutPoint.String())
		}
		prevOuts[i] = prevOut
	}
	return prevOuts, nil
}

// calcShaPrevOuts returns the single SHA256 of the serialized outpoints of all
// inputs.
func calcShaPrevOuts(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		b.Write(in.PreviousOutPoint.Hash[:])

		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], in.PreviousOutPoint.Index)
		b.Write(buf[:])
	}

	return chainhash.HashH(b.Bytes())
}

// calcShaSequences returns the single SHA256 of the sequence numbers of all
// inputs.
func calcShaSequences(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, in := range tx.TxIn {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], in.Sequence)
		b.Write(buf[:])
	}

	return chainhash.HashH(b.Bytes())
}

// calcShaOutputs returns the single SHA256 of all outputs in wire format.
func calcShaOutputs(tx *wire.MsgTx) chainhash.Hash {
	var b bytes.Buffer
	for _, out := range tx.TxOut {
		_ = wire.WriteTxOut(&b, 0, 0, out)
	}

	return chainhash.HashH(b.Bytes())
}

// calcShaAmounts returns the single SHA256 of the amounts of all spent
// outputs.
func calcShaAmounts(prevOuts []*wire.TxOut) chainhash.Hash {
	var b bytes.Buffer
	for _, prevOut := range prevOuts {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(prevOut.Value))
		b.Write(buf[:])
	}

	return chainhash.HashH(b.Bytes())
}

// calcShaScriptPubKeys returns the single SHA256 of the length prefixed
// scripts of all spent outputs.
func calcShaScriptPubKeys(prevOuts []*wire.TxOut) chainhash.Hash {
	var b bytes.Buffer
	for _, prevOut := range prevOuts {
		_ = wire.WriteVarBytes(&b, 0, prevOut.PkScript)
	}

	return chainhash.HashH(b.Bytes())
}

// SigHashCache memoizes the transaction wide sub-hashes that witness v0 and
// taproot signature hashes commit to.  Each sub-hash is computed on first use
// and every later use is counted as a hit.
//
// A cache is bound to one transaction and its spent outputs.  It is not safe
// for concurrent use while sub-hashes are still being filled in lazily; call
// Precompute first to share one cache between goroutines.  The hit counter is
// always safe for concurrent use.
type SigHashCache struct {
	tx       *wire.MsgTx
	prevOuts PrevOutputFetcher

	shaPrevOuts      fn.Option[chainhash.Hash]
	shaAmounts       fn.Option[chainhash.Hash]
	shaScriptPubKeys fn.Option[chainhash.Hash]
	shaSequences     fn.Option[chainhash.Hash]
	shaOutputs       fn.Option[chainhash.Hash]

	hits atomic.Int64
}

// NewSigHashCache returns an empty cache for the passed transaction.  The
// fetcher is only consulted for taproot signature hashes and may be nil
// otherwise.
func NewSigHashCache(tx *wire.MsgTx, prevOuts PrevOutputFetcher) *SigHashCache {
	return &SigHashCache{
		tx:       tx,
		prevOuts: prevOuts,
	}
}

// fetchPrevOut returns the spent output for the passed outpoint, or nil when
// the cache has no fetcher or the output is unknown.
func (c *SigHashCache) fetchPrevOut(op wire.OutPoint) *wire.TxOut {
	if c.prevOuts == nil {
		return nil
	}
	return c.prevOuts.FetchPrevOutput(op)
}

// memo returns the cached value, computing and storing it on a miss.
func (c *SigHashCache) memo(slot *fn.Option[chainhash.Hash],
	calc func() (chainhash.Hash, error)) (chainhash.Hash, error) {

	if slot.IsSome() {
		c.hits.Add(1)
		return slot.UnwrapOr(chainhash.Hash{}), nil
	}

	h, err := calc()
	if err != nil {
		return chainhash.Hash{}, err
	}
	*slot = fn.Some(h)
	return h, nil
}

// ShaPrevOuts returns the single SHA256 of all spent outpoints.
func (c *SigHashCache) ShaPrevOuts() chainhash.Hash {
	h, _ := c.memo(&c.shaPrevOuts, func() (chainhash.Hash, error) {
		return calcShaPrevOuts(c.tx), nil
	})
	return h
}

// ShaSequences returns the single SHA256 of all input sequence numbers.
func (c *SigHashCache) ShaSequences() chainhash.Hash {
	h, _ := c.memo(&c.shaSequences, func() (chainhash.Hash, error) {
		return calcShaSequences(c.tx), nil
	})
	return h
}

// ShaOutputs returns the single SHA256 of all outputs.
func (c *SigHashCache) ShaOutputs() chainhash.Hash {
	h, _ := c.memo(&c.shaOutputs, func() (chainhash.Hash, error) {
		return calcShaOutputs(c.tx), nil
	})
	return h
}

// ShaAmounts returns the single SHA256 of all spent amounts.
func (c *SigHashCache) ShaAmounts() (chainhash.Hash, error) {
	return c.memo(&c.shaAmounts, func() (chainhash.Hash, error) {
		prevOuts, err := fetchAllPrevOuts(c.tx, c.prevOuts)
		if err != nil {
			return chainhash.Hash{}, err
		}
		return calcShaAmounts(prevOuts), nil
	})
}

// ShaScriptPubKeys returns the single SHA256 of all spent output scripts.
func (c *SigHashCache) ShaScriptPubKeys() (chainhash.Hash, error) {
	return c.memo(&c.shaScriptPubKeys, func() (chainhash.Hash, error) {
		prevOuts, err := fetchAllPrevOuts(c.tx, c.prevOuts)
		if err != nil {
			return chainhash.Hash{}, err
		}
		return calcShaScriptPubKeys(prevOuts), nil
	})
}

// hashPrevOutsV0 returns the BIP 143 hashPrevouts, the double SHA256 of the
// serialized outpoints.
func (c *SigHashCache) hashPrevOutsV0() chainhash.Hash {
	h := c.ShaPrevOuts()
	return chainhash.HashH(h[:])
}

// hashSequenceV0 returns the BIP 143 hashSequence.
func (c *SigHashCache) hashSequenceV0() chainhash.Hash {
	h := c.ShaSequences()
	return chainhash.HashH(h[:])
}

// hashOutputsV0 returns the BIP 143 hashOutputs.
func (c *SigHashCache) hashOutputsV0() chainhash.Hash {
	h := c.ShaOutputs()
	return chainhash.HashH(h[:])
}

// Precompute fills in every sub-hash.  The spent-output sub-hashes are only
// computed when the cache has a fetcher, and an error is returned when one of
// the spent outputs is unknown.  Precomputing does not count as hits.
func (c *SigHashCache) Precompute() error {
	hits := c.hits.Load()
	defer c.hits.Store(hits)

	c.ShaPrevOuts()
	c.ShaSequences()
	c.ShaOutputs()
	if c.prevOuts == nil {
		return nil
	}
	if _, err := c.ShaAmounts(); err != nil {
		return err
	}
	_, err := c.ShaScriptPubKeys()
	return err
}

// Hits returns the number of sub-hash lookups answered from the cache.
func (c *SigHashCache) Hits() int {
	return int(c.hits.Load())
}

// ResetHits sets the hit counter back to zero.
func (c *SigHashCache) ResetHits() {
	c.hits.Store(0)
}
