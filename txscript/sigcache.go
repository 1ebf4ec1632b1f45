// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// SigCacheBackend is a persistent store of verified signature triples that a
// SigCache falls back to on a miss.  Keys are opaque byte strings built by the
// cache.
type SigCacheBackend interface {
	// Has returns whether the key is in the store.
	Has(key []byte) (bool, error)

	// Put adds the key to the store.
	Put(key []byte) error
}

// SigCache implements a signature verification cache with a least recently
// used eviction policy.  Only valid signatures will be added to the cache.  The
// benefits of SigCache are two fold.  Firstly, usage of SigCache mitigates a
// DoS attack wherein an attack causes a victim's client to hang due to
// worst-case behavior triggered while processing attacker crafted invalid
// transactions.  Secondly, usage of the SigCache introduces a signature
// verification optimization which speeds up the validation of transactions
// within a block, if they've already been seen and verified within the
// mempool.
//
// Entries are (sigHash, signature, public key) triples covering both ECDSA and
// BIP 340 signatures.  The cache is safe for concurrent access.
type SigCache struct {
	validSigs  lru.Cache
	maxEntries uint
	backend    SigCacheBackend
}

// NewSigCache creates and initializes a new instance of SigCache.  Its sole
// parameter 'maxEntries' represents the maximum number of entries allowed to
// exist in the SigCache at any particular moment.  The least recently used
// entry is evicted to make room for new entries that would cause the number of
// entries in the cache to exceed the max.
func NewSigCache(maxEntries uint) *SigCache {
	return &SigCache{
		validSigs:  lru.NewCache(maxEntries),
		maxEntries: maxEntries,
	}
}

// NewSigCacheWithBackend returns a SigCache that also records verified
// signatures in the passed persistent store and consults it on a miss.
func NewSigCacheWithBackend(maxEntries uint,
	backend SigCacheBackend) *SigCache {

	s := NewSigCache(maxEntries)
	s.backend = backend
	return s
}

// sigCacheKey serializes a cache entry.  The signature is length prefixed so
// distinct signature and key splits of the same bytes never collide.
func sigCacheKey(sigHash chainhash.Hash, sig, pubKey []byte) []byte {
	key := make([]byte, 0, chainhash.HashSize+1+len(sig)+len(pubKey))
	key = append(key, sigHash[:]...)
	key = append(key, byte(len(sig)))
	key = append(key, sig...)
	return append(key, pubKey...)
}

// Exists returns true if an existing entry of 'sig' over 'sigHash' for public
// key 'pubKey' is found within the SigCache or its backend.  Otherwise, false
// is returned.  A backend hit is promoted into the in-memory cache.
//
// NOTE: This function is safe for concurrent access.
func (s *SigCache) Exists(sigHash chainhash.Hash, sig, pubKey []byte) bool {
	key := sigCacheKey(sigHash, sig, pubKey)
	if s.maxEntries > 0 && s.validSigs.Contains(string(key)) {
		return true
	}
	if s.backend == nil {
		return false
	}

	found, err := s.backend.Has(key)
	if err != nil {
		log.Warnf("Unable to query signature store: %v", err)
		return false
	}
	if found && s.maxEntries > 0 {
		s.validSigs.Add(string(key))
	}
	return found
}

// Add adds an entry for a signature over 'sigHash' under public key 'pubKey'
// to the signature cache and its backend.  In the event that the SigCache is
// 'full', the least recently used entry is evicted in order to make space for
// the new entry.
//
// NOTE: This function is safe for concurrent access.
func (s *SigCache) Add(sigHash chainhash.Hash, sig, pubKey []byte) {
	key := sigCacheKey(sigHash, sig, pubKey)
	if s.maxEntries > 0 {
		s.validSigs.Add(string(key))
	}
	if s.backend == nil {
		return
	}
	if err := s.backend.Put(key); err != nil {
		log.Warnf("Unable to persist verified signature: %v", err)
	}
}
