// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sigdb provides a leveldb backed persistent store of verified
// signatures for use as the backend of a txscript signature cache.
package sigdb

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// currentVersion is the version of the on-disk layout written by this
	// package.
	currentVersion = 1
)

var (
	// versionKey holds the layout version of the store.
	versionKey = []byte("version")

	// sigKeyPrefix prefixes every stored signature entry.
	sigKeyPrefix = []byte("sig")

	// ErrVersionMismatch is returned when opening a store written with an
	// unknown layout version.
	ErrVersionMismatch = errors.New("signature store version mismatch")
)

// Store is a persistent set of verified signature cache keys.  Keys are stored
// by their hash so every entry has the same size on disk.
//
// Store implements txscript.SigCacheBackend and is safe for concurrent access.
type Store struct {
	db *leveldb.DB
}

// Ensure Store satisfies the backend interface.
var _ txscript.SigCacheBackend = (*Store)(nil)

// dbOptions returns the options every store is opened with.
func dbOptions() *opt.Options {
	return &opt.Options{
		Strict:      opt.DefaultStrict,
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10),
	}
}

// Open opens the store at the given path, creating it when it does not exist.
// A corrupted database is recovered.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, dbOptions())
	if ldberrors.IsCorrupted(err) {
		log.Warnf("Signature store corruption detected for path %s: %v",
			path, err)
		db, err = leveldb.RecoverFile(path, dbOptions())
		if err == nil {
			log.Warnf("Signature store recovered from corruption for "+
				"path %s", path)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open signature store %s",
			path)
	}

	return newStore(db)
}

// New returns a store on top of the passed leveldb storage.  It is mostly
// useful with in-memory storage.
func New(stor storage.Storage) (*Store, error) {
	db, err := leveldb.Open(stor, dbOptions())
	if err != nil {
		return nil, errors.Wrap(err, "unable to open signature store")
	}

	return newStore(db)
}

// newStore checks the layout version of the database, writing it for a new
// database.
func newStore(db *leveldb.DB) (*Store, error) {
	serialized, err := db.Get(versionKey, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], currentVersion)
		if err := db.Put(versionKey, buf[:], nil); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "unable to write store version")
		}
		log.Debugf("Created signature store version %d", currentVersion)

	case err != nil:
		db.Close()
		return nil, errors.Wrap(err, "unable to read store version")

	default:
		if len(serialized) != 4 {
			db.Close()
			return nil, errors.Wrapf(ErrVersionMismatch,
				"malformed version of %d bytes", len(serialized))
		}
		version := binary.LittleEndian.Uint32(serialized)
		if version != currentVersion {
			db.Close()
			return nil, errors.Wrapf(ErrVersionMismatch,
				"got version %d, want %d", version, currentVersion)
		}
	}

	return &Store{db: db}, nil
}

// dbKey returns the database key of a signature cache key.
func dbKey(key []byte) []byte {
	hash := chainhash.HashH(key)
	dbKey := make([]byte, 0, len(sigKeyPrefix)+chainhash.HashSize)
	dbKey = append(dbKey, sigKeyPrefix...)
	return append(dbKey, hash[:]...)
}

// Has returns whether the signature cache key is in the store.
func (s *Store) Has(key []byte) (bool, error) {
	found, err := s.db.Has(dbKey(key), nil)
	if err != nil {
		return false, errors.Wrap(err, "unable to query signature store")
	}
	return found, nil
}

// Put adds the signature cache key to the store.
func (s *Store) Put(key []byte) error {
	if err := s.db.Put(dbKey(key), nil, nil); err != nil {
		return errors.Wrap(err, "unable to write signature store")
	}
	return nil
}

// Count returns the number of signatures in the store.
func (s *Store) Count() (int, error) {
	iter := s.db.NewIterator(util.BytesPrefix(sigKeyPrefix), nil)
	defer iter.Release()

	var n int
	for iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, errors.Wrap(err, "unable to iterate signature store")
	}
	return n, nil
}

// Prune removes entries until at most maxEntries remain and returns the
// number removed.  Entries are removed in key order, which is unrelated to
// their insertion order since keys are hashes.
func (s *Store) Prune(maxEntries int) (int, error) {
	count, err := s.Count()
	if err != nil {
		return 0, err
	}
	excess := count - maxEntries
	if excess <= 0 {
		return 0, nil
	}

	iter := s.db.NewIterator(util.BytesPrefix(sigKeyPrefix), nil)
	defer iter.Release()

	var batch leveldb.Batch
	for batch.Len() < excess && iter.Next() {
		batch.Delete(iter.Key())
	}
	if err := iter.Error(); err != nil {
		return 0, errors.Wrap(err, "unable to iterate signature store")
	}
	if err := s.db.Write(&batch, nil); err != nil {
		return 0, errors.Wrap(err, "unable to prune signature store")
	}

	log.Debugf("Pruned %d entries from the signature store", batch.Len())
	return batch.Len(), nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}
