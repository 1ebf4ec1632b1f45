// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// scriptcheck is a utility to inspect bitcoin scripts, compute signature
// hashes and verify transaction inputs.
package main

import (
	"fmt"
	"io"
	"os"

	ilog "github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/internal/sigdb"
	"github.com/btcsuite/btcscript/internal/version"
	"github.com/btcsuite/btcscript/txscript"
	flags "github.com/jessevdk/go-flags"
)

var log = ilog.SchkLog

// loadSigCache returns the signature cache used for verification, backed by
// the persistent store when one is configured.  The returned function closes
// the store.
func loadSigCache(cfg *config) (*txscript.SigCache, func(), error) {
	if cfg.SigCacheDir == "" {
		return txscript.NewSigCache(cfg.SigCacheSize), func() {}, nil
	}

	log.Infof("Loading signature store from '%s'", cfg.SigCacheDir)
	store, err := sigdb.Open(cfg.SigCacheDir)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Errorf("Unable to close signature store: %v", err)
		}
	}
	sigCache := txscript.NewSigCacheWithBackend(cfg.SigCacheSize, store)
	return sigCache, closeStore, nil
}

// runCommand runs the selected command, writing its output to w.
func runCommand(w io.Writer, cfg *config, command string) error {
	switch command {
	case "disasm":
		return runDisasm(w, &cfg.Disasm)

	case "asm":
		return runAsm(w, &cfg.Asm)

	case "sighash":
		return runSigHash(w, &cfg.SigHash)

	case "verify":
		sigCache, closeStore, err := loadSigCache(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return runVerify(w, &cfg.Verify, sigCache)

	case "sign":
		return runSign(w, &cfg.Sign)

	case "version":
		fmt.Fprintf(w, "scriptcheck version %s\n", version.String())
		return nil
	}

	return fmt.Errorf("unknown command %q", command)
}

// realMain is the real main function for the utility.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func realMain() error {
	cfg, command, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	defer ilog.Close()

	return runCommand(os.Stdout, cfg, command)
}

func main() {
	if err := realMain(); err != nil {
		// Parse errors and help output are already printed.
		if _, ok := err.(*flags.Error); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
