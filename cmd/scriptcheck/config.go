// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	ilog "github.com/btcsuite/btcscript/internal/log"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel     = "info"
	defaultLogDirname   = "logs"
	defaultLogFilename  = "scriptcheck.log"
	defaultSigCacheSize = 100000
)

var (
	scriptcheckHomeDir = btcutil.AppDataDir("scriptcheck", false)
	defaultLogDir      = filepath.Join(scriptcheckHomeDir, defaultLogDirname)
)

// disasmCmd defines the options of the disasm command.
type disasmCmd struct {
	Full bool   `long:"full" description:"Print one opcode per line with its offset"`
	Net  string `long:"net" default:"mainnet" choice:"mainnet" choice:"testnet3" choice:"regtest" choice:"signet" description:"Network used to encode the address paid to"`
	Args struct {
		Script string `positional-arg-name:"script" description:"Script in hex"`
	} `positional-args:"yes" required:"yes"`
}

// asmCmd defines the options of the asm command.
type asmCmd struct {
	Args struct {
		Script string `positional-arg-name:"script" description:"Textual script, e.g. \"OP_DUP OP_HASH160 0x89abcdef... OP_EQUALVERIFY OP_CHECKSIG\""`
	} `positional-args:"yes" required:"yes"`
}

// sigHashCmd defines the options of the sighash command.
type sigHashCmd struct {
	Tx         string   `long:"tx" required:"yes" description:"Serialized transaction in hex"`
	Input      int      `long:"input" description:"Index of the signed input"`
	PrevOuts   []string `long:"prevout" description:"Output spent by each input as value:pkscript, once per input in order"`
	SigVersion string   `long:"sigversion" default:"base" choice:"base" choice:"witnessv0" choice:"taproot" choice:"tapscript" description:"Signature hash algorithm"`
	HashType   string   `long:"hashtype" default:"ALL" description:"Signature hash type by name (e.g. ALL|ANYONECANPAY) or number"`
	ScriptCode string   `long:"scriptcode" description:"Script code in hex -- Defaults to the spent output script"`
	Leaf       string   `long:"leaf" description:"Tapscript leaf script in hex"`
	CodeSep    uint32   `long:"codesep" default:"4294967295" description:"Opcode position of the last executed OP_CODESEPARATOR in the leaf"`
	Annex      string   `long:"annex" description:"Annex of the input in hex, starting with its 0x50 tag"`
}

// verifyCmd defines the options of the verify command.
type verifyCmd struct {
	Tx       string   `long:"tx" required:"yes" description:"Serialized transaction in hex"`
	PrevOuts []string `long:"prevout" required:"yes" description:"Output spent by each input as value:pkscript, once per input in order"`
	Flags    string   `long:"flags" default:"STANDARD" description:"Comma separated script verification flags -- STANDARD and CONSENSUS name the predefined sets"`
	Input    int      `long:"input" default:"-1" description:"Only verify this input"`
}

// signCmd defines the options of the sign command.
type signCmd struct {
	Tx       string   `long:"tx" required:"yes" description:"Serialized transaction in hex"`
	Input    int      `long:"input" description:"Index of the input to sign"`
	PrevOuts []string `long:"prevout" required:"yes" description:"Output spent by each input as value:pkscript, once per input in order"`
	Key      string   `long:"key" required:"yes" description:"Private key in wallet import format"`
	HashType string   `long:"hashtype" default:"ALL" description:"Signature hash type by name (e.g. ALL|ANYONECANPAY) or number"`
}

// versionCmd defines the version command, which has no options.
type versionCmd struct{}

// config defines the configuration options for scriptcheck.
//
// See loadConfig for details on the configuration load process.
type config struct {
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	SigCacheDir   string `long:"sigcachedir" description:"Directory of a persistent signature cache -- Disabled when empty"`
	SigCacheSize  uint   `long:"sigcachesize" description:"The maximum number of entries in the in-memory signature verification cache"`

	Disasm  disasmCmd  `command:"disasm" description:"Disassemble a script"`
	Asm     asmCmd     `command:"asm" description:"Assemble a textual script into hex"`
	SigHash sigHashCmd `command:"sighash" description:"Compute the signature hash of a transaction input"`
	Verify  verifyCmd  `command:"verify" description:"Verify the inputs of a transaction against the outputs they spend"`
	Sign    signCmd    `command:"sign" description:"Sign a P2PKH, P2WPKH or P2TR key path input of a transaction"`
	Version versionCmd `command:"version" description:"Display version information"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(scriptcheckHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig initializes and parses the config using command line options.
// It returns the name of the selected command.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Parse the command line options and the selected command
//  3. Validate the options and set up logging
func loadConfig(args []string) (*config, string, error) {
	// Default config.
	cfg := config{
		DebugLevel:   defaultLogLevel,
		LogDir:       defaultLogDir,
		SigCacheSize: defaultSigCacheSize,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, "", err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", ilog.SupportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := ilog.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		parser.WriteHelp(os.Stderr)
		return nil, "", fmt.Errorf("loadConfig: %v", err)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := ilog.InitLogRotator(logFile); err != nil {
			return nil, "", err
		}
	}

	if cfg.SigCacheDir != "" {
		cfg.SigCacheDir = cleanAndExpandPath(cfg.SigCacheDir)
	}

	return &cfg, parser.Active.Name, nil
}
