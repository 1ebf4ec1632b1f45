// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the bitcoin transaction script language.

This package provides data structures and functions to parse and execute
bitcoin transaction scripts, and to compute the signature hashes the
signature checking opcodes verify against.

# Script Overview

Bitcoin transaction scripts are written in a stack-base, FORTH-like language.

The bitcoin script language consists of a number of opcodes which fall into
several categories such pushing and popping data to and from the stack,
performing basic and bitwise arithmetic, conditional branching, comparing
hashes, and checking cryptographic signatures.  Scripts are processed from left
to right and intentionally do not provide loops.

Scripts run under one of several signature versions.  Legacy scripts and
pay-to-script-hash redeem scripts use the original rules and signature hash.
Version 0 witness programs (BIP 141) use the BIP 143 signature hash, and
taproot outputs (BIP 341) are spent either with a single Schnorr signature or
by revealing a tapscript leaf that runs under the BIP 342 rules.

Evaluate runs one script on a stack.  NewEngine and Engine.Execute, or the
VerifyInput wrapper, perform the complete check of a transaction input.

# Signature Hashes

CalcSignatureHash, CalcWitnessSigHash and CalcTaprootSignatureHash compute the
digests of the three signature versions.  A SigHashCache created once per
transaction memoizes the transaction wide sub-hashes shared by every input.

# Errors

Errors returned by this package are of type txscript.Error.  This allows the
caller to programmatically determine the specific error by examining the
ErrorCode field of the type asserted txscript.Error while still providing rich
error messages with contextual information.  A convenience function named
IsErrorCode is also provided to allow callers to easily check for a specific
error code.  See ErrorCode in the package documentation for a full list.
*/
package txscript
