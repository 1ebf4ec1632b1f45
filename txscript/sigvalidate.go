// Copyright (c) 2013-2022 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	// compressedPubKeyLen is the length in bytes of a compressed public
	// key.
	compressedPubKeyLen = 33

	// uncompressedPubKeyLen is the length in bytes of an uncompressed
	// public key.
	uncompressedPubKeyLen = 65

	// pubKeyCompressed and friends are the format prefixes of a serialized
	// public key.
	pubKeyCompressed         = 0x02
	pubKeyCompressedOdd      = 0x03
	pubKeyUncompressed       = 0x04
	taprootXOnlyPubKeyLength = 32
)

// isCompressedPubKey returns whether or not the passed public key is a
// compressed public key.
func isCompressedPubKey(pubKey []byte) bool {
	return len(pubKey) == compressedPubKeyLen &&
		(pubKey[0] == pubKeyCompressed || pubKey[0] == pubKeyCompressedOdd)
}

// isStrictPubKeyEncoding returns whether or not the passed public key adheres
// to the strict encoding requirements.
func isStrictPubKeyEncoding(pubKey []byte) bool {
	if isCompressedPubKey(pubKey) {
		return true
	}
	return len(pubKey) == uncompressedPubKeyLen &&
		pubKey[0] == pubKeyUncompressed
}

// checkHashTypeEncoding returns whether or not the passed hashtype adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkHashTypeEncoding(hashType SigHashType) error {
	if !vm.hasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}

	if !hashType.IsDefined() {
		str := fmt.Sprintf("invalid hash type 0x%x", uint32(hashType))
		return scriptError(ErrInvalidSigHashType, str)
	}
	return nil
}

// checkPubKeyEncoding returns whether or not the passed public key adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkPubKeyEncoding(pubKey []byte) error {
	if vm.hasFlag(ScriptVerifyWitnessPubKeyType) &&
		vm.sigVersion == SigVersionWitnessV0 &&
		!isCompressedPubKey(pubKey) {

		str := "only compressed keys are accepted post-segwit"
		return scriptError(ErrWitnessPubKeyType, str)
	}

	if !vm.hasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}

	if !isStrictPubKeyEncoding(pubKey) {
		str := "unsupported public key type"
		return scriptError(ErrPubKeyType, str)
	}
	return nil
}

// checkSignatureEncoding returns whether or not the passed signature adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkSignatureEncoding(sig []byte) error {
	if !vm.hasFlag(ScriptVerifyDERSignatures) &&
		!vm.hasFlag(ScriptVerifyLowS) &&
		!vm.hasFlag(ScriptVerifyStrictEncoding) {

		return nil
	}

	// The format of a DER encoded signature is as follows:
	//
	// 0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
	//   - 0x30 is the ASN.1 identifier for a sequence
	//   - Total length is 1 byte and specifies length of all remaining data
	//   - 0x02 is the ASN.1 identifier that specifies an integer follows
	//   - Length of R is 1 byte and specifies how many bytes R occupies
	//   - R is the arbitrary length big-endian encoded number which
	//     represents the R value of the signature.  DER encoding dictates
	//     that the value must be encoded using the minimum possible number
	//     of bytes.  This implies the first byte can only be null if the
	//     highest bit of the next byte is set in order to prevent it from
	//     being interpreted as a negative number.
	//   - 0x02 is once again the ASN.1 integer identifier
	//   - Length of S is 1 byte and specifies how many bytes S occupies
	//   - S is the arbitrary length big-endian encoded number which
	//     represents the S value of the signature.  The encoding rules are
	//     identical as those for R.
	const (
		asn1SequenceID = 0x30
		asn1IntegerID  = 0x02

		// minSigLen is the minimum length of a DER encoded signature and
		// is when both R and S are 1 byte each.
		minSigLen = 8

		// maxSigLen is the maximum length of a DER encoded signature and
		// is when both R and S are 33 bytes each.
		maxSigLen = 72

		sequenceOffset = 0
		dataLenOffset  = 1
		rTypeOffset    = 2
		rLenOffset     = 3
		rOffset        = 4
	)

	sigLen := len(sig)
	if sigLen < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d", sigLen,
			minSigLen)
		return scriptError(ErrSigTooShort, str)
	}
	if sigLen > maxSigLen {
		str := fmt.Sprintf("malformed signature: too long: %d > %d", sigLen,
			maxSigLen)
		return scriptError(ErrSigTooLong, str)
	}

	if sig[sequenceOffset] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong type: %#x",
			sig[sequenceOffset])
		return scriptError(ErrSigInvalidSeqID, str)
	}

	if int(sig[dataLenOffset]) != sigLen-2 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[dataLenOffset], sigLen-2)
		return scriptError(ErrSigInvalidDataLen, str)
	}

	// Calculate the offsets of the elements related to S and ensure S is
	// inside the signature.
	rLen := int(sig[rLenOffset])
	sTypeOffset := rOffset + rLen
	sLenOffset := sTypeOffset + 1
	if sTypeOffset >= sigLen {
		str := "malformed signature: S type indicator missing"
		return scriptError(ErrSigMissingSTypeID, str)
	}
	if sLenOffset >= sigLen {
		str := "malformed signature: S length missing"
		return scriptError(ErrSigMissingSLen, str)
	}

	// The lengths of R and S must match the overall length of the
	// signature.
	sOffset := sLenOffset + 1
	sLen := int(sig[sLenOffset])
	if sOffset+sLen != sigLen {
		str := "malformed signature: invalid S length"
		return scriptError(ErrSigInvalidSLen, str)
	}

	if sig[rTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: R integer marker: %#x != %#x",
			sig[rTypeOffset], asn1IntegerID)
		return scriptError(ErrSigInvalidRIntID, str)
	}
	if rLen == 0 {
		str := "malformed signature: R length is zero"
		return scriptError(ErrSigZeroRLen, str)
	}
	if sig[rOffset]&0x80 != 0 {
		str := "malformed signature: R is negative"
		return scriptError(ErrSigNegativeR, str)
	}

	// Null bytes at the start of R are not allowed, unless R would
	// otherwise be interpreted as a negative number.
	if rLen > 1 && sig[rOffset] == 0x00 && sig[rOffset+1]&0x80 == 0 {
		str := "malformed signature: R value has too much padding"
		return scriptError(ErrSigTooMuchRPadding, str)
	}

	if sig[sTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: S integer marker: %#x != %#x",
			sig[sTypeOffset], asn1IntegerID)
		return scriptError(ErrSigInvalidSIntID, str)
	}
	if sLen == 0 {
		str := "malformed signature: S length is zero"
		return scriptError(ErrSigZeroSLen, str)
	}
	if sig[sOffset]&0x80 != 0 {
		str := "malformed signature: S is negative"
		return scriptError(ErrSigNegativeS, str)
	}
	if sLen > 1 && sig[sOffset] == 0x00 && sig[sOffset+1]&0x80 == 0 {
		str := "malformed signature: S value has too much padding"
		return scriptError(ErrSigTooMuchSPadding, str)
	}

	// Verify the S value is <= half the order of the curve.  When it is
	// higher, the complement modulo the order is also a valid signature,
	// which makes the transaction hash malleable.
	if vm.hasFlag(ScriptVerifyLowS) && isHighS(sig[sOffset:sOffset+sLen]) {
		return scriptError(ErrSigHighS, "signature is not canonical due "+
			"to unnecessarily high S value")
	}

	return nil
}

// isHighS returns whether the passed big-endian S value is greater than half
// the order of the secp256k1 group.
func isHighS(sBytes []byte) bool {
	for len(sBytes) > 0 && sBytes[0] == 0x00 {
		sBytes = sBytes[1:]
	}
	if len(sBytes) > 32 {
		return true
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sBytes); overflow {
		return true
	}
	return s.IsOverHalfOrder()
}

// ecdsaCheck is a parsed ECDSA signature check: the signature and key bytes as
// they appeared on the stack along with the hash type split off the
// signature.
type ecdsaCheck struct {
	fullSig  []byte
	sig      []byte
	pubKey   []byte
	hashType SigHashType
}

// newECDSACheck applies the encoding rules enabled by the script flags to the
// passed signature and public key.  An encoding error ends script execution
// at once, unlike a signature that merely fails to verify.  The signature
// must not be empty.
func (vm *Engine) newECDSACheck(fullSig, pubKey []byte) (*ecdsaCheck, error) {
	hashType := SigHashType(fullSig[len(fullSig)-1])
	sig := fullSig[:len(fullSig)-1]
	if err := vm.checkSignatureEncoding(sig); err != nil {
		return nil, err
	}
	if err := vm.checkHashTypeEncoding(hashType); err != nil {
		return nil, err
	}
	if err := vm.checkPubKeyEncoding(pubKey); err != nil {
		return nil, err
	}

	return &ecdsaCheck{
		fullSig:  fullSig,
		sig:      sig,
		pubKey:   pubKey,
		hashType: hashType,
	}, nil
}

// verifyECDSA computes the signature hash over the passed script code and checks
// the signature against it.  Parse failures of the key or signature and
// signature hash failures count as an invalid signature.
func (vm *Engine) verifyECDSA(c *ecdsaCheck, scriptCode []byte) bool {
	var (
		sigHash []byte
		err     error
	)
	switch vm.sigVersion {
	case SigVersionWitnessV0:
		sigHash, err = CalcWitnessSigHash(scriptCode, vm.hashCache,
			c.hashType, vm.tx, vm.txIdx, vm.inputAmount)
	default:
		sigHash, err = CalcSignatureHash(scriptCode, c.hashType, vm.tx,
			vm.txIdx)
	}
	if err != nil {
		log.Debugf("Unable to compute signature hash of input %d: %v",
			vm.txIdx, err)
		return false
	}

	var hash chainhash.Hash
	copy(hash[:], sigHash)
	if vm.sigCache != nil && vm.sigCache.Exists(hash, c.sig, c.pubKey) {
		return true
	}

	pubKey, err := btcec.ParsePubKey(c.pubKey)
	if err != nil {
		return false
	}

	var signature *ecdsa.Signature
	if vm.hasFlag(ScriptVerifyStrictEncoding) ||
		vm.hasFlag(ScriptVerifyDERSignatures) {

		signature, err = ecdsa.ParseDERSignature(c.sig)
	} else {
		signature, err = ecdsa.ParseSignature(c.sig)
	}
	if err != nil {
		return false
	}

	if !signature.Verify(sigHash, pubKey) {
		return false
	}
	if vm.sigCache != nil {
		vm.sigCache.Add(hash, c.sig, c.pubKey)
	}
	return true
}

// parseTaprootSig splits a BIP 340 signature from its optional trailing hash
// type.  A 64-byte signature uses SIGHASH_DEFAULT, and an explicit trailing
// hash type of zero is not allowed.
func parseTaprootSig(rawSig []byte) (*schnorr.Signature, SigHashType, error) {
	var hashType SigHashType
	switch {
	case len(rawSig) == schnorr.SignatureSize:
		hashType = SigHashDefault

	case len(rawSig) == schnorr.SignatureSize+1 &&
		rawSig[schnorr.SignatureSize] != 0:

		hashType = SigHashType(rawSig[schnorr.SignatureSize])
		rawSig = rawSig[:schnorr.SignatureSize]

	default:
		str := fmt.Sprintf("invalid sig len: %v", len(rawSig))
		return nil, 0, scriptError(ErrInvalidTaprootSigLen, str)
	}

	sig, err := schnorr.ParseSignature(rawSig)
	if err != nil {
		return nil, 0, scriptError(ErrTaprootSigInvalid, err.Error())
	}
	return sig, hashType, nil
}

// checkSchnorrSignature verifies a BIP 340 signature of the input being
// executed by the passed 32-byte x-only key.  The extension is set for
// tapscript signatures and unset for key path spends.
func (vm *Engine) checkSchnorrSignature(rawSig, pkBytes []byte,
	ext fn.Option[TapscriptExtension]) error {

	sig, hashType, err := parseTaprootSig(rawSig)
	if err != nil {
		return err
	}

	pubKey, err := schnorr.ParsePubKey(pkBytes)
	if err != nil {
		return scriptError(ErrTaprootSigInvalid, err.Error())
	}

	var annex fn.Option[[]byte]
	if vm.taprootCtx != nil && vm.taprootCtx.annex != nil {
		annex = fn.Some(vm.taprootCtx.annex)
	}
	sigHash, err := CalcTaprootSignatureHash(vm.hashCache, hashType, vm.tx,
		vm.txIdx, ext, annex)
	if err != nil {
		return err
	}

	var hash chainhash.Hash
	copy(hash[:], sigHash)
	if vm.sigCache != nil && vm.sigCache.Exists(hash, rawSig, pkBytes) {
		return nil
	}

	if !sig.Verify(sigHash, pubKey) {
		str := fmt.Sprintf("schnorr signature of input %d is invalid",
			vm.txIdx)
		return scriptError(ErrTaprootSigInvalid, str)
	}
	if vm.sigCache != nil {
		vm.sigCache.Add(hash, rawSig, pkBytes)
	}
	return nil
}
