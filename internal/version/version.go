// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the semantic version of scriptcheck.
package version

import (
	"fmt"
	"strings"
)

// Major, Minor and Patch form the release version of scriptcheck.
const (
	Major uint = 0
	Minor uint = 1
	Patch uint = 0
)

// Characters allowed in pre-release and build metadata identifiers.  Build
// metadata may also contain dots.
const (
	preRelAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"abcdefghijklmnopqrstuvwxyz-"
	buildAlphabet = preRelAlphabet + "."
)

var (
	// PreRelease may be set at link time with
	// -ldflags "-X github.com/btcsuite/btcscript/internal/version.PreRelease=rc1".
	PreRelease = "beta"

	// BuildMetadata may be set at link time with
	// -ldflags "-X github.com/btcsuite/btcscript/internal/version.BuildMetadata=abc".
	BuildMetadata = "dev"
)

// String returns the version as MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD].
// Invalid characters in the pre-release and build parts are dropped, and a
// part left empty is omitted along with its separator.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", Major, Minor, Patch)
	if pre := NormalizePreRelString(PreRelease); pre != "" {
		b.WriteString("-" + pre)
	}
	if build := NormalizeBuildString(BuildMetadata); build != "" {
		b.WriteString("+" + build)
	}
	return b.String()
}

// keepOnly returns str without the runes missing from alphabet.
func keepOnly(str, alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(alphabet, r) {
			return r
		}
		return -1
	}, str)
}

// NormalizePreRelString strips characters not allowed in a pre-release
// identifier.
func NormalizePreRelString(str string) string {
	return keepOnly(str, preRelAlphabet)
}

// NormalizeBuildString strips characters not allowed in build metadata.
func NormalizeBuildString(str string) string {
	return keepOnly(str, buildAlphabet)
}
