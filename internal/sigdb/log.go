// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sigdb

import (
	"github.com/btcsuite/btclog"
)

// log is the package logger.  It is silent until UseLogger is called.
var log = btclog.Disabled

// DisableLog silences the package logger.
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger sets the logger used for store recovery and pruning messages.
func UseLogger(logger btclog.Logger) {
	log = logger
}
