// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestSupportedSubsystems ensures every subsystem logger is listed in order.
func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"SCHK", "SCRP", "SGDB"}, SupportedSubsystems())
}

// TestSetLogLevels tests changing subsystem log levels.
func TestSetLogLevels(t *testing.T) {
	SetLogLevels("debug")
	for _, subsystemID := range SupportedSubsystems() {
		level, ok := Level(subsystemID)
		require.True(t, ok)
		require.Equal(t, btclog.LevelDebug, level)
	}

	SetLogLevel("SCRP", "trace")
	level, _ := Level("SCRP")
	require.Equal(t, btclog.LevelTrace, level)

	// Unknown levels default to info and unknown subsystems are ignored.
	SetLogLevel("SGDB", "bogus")
	level, _ = Level("SGDB")
	require.Equal(t, btclog.LevelInfo, level)

	SetLogLevel("NONE", "trace")
	_, ok := Level("NONE")
	require.False(t, ok)

	require.True(t, ValidLogLevel("warn"))
	require.False(t, ValidLogLevel("loud"))

	SetLogLevels("off")
}

// TestInitLogRotator tests creating the log file and its directory.
func TestInitLogRotator(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "scriptcheck.log")
	require.NoError(t, InitLogRotator(logFile))
	defer func() {
		Close()
		LogRotator = nil
	}()

	SchkLog.SetLevel(btclog.LevelInfo)
	SchkLog.Info("log rotator initialized")
	SchkLog.SetLevel(btclog.LevelOff)
	require.DirExists(t, filepath.Dir(logFile))
}

// TestParseAndSetDebugLevels tests the debug level option syntax.
func TestParseAndSetDebugLevels(t *testing.T) {
	defer SetLogLevels("off")

	tests := []struct {
		level  string
		valid  bool
		levels map[string]btclog.Level
	}{{
		level: "debug",
		valid: true,
		levels: map[string]btclog.Level{
			"SCHK": btclog.LevelDebug,
			"SCRP": btclog.LevelDebug,
			"SGDB": btclog.LevelDebug,
		},
	}, {
		level: "warn,SCRP=trace",
		valid: true,
		levels: map[string]btclog.Level{
			"SCHK": btclog.LevelWarn,
			"SCRP": btclog.LevelTrace,
			"SGDB": btclog.LevelWarn,
		},
	}, {
		level: "SGDB=error",
		valid: true,
		levels: map[string]btclog.Level{
			"SGDB": btclog.LevelError,
		},
	}, {
		level: "loud",
	}, {
		level: "info,SCRP",
	}, {
		level: "BOGUS=info",
	}, {
		level: "SCRP=loud",
	}, {
		level: "",
	}}

	for _, test := range tests {
		err := ParseAndSetDebugLevels(test.level)
		if !test.valid {
			require.Error(t, err, test.level)
			continue
		}
		require.NoError(t, err, test.level)
		for subsystemID, want := range test.levels {
			level, _ := Level(subsystemID)
			require.Equal(t, want, level, test.level)
		}
	}
}
