// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// ScriptTemplateOption is a function type for configuring the script template.
type ScriptTemplateOption func(*templateConfig)

// templateConfig holds the configuration for the script template.
type templateConfig struct {
	params map[string]interface{}

	customFuncs template.FuncMap
}

// WithScriptTemplateParams adds parameters to the script template.
func WithScriptTemplateParams(params map[string]interface{}) ScriptTemplateOption {
	return func(cfg *templateConfig) {
		for k, v := range params {
			cfg.params[k] = v
		}
	}
}

// WithCustomTemplateFunc adds a custom function to the template.
func WithCustomTemplateFunc(name string, fn interface{}) ScriptTemplateOption {
	return func(cfg *templateConfig) {
		cfg.customFuncs[name] = fn
	}
}

// ScriptTemplate assembles a script from its textual form after running it
// through Go's text/template package with the passed options.
//
// A simple pay-to-pubkey-hash template looks like:
//
//	OP_DUP OP_HASH160 {{ hex .PubKeyHash }} OP_EQUALVERIFY OP_CHECKSIG
//
// Each word of the expanded template is one of:
//   - an opcode name such as OP_CHECKSIG
//   - data to push, written as hex with a 0x prefix
//   - a decimal integer, pushed as a minimally encoded script number
//   - hex data without a prefix, as produced by DisasmString
//
// The template functions hex, hex_str, unhex and range_iter are always
// available.
func ScriptTemplate(scriptTmpl string, opts ...ScriptTemplateOption) ([]byte, error) {
	cfg := &templateConfig{
		params:      make(map[string]interface{}),
		customFuncs: make(template.FuncMap),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	funcMap := template.FuncMap{
		"hex":        hexEncode,
		"hex_str":    hexStr,
		"unhex":      hexDecode,
		"range_iter": rangeIter,
	}
	for k, v := range cfg.customFuncs {
		funcMap[k] = v
	}

	tmpl, err := template.New("script").Funcs(funcMap).Parse(scriptTmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg.params); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	return AssembleScript(buf.String())
}

// looksLikeInt checks if a string looks like an integer.
func looksLikeInt(s string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}

	return len(s) > 0
}

// AssembleScript converts the textual form of a script into its bytes.  It
// accepts the words described by ScriptTemplate, so the output of
// DisasmString assembles back to an equivalent script.  Words consisting only
// of digits are read as integers rather than hex.
func AssembleScript(script string) ([]byte, error) {
	builder := NewScriptBuilder()

	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		token := scanner.Text()
		switch {
		case strings.HasPrefix(token, "OP_"):
			opcode, ok := OpcodeByName[token]
			if !ok {
				return nil, fmt.Errorf("unknown opcode: %s", token)
			}
			builder.AddOp(opcode)

		case strings.HasPrefix(token, "0x"):
			data, err := hex.DecodeString(strings.TrimPrefix(token, "0x"))
			if err != nil {
				return nil, fmt.Errorf("invalid hex data: %s", token)
			}
			builder.AddData(data)

		case looksLikeInt(token):
			val, err := strconv.ParseInt(token, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid integer: %s", token)
			}
			builder.AddInt64(val)

		default:
			data, err := hex.DecodeString(token)
			if err != nil {
				return nil, fmt.Errorf("invalid token: %s", token)
			}
			builder.AddData(data)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading script: %w", err)
	}

	return builder.Script()
}

// rangeIter returns the integers in [start, end) for bounded loops.
func rangeIter(start, end int) []int {
	var result []int
	for i := start; i < end; i++ {
		result = append(result, i)
	}

	return result
}

// hexEncode encodes bytes as 0x prefixed hex so they are always pushed as data
// rather than read as an integer.
func hexEncode(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

// hexStr encodes bytes as hex without a prefix.
func hexStr(data []byte) string {
	return hex.EncodeToString(data)
}

// hexDecode decodes optionally 0x prefixed hex.
func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
