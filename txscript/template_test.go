// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLooksLikeInt tests the integer detection used when assembling words.
func TestLooksLikeInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bool
	}{
		{"7", true},
		{"-7", true},
		{"+7", true},
		{"0", true},
		{"-0", true},
		{"ab", false},
		{"7f", false},
		{"", false},
		{"-", false},
		{"+-7", false},
		{"7.5", false},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, looksLikeInt(test.input),
			test.input)
	}
}

// TestScriptTemplate tests expansion and assembly of script templates.
func TestScriptTemplate(t *testing.T) {
	t.Parallel()

	keyHash := hexToBytes("89abcdefabbaabbaabbaabbaabbaabbaabbaabba")

	tests := []struct {
		name       string
		template   string
		params     map[string]interface{}
		customFunc map[string]interface{}
		expected   string
		wantErr    bool
	}{{
		name: "p2pkh with literal hash",
		template: "OP_DUP OP_HASH160 " +
			"0x89abcdefabbaabbaabbaabbaabbaabbaabbaabba " +
			"OP_EQUALVERIFY OP_CHECKSIG",
		expected: "OP_DUP OP_HASH160 " +
			"89abcdefabbaabbaabbaabbaabbaabbaabbaabba " +
			"OP_EQUALVERIFY OP_CHECKSIG",
	}, {
		name:     "p2pkh with parameter",
		template: "OP_DUP OP_HASH160 {{ hex .Hash }} OP_EQUALVERIFY OP_CHECKSIG",
		params:   map[string]interface{}{"Hash": keyHash},
		expected: "OP_DUP OP_HASH160 " +
			"89abcdefabbaabbaabbaabbaabbaabbaabbaabba " +
			"OP_EQUALVERIFY OP_CHECKSIG",
	}, {
		name:     "integers",
		template: "1000 -42 16 -1 0 OP_ADD",
		expected: "e803 aa 16 -1 0 OP_ADD",
	}, {
		name:     "bare hex",
		template: "c0ffee OP_DROP",
		expected: "c0ffee OP_DROP",
	}, {
		name:     "zero byte is kept as data",
		template: "{{ hex .Zero }} OP_SIZE",
		params:   map[string]interface{}{"Zero": []byte{0x00}},
		expected: "00 OP_SIZE",
	}, {
		name: "loop",
		template: `
			{{ range $i := range_iter 1 3 }}
			OP_DUP {{ $i }} OP_EQUALVERIFY
			{{ end }}
			OP_DROP OP_TRUE`,
		expected: "OP_DUP 1 OP_EQUALVERIFY OP_DUP 2 OP_EQUALVERIFY " +
			"OP_DROP 1",
	}, {
		name:     "hex_str and unhex",
		template: `{{ hex_str .Data }} {{ hex (unhex "0xbeef") }} OP_CAT`,
		params:   map[string]interface{}{"Data": []byte{0xca, 0xfe}},
		expected: "cafe beef OP_CAT",
	}, {
		name:     "custom function",
		template: "{{ double 21 }} OP_VERIFY",
		customFunc: map[string]interface{}{
			"double": func(v int) int { return v * 2 },
		},
		expected: "2a OP_VERIFY",
	}, {
		name:     "unknown opcode",
		template: "OP_FROBNICATE",
		wantErr:  true,
	}, {
		name:     "bad prefixed hex",
		template: "0xabc",
		wantErr:  true,
	}, {
		name:     "integer out of range",
		template: "123456789012345678901234567890",
		wantErr:  true,
	}, {
		name:     "unknown word",
		template: "hello",
		wantErr:  true,
	}, {
		name:     "broken template",
		template: "{{ .Missing",
		wantErr:  true,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var opts []ScriptTemplateOption
			if test.params != nil {
				opts = append(opts,
					WithScriptTemplateParams(test.params))
			}
			for name, fn := range test.customFunc {
				opts = append(opts,
					WithCustomTemplateFunc(name, fn))
			}

			script, err := ScriptTemplate(test.template, opts...)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			disasm, err := DisasmString(script)
			require.NoError(t, err)
			require.Equal(t, test.expected, disasm)
		})
	}
}

// TestAssembleDisasmRoundTrip ensures the compact disassembly of a script
// assembles back to the same bytes.
func TestAssembleDisasmRoundTrip(t *testing.T) {
	t.Parallel()

	scripts := []string{
		"76a91489abcdefabbaabbaabbaabbaabbaabbaabbaabba88ac",
		"5121" + "02" + strings.Repeat("ab", 32) + "51ae",
		"0079a98763",
		"4f60",
	}

	for _, scriptHex := range scripts {
		script := hexToBytes(scriptHex)
		disasm, err := DisasmString(script)
		require.NoError(t, err, scriptHex)

		assembled, err := AssembleScript(disasm)
		require.NoError(t, err, disasm)
		require.Equal(t, script, assembled, disasm)
	}
}

// ExampleScriptTemplate shows how to assemble a script from a template with
// parameters and a bounded loop.
func ExampleScriptTemplate() {
	script, err := ScriptTemplate(`
		OP_DUP OP_HASH160 {{ hex .PubKeyHash }} OP_EQUALVERIFY OP_CHECKSIG
		{{ .Timeout }} OP_CHECKLOCKTIMEVERIFY OP_DROP
		{{ range $i := range_iter 0 3 }} {{ $i }} OP_ADD {{ end }}`,
		WithScriptTemplateParams(map[string]interface{}{
			"PubKeyHash": hexToBytes(
				"89abcdefabbaabbaabbaabbaabbaabbaabbaabba",
			),
			"Timeout": 500000,
		}),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	disasm, err := DisasmString(script)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(disasm)

	// Output:
	// OP_DUP OP_HASH160 89abcdefabbaabbaabbaabbaabbaabbaabbaabba OP_EQUALVERIFY OP_CHECKSIG 20a107 OP_CHECKLOCKTIMEVERIFY OP_DROP 0 OP_ADD 1 OP_ADD 2 OP_ADD
}
