// Copyright 2025 Future Networks Research Group
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fnrg-nfv/click/router"
)

func TestParseDefinition(t *testing.T) {
	text := `
// A staged pipeline.
src :: Source;
red :: RED(5, 50, 0.02, QUEUES q); # thresholds in packets
q :: Queue(100);
out :: Sink; /* terminal
   stage */

src -> red;
red [1] -> [0] out;
red [0] -> q -> out;
`
	def, err := router.ParseDefinition(text)
	require.NoError(t, err)
	assert.Equal(t, text, def.Text)

	require.Len(t, def.Decls, 4)
	assert.Equal(t, "src", def.Decls[0].Name)
	assert.Equal(t, "Source", def.Decls[0].Class)
	assert.Empty(t, def.Decls[0].Config)
	assert.Equal(t, 3, def.Decls[0].Line)
	assert.Equal(t, "RED", def.Decls[1].Class)
	assert.Equal(t, "5, 50, 0.02, QUEUES q", def.Decls[1].Config)
	assert.Equal(t, "100", def.Decls[2].Config)

	require.Len(t, def.Conns, 4)
	assert.Equal(t, router.Conn{From: "src", To: "red", Line: 9}, def.Conns[0])
	assert.Equal(t, router.Conn{From: "red", FromPort: 1, To: "out", Line: 10}, def.Conns[1])
	assert.Equal(t, router.Conn{From: "red", To: "q", Line: 11}, def.Conns[2])
	assert.Equal(t, router.Conn{From: "q", To: "out", Line: 11}, def.Conns[3])
}

func TestParseConfigCapture(t *testing.T) {
	def, err := router.ParseDefinition(`
e :: Classy(Nested(1, 2), KEY (a, b), 0.5);
f :: Other(1 /* gap */, 2);
e -> f;
`)
	require.NoError(t, err)
	require.Len(t, def.Decls, 2)
	assert.Equal(t, "Nested(1, 2), KEY (a, b), 0.5", def.Decls[0].Config)

	args, err := router.ParseArgs(def.Decls[1].Config)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, args.Positional)
}

func TestParseDefinitionErrors(t *testing.T) {
	testCases := map[string]struct {
		text   string
		errMsg string
	}{
		"undeclared element": {
			text:   `a :: Foo; a -> b;`,
			errMsg: "undeclared element",
		},
		"redeclared element": {
			text:   "a :: Foo;\na :: Bar;",
			errMsg: "element redeclared",
		},
		"chain of one": {
			text:   `a :: Foo; a;`,
			errMsg: "at least two elements",
		},
		"input port on first element": {
			text:   `a :: Foo; b :: Bar; [0] a -> b;`,
			errMsg: "chain cannot start with an input port",
		},
		"output port on last element": {
			text:   `a :: Foo; b :: Bar; a -> b [1];`,
			errMsg: "output port on last element",
		},
		"missing semicolon": {
			text:   `a :: Foo; b :: Bar; a -> b`,
			errMsg: "expected '->' or ';'",
		},
		"missing class": {
			text:   `a :: ;`,
			errMsg: "expected element class",
		},
		"port too large": {
			text:   `a :: Foo; b :: Bar; a [999] -> b;`,
			errMsg: "invalid port number",
		},
		"ident port": {
			text:   `a :: Foo; b :: Bar; a [x] -> b;`,
			errMsg: "expected port number",
		},
		"unterminated config": {
			text:   `a :: Foo(1, (2);`,
			errMsg: "unterminated configuration",
		},
		"unterminated block comment": {
			text:   `a :: Foo; /* open`,
			errMsg: "unterminated block comment",
		},
		"stray character": {
			text:   `a :: Foo; a @ b;`,
			errMsg: "unexpected character",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := router.ParseDefinition(tc.text)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestParseLineNumbers(t *testing.T) {
	_, err := router.ParseDefinition("a :: Foo;\nb :: Bar;\n\nc -> d;")
	require.Error(t, err)
	assert.ErrorContains(t, err, "line=4")
}
