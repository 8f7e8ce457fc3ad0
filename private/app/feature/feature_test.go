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

package feature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fnrg-nfv/click/private/app/feature"
)

func TestParse(t *testing.T) {
	type set struct {
		Tagged   bool `feature:"tag_override"`
		Untagged bool
		Ignored  string
	}

	tests := map[string]struct {
		input     []string
		expected  set
		assertErr assert.ErrorAssertionFunc
	}{
		"empty input": {
			input:     nil,
			expected:  set{},
			assertErr: assert.NoError,
		},
		"tagged name": {
			input:     []string{"tag_override"},
			expected:  set{Tagged: true},
			assertErr: assert.NoError,
		},
		"field name": {
			input:     []string{"Untagged"},
			expected:  set{Untagged: true},
			assertErr: assert.NoError,
		},
		"unknown feature": {
			input:     []string{"no_such_flag"},
			assertErr: assert.Error,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var s set
			err := feature.Parse(test.input, &s)
			test.assertErr(t, err)
			if err == nil {
				assert.Equal(t, test.expected, s)
			}
		})
	}
}

func TestFeatures(t *testing.T) {
	assert.Equal(t,
		[]string{"deterministic_random"},
		feature.Features(feature.Default{}),
	)
}

func TestParseNil(t *testing.T) {
	assert.Error(t, feature.Parse(nil, nil))
}
