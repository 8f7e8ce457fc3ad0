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

// Package xtest contains helpers for testing.
package xtest

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// SanitizedName sanitizes the test name such that it can be used as a file
// name.
func SanitizedName(t testing.TB) string {
	return strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_").Replace(t.Name())
}

// TempDir creates a temporary directory scoped to the test.
func TempDir(t testing.TB) (string, func()) {
	name, err := os.MkdirTemp("", fmt.Sprintf("%s_*", SanitizedName(t)))
	require.NoError(t, err)
	return name, func() {
		os.RemoveAll(name)
	}
}

// MustWriteToFile writes the given content to a file under the test's temp
// dir and returns the full path.
func MustWriteToFile(t testing.TB, content []byte, name string) string {
	t.Helper()
	path := fmt.Sprintf("%s/%s", t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// AssertReadReturnsBefore will call t.Fatalf if the first read from the
// channel does not happen before timeout.
func AssertReadReturnsBefore(t testing.TB, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("goroutine took too long to finish")
	}
}
