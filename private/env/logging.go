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

package env

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/fnrg-nfv/click/pkg/log"
)

// LogAppStarted should be called by applications as soon as logging is
// initialized.
func LogAppStarted(svcType, id string) error {
	log.Info("Service started",
		"type", svcType,
		"id", id,
		"version", Version(),
		"go", runtime.Version(),
		"pid", os.Getpid(),
		"cmd_line", os.Args,
	)
	return nil
}

// LogAppStopped should be called by applications on orderly shutdown.
func LogAppStopped(svcType, id string) {
	log.Info("Service stopped", "type", svcType, "id", id)
}

// Version returns the module version recorded in the build info, or "unknown"
// if the binary was built without module support.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "unknown"
	}
	return info.Main.Version
}
