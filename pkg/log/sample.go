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

package log

const consoleConfigSample = `
# Console logging level (debug|info|error) (default "info")
level = "info"

# Console logging format (human|json) (default "human")
format = "human"

# Level from which on stacktraces are included in logs
# (none|debug|info|error) (default "none")
stacktrace_level = "none"
`
