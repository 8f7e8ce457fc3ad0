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
	"io"

	"github.com/fnrg-nfv/click/private/app/feature"
	"github.com/fnrg-nfv/click/private/config"
)

var _ config.Config = (*Features)(nil)

// Features contains the feature flags for a service.
type Features struct {
	config.NoDefaulter
	config.NoValidator
	feature.Default
}

func (cfg *Features) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, featuresSample)
}

func (cfg *Features) ConfigName() string {
	return "features"
}
