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

package router

import (
	"sort"
	"sync"

	"github.com/fnrg-nfv/click/pkg/private/serrors"
)

var (
	registryMtx sync.RWMutex
	registry    = map[string]func() Element{}
)

// Register makes an element class available to pipeline definitions.
// Element packages call it from their init functions; binaries pull classes
// in with blank imports. Register panics on duplicate class names.
func Register(class string, factory func() Element) {
	registryMtx.Lock()
	defer registryMtx.Unlock()
	if _, ok := registry[class]; ok {
		panic("element class registered twice: " + class)
	}
	registry[class] = factory
}

// newElement instantiates a registered element class.
func newElement(class string) (Element, error) {
	registryMtx.RLock()
	factory, ok := registry[class]
	registryMtx.RUnlock()
	if !ok {
		return nil, serrors.New("unknown element class", "class", class)
	}
	return factory(), nil
}

// Classes returns the registered element class names, sorted.
func Classes() []string {
	registryMtx.RLock()
	defer registryMtx.RUnlock()
	classes := make([]string, 0, len(registry))
	for class := range registry {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
