/*
 Copyright 2023 NanaFS Authors.

 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package files

import (
	"sort"

	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

// extensionState double-buffers what providers contribute: answers
// accumulate in pending and replace the committed set only once every
// provider has answered.
type extensionState struct {
	upToDate bool

	pendingAttrs   map[string]string
	pendingEmblems []string

	attrs   map[string]string
	emblems []string
	hash    string
}

func (e *extensionState) invalidate() {
	e.upToDate = false
	e.pendingAttrs = nil
	e.pendingEmblems = nil
}

func (e *extensionState) addEmblem(emblem string) {
	for _, em := range e.pendingEmblems {
		if em == emblem {
			return
		}
	}
	e.pendingEmblems = append(e.pendingEmblems, emblem)
}

func (e *extensionState) addAttribute(name, value string) {
	if e.pendingAttrs == nil {
		e.pendingAttrs = map[string]string{}
	}
	e.pendingAttrs[name] = value
}

func (e *extensionState) commit() bool {
	emblems := append([]string(nil), e.pendingEmblems...)
	sort.Strings(emblems)
	attrs := e.pendingAttrs
	if attrs == nil {
		attrs = map[string]string{}
	}
	hash := utils.ComputeStructHash(types.ExtensionInfo{Attributes: attrs, Emblems: emblems})

	changed := hash != e.hash
	e.attrs = attrs
	e.emblems = emblems
	e.hash = hash
	e.upToDate = true
	e.pendingAttrs = nil
	e.pendingEmblems = nil
	return changed
}

// AddEmblem queues an emblem for the next commit of provider answers.
func (f *File) AddEmblem(emblem string) {
	if emblem == "" {
		return
	}
	f.extension.addEmblem(emblem)
}

func (f *File) AddStringAttribute(name, value string) {
	f.extension.addAttribute(name, value)
}

// infoProvidersDone publishes the collected answers.
func (f *File) infoProvidersDone() bool {
	return f.extension.commit()
}

func (f *File) Emblems() []string {
	return append([]string(nil), f.extension.emblems...)
}

func (f *File) ExtensionAttribute(name string) string {
	return f.extension.attrs[name]
}

func (f *File) ExtensionAttributes() map[string]string {
	result := make(map[string]string, len(f.extension.attrs))
	for k, v := range f.extension.attrs {
		result[k] = v
	}
	return result
}
