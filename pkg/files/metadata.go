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
	"github.com/basenana/nanafiles/pkg/types"
)

func (f *File) updateMetadata(meta map[string]types.MetadataValue) bool {
	if meta == nil {
		meta = map[string]types.MetadataValue{}
	}
	if metadataEqual(f.metadata, meta) {
		return false
	}
	f.metadata = meta
	return true
}

func metadataEqual(a, b map[string]types.MetadataValue) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

// GetMetadata returns defaultValue when key is unset.
func (f *File) GetMetadata(key, defaultValue string) string {
	v, ok := f.metadata[key]
	if !ok || v.IsList {
		return defaultValue
	}
	return v.Value
}

func (f *File) GetMetadataList(key string) []string {
	v, ok := f.metadata[key]
	if !ok || !v.IsList {
		return nil
	}
	return append([]string(nil), v.List...)
}

func (f *File) MetadataKeys() []string {
	return sortedKeys(f.metadata)
}

func (f *File) setMetadataValue(key string, v *types.MetadataValue) {
	next := make(map[string]types.MetadataValue, len(f.metadata)+1)
	for k, old := range f.metadata {
		next[k] = old
	}
	if v == nil {
		delete(next, key)
	} else {
		next[key] = *v
	}
	f.metadata = next
}
