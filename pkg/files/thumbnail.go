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

import "github.com/basenana/nanafiles/pkg/types"

// SetThumbnail installs a loaded thumbnail. A thumbnail generated from an
// older version of the file is refused and the current one is left alone.
// A nil thumbnail clears it.
func (f *File) SetThumbnail(thumb *types.Thumbnail) bool {
	if f.isGone {
		return false
	}
	if thumb == nil {
		f.thumbnail = nil
		f.thumbnailUpToDate = true
		return true
	}
	if thumb.MTime != 0 && thumb.MTime != int64(f.mtime) {
		f.registry.logger.Debugw("drop outdated thumbnail", "file", f.id, "thumbMTime", thumb.MTime, "mtime", f.mtime)
		return false
	}
	f.thumbnail = thumb
	f.thumbnailUpToDate = true
	return true
}
