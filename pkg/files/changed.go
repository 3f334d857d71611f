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
	"github.com/basenana/nanafiles/pkg/events"
	"github.com/basenana/nanafiles/pkg/symlink"
	"github.com/basenana/nanafiles/pkg/types"
)

// MarkGone flags the record as no longer existing and takes it out of its
// directory and the symlink index. It reports false when already gone.
func (f *File) MarkGone() bool {
	if f.isGone {
		return false
	}
	r := f.registry
	f.isGone = true
	r.index.Unregister(f)
	r.loader.cancelAll(f)
	r.publish(events.ActionTypeGone, f)

	// the directory may hold the last reference
	f.Ref()
	f.directory.RemoveFile(f)
	r.post(f.Unref)

	r.logger.Debugw("file gone", "file", f.id, "unmounted", f.unmounted)
	return true
}

// emitChanged tells observers of the record and of every symlink
// resolving to it, however many hops away.
func (f *File) emitChanged() {
	r := f.registry
	r.publish(events.ActionTypeChanged, f)
	r.index.NotifyTargetChanged(f, func(link symlink.Member) {
		if lf, ok := link.(*File); ok {
			r.publish(events.ActionTypeChanged, lf)
		}
	})
}

func (f *File) emitDeepCount() {
	r := f.registry
	r.publish(events.ActionTypeDeepCount, f)
	r.index.NotifyTargetChanged(f, func(link symlink.Member) {
		if lf, ok := link.(*File); ok {
			r.publish(events.ActionTypeDeepCount, lf)
		}
	})
}

// InvalidateAttributes forgets the validity of every group touched by
// attrs. Values stay readable until replaced; in-flight fetches for those
// groups are abandoned and wanted groups are fetched again.
func (f *File) InvalidateAttributes(attrs types.Attributes) {
	if f.isGone {
		return
	}
	for _, g := range attrs.Groups() {
		f.markStale(g)
	}
	invalidateCounter.Add(float64(len(attrs.Groups())))
	f.registry.kick(f)
}

func (f *File) InvalidateAllAttributes() {
	f.InvalidateAttributes(types.AttrAll)
}

// markStale bumps the generation of group so a result produced before
// this point is discarded when it lands.
func (f *File) markStale(group types.Attributes) {
	f.generations[group]++
	f.registry.loader.cancel(f, group)
	switch group {
	case types.AttrInfo:
		f.infoUpToDate = false
		f.unknowable = 0
	case types.AttrDirectoryItemCount:
		f.directoryCountUpToDate = false
	case types.AttrDeepCounts:
		f.deepCount.Status = types.DeepCountNotStarted
	case types.AttrDirectoryItemMimeTypes:
		f.mimeListUpToDate = false
	case types.AttrThumbnail:
		f.thumbnailUpToDate = false
	case types.AttrMount:
		f.mountUpToDate = false
	case types.AttrExtensionInfo:
		f.extension.invalidate()
	case types.AttrFilesystemInfo:
		f.fsInfoUpToDate = false
	}
}
