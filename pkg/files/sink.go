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
	"context"
	"strings"
	"time"

	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/types"
)

const metadataStoreTimeout = 30 * time.Second

var (
	_ changes.Sink         = &Registry{}
	_ changes.MetadataSink = &Registry{}
)

// FilesAdded refreshes known records and creates records for new entries
// of cached directories.
func (r *Registry) FilesAdded(uris []string) {
	changed := map[*Directory][]*File{}
	for _, uri := range uris {
		parent, _, err := SplitURI(uri)
		if err != nil {
			r.logger.Warnw("ignore added file", "uri", uri, "err", err)
			continue
		}
		r.invalidateCounts(parent)

		if f := r.lookup(uri); f != nil {
			f.InvalidateAllAttributes()
			changed[f.directory] = append(changed[f.directory], f)
			continue
		}
		if r.ExistingDirectory(parent) == nil {
			continue
		}
		f, err := r.GetOrCreate(uri)
		if err != nil {
			continue
		}
		f.InvalidateAllAttributes()
		f.directory.EmitFilesChanged([]*File{f})
		f.Unref()
	}
	for dir, list := range changed {
		dir.EmitFilesChanged(list)
	}
}

func (r *Registry) FilesChanged(uris []string) {
	changed := map[*Directory][]*File{}
	for _, uri := range uris {
		f := r.lookup(uri)
		if f == nil {
			continue
		}
		f.InvalidateAttributes(types.AttrInfo | types.AttrExtensionInfo)
		changed[f.directory] = append(changed[f.directory], f)
	}
	for dir, list := range changed {
		dir.EmitFilesChanged(list)
	}
}

// FilesRemoved marks records gone, along with everything cached below a
// removed directory.
func (r *Registry) FilesRemoved(removed []changes.Removal) {
	for _, rm := range removed {
		if parent, _, err := SplitURI(rm.URI); err == nil {
			r.invalidateCounts(parent)
		}
		r.markDescendantsGone(rm.URI, rm.Unmounted)
		f := r.lookup(rm.URI)
		if f == nil {
			continue
		}
		if rm.Unmounted {
			f.unmounted = true
		}
		r.settle(f, f.MarkGone())
	}
}

func (r *Registry) FilesMoved(moves []changes.Pair) {
	for _, mv := range moves {
		newParent, newName, err := SplitURI(mv.To)
		if err != nil {
			r.logger.Warnw("ignore moved file", "from", mv.From, "to", mv.To, "err", err)
			continue
		}
		if oldParent, _, err := SplitURI(mv.From); err == nil {
			r.invalidateCounts(oldParent)
		}
		r.invalidateCounts(newParent)

		f := r.lookup(mv.From)
		if f == nil {
			r.FilesAdded([]string{mv.To})
			continue
		}
		if replaced := r.lookup(mv.To); replaced != nil && replaced != f {
			r.markDescendantsGone(mv.To, false)
			r.settle(replaced, replaced.MarkGone())
		}

		if f.directory.URI() == newParent {
			f.setName(newName)
		} else {
			r.moveToDirectory(f, newParent, newName)
		}
		r.rebaseDirectories(mv.From, mv.To)
		f.reindexLink()
		f.InvalidateAttributes(types.AttrInfo)
		f.emitChanged()
	}
}

func (r *Registry) MetadataCopied(pairs []changes.Pair) {
	r.runStore("copy", func(ctx context.Context) []string {
		var touched []string
		for _, p := range pairs {
			if err := r.store.CopyMetadata(ctx, p.From, p.To); err != nil {
				r.logger.Warnw("copy metadata failed", "from", p.From, "to", p.To, "err", err)
				continue
			}
			touched = append(touched, p.To)
		}
		return touched
	})
}

func (r *Registry) MetadataMoved(pairs []changes.Pair) {
	r.runStore("move", func(ctx context.Context) []string {
		var touched []string
		for _, p := range pairs {
			if err := r.store.MoveMetadata(ctx, p.From, p.To); err != nil {
				r.logger.Warnw("move metadata failed", "from", p.From, "to", p.To, "err", err)
				continue
			}
			touched = append(touched, p.From, p.To)
		}
		return touched
	})
}

func (r *Registry) MetadataRemoved(uris []string) {
	r.runStore("remove", func(ctx context.Context) []string {
		var touched []string
		for _, uri := range uris {
			if err := r.store.RemoveAllMetadata(ctx, uri); err != nil {
				r.logger.Warnw("remove metadata failed", "uri", uri, "err", err)
				continue
			}
			touched = append(touched, uri)
		}
		return touched
	})
}

// runStore performs metadata bookkeeping off the loop and refreshes the
// info of the records it touched.
func (r *Registry) runStore(op string, fn func(ctx context.Context) []string) {
	if r.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, metadataStoreTimeout)
		defer cancel()
		touched := fn(ctx)
		r.logger.Debugw("metadata bookkeeping done", "op", op, "touched", len(touched))
		r.post(func() {
			for _, uri := range touched {
				if f := r.lookup(uri); f != nil {
					f.InvalidateAttributes(types.AttrMetadata)
				}
			}
		})
	}()
}

func (r *Registry) invalidateCounts(dirURI string) {
	if dirURI == "" {
		return
	}
	if f := r.lookup(dirURI); f != nil {
		f.InvalidateAttributes(types.AttrDirectoryItemCount | types.AttrDeepCounts | types.AttrDirectoryItemMimeTypes)
	}
}

func (r *Registry) markDescendantsGone(uri string, unmounted bool) {
	dir := r.ExistingDirectory(uri)
	if dir == nil {
		return
	}
	for _, child := range dir.Files() {
		r.markDescendantsGone(child.URI(), unmounted)
		if unmounted {
			child.unmounted = true
		}
		r.settle(child, child.MarkGone())
	}
}

func (r *Registry) moveToDirectory(f *File, parent, name string) {
	newDir := r.Directory(parent)
	f.Ref()
	defer f.Unref()

	f.directory.RemoveFile(f)
	f.directory = newDir
	f.name = name
	if !newDir.AddFile(f) {
		r.logger.Warnw("move target still taken", "file", f.id, "uri", f.URI())
	}
}

// rebaseDirectories renames the cached directories at and below from.
func (r *Registry) rebaseDirectories(from, to string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	var matched []string
	for uri := range r.dirs {
		if uri == from || strings.HasPrefix(uri, from+"/") {
			matched = append(matched, uri)
		}
	}
	for _, uri := range matched {
		dir := r.dirs[uri]
		newURI := to + uri[len(from):]
		if _, taken := r.dirs[newURI]; taken {
			r.logger.Warnw("rebase target directory already cached", "from", uri, "to", newURI)
			continue
		}
		delete(r.dirs, uri)
		dir.mux.Lock()
		dir.uri = newURI
		dir.mux.Unlock()
		r.dirs[newURI] = dir
	}
}
