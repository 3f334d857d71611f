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
	"time"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
)

// OperationCallback receives the outcome of an asynchronous mutation on the
// main loop. err is types.ErrCancelled when ctx was cancelled.
type OperationCallback func(f *File, err error)

// runOperation performs call off the loop, then applies onSuccess and
// reports a change on the loop whatever the outcome, so observers drop any
// optimistic state they showed.
func (r *Registry) runOperation(ctx context.Context, f *File, op string, call func(ctx context.Context) error, onSuccess func(), cb OperationCallback) {
	f.Ref()
	go func() {
		start := time.Now()
		err := func() (err error) {
			defer func() {
				if rErr := utils.Recover(recover()); rErr != nil {
					err = rErr
				}
			}()
			if err = ctx.Err(); err != nil {
				return err
			}
			ctx, endF := utils.TraceTask(ctx, "files.operation."+op)
			defer endF()
			return call(ctx)
		}()
		if isCancelled(err) {
			err = types.ErrCancelled
		}
		logOperationLatency(op, start, err)

		r.post(func() {
			defer f.Unref()
			if err != nil {
				r.logger.Warnw("file operation failed", "op", op, "file", f.id, "err", err)
			} else if onSuccess != nil && !f.isGone {
				onSuccess()
			}
			f.emitChanged()
			r.tracker.Recheck(f)
			if cb != nil {
				cb(f, err)
			}
		})
	}()
}

func (r *Registry) failOperation(f *File, op string, err error, cb OperationCallback) {
	r.runOperation(context.Background(), f, op, func(context.Context) error { return err }, nil, cb)
}

// Rename changes the file's name inside its directory. Renaming to the
// current name succeeds without touching the backend.
func (f *File) Rename(ctx context.Context, newName string, cb OperationCallback) {
	r := f.registry
	switch {
	case f.isGone:
		r.failOperation(f, "rename", types.ErrIsGone, cb)
		return
	case !validName(newName):
		r.failOperation(f, "rename", types.ErrInvalidName, cb)
		return
	case newName == f.name:
		r.failOperation(f, "rename", nil, cb)
		return
	}

	oldURI := f.URI()
	var newURI string
	r.runOperation(ctx, f, "rename", func(ctx context.Context) error {
		var err error
		newURI, err = r.backend.Rename(ctx, oldURI, newName)
		if err != nil {
			return err
		}
		if r.store != nil {
			if mErr := r.store.MoveMetadata(ctx, oldURI, newURI); mErr != nil {
				r.logger.Warnw("move metadata after rename failed", "from", oldURI, "to", newURI, "err", mErr)
			}
		}
		return nil
	}, func() {
		if r.locations != nil {
			r.locations.UpdateMovedURIs(oldURI, newURI)
		}
		f.setName(newName)
		f.reindexLink()
		f.InvalidateAttributes(types.AttrInfo)
	}, cb)
}

func (f *File) SetPermissions(ctx context.Context, mode uint32, cb OperationCallback) {
	r := f.registry
	if f.isGone {
		r.failOperation(f, "chmod", types.ErrIsGone, cb)
		return
	}
	uri := f.URI()
	r.runOperation(ctx, f, "chmod", func(ctx context.Context) error {
		return r.backend.SetPermissions(ctx, uri, mode)
	}, func() {
		f.permissions = mode & 0o7777
		f.hasPermissions = true
		f.InvalidateAttributes(types.AttrInfo)
	}, cb)
}

func (f *File) SetOwner(ctx context.Context, owner string, cb OperationCallback) {
	r := f.registry
	if f.isGone {
		r.failOperation(f, "chown", types.ErrIsGone, cb)
		return
	}
	uri := f.URI()
	r.runOperation(ctx, f, "chown", func(ctx context.Context) error {
		return r.backend.SetOwner(ctx, uri, owner)
	}, func() {
		f.owner = owner
		f.InvalidateAttributes(types.AttrInfo)
	}, cb)
}

func (f *File) SetGroup(ctx context.Context, group string, cb OperationCallback) {
	r := f.registry
	if f.isGone {
		r.failOperation(f, "chgrp", types.ErrIsGone, cb)
		return
	}
	uri := f.URI()
	r.runOperation(ctx, f, "chgrp", func(ctx context.Context) error {
		return r.backend.SetGroup(ctx, uri, group)
	}, func() {
		f.group = group
		f.InvalidateAttributes(types.AttrInfo)
	}, cb)
}

// SetMetadata stores one user metadata value. Storing the default removes
// the key.
func (f *File) SetMetadata(ctx context.Context, key, defaultValue, value string, cb OperationCallback) {
	r := f.registry
	switch {
	case f.isGone:
		r.failOperation(f, "set_metadata", types.ErrIsGone, cb)
		return
	case r.store == nil:
		r.failOperation(f, "set_metadata", types.ErrUnsupported, cb)
		return
	}
	uri := f.URI()
	remove := value == defaultValue
	r.runOperation(ctx, f, "set_metadata", func(ctx context.Context) error {
		if remove {
			return r.store.RemoveMetadata(ctx, uri, key)
		}
		return r.store.SetMetadata(ctx, uri, key, value)
	}, func() {
		if remove {
			f.setMetadataValue(key, nil)
			return
		}
		f.setMetadataValue(key, &types.MetadataValue{Value: value})
	}, cb)
}

// SetMetadataList stores a list value; an empty list removes the key.
func (f *File) SetMetadataList(ctx context.Context, key string, values []string, cb OperationCallback) {
	r := f.registry
	switch {
	case f.isGone:
		r.failOperation(f, "set_metadata", types.ErrIsGone, cb)
		return
	case r.store == nil:
		r.failOperation(f, "set_metadata", types.ErrUnsupported, cb)
		return
	}
	uri := f.URI()
	values = append([]string(nil), values...)
	r.runOperation(ctx, f, "set_metadata", func(ctx context.Context) error {
		if len(values) == 0 {
			return r.store.RemoveMetadata(ctx, uri, key)
		}
		return r.store.SetMetadataList(ctx, uri, key, values)
	}, func() {
		if len(values) == 0 {
			f.setMetadataValue(key, nil)
			return
		}
		f.setMetadataValue(key, &types.MetadataValue{List: values, IsList: true})
	}, cb)
}

func (f *File) Mount(ctx context.Context, cb OperationCallback) {
	m, ok := f.registry.backend.(backend.Mounter)
	f.mountOperation(ctx, "mount", ok && f.caps.CanMount, func(ctx context.Context, uri string) error {
		return m.Mount(ctx, uri)
	}, cb)
}

func (f *File) Unmount(ctx context.Context, cb OperationCallback) {
	m, ok := f.registry.backend.(backend.Unmounter)
	f.mountOperation(ctx, "unmount", ok && f.caps.CanUnmount, func(ctx context.Context, uri string) error {
		return m.Unmount(ctx, uri)
	}, cb)
}

func (f *File) Eject(ctx context.Context, cb OperationCallback) {
	m, ok := f.registry.backend.(backend.Ejecter)
	f.mountOperation(ctx, "eject", ok && f.caps.CanEject, func(ctx context.Context, uri string) error {
		return m.Eject(ctx, uri)
	}, cb)
}

func (f *File) Start(ctx context.Context, cb OperationCallback) {
	m, ok := f.registry.backend.(backend.Starter)
	f.mountOperation(ctx, "start", ok && (f.caps.CanStart || f.caps.CanStartDegraded), func(ctx context.Context, uri string) error {
		return m.Start(ctx, uri)
	}, cb)
}

func (f *File) Stop(ctx context.Context, cb OperationCallback) {
	m, ok := f.registry.backend.(backend.Stopper)
	f.mountOperation(ctx, "stop", ok && f.caps.CanStop, func(ctx context.Context, uri string) error {
		return m.Stop(ctx, uri)
	}, cb)
}

func (f *File) PollForMedia(ctx context.Context, cb OperationCallback) {
	m, ok := f.registry.backend.(backend.Poller)
	f.mountOperation(ctx, "poll", ok && f.caps.CanPoll, func(ctx context.Context, uri string) error {
		return m.PollForMedia(ctx, uri)
	}, cb)
}

func (f *File) mountOperation(ctx context.Context, op string, supported bool, call func(ctx context.Context, uri string) error, cb OperationCallback) {
	r := f.registry
	switch {
	case f.isGone:
		r.failOperation(f, op, types.ErrIsGone, cb)
		return
	case !supported:
		r.failOperation(f, op, types.ErrUnsupported, cb)
		return
	}
	uri := f.URI()
	r.runOperation(ctx, f, op, func(ctx context.Context) error {
		return call(ctx, uri)
	}, func() {
		f.InvalidateAttributes(types.AttrInfo | types.AttrMount | types.AttrFilesystemInfo)
	}, cb)
}

// FreeSpace returns the last known free bytes of the file's filesystem.
// A snapshot older than the configured ttl is refreshed in the background;
// ok is false until one was taken.
func (f *File) FreeSpace() (free uint64, ok bool) {
	if f.isGone {
		return 0, false
	}
	r := f.registry
	if f.fsInfoUpToDate && time.Since(f.fsInfo.QueriedAt) > r.freeSpaceTTL && !r.loader.inFlight(f, types.AttrFilesystemInfo) {
		f.markStale(types.AttrFilesystemInfo)
	}
	if !f.fsInfoUpToDate {
		r.loader.request(f, types.AttrFilesystemInfo)
	}
	if f.fsInfo.QueriedAt.IsZero() {
		return 0, false
	}
	return f.fsInfo.Free, true
}

func (f *File) reindexLink() {
	if f.isSymlink && !f.isGone {
		f.registry.index.Unregister(f)
		f.registry.index.Register(f)
	}
}
