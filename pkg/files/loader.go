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
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils"
	"github.com/basenana/nanafiles/utils/logger"
)

type fetchKey struct {
	id    int64
	group types.Attributes
}

type fetch struct {
	key    fetchKey
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

type fetchResult struct {
	info      *types.Info
	count     int
	deepCount types.DeepCount
	mimeList  []string
	thumbnail *types.Thumbnail
	mount     *types.Mount
	fsInfo    *types.FilesystemInfo
	extension map[string]*types.ExtensionInfo
	err       error
}

// loader runs backend queries off the main loop, at most one per record
// and attribute group, and applies the answers back on the loop. An answer
// whose generation is older than the record's is dropped.
type loader struct {
	registry *Registry
	limiter  *utils.ParallelLimiter
	inflight map[fetchKey]*fetch
	logger   *zap.SugaredLogger
}

func newLoader(r *Registry) *loader {
	return &loader{
		registry: r,
		limiter:  utils.NewParallelLimiter(r.parallel),
		inflight: map[fetchKey]*fetch{},
		logger:   logger.NewLogger("loader"),
	}
}

func (l *loader) request(f *File, attrs types.Attributes) {
	if f.isGone {
		return
	}
	for _, g := range attrs.Groups() {
		if !f.lacks(g) {
			continue
		}
		key := fetchKey{id: f.id, group: g}
		if _, ok := l.inflight[key]; ok {
			fetchDedupCounter.WithLabelValues(g.String()).Inc()
			continue
		}
		l.start(f, key)
	}
}

func (l *loader) inFlight(f *File, group types.Attributes) bool {
	_, ok := l.inflight[fetchKey{id: f.id, group: group}]
	return ok
}

func (l *loader) cancel(f *File, group types.Attributes) {
	key := fetchKey{id: f.id, group: group}
	fe, ok := l.inflight[key]
	if !ok {
		return
	}
	delete(l.inflight, key)
	fe.cancel()
}

func (l *loader) cancelAll(f *File) {
	for _, g := range types.AttrGroups {
		l.cancel(f, g)
	}
}

func (l *loader) start(f *File, key fetchKey) {
	ctx, cancel := context.WithCancel(l.registry.ctx)
	fe := &fetch{key: key, gen: f.generation(key.group), ctx: ctx, cancel: cancel}
	l.inflight[key] = fe
	if key.group == types.AttrDeepCounts {
		f.deepCount = types.DeepCount{Status: types.DeepCountInProgress}
	}

	view := f.view()
	thumbPath := f.thumbPath
	f.Ref()
	go func() {
		res := l.run(fe, view, thumbPath, func(dc types.DeepCount) {
			l.registry.post(func() { l.applyDeepCountProgress(f, fe, dc) })
		})
		l.registry.post(func() {
			defer f.Unref()
			if cur := l.inflight[key]; cur == fe {
				delete(l.inflight, key)
			}
			fe.cancel()
			l.apply(f, fe, res)
		})
	}()
}

func (l *loader) run(fe *fetch, view backend.FileView, thumbPath string, progress func(types.DeepCount)) (res fetchResult) {
	ctx := fe.ctx
	group := fe.key.group
	defer func() {
		if rErr := utils.Recover(recover()); rErr != nil {
			res = fetchResult{err: rErr}
		}
	}()
	if err := l.limiter.Acquire(ctx); err != nil {
		return fetchResult{err: err}
	}
	defer l.limiter.Release()

	ctx, endF := utils.TraceTask(ctx, "files.fetch")
	defer endF()
	defer logFetchLatency(group, time.Now())

	b := l.registry.backend
	switch group {
	case types.AttrInfo:
		res.info, res.err = b.QueryInfo(ctx, view.URI)
	case types.AttrDirectoryItemCount:
		res.count, res.err = b.CountChildren(ctx, view.URI)
	case types.AttrDeepCounts:
		res.deepCount, res.err = b.DeepCount(ctx, view.URI, progress)
	case types.AttrDirectoryItemMimeTypes:
		res.mimeList, res.err = b.ListChildMimeTypes(ctx, view.URI)
	case types.AttrThumbnail:
		res.thumbnail, res.err = b.LoadThumbnail(ctx, thumbPath)
	case types.AttrMount:
		res.mount, res.err = b.QueryMount(ctx, view.URI)
	case types.AttrFilesystemInfo:
		res.fsInfo, res.err = b.QueryFilesystemInfo(ctx, view.URI)
	case types.AttrExtensionInfo:
		res.extension = map[string]*types.ExtensionInfo{}
		for _, p := range l.registry.providers {
			ext, err := p.UpdateFileInfo(ctx, view)
			if err != nil {
				l.logger.Warnw("extension provider failed", "provider", p.Name(), "file", view.ID, "err", err)
				continue
			}
			res.extension[p.Name()] = ext
		}
		res.err = ctx.Err()
	}
	if res.err != nil && !isCancelled(res.err) {
		fetchErrorCounter.WithLabelValues(group.String()).Inc()
	}
	return res
}

// stale reports whether an answer for fe must be dropped.
func (l *loader) stale(f *File, fe *fetch) bool {
	return f.isGone || fe.gen != f.generation(fe.key.group)
}

func (l *loader) apply(f *File, fe *fetch, res fetchResult) {
	group := fe.key.group
	if l.stale(f, fe) || isCancelled(res.err) {
		fetchDiscardCounter.WithLabelValues(group.String()).Inc()
		l.logger.Debugw("drop fetch result", "file", f.id, "group", group.String(), "gone", f.isGone)
		if group == types.AttrDeepCounts && !f.isGone && f.deepCount.Status == types.DeepCountInProgress &&
			fe.gen == f.generation(group) {
			f.deepCount.Status = types.DeepCountNotStarted
		}
		return
	}

	changed := true
	switch group {
	case types.AttrInfo:
		switch {
		case errors.Is(res.err, types.ErrNotFound):
			changed = f.UpdateInfo(nil)
		case res.err != nil:
			l.logger.Warnw("query info failed", "file", f.id, "err", res.err)
			f.infoUpToDate = true
			f.getInfoFailed = true
			f.getInfoError = res.err
		default:
			changed = f.UpdateInfo(res.info)
			if !f.isGone {
				f.unknowable = types.AttrInfo &^ f.known
			}
		}

	case types.AttrDirectoryItemCount:
		f.directoryCountUpToDate = true
		f.directoryCountFailed = res.err != nil
		f.directoryCount = res.count

	case types.AttrDeepCounts:
		dc := res.deepCount
		if res.err != nil {
			l.logger.Warnw("deep count failed", "file", f.id, "err", res.err)
			dc.Unreadable++
		}
		dc.Status = types.DeepCountDone
		f.deepCount = dc

	case types.AttrDirectoryItemMimeTypes:
		f.mimeListUpToDate = true
		f.mimeList = res.mimeList

	case types.AttrThumbnail:
		if res.err != nil {
			l.logger.Debugw("load thumbnail failed", "file", f.id, "err", res.err)
			f.thumbnailUpToDate = true
			break
		}
		if !f.SetThumbnail(res.thumbnail) {
			// outdated, the previous thumbnail stays
			f.thumbnailUpToDate = true
			changed = false
		}

	case types.AttrMount:
		f.mountUpToDate = true
		f.mount = nil
		if res.err == nil {
			f.mount = res.mount
		}

	case types.AttrFilesystemInfo:
		f.fsInfoUpToDate = true
		if res.err != nil {
			l.logger.Debugw("query filesystem info failed", "file", f.id, "err", res.err)
			f.fsInfo = types.FilesystemInfo{QueriedAt: time.Now()}
			break
		}
		f.fsInfo = *res.fsInfo
		if f.fsInfo.QueriedAt.IsZero() {
			f.fsInfo.QueriedAt = time.Now()
		}

	case types.AttrExtensionInfo:
		f.extension.pendingAttrs = nil
		f.extension.pendingEmblems = nil
		for _, p := range l.registry.providers {
			ext := res.extension[p.Name()]
			if ext == nil {
				continue
			}
			for _, em := range ext.Emblems {
				f.AddEmblem(em)
			}
			for k, v := range ext.Attributes {
				f.AddStringAttribute(k, v)
			}
		}
		changed = f.infoProvidersDone()
	}

	l.registry.settle(f, changed)
}

func (l *loader) applyDeepCountProgress(f *File, fe *fetch, dc types.DeepCount) {
	if f.isGone || fe.ctx.Err() != nil || fe.gen != f.generation(types.AttrDeepCounts) {
		return
	}
	if f.deepCount.Status == types.DeepCountDone {
		return
	}
	dc.Status = types.DeepCountInProgress
	f.deepCount = dc
	f.emitDeepCount()
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
