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

package local

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/utils"
	"github.com/basenana/nanafiles/utils/logger"
)

const defaultMoveWindow = 50 * time.Millisecond

// Monitor turns inotify events of watched directories into change queue
// entries. A rename followed shortly by a create in a watched directory
// is reported as one move.
type Monitor struct {
	watcher *fsnotify.Watcher
	queue   *changes.Queue
	window  time.Duration

	renamed []pendingRename
	mux     sync.Mutex
	logger  *zap.SugaredLogger
}

type pendingRename struct {
	path string
	at   time.Time
}

func NewMonitor(queue *changes.Queue, window time.Duration) (*Monitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if window <= 0 {
		window = defaultMoveWindow
	}
	return &Monitor{
		watcher: w,
		queue:   queue,
		window:  window,
		logger:  logger.NewLogger("monitor"),
	}, nil
}

func (m *Monitor) Watch(uri string) error {
	p, err := uriToPath(uri)
	if err != nil {
		return err
	}
	if err = m.watcher.Add(p); err != nil {
		return toError(err)
	}
	m.logger.Infow("watch directory", "path", p)
	return nil
}

func (m *Monitor) Unwatch(uri string) error {
	p, err := uriToPath(uri)
	if err != nil {
		return err
	}
	return m.watcher.Remove(p)
}

func (m *Monitor) WatchList() []string {
	var uris []string
	for _, p := range m.watcher.WatchList() {
		uris = append(uris, PathToURI(p))
	}
	return uris
}

// Run forwards events until ctx is done, then closes the watcher.
func (m *Monitor) Run(ctx context.Context) {
	defer func() {
		if rErr := utils.Recover(recover()); rErr != nil {
			m.logger.Errorw("monitor panic", "err", rErr)
		}
	}()
	defer m.watcher.Close()

	ticker := time.NewTicker(m.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.flushRenames(time.Time{})
			return
		case evt, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handle(evt, time.Now())
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warnw("watcher error", "err", err)
		case now := <-ticker.C:
			m.flushRenames(now.Add(-m.window))
		}
	}
}

func (m *Monitor) handle(evt fsnotify.Event, now time.Time) {
	uri := PathToURI(evt.Name)
	switch {
	case evt.Has(fsnotify.Create):
		if from, ok := m.takeRename(now); ok {
			m.queue.FileMoved(PathToURI(from), uri)
			m.queue.ScheduleMetadataMove(PathToURI(from), uri)
			return
		}
		m.queue.FileAdded(uri)
	case evt.Has(fsnotify.Remove):
		m.queue.FileRemoved(uri)
		m.queue.ScheduleMetadataRemove(uri)
	case evt.Has(fsnotify.Rename):
		m.mux.Lock()
		m.renamed = append(m.renamed, pendingRename{path: filepath.Clean(evt.Name), at: now})
		m.mux.Unlock()
	case evt.Has(fsnotify.Write), evt.Has(fsnotify.Chmod):
		m.queue.FileChanged(uri)
	}
}

// takeRename pops the oldest rename still inside the window.
func (m *Monitor) takeRename(now time.Time) (string, bool) {
	m.mux.Lock()
	defer m.mux.Unlock()
	for len(m.renamed) > 0 {
		r := m.renamed[0]
		m.renamed = m.renamed[1:]
		if now.Sub(r.at) <= m.window {
			return r.path, true
		}
		m.queue.FileRemoved(PathToURI(r.path))
		m.queue.ScheduleMetadataRemove(PathToURI(r.path))
	}
	return "", false
}

// flushRenames reports renames older than before as removals; a zero
// before flushes all of them.
func (m *Monitor) flushRenames(before time.Time) {
	m.mux.Lock()
	defer m.mux.Unlock()
	kept := m.renamed[:0]
	for _, r := range m.renamed {
		if before.IsZero() || r.at.Before(before) {
			m.queue.FileRemoved(PathToURI(r.path))
			m.queue.ScheduleMetadataRemove(PathToURI(r.path))
			continue
		}
		kept = append(kept, r)
	}
	m.renamed = kept
}
