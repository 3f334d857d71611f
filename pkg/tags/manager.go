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

package tags

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/metastore"
	"github.com/basenana/nanafiles/pkg/types"
	"github.com/basenana/nanafiles/utils/logger"
)

const providerName = "tags"

// Manager keeps the starred set in memory and writes through to the
// store.
type Manager struct {
	ctx     context.Context
	store   metastore.StarredRecorder
	starred map[string]types.StarredFile
	notify  func(uri string)
	mux     sync.RWMutex
	logger  *zap.SugaredLogger

	// moves waiting to be written, in arrival order
	moves     []movedURI
	movesMux  sync.Mutex
	movesKick chan struct{}
}

type movedURI struct {
	from, to string
}

var (
	_ backend.ExtensionProvider = &Manager{}
	_ changes.LocationIndex     = &Manager{}
)

type Option func(m *Manager)

// WithStarredChanged registers fn to be told about every uri whose
// starred state changed.
func WithStarredChanged(fn func(uri string)) Option {
	return func(m *Manager) {
		m.notify = fn
	}
}

func NewManager(ctx context.Context, store metastore.StarredRecorder, opts ...Option) (*Manager, error) {
	m := &Manager{
		ctx:       ctx,
		store:     store,
		starred:   map[string]types.StarredFile{},
		logger:    logger.NewLogger("tags"),
		movesKick: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	list, err := store.ListStarred(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		m.starred[s.URI] = s
	}
	go m.persistMoves()
	return m, nil
}

func (m *Manager) Star(ctx context.Context, uri string) error {
	s, err := m.store.Star(ctx, uri)
	if err != nil {
		m.logger.Warnw("star file failed", "uri", uri, "err", err)
		return err
	}
	m.mux.Lock()
	_, existed := m.starred[uri]
	m.starred[uri] = *s
	m.mux.Unlock()
	if !existed {
		m.changed(uri)
	}
	return nil
}

func (m *Manager) Unstar(ctx context.Context, uri string) error {
	if err := m.store.Unstar(ctx, uri); err != nil {
		m.logger.Warnw("unstar file failed", "uri", uri, "err", err)
		return err
	}
	m.mux.Lock()
	_, existed := m.starred[uri]
	delete(m.starred, uri)
	m.mux.Unlock()
	if existed {
		m.changed(uri)
	}
	return nil
}

func (m *Manager) IsStarred(uri string) bool {
	m.mux.RLock()
	defer m.mux.RUnlock()
	_, ok := m.starred[uri]
	return ok
}

// List returns the starred files, oldest first.
func (m *Manager) List() []types.StarredFile {
	m.mux.RLock()
	result := make([]types.StarredFile, 0, len(m.starred))
	for _, s := range m.starred {
		result = append(result, s)
	}
	m.mux.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].StarredAt.Equal(result[j].StarredAt) {
			return result[i].URI < result[j].URI
		}
		return result[i].StarredAt.Before(result[j].StarredAt)
	})
	return result
}

// UpdateMovedURIs carries stars from from (and everything below it) to to.
func (m *Manager) UpdateMovedURIs(from, to string) {
	if from == to {
		return
	}

	var moved []string
	m.mux.Lock()
	for uri, s := range m.starred {
		if !isUnder(uri, from) {
			continue
		}
		delete(m.starred, uri)
		s.URI = rebase(uri, from, to)
		m.starred[s.URI] = s
		moved = append(moved, uri, s.URI)
	}
	m.mux.Unlock()

	if len(moved) == 0 {
		return
	}

	m.movesMux.Lock()
	m.moves = append(m.moves, movedURI{from: from, to: to})
	m.movesMux.Unlock()
	select {
	case m.movesKick <- struct{}{}:
	default:
	}

	for _, uri := range moved {
		m.changed(uri)
	}
}

// persistMoves writes queued moves to the store one by one, so callers
// on the main loop never wait for the database.
func (m *Manager) persistMoves() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.movesKick:
		}

		for {
			m.movesMux.Lock()
			if len(m.moves) == 0 {
				m.movesMux.Unlock()
				break
			}
			mv := m.moves[0]
			m.moves = m.moves[1:]
			m.movesMux.Unlock()

			ctx, canF := context.WithTimeout(m.ctx, time.Second*10)
			if err := m.store.MoveStarred(ctx, mv.from, mv.to); err != nil {
				m.logger.Errorw("move starred failed", "from", mv.from, "to", mv.to, "err", err)
			}
			canF()
		}
	}
}

func (m *Manager) Name() string {
	return providerName
}

func (m *Manager) UpdateFileInfo(ctx context.Context, view backend.FileView) (*types.ExtensionInfo, error) {
	info := &types.ExtensionInfo{}
	if m.IsStarred(view.URI) {
		info.Emblems = append(info.Emblems, types.EmblemStarred)
	}
	return info, nil
}

func (m *Manager) changed(uri string) {
	if m.notify != nil {
		m.notify(uri)
	}
}

func isUnder(uri, prefix string) bool {
	if uri == prefix {
		return true
	}
	return strings.HasPrefix(uri, strings.TrimSuffix(prefix, "/")+"/")
}

func rebase(uri, from, to string) string {
	if uri == from {
		return to
	}
	return strings.TrimSuffix(to, "/") + strings.TrimPrefix(uri, strings.TrimSuffix(from, "/"))
}
