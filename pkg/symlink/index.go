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

package symlink

import (
	"sync"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/utils/logger"
)

// Member is a record that can sit in the index.
type Member interface {
	ID() int64
	URI() string
	// SymlinkTargetURI returns the resolved target, empty for non-links.
	SymlinkTargetURI() string
}

// Index maps a target uri to the symlinks resolving to it. It remembers the
// key every member was registered under, so a member can be removed after
// its target already changed.
type Index struct {
	links      map[string][]Member
	registered map[int64]string
	mux        sync.RWMutex
	logger     *zap.SugaredLogger
}

func NewIndex() *Index {
	return &Index{
		links:      map[string][]Member{},
		registered: map[int64]string{},
		logger:     logger.NewLogger("symlinkIndex"),
	}
}

// Register adds m under its current target. Members without a target are
// ignored; registering twice is logged and ignored.
func (i *Index) Register(m Member) bool {
	target := m.SymlinkTargetURI()
	if target == "" {
		return false
	}

	i.mux.Lock()
	defer i.mux.Unlock()
	if old, ok := i.registered[m.ID()]; ok {
		if old == target {
			i.logger.Warnw("symlink already registered", "file", m.ID(), "target", target)
			return false
		}
		i.removeWithLock(m.ID(), old)
	}
	i.links[target] = append(i.links[target], m)
	i.registered[m.ID()] = target
	indexSizeGauge.Set(float64(len(i.registered)))
	return true
}

// Unregister removes m from wherever it was registered.
func (i *Index) Unregister(m Member) {
	i.mux.Lock()
	defer i.mux.Unlock()
	target, ok := i.registered[m.ID()]
	if !ok {
		return
	}
	i.removeWithLock(m.ID(), target)
	indexSizeGauge.Set(float64(len(i.registered)))
}

func (i *Index) removeWithLock(id int64, target string) {
	delete(i.registered, id)
	members := i.links[target]
	for idx, member := range members {
		if member.ID() != id {
			continue
		}
		members = append(members[:idx], members[idx+1:]...)
		break
	}
	if len(members) == 0 {
		delete(i.links, target)
		return
	}
	i.links[target] = members
}

// Lookup returns a copy of the links pointing at target.
func (i *Index) Lookup(target string) []Member {
	i.mux.RLock()
	defer i.mux.RUnlock()
	members := i.links[target]
	if len(members) == 0 {
		return nil
	}
	return append([]Member(nil), members...)
}

func (i *Index) Registered(m Member) (string, bool) {
	i.mux.RLock()
	defer i.mux.RUnlock()
	target, ok := i.registered[m.ID()]
	return target, ok
}

func (i *Index) Len() int {
	i.mux.RLock()
	defer i.mux.RUnlock()
	return len(i.links)
}

// NotifyTargetChanged calls notify for every link resolving to target and,
// transitively, for links resolving to those links. Each member is visited
// at most once per call and target itself is never notified.
func (i *Index) NotifyTargetChanged(target Member, notify func(link Member)) int {
	visited := map[int64]struct{}{target.ID(): {}}
	return i.propagate(target, visited, notify)
}

func (i *Index) propagate(target Member, visited map[int64]struct{}, notify func(link Member)) int {
	notified := 0
	for _, link := range i.Lookup(target.URI()) {
		if _, ok := visited[link.ID()]; ok {
			continue
		}
		visited[link.ID()] = struct{}{}
		notify(link)
		notified += 1
		notified += i.propagate(link, visited, notify)
	}
	return notified
}
