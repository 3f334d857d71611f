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

package changes

import (
	"sync"

	"go.uber.org/zap"

	"github.com/basenana/nanafiles/utils/logger"
)

const DefaultMaxChunk = 20

type Kind int

const (
	KindAdded Kind = iota + 1
	KindChanged
	KindRemoved
	KindUnmounted
	KindMoved
	KindMetadataCopied
	KindMetadataMoved
	KindMetadataRemoved
)

func (k Kind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindChanged:
		return "changed"
	case KindRemoved:
		return "removed"
	case KindUnmounted:
		return "unmounted"
	case KindMoved:
		return "moved"
	case KindMetadataCopied:
		return "metadata_copied"
	case KindMetadataMoved:
		return "metadata_moved"
	case KindMetadataRemoved:
		return "metadata_removed"
	default:
		return "unknown"
	}
}

type change struct {
	kind Kind
	from string
	to   string
}

// Queue collects change events from any goroutine. It is drained by a
// single consumer through Consume.
type Queue struct {
	items    []change
	maxChunk int
	index    LocationIndex
	notify   chan struct{}
	mux      sync.Mutex
	logger   *zap.SugaredLogger
}

type Option func(q *Queue)

func WithLocationIndex(index LocationIndex) Option {
	return func(q *Queue) {
		q.index = index
	}
}

func WithMaxChunk(maxChunk int) Option {
	return func(q *Queue) {
		if maxChunk > 0 {
			q.maxChunk = maxChunk
		}
	}
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		maxChunk: DefaultMaxChunk,
		notify:   make(chan struct{}, 1),
		logger:   logger.NewLogger("changeQueue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) FileAdded(uri string) {
	q.add(change{kind: KindAdded, from: uri})
}

func (q *Queue) FileChanged(uri string) {
	q.add(change{kind: KindChanged, from: uri})
}

func (q *Queue) FileRemoved(uri string) {
	q.add(change{kind: KindRemoved, from: uri})
}

func (q *Queue) FileUnmounted(uri string) {
	q.add(change{kind: KindUnmounted, from: uri})
}

func (q *Queue) FileMoved(from, to string) {
	q.add(change{kind: KindMoved, from: from, to: to})
}

func (q *Queue) ScheduleMetadataCopy(from, to string) {
	q.add(change{kind: KindMetadataCopied, from: from, to: to})
}

func (q *Queue) ScheduleMetadataMove(from, to string) {
	q.add(change{kind: KindMetadataMoved, from: from, to: to})
}

func (q *Queue) ScheduleMetadataRemove(uri string) {
	q.add(change{kind: KindMetadataRemoved, from: uri})
}

// Notify is signalled after a push; it never blocks producers.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

func (q *Queue) Len() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	return len(q.items)
}

func (q *Queue) add(c change) {
	q.mux.Lock()
	q.items = append(q.items, c)
	queueLengthGauge.Set(float64(len(q.items)))
	q.mux.Unlock()
	changeCounter.WithLabelValues(c.kind.String()).Inc()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (change, bool) {
	q.mux.Lock()
	defer q.mux.Unlock()
	if len(q.items) == 0 {
		return change{}, false
	}
	c := q.items[0]
	q.items[0] = change{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	queueLengthGauge.Set(float64(len(q.items)))
	return c, true
}
