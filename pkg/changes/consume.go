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
	"context"
	"time"

	"github.com/basenana/nanafiles/utils"
)

type Removal struct {
	URI       string
	Unmounted bool
}

type Pair struct {
	From string
	To   string
}

// Sink receives the coalesced batches. Calls happen on the consumer
// goroutine, one batch at a time, in queue order.
type Sink interface {
	FilesRemoved(removed []Removal)
	FilesMoved(moves []Pair)
	FilesAdded(uris []string)
	FilesChanged(uris []string)
}

// MetadataSink is implemented by sinks that also persist metadata moves.
type MetadataSink interface {
	MetadataCopied(pairs []Pair)
	MetadataMoved(pairs []Pair)
	MetadataRemoved(uris []string)
}

// LocationIndex is told about moves before the sink sees them.
type LocationIndex interface {
	UpdateMovedURIs(from, to string)
}

type batch struct {
	deletions    []Removal
	moves        []Pair
	additions    []string
	changes      []string
	metaCopies   []Pair
	metaMoves    []Pair
	metaRemovals []string
	size         int
}

// needFlush reports whether adding an entry of kind k would mix it with an
// incompatible run already collected.
func (b *batch) needFlush(k Kind) bool {
	switch {
	case len(b.additions) > 0 && k != KindAdded && k != KindMetadataCopied:
		return true
	case len(b.changes) > 0 && k != KindChanged:
		return true
	case len(b.moves) > 0 && k != KindMoved && k != KindMetadataMoved:
		return true
	case len(b.deletions) > 0 && k != KindRemoved && k != KindUnmounted && k != KindMetadataRemoved:
		return true
	case len(b.metaCopies) > 0 && k != KindAdded && k != KindMetadataCopied:
		return true
	case len(b.metaMoves) > 0 && k != KindMoved && k != KindMetadataMoved:
		return true
	case len(b.metaRemovals) > 0 && k != KindRemoved && k != KindUnmounted && k != KindMetadataRemoved:
		return true
	}
	return false
}

func (b *batch) add(c change) {
	switch c.kind {
	case KindAdded:
		b.additions = append(b.additions, c.from)
	case KindChanged:
		b.changes = append(b.changes, c.from)
	case KindRemoved:
		b.deletions = append(b.deletions, Removal{URI: c.from})
	case KindUnmounted:
		b.deletions = append(b.deletions, Removal{URI: c.from, Unmounted: true})
	case KindMoved:
		b.moves = append(b.moves, Pair{From: c.from, To: c.to})
	case KindMetadataCopied:
		b.metaCopies = append(b.metaCopies, Pair{From: c.from, To: c.to})
	case KindMetadataMoved:
		b.metaMoves = append(b.metaMoves, Pair{From: c.from, To: c.to})
	case KindMetadataRemoved:
		b.metaRemovals = append(b.metaRemovals, c.from)
	}
	b.size += 1
}

func (b *batch) flush(sink Sink) {
	if b.size == 0 {
		return
	}
	batchFlushCounter.Inc()
	if len(b.deletions) > 0 {
		sink.FilesRemoved(b.deletions)
	}
	if len(b.moves) > 0 {
		sink.FilesMoved(b.moves)
	}
	if len(b.additions) > 0 {
		sink.FilesAdded(b.additions)
	}
	if len(b.changes) > 0 {
		sink.FilesChanged(b.changes)
	}
	if ms, ok := sink.(MetadataSink); ok {
		if len(b.metaCopies) > 0 {
			ms.MetadataCopied(b.metaCopies)
		}
		if len(b.metaMoves) > 0 {
			ms.MetadataMoved(b.metaMoves)
		}
		if len(b.metaRemovals) > 0 {
			ms.MetadataRemoved(b.metaRemovals)
		}
	}
	*b = batch{}
}

// Consume drains the queue into sink and returns the number of entries
// consumed. Entries of one kind are delivered together until a different
// kind arrives; removals and unmounts share a batch. Unless consumeAll is
// set, a batch is also cut once it holds maxChunk entries.
func (q *Queue) Consume(sink Sink, consumeAll bool) int {
	start := time.Now()
	defer logConsumeLatency(start)

	var (
		pending  batch
		consumed int
	)
	for {
		c, ok := q.pop()
		if !ok {
			pending.flush(sink)
			return consumed
		}
		consumed += 1

		if pending.needFlush(c.kind) || (!consumeAll && pending.size >= q.maxChunk) {
			pending.flush(sink)
		}

		if c.kind == KindMoved && q.index != nil {
			q.index.UpdateMovedURIs(c.from, c.to)
		}
		pending.add(c)
	}
}

// RunConsumer drains the queue on dispatch whenever something was pushed,
// and at least once per interval, until ctx is done.
func (q *Queue) RunConsumer(ctx context.Context, dispatch func(func()), sink Sink, interval time.Duration, consumeAll bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consume := func() {
		dispatch(func() {
			defer func() {
				if rErr := utils.Recover(recover()); rErr != nil {
					q.logger.Errorw("consume changes panic", "err", rErr)
				}
			}()
			q.Consume(sink, consumeAll)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.notify:
			consume()
		case <-ticker.C:
			if q.Len() > 0 {
				consume()
			}
		}
	}
}
