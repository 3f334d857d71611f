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
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TestQueueCoalescing", func() {
	var (
		q   *Queue
		rec *recorder
	)

	BeforeEach(func() {
		rec = &recorder{}
		q = NewQueue(WithLocationIndex(rec))
	})

	Context("same kind runs", func() {
		It("should be cut at a kind boundary", func() {
			q.FileAdded("a")
			q.FileAdded("b")
			q.FileChanged("c")
			q.FileAdded("d")

			Expect(q.Consume(rec, true)).Should(Equal(4))
			Expect(rec.Calls()).Should(Equal([]string{
				"added[a,b]",
				"changed[c]",
				"added[d]",
			}))
			Expect(q.Len()).Should(Equal(0))
		})
		It("should keep arrival order inside a batch", func() {
			for i := 0; i < 5; i++ {
				q.FileChanged(fmt.Sprintf("f%d", i))
			}
			q.Consume(rec, true)
			Expect(rec.Calls()).Should(Equal([]string{"changed[f0,f1,f2,f3,f4]"}))
		})
		It("should deliver nothing for an empty queue", func() {
			Expect(q.Consume(rec, true)).Should(Equal(0))
			Expect(rec.Calls()).Should(BeEmpty())
		})
	})

	Context("unmount and remove", func() {
		It("should share one deletions batch", func() {
			q.FileUnmounted("x")
			q.FileRemoved("y")
			q.Consume(rec, true)
			Expect(rec.Calls()).Should(Equal([]string{"removed[x(unmounted),y]"}))
		})
	})

	Context("moves", func() {
		It("should update the location index before the sink", func() {
			q.FileMoved("p", "q")
			q.Consume(rec, true)
			Expect(rec.Calls()).Should(Equal([]string{
				"location(p->q)",
				"moved[p->q]",
			}))
		})
		It("should flush earlier batches before indexing a move", func() {
			q.FileAdded("a")
			q.FileMoved("p", "q")
			q.Consume(rec, true)
			Expect(rec.Calls()).Should(Equal([]string{
				"added[a]",
				"location(p->q)",
				"moved[p->q]",
			}))
		})
	})

	Context("metadata requests", func() {
		It("should travel with compatible file changes", func() {
			q.FileAdded("a")
			q.ScheduleMetadataCopy("s", "a")
			q.FileRemoved("b")
			q.ScheduleMetadataRemove("b")
			q.FileMoved("c", "d")
			q.ScheduleMetadataMove("c", "d")
			q.Consume(rec, true)
			Expect(rec.Calls()).Should(Equal([]string{
				"added[a]",
				"metadata_copied[s->a]",
				"removed[b]",
				"metadata_removed[b]",
				"location(c->d)",
				"moved[c->d]",
				"metadata_moved[c->d]",
			}))
		})
	})

	Context("chunking", func() {
		It("should cut batches at the chunk size unless consuming all", func() {
			q = NewQueue(WithMaxChunk(2))
			for i := 0; i < 5; i++ {
				q.FileAdded(fmt.Sprintf("f%d", i))
			}
			q.Consume(rec, false)
			Expect(rec.Calls()).Should(Equal([]string{
				"added[f0,f1]",
				"added[f2,f3]",
				"added[f4]",
			}))
		})
		It("should not cut when consuming all", func() {
			q = NewQueue(WithMaxChunk(2))
			for i := 0; i < 5; i++ {
				q.FileAdded(fmt.Sprintf("f%d", i))
			}
			q.Consume(rec, true)
			Expect(rec.Calls()).Should(Equal([]string{"added[f0,f1,f2,f3,f4]"}))
		})
	})
})

var _ = Describe("TestQueueProducers", func() {
	It("should accept concurrent pushes without losing entries", func() {
		q := NewQueue()
		rec := &recorder{}

		var wg sync.WaitGroup
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					q.FileChanged(fmt.Sprintf("p%d-%d", p, i))
				}
			}(p)
		}
		wg.Wait()

		Expect(q.Len()).Should(Equal(800))
		Expect(q.Consume(rec, true)).Should(Equal(800))
		Expect(rec.Calls()).Should(HaveLen(1))
	})

	It("should drain through the consumer loop", func() {
		q := NewQueue()
		rec := &recorder{}
		ctx, canF := context.WithCancel(context.TODO())
		defer canF()

		dispatch := func(fn func()) { fn() }
		go q.RunConsumer(ctx, dispatch, rec, 10*time.Millisecond, true)

		q.FileAdded("a")
		Eventually(rec.Calls, time.Second).Should(ContainElement("added[a]"))
	})
})
