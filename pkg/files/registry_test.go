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
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/events"
	"github.com/basenana/nanafiles/pkg/loop"
	"github.com/basenana/nanafiles/pkg/types"
)

var _ = Describe("TestRegistry", func() {
	var (
		fb  *fakeBackend
		lp  *loop.Loop
		reg *Registry
		evs *eventLog
	)

	BeforeEach(func() {
		fb = newFakeBackend()
		lp = loop.New()
		evs = &eventLog{}
		reg = NewRegistry(fb, lp, WithObserver(evs.observe))
	})

	AfterEach(func() {
		reg.Close()
	})

	Context("lookup", func() {
		It("should reuse live records", func() {
			a, err := reg.GetOrCreate("file:///data/a")
			Expect(err).Should(BeNil())
			b, err := reg.GetOrCreate("file:///data//a")
			Expect(err).Should(BeNil())
			Expect(b).Should(BeIdenticalTo(a))
			Expect(reg.Directory("file:///data").Files()).Should(HaveLen(1))
		})
		It("should reject bad uris", func() {
			_, err := reg.GetOrCreate("data/a")
			Expect(err).Should(Equal(types.ErrInvalidURI))
			Expect(reg.GetExisting("nope")).Should(BeNil())
		})
	})

	Context("references", func() {
		It("should forget records nobody holds", func() {
			f, _ := reg.GetOrCreate("file:///r/a")
			again := reg.GetExisting("file:///r/a")
			Expect(again).Should(BeIdenticalTo(f))
			again.Unref()
			Expect(reg.lookup("file:///r/a")).Should(BeIdenticalTo(f))

			f.Unref()
			Expect(reg.lookup("file:///r/a")).Should(BeNil())
			Expect(reg.ExistingDirectory("file:///r")).Should(BeNil())
		})
		It("should keep monitored records", func() {
			f, _ := reg.GetOrCreate("file:///r/m")
			f.MonitorAdd("client", types.AttrFilesystemInfo)
			f.Unref()
			pump(lp, func() bool { return f.refCount == 1 })
			Expect(reg.lookup("file:///r/m")).Should(BeIdenticalTo(f))

			f.MonitorRemove("client")
			Expect(reg.lookup("file:///r/m")).Should(BeNil())
		})
	})

	Context("rename bracket", func() {
		It("should never show two names", func() {
			f, _ := reg.GetOrCreate("file:///d/x")
			dir := f.Directory()
			old := dir.BeginFileNameChange(f)
			Expect(dir.Renaming(f)).Should(BeTrue())
			f.name = "y"
			Expect(dir.Lookup("x")).Should(BeIdenticalTo(f))
			Expect(dir.EndFileNameChange(f, old)).Should(BeNil())
			Expect(dir.Renaming(f)).Should(BeFalse())
			Expect(dir.Lookup("x")).Should(BeNil())
			Expect(dir.Lookup("y")).Should(BeIdenticalTo(f))
			Expect(dir.Len()).Should(Equal(1))
		})
		It("should retire the record it replaces", func() {
			f, _ := reg.GetOrCreate("file:///d/x")
			g, _ := reg.GetOrCreate("file:///d/z")
			Expect(f.setName("z")).Should(BeTrue())
			Expect(g.IsGone()).Should(BeTrue())
			Expect(reg.lookup("file:///d/z")).Should(BeIdenticalTo(f))
		})
	})

	Context("symlinks", func() {
		It("should tell links and links of links", func() {
			target, _ := reg.GetOrCreate("file:///data/t.txt")
			target.UpdateInfo(regularInfo("t.txt", 1, 1))
			l1, _ := reg.GetOrCreate("file:///data/l1")
			l1.UpdateInfo(symlinkInfo("l1", "t.txt"))
			l2, _ := reg.GetOrCreate("file:///other/l2")
			l2.UpdateInfo(symlinkInfo("l2", "/data/l1"))
			Expect(l1.SymlinkTargetURI()).Should(Equal("file:///data/t.txt"))

			evs.reset()
			target.emitChanged()
			Expect(evs.events).Should(Equal([]string{"changed:t.txt", "changed:l1", "changed:l2"}))
		})
		It("should stop at cycles", func() {
			a, _ := reg.GetOrCreate("file:///loop/a")
			a.UpdateInfo(symlinkInfo("a", "b"))
			b, _ := reg.GetOrCreate("file:///loop/b")
			b.UpdateInfo(symlinkInfo("b", "a"))

			evs.reset()
			a.emitChanged()
			Expect(evs.events).Should(Equal([]string{"changed:a", "changed:b"}))
		})
		It("should drop gone links", func() {
			l, _ := reg.GetOrCreate("file:///data/l")
			l.UpdateInfo(symlinkInfo("l", "t"))
			Expect(reg.SymlinkIndex().Lookup("file:///data/t")).Should(HaveLen(1))
			l.UpdateInfo(nil)
			Expect(reg.SymlinkIndex().Lookup("file:///data/t")).Should(BeEmpty())
		})
	})

	Context("change sink", func() {
		It("should mark removed and unmounted records gone", func() {
			f, _ := reg.GetOrCreate("file:///media/usb")
			reg.FilesRemoved([]changes.Removal{{URI: "file:///media/usb", Unmounted: true}})
			Expect(f.IsGone()).Should(BeTrue())
			Expect(f.IsUnmounted()).Should(BeTrue())
			Expect(evs.events).Should(ContainElements("gone:usb", "changed:usb"))
		})
		It("should retire everything below a removed directory", func() {
			d, _ := reg.GetOrCreate("file:///p/d")
			c, _ := reg.GetOrCreate("file:///p/d/c")
			reg.FilesRemoved([]changes.Removal{{URI: "file:///p/d"}})
			Expect(d.IsGone()).Should(BeTrue())
			Expect(c.IsGone()).Should(BeTrue())
			Expect(c.IsUnmounted()).Should(BeFalse())
		})
		It("should rename moved records", func() {
			f, _ := reg.GetOrCreate("file:///m/a")
			f.UpdateInfo(regularInfo("a", 1, 1))
			reg.FilesMoved([]changes.Pair{{From: "file:///m/a", To: "file:///m/b"}})
			Expect(f.Name()).Should(Equal("b"))
			Expect(reg.lookup("file:///m/b")).Should(BeIdenticalTo(f))
			Expect(f.Missing(types.AttrSize)).Should(Equal(types.AttrSize))
			Expect(evs.events).Should(ContainElement("changed:b"))
		})
		It("should re-parent moved directories", func() {
			d, _ := reg.GetOrCreate("file:///m/d")
			c, _ := reg.GetOrCreate("file:///m/d/c")
			reg.FilesMoved([]changes.Pair{{From: "file:///m/d", To: "file:///n/d2"}})
			Expect(d.URI()).Should(Equal("file:///n/d2"))
			Expect(c.URI()).Should(Equal("file:///n/d2/c"))
			Expect(reg.lookup("file:///n/d2/c")).Should(BeIdenticalTo(c))
			Expect(reg.lookup("file:///m/d")).Should(BeNil())
		})
		It("should invalidate changed records", func() {
			f, _ := reg.GetOrCreate("file:///c/a")
			f.UpdateInfo(regularInfo("a", 1, 1))
			evs.reset()
			reg.FilesChanged([]string{"file:///c/a", "file:///c/unknown"})
			Expect(f.Missing(types.AttrSize)).Should(Equal(types.AttrSize))
			Expect(evs.events).Should(Equal([]string{"changed:a"}))
		})
		It("should keep counts of changed directories", func() {
			d, _ := reg.GetOrCreate("file:///c/d")
			d.UpdateInfo(types.NewInfo().
				Set(types.InfoStandardName, "d").
				Set(types.InfoStandardType, string(types.DirectoryFileType)))
			d.deepCount = types.DeepCount{Status: types.DeepCountDone, Files: 3}
			d.thumbPath = "/thumbs/d.png"
			d.thumbnailUpToDate = true

			reg.FilesChanged([]string{"file:///c/d"})
			Expect(d.Missing(types.AttrInfo)).Should(Equal(types.AttrInfo))
			Expect(d.DeepCounts().Status).Should(Equal(types.DeepCountDone))
			Expect(d.Missing(types.AttrDeepCounts)).Should(BeZero())
			Expect(d.Missing(types.AttrThumbnail)).Should(BeZero())
		})
		It("should publish changes on the event bus", func() {
			f, _ := reg.GetOrCreate("file:///c/bus")
			f.UpdateInfo(regularInfo("bus", 1, 1))

			got := make(chan *types.FileEvent, 8)
			lid := events.Subscribe(events.FileActionsTopic(events.ActionTypeChanged), func(evt *types.FileEvent) {
				if evt.RefID == f.ID() {
					got <- evt
				}
			})
			defer events.Unsubscribe(lid)

			reg.FilesChanged([]string{"file:///c/bus"})
			var evt *types.FileEvent
			Eventually(got, time.Second*5).Should(Receive(&evt))
			Expect(evt.Data.URI).Should(Equal("file:///c/bus"))
			Expect(evt.Data.Gone).Should(BeFalse())
		})
		It("should announce files added to cached directories", func() {
			f, _ := reg.GetOrCreate("file:///c/a")
			reg.FilesAdded([]string{"file:///c/new", "file:///uncached/x"})
			Expect(evs.events).Should(ContainElement("changed:new"))
			Expect(evs.events).ShouldNot(ContainElement("changed:x"))
			Expect(f.IsGone()).Should(BeFalse())
		})
		It("should invalidate counts of the parent", func() {
			fb.put("file:///c", types.NewInfo().Set(types.InfoStandardType, string(types.DirectoryFileType)))
			parent, _ := reg.GetOrCreate("file:///c")
			fired := false
			parent.CallWhenReady(types.AttrDirectoryItemCount, func(f *File, data interface{}) { fired = true }, nil)
			pump(lp, func() bool { return fired })

			reg.FilesAdded([]string{"file:///c/new"})
			Expect(parent.Missing(types.AttrDirectoryItemCount)).Should(Equal(types.AttrDirectoryItemCount))
		})
		It("should run through the queue", func() {
			f, _ := reg.GetOrCreate("file:///q/a")
			q := changes.NewQueue()
			q.FileRemoved("file:///q/a")
			Expect(q.Consume(reg, true)).Should(BeNumerically(">", 0))
			Expect(f.IsGone()).Should(BeTrue())
		})
	})
})
