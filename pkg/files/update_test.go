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
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/basenana/nanafiles/pkg/loop"
	"github.com/basenana/nanafiles/pkg/types"
)

var _ = Describe("TestUpdateInfo", func() {
	var (
		fb  *fakeBackend
		reg *Registry
		evs *eventLog
		f   *File
	)

	BeforeEach(func() {
		var err error
		fb = newFakeBackend()
		evs = &eventLog{}
		reg = NewRegistry(fb, loop.New(), WithObserver(evs.observe))
		f, err = reg.GetOrCreate("file:///data/a.txt")
		Expect(err).Should(BeNil())
	})

	AfterEach(func() {
		reg.Close()
	})

	Context("fresh record", func() {
		It("should fail open", func() {
			Expect(f.Size()).Should(Equal(int64(-1)))
			Expect(f.UID()).Should(Equal(int64(-1)))
			caps := f.Capabilities()
			Expect(caps.CanRead).Should(BeTrue())
			Expect(caps.CanWrite).Should(BeTrue())
			Expect(caps.CanRename).Should(BeTrue())
			Expect(caps.CanTrash).Should(BeFalse())
			Expect(caps.CanEject).Should(BeFalse())
			Expect(caps.StartStopType).Should(Equal(types.StartStopUnknown))
			Expect(f.DisplayName()).Should(Equal("a.txt"))
			Expect(f.Missing(types.AttrSize)).Should(Equal(types.AttrSize))
		})
	})

	Context("merge info", func() {
		It("should report changes only once", func() {
			Expect(f.UpdateInfo(regularInfo("a.txt", 10, 100))).Should(BeTrue())
			Expect(f.UpdateInfo(regularInfo("a.txt", 10, 100))).Should(BeFalse())
			Expect(f.UpdateInfo(regularInfo("a.txt", 11, 100))).Should(BeTrue())

			Expect(f.Size()).Should(Equal(int64(11)))
			Expect(f.Owner()).Should(Equal("1000"))
			Expect(f.MimeType()).Should(Equal("text/plain"))
			perm, ok := f.Permissions()
			Expect(ok).Should(BeTrue())
			Expect(perm).Should(Equal(uint32(0o644)))
			Expect(f.ModifiedTime().Unix()).Should(Equal(int64(100)))
		})
		It("should track which fields are known", func() {
			f.UpdateInfo(regularInfo("a.txt", 10, 100))
			Expect(f.Missing(types.AttrSize | types.AttrMimeType)).Should(Equal(types.Attributes(0)))
			Expect(f.Missing(types.AttrInfo)).Should(Equal(types.AttrAccessTime | types.AttrSymlinkTarget))
		})
		It("should fall back to the fast content type", func() {
			info := regularInfo("a.txt", 1, 1)
			info.Remove(types.InfoStandardContentType)
			info.Set(types.InfoStandardFastContentType, "application/octet-stream")
			f.UpdateInfo(info)
			Expect(f.MimeType()).Should(Equal("application/octet-stream"))
		})
		It("should merge capabilities", func() {
			f.UpdateInfo(regularInfo("a.txt", 1, 1).
				Set(types.InfoAccessCanWrite, false).
				Set(types.InfoMountableCanEject, true).
				Set(types.InfoMountableStartStopType, string(types.StartStopNetwork)))
			caps := f.Capabilities()
			Expect(caps.CanWrite).Should(BeFalse())
			Expect(caps.CanRead).Should(BeTrue())
			Expect(caps.CanEject).Should(BeTrue())
			Expect(caps.StartStopType).Should(Equal(types.StartStopNetwork))
		})
		It("should replace metadata", func() {
			Expect(f.UpdateInfo(regularInfo("a.txt", 1, 1).
				Set(types.MetadataKey("emblems"), []string{"important"}).
				Set(types.MetadataKey("icon-scale"), "2"))).Should(BeTrue())
			Expect(f.GetMetadataList("emblems")).Should(Equal([]string{"important"}))
			Expect(f.GetMetadata("icon-scale", "1")).Should(Equal("2"))
			Expect(f.GetMetadata("missing", "1")).Should(Equal("1"))

			Expect(f.UpdateInfo(regularInfo("a.txt", 1, 1))).Should(BeTrue())
			Expect(f.MetadataKeys()).Should(BeEmpty())
		})
		It("should resolve the activation uri of shortcuts", func() {
			f.UpdateInfo(types.NewInfo().
				Set(types.InfoStandardType, string(types.ShortcutFileType)).
				Set(types.InfoStandardTargetURI, "sftp://host/home"))
			Expect(f.ActivationURI()).Should(Equal("sftp://host/home"))

			f.UpdateInfo(regularInfo("a.txt", 1, 1))
			Expect(f.ActivationURI()).Should(Equal("file:///data/a.txt"))
		})
	})

	Context("names", func() {
		It("should keep a custom display name", func() {
			f.UpdateInfo(regularInfo("a.txt", 1, 1).Set(types.InfoStandardDisplayName, "A"))
			Expect(f.DisplayName()).Should(Equal("A"))

			Expect(f.SetCustomDisplayName("Custom")).Should(BeTrue())
			f.UpdateInfo(regularInfo("a.txt", 1, 1).Set(types.InfoStandardDisplayName, "B"))
			Expect(f.DisplayName()).Should(Equal("Custom"))

			f.ClearCustomDisplayName()
			Expect(f.DisplayName()).Should(Equal("a.txt"))
			Expect(f.Missing(types.AttrInfo)).Should(Equal(types.AttrInfo))
		})
		It("should leave the name alone unless asked", func() {
			f.UpdateInfo(regularInfo("other.txt", 1, 1))
			Expect(f.Name()).Should(Equal("a.txt"))
		})
		It("should move the record inside its directory", func() {
			Expect(f.UpdateInfoAndName(regularInfo("b.txt", 1, 1))).Should(BeTrue())
			Expect(f.Name()).Should(Equal("b.txt"))
			Expect(f.URI()).Should(Equal("file:///data/b.txt"))
			Expect(reg.lookup("file:///data/b.txt")).Should(BeIdenticalTo(f))
			Expect(reg.lookup("file:///data/a.txt")).Should(BeNil())
		})
	})

	Context("gone", func() {
		It("should retire the record", func() {
			f.UpdateInfo(regularInfo("a.txt", 1, 1))
			Expect(f.UpdateInfo(nil)).Should(BeTrue())
			Expect(f.IsGone()).Should(BeTrue())
			Expect(reg.lookup("file:///data/a.txt")).Should(BeNil())
			Expect(evs.events).Should(ContainElement("gone:a.txt"))

			Expect(f.UpdateInfo(regularInfo("a.txt", 2, 1))).Should(BeFalse())
			Expect(f.Size()).Should(Equal(int64(1)))
			Expect(f.Missing(types.AttrAll)).Should(Equal(types.Attributes(0)))
			Expect(f.UpdateInfo(nil)).Should(BeFalse())
		})
		It("should hand out a new record for the same uri", func() {
			f.UpdateInfo(nil)
			g, err := reg.GetOrCreate("file:///data/a.txt")
			Expect(err).Should(BeNil())
			Expect(g).ShouldNot(BeIdenticalTo(f))
			Expect(g.IsGone()).Should(BeFalse())
		})
	})

	Context("thumbnails", func() {
		BeforeEach(func() {
			f.UpdateInfo(regularInfo("a.txt", 1, 100).Set(types.InfoThumbnailPath, "/thumbs/a.png"))
		})
		It("should refuse thumbnails of older versions", func() {
			Expect(f.SetThumbnail(&types.Thumbnail{Path: "/thumbs/a.png", MTime: 99})).Should(BeFalse())
			Expect(f.Thumbnail()).Should(BeNil())
			Expect(f.SetThumbnail(&types.Thumbnail{Path: "/thumbs/a.png", MTime: 100})).Should(BeTrue())
			Expect(f.Thumbnail()).ShouldNot(BeNil())
			Expect(f.SetThumbnail(&types.Thumbnail{Path: "/thumbs/b.png"})).Should(BeTrue())
			Expect(f.Thumbnail().Path).Should(Equal("/thumbs/b.png"))
		})
		It("should go stale when the file changes", func() {
			Expect(f.SetThumbnail(&types.Thumbnail{Path: "/thumbs/a.png", MTime: 100})).Should(BeTrue())
			Expect(f.Missing(types.AttrThumbnail)).Should(Equal(types.Attributes(0)))

			Expect(f.UpdateInfo(regularInfo("a.txt", 1, 200).Set(types.InfoThumbnailPath, "/thumbs/a.png"))).Should(BeTrue())
			Expect(f.Missing(types.AttrThumbnail)).Should(Equal(types.AttrThumbnail))
			Expect(f.Thumbnail()).ShouldNot(BeNil())
		})
	})
})
