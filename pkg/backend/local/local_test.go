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
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/basenana/nanafiles/pkg/changes"
	"github.com/basenana/nanafiles/pkg/types"
)

func pngChunk(kind string, body []byte) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.BigEndian, uint32(len(body)))
	buf.WriteString(kind)
	buf.Write(body)
	crc := crc32.NewIEEE()
	crc.Write([]byte(kind))
	crc.Write(body)
	_ = binary.Write(buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func fakePNG(texts map[string]string) []byte {
	buf := &bytes.Buffer{}
	buf.Write(pngSignature)
	buf.Write(pngChunk("IHDR", make([]byte, 13)))
	for k, v := range texts {
		buf.Write(pngChunk("tEXt", append(append([]byte(k), 0), []byte(v)...)))
	}
	buf.Write(pngChunk("IEND", nil))
	return buf.Bytes()
}

var _ = Describe("TestLocalBackend", func() {
	var (
		ctx  = context.TODO()
		l    *Local
		base string
	)

	BeforeEach(func() {
		var err error
		base, err = os.MkdirTemp(workdir, "case-")
		Expect(err).Should(BeNil())
		l = NewLocal(WithThumbnailDir(filepath.Join(base, ".thumbs")), WithProgressEvery(1))
	})

	Context("query info", func() {
		It("should describe a regular file", func() {
			p := filepath.Join(base, "note.txt")
			Expect(os.WriteFile(p, []byte("hello world"), 0o640)).Should(BeNil())

			info, err := l.QueryInfo(ctx, PathToURI(p))
			Expect(err).Should(BeNil())
			Expect(info.Name()).Should(Equal("note.txt"))
			Expect(info.FileType()).Should(Equal(types.RegularFileType))
			Expect(info.Int64(types.InfoStandardSize)).Should(Equal(int64(11)))
			Expect(info.Uint32(types.InfoUnixMode) & 0o777).Should(Equal(uint32(0o640)))
			Expect(info.String(types.InfoStandardFastContentType)).Should(Equal("text/plain"))
			Expect(info.String(types.InfoStandardContentType)).Should(Equal("text/plain"))
			Expect(info.Bool(types.InfoAccessCanRead)).Should(BeTrue())
			Expect(info.Bool(types.InfoStandardIsSymlink)).Should(BeFalse())
			Expect(info.Bool(types.InfoStandardIsHidden)).Should(BeFalse())
		})
		It("should follow symlinks", func() {
			target := filepath.Join(base, "target")
			Expect(os.Mkdir(target, 0o755)).Should(BeNil())
			link := filepath.Join(base, "link")
			Expect(os.Symlink("target", link)).Should(BeNil())

			info, err := l.QueryInfo(ctx, PathToURI(link))
			Expect(err).Should(BeNil())
			Expect(info.Bool(types.InfoStandardIsSymlink)).Should(BeTrue())
			Expect(info.String(types.InfoStandardSymlinkTarget)).Should(Equal("target"))
			Expect(info.FileType()).Should(Equal(types.DirectoryFileType))
		})
		It("should flag hidden and backup files", func() {
			for _, name := range []string{".hidden", "draft~"} {
				p := filepath.Join(base, name)
				Expect(os.WriteFile(p, nil, 0o644)).Should(BeNil())
				info, err := l.QueryInfo(ctx, PathToURI(p))
				Expect(err).Should(BeNil())
				Expect(info.Bool(types.InfoStandardIsHidden) || info.Bool(types.InfoStandardIsBackup)).Should(BeTrue())
			}
		})
		It("should report vanished files", func() {
			_, err := l.QueryInfo(ctx, PathToURI(filepath.Join(base, "nope")))
			Expect(err).Should(Equal(types.ErrNotFound))
		})
		It("should reject foreign uris", func() {
			_, err := l.QueryInfo(ctx, "sftp://host/x")
			Expect(err).Should(Equal(types.ErrInvalidURI))
		})
		It("should find cached thumbnails", func() {
			p := filepath.Join(base, "photo.png")
			Expect(os.WriteFile(p, fakePNG(nil), 0o644)).Should(BeNil())
			thumbDir := filepath.Join(base, ".thumbs", "normal")
			Expect(os.MkdirAll(thumbDir, 0o755)).Should(BeNil())
			thumb := filepath.Join(thumbDir, thumbnailName(PathToURI(p)))
			Expect(os.WriteFile(thumb, fakePNG(map[string]string{thumbMTimeKey: "1234"}), 0o644)).Should(BeNil())

			info, err := l.QueryInfo(ctx, PathToURI(p))
			Expect(err).Should(BeNil())
			Expect(info.String(types.InfoThumbnailPath)).Should(Equal(thumb))

			loaded, err := l.LoadThumbnail(ctx, thumb)
			Expect(err).Should(BeNil())
			Expect(loaded.MTime).Should(Equal(int64(1234)))
		})
	})

	Context("directories", func() {
		BeforeEach(func() {
			Expect(os.MkdirAll(filepath.Join(base, "tree", "sub"), 0o755)).Should(BeNil())
			Expect(os.WriteFile(filepath.Join(base, "tree", "a.txt"), []byte("12345"), 0o644)).Should(BeNil())
			Expect(os.WriteFile(filepath.Join(base, "tree", "sub", "b.json"), []byte("{}"), 0o644)).Should(BeNil())
		})
		It("should count children", func() {
			count, err := l.CountChildren(ctx, PathToURI(filepath.Join(base, "tree")))
			Expect(err).Should(BeNil())
			Expect(count).Should(Equal(2))
		})
		It("should list child mime types", func() {
			mimes, err := l.ListChildMimeTypes(ctx, PathToURI(filepath.Join(base, "tree")))
			Expect(err).Should(BeNil())
			Expect(mimes).Should(Equal([]string{directoryMimeType, "text/plain"}))
		})
		It("should count deeply with progress", func() {
			reports := 0
			dc, err := l.DeepCount(ctx, PathToURI(filepath.Join(base, "tree")), func(types.DeepCount) { reports++ })
			Expect(err).Should(BeNil())
			Expect(dc.Status).Should(Equal(types.DeepCountDone))
			Expect(dc.Directories).Should(Equal(int64(1)))
			Expect(dc.Files).Should(Equal(int64(2)))
			Expect(dc.TotalSize).Should(Equal(int64(7)))
			Expect(reports).Should(Equal(3))
		})
		It("should stop deep counts on cancel", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := l.DeepCount(cctx, PathToURI(filepath.Join(base, "tree")), nil)
			Expect(err).Should(Equal(context.Canceled))
		})
		It("should query the filesystem", func() {
			fsInfo, err := l.QueryFilesystemInfo(ctx, PathToURI(base))
			Expect(err).Should(BeNil())
			Expect(fsInfo.Size).Should(BeNumerically(">", 0))
			Expect(fsInfo.QueriedAt.IsZero()).Should(BeFalse())
		})
	})

	Context("mutations", func() {
		It("should rename", func() {
			p := filepath.Join(base, "old.txt")
			Expect(os.WriteFile(p, nil, 0o644)).Should(BeNil())
			newURI, err := l.Rename(ctx, PathToURI(p), "new.txt")
			Expect(err).Should(BeNil())
			Expect(newURI).Should(Equal(PathToURI(filepath.Join(base, "new.txt"))))
			_, err = os.Stat(filepath.Join(base, "new.txt"))
			Expect(err).Should(BeNil())
		})
		It("should not overwrite on rename", func() {
			Expect(os.WriteFile(filepath.Join(base, "x"), nil, 0o644)).Should(BeNil())
			Expect(os.WriteFile(filepath.Join(base, "y"), nil, 0o644)).Should(BeNil())
			_, err := l.Rename(ctx, PathToURI(filepath.Join(base, "x")), "y")
			Expect(err).Should(Equal(types.ErrIsExist))
		})
		It("should chmod", func() {
			p := filepath.Join(base, "mode")
			Expect(os.WriteFile(p, nil, 0o644)).Should(BeNil())
			Expect(l.SetPermissions(ctx, PathToURI(p), 0o600)).Should(BeNil())
			fi, err := os.Stat(p)
			Expect(err).Should(BeNil())
			Expect(fi.Mode().Perm()).Should(Equal(os.FileMode(0o600)))
		})
	})

	Context("monitor", func() {
		It("should queue filesystem events", func() {
			q := changes.NewQueue()
			m, err := NewMonitor(q, 20*time.Millisecond)
			Expect(err).Should(BeNil())
			Expect(m.Watch(PathToURI(base))).Should(BeNil())

			mctx, cancel := context.WithCancel(ctx)
			defer cancel()
			go m.Run(mctx)

			Expect(os.WriteFile(filepath.Join(base, "created"), []byte("x"), 0o644)).Should(BeNil())
			Eventually(q.Len, time.Second*5).Should(BeNumerically(">", 0))

			Expect(m.WatchList()).Should(ContainElement(PathToURI(base)))
			Expect(m.Unwatch(PathToURI(base))).Should(BeNil())
			Expect(m.WatchList()).Should(BeEmpty())
		})
	})
})
