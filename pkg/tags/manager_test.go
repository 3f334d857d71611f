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
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/basenana/nanafiles/config"
	"github.com/basenana/nanafiles/pkg/backend"
	"github.com/basenana/nanafiles/pkg/metastore"
	"github.com/basenana/nanafiles/pkg/types"
)

var _ = Describe("TestStarredManager", func() {
	var (
		ctx     = context.TODO()
		mgrCtx  context.Context
		mgrCanF context.CancelFunc
		store   metastore.Meta
		mgr     *Manager
		changed []string
	)

	BeforeEach(func() {
		var err error
		store, err = metastore.NewMetaStorage(metastore.MemoryMeta, config.Meta{})
		Expect(err).Should(BeNil())
		changed = nil
		mgrCtx, mgrCanF = context.WithCancel(ctx)
		mgr, err = NewManager(mgrCtx, store, WithStarredChanged(func(uri string) {
			changed = append(changed, uri)
		}))
		Expect(err).Should(BeNil())
	})
	AfterEach(func() {
		mgrCanF()
		Expect(store.Close()).Should(BeNil())
	})

	It("should star and unstar", func() {
		Expect(mgr.Star(ctx, "file:///a")).Should(BeNil())
		Expect(mgr.Star(ctx, "file:///a")).Should(BeNil())
		Expect(mgr.IsStarred("file:///a")).Should(BeTrue())
		Expect(changed).Should(Equal([]string{"file:///a"}))

		Expect(mgr.Unstar(ctx, "file:///a")).Should(BeNil())
		Expect(mgr.IsStarred("file:///a")).Should(BeFalse())
		Expect(changed).Should(Equal([]string{"file:///a", "file:///a"}))
	})

	It("should load the persisted set", func() {
		Expect(mgr.Star(ctx, "file:///a")).Should(BeNil())
		Expect(mgr.Star(ctx, "file:///b")).Should(BeNil())

		reloaded, err := NewManager(ctx, store)
		Expect(err).Should(BeNil())
		Expect(reloaded.List()).Should(HaveLen(2))
		Expect(reloaded.List()[0].URI).Should(Equal("file:///a"))
	})

	It("should follow moves of directories", func() {
		Expect(mgr.Star(ctx, "file:///d/x")).Should(BeNil())
		Expect(mgr.Star(ctx, "file:///dx")).Should(BeNil())
		changed = nil

		mgr.UpdateMovedURIs("file:///d", "file:///e")
		Expect(mgr.IsStarred("file:///e/x")).Should(BeTrue())
		Expect(mgr.IsStarred("file:///d/x")).Should(BeFalse())
		Expect(mgr.IsStarred("file:///dx")).Should(BeTrue())
		Expect(changed).Should(ConsistOf("file:///d/x", "file:///e/x"))

		Eventually(func() bool {
			starred, err := store.IsStarred(ctx, "file:///e/x")
			return err == nil && starred
		}, time.Second*5).Should(BeTrue())
	})

	It("should persist consecutive moves in order", func() {
		Expect(mgr.Star(ctx, "file:///m/a")).Should(BeNil())

		mgr.UpdateMovedURIs("file:///m/a", "file:///m/b")
		mgr.UpdateMovedURIs("file:///m/b", "file:///m/c")
		Expect(mgr.IsStarred("file:///m/c")).Should(BeTrue())

		Eventually(func() bool {
			starred, err := store.IsStarred(ctx, "file:///m/c")
			return err == nil && starred
		}, time.Second*5).Should(BeTrue())
		for _, uri := range []string{"file:///m/a", "file:///m/b"} {
			starred, err := store.IsStarred(ctx, uri)
			Expect(err).Should(BeNil())
			Expect(starred).Should(BeFalse())
		}
	})

	It("should report the starred emblem", func() {
		Expect(mgr.Star(ctx, "file:///a")).Should(BeNil())

		info, err := mgr.UpdateFileInfo(ctx, backend.FileView{URI: "file:///a"})
		Expect(err).Should(BeNil())
		Expect(info.Emblems).Should(Equal([]string{types.EmblemStarred}))

		info, err = mgr.UpdateFileInfo(ctx, backend.FileView{URI: "file:///b"})
		Expect(err).Should(BeNil())
		Expect(info.Emblems).Should(BeEmpty())
	})
})
