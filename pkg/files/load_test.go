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
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/basenana/nanafiles/pkg/loop"
	"github.com/basenana/nanafiles/pkg/types"
)

var _ = Describe("TestLoad", func() {
	var (
		fb     *fakeBackend
		reg    *Registry
		ctx    context.Context
		cancel context.CancelFunc
	)

	BeforeEach(func() {
		fb = newFakeBackend()
		reg = NewRegistry(fb, loop.New())
		ctx, cancel = context.WithCancel(context.Background())
		go reg.Run(ctx)
	})

	AfterEach(func() {
		cancel()
	})

	It("should return a resolved snapshot", func() {
		fb.put("file:///load/a", regularInfo("a", 42, 100))

		s, err := reg.Load(ctx, "file:///load/a", types.AttrInfo)
		Expect(err).Should(BeNil())
		Expect(s.Size).Should(Equal(int64(42)))
		Expect(s.Gone).Should(BeFalse())
		Expect(fb.queryCount("file:///load/a")).Should(Equal(1))
	})

	It("should report vanished files as gone", func() {
		s, err := reg.Load(ctx, "file:///load/missing", types.AttrInfo)
		Expect(err).Should(BeNil())
		Expect(s.Gone).Should(BeTrue())
	})

	It("should give up when the caller cancels", func() {
		fb.put("file:///load/slow", regularInfo("slow", 1, 1))
		gate := fb.gate("file:///load/slow")

		callCtx, callCancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer callCancel()
		_, err := reg.Load(callCtx, "file:///load/slow", types.AttrInfo)
		Expect(err).Should(Equal(types.ErrCancelled))

		close(gate)
		Eventually(func() bool {
			var live bool
			_ = reg.Loop().Call(ctx, func() {
				live = reg.lookup("file:///load/slow") != nil
			})
			return live
		}, time.Second).Should(BeFalse())
	})

	It("should invalidate cached records only", func() {
		Expect(reg.Invalidate(ctx, "file:///load/none", types.AttrInfo)).Should(Equal(types.ErrNotFound))
	})
})
