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
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TestIndexRegister", func() {
	var (
		idx    *Index
		target = &fakeMember{id: 1, uri: "file:///data/target"}
		linkA  = &fakeMember{id: 2, uri: "file:///data/a", target: "file:///data/target"}
		linkB  = &fakeMember{id: 3, uri: "file:///data/b", target: "file:///data/target"}
		plain  = &fakeMember{id: 4, uri: "file:///data/plain"}
	)

	BeforeEach(func() {
		idx = NewIndex()
	})

	Context("register links", func() {
		It("should index by target", func() {
			Expect(idx.Register(linkA)).Should(BeTrue())
			Expect(idx.Register(linkB)).Should(BeTrue())
			Expect(idx.Lookup(target.URI())).Should(HaveLen(2))
		})
		It("should ignore members without target", func() {
			Expect(idx.Register(plain)).Should(BeFalse())
			Expect(idx.Len()).Should(Equal(0))
		})
		It("should ignore duplicate registration", func() {
			Expect(idx.Register(linkA)).Should(BeTrue())
			Expect(idx.Register(linkA)).Should(BeFalse())
			Expect(idx.Lookup(target.URI())).Should(HaveLen(1))
		})
	})

	Context("unregister links", func() {
		It("should prune empty entries", func() {
			idx.Register(linkA)
			idx.Unregister(linkA)
			Expect(idx.Lookup(target.URI())).Should(BeNil())
			Expect(idx.Len()).Should(Equal(0))
		})
		It("should remove under the registered target after the target changed", func() {
			link := &fakeMember{id: 10, uri: "file:///data/moving", target: "file:///data/old"}
			idx.Register(link)
			link.target = "file:///data/new"
			idx.Unregister(link)
			Expect(idx.Lookup("file:///data/old")).Should(BeNil())
			Expect(idx.Len()).Should(Equal(0))
		})
		It("should be a no-op for unknown members", func() {
			idx.Unregister(plain)
			Expect(idx.Len()).Should(Equal(0))
		})
	})
})

var _ = Describe("TestIndexNotify", func() {
	var idx *Index

	BeforeEach(func() {
		idx = NewIndex()
	})

	It("should notify every link of the target", func() {
		target := &fakeMember{id: 1, uri: "file:///t"}
		idx.Register(&fakeMember{id: 2, uri: "file:///l1", target: "file:///t"})
		idx.Register(&fakeMember{id: 3, uri: "file:///l2", target: "file:///t"})

		var got []int64
		n := idx.NotifyTargetChanged(target, func(link Member) { got = append(got, link.ID()) })
		Expect(n).Should(Equal(2))
		Expect(got).Should(ConsistOf(int64(2), int64(3)))
	})

	It("should follow chains of links", func() {
		target := &fakeMember{id: 1, uri: "file:///t"}
		idx.Register(&fakeMember{id: 2, uri: "file:///l1", target: "file:///t"})
		idx.Register(&fakeMember{id: 3, uri: "file:///l2", target: "file:///l1"})

		var got []int64
		idx.NotifyTargetChanged(target, func(link Member) { got = append(got, link.ID()) })
		Expect(got).Should(Equal([]int64{2, 3}))
	})

	It("should not notify a link to itself", func() {
		self := &fakeMember{id: 1, uri: "file:///self", target: "file:///self"}
		idx.Register(self)

		calls := 0
		n := idx.NotifyTargetChanged(self, func(link Member) { calls += 1 })
		Expect(n).Should(Equal(0))
		Expect(calls).Should(Equal(0))
	})

	It("should stop on mutual and longer cycles", func() {
		a := &fakeMember{id: 1, uri: "file:///a", target: "file:///c"}
		b := &fakeMember{id: 2, uri: "file:///b", target: "file:///a"}
		c := &fakeMember{id: 3, uri: "file:///c", target: "file:///b"}
		idx.Register(a)
		idx.Register(b)
		idx.Register(c)

		var got []int64
		idx.NotifyTargetChanged(a, func(link Member) { got = append(got, link.ID()) })
		Expect(got).Should(Equal([]int64{2, 3}))
	})
})
