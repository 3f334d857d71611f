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

package utils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TestParallelLimiter", func() {
	It("should block above the limit", func() {
		l := NewParallelLimiter(2)
		Expect(l.Acquire(context.TODO())).Should(BeNil())
		Expect(l.Acquire(context.TODO())).Should(BeNil())
		Expect(l.Running()).Should(Equal(2))

		ctx, canF := context.WithTimeout(context.TODO(), time.Millisecond*20)
		defer canF()
		Expect(l.Acquire(ctx)).Should(Equal(context.DeadlineExceeded))

		l.Release()
		Expect(l.Acquire(context.TODO())).Should(BeNil())
	})
	It("should allow one when misconfigured", func() {
		Expect(cap(NewParallelLimiter(0).q)).Should(Equal(1))
	})
})

var _ = Describe("TestRecover", func() {
	It("should turn panics into errors", func() {
		err := func() (err error) {
			defer func() {
				err = Recover(recover())
			}()
			panic("boom")
		}()
		Expect(err).ShouldNot(BeNil())
		Expect(err.Error()).Should(ContainSubstring("boom"))
	})
	It("should be quiet without a panic", func() {
		Expect(Recover(nil)).Should(BeNil())
	})
})

var _ = Describe("TestStructHash", func() {
	type sample struct {
		Name  string
		Attrs map[string]string
		List  *[]string
	}

	It("should hash by content", func() {
		l1, l2 := []string{"a"}, []string{"a"}
		a := sample{Name: "x", Attrs: map[string]string{"k1": "v1", "k2": "v2"}, List: &l1}
		b := sample{Name: "x", Attrs: map[string]string{"k2": "v2", "k1": "v1"}, List: &l2}
		Expect(ComputeStructHash(a)).Should(Equal(ComputeStructHash(b)))

		b.Name = "y"
		Expect(ComputeStructHash(a)).ShouldNot(Equal(ComputeStructHash(b)))
	})
	It("should dump without addresses", func() {
		Expect(Dump(&sample{Name: "x"})).Should(ContainSubstring("Name: (string) (len=1) \"x\""))
	})
})

var _ = Describe("TestGenerateNewID", func() {
	It("should be unique and ordered", func() {
		first := GenerateNewID()
		second := GenerateNewID()
		Expect(second).Should(BeNumerically(">", first))
	})
})
