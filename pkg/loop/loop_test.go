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

package loop

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TestLoop", func() {
	Context("run pending tasks", func() {
		It("should run in post order including nested posts", func() {
			l := New()
			var order []int
			l.Post(func() {
				order = append(order, 1)
				l.Post(func() { order = append(order, 3) })
			})
			l.Post(func() { order = append(order, 2) })

			Expect(l.RunPending()).Should(Equal(3))
			Expect(order).Should(Equal([]int{1, 2, 3}))
		})
		It("should survive a panicking task", func() {
			l := New()
			ran := false
			l.Post(func() { panic("boom") })
			l.Post(func() { ran = true })
			l.RunPending()
			Expect(ran).Should(BeTrue())
		})
	})

	Context("run in background", func() {
		It("should serve calls until stopped", func() {
			l := New()
			ctx, canF := context.WithCancel(context.TODO())
			stopped := make(chan struct{})
			go func() {
				l.Run(ctx)
				close(stopped)
			}()

			value := 0
			Expect(l.Call(context.TODO(), func() { value = 42 })).Should(BeNil())
			Expect(value).Should(Equal(42))

			canF()
			Eventually(stopped, time.Second).Should(BeClosed())
		})
	})
})
