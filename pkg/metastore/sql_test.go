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

package metastore

import (
	"context"
	"path"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/basenana/nanafiles/config"
	"github.com/basenana/nanafiles/pkg/types"
)

var _ = Describe("TestMetadataStore", func() {
	var (
		store Meta
		ctx   = context.TODO()
	)

	BeforeEach(func() {
		var err error
		store, err = NewMetaStorage(MemoryMeta, config.Meta{})
		Expect(err).Should(BeNil())
	})
	AfterEach(func() {
		Expect(store.Close()).Should(BeNil())
	})

	Context("set and get metadata", func() {
		It("should keep single values and lists apart", func() {
			Expect(store.SetMetadata(ctx, "file:///a", "color", "red")).Should(BeNil())
			Expect(store.SetMetadataList(ctx, "file:///a", "tags", []string{"x", "y"})).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///a")
			Expect(err).Should(BeNil())
			Expect(got).Should(HaveLen(2))
			Expect(got["color"]).Should(Equal(types.MetadataValue{Value: "red"}))
			Expect(got["tags"]).Should(Equal(types.MetadataValue{List: []string{"x", "y"}, IsList: true}))
		})
		It("should overwrite an existing key", func() {
			Expect(store.SetMetadata(ctx, "file:///a", "color", "red")).Should(BeNil())
			Expect(store.SetMetadata(ctx, "file:///a", "color", "blue")).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///a")
			Expect(err).Should(BeNil())
			Expect(got["color"].Value).Should(Equal("blue"))
		})
		It("should return empty for unknown uri", func() {
			got, err := store.GetMetadata(ctx, "file:///none")
			Expect(err).Should(BeNil())
			Expect(got).Should(BeEmpty())
		})
		It("should remove a key", func() {
			Expect(store.SetMetadata(ctx, "file:///a", "color", "red")).Should(BeNil())
			Expect(store.RemoveMetadata(ctx, "file:///a", "color")).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///a")
			Expect(err).Should(BeNil())
			Expect(got).Should(BeEmpty())
		})
	})

	Context("copy move and remove", func() {
		BeforeEach(func() {
			Expect(store.SetMetadata(ctx, "file:///d", "color", "red")).Should(BeNil())
			Expect(store.SetMetadata(ctx, "file:///d/child", "color", "green")).Should(BeNil())
			Expect(store.SetMetadata(ctx, "file:///d2", "color", "blue")).Should(BeNil())
		})

		It("should copy a directory with its children", func() {
			Expect(store.CopyMetadata(ctx, "file:///d", "file:///e")).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///e/child")
			Expect(err).Should(BeNil())
			Expect(got["color"].Value).Should(Equal("green"))

			got, err = store.GetMetadata(ctx, "file:///d/child")
			Expect(err).Should(BeNil())
			Expect(got["color"].Value).Should(Equal("green"))
		})
		It("should move a directory and leave siblings sharing the prefix", func() {
			Expect(store.MoveMetadata(ctx, "file:///d", "file:///e")).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///d")
			Expect(err).Should(BeNil())
			Expect(got).Should(BeEmpty())

			got, err = store.GetMetadata(ctx, "file:///e")
			Expect(err).Should(BeNil())
			Expect(got["color"].Value).Should(Equal("red"))

			got, err = store.GetMetadata(ctx, "file:///d2")
			Expect(err).Should(BeNil())
			Expect(got["color"].Value).Should(Equal("blue"))
		})
		It("should replace metadata of the move target", func() {
			Expect(store.SetMetadata(ctx, "file:///e", "old", "1")).Should(BeNil())
			Expect(store.MoveMetadata(ctx, "file:///d", "file:///e")).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///e")
			Expect(err).Should(BeNil())
			Expect(got).ShouldNot(HaveKey("old"))
		})
		It("should remove all metadata below a uri", func() {
			Expect(store.RemoveAllMetadata(ctx, "file:///d")).Should(BeNil())

			got, err := store.GetMetadata(ctx, "file:///d/child")
			Expect(err).Should(BeNil())
			Expect(got).Should(BeEmpty())

			got, err = store.GetMetadata(ctx, "file:///d2")
			Expect(err).Should(BeNil())
			Expect(got).Should(HaveLen(1))
		})
	})

	Context("starred files", func() {
		It("should star once", func() {
			first, err := store.Star(ctx, "file:///a")
			Expect(err).Should(BeNil())
			second, err := store.Star(ctx, "file:///a")
			Expect(err).Should(BeNil())
			Expect(second.StarredAt).Should(Equal(first.StarredAt))

			list, err := store.ListStarred(ctx)
			Expect(err).Should(BeNil())
			Expect(list).Should(HaveLen(1))
		})
		It("should unstar", func() {
			_, err := store.Star(ctx, "file:///a")
			Expect(err).Should(BeNil())
			Expect(store.Unstar(ctx, "file:///a")).Should(BeNil())

			starred, err := store.IsStarred(ctx, "file:///a")
			Expect(err).Should(BeNil())
			Expect(starred).Should(BeFalse())
		})
		It("should move starred children", func() {
			_, err := store.Star(ctx, "file:///d/a")
			Expect(err).Should(BeNil())
			_, err = store.Star(ctx, "file:///other")
			Expect(err).Should(BeNil())

			Expect(store.MoveStarred(ctx, "file:///d", "file:///e")).Should(BeNil())

			starred, err := store.IsStarred(ctx, "file:///e/a")
			Expect(err).Should(BeNil())
			Expect(starred).Should(BeTrue())
			starred, err = store.IsStarred(ctx, "file:///d/a")
			Expect(err).Should(BeNil())
			Expect(starred).Should(BeFalse())
			starred, err = store.IsStarred(ctx, "file:///other")
			Expect(err).Should(BeNil())
			Expect(starred).Should(BeTrue())
		})
	})
})

var _ = Describe("TestSqliteFile", func() {
	It("should keep data across reopen", func() {
		ctx := context.TODO()
		meta := config.Meta{Type: SqliteMeta, Path: path.Join(workdir, "reopen.db")}

		store, err := NewMetaStorage(SqliteMeta, meta)
		Expect(err).Should(BeNil())
		Expect(store.SetMetadata(ctx, "file:///a", "k", "v")).Should(BeNil())
		Expect(store.Close()).Should(BeNil())

		store, err = NewMetaStorage(SqliteMeta, meta)
		Expect(err).Should(BeNil())
		defer store.Close()
		got, err := store.GetMetadata(ctx, "file:///a")
		Expect(err).Should(BeNil())
		Expect(got["k"].Value).Should(Equal("v"))
	})
	It("should reject unknown types", func() {
		_, err := NewMetaStorage("unknown", config.Meta{})
		Expect(err).ShouldNot(BeNil())
	})
})
