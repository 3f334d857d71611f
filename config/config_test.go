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

package config

import (
	"encoding/json"
	"os"
	"path"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("TestLoadConfig", func() {
	var workdir string

	BeforeEach(func() {
		var err error
		workdir, err = os.MkdirTemp(os.TempDir(), "ut-nanafiles-config-")
		Expect(err).Should(BeNil())
	})
	AfterEach(func() {
		FilePath = ""
		_ = os.RemoveAll(workdir)
	})

	It("should load and verify the default config", func() {
		cfg, err := DefaultConfig(workdir)
		Expect(err).Should(BeNil())
		cfg.Watch.Paths = []string{workdir}

		raw, err := json.Marshal(cfg)
		Expect(err).Should(BeNil())
		FilePath = path.Join(workdir, DefaultConfigBase)
		Expect(os.WriteFile(FilePath, raw, 0644)).Should(BeNil())

		loaded, err := NewConfigLoader().GetConfig()
		Expect(err).Should(BeNil())
		Expect(Verify(&loaded)).Should(BeNil())
		Expect(loaded.Meta.Type).Should(Equal(SqliteMeta))
		Expect(loaded.ConsumeInterval()).Should(Equal(DefaultConsumeInterval))
		Expect(loaded.OwnerExpire()).Should(Equal(10 * time.Minute))
	})

	It("should fail without a config path", func() {
		_, err := NewConfigLoader().GetConfig()
		Expect(err).ShouldNot(BeNil())
	})

	It("should fill defaults", func() {
		cfg := Config{}
		Expect(Verify(&cfg)).Should(BeNil())
		Expect(cfg.Meta.Type).Should(Equal(MemoryMeta))
		Expect(cfg.Queue.MaxChunk).Should(Equal(DefaultMaxChunk))
		Expect(cfg.FreeSpaceTTL()).Should(Equal(time.Second))
		Expect(cfg.RenameWindow()).Should(Equal(DefaultRenameWindow))
	})

	It("should reject bad sections", func() {
		Expect(Verify(&Config{Api: Api{Enable: true}})).ShouldNot(BeNil())
		Expect(Verify(&Config{Meta: Meta{Type: SqliteMeta}})).ShouldNot(BeNil())
		Expect(Verify(&Config{Meta: Meta{Type: "mysql"}})).ShouldNot(BeNil())
		Expect(Verify(&Config{Watch: Watch{Paths: []string{"relative"}}})).ShouldNot(BeNil())
	})
})

var _ = Describe("TestVersion", func() {
	AfterEach(func() {
		gitTag, gitCommit = "", ""
	})

	It("should parse tags", func() {
		gitTag, gitCommit = "v1.2.3-rc1", "abc"
		v := VersionInfo()
		Expect(v.Major).Should(Equal(1))
		Expect(v.Minor).Should(Equal(2))
		Expect(v.Patch).Should(Equal(3))
		Expect(v.Release).Should(Equal("rc1"))
		Expect(v.String()).Should(Equal("v1.2.3-rc1 (abc)"))
	})

	It("should tolerate an empty tag", func() {
		Expect(VersionInfo().Version()).Should(Equal("v0.0.0"))
	})
})
