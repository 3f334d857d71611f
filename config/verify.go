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
	"fmt"
	"os"
	"path/filepath"
)

type verifier func(config *Config) error

var verifiers = []verifier{
	setDefaultValue,
	checkApiConfig,
	checkWatchConfig,
	checkMetaConfig,
	checkQueueConfig,
	checkFetchConfig,
}

func setDefaultValue(config *Config) error {
	if config.Queue.MaxChunk == 0 {
		config.Queue.MaxChunk = DefaultMaxChunk
	}
	if config.Fetch.Parallel == 0 {
		config.Fetch.Parallel = DefaultParallel
	}
	if config.Meta.Type == "" {
		config.Meta.Type = MemoryMeta
	}
	return nil
}

func checkApiConfig(config *Config) error {
	aCfg := config.Api
	if !aCfg.Enable {
		return nil
	}
	if aCfg.Host == "" || aCfg.Port == 0 {
		return fmt.Errorf("api.host or api.port not config")
	}
	return nil
}

func checkWatchConfig(config *Config) error {
	for i, p := range config.Watch.Paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("watch.paths[%d]: %s is not absolute", i, p)
		}
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("watch.paths[%d]: %s", i, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("watch.paths[%d]: %s is not a directory", i, p)
		}
	}
	if config.Watch.RenameWindowMS < 0 {
		return fmt.Errorf("watch.rename_window_ms is negative")
	}
	return nil
}

func checkMetaConfig(config *Config) error {
	m := config.Meta
	switch m.Type {
	case MemoryMeta:
		return nil
	case SqliteMeta:
		if m.Path == "" {
			return fmt.Errorf("path for sqlite db file is empty")
		}
		return nil
	case PostgresMeta:
		if m.DSN == "" {
			return fmt.Errorf("db dsn is empty")
		}
		return nil
	default:
		return fmt.Errorf("unknown meta type %s", m.Type)
	}
}

func checkQueueConfig(config *Config) error {
	if config.Queue.MaxChunk < 0 {
		return fmt.Errorf("queue.max_chunk is negative")
	}
	if config.Queue.ConsumeIntervalMS < 0 {
		return fmt.Errorf("queue.consume_interval_ms is negative")
	}
	return nil
}

func checkFetchConfig(config *Config) error {
	if config.Fetch.Parallel < 0 {
		return fmt.Errorf("fetch.parallel is negative")
	}
	if config.Fetch.DeepCountProgress < 0 {
		config.Fetch.DeepCountProgress = 0
	}
	return nil
}

func Verify(cfg *Config) error {
	for _, f := range verifiers {
		if err := f(cfg); err != nil {
			return err
		}
	}
	return nil
}
