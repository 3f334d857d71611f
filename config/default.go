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
	"time"
)

const (
	DefaultConsumeInterval = 500 * time.Millisecond
	DefaultMaxChunk        = 20
	DefaultRenameWindow    = 200 * time.Millisecond
	DefaultFreeSpaceTTL    = time.Second
	DefaultParallel        = 8
)

func DefaultConfig(workdir string) (Config, error) {
	cfg := Config{
		Api: Api{
			Enable: true,
			Host:   "127.0.0.1",
			Port:   17096,
		},
		Meta: Meta{
			Type: SqliteMeta,
			Path: fmt.Sprintf("%s/nanafiles.db", workdir),
		},
		Cache: Cache{
			OwnerSize:      1024,
			OwnerExpireSec: 600,
			FreeSpaceTTLMS: int(DefaultFreeSpaceTTL / time.Millisecond),
		},
		Queue: Queue{
			ConsumeIntervalMS: int(DefaultConsumeInterval / time.Millisecond),
			MaxChunk:          DefaultMaxChunk,
		},
		Fetch: Fetch{
			Parallel:     DefaultParallel,
			SniffContent: true,
		},
		Debug: false,
	}

	if home, err := os.UserHomeDir(); err == nil {
		cfg.Watch.Paths = []string{home}
	}

	if err := os.MkdirAll(workdir, 0755); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) ConsumeInterval() time.Duration {
	if c.Queue.ConsumeIntervalMS <= 0 {
		return DefaultConsumeInterval
	}
	return time.Duration(c.Queue.ConsumeIntervalMS) * time.Millisecond
}

func (c Config) RenameWindow() time.Duration {
	if c.Watch.RenameWindowMS <= 0 {
		return DefaultRenameWindow
	}
	return time.Duration(c.Watch.RenameWindowMS) * time.Millisecond
}

func (c Config) FreeSpaceTTL() time.Duration {
	if c.Cache.FreeSpaceTTLMS <= 0 {
		return DefaultFreeSpaceTTL
	}
	return time.Duration(c.Cache.FreeSpaceTTLMS) * time.Millisecond
}

func (c Config) OwnerExpire() time.Duration {
	return time.Duration(c.Cache.OwnerExpireSec) * time.Second
}
