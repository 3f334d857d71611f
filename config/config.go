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

type Config struct {
	Api       Api       `json:"api"`
	Watch     Watch     `json:"watch"`
	Meta      Meta      `json:"meta"`
	Cache     Cache     `json:"cache"`
	Queue     Queue     `json:"queue"`
	Fetch     Fetch     `json:"fetch"`
	Thumbnail Thumbnail `json:"thumbnail"`

	SentryDSN string `json:"sentry_dsn,omitempty"`
	Debug     bool   `json:"debug,omitempty"`
}

type Api struct {
	Enable bool   `json:"enable"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Pprof  bool   `json:"pprof"`
}

// Watch lists the local directories fed into the change queue.
type Watch struct {
	Paths          []string `json:"paths,omitempty"`
	RenameWindowMS int      `json:"rename_window_ms,omitempty"`
}

type Meta struct {
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
	DSN  string `json:"dsn,omitempty"`
}

type Cache struct {
	OwnerSize      int `json:"owner_size"`
	OwnerExpireSec int `json:"owner_expire_sec"`
	FreeSpaceTTLMS int `json:"free_space_ttl_ms,omitempty"`
}

type Queue struct {
	ConsumeIntervalMS int  `json:"consume_interval_ms"`
	MaxChunk          int  `json:"max_chunk"`
	ConsumeAll        bool `json:"consume_all,omitempty"`
}

type Fetch struct {
	Parallel          int  `json:"parallel"`
	DeepCountProgress int  `json:"deep_count_progress,omitempty"`
	SniffContent      bool `json:"sniff_content"`
}

type Thumbnail struct {
	Dir string `json:"dir,omitempty"`
}
