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

package types

import (
	"reflect"
	"time"
)

type FileType string

const (
	UnknownFileType   FileType = ""
	RegularFileType   FileType = "regular"
	DirectoryFileType FileType = "directory"
	SymlinkFileType   FileType = "symlink"
	SpecialFileType   FileType = "special"
	ShortcutFileType  FileType = "shortcut"
	MountableFileType FileType = "mountable"
)

type StartStopType string

const (
	StartStopUnknown   StartStopType = "unknown"
	StartStopShutdown  StartStopType = "shutdown"
	StartStopNetwork   StartStopType = "network"
	StartStopMultiDisk StartStopType = "multidisk"
	StartStopPassword  StartStopType = "password"
)

type DeepCountStatus int

const (
	DeepCountNotStarted DeepCountStatus = iota
	DeepCountInProgress
	DeepCountDone
)

func (s DeepCountStatus) String() string {
	switch s {
	case DeepCountInProgress:
		return "in_progress"
	case DeepCountDone:
		return "done"
	default:
		return "not_started"
	}
}

type DeepCount struct {
	Status      DeepCountStatus `json:"status"`
	Directories int64           `json:"directories"`
	Files       int64           `json:"files"`
	Unreadable  int64           `json:"unreadable"`
	TotalSize   int64           `json:"total_size"`
}

type FilesystemInfo struct {
	Type      string    `json:"type"`
	ReadOnly  bool      `json:"read_only"`
	Size      uint64    `json:"size"`
	Free      uint64    `json:"free"`
	QueriedAt time.Time `json:"queried_at"`
}

type Mount struct {
	Root       string `json:"root"`
	Device     string `json:"device,omitempty"`
	FsType     string `json:"fs_type,omitempty"`
	CanUnmount bool   `json:"can_unmount"`
	CanEject   bool   `json:"can_eject"`
}

// Thumbnail is a loaded thumbnail bitmap; MTime is the modification time
// of the source file recorded when the thumbnail was generated, zero when
// unknown.
type Thumbnail struct {
	Path  string `json:"path"`
	MTime int64  `json:"mtime"`
	Data  []byte `json:"-"`
}

type MetadataValue struct {
	Value  string   `json:"value,omitempty"`
	List   []string `json:"list,omitempty"`
	IsList bool     `json:"is_list,omitempty"`
}

func (m MetadataValue) Equal(other MetadataValue) bool {
	if m.IsList != other.IsList {
		return false
	}
	if m.IsList {
		return reflect.DeepEqual(m.List, other.List)
	}
	return m.Value == other.Value
}

// ExtensionInfo is what one extension provider contributes to a file.
type ExtensionInfo struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Emblems    []string          `json:"emblems,omitempty"`
}
